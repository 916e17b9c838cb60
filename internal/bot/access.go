package bot

import (
	"context"
	"errors"
	"fmt"

	"rooftrack-engine/internal/store"
)

// Authorize registers the chat account on first contact and says whether it
// may use the bot. chatUserID matching adminChatID gets the admin role and
// immediate approval; everyone else starts unapproved.
func (h *Handler) Authorize(ctx context.Context, chatUserID, username, displayName, adminChatID string) (store.BotUser, bool, error) {
	admin := adminChatID != "" && chatUserID == adminChatID
	u, err := store.GetOrCreateBotUser(ctx, h.DB, chatUserID, username, displayName, admin)
	if err != nil {
		return store.BotUser{}, false, err
	}
	return u, u.Approved, nil
}

// WelcomeReply is the /start response: a greeting for approved accounts, a
// pending notice for the rest.
func WelcomeReply(u store.BotUser) string {
	if u.Approved {
		return fmt.Sprintf("👋 Welcome back, %s!\n\nSend me leads, appointments, notes or reminders and I'll keep the pipeline up to date.", u.DisplayName)
	}
	return fmt.Sprintf("👋 Hi %s!\n\nYour account is pending approval.\nPlease contact the admin to get approved.", u.DisplayName)
}

// ApproveUser flips an account on. Only admins may call it.
func (h *Handler) ApproveUser(ctx context.Context, callerChatID, targetChatID string) (string, error) {
	caller, err := store.GetBotUser(ctx, h.DB, callerChatID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && caller.Role != "admin") {
		return "⚠️ Only the admin can approve accounts.", nil
	}
	if err != nil {
		return "", err
	}

	err = store.ApproveBotUser(ctx, h.DB, targetChatID)
	if errors.Is(err, store.ErrNotFound) {
		return "⚠️ No account found with that chat id.", nil
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✅ Approved account %s.", targetChatID), nil
}
