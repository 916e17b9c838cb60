package mailintake

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"

	"rooftrack-engine/internal/config"
	"rooftrack-engine/internal/events"
	"rooftrack-engine/internal/followup"
	"rooftrack-engine/internal/secrets"
	"rooftrack-engine/internal/store"
)

const maxEmailsPerRun = 20

// RunOnce fetches unseen mail from the intake mailbox, turns web-to-lead
// notifications into leads and marks processed emails \Seen. Returns how many
// leads got created.
func RunOnce(db *sql.DB, cfg config.Config, hub *events.Hub, now time.Time) (added int, err error) {
	if db == nil {
		return 0, errors.New("db is nil")
	}
	if !cfg.Intake.Enabled {
		return 0, nil
	}
	if cfg.Intake.IMAPHost == "" || cfg.Intake.Username == "" {
		return 0, errors.New("intake enabled but missing imap_host/username")
	}

	pass, err := secrets.GetIntakePassword(secrets.IntakeKeyringAccount(cfg))
	if err != nil {
		return 0, fmt.Errorf("intake password: %w", err)
	}

	addr := cfg.Intake.IMAPHost
	if cfg.Intake.IMAPPort != 0 && !strings.Contains(addr, ":") {
		addr = fmt.Sprintf("%s:%d", addr, cfg.Intake.IMAPPort)
	} else if !strings.Contains(addr, ":") {
		addr = addr + ":993"
	}

	mailbox := cfg.Intake.Mailbox
	if mailbox == "" {
		mailbox = "INBOX"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	c, err := dialAndLogin(ctx, addr, cfg.Intake.Username, pass)
	if err != nil {
		return 0, err
	}
	defer logoutAndClose(c)

	if _, err := c.Select(mailbox, &imap.SelectOptions{ReadOnly: false}).Wait(); err != nil {
		return 0, fmt.Errorf("imap select %q: %w", mailbox, err)
	}

	msgs, err := fetchUnseen(ctx, c, maxEmailsPerRun)
	if err != nil {
		return 0, err
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	processed := make([]imap.UID, 0, len(msgs))
	for _, m := range msgs {
		n, err := intakeOne(ctx, db, cfg, hub, m, now)
		if err != nil {
			// Leave the message unseen so the next pass retries it.
			log.Printf("level=warn msg=\"intake message failed\" uid=%d err=%q", m.UID, err)
			continue
		}
		added += n
		processed = append(processed, m.UID)
	}

	if len(processed) > 0 {
		if err := markSeen(c, processed); err != nil {
			return added, fmt.Errorf("mark seen: %w", err)
		}
	}
	return added, nil
}

// intakeOne handles a single email. Returns 1 when a lead got created, 0 when
// the message was skipped (duplicate, or not a lead notification).
func intakeOne(ctx context.Context, db *sql.DB, cfg config.Config, hub *events.Hub, m Message, now time.Time) (int, error) {
	messageID, bodyText := parseMessage(m.Raw)
	if messageID == "" {
		// Providers that strip Message-Id still get deduped, per UID.
		messageID = fmt.Sprintf("uid:%d:%s", m.UID, m.From)
	}

	fresh, err := store.MarkIntakeMessage(ctx, db, messageID)
	if err != nil {
		return 0, err
	}
	if !fresh {
		return 0, nil
	}

	lf := parseLeadFields(bodyText)
	if lf.Name == "" {
		return 0, nil
	}

	l := store.Lead{
		Name:          lf.Name,
		Phone:         lf.Phone,
		Email:         lf.Email,
		Address:       lf.Address,
		City:          lf.City,
		State:         lf.State,
		Zip:           lf.Zip,
		SourceChannel: channelForSender(m.From, cfg.Intake.SenderChannels),
		Notes:         lf.Message,
	}
	if err := store.CreateLead(ctx, db, &l); err != nil {
		return 0, err
	}

	summary := fmt.Sprintf("Lead created from email intake (%s)", l.SourceChannel)
	if _, err := store.LogInteraction(ctx, db, l.ID, "email", summary, "mail_intake"); err != nil {
		return 0, err
	}
	if _, err := followup.Schedule(ctx, db, l.ID, lf.Message, now); err != nil {
		return 0, err
	}

	if hub != nil {
		hub.Publish(events.MakeEvent("mail-intake", events.TypeLeadCreated, 1, map[string]any{"id": l.ID}))
	}

	log.Printf("level=info msg=\"intake lead created\" id=%s channel=%s", l.ID, l.SourceChannel)
	return 1, nil
}
