package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate fills defaults, trims what needs trimming and reports
// anything that would make the engine misbehave.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	// ---- Normalization ----

	if out.App.Port == 0 {
		out.App.Port = 3001
	}
	if out.Auth.SessionHours <= 0 {
		out.Auth.SessionHours = 24
	}
	if out.Bot.SendPerSecond <= 0 {
		out.Bot.SendPerSecond = 25
	}
	if out.Bot.SendBurst <= 0 {
		out.Bot.SendBurst = 5
	}
	if out.Bot.ReminderSeconds <= 0 {
		out.Bot.ReminderSeconds = 60
	}
	if out.Intake.PollSeconds <= 0 {
		out.Intake.PollSeconds = 300
	}
	if out.Intake.Mailbox == "" {
		out.Intake.Mailbox = "INBOX"
	}
	out.Bot.AdminChatID = strings.TrimSpace(out.Bot.AdminChatID)

	// ---- Validation rules ----

	if out.App.Port < 0 || out.App.Port > 65535 {
		res.addErr("app.port %d is out of range", out.App.Port)
	}

	if out.Bot.ReminderSeconds < 10 {
		res.addWarn("bot.reminder_seconds is very low (%d); reminder passes may overlap.", out.Bot.ReminderSeconds)
	}

	if out.Bot.AdminChatID == "" {
		res.addWarn("bot.admin_chat_id is empty; no chat account will be auto-approved.")
	}

	if out.Intake.Enabled {
		if strings.TrimSpace(out.Intake.IMAPHost) == "" {
			res.addErr("intake.imap_host is required when intake.enabled=true")
		}
		if out.Intake.IMAPPort == 0 {
			res.addErr("intake.imap_port is required when intake.enabled=true")
		}
		if strings.TrimSpace(out.Intake.Username) == "" {
			res.addErr("intake.username is required when intake.enabled=true")
		}
		if out.Intake.PollSeconds < 60 {
			res.addWarn("intake.poll_seconds is very low (%d) and may trip IMAP rate limits.", out.Intake.PollSeconds)
		}
	}

	return out, res
}
