package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Auth struct {
		SessionHours int `yaml:"session_hours"`
	} `yaml:"auth"`

	Bot struct {
		AdminChatID     string  `yaml:"admin_chat_id"`
		SendPerSecond   float64 `yaml:"send_per_second"`
		SendBurst       int     `yaml:"send_burst"`
		ReminderSeconds int     `yaml:"reminder_seconds"`
	} `yaml:"bot"`

	Intake struct {
		Enabled        bool              `yaml:"enabled"`
		IMAPHost       string            `yaml:"imap_host"`
		IMAPPort       int               `yaml:"imap_port"`
		Username       string            `yaml:"username"`
		Mailbox        string            `yaml:"mailbox"`
		PollSeconds    int               `yaml:"poll_seconds"`
		SenderChannels map[string]string `yaml:"sender_channels"` // sender domain -> source_channel
	} `yaml:"intake"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}
