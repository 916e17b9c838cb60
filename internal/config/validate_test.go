package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDefaults(t *testing.T) {
	out, vr := NormalizeAndValidate(Config{})
	assert.True(t, vr.OK())

	assert.Equal(t, 3001, out.App.Port)
	assert.Equal(t, 24, out.Auth.SessionHours)
	assert.Equal(t, 25.0, out.Bot.SendPerSecond)
	assert.Equal(t, 5, out.Bot.SendBurst)
	assert.Equal(t, 60, out.Bot.ReminderSeconds)
	assert.Equal(t, 300, out.Intake.PollSeconds)
	assert.Equal(t, "INBOX", out.Intake.Mailbox)
}

func TestIntakeValidation(t *testing.T) {
	var cfg Config
	cfg.Intake.Enabled = true

	_, vr := NormalizeAndValidate(cfg)
	require.False(t, vr.OK())
	assert.Len(t, vr.Errors, 3) // host, port, username all missing

	cfg.Intake.IMAPHost = "imap.gmail.com"
	cfg.Intake.IMAPPort = 993
	cfg.Intake.Username = "leads@example.com"
	_, vr = NormalizeAndValidate(cfg)
	assert.True(t, vr.OK())
}

func TestPortOutOfRange(t *testing.T) {
	var cfg Config
	cfg.App.Port = 99999

	_, vr := NormalizeAndValidate(cfg)
	assert.False(t, vr.OK())
}

func TestSaveAtomicRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")

	var cfg Config
	cfg.App.Port = 4002
	cfg.Intake.SenderChannels = map[string]string{"yelp.com": "yelp"}

	require.NoError(t, SaveAtomic(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4002, got.App.Port)
	assert.Equal(t, "yelp", got.Intake.SenderChannels["yelp.com"])

	// Saving again must not leave tmp files behind.
	require.NoError(t, SaveAtomic(path, cfg))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.NotContains(t, names, "config.yml.tmp")
}

func TestEnsureUserConfigCopiesDefault(t *testing.T) {
	dir := t.TempDir()
	defaultPath := filepath.Join(dir, "default.yml")
	require.NoError(t, os.WriteFile(defaultPath, []byte("app:\n  port: 3001\n"), 0o644))

	dataDir := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))

	userPath, err := EnsureUserConfig(dataDir, defaultPath)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dataDir, "config.yml"), userPath)

	cfg, err := Load(userPath)
	require.NoError(t, err)
	assert.Equal(t, 3001, cfg.App.Port)

	// A second call leaves the existing user file alone.
	require.NoError(t, os.WriteFile(userPath, []byte("app:\n  port: 5000\n"), 0o644))
	userPath, err = EnsureUserConfig(dataDir, defaultPath)
	require.NoError(t, err)
	cfg, err = Load(userPath)
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.App.Port)
}
