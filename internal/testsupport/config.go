package testsupport

import (
	"path/filepath"
	"testing"

	"photodesk/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Outbound channels are left unconfigured so nothing leaves the process.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OriginalDir = filepath.Join(base, "original")
	cfgVal.Paths.ExportDir = filepath.Join(base, "export")
	cfgVal.Paths.ClientsDir = filepath.Join(base, "clients")
	cfgVal.Paths.PremiumDir = filepath.Join(base, "premium")
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Ledger.Backend = "xlsx"
	cfgVal.Ledger.XLSXPath = filepath.Join(base, "state", "ledger.xlsx")
	cfgVal.Lock.Path = filepath.Join(base, "state", "photodesk.lock")
	cfgVal.Storage.Bucket = "photodesk-test"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithCalendar points the calendar feed at the given URL or path.
func WithCalendar(location string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Calendar.ICSURL = location
	}
}

// WithPublish configures the download page API.
func WithPublish(url, key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Publish.APIURL = url
		b.cfg.Publish.APIKey = key
	}
}

// WithNtfy configures the ntfy channel.
func WithNtfy(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithTelegram configures the Telegram channel against a test server.
func WithTelegram(baseURL, token, chatID string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.TelegramBaseURL = baseURL
		b.cfg.Notifications.TelegramToken = token
		b.cfg.Notifications.TelegramChatID = chatID
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
