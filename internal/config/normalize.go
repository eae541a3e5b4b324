package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCalendar()
	if err := c.normalizeLedger(); err != nil {
		return err
	}
	c.normalizeDelivery()
	c.normalizeStorage()
	c.normalizePublish()
	c.normalizeNotifications()
	if err := c.normalizeLock(); err != nil {
		return err
	}
	if err := c.normalizeMetrics(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name  string
		value *string
	}{
		{"paths.original_dir", &c.Paths.OriginalDir},
		{"paths.export_dir", &c.Paths.ExportDir},
		{"paths.clients_dir", &c.Paths.ClientsDir},
		{"paths.premium_dir", &c.Paths.PremiumDir},
		{"paths.work_dir", &c.Paths.WorkDir},
		{"paths.state_dir", &c.Paths.StateDir},
		{"paths.log_dir", &c.Paths.LogDir},
	}
	for _, field := range fields {
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeCalendar() {
	c.Calendar.ICSURL = strings.TrimSpace(c.Calendar.ICSURL)
	if c.Calendar.ICSURL == "" {
		if value, ok := os.LookupEnv("PHOTODESK_CALENDAR_ICS_URL"); ok {
			c.Calendar.ICSURL = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLedger() error {
	c.Ledger.Backend = strings.ToLower(strings.TrimSpace(c.Ledger.Backend))
	if c.Ledger.Backend == "" {
		c.Ledger.Backend = defaultLedgerBackend
	}
	c.Ledger.SpreadsheetID = strings.TrimSpace(c.Ledger.SpreadsheetID)
	c.Ledger.AccessToken = strings.TrimSpace(c.Ledger.AccessToken)
	if c.Ledger.AccessToken == "" {
		if value, ok := os.LookupEnv("PHOTODESK_SHEETS_TOKEN"); ok {
			c.Ledger.AccessToken = strings.TrimSpace(value)
		}
	}
	c.Ledger.BaseURL = strings.TrimRight(strings.TrimSpace(c.Ledger.BaseURL), "/")
	if c.Ledger.BaseURL == "" {
		c.Ledger.BaseURL = defaultSheetsBaseURL
	}
	c.Ledger.BasicSheet = strings.TrimSpace(c.Ledger.BasicSheet)
	if c.Ledger.BasicSheet == "" {
		c.Ledger.BasicSheet = defaultBasicSheet
	}
	c.Ledger.PremiumSheet = strings.TrimSpace(c.Ledger.PremiumSheet)
	if c.Ledger.PremiumSheet == "" {
		c.Ledger.PremiumSheet = defaultPremiumSheet
	}
	var err error
	if c.Ledger.XLSXPath, err = expandPath(strings.TrimSpace(c.Ledger.XLSXPath)); err != nil {
		return fmt.Errorf("ledger.xlsx_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeDelivery() {
	c.Delivery.ExportSubdir = strings.TrimSpace(c.Delivery.ExportSubdir)
	if c.Delivery.ExportSubdir == "" {
		c.Delivery.ExportSubdir = defaultExportSubdir
	}
	c.Delivery.RetouchedSubdir = strings.TrimSpace(c.Delivery.RetouchedSubdir)
	if c.Delivery.RetouchedSubdir == "" {
		c.Delivery.RetouchedSubdir = defaultRetouchedSubdir
	}
	prefixes := make([]string, 0, len(c.Delivery.SkipPrefixes))
	for _, prefix := range c.Delivery.SkipPrefixes {
		if trimmed := strings.TrimSpace(prefix); trimmed != "" {
			prefixes = append(prefixes, trimmed)
		}
	}
	c.Delivery.SkipPrefixes = prefixes
	c.Delivery.ArchivePrefix = strings.TrimSpace(c.Delivery.ArchivePrefix)
	if c.Delivery.ArchivePrefix == "" {
		c.Delivery.ArchivePrefix = defaultArchivePrefix
	}
}

func (c *Config) normalizeStorage() {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaultStorageBackend
	}
	c.Storage.Endpoint = strings.TrimSpace(c.Storage.Endpoint)
	c.Storage.Region = strings.TrimSpace(c.Storage.Region)
	if c.Storage.Region == "" {
		c.Storage.Region = defaultStorageRegion
	}
	c.Storage.Bucket = strings.TrimSpace(c.Storage.Bucket)
	c.Storage.AccessKey = strings.TrimSpace(c.Storage.AccessKey)
	if c.Storage.AccessKey == "" {
		if value, ok := os.LookupEnv("PHOTODESK_STORAGE_ACCESS_KEY"); ok {
			c.Storage.AccessKey = strings.TrimSpace(value)
		}
	}
	c.Storage.SecretKey = strings.TrimSpace(c.Storage.SecretKey)
	if c.Storage.SecretKey == "" {
		if value, ok := os.LookupEnv("PHOTODESK_STORAGE_SECRET_KEY"); ok {
			c.Storage.SecretKey = strings.TrimSpace(value)
		}
	}
	c.Storage.KeyPrefix = strings.Trim(strings.TrimSpace(c.Storage.KeyPrefix), "/")
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = defaultStorageKeyPrefix
	}
}

func (c *Config) normalizePublish() {
	c.Publish.APIURL = strings.TrimRight(strings.TrimSpace(c.Publish.APIURL), "/")
	c.Publish.APIKey = strings.TrimSpace(c.Publish.APIKey)
	if c.Publish.APIKey == "" {
		if value, ok := os.LookupEnv("PHOTODESK_PUBLISH_API_KEY"); ok {
			c.Publish.APIKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.Notifications.TelegramToken = strings.TrimSpace(c.Notifications.TelegramToken)
	if c.Notifications.TelegramToken == "" {
		if value, ok := os.LookupEnv("PHOTODESK_TELEGRAM_TOKEN"); ok {
			c.Notifications.TelegramToken = strings.TrimSpace(value)
		}
	}
	c.Notifications.TelegramChatID = strings.TrimSpace(c.Notifications.TelegramChatID)
	c.Notifications.TelegramBaseURL = strings.TrimRight(strings.TrimSpace(c.Notifications.TelegramBaseURL), "/")
	if c.Notifications.TelegramBaseURL == "" {
		c.Notifications.TelegramBaseURL = defaultTelegramBaseURL
	}
	c.Notifications.StudioName = strings.TrimSpace(c.Notifications.StudioName)
	if c.Notifications.StudioName == "" {
		c.Notifications.StudioName = defaultStudioName
	}
}

func (c *Config) normalizeLock() error {
	c.Lock.Backend = strings.ToLower(strings.TrimSpace(c.Lock.Backend))
	if c.Lock.Backend == "" {
		c.Lock.Backend = defaultLockBackend
	}
	c.Lock.Path = strings.TrimSpace(c.Lock.Path)
	if c.Lock.Path == "" {
		c.Lock.Path = filepath.Join(c.Paths.StateDir, defaultLockFile)
	}
	var err error
	if c.Lock.Path, err = expandPath(c.Lock.Path); err != nil {
		return fmt.Errorf("lock.path: %w", err)
	}
	c.Lock.RedisAddr = strings.TrimSpace(c.Lock.RedisAddr)
	c.Lock.RedisKey = strings.TrimSpace(c.Lock.RedisKey)
	if c.Lock.RedisKey == "" {
		c.Lock.RedisKey = defaultRedisLockKey
	}
	return nil
}

func (c *Config) normalizeMetrics() error {
	var err error
	if c.Metrics.TextfilePath, err = expandPath(strings.TrimSpace(c.Metrics.TextfilePath)); err != nil {
		return fmt.Errorf("metrics.textfile_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
