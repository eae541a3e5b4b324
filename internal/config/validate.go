package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is structurally usable. Credentials are
// checked per phase by the Ready helpers so a missing key disables only the
// phase that needs it.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCalendar(); err != nil {
		return err
	}
	if err := c.validateLedger(); err != nil {
		return err
	}
	if err := c.validateDelivery(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateLock(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return ensurePositive(map[string]int{
		"publish.request_timeout":       c.Publish.RequestTimeout,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	})
}

func (c *Config) validatePaths() error {
	if c.Paths.ClientsDir == "" {
		return errors.New("paths.clients_dir must be set")
	}
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	if c.Paths.WorkDir == "" {
		return errors.New("paths.work_dir must be set")
	}
	return nil
}

func (c *Config) validateCalendar() error {
	if c.Organizer.BufferMinutes < 0 {
		return errors.New("organizer.buffer_minutes must be zero or positive")
	}
	return ensurePositive(map[string]int{
		"calendar.request_timeout": c.Calendar.RequestTimeout,
		"calendar.window_hours":    c.Calendar.WindowHours,
	})
}

func (c *Config) validateLedger() error {
	switch c.Ledger.Backend {
	case "sheets":
	case "xlsx":
		if c.Ledger.XLSXPath == "" {
			return errors.New("ledger.xlsx_path must be set when ledger.backend is xlsx")
		}
	default:
		return fmt.Errorf("ledger.backend: unsupported value %q (expected sheets or xlsx)", c.Ledger.Backend)
	}
	if c.Ledger.BasicSheet == c.Ledger.PremiumSheet {
		return errors.New("ledger.basic_sheet and ledger.premium_sheet must differ")
	}
	if c.Ledger.LastRow < 2 {
		return errors.New("ledger.last_row must be at least 2")
	}
	return ensurePositive(map[string]int{"ledger.request_timeout": c.Ledger.RequestTimeout})
}

func (c *Config) validateDelivery() error {
	if c.Delivery.ExportSubdir == c.Delivery.RetouchedSubdir {
		return errors.New("delivery.export_subdir and delivery.retouched_subdir must differ")
	}
	if c.Delivery.ExifThreshold <= 0 || c.Delivery.ExifThreshold > 1 {
		return errors.New("delivery.exif_threshold must be greater than 0 and at most 1")
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case "minio", "s3":
	default:
		return fmt.Errorf("storage.backend: unsupported value %q (expected minio or s3)", c.Storage.Backend)
	}
	if c.Storage.RetentionDays < 0 {
		return errors.New("storage.retention_days must be zero or positive")
	}
	return ensurePositive(map[string]int{
		"storage.signed_url_days": c.Storage.SignedURLDays,
		"storage.upload_timeout":  c.Storage.UploadTimeout,
		"storage.request_timeout": c.Storage.RequestTimeout,
	})
}

func (c *Config) validateLock() error {
	switch c.Lock.Backend {
	case "file":
		if c.Lock.Path == "" {
			return errors.New("lock.path must be set when lock.backend is file")
		}
	case "redis":
		if c.Lock.RedisAddr == "" {
			return errors.New("lock.redis_addr must be set when lock.backend is redis")
		}
		if c.Lock.TTLSeconds <= 0 {
			return errors.New("lock.ttl_seconds must be positive")
		}
	default:
		return fmt.Errorf("lock.backend: unsupported value %q (expected file or redis)", c.Lock.Backend)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be zero or positive")
	}
	return nil
}

// CalendarReady reports whether the calendar feed is configured.
func (c *Config) CalendarReady() error {
	if c.Calendar.ICSURL == "" {
		return errors.New("calendar.ics_url is not set (or export PHOTODESK_CALENDAR_ICS_URL)")
	}
	return nil
}

// LedgerReady reports whether the spreadsheet backend has what it needs.
func (c *Config) LedgerReady() error {
	if c.Ledger.Backend != "sheets" {
		return nil
	}
	if c.Ledger.SpreadsheetID == "" {
		return errors.New("ledger.spreadsheet_id is not set")
	}
	if c.Ledger.AccessToken == "" {
		return errors.New("ledger.access_token is not set (or export PHOTODESK_SHEETS_TOKEN)")
	}
	return nil
}

// StorageReady reports whether the object store is configured.
func (c *Config) StorageReady() error {
	if c.Storage.Bucket == "" {
		return errors.New("storage.bucket is not set")
	}
	if c.Storage.Backend == "minio" && c.Storage.Endpoint == "" {
		return errors.New("storage.endpoint must be set when storage.backend is minio")
	}
	if c.Storage.Backend == "minio" && (c.Storage.AccessKey == "" || c.Storage.SecretKey == "") {
		return errors.New("storage.access_key and storage.secret_key are required for the minio backend")
	}
	return nil
}

// DeliveryReady reports whether every collaborator of the delivery phases is configured.
func (c *Config) DeliveryReady() error {
	if err := c.LedgerReady(); err != nil {
		return err
	}
	if err := c.StorageReady(); err != nil {
		return err
	}
	var missing []string
	if c.Publish.APIURL == "" {
		missing = append(missing, "publish.api_url")
	}
	if c.Publish.APIKey == "" {
		missing = append(missing, "publish.api_key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s not set", strings.Join(missing, " and "))
	}
	return nil
}

func ensurePositive(values map[string]int) error {
	for name, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}
