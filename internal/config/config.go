package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the photo roots and local state directories.
type Paths struct {
	OriginalDir string `toml:"original_dir"`
	ExportDir   string `toml:"export_dir"`
	ClientsDir  string `toml:"clients_dir"`
	PremiumDir  string `toml:"premium_dir"`
	WorkDir     string `toml:"work_dir"`
	StateDir    string `toml:"state_dir"`
	LogDir      string `toml:"log_dir"`
}

// Calendar contains configuration for the booking calendar feed.
type Calendar struct {
	ICSURL         string `toml:"ics_url"`
	RequestTimeout int    `toml:"request_timeout"`
	WindowHours    int    `toml:"window_hours"`
}

// Organizer contains configuration for moving intake photos into customer folders.
type Organizer struct {
	Enabled       bool `toml:"enabled"`
	BufferMinutes int  `toml:"buffer_minutes"`
}

// Ledger contains configuration for the booking spreadsheet.
type Ledger struct {
	Backend        string `toml:"backend"`
	SpreadsheetID  string `toml:"spreadsheet_id"`
	AccessToken    string `toml:"access_token"`
	BaseURL        string `toml:"base_url"`
	XLSXPath       string `toml:"xlsx_path"`
	BasicSheet     string `toml:"basic_sheet"`
	PremiumSheet   string `toml:"premium_sheet"`
	LastRow        int    `toml:"last_row"`
	RequestTimeout int    `toml:"request_timeout"`
	SyncCalendar   bool   `toml:"sync_calendar"`
}

// Delivery contains configuration for the per-customer delivery pipeline.
type Delivery struct {
	Enabled         bool     `toml:"enabled"`
	ExportSubdir    string   `toml:"export_subdir"`
	RetouchedSubdir string   `toml:"retouched_subdir"`
	SkipPrefixes    []string `toml:"skip_prefixes"`
	ExifThreshold   float64  `toml:"exif_threshold"`
	ArchivePrefix   string   `toml:"archive_prefix"`
}

// Storage contains configuration for the S3-compatible object store.
type Storage struct {
	Backend        string `toml:"backend"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	PathStyle      bool   `toml:"path_style"`
	KeyPrefix      string `toml:"key_prefix"`
	SignedURLDays  int    `toml:"signed_url_days"`
	RetentionDays  int    `toml:"retention_days"`
	UploadTimeout  int    `toml:"upload_timeout"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Publish contains configuration for the download page API.
type Publish struct {
	APIURL         string `toml:"api_url"`
	APIKey         string `toml:"api_key"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Notifications contains configuration for operator notifications.
type Notifications struct {
	NtfyTopic       string `toml:"ntfy_topic"`
	TelegramToken   string `toml:"telegram_token"`
	TelegramChatID  string `toml:"telegram_chat_id"`
	TelegramBaseURL string `toml:"telegram_base_url"`
	StudioName      string `toml:"studio_name"`
	RequestTimeout  int    `toml:"request_timeout"`
	Deliveries      bool   `toml:"deliveries"`
	Errors          bool   `toml:"errors"`
}

// Lock contains configuration for the run-level mutual exclusion lock.
type Lock struct {
	Backend       string `toml:"backend"`
	Path          string `toml:"path"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	RedisKey      string `toml:"redis_key"`
	TTLSeconds    int    `toml:"ttl_seconds"`
}

// Metrics contains configuration for run metrics export.
type Metrics struct {
	TextfilePath string `toml:"textfile_path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for photodesk.
//
// Configuration sections by subsystem:
//   - Paths: intake, customer, premium work and local state directories
//   - Calendar: booking calendar feed and query window
//   - Organizer: appointment window matching for intake photos
//   - Ledger: booking spreadsheet backend and sheet names
//   - Delivery: folder conventions and EXIF validation threshold
//   - Storage: object store backend, signed URL lifetime and retention
//   - Publish: download page API
//   - Notifications: ntfy and Telegram operator channels
//   - Lock: run-level lock backend
//   - Metrics: textfile export for node_exporter
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Calendar      Calendar      `toml:"calendar"`
	Organizer     Organizer     `toml:"organizer"`
	Ledger        Ledger        `toml:"ledger"`
	Delivery      Delivery      `toml:"delivery"`
	Storage       Storage       `toml:"storage"`
	Publish       Publish       `toml:"publish"`
	Notifications Notifications `toml:"notifications"`
	Lock          Lock          `toml:"lock"`
	Metrics       Metrics       `toml:"metrics"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/photodesk/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("photodesk.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the local state directories a run writes to.
// Photo roots live on shared storage and are never created here.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath returns the sqlite run journal location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LogPath returns the daily log file for the given day. One file per day lets
// logging.retention_days prune whole days.
func (c *Config) LogPath(day time.Time) string {
	return filepath.Join(c.Paths.LogDir, "photodesk-"+day.Format("20060102")+".log")
}

// DeliveryRoots returns the folder search roots in priority order.
func (c *Config) DeliveryRoots() []string {
	roots := make([]string, 0, 2)
	for _, dir := range []string{c.Paths.ClientsDir, c.Paths.PremiumDir} {
		if strings.TrimSpace(dir) != "" {
			roots = append(roots, dir)
		}
	}
	return roots
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
