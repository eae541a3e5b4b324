package config

const (
	defaultOriginalDir           = "/volume2/photo/studio/Original"
	defaultExportDir             = "/volume2/photo/studio/Export"
	defaultClientsDir            = "/volume2/photo/studio/Console"
	defaultPremiumDir            = "/volume2/photo/work/premium"
	defaultWorkDir               = "~/.local/share/photodesk/work"
	defaultStateDir              = "~/.local/share/photodesk"
	defaultLogDir                = "~/.local/share/photodesk/logs"
	defaultLogRetentionDays      = 30
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultCalendarTimeout       = 20
	defaultCalendarWindowHours   = 6
	defaultBufferMinutes         = 10
	defaultLedgerBackend         = "sheets"
	defaultSheetsBaseURL         = "https://sheets.googleapis.com"
	defaultBasicSheet            = "베이직"
	defaultPremiumSheet          = "프리미엄"
	defaultLedgerLastRow         = 1000
	defaultLedgerTimeout         = 20
	defaultExportSubdir          = "내보내기"
	defaultRetouchedSubdir       = "보정본"
	defaultExifThreshold         = 0.90
	defaultArchivePrefix         = "스튜디오생일"
	defaultStorageBackend        = "minio"
	defaultStorageRegion         = "us-east-1"
	defaultStorageKeyPrefix      = "auto"
	defaultSignedURLDays         = 15
	defaultStorageRetentionDays  = 7
	defaultUploadTimeout         = 900
	defaultStorageRequestTimeout = 30
	defaultPublishTimeout        = 30
	defaultTelegramBaseURL       = "https://api.telegram.org"
	defaultStudioName            = "스튜디오생일"
	defaultNotifyTimeout         = 10
	defaultLockBackend           = "file"
	defaultLockFile              = "photodesk.lock"
	defaultRedisLockKey          = "photodesk:run-lock"
	defaultLockTTLSeconds        = 3600
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OriginalDir: defaultOriginalDir,
			ExportDir:   defaultExportDir,
			ClientsDir:  defaultClientsDir,
			PremiumDir:  defaultPremiumDir,
			WorkDir:     defaultWorkDir,
			StateDir:    defaultStateDir,
			LogDir:      defaultLogDir,
		},
		Calendar: Calendar{
			RequestTimeout: defaultCalendarTimeout,
			WindowHours:    defaultCalendarWindowHours,
		},
		Organizer: Organizer{
			Enabled:       true,
			BufferMinutes: defaultBufferMinutes,
		},
		Ledger: Ledger{
			Backend:        defaultLedgerBackend,
			BaseURL:        defaultSheetsBaseURL,
			BasicSheet:     defaultBasicSheet,
			PremiumSheet:   defaultPremiumSheet,
			LastRow:        defaultLedgerLastRow,
			RequestTimeout: defaultLedgerTimeout,
			SyncCalendar:   true,
		},
		Delivery: Delivery{
			Enabled:         true,
			ExportSubdir:    defaultExportSubdir,
			RetouchedSubdir: defaultRetouchedSubdir,
			SkipPrefixes:    []string{"@", "0"},
			ExifThreshold:   defaultExifThreshold,
			ArchivePrefix:   defaultArchivePrefix,
		},
		Storage: Storage{
			Backend:        defaultStorageBackend,
			Region:         defaultStorageRegion,
			UseSSL:         true,
			KeyPrefix:      defaultStorageKeyPrefix,
			SignedURLDays:  defaultSignedURLDays,
			RetentionDays:  defaultStorageRetentionDays,
			UploadTimeout:  defaultUploadTimeout,
			RequestTimeout: defaultStorageRequestTimeout,
		},
		Publish: Publish{
			RequestTimeout: defaultPublishTimeout,
		},
		Notifications: Notifications{
			TelegramBaseURL: defaultTelegramBaseURL,
			StudioName:      defaultStudioName,
			RequestTimeout:  defaultNotifyTimeout,
			Deliveries:      true,
			Errors:          true,
		},
		Lock: Lock{
			Backend:    defaultLockBackend,
			RedisKey:   defaultRedisLockKey,
			TTLSeconds: defaultLockTTLSeconds,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
