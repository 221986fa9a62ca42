package config

const (
	defaultConfigPath             = "~/.config/arena/config.toml"
	defaultDataDir                = "~/.local/share/arena"
	defaultLogDir                 = "~/.local/share/arena/logs"
	defaultLockDir                = "~/.local/share/arena/locks"
	defaultServerURL              = "http://127.0.0.1:8080"
	defaultServerTimeoutSeconds   = 120
	defaultServerMaxRetries       = 3
	defaultServerRetryBaseMillis  = 500
	defaultTranscribeTimeout      = 1800
	defaultSyncTimeoutSeconds     = 30
	defaultConfirmAttempts        = 5
	defaultConfirmBaseDelayMillis = 250
	defaultConfirmMaxDelayMillis  = 4000
	defaultTranscriptionLanguage  = "pt"
	defaultTranscriptMinChars     = 50
	defaultFirstHalfStart         = 0
	defaultFirstHalfEnd           = 45
	defaultSecondHalfStart        = 45
	defaultSecondHalfEnd          = 90
	defaultNotifyRequestTimeout   = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLogRetentionDays       = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			LockDir: defaultLockDir,
		},
		Server: Server{
			URL:               defaultServerURL,
			TimeoutSeconds:    defaultServerTimeoutSeconds,
			MaxRetries:        defaultServerMaxRetries,
			RetryBaseMillis:   defaultServerRetryBaseMillis,
			TranscribeTimeout: defaultTranscribeTimeout,
		},
		Sync: Sync{
			TimeoutSeconds:         defaultSyncTimeoutSeconds,
			ConfirmAttempts:        defaultConfirmAttempts,
			ConfirmBaseDelayMillis: defaultConfirmBaseDelayMillis,
			ConfirmMaxDelayMillis:  defaultConfirmMaxDelayMillis,
		},
		Transcription: Transcription{
			Language: defaultTranscriptionLanguage,
			MinChars: defaultTranscriptMinChars,
		},
		Analysis: Analysis{
			FirstHalfStart:  defaultFirstHalfStart,
			FirstHalfEnd:    defaultFirstHalfEnd,
			SecondHalfStart: defaultSecondHalfStart,
			SecondHalfEnd:   defaultSecondHalfEnd,
		},
		Notifications: Notifications{
			RequestTimeout:     defaultNotifyRequestTimeout,
			ReprocessStarted:   true,
			SegmentFailed:      true,
			IntegrityWarning:   true,
			ReprocessCompleted: true,
			ReprocessAborted:   true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
