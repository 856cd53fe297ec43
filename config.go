package goAccount

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Config holds every tunable of the Engine. Start from DefaultConfig and
// override fields; Build validates the result.
type Config struct {
	Password      PasswordConfig
	Confirmation  ConfirmationConfig
	PasswordReset PasswordResetConfig
	Account       AccountConfig
	Links         LinksConfig
	Notification  NotificationConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds argon2id parameters and the credential length policy.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	MinLength      int
	MaxBytes       int
	UpgradeOnLogin bool
}

/*
====================================
TOKEN CONFIG
====================================
*/

// ConfirmationConfig controls account confirmation tokens.
type ConfirmationConfig struct {
	TokenTTL time.Duration
	// LegacyPlaintextTokens stores confirmation tokens unhashed, for
	// databases whose existing pending tokens were written in cleartext.
	LegacyPlaintextTokens bool
}

// PasswordResetConfig controls password reset tokens.
type PasswordResetConfig struct {
	TokenTTL time.Duration
	// Unknown emails wait a random duration in this range before returning.
	EnumerationDelayMin time.Duration
	EnumerationDelayMax time.Duration
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

// AccountConfig controls registration and login.
type AccountConfig struct {
	DefaultRole              string
	MaxUsernameLength        int
	RequireConfirmedForLogin bool
}

// LinksConfig controls the links embedded in notifications.
type LinksConfig struct {
	// BaseURL is the scheme and host links are built on, e.g. https://example.com.
	// It may be left empty when every request carries WithBaseURL.
	BaseURL             string
	ConfirmPath         string
	PasswordResetPath   string
	AllowMissingBaseURL bool
}

/*
====================================
NOTIFICATION CONFIG
====================================
*/

// NotificationConfig controls how notifications reach the Notifier.
type NotificationConfig struct {
	Async      bool
	BufferSize int
	Workers    int
	DropIfFull bool
	// Timeout bounds a single Notify call. Zero means no bound.
	Timeout time.Duration
}

// AuditConfig controls asynchronous audit event dispatch.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			MinLength:      8,
			MaxBytes:       1024,
			UpgradeOnLogin: true,
		},
		Confirmation: ConfirmationConfig{
			TokenTTL: 24 * time.Hour,
		},
		PasswordReset: PasswordResetConfig{
			TokenTTL:            time.Hour,
			EnumerationDelayMin: 20 * time.Millisecond,
			EnumerationDelayMax: 40 * time.Millisecond,
		},
		Account: AccountConfig{
			DefaultRole:              "user",
			MaxUsernameLength:        64,
			RequireConfirmedForLogin: true,
		},
		Links: LinksConfig{
			ConfirmPath:       "/confirm/",
			PasswordResetPath: "/reset-password/",
		},
		Notification: NotificationConfig{
			Async:      false,
			BufferSize: 256,
			Workers:    2,
			DropIfFull: true,
			Timeout:    30 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting in c.
func (c *Config) Validate() error {
	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}
	if c.Password.MaxBytes < c.Password.MinLength {
		return errors.New("Password MaxBytes must be >= MinLength")
	}

	// Tokens
	if c.Confirmation.TokenTTL <= 0 {
		return errors.New("Confirmation TokenTTL must be > 0")
	}
	if c.PasswordReset.TokenTTL <= 0 {
		return errors.New("PasswordReset TokenTTL must be > 0")
	}
	if c.PasswordReset.EnumerationDelayMin < 0 {
		return errors.New("PasswordReset EnumerationDelayMin must be >= 0")
	}
	if c.PasswordReset.EnumerationDelayMax < c.PasswordReset.EnumerationDelayMin {
		return errors.New("PasswordReset EnumerationDelayMax must be >= EnumerationDelayMin")
	}

	// Account
	if strings.TrimSpace(c.Account.DefaultRole) == "" {
		return errors.New("Account DefaultRole is required")
	}
	if c.Account.MaxUsernameLength <= 0 {
		return errors.New("Account MaxUsernameLength must be > 0")
	}

	// Links
	if c.Links.BaseURL == "" {
		if !c.Links.AllowMissingBaseURL {
			return errors.New("Links BaseURL is required unless AllowMissingBaseURL is set")
		}
	} else if err := validateBaseURL(c.Links.BaseURL); err != nil {
		return err
	}
	if !strings.HasPrefix(c.Links.ConfirmPath, "/") {
		return errors.New("Links ConfirmPath must start with /")
	}
	if !strings.HasPrefix(c.Links.PasswordResetPath, "/") {
		return errors.New("Links PasswordResetPath must start with /")
	}

	// Notification
	if c.Notification.Timeout < 0 {
		return errors.New("Notification Timeout must be >= 0")
	}
	if c.Notification.Async {
		if c.Notification.BufferSize <= 0 {
			return errors.New("Notification BufferSize must be > 0 when Async is enabled")
		}
		if c.Notification.Workers <= 0 {
			return errors.New("Notification Workers must be > 0 when Async is enabled")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return errors.New("Links BaseURL is not a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("Links BaseURL must use http or https")
	}
	if u.Host == "" {
		return errors.New("Links BaseURL must include a host")
	}
	return nil
}
