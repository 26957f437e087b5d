// Package config loads the notifier process configuration from the
// environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"casetrack/internal/infra/db"
	"casetrack/internal/infra/notifier"
	internalcfg "casetrack/internal/pkg/config"
	"casetrack/internal/usecase/notify"
	envcfg "casetrack/pkg/config"
)

// NotifyConfig is everything cmd/notifier needs besides the worker settings.
type NotifyConfig struct {
	OneSignal   OneSignalConfig
	PushEnabled bool

	// RegistryPath points at a YAML notification type registry. Empty
	// means the built-in types.
	RegistryPath string
	// Async queues notifications for the delivery workers.
	Async bool
	// PresenceOnlyArgs substitutes the fixed legacy values for eta_mins
	// and hospital_name instead of the supplied ones.
	PresenceOnlyArgs bool

	DedupTTL time.Duration

	Redis RedisConfig
	NATS  NATSConfig
	DB    DBConfig
	HTTP  HTTPConfig
}

type OneSignalConfig struct {
	AppID             string
	APIKey            string
	Endpoint          string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// RedisConfig enables duplicate suppression when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NATSConfig moves the delivery queue onto NATS when URL is set.
type NATSConfig struct {
	URL     string
	Subject string
	Group   string
}

type DBConfig struct {
	Driver string
	DSN    string
}

// HTTPConfig configures the intake API.
type HTTPConfig struct {
	Addr           string
	JWTSecret      string
	AllowedRoles   []string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

// LoadNotifyConfig reads the environment. Malformed numbers and durations
// fall back to defaults with a warning; call Validate for the rest.
func LoadNotifyConfig() *NotifyConfig {
	return &NotifyConfig{
		OneSignal: OneSignalConfig{
			AppID:             envcfg.GetEnvString("ONESIGNAL_APP_ID", ""),
			APIKey:            envcfg.GetEnvString("ONESIGNAL_API_KEY", ""),
			Endpoint:          envcfg.GetEnvString("ONESIGNAL_ENDPOINT", notifier.DefaultOneSignalEndpoint),
			Timeout:           notifier.ClampTimeout(envcfg.GetEnvDuration("ONESIGNAL_TIMEOUT", notifier.DefaultTimeout)),
			RequestsPerSecond: envcfg.GetEnvFloat("ONESIGNAL_RATE_LIMIT", 10),
			Burst:             envcfg.GetEnvInt("ONESIGNAL_BURST", 10),
		},
		PushEnabled:      envcfg.GetEnvBool("PUSH_ENABLED", true),
		RegistryPath:     envcfg.GetEnvString("NOTIFY_REGISTRY_PATH", ""),
		Async:            envcfg.GetEnvBool("NOTIFY_ASYNC", true),
		PresenceOnlyArgs: envcfg.GetEnvBool("NOTIFY_PRESENCE_ONLY_ARGS", false),
		DedupTTL:         envcfg.GetEnvDuration("NOTIFY_DEDUP_TTL", 2*time.Minute),
		Redis: RedisConfig{
			Addr:     envcfg.GetEnvString("REDIS_ADDR", ""),
			Password: envcfg.GetEnvString("REDIS_PASSWORD", ""),
			DB:       envcfg.GetEnvInt("REDIS_DB", 0),
		},
		NATS: NATSConfig{
			URL:     envcfg.GetEnvString("NATS_URL", ""),
			Subject: envcfg.GetEnvString("NATS_SUBJECT", "casetrack.notifications.deliver"),
			Group:   envcfg.GetEnvString("NATS_QUEUE_GROUP", "notifier-workers"),
		},
		DB: DBConfig{
			Driver: envcfg.GetEnvString("DB_DRIVER", db.DriverPostgres),
			DSN:    envcfg.GetEnvString("DATABASE_URL", ""),
		},
		HTTP: HTTPConfig{
			Addr:           envcfg.GetEnvString("HTTP_ADDR", ":8080"),
			JWTSecret:      envcfg.GetEnvString("JWT_SECRET", ""),
			AllowedRoles:   envcfg.GetEnvStringList("INTAKE_ALLOWED_ROLES", []string{"admin", "dispatcher"}),
			RequestTimeout: envcfg.GetEnvDuration("HTTP_REQUEST_TIMEOUT", 15*time.Second),
			MaxBodyBytes:   int64(envcfg.GetEnvInt("HTTP_MAX_BODY_BYTES", 64<<10)),
		},
	}
}

// Validate reports settings the process cannot start with. Missing push
// credentials are not among them: AddMessage reports those per call.
func (c *NotifyConfig) Validate() error {
	var errs []error

	if err := internalcfg.ValidateHTTPURL(c.OneSignal.Endpoint); err != nil {
		errs = append(errs, fmt.Errorf("ONESIGNAL_ENDPOINT: %w", err))
	}
	if err := internalcfg.ValidatePositiveFloat(c.OneSignal.RequestsPerSecond); err != nil {
		errs = append(errs, fmt.Errorf("ONESIGNAL_RATE_LIMIT: %w", err))
	}
	if c.OneSignal.Burst < 1 {
		errs = append(errs, fmt.Errorf("ONESIGNAL_BURST: must be at least 1, got %d", c.OneSignal.Burst))
	}
	if c.DedupTTL < 0 {
		errs = append(errs, fmt.Errorf("NOTIFY_DEDUP_TTL: must not be negative, got %v", c.DedupTTL))
	}
	if _, err := db.NormalizeDriver(c.DB.Driver); err != nil {
		errs = append(errs, fmt.Errorf("DB_DRIVER: %w", err))
	}
	if c.DB.DSN == "" {
		errs = append(errs, errors.New("DATABASE_URL: must be set"))
	}
	if c.HTTP.Addr != "" && len(c.HTTP.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET: must be at least 32 bytes when the intake API is enabled"))
	}
	if c.HTTP.MaxBodyBytes < 1 {
		errs = append(errs, fmt.Errorf("HTTP_MAX_BODY_BYTES: must be positive, got %d", c.HTTP.MaxBodyBytes))
	}

	if len(errs) > 0 {
		return &notify.ConfigurationError{Err: errors.Join(errs...)}
	}
	return nil
}

// HasPushCredentials reports whether both OneSignal credentials are set.
func (c *NotifyConfig) HasPushCredentials() bool {
	return c.OneSignal.AppID != "" && c.OneSignal.APIKey != ""
}

// NotifierConfig maps the OneSignal settings onto the REST client.
func (c *NotifyConfig) NotifierConfig() notifier.OneSignalConfig {
	return notifier.OneSignalConfig{
		AppID:             c.OneSignal.AppID,
		APIKey:            c.OneSignal.APIKey,
		Endpoint:          c.OneSignal.Endpoint,
		Timeout:           c.OneSignal.Timeout,
		RequestsPerSecond: c.OneSignal.RequestsPerSecond,
		Burst:             c.OneSignal.Burst,
	}
}

// RenderOptions maps the rendering switches.
func (c *NotifyConfig) RenderOptions() notify.RenderOptions {
	return notify.RenderOptions{PresenceOnlyArgs: c.PresenceOnlyArgs}
}
