package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/robfig/cron/v3"
)

// standardCron accepts the five-field crontab form.
var standardCron = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateCronSchedule checks a five-field cron expression or a descriptor
// such as "@every 5m".
func ValidateCronSchedule(schedule string) error {
	if schedule == "" {
		return fmt.Errorf("invalid cron schedule: cannot be empty")
	}
	if _, err := standardCron.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", schedule, err)
	}
	return nil
}

func ValidateTimezone(timezone string) error {
	if timezone == "" {
		return fmt.Errorf("invalid timezone: cannot be empty")
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return fmt.Errorf("invalid timezone '%s': %w", timezone, err)
	}
	return nil
}

// DurationBetween returns a validator accepting [min, max].
func DurationBetween(min, max time.Duration) Validator[time.Duration] {
	return func(d time.Duration) error {
		if d < min {
			return fmt.Errorf("duration %v is below minimum %v", d, min)
		}
		if d > max {
			return fmt.Errorf("duration %v exceeds maximum %v", d, max)
		}
		return nil
	}
}

// IntBetween returns a validator accepting [min, max].
func IntBetween(min, max int) Validator[int] {
	return func(v int) error {
		if v < min {
			return fmt.Errorf("value %d is below minimum %d", v, min)
		}
		if v > max {
			return fmt.Errorf("value %d exceeds maximum %d", v, max)
		}
		return nil
	}
}

// FloatBetween returns a validator accepting [min, max].
func FloatBetween(min, max float64) Validator[float64] {
	return func(v float64) error {
		if v < min {
			return fmt.Errorf("value %v is below minimum %v", v, min)
		}
		if v > max {
			return fmt.Errorf("value %v exceeds maximum %v", v, max)
		}
		return nil
	}
}

func ValidatePositiveDuration(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %v", d)
	}
	return nil
}

func ValidatePositiveFloat(f float64) error {
	if f <= 0 {
		return fmt.Errorf("value must be positive, got %v", f)
	}
	return nil
}

// ValidateHTTPURL requires an absolute http or https URL.
func ValidateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid url scheme %q: must be http or https", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid url: missing host")
	}
	return nil
}
