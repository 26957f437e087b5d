// Package config provides fail-open loaders for environment configuration.
//
// A loader never returns an error. When a variable is unset the default is
// used silently; when it is set but cannot be parsed or fails validation the
// default is used and a warning is attached to the Result so the caller can
// log it and record a fallback metric.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Result is the outcome of loading one configuration value.
type Result[T any] struct {
	Key             string
	Value           T
	Warnings        []string
	FallbackApplied bool
}

// Parser converts the raw environment string into a typed value.
type Parser[T any] func(string) (T, error)

// Validator checks a parsed value. A nil Validator accepts everything.
type Validator[T any] func(T) error

// Load reads envKey, parses it and validates it, falling back to
// defaultValue on any failure.
func Load[T any](envKey string, defaultValue T, parse Parser[T], validate Validator[T]) Result[T] {
	raw := strings.TrimSpace(os.Getenv(envKey))
	if raw == "" {
		return Result[T]{Key: envKey, Value: defaultValue}
	}

	value, err := parse(raw)
	if err == nil && validate != nil {
		err = validate(value)
	}
	if err != nil {
		return Result[T]{
			Key:   envKey,
			Value: defaultValue,
			Warnings: []string{fmt.Sprintf(
				"Invalid %s='%s': %v, falling back to default '%v'",
				envKey, raw, err, defaultValue,
			)},
			FallbackApplied: true,
		}
	}
	return Result[T]{Key: envKey, Value: value}
}

// LoadString returns the variable or the default. No validation.
func LoadString(envKey, defaultValue string) string {
	return Load(envKey, defaultValue, parseString, nil).Value
}

// LoadStringWith validates a string variable.
func LoadStringWith(envKey, defaultValue string, validate Validator[string]) Result[string] {
	return Load(envKey, defaultValue, parseString, validate)
}

func LoadInt(envKey string, defaultValue int, validate Validator[int]) Result[int] {
	return Load(envKey, defaultValue, parseInt, validate)
}

func LoadFloat(envKey string, defaultValue float64, validate Validator[float64]) Result[float64] {
	return Load(envKey, defaultValue, parseFloat, validate)
}

func LoadDuration(envKey string, defaultValue time.Duration, validate Validator[time.Duration]) Result[time.Duration] {
	return Load(envKey, defaultValue, time.ParseDuration, validate)
}

func LoadBool(envKey string, defaultValue bool) Result[bool] {
	return Load(envKey, defaultValue, strconv.ParseBool, nil)
}

func parseString(s string) (string, error) { return s, nil }

func parseInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid integer format")
	}
	return n, nil
}

func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number format")
	}
	return f, nil
}
