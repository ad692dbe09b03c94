package config

import (
	"context"
	"strconv"
)

// ConfigValue represents a configuration value that can be set by the client
// or reported by the driver.
// This implements the config overlay pattern: client > driver > default
//
// Example usage:
//
//	cfg.MaxColumnNameLength = NewConfigValue(64)   // client override
//	cfg.MaxColumnNameLength = ConfigValue[int]{}   // ask the driver
//
//	n := cfg.MaxColumnNameLength.Resolve(ctx, driverResolver, 128)
type ConfigValue[T any] struct {
	// value is the client-set configuration value
	// nil = not set by client (ask the driver)
	// non-nil = explicitly set by client (overrides the driver)
	value *T
}

// NewConfigValue creates a ConfigValue with a client-set value.
func NewConfigValue[T any](value T) ConfigValue[T] {
	return ConfigValue[T]{value: &value}
}

// IsSet returns true if the client explicitly set this configuration value.
func (cv ConfigValue[T]) IsSet() bool {
	return cv.value != nil
}

// Get returns the client-set value and whether it was set.
// If not set, returns zero value and false.
func (cv ConfigValue[T]) Get() (T, bool) {
	if cv.value != nil {
		return *cv.value, true
	}
	var zero T
	return zero, false
}

// DriverResolver fetches a configuration value from the driver, typically
// with SQLGetInfo on an open connection.
type DriverResolver[T any] interface {
	Resolve(ctx context.Context) (T, error)
}

// DriverResolverFunc adapts a function to DriverResolver.
type DriverResolverFunc[T any] func(ctx context.Context) (T, error)

func (f DriverResolverFunc[T]) Resolve(ctx context.Context) (T, error) {
	return f(ctx)
}

// Resolve applies config overlay priority to determine the final value:
//
//	Priority 1: Client Config - if explicitly set (overrides the driver)
//	Priority 2: Driver Config - resolved via resolver (when client doesn't set)
//	Priority 3: Default Value - used when the driver can't tell or errors
func (cv ConfigValue[T]) Resolve(
	ctx context.Context,
	resolver DriverResolver[T],
	defaultValue T,
) T {
	if cv.value != nil {
		return *cv.value
	}

	if resolver != nil {
		if driverValue, err := resolver.Resolve(ctx); err == nil {
			return driverValue
		}
	}

	return defaultValue
}

// ParseIntConfigValue parses a string value into a ConfigValue[int].
// Returns unset ConfigValue if the parameter is not present or invalid.
func ParseIntConfigValue(params map[string]string, key string) ConfigValue[int] {
	if v, ok := params[key]; ok {
		if i, err := strconv.Atoi(v); err == nil {
			return NewConfigValue(i)
		}
	}
	return ConfigValue[int]{} // Unset
}
