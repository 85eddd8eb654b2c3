/*
Copyright 2026 Zagent Authors
SPDX-License-Identifier: Apache-2.0
*/

// Package params extracts typed parameters from tool call argument maps.
// Failures are returned both as errors and as response maps so tool handlers
// can hand them straight back to the model.
package params

import (
	"fmt"
	"maps"
)

// Extract extracts a required parameter from args with type safety.
func Extract[T any](args map[string]any, name string) (T, error) {
	var zero T

	value, exists := args[name]
	if !exists {
		return zero, fmt.Errorf("%s parameter is required", name)
	}

	if v, ok := value.(T); ok {
		return v, nil
	}

	if v, ok := convertNumeric[T](value); ok {
		return v, nil
	}

	return zero, fmt.Errorf("%s parameter must be of type %T, got %T", name, zero, value)
}

// ExtractOptional extracts an optional parameter, falling back to defaultValue
// when the parameter is absent.
func ExtractOptional[T any](args map[string]any, name string, defaultValue T) (T, error) {
	value, exists := args[name]
	if !exists {
		return defaultValue, nil
	}

	if v, ok := value.(T); ok {
		return v, nil
	}

	if v, ok := convertNumeric[T](value); ok {
		return v, nil
	}

	var zero T
	return zero, fmt.Errorf("%s parameter must be of type %T, got %T", name, zero, value)
}

// convertNumeric handles JSON's float64 arriving where an integer type is wanted.
func convertNumeric[T any](value any) (T, bool) {
	var zero T

	f, ok := value.(float64)
	if !ok {
		return zero, false
	}

	switch any(zero).(type) {
	case int:
		return any(int(f)).(T), true
	case int32:
		return any(int32(f)).(T), true
	case int64:
		return any(int64(f)).(T), true
	case float32:
		return any(float32(f)).(T), true
	}
	return zero, false
}

// Error creates an error response map for a tool call.
func Error(format string, args ...any) map[string]any {
	return map[string]any{
		"error": fmt.Sprintf(format, args...),
	}
}

// ErrorWithContext creates an error response with additional context fields.
func ErrorWithContext(err error, context map[string]any) map[string]any {
	response := map[string]any{
		"error": err.Error(),
	}
	maps.Copy(response, context)
	return response
}
