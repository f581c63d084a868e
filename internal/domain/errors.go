package domain

import "fmt"

// LookupError reports a reference table filter that matched no row
type LookupError struct {
	Table string
	Key   string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup: no row in %s for %s", e.Table, e.Key)
}

// UndefinedReason explains why an operating point has no speed or density
type UndefinedReason string

const (
	ReasonCapacityExceeded UndefinedReason = "capacity_exceeded"
)

// UndefinedStateError signals a valid forced-flow outcome: demand exceeds
// capacity, so the uncongested model has no operating point.
type UndefinedStateError struct {
	Reason      UndefinedReason
	Utilization float64
}

func (e *UndefinedStateError) Error() string {
	return fmt.Sprintf("traffic state undefined: %s (utilization %.2f)", e.Reason, e.Utilization)
}

// ConfigurationError reports an input the reference tables do not cover
// and that the configured policy refuses to approximate.
type ConfigurationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: unsupported %s=%v: %s", e.Field, e.Value, e.Reason)
}

// ValidationError reports a malformed input parameter
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
