package qc

import "fmt"

// UnknownTestError is returned for a test identifier with no schema.
type UnknownTestError struct {
	TestID string
}

func (e *UnknownTestError) Error() string {
	return fmt.Sprintf("unknown test selected: %q", e.TestID)
}

// MissingParameterError is returned when a form field is absent, blank or not a number.
type MissingParameterError struct {
	Field string
	Value string
}

func (e *MissingParameterError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("missing parameter %q", e.Field)
	}
	return fmt.Sprintf("parameter %q is not a number: %q", e.Field, e.Value)
}

// InvalidConfigError is returned when a configuration document does not match the schema
// of the test it is used for.
type InvalidConfigError struct {
	TestID string
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid configuration for %s: %s", e.TestID, e.Reason)
}

// EngineError wraps any failure raised while running the QC engine, including columns that
// cannot be found and timestamps that cannot be parsed.
type EngineError struct {
	Err error
}

func (e *EngineError) Error() string {
	return "qc engine: " + e.Err.Error()
}

func (e *EngineError) Unwrap() error {
	return e.Err
}
