// Package qc describes QARTOD tests: their parameter schema, the configuration document the
// engine consumes, and the flag codes it produces.
package qc

import "strconv"

// Flag is the outcome of one test for one observation.
type Flag int8

const (
	FlagPass    Flag = 1
	FlagNotRun  Flag = 2
	FlagSuspect Flag = 3
	FlagFail    Flag = 4
)

// Flags lists every code in display order.
var Flags = []Flag{FlagPass, FlagSuspect, FlagFail, FlagNotRun}

func (f Flag) String() string {
	switch f {
	case FlagPass:
		return "pass"
	case FlagNotRun:
		return "not_run"
	case FlagSuspect:
		return "suspect"
	case FlagFail:
		return "fail"
	}
	return "flag(" + strconv.Itoa(int(f)) + ")"
}

// Label is the human-readable name used in legends and summaries.
func (f Flag) Label() string {
	switch f {
	case FlagPass:
		return "Pass"
	case FlagNotRun:
		return "Not Run"
	case FlagSuspect:
		return "Suspect"
	case FlagFail:
		return "Fail"
	}
	return f.String()
}

// Valid reports whether f is one of the four known codes.
func (f Flag) Valid() bool {
	return f >= FlagPass && f <= FlagFail
}
