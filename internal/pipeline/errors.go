package pipeline

import "fmt"

// Stage names the part of the pipeline that failed.
type Stage string

const (
	StageIngestion Stage = "ingestion"
	StageConfig    Stage = "config"
	StageEngine    Stage = "engine"
)

// StageError attaches the failing stage to an error.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Wrap marks err as raised by stage. A nil err stays nil.
func Wrap(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}
