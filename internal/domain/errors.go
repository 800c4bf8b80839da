package domain

import "fmt"

// Stage identifies the pipeline stage an error originated from. Errors are
// propagated to the CLI boundary carrying their stage so the failing step is
// named in the final message.
type Stage string

const (
	StageConfig Stage = "config"
	StageLoad   Stage = "load"
	StageChunk  Stage = "chunk"
	StageEmbed  Stage = "embed"
	StageUpsert Stage = "upsert"
	StageQuery  Stage = "query"
	StageStore  Stage = "store"
)

// StageError wraps an underlying cause with the pipeline stage it came from.
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

// StageErrorf builds a StageError from a format string.
func StageErrorf(stage Stage, format string, args ...any) error {
	return &StageError{Stage: stage, Err: fmt.Errorf(format, args...)}
}

// WrapStage tags err with the given stage. Returns nil for a nil err; an err
// that already carries a stage is passed through unchanged.
func WrapStage(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*StageError); ok {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}
