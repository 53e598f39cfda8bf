package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by stages and the orchestrator.
var (
	ErrPreconditionMissing     = errors.New("precondition missing")
	ErrRateLimited             = errors.New("rate limited")
	ErrExtractionFailed        = errors.New("extraction failed")
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")
	ErrConfigurationMissing    = errors.New("configuration missing")
	ErrNotFound                = errors.New("not found")
)

// PreconditionError reports a required upstream artifact that is absent
// both in memory and on disk.
type PreconditionError struct {
	Stage    Stage
	Artifact string
	Hint     string
}

func (e *PreconditionError) Error() string {
	msg := fmt.Sprintf("stage %d: no %s found", int(e.Stage), e.Artifact)
	if e.Hint != "" {
		msg += ", " + e.Hint
	}
	return msg
}

func (e *PreconditionError) Is(target error) bool {
	return target == ErrPreconditionMissing
}

// MissingArtifact builds a PreconditionError pointing at the producing stage.
func MissingArtifact(stage Stage, artifact string, producer Stage) *PreconditionError {
	return &PreconditionError{
		Stage:    stage,
		Artifact: artifact,
		Hint:     fmt.Sprintf("run step %d (%s) first", int(producer), producer.Name()),
	}
}

// ConfigError names a missing or placeholder setting.
type ConfigError struct {
	Setting string
	Hint    string
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("%s not set", e.Setting)
	if e.Hint != "" {
		msg += ": " + e.Hint
	}
	return msg
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrConfigurationMissing
}

// ExtractionError reports that no structured record could be recovered.
// DebugPath points at the raw response dump when one was written.
type ExtractionError struct {
	Reason    string
	DebugPath string
}

func (e *ExtractionError) Error() string {
	msg := "could not extract valid JSON from model response"
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.DebugPath != "" {
		msg += fmt.Sprintf(" (raw response saved to %s)", e.DebugPath)
	}
	return msg
}

func (e *ExtractionError) Is(target error) bool {
	return target == ErrExtractionFailed
}

// CollaboratorError wraps a failure of an external integration.
type CollaboratorError struct {
	Collaborator string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

func (e *CollaboratorError) Is(target error) bool {
	return target == ErrCollaboratorUnavailable
}

// Unavailable wraps err as a CollaboratorError.
func Unavailable(collaborator string, err error) error {
	return &CollaboratorError{Collaborator: collaborator, Err: err}
}

// RateLimitError marks a throttled generation call for a specific model.
type RateLimitError struct {
	Model string
	Err   error
}

func (e *RateLimitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("model %s rate limited", e.Model)
	}
	return fmt.Sprintf("model %s rate limited: %v", e.Model, e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}
