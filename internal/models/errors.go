package models

import (
	"errors"
	"fmt"
)

// ErrNoRecipients is returned when the recipient source resolves to an empty
// TO column; the mail collaborator must never see an addressless message.
var ErrNoRecipients = errors.New("recipient source yielded no TO addresses")

// AggregationDefect records one record skipped during aggregation. Defects
// are warnings: they are collected and summarized, never abort the run.
type AggregationDefect struct {
	Ref    string `json:"ref"`
	Reason string `json:"reason"`
}

func (d AggregationDefect) Error() string {
	if d.Ref == "" {
		return fmt.Sprintf("record skipped: %s", d.Reason)
	}
	return fmt.Sprintf("record %s skipped: %s", d.Ref, d.Reason)
}

// BuildError reports a missing or corrupt presentation template. Fatal; the
// run aborts before anything reaches storage.
type BuildError struct {
	Template string
	Err      error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("report build failed (template %s): %v", e.Template, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// StorageErrorKind classifies storage failures.
type StorageErrorKind string

const (
	StorageErrPermission StorageErrorKind = "permission"
	StorageErrIO         StorageErrorKind = "io"
	StorageErrPath       StorageErrorKind = "path"
)

// StorageError reports a failed resolve or placement. Fatal; the run aborts
// before dispatch and leaves no partial file behind.
type StorageError struct {
	Kind StorageErrorKind
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s error at %s: %v", e.Kind, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// RecipientResolutionError reports an unreachable recipient source or an
// empty TO column. Fatal; the mail collaborator is never contacted.
type RecipientResolutionError struct {
	Source string
	Err    error
}

func (e *RecipientResolutionError) Error() string {
	return fmt.Sprintf("recipient resolution failed (%s): %v", e.Source, e.Err)
}

func (e *RecipientResolutionError) Unwrap() error { return e.Err }

// DispatchError reports a mail collaborator failure. The artifact is already
// correctly stored when this is raised, so the run is retry-safe.
type DispatchError struct {
	Mode string
	Err  error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch (%s) failed: %v", e.Mode, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// CLI exit codes, one per failure class.
const (
	ExitOK         = 0
	ExitConfig     = 1
	ExitBuild      = 2
	ExitStorage    = 3
	ExitRecipients = 4
	ExitDispatch   = 5
)

// ExitCode maps an error to the exit code of its failure class. Unclassified
// errors (config, source, lock) map to ExitConfig.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var (
		buildErr     *BuildError
		storageErr   *StorageError
		recipientErr *RecipientResolutionError
		dispatchErr  *DispatchError
	)
	switch {
	case errors.As(err, &buildErr):
		return ExitBuild
	case errors.As(err, &storageErr):
		return ExitStorage
	case errors.As(err, &recipientErr):
		return ExitRecipients
	case errors.As(err, &dispatchErr):
		return ExitDispatch
	default:
		return ExitConfig
	}
}
