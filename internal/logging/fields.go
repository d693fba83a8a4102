package logging

import "log/slog"

// Common field names for consistent logging across the pipeline.
const (
	FieldComponent  = "component"
	FieldRunID      = "run_id"
	FieldPeriod     = "period"
	FieldMode       = "mode"
	FieldArtifact   = "artifact"
	FieldPath       = "path"
	FieldSource     = "source"
	FieldRecords    = "records"
	FieldBuckets    = "buckets"
	FieldDefects    = "defects"
	FieldRecipients = "recipients"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
)

// Component returns a slog attribute for the pipeline component name.
func Component(name string) slog.Attr {
	return slog.String(FieldComponent, name)
}

// RunID returns a slog attribute for the run ID.
func RunID(id string) slog.Attr {
	return slog.String(FieldRunID, id)
}

// Period returns a slog attribute for the reporting period key.
func Period(key string) slog.Attr {
	return slog.String(FieldPeriod, key)
}

// Mode returns a slog attribute for the dispatch mode.
func Mode(mode string) slog.Attr {
	return slog.String(FieldMode, mode)
}

// Artifact returns a slog attribute for the artifact's logical name.
func Artifact(name string) slog.Attr {
	return slog.String(FieldArtifact, name)
}

// Path returns a slog attribute for a file or folder path.
func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

// Source returns a slog attribute for a record or recipient source.
func Source(src string) slog.Attr {
	return slog.String(FieldSource, src)
}

// Records returns a slog attribute for a record count.
func Records(n int) slog.Attr {
	return slog.Int(FieldRecords, n)
}

// Buckets returns a slog attribute for a bucket count.
func Buckets(n int) slog.Attr {
	return slog.Int(FieldBuckets, n)
}

// Defects returns a slog attribute for an aggregation defect count.
func Defects(n int) slog.Attr {
	return slog.Int(FieldDefects, n)
}

// Recipients returns a slog attribute for a resolved recipient count.
func Recipients(n int) slog.Attr {
	return slog.Int(FieldRecipients, n)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}
