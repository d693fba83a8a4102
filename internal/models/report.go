package models

import (
	"strings"
	"time"
)

// CoverSection is the presentational header of a report artifact. It carries
// run-level summary figures only, never per-record data.
type CoverSection struct {
	Title       string    `json:"title"`
	Period      string    `json:"period"`
	GeneratedAt time.Time `json:"generated_at"`
	RecordCount int       `json:"record_count"`
	BucketCount int       `json:"bucket_count"`
	DefectCount int       `json:"defect_count,omitempty"`
}

// ReportArtifact is the finished report document for one run: the cover, the
// interval table ordered by date then slot start, and the rendered content.
// An artifact is owned exclusively by the run that built it.
type ReportArtifact struct {
	Name        string           `json:"name"` // logical name, extension stripped
	FileName    string           `json:"file_name"`
	Cover       CoverSection     `json:"cover"`
	Rows        []IntervalMetric `json:"rows"`
	GeneratedAt time.Time        `json:"generated_at"`
	Content     []byte           `json:"-"`
}

// RecipientGroup holds the resolved TO/CC/BCC address lists for a dispatch.
// Built fresh each run from the external source; order within a column is
// preserved for stable logging only, and duplicates are tolerated.
type RecipientGroup struct {
	To  []string `json:"to"`
	CC  []string `json:"cc,omitempty"`
	BCC []string `json:"bcc,omitempty"`
}

// Total returns the number of addresses across all three columns.
func (g RecipientGroup) Total() int {
	return len(g.To) + len(g.CC) + len(g.BCC)
}

// StoredArtifactLocation is the resolved destination of an artifact on the
// hierarchical storage layout. Computed at dispatch time; a prior artifact at
// the same FullPath is deleted and replaced, never appended or renamed.
type StoredArtifactLocation struct {
	BasePath     string `json:"base_path"`
	PeriodFolder string `json:"period_folder"` // YYYY-MM
	FileName     string `json:"file_name"`
	FullPath     string `json:"full_path"`
}

// RenderFileName substitutes the {name} and {period} placeholders of a
// file-name template. Templates without placeholders pass through unchanged.
func RenderFileName(tmpl, name, periodKey string) string {
	return strings.NewReplacer("{name}", name, "{period}", periodKey).Replace(tmpl)
}
