// Package report builds the presentational artifact for a run: the cover
// section plus the interval table, rendered through an external template.
package report

import (
	"bytes"
	"html/template"
	"path/filepath"
	"sort"
	"time"

	"github.com/telhawk-systems/telhawk-reporting/internal/logging"
	"github.com/telhawk-systems/telhawk-reporting/internal/models"
)

// BuildInput carries everything the builder may render: the aggregated rows
// and run-level summary figures. Raw records are unrepresentable here, which
// keeps per-record data out of every artifact.
type BuildInput struct {
	Period      models.Period
	Rows        []models.IntervalMetric
	RecordCount int
	DefectCount int
	GeneratedAt time.Time
}

// templateContext is the full surface visible to a presentation template.
type templateContext struct {
	Cover models.CoverSection
	Rows  []models.IntervalMetric
}

// Builder assembles report artifacts from aggregated data and a definition's
// presentation template.
type Builder struct {
	logger *logging.Logger
}

// NewBuilder creates a new Builder.
func NewBuilder(logger *logging.Logger) *Builder {
	if logger == nil {
		logger = logging.Default()
	}
	return &Builder{logger: logger}
}

// Build renders the artifact for one run. The interval table is ordered by
// date then slot start regardless of input order. A missing or corrupt
// template fails fast with a BuildError; nothing partial is produced.
func (b *Builder) Build(def *Definition, in BuildInput) (*models.ReportArtifact, error) {
	rows := make([]models.IntervalMetric, len(in.Rows))
	copy(rows, in.Rows)
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Bucket.Key() < rows[j].Bucket.Key()
	})

	generatedAt := in.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}

	cover := models.CoverSection{
		Title:       def.Title,
		Period:      in.Period.Key(),
		GeneratedAt: generatedAt,
		RecordCount: in.RecordCount,
		BucketCount: len(rows),
		DefectCount: in.DefectCount,
	}

	tmpl, err := template.ParseFiles(def.Template)
	if err != nil {
		return nil, &models.BuildError{Template: def.Template, Err: err}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, templateContext{Cover: cover, Rows: rows}); err != nil {
		return nil, &models.BuildError{Template: def.Template, Err: err}
	}

	fileName := models.RenderFileName(def.FileName, def.Name, in.Period.Key())
	name := fileName[:len(fileName)-len(filepath.Ext(fileName))]

	b.logger.Debug("artifact built",
		logging.Artifact(name),
		logging.Period(in.Period.Key()),
		logging.Buckets(len(rows)),
	)

	return &models.ReportArtifact{
		Name:        name,
		FileName:    fileName,
		Cover:       cover,
		Rows:        rows,
		GeneratedAt: generatedAt,
		Content:     buf.Bytes(),
	}, nil
}
