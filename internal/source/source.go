// Package source provides the record sources the pipeline can read raw
// events from: flat CSV files, a PostgreSQL table, or an OpenSearch index.
package source

import (
	"context"
	"time"

	"github.com/telhawk-systems/telhawk-reporting/internal/models"
)

// Window is the reporting window handed to a source as a fetch hint. Sources
// may use it to limit what they pull; the dispatcher still applies the
// authoritative period filter to whatever comes back.
type Window struct {
	From time.Time
	To   time.Time
}

// RecordSource fetches raw records for a reporting window. Records may come
// back in any order; the pipeline is order-insensitive.
type RecordSource interface {
	Fetch(ctx context.Context, window Window) ([]models.RawRecord, error)
	Name() string
}
