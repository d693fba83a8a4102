// Package aggregate buckets raw timestamped records into fixed-width
// interval slots and computes the per-slot metrics for a report run.
package aggregate

import (
	"fmt"
	"sort"
	"time"

	"github.com/telhawk-systems/telhawk-reporting/internal/models"
)

// Result is the complete output of one aggregation pass.
type Result struct {
	Width   time.Duration
	Metrics map[models.IntervalBucket]*models.IntervalMetric
	Defects []models.AggregationDefect

	// Counted is the number of records that landed in a bucket.
	Counted int
}

// Aggregate buckets records into fixed-width slots keyed by each record's own
// local date and wall-clock slot start; no timezone conversion is applied.
// The result is identical for any permutation of the input. Records without a
// usable timestamp are skipped and reported as defects, never as a failure.
// An empty input yields an empty result.
func Aggregate(records []models.RawRecord, width time.Duration) (*Result, error) {
	w, err := slotWidthMinutes(width)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Width:   time.Duration(w) * time.Minute,
		Metrics: make(map[models.IntervalBucket]*models.IntervalMetric),
	}

	for _, rec := range records {
		if rec.Timestamp.IsZero() {
			res.Defects = append(res.Defects, models.AggregationDefect{
				Ref:    rec.Ref,
				Reason: "missing or invalid timestamp",
			})
			continue
		}

		b := bucketFor(rec.Timestamp, w)
		m, ok := res.Metrics[b]
		if !ok {
			m = &models.IntervalMetric{Bucket: b}
			res.Metrics[b] = m
		}

		m.Count++
		if rec.Value != nil {
			m.ValueSum += *rec.Value
			m.ValueCount++
		}
		if rec.Category != "" {
			if m.Categories == nil {
				m.Categories = make(map[string]int)
			}
			m.Categories[rec.Category]++
		}
		res.Counted++
	}

	return res, nil
}

// Rows returns the metrics ordered by date then slot start ascending.
func (r *Result) Rows() []models.IntervalMetric {
	rows := make([]models.IntervalMetric, 0, len(r.Metrics))
	for _, m := range r.Metrics {
		rows = append(rows, *m)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Bucket.Key() < rows[j].Bucket.Key()
	})
	return rows
}

// bucketFor floors the record's wall-clock minute of day into its slot.
// A record exactly on a slot boundary belongs to the slot it opens.
func bucketFor(ts time.Time, widthMinutes int) models.IntervalBucket {
	minuteOfDay := ts.Hour()*60 + ts.Minute()
	slot := (minuteOfDay / widthMinutes) * widthMinutes
	return models.IntervalBucket{
		Date:      ts.Format("2006-01-02"),
		SlotStart: fmt.Sprintf("%02d:%02d", slot/60, slot%60),
		SlotWidth: widthMinutes,
	}
}

// slotWidthMinutes validates the configured width before any record is
// touched. Zero means the default width.
func slotWidthMinutes(width time.Duration) (int, error) {
	if width == 0 {
		width = models.DefaultSlotWidth
	}
	if width < time.Minute || width%time.Minute != 0 {
		return 0, fmt.Errorf("slot width %s: must be a whole number of minutes", width)
	}
	w := int(width / time.Minute)
	if (24*60)%w != 0 {
		return 0, fmt.Errorf("slot width %s: must divide evenly into 24h", width)
	}
	return w, nil
}
