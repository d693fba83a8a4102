package models

import "time"

// DefaultSlotWidth is the bucket width used when no width is configured.
const DefaultSlotWidth = 30 * time.Minute

// RawRecord is a single timestamped event row handed over by a record source.
// Records are immutable and append-only within a reporting period.
type RawRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Category  string    `json:"category,omitempty"`
	Agent     string    `json:"agent,omitempty"`
	Value     *float64  `json:"value,omitempty"`

	// Ref is the record's position in its source (CSV line, table row id,
	// document id), carried only for defect reporting.
	Ref string `json:"-"`
}

// IntervalBucket identifies one fixed-width slot of a single day. Identity is
// (Date, SlotStart); both are local wall-clock strings taken from the record's
// own timestamp, so identity never depends on time.Time internals or zone
// conversion.
type IntervalBucket struct {
	Date      string `json:"date"`       // 2006-01-02
	SlotStart string `json:"slot_start"` // 15:04
	SlotWidth int    `json:"slot_width_minutes"`
}

// Key returns the bucket identity as a single sortable string.
func (b IntervalBucket) Key() string {
	return b.Date + " " + b.SlotStart
}

// IntervalMetric holds the aggregates computed for one bucket in one run.
// Metrics are recomputed fully on every run; no state carries between runs.
type IntervalMetric struct {
	Bucket     IntervalBucket `json:"bucket"`
	Count      int            `json:"count"`
	ValueSum   float64        `json:"value_sum,omitempty"`
	ValueCount int            `json:"value_count,omitempty"`
	Categories map[string]int `json:"categories,omitempty"`
}

// ValueAverage returns the mean of the numeric dimension, or 0 when no record
// in the bucket carried one.
func (m *IntervalMetric) ValueAverage() float64 {
	if m.ValueCount == 0 {
		return 0
	}
	return m.ValueSum / float64(m.ValueCount)
}
