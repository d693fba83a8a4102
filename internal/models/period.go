package models

import (
	"fmt"
	"time"
)

// periodLayout is the wire form of a reporting period key.
const periodLayout = "2006-01"

// Period is one reporting month.
type Period struct {
	Year  int
	Month time.Month
}

// ParsePeriod parses a "YYYY-MM" period key.
func ParsePeriod(key string) (Period, error) {
	t, err := time.Parse(periodLayout, key)
	if err != nil {
		return Period{}, fmt.Errorf("invalid period key %q (want YYYY-MM): %w", key, err)
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

// PeriodOf returns the period containing t, by t's own local date.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// Key returns the "YYYY-MM" form of the period.
func (p Period) Key() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Folder returns the storage folder name for the period.
func (p Period) Folder() string {
	return p.Key()
}

// Start returns local midnight on the first day of the period.
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.Local)
}

// End returns local midnight on the first day of the following month.
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, 0)
}

// Contains reports whether t's own local date falls inside the period. The
// check formats t in the timezone it already carries; no conversion happens,
// so a record keeps the period its source stamped it with.
func (p Period) Contains(t time.Time) bool {
	return t.Format(periodLayout) == p.Key()
}

func (p Period) String() string {
	return p.Key()
}
