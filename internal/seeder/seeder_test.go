package seeder

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/telhawk-reporting/internal/aggregate"
	"github.com/telhawk-systems/telhawk-reporting/internal/models"
	"github.com/telhawk-systems/telhawk-reporting/internal/source"
)

func testPeriod(t *testing.T) models.Period {
	t.Helper()
	p, err := models.ParsePeriod("2024-03")
	require.NoError(t, err)
	return p
}

func TestRunProducesParseableRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.csv")
	period := testPeriod(t)

	runner := NewRunner(Config{Path: path, Period: period, Count: 200, Defects: 3, Seed: 42}, nil)
	require.NoError(t, runner.Run())

	src := source.NewCSVSource(path)
	records, err := src.Fetch(context.Background(), source.Window{})
	require.NoError(t, err)
	require.Len(t, records, 203)

	res, err := aggregate.Aggregate(records, 0)
	require.NoError(t, err)

	// Every parseable record lands inside the period and in some bucket.
	assert.Equal(t, 200, res.Counted)
	assert.Len(t, res.Defects, 3)
	for _, rec := range records {
		if rec.Timestamp.IsZero() {
			continue
		}
		assert.True(t, period.Contains(rec.Timestamp), "record %v outside period", rec.Timestamp)
	}

	counted := 0
	for _, m := range res.Metrics {
		counted += m.Count
	}
	assert.Equal(t, res.Counted, counted)
}

func TestRunIsReproducibleWithFixedSeed(t *testing.T) {
	dir := t.TempDir()
	period := testPeriod(t)

	first := filepath.Join(dir, "a.csv")
	second := filepath.Join(dir, "b.csv")

	require.NoError(t, NewRunner(Config{Path: first, Period: period, Count: 50, Seed: 7}, nil).Run())
	require.NoError(t, NewRunner(Config{Path: second, Period: period, Count: 50, Seed: 7}, nil).Run())

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRunCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "seed.csv")

	runner := NewRunner(Config{Path: path, Period: testPeriod(t), Count: 10, Seed: 1}, nil)
	require.NoError(t, runner.Run())

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestNewRunnerDefaultCount(t *testing.T) {
	runner := NewRunner(Config{Path: "x.csv", Period: testPeriod(t)}, nil)
	assert.Equal(t, defaultCount, runner.cfg.Count)
}
