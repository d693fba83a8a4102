// Package seeder generates a synthetic activity CSV for one period so a
// report run can be exercised without a live record source.
package seeder

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/telhawk-systems/telhawk-reporting/internal/logging"
	"github.com/telhawk-systems/telhawk-reporting/internal/models"
)

const (
	defaultCount    = 500
	timestampLayout = "2006-01-02 15:04:05"
)

var categories = []string{"login", "logout", "upload", "download", "search", "export"}

// Config controls one seeding run.
type Config struct {
	Path    string
	Period  models.Period
	Count   int
	Defects int // rows written with an unparseable timestamp
	Seed    int64
}

// Runner writes the seed file.
type Runner struct {
	cfg    Config
	logger *logging.Logger
}

func NewRunner(cfg Config, logger *logging.Logger) *Runner {
	if cfg.Count <= 0 {
		cfg.Count = defaultCount
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Runner{cfg: cfg, logger: logger}
}

// Run generates the record rows and writes the CSV. A fixed Seed makes the
// output reproducible.
func (r *Runner) Run() error {
	seed := r.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gofakeit.Seed(seed)
	rng := rand.New(rand.NewSource(seed))

	if dir := filepath.Dir(r.cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create seed directory: %w", err)
		}
	}

	f, err := os.Create(r.cfg.Path)
	if err != nil {
		return fmt.Errorf("failed to create seed file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"timestamp", "category", "agent", "value"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	start := r.cfg.Period.Start()
	window := r.cfg.Period.End().Sub(start)

	for i := 0; i < r.cfg.Count; i++ {
		row := []string{
			recordTime(rng, start, window, i, r.cfg.Count).Format(timestampLayout),
			categories[rng.Intn(len(categories))],
			gofakeit.Username(),
			"",
		}
		// Roughly half the records carry a measured value.
		if rng.Intn(2) == 0 {
			row[3] = fmt.Sprintf("%.2f", gofakeit.Float64Range(0.5, 120))
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	for i := 0; i < r.cfg.Defects; i++ {
		row := []string{gofakeit.Word(), categories[rng.Intn(len(categories))], gofakeit.Username(), ""}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write defect record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush seed file: %w", err)
	}

	r.logger.Info("seed file written",
		logging.Component("seeder"),
		logging.Path(r.cfg.Path),
		logging.Period(r.cfg.Period.Key()),
		logging.Records(r.cfg.Count),
		logging.Defects(r.cfg.Defects))
	return nil
}

// recordTime spreads records across the period with a jittered distribution,
// the jitter being up to ±40% of the base interval between records.
func recordTime(rng *rand.Rand, start time.Time, window time.Duration, index, total int) time.Time {
	baseInterval := float64(window) / float64(total)
	baseOffset := time.Duration(float64(index) * baseInterval)

	jitterRange := baseInterval * 0.4
	jitter := time.Duration((rng.Float64()*2.0 - 1.0) * jitterRange)

	offset := baseOffset + jitter
	if offset < 0 {
		offset = 0
	}
	if offset >= window {
		offset = window - time.Second
	}

	return start.Add(offset)
}
