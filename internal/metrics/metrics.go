// Package metrics pushes per-run figures to a Prometheus Pushgateway.
// Report runs are short-lived processes, so there is no server to scrape.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Config holds Pushgateway settings. Disabled by default.
type Config struct {
	Enabled    bool
	GatewayURL string
	Job        string
}

// Observation is the metric set for one finished run, successful or not.
type Observation struct {
	Period   string
	Mode     string
	Success  bool
	Duration time.Duration
	Records  int
	Buckets  int
	Defects  int
}

// Recorder pushes run observations. A nil or disabled Recorder is a no-op,
// so callers never need to guard their calls.
type Recorder struct {
	cfg Config
}

func NewRecorder(cfg Config) *Recorder {
	if cfg.Job == "" {
		cfg.Job = "thawk-report"
	}
	return &Recorder{cfg: cfg}
}

func (r *Recorder) IsEnabled() bool {
	return r != nil && r.cfg.Enabled && r.cfg.GatewayURL != ""
}

// ObserveRun pushes the observation grouped by period and mode.
func (r *Recorder) ObserveRun(obs Observation) error {
	if !r.IsEnabled() {
		return nil
	}

	duration := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "telhawk_reporting_run_duration_seconds",
		Help: "Duration of the report run in seconds",
	})
	records := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "telhawk_reporting_run_records",
		Help: "Number of records counted into buckets",
	})
	buckets := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "telhawk_reporting_run_buckets",
		Help: "Number of non-empty interval buckets",
	})
	defects := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "telhawk_reporting_run_defects",
		Help: "Number of records skipped during aggregation",
	})
	success := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "telhawk_reporting_run_success",
		Help: "Whether the run completed (1) or failed (0)",
	})

	duration.Set(obs.Duration.Seconds())
	records.Set(float64(obs.Records))
	buckets.Set(float64(obs.Buckets))
	defects.Set(float64(obs.Defects))
	if obs.Success {
		success.Set(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(duration, records, buckets, defects, success)

	err := push.New(r.cfg.GatewayURL, r.cfg.Job).
		Gatherer(registry).
		Grouping("period", obs.Period).
		Grouping("mode", obs.Mode).
		Push()
	if err != nil {
		return fmt.Errorf("failed to push run metrics: %w", err)
	}
	return nil
}
