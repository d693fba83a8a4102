// Package dispatch drives a report run end to end: collect records,
// aggregate them into interval buckets, build the artifact, place it in the
// archive, resolve recipients, and hand the notification to a mailer.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/telhawk-systems/telhawk-reporting/internal/aggregate"
	"github.com/telhawk-systems/telhawk-reporting/internal/logging"
	"github.com/telhawk-systems/telhawk-reporting/internal/mail"
	"github.com/telhawk-systems/telhawk-reporting/internal/messaging"
	"github.com/telhawk-systems/telhawk-reporting/internal/metrics"
	"github.com/telhawk-systems/telhawk-reporting/internal/models"
	"github.com/telhawk-systems/telhawk-reporting/internal/recipients"
	"github.com/telhawk-systems/telhawk-reporting/internal/report"
	"github.com/telhawk-systems/telhawk-reporting/internal/runlock"
	"github.com/telhawk-systems/telhawk-reporting/internal/source"
	"github.com/telhawk-systems/telhawk-reporting/internal/storage"
)

// Mode selects how the notification leaves the pipeline.
type Mode string

const (
	ModePreview Mode = "preview"
	ModeSend    Mode = "send"
)

// ParseMode maps a flag value to a delivery mode. There is no default; the
// caller always picks one explicitly.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModePreview:
		return ModePreview, nil
	case ModeSend:
		return ModeSend, nil
	default:
		return "", fmt.Errorf("unknown mode %q (expected preview or send)", s)
	}
}

// RunRequest identifies one report run.
type RunRequest struct {
	BasePath  string
	PeriodKey string
	Mode      Mode
}

// RunResult summarizes a completed run.
type RunResult struct {
	RunID      string
	Period     string
	Mode       string
	Source     string
	Records    int
	Buckets    int
	Defects    int
	Artifact   models.StoredArtifactLocation
	Recipients models.RecipientGroup
	Duration   time.Duration
}

// Deps wires a Dispatcher. Source and Recipients are required, as is one
// mailer per mode the caller intends to run. Events and Metrics are optional
// and skipped when absent.
type Deps struct {
	Source     source.RecordSource
	Definition *report.Definition
	Builder    *report.Builder
	Storage    *storage.Resolver
	Recipients recipients.Source
	Locker     runlock.Locker
	Preview    mail.Mailer
	Sender     mail.Mailer
	SlotWidth  time.Duration
	Events     *messaging.Publisher
	Metrics    *metrics.Recorder
	Logger     *logging.Logger
}

// Dispatcher runs the report pipeline with a fixed set of collaborators.
type Dispatcher struct {
	source     source.RecordSource
	definition *report.Definition
	builder    *report.Builder
	storage    *storage.Resolver
	recipients recipients.Source
	locker     runlock.Locker
	preview    mail.Mailer
	sender     mail.Mailer
	slotWidth  time.Duration
	events     *messaging.Publisher
	metrics    *metrics.Recorder
	logger     *logging.Logger
}

// New validates the wiring and creates a Dispatcher.
func New(deps Deps) (*Dispatcher, error) {
	if deps.Source == nil {
		return nil, errors.New("record source is required")
	}
	if deps.Recipients.Path == "" {
		return nil, errors.New("recipient source is required")
	}
	if deps.Preview == nil && deps.Sender == nil {
		return nil, errors.New("at least one mailer is required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	if deps.Definition == nil {
		deps.Definition = report.DefaultDefinition()
	}
	if deps.Builder == nil {
		deps.Builder = report.NewBuilder(deps.Logger)
	}
	if deps.Storage == nil {
		deps.Storage = storage.NewResolver(deps.Logger)
	}
	if deps.Locker == nil {
		deps.Locker = runlock.NewLocalLocker()
	}

	return &Dispatcher{
		source:     deps.Source,
		definition: deps.Definition,
		builder:    deps.Builder,
		storage:    deps.Storage,
		recipients: deps.Recipients,
		locker:     deps.Locker,
		preview:    deps.Preview,
		sender:     deps.Sender,
		slotWidth:  deps.SlotWidth,
		events:     deps.Events,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}, nil
}

// Run executes one report run. Any stage failure aborts the run before the
// mail handoff; a failure after placement leaves the stored artifact in
// place, so the run can simply be repeated.
func (d *Dispatcher) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	started := time.Now()

	runUUID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate run id: %w", err)
	}
	runID := runUUID.String()
	ctx = logging.WithRunID(ctx, runID)

	res, runErr := d.run(ctx, req, runID)
	elapsed := time.Since(started)
	if res != nil {
		res.Duration = elapsed
	}

	obs := metrics.Observation{
		Period:   req.PeriodKey,
		Mode:     string(req.Mode),
		Success:  runErr == nil,
		Duration: elapsed,
	}
	if res != nil {
		obs.Records = res.Records
		obs.Buckets = res.Buckets
		obs.Defects = res.Defects
	}
	if err := d.metrics.ObserveRun(obs); err != nil {
		d.logger.WarnContext(ctx, "failed to push run metrics",
			logging.Component("dispatch"), logging.Error(err))
	}

	if runErr != nil {
		d.logger.ErrorContext(ctx, "report run failed",
			logging.Component("dispatch"),
			logging.Period(req.PeriodKey),
			logging.Mode(string(req.Mode)),
			logging.Error(runErr))
		return nil, runErr
	}

	d.logger.InfoContext(ctx, "report run completed",
		logging.Component("dispatch"),
		logging.Period(res.Period),
		logging.Mode(res.Mode),
		logging.Artifact(res.Artifact.FileName),
		logging.Records(res.Records),
		logging.Buckets(res.Buckets),
		logging.Defects(res.Defects),
		logging.Recipients(res.Recipients.Total()),
		logging.Duration(elapsed.Milliseconds()))

	d.announce(ctx, res)
	return res, nil
}

func (d *Dispatcher) run(ctx context.Context, req RunRequest, runID string) (*RunResult, error) {
	period, err := models.ParsePeriod(req.PeriodKey)
	if err != nil {
		return nil, fmt.Errorf("invalid period %q: %w", req.PeriodKey, err)
	}

	// Resolve the mailer first so a misconfigured mode fails before any work.
	mailer, err := d.mailerFor(req.Mode)
	if err != nil {
		return nil, err
	}

	d.logger.InfoContext(ctx, "report run started",
		logging.Component("dispatch"),
		logging.Period(period.Key()),
		logging.Mode(string(req.Mode)),
		logging.Source(d.source.Name()))

	records, err := d.collect(ctx, period)
	if err != nil {
		return nil, err
	}

	agg, err := aggregate.Aggregate(records, d.slotWidth)
	if err != nil {
		return nil, fmt.Errorf("aggregation failed: %w", err)
	}
	for _, defect := range agg.Defects {
		d.logger.WarnContext(ctx, "record skipped during aggregation",
			logging.Component("aggregate"),
			slog.String("ref", defect.Ref),
			slog.String("reason", defect.Reason))
	}

	artifact, err := d.builder.Build(d.definition, report.BuildInput{
		Period:      period,
		Rows:        agg.Rows(),
		RecordCount: agg.Counted,
		DefectCount: len(agg.Defects),
	})
	if err != nil {
		return nil, err
	}

	location, err := d.storage.Resolve(req.BasePath, period.Key(), artifact.FileName)
	if err != nil {
		return nil, err
	}

	if err := d.place(ctx, artifact, location); err != nil {
		return nil, err
	}

	group, err := recipients.Resolve(d.recipients)
	if err != nil {
		return nil, err
	}

	msg := mail.Message{
		To:         group.To,
		CC:         group.CC,
		BCC:        group.BCC,
		Subject:    artifact.Name,
		Body:       d.definition.Body(period.Key()),
		Attachment: location.FullPath,
	}
	if err := mailer.Deliver(ctx, msg); err != nil {
		return nil, &models.DispatchError{Mode: string(req.Mode), Err: err}
	}

	return &RunResult{
		RunID:      runID,
		Period:     period.Key(),
		Mode:       string(req.Mode),
		Source:     d.source.Name(),
		Records:    agg.Counted,
		Buckets:    len(agg.Metrics),
		Defects:    len(agg.Defects),
		Artifact:   location,
		Recipients: group,
	}, nil
}

// collect fetches the period window from the source and drops records that
// fall outside the period. Records with no usable timestamp stay in so the
// aggregation can report them as defects.
func (d *Dispatcher) collect(ctx context.Context, period models.Period) ([]models.RawRecord, error) {
	window := source.Window{From: period.Start(), To: period.End()}
	fetched, err := d.source.Fetch(ctx, window)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch records from %s: %w", d.source.Name(), err)
	}

	records := make([]models.RawRecord, 0, len(fetched))
	dropped := 0
	for _, rec := range fetched {
		if rec.Timestamp.IsZero() || period.Contains(rec.Timestamp) {
			records = append(records, rec)
			continue
		}
		dropped++
	}
	if dropped > 0 {
		d.logger.DebugContext(ctx, "records outside period dropped",
			logging.Component("dispatch"),
			logging.Period(period.Key()),
			logging.Records(dropped))
	}
	return records, nil
}

// place writes the artifact while holding the run lock for its resolved
// path, so two runs cannot interleave the delete and the write.
func (d *Dispatcher) place(ctx context.Context, artifact *models.ReportArtifact, loc models.StoredArtifactLocation) error {
	lock, err := d.locker.Acquire(ctx, loc.FullPath)
	if err != nil {
		return fmt.Errorf("failed to lock artifact path: %w", err)
	}

	placeErr := d.storage.Place(artifact, loc)

	if err := lock.Release(ctx); err != nil {
		d.logger.WarnContext(ctx, "failed to release run lock",
			logging.Component("dispatch"),
			logging.Path(loc.FullPath),
			logging.Error(err))
	}
	return placeErr
}

func (d *Dispatcher) mailerFor(mode Mode) (mail.Mailer, error) {
	switch mode {
	case ModePreview:
		if d.preview == nil {
			return nil, fmt.Errorf("mode %q is not configured", mode)
		}
		return d.preview, nil
	case ModeSend:
		if d.sender == nil {
			return nil, fmt.Errorf("mode %q is not configured", mode)
		}
		return d.sender, nil
	default:
		return nil, fmt.Errorf("unknown mode %q (expected preview or send)", mode)
	}
}

// announce publishes the run completed event when messaging is wired.
func (d *Dispatcher) announce(ctx context.Context, res *RunResult) {
	if d.events == nil {
		return
	}

	event := &messaging.RunCompletedEvent{
		RunID:       res.RunID,
		Period:      res.Period,
		Mode:        res.Mode,
		Artifact:    res.Artifact.FullPath,
		Records:     res.Records,
		Buckets:     res.Buckets,
		Defects:     res.Defects,
		Recipients:  res.Recipients.Total(),
		CompletedAt: time.Now(),
	}
	if err := d.events.PublishRunCompleted(ctx, event); err != nil {
		d.logger.WarnContext(ctx, "failed to publish run event",
			logging.Component("dispatch"), logging.Error(err))
	}
}
