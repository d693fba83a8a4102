package cmd

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/telhawk-systems/telhawk-reporting/internal/config"
	"github.com/telhawk-systems/telhawk-reporting/internal/dispatch"
	"github.com/telhawk-systems/telhawk-reporting/internal/mail"
	"github.com/telhawk-systems/telhawk-reporting/internal/messaging"
	"github.com/telhawk-systems/telhawk-reporting/internal/metrics"
	"github.com/telhawk-systems/telhawk-reporting/internal/recipients"
	"github.com/telhawk-systems/telhawk-reporting/internal/report"
	"github.com/telhawk-systems/telhawk-reporting/internal/runlock"
	"github.com/telhawk-systems/telhawk-reporting/internal/source"
	"github.com/telhawk-systems/telhawk-reporting/internal/storage"
)

// buildDispatcher assembles the run pipeline from the loaded configuration.
// The returned cleanup closes every connection the build opened; it is safe
// to call even when an error is returned.
func buildDispatcher(ctx context.Context) (*dispatch.Dispatcher, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	src, closeSrc, err := buildSource(ctx, cfg)
	if err != nil {
		return nil, cleanup, err
	}
	if closeSrc != nil {
		closers = append(closers, closeSrc)
	}

	definition, err := report.LoadDefinition(cfg.Report.Definition)
	if err != nil {
		return nil, cleanup, err
	}

	preview, err := mail.NewPreviewMailer(cfg.Mail.Sender, logger)
	if err != nil {
		return nil, cleanup, err
	}

	// The SMTP mailer only exists when a host is configured; without it the
	// dispatcher rejects send mode at run time.
	var sender mail.Mailer
	if cfg.Mail.Host != "" {
		sender, err = mail.NewSMTPMailer(mail.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			Sender:   cfg.Mail.Sender,
		}, logger)
		if err != nil {
			return nil, cleanup, err
		}
	}

	var locker runlock.Locker = runlock.NewLocalLocker()
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, cleanup, fmt.Errorf("failed to connect to redis: %w", err)
		}
		closers = append(closers, func() { client.Close() })
		locker = runlock.NewRedisLocker(client, cfg.Redis.LockTTL)
	}

	var events *messaging.Publisher
	if cfg.NATS.Enabled {
		natsCfg := messaging.DefaultConfig()
		if cfg.NATS.URL != "" {
			natsCfg.URL = cfg.NATS.URL
		}
		events, err = messaging.NewPublisher(natsCfg)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, events.Close)
	}

	d, err := dispatch.New(dispatch.Deps{
		Source:     src,
		Definition: definition,
		Builder:    report.NewBuilder(logger),
		Storage:    storage.NewResolver(logger),
		Recipients: recipients.Source{Path: cfg.Recipients.Path},
		Locker:     locker,
		Preview:    preview,
		Sender:     sender,
		SlotWidth:  cfg.Report.SlotWidth,
		Events:     events,
		Metrics: metrics.NewRecorder(metrics.Config{
			Enabled:    cfg.Metrics.Enabled,
			GatewayURL: cfg.Metrics.GatewayURL,
			Job:        cfg.Metrics.Job,
		}),
		Logger: logger,
	})
	if err != nil {
		return nil, cleanup, err
	}

	return d, cleanup, nil
}

// buildSource picks the record source named by the configuration.
func buildSource(ctx context.Context, cfg *config.Config) (source.RecordSource, func(), error) {
	switch cfg.Source.Kind {
	case config.SourceCSV:
		return source.NewCSVSource(cfg.Source.CSV.Path), nil, nil
	case config.SourcePostgres:
		pg, err := source.NewPostgresSource(ctx, cfg.Source.Postgres.DSN, cfg.Source.Postgres.Table)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	case config.SourceOpenSearch:
		osrc, err := source.NewOpenSearchSource(source.OpenSearchConfig{
			URL:      cfg.Source.OpenSearch.URL,
			Username: cfg.Source.OpenSearch.Username,
			Password: cfg.Source.OpenSearch.Password,
			Index:    cfg.Source.OpenSearch.Index,
			Insecure: cfg.Source.OpenSearch.Insecure,
		})
		if err != nil {
			return nil, nil, err
		}
		return osrc, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown source kind: %q", cfg.Source.Kind)
	}
}
