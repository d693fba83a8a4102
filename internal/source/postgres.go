package source

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/telhawk-systems/telhawk-reporting/internal/models"
)

// PostgresSource reads raw records from an externally managed events table.
// The table (or a view over it) must expose occurred_at, category, agent,
// and value columns; this tool never owns or migrates that schema.
type PostgresSource struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresSource connects to the database and verifies the connection.
func NewPostgresSource(ctx context.Context, connString, table string) (*PostgresSource, error) {
	if !validTableName(table) {
		return nil, fmt.Errorf("invalid records table name: %q", table)
	}

	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresSource{pool: pool, table: table}, nil
}

func (s *PostgresSource) Name() string {
	return "postgres:" + s.table
}

// Fetch pulls the window's records. NULL timestamps come back as zero-time
// records so the aggregator reports them as defects.
func (s *PostgresSource) Fetch(ctx context.Context, window Window) ([]models.RawRecord, error) {
	query := fmt.Sprintf(`
		SELECT occurred_at, category, agent, value
		FROM %s
		WHERE occurred_at >= $1 AND occurred_at < $2
		ORDER BY occurred_at
	`, s.table)

	rows, err := s.pool.Query(ctx, query, window.From, window.To)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []models.RawRecord
	for rows.Next() {
		var (
			occurredAt *time.Time
			category   *string
			agent      *string
			value      *float64
		)
		if err := rows.Scan(&occurredAt, &category, &agent, &value); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		rec := models.RawRecord{
			Value: value,
			Ref:   fmt.Sprintf("row %d", len(records)+1),
		}
		if occurredAt != nil {
			rec.Timestamp = *occurredAt
		}
		if category != nil {
			rec.Category = *category
		}
		if agent != nil {
			rec.Agent = *agent
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	return records, nil
}

// Close releases the connection pool.
func (s *PostgresSource) Close() {
	s.pool.Close()
}

// validTableName accepts plain or schema-qualified identifiers only; the
// table name is interpolated into the query text.
func validTableName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9', r == '.':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
