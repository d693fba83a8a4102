// Package messaging publishes report run events to NATS so downstream
// services can react to finished runs without polling the archive.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// SubjectRunsCompleted carries one event per successfully dispatched run.
const SubjectRunsCompleted = "reporting.runs.completed"

// Config holds NATS connection settings.
type Config struct {
	URL           string
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Name:          "thawk-report",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// RunCompletedEvent announces a finished report run.
type RunCompletedEvent struct {
	RunID       string    `json:"run_id"`
	Period      string    `json:"period"`
	Mode        string    `json:"mode"`
	Artifact    string    `json:"artifact"`
	Records     int       `json:"records"`
	Buckets     int       `json:"buckets"`
	Defects     int       `json:"defects,omitempty"`
	Recipients  int       `json:"recipients"`
	CompletedAt time.Time `json:"completed_at"`
}

// Publisher publishes reporting events to NATS.
type Publisher struct {
	conn *nats.Conn
}

// NewPublisher connects to NATS with the given configuration.
func NewPublisher(cfg Config) (*Publisher, error) {
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Publisher{conn: conn}, nil
}

// PublishRunCompleted publishes a run completed event.
func (p *Publisher) PublishRunCompleted(ctx context.Context, event *RunCompletedEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal run event: %w", err)
	}

	return p.conn.Publish(SubjectRunsCompleted, data)
}

// IsConnected returns true if connected to NATS.
func (p *Publisher) IsConnected() bool {
	return p.conn != nil && p.conn.IsConnected()
}

// Close releases the connection.
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
