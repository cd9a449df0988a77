package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/penshort/teamkeys/internal/metrics"
	"github.com/penshort/teamkeys/internal/model"
)

const (
	// StreamKey is the Redis stream for audit events.
	StreamKey = "stream:audit_events"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	// PublishTimeout is the max time to wait for Redis publish.
	PublishTimeout = 500 * time.Millisecond
)

// StreamPayload is the compact event format written to the stream.
type StreamPayload struct {
	ID        string         `json:"id"`
	Name      string         `json:"n"`
	ActorID   string         `json:"a"`
	TeamID    string         `json:"tm"`
	ModelID   string         `json:"m"`
	Data      map[string]any `json:"d,omitempty"`
	AuthType  string         `json:"at,omitempty"`
	RequestID string         `json:"rid,omitempty"`
	CreatedAt int64          `json:"t"` // Unix milliseconds
}

// PayloadFromEvent converts a stored event into its stream form.
// The client IP is not copied to the stream.
func PayloadFromEvent(e *model.Event) StreamPayload {
	return StreamPayload{
		ID:        e.ID,
		Name:      e.Name,
		ActorID:   e.ActorID,
		TeamID:    e.TeamID,
		ModelID:   e.ModelID,
		Data:      e.Data,
		AuthType:  string(e.AuthType),
		RequestID: e.RequestID,
		CreatedAt: e.CreatedAt.UnixMilli(),
	}
}

// Publisher copies committed events to a Redis stream.
type Publisher struct {
	redis   *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder
	wg      sync.WaitGroup
}

// NewPublisher creates a new audit stream publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		redis:   client,
		logger:  logger.With("component", "audit.publisher"),
		metrics: recorder,
	}
}

// Publish adds an event to the stream synchronously.
func (p *Publisher) Publish(ctx context.Context, event *model.Event) (string, error) {
	payload := PayloadFromEvent(event)
	if err := ValidatePayload(payload); err != nil {
		return "", fmt.Errorf("invalid payload: %w", err)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	result, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true, // ~MAXLEN for performance
		ID:     "*",  // Auto-generate ID
		Values: map[string]interface{}{
			"name":    payload.Name,
			"payload": string(data),
		},
	}).Result()

	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}

	return result, nil
}

// PublishAsync publishes without blocking the caller.
// Errors are logged but not returned; the Postgres row remains the record.
func (p *Publisher) PublishAsync(event *model.Event) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()

		streamID, err := p.Publish(ctx, event)
		if err != nil {
			p.logger.Warn("failed to publish audit event",
				slog.String("event_id", event.ID),
				slog.String("name", event.Name),
				slog.String("error", err.Error()),
			)
			p.metrics.IncAuditEventPublished(metrics.ResultDropped)
			return
		}

		p.logger.Debug("audit event published",
			slog.String("event_id", event.ID),
			slog.String("stream_id", streamID),
		)
		p.metrics.IncAuditEventPublished(metrics.ResultSuccess)
	}()
}

// Wait blocks until in-flight asynchronous publishes finish.
func (p *Publisher) Wait() {
	p.wg.Wait()
}
