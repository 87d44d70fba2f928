// Package events publishes draft change notifications to a Redis stream. The
// notifications are informational; consoles never refetch because of them.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonesrussell/north-cloud/draft-review/internal/logger"
	"github.com/redis/go-redis/v9"
)

// DefaultStream is the stream name used when none is configured.
const DefaultStream = "drafts:changed"

const asyncPublishTimeout = 5 * time.Second

// Type identifies what happened to the drafts.
type Type string

// Event types.
const (
	DraftCreated     Type = "draft.created"
	DraftApproved    Type = "draft.approved"
	DraftRejected    Type = "draft.rejected"
	DraftEdited      Type = "draft.edited"
	DraftRegenerated Type = "draft.regenerated"
	DraftDeleted     Type = "draft.deleted"
	DraftsBulkReview Type = "drafts.bulk_reviewed"
	DraftsBulkDelete Type = "drafts.bulk_deleted"
)

// DraftEvent describes a change to one or more drafts.
type DraftEvent struct {
	EventID   uuid.UUID `json:"event_id"`
	Type      Type      `json:"type"`
	DraftIDs  []string  `json:"draft_ids"`
	Actor     string    `json:"actor,omitempty"`
	Count     int       `json:"count,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher writes events with XADD. A nil *Publisher is a no-op.
type Publisher struct {
	client *redis.Client
	stream string
	log    logger.Logger
}

// NewPublisher returns nil when client is nil.
func NewPublisher(client *redis.Client, stream string, log logger.Logger) *Publisher {
	if client == nil {
		return nil
	}
	if stream == "" {
		stream = DefaultStream
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Publisher{client: client, stream: stream, log: log}
}

// Publish appends event to the stream.
func (p *Publisher) Publish(ctx context.Context, event DraftEvent) error {
	if p == nil || p.client == nil {
		return nil
	}

	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	result := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{"event": string(payload)},
	})
	if publishErr := result.Err(); publishErr != nil {
		p.log.Error("Failed to publish draft event",
			logger.String("event_type", string(event.Type)),
			logger.Error(publishErr),
		)
		return fmt.Errorf("publish to stream: %w", publishErr)
	}

	p.log.Debug("Published draft event",
		logger.String("event_type", string(event.Type)),
		logger.Int("drafts", len(event.DraftIDs)),
		logger.String("stream_id", result.Val()),
	)
	return nil
}

// PublishAsync publishes in the background. Errors are logged only.
func (p *Publisher) PublishAsync(event DraftEvent) {
	if p == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), asyncPublishTimeout)
		defer cancel()
		_ = p.Publish(ctx, event)
	}()
}

// Decode parses a stream entry written by Publish.
func Decode(msg redis.XMessage) (DraftEvent, error) {
	raw, ok := msg.Values["event"].(string)
	if !ok {
		return DraftEvent{}, fmt.Errorf("stream entry %s has no event field", msg.ID)
	}

	var event DraftEvent
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return DraftEvent{}, fmt.Errorf("decode event %s: %w", msg.ID, err)
	}
	return event, nil
}
