package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/littlespace/internal/models"
)

// Task event types
const (
	TaskCreated       = "task.created"
	TaskUpdated       = "task.updated"
	TaskStatusChanged = "task.status_changed"
	TaskDeleted       = "task.deleted"
)

// TaskEvent is the payload consumed by the external notifier
type TaskEvent struct {
	Type           string             `json:"type"`
	TaskID         string             `json:"task_id"`
	Title          string             `json:"title"`
	Status         models.TaskStatus  `json:"status"`
	PreviousStatus *models.TaskStatus `json:"previous_status,omitempty"`
	AssignedToID   *string            `json:"assigned_to_id,omitempty"`
	ActorID        string             `json:"actor_id"`
	ActorRole      models.Role        `json:"actor_role"`
	OccurredAt     time.Time          `json:"occurred_at"`
}

// NewTaskEvent builds an event for task performed by actor
func NewTaskEvent(eventType string, task *models.Task, actor *models.User, at time.Time) TaskEvent {
	return TaskEvent{
		Type:         eventType,
		TaskID:       task.ID,
		Title:        task.Title,
		Status:       task.Status,
		AssignedToID: task.AssignedToID,
		ActorID:      actor.ID,
		ActorRole:    actor.Role,
		OccurredAt:   at.UTC(),
	}
}

// Publisher delivers task events
type Publisher interface {
	Publish(ctx context.Context, event TaskEvent) error
}

// Backend is a broker that can publish raw payloads to a named queue
type Backend interface {
	Publish(ctx context.Context, queue string, data []byte, attrs map[string]string) (string, error)
	Close() error
}

// QueuePublisher encodes events as JSON and sends them to a single queue
type QueuePublisher struct {
	backend Backend
	queue   string
	logger  *slog.Logger
}

// NewQueuePublisher creates a QueuePublisher
func NewQueuePublisher(backend Backend, queue string, logger *slog.Logger) *QueuePublisher {
	return &QueuePublisher{
		backend: backend,
		queue:   queue,
		logger:  logger,
	}
}

// Publish sends event to the configured queue
func (p *QueuePublisher) Publish(ctx context.Context, event TaskEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode task event: %w", err)
	}

	messageID, err := p.backend.Publish(ctx, p.queue, data, map[string]string{
		"event_type": event.Type,
		"task_id":    event.TaskID,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}

	p.logger.Debug("task event published",
		slog.String("event_type", event.Type),
		slog.String("task_id", event.TaskID),
		slog.String("message_id", messageID),
	)
	return nil
}

// Close closes the underlying backend
func (p *QueuePublisher) Close() error {
	return p.backend.Close()
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event TaskEvent) error {
	return nil
}
