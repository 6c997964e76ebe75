package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/littlespace/internal/auth"
	"github.com/BradenHooton/littlespace/internal/events"
	"github.com/BradenHooton/littlespace/internal/models"
	"github.com/google/uuid"
)

// Task mutation labels reported to metrics
const (
	OperationCreate       = "create"
	OperationEdit         = "edit"
	OperationDelete       = "delete"
	OperationUpdateStatus = "update_status"
)

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) (*models.Task, error)
	GetByID(ctx context.Context, id string) (*models.Task, error)
	Update(ctx context.Context, id string, changes *models.TaskChanges, updatedAt time.Time) (*models.Task, error)
	UpdateStatus(ctx context.Context, id string, status models.TaskStatus, updatedAt time.Time) (*models.Task, error)
	Delete(ctx context.Context, id string) (*models.Task, error)
	ListRelevant(ctx context.Context, dayStart, dayEnd time.Time) ([]*models.Task, error)
}

// MetadataRepository writes keys into a user's metadata map
type MetadataRepository interface {
	SetMetadataString(ctx context.Context, id, key, value string) (models.Metadata, error)
}

// TaskMetrics records task activity
type TaskMetrics interface {
	RecordTaskMutation(operation string)
	RecordStatusTransition(from, to string)
	RecordEventPublishFailure()
}

// CreateTaskInput carries the fields of a new task. Nil optional fields take defaults.
type CreateTaskInput struct {
	Title        string
	Description  *string
	Status       *string
	Priority     *string
	DueDate      *string
	AssignedToID *string
}

// EditTaskInput carries a partial edit. Nil fields are unchanged; an empty
// description, due date or assignee clears the column.
type EditTaskInput struct {
	Title        *string
	Description  *string
	Status       *string
	Priority     *string
	DueDate      *string
	AssignedToID *string
}

// TaskService handles the task lifecycle. Every operation checks the actor's
// role before validating input or touching storage.
type TaskService struct {
	tasks             TaskRepository
	users             MetadataRepository
	publisher         events.Publisher
	metrics           TaskMetrics
	audit             AccessAuditor
	strictTransitions bool
	now               func() time.Time
	logger            *slog.Logger
}

// AccessAuditor records role denials
type AccessAuditor interface {
	LogAccessDenied(ctx context.Context, userID, role, operation string)
}

// TaskServiceOptions holds optional collaborators. Nil values disable them.
type TaskServiceOptions struct {
	Publisher         events.Publisher
	Metrics           TaskMetrics
	Audit             AccessAuditor
	StrictTransitions bool
}

// NewTaskService creates a new TaskService
func NewTaskService(tasks TaskRepository, users MetadataRepository, opts TaskServiceOptions, logger *slog.Logger) *TaskService {
	publisher := opts.Publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &TaskService{
		tasks:             tasks,
		users:             users,
		publisher:         publisher,
		metrics:           opts.Metrics,
		audit:             opts.Audit,
		strictTransitions: opts.StrictTransitions,
		now:               time.Now,
		logger:            logger,
	}
}

// SetClock overrides the time source
func (s *TaskService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateTask creates a task owned by actor. Admin only.
func (s *TaskService) CreateTask(ctx context.Context, actor *models.User, input CreateTaskInput) (*models.Task, error) {
	if err := s.authorize(ctx, actor, auth.AdminOnly, OperationCreate); err != nil {
		return nil, err
	}

	task, err := s.buildTask(actor, input)
	if err != nil {
		return nil, err
	}

	created, err := s.tasks.Create(ctx, task)
	if err != nil {
		return nil, s.storageError("failed to create task", err)
	}

	s.logger.Info("task created", slog.String("task_id", created.ID), slog.String("user_id", actor.ID))
	s.recordMutation(OperationCreate)
	s.publish(ctx, events.NewTaskEvent(events.TaskCreated, created, actor, s.now()))

	return created, nil
}

func (s *TaskService) buildTask(actor *models.User, input CreateTaskInput) (*models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, models.NewValidationError("title", "is required")
	}

	status := models.TaskStatusTodo
	if input.Status != nil {
		parsed, err := models.ParseTaskStatus(*input.Status)
		if err != nil {
			return nil, err
		}
		status = parsed
	}

	priority := models.TaskPriorityMedium
	if input.Priority != nil {
		parsed, err := models.ParseTaskPriority(*input.Priority)
		if err != nil {
			return nil, err
		}
		priority = parsed
	}

	var dueDate *time.Time
	if input.DueDate != nil && *input.DueDate != "" {
		parsed, err := models.ParseDueDate(*input.DueDate)
		if err != nil {
			return nil, err
		}
		dueDate = &parsed
	}

	var assignee *string
	if input.AssignedToID != nil && *input.AssignedToID != "" {
		if err := uuid.Validate(*input.AssignedToID); err != nil {
			return nil, models.NewValidationError("assignedToId", "must be a valid user id")
		}
		assignee = input.AssignedToID
	}

	now := s.now().UTC()
	return &models.Task{
		Title:        title,
		Description:  input.Description,
		Status:       status,
		Priority:     priority,
		DueDate:      dueDate,
		CreatedAt:    now,
		UpdatedAt:    now,
		CreatedByID:  actor.ID,
		AssignedToID: assignee,
	}, nil
}

// EditTask applies a partial edit. Admin only.
func (s *TaskService) EditTask(ctx context.Context, actor *models.User, taskID string, input EditTaskInput) (*models.Task, error) {
	if err := s.authorize(ctx, actor, auth.AdminOnly, OperationEdit); err != nil {
		return nil, err
	}
	changes, err := buildChanges(input)
	if err != nil {
		return nil, err
	}
	if !validID(taskID) {
		return nil, models.ErrNotFound
	}

	var previous *models.TaskStatus
	if changes.Status != nil {
		current, err := s.checkTransition(ctx, taskID, *changes.Status)
		if err != nil {
			return nil, err
		}
		previous = current
	}

	updated, err := s.tasks.Update(ctx, taskID, changes, s.now().UTC())
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, s.storageError("failed to update task", err)
	}

	s.logger.Info("task updated", slog.String("task_id", taskID), slog.String("user_id", actor.ID))
	s.recordMutation(OperationEdit)

	event := events.NewTaskEvent(events.TaskUpdated, updated, actor, s.now())
	if previous != nil && *previous != updated.Status {
		s.recordTransition(*previous, updated.Status)
		event.PreviousStatus = previous
	}
	s.publish(ctx, event)

	return updated, nil
}

func buildChanges(input EditTaskInput) (*models.TaskChanges, error) {
	changes := &models.TaskChanges{}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, models.NewValidationError("title", "cannot be empty")
		}
		changes.Title = &title
	}

	if input.Description != nil {
		if *input.Description == "" {
			changes.ClearDescription = true
		} else {
			changes.Description = input.Description
		}
	}

	if input.Status != nil {
		status, err := models.ParseTaskStatus(*input.Status)
		if err != nil {
			return nil, err
		}
		changes.Status = &status
	}

	if input.Priority != nil {
		priority, err := models.ParseTaskPriority(*input.Priority)
		if err != nil {
			return nil, err
		}
		changes.Priority = &priority
	}

	if input.DueDate != nil {
		if *input.DueDate == "" {
			changes.ClearDueDate = true
		} else {
			due, err := models.ParseDueDate(*input.DueDate)
			if err != nil {
				return nil, err
			}
			changes.DueDate = &due
		}
	}

	if input.AssignedToID != nil {
		if *input.AssignedToID == "" {
			changes.ClearAssignee = true
		} else {
			if err := uuid.Validate(*input.AssignedToID); err != nil {
				return nil, models.NewValidationError("assignedToId", "must be a valid user id")
			}
			changes.AssignedToID = input.AssignedToID
		}
	}

	return changes, nil
}

// DeleteTask removes a task. Admin only. A missing task yields (nil, nil).
func (s *TaskService) DeleteTask(ctx context.Context, actor *models.User, taskID string) (*models.Task, error) {
	if err := s.authorize(ctx, actor, auth.AdminOnly, OperationDelete); err != nil {
		return nil, err
	}
	if !validID(taskID) {
		return nil, nil
	}

	deleted, err := s.tasks.Delete(ctx, taskID)
	if err != nil {
		return nil, s.storageError("failed to delete task", err)
	}
	if deleted == nil {
		s.logger.Info("task already absent", slog.String("task_id", taskID))
		return nil, nil
	}

	s.logger.Info("task deleted", slog.String("task_id", taskID), slog.String("user_id", actor.ID))
	s.recordMutation(OperationDelete)
	s.publish(ctx, events.NewTaskEvent(events.TaskDeleted, deleted, actor, s.now()))

	return deleted, nil
}

// UpdateStatus sets a task's status. Open to admin and restricted users.
func (s *TaskService) UpdateStatus(ctx context.Context, actor *models.User, taskID string, rawStatus string) (*models.Task, error) {
	if err := s.authorize(ctx, actor, auth.TaskViewers, OperationUpdateStatus); err != nil {
		return nil, err
	}

	status, err := models.ParseTaskStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	if taskID == "" {
		return nil, models.NewValidationError("taskId", "is required")
	}
	if !validID(taskID) {
		return nil, models.ErrNotFound
	}

	previous, err := s.checkTransition(ctx, taskID, status)
	if err != nil {
		return nil, err
	}

	updated, err := s.tasks.UpdateStatus(ctx, taskID, status, s.now().UTC())
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, s.storageError("failed to update task status", err)
	}

	s.logger.Info("task status updated",
		slog.String("task_id", taskID),
		slog.String("status", string(status)),
		slog.String("user_id", actor.ID),
	)
	s.recordMutation(OperationUpdateStatus)

	event := events.NewTaskEvent(events.TaskStatusChanged, updated, actor, s.now())
	if previous != nil {
		s.recordTransition(*previous, status)
		event.PreviousStatus = previous
	}
	s.publish(ctx, event)

	return updated, nil
}

// checkTransition enforces the transition table when strict transitions are
// enabled and returns the current status. It returns (nil, nil) otherwise.
func (s *TaskService) checkTransition(ctx context.Context, taskID string, next models.TaskStatus) (*models.TaskStatus, error) {
	if !s.strictTransitions {
		return nil, nil
	}

	current, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, s.storageError("failed to load task", err)
	}

	if !current.Status.CanTransitionTo(next) {
		return nil, models.NewValidationError("status",
			"cannot change from "+string(current.Status)+" to "+string(next))
	}

	return &current.Status, nil
}

// GetTask returns a single task. Open to admin and restricted users.
func (s *TaskService) GetTask(ctx context.Context, actor *models.User, taskID string) (*models.TaskView, error) {
	if err := s.authorize(ctx, actor, auth.TaskViewers, "get_task"); err != nil {
		return nil, err
	}
	if !validID(taskID) {
		return nil, models.ErrNotFound
	}

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, s.storageError("failed to get task", err)
	}

	view := models.NewTaskView(task, s.now())
	return &view, nil
}

// ListRelevantTasks returns today's relevant tasks annotated with overdue state
func (s *TaskService) ListRelevantTasks(ctx context.Context, actor *models.User) ([]models.TaskView, error) {
	if err := s.authorize(ctx, actor, auth.TaskViewers, "list_tasks"); err != nil {
		return nil, err
	}

	now := s.now()
	dayStart, dayEnd := models.TodayWindow(now)

	tasks, err := s.tasks.ListRelevant(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, s.storageError("failed to list tasks", err)
	}

	views := make([]models.TaskView, 0, len(tasks))
	for _, task := range tasks {
		views = append(views, models.NewTaskView(task, now))
	}
	return views, nil
}

// RecordLastSeen stores when the actor last viewed the task list. A nil
// timestamp records the current time; a client timestamp is stored as sent.
func (s *TaskService) RecordLastSeen(ctx context.Context, actor *models.User, timestamp *string) (string, error) {
	if err := s.authorize(ctx, actor, auth.TaskViewers, "record_last_seen"); err != nil {
		return "", err
	}

	value := s.now().UTC().Format(time.RFC3339Nano)
	if timestamp != nil && *timestamp != "" {
		if _, err := time.Parse(time.RFC3339Nano, *timestamp); err != nil {
			return "", models.NewValidationError("timestamp", "must be an RFC 3339 timestamp")
		}
		value = *timestamp
	}

	metadata, err := s.users.SetMetadataString(ctx, actor.ID, models.MetadataLastSeenTasks, value)
	if err != nil {
		return "", s.storageError("failed to record last seen", err)
	}
	actor.Metadata = metadata

	return value, nil
}

// GetLastSeen returns the actor's stored last-seen timestamp, or nil
func (s *TaskService) GetLastSeen(ctx context.Context, actor *models.User) (*string, error) {
	if err := s.authorize(ctx, actor, auth.TaskViewers, "get_last_seen"); err != nil {
		return nil, err
	}
	return actor.Metadata.LastSeenTasks(), nil
}

func (s *TaskService) authorize(ctx context.Context, actor *models.User, allowed auth.RoleSet, operation string) error {
	if _, err := auth.Authorize(actor, allowed); err != nil {
		if errors.Is(err, models.ErrForbidden) && s.audit != nil {
			s.audit.LogAccessDenied(ctx, actor.ID, string(actor.Role), operation)
		}
		return err
	}
	return nil
}

// storageError logs err and returns it classified as a storage failure
func (s *TaskService) storageError(msg string, err error) error {
	s.logger.Error(msg, slog.Any("error", err))
	if errors.Is(err, models.ErrStorageUnavailable) || errors.Is(err, models.ErrValidation) || errors.Is(err, models.ErrConflict) {
		return err
	}
	return fmt.Errorf("%w: %w", models.ErrStorageUnavailable, err)
}

func (s *TaskService) publish(ctx context.Context, event events.TaskEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish task event",
			slog.String("event_type", event.Type),
			slog.String("task_id", event.TaskID),
			slog.Any("error", err),
		)
		if s.metrics != nil {
			s.metrics.RecordEventPublishFailure()
		}
	}
}

func (s *TaskService) recordMutation(operation string) {
	if s.metrics != nil {
		s.metrics.RecordTaskMutation(operation)
	}
}

func (s *TaskService) recordTransition(from, to models.TaskStatus) {
	if s.metrics != nil {
		s.metrics.RecordStatusTransition(string(from), string(to))
	}
}

// validID rejects ids that cannot exist so they never reach a uuid column
func validID(id string) bool {
	return len(id) == 36 && uuid.Validate(id) == nil
}
