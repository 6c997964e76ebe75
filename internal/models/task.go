package models

import (
	"fmt"
	"strings"
	"time"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusPaused     TaskStatus = "paused"
	TaskStatusCompleted  TaskStatus = "completed"
)

// TaskStatuses lists every status in display order
var TaskStatuses = []TaskStatus{
	TaskStatusTodo,
	TaskStatusInProgress,
	TaskStatusPaused,
	TaskStatusCompleted,
}

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusPaused, TaskStatusCompleted:
		return true
	}
	return false
}

// ParseTaskStatus accepts exactly one of the four status literals
func ParseTaskStatus(raw string) (TaskStatus, error) {
	s := TaskStatus(raw)
	if !s.Valid() {
		return "", NewValidationError("status", fmt.Sprintf("must be one of: %s", joinStatuses()))
	}
	return s, nil
}

// strictTransitions is the status graph the clients offer to users
var strictTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusTodo:       {TaskStatusInProgress, TaskStatusPaused, TaskStatusCompleted},
	TaskStatusInProgress: {TaskStatusPaused, TaskStatusCompleted},
	TaskStatusPaused:     {TaskStatusInProgress, TaskStatusCompleted},
	TaskStatusCompleted:  {TaskStatusTodo, TaskStatusInProgress},
}

// CanTransitionTo reports whether next is reachable from s in the strict graph.
// Re-applying the current status is always allowed.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range strictTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

func ParseTaskPriority(raw string) (TaskPriority, error) {
	p := TaskPriority(raw)
	if !p.Valid() {
		return "", NewValidationError("priority", "must be one of: low, medium, high")
	}
	return p, nil
}

type Task struct {
	ID           string
	Title        string
	Description  *string
	Status       TaskStatus
	Priority     TaskPriority
	DueDate      *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CreatedByID  string
	AssignedToID *string
}

// IsOverdueAt reports whether the task has a due date in the past and is not completed
func (t *Task) IsOverdueAt(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && t.Status != TaskStatusCompleted
}

// TaskChanges is a partial edit. Nil fields are left unchanged; the Clear flags
// reset nullable columns.
type TaskChanges struct {
	Title            *string
	Description      *string
	ClearDescription bool
	Status           *TaskStatus
	Priority         *TaskPriority
	DueDate          *time.Time
	ClearDueDate     bool
	AssignedToID     *string
	ClearAssignee    bool
}

// TaskView is a task annotated for display
type TaskView struct {
	Task
	IsOverdue bool
}

// NewTaskView computes display fields at read time
func NewTaskView(t *Task, now time.Time) TaskView {
	return TaskView{Task: *t, IsOverdue: t.IsOverdueAt(now)}
}

// TodayWindow returns [00:00 UTC today, 00:00 UTC tomorrow)
func TodayWindow(now time.Time) (time.Time, time.Time) {
	u := now.UTC()
	start := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}

var dueDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDueDate parses a client-supplied due date. Dates without a zone are read as UTC.
func ParseDueDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, NewValidationError("dueDate", "must be an ISO 8601 date or timestamp")
}

func joinStatuses() string {
	names := make([]string, len(TaskStatuses))
	for i, s := range TaskStatuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
