package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BradenHooton/littlespace/internal/database"
	"github.com/BradenHooton/littlespace/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TaskRepository struct {
	pool *pgxpool.Pool
}

func NewTaskRepository(db *database.DB) *TaskRepository {
	return &TaskRepository{pool: db.Pool}
}

const taskColumns = `id, title, description, status, priority, due_date, created_at, updated_at, created_by_id, assigned_to_id`

func scanTaskRow(scanner rowScanner) (*models.Task, error) {
	var t models.Task

	err := scanner.Scan(
		&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&t.DueDate, &t.CreatedAt, &t.UpdatedAt, &t.CreatedByID, &t.AssignedToID,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &t, nil
}

func scanTaskRows(rows pgx.Rows) ([]*models.Task, error) {
	defer rows.Close()

	tasks := make([]*models.Task, 0)

	for rows.Next() {
		task, err := scanTaskRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, database.MapPostgresError(err)
	}

	return tasks, nil
}

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + taskColumns

	return scanTaskRow(r.pool.QueryRow(ctx, query,
		task.ID, task.Title, task.Description, task.Status, task.Priority,
		task.DueDate, task.CreatedAt, task.UpdatedAt, task.CreatedByID, task.AssignedToID,
	))
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	return scanTaskRow(r.pool.QueryRow(ctx, query, id))
}

// Update applies only the supplied changes and stamps updated_at
func (r *TaskRepository) Update(ctx context.Context, id string, changes *models.TaskChanges, updatedAt time.Time) (*models.Task, error) {
	sets := make([]string, 0, 8)
	args := make([]interface{}, 0, 9)

	set := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if changes.Title != nil {
		set("title", *changes.Title)
	}
	if changes.ClearDescription {
		set("description", nil)
	} else if changes.Description != nil {
		set("description", *changes.Description)
	}
	if changes.Status != nil {
		set("status", *changes.Status)
	}
	if changes.Priority != nil {
		set("priority", *changes.Priority)
	}
	if changes.ClearDueDate {
		set("due_date", nil)
	} else if changes.DueDate != nil {
		set("due_date", *changes.DueDate)
	}
	if changes.ClearAssignee {
		set("assigned_to_id", nil)
	} else if changes.AssignedToID != nil {
		set("assigned_to_id", *changes.AssignedToID)
	}
	set("updated_at", updatedAt)

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE tasks SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), taskColumns)

	return scanTaskRow(r.pool.QueryRow(ctx, query, args...))
}

// UpdateStatus sets the status and stamps updated_at in a single statement
func (r *TaskRepository) UpdateStatus(ctx context.Context, id string, status models.TaskStatus, updatedAt time.Time) (*models.Task, error) {
	query := `
		UPDATE tasks SET status = $1, updated_at = $2
		WHERE id = $3
		RETURNING ` + taskColumns

	return scanTaskRow(r.pool.QueryRow(ctx, query, status, updatedAt, id))
}

// Delete removes the task and returns it, or nil when no row matched
func (r *TaskRepository) Delete(ctx context.Context, id string) (*models.Task, error) {
	query := `DELETE FROM tasks WHERE id = $1 RETURNING ` + taskColumns

	task, err := scanTaskRow(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return task, nil
}

// ListRelevant returns open tasks, tasks still due, and tasks completed within [dayStart, dayEnd)
func (r *TaskRepository) ListRelevant(ctx context.Context, dayStart, dayEnd time.Time) ([]*models.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE (status = 'completed' AND updated_at >= $1 AND updated_at < $2)
		   OR status IN ('in_progress', 'todo', 'paused')
		   OR (due_date IS NOT NULL AND status <> 'completed')
		ORDER BY status ASC, due_date ASC NULLS LAST, updated_at ASC
	`

	rows, err := r.pool.Query(ctx, query, dayStart, dayEnd)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return scanTaskRows(rows)
}
