package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/littlespace/internal/auth"
	"github.com/BradenHooton/littlespace/internal/models"
	"github.com/BradenHooton/littlespace/internal/services"
	pkghttp "github.com/BradenHooton/littlespace/pkg/http"
	"github.com/go-chi/chi/v5"
)

// TaskService defines the task operations used by TaskHandler
type TaskService interface {
	CreateTask(ctx context.Context, actor *models.User, input services.CreateTaskInput) (*models.Task, error)
	EditTask(ctx context.Context, actor *models.User, taskID string, input services.EditTaskInput) (*models.Task, error)
	DeleteTask(ctx context.Context, actor *models.User, taskID string) (*models.Task, error)
	UpdateStatus(ctx context.Context, actor *models.User, taskID, status string) (*models.Task, error)
	GetTask(ctx context.Context, actor *models.User, taskID string) (*models.TaskView, error)
	ListRelevantTasks(ctx context.Context, actor *models.User) ([]models.TaskView, error)
	RecordLastSeen(ctx context.Context, actor *models.User, timestamp *string) (string, error)
	GetLastSeen(ctx context.Context, actor *models.User) (*string, error)
}

// TaskHandler handles task HTTP requests
type TaskHandler struct {
	service TaskService
	logger  *slog.Logger
	audit   auth.DenialRecorder
	now     func() time.Time
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(service TaskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		service: service,
		logger:  logger,
		now:     time.Now,
	}
}

// WithAudit reports rejected task mutations to audit
func (h *TaskHandler) WithAudit(audit auth.DenialRecorder) *TaskHandler {
	h.audit = audit
	return h
}

// CreateTaskRequest represents the request body for creating a task
type CreateTaskRequest struct {
	Title        string  `json:"title" validate:"required,max=500"`
	Description  *string `json:"description" validate:"omitempty,max=5000"`
	Status       *string `json:"status"`
	Priority     *string `json:"priority"`
	DueDate      *string `json:"dueDate"`
	AssignedToID *string `json:"assignedToId"`
}

// EditTaskRequest represents a partial task edit. Empty strings clear
// description, due_date and assigned_to_id.
type EditTaskRequest struct {
	Title        *string `json:"title" validate:"omitempty,max=500"`
	Description  *string `json:"description" validate:"omitempty,max=5000"`
	Status       *string `json:"status"`
	Priority     *string `json:"priority"`
	DueDate      *string `json:"dueDate"`
	AssignedToID *string `json:"assignedToId"`
}

// UpdateStatusRequest represents the request body for a status change
type UpdateStatusRequest struct {
	TaskID string `json:"taskId" validate:"required"`
	Status string `json:"status" validate:"required,oneof=todo in_progress paused completed"`
}

// LastSeenRequest represents the request body for recording a task list visit
type LastSeenRequest struct {
	Timestamp *string `json:"timestamp"`
}

// LastSeenResponse carries the stored last-seen timestamp
type LastSeenResponse struct {
	LastSeenTasks *string `json:"lastSeenTasks"`
}

// TaskResponse represents a task in the HTTP response
type TaskResponse struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Description  *string `json:"description"`
	Status       string  `json:"status"`
	Priority     string  `json:"priority"`
	DueDate      *string `json:"dueDate"`
	CreatedAt    string  `json:"createdAt"`
	UpdatedAt    string  `json:"updatedAt"`
	CreatedByID  string  `json:"createdById"`
	AssignedToID *string `json:"assignedToId"`
	IsOverdue    bool    `json:"isOverdue"`
}

func taskToResponse(t *models.Task, isOverdue bool) *TaskResponse {
	resp := &TaskResponse{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		Status:       string(t.Status),
		Priority:     string(t.Priority),
		CreatedAt:    t.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:    t.UpdatedAt.UTC().Format(time.RFC3339Nano),
		CreatedByID:  t.CreatedByID,
		AssignedToID: t.AssignedToID,
		IsOverdue:    isOverdue,
	}
	if t.DueDate != nil {
		due := t.DueDate.UTC().Format(time.RFC3339Nano)
		resp.DueDate = &due
	}
	return resp
}

// RegisterRoutes registers all task routes. Callers must install auth.Middleware first.
func (h *TaskHandler) RegisterRoutes(router chi.Router) {
	router.Route("/tasks", func(r chi.Router) {
		r.Use(auth.RequireRoles(auth.TaskViewers...))

		// mutations reject restricted callers before the body is read
		admin := func(operation string) chi.Router {
			return r.With(auth.RequireRolesFor(h.audit, operation, auth.AdminOnly...))
		}

		r.Get("/", h.ListTasks)                                           // GET /tasks
		admin(services.OperationCreate).Post("/", h.CreateTask)           // POST /tasks
		r.Patch("/status", h.UpdateStatus)                                // PATCH /tasks/status
		r.Get("/last-seen", h.GetLastSeen)                                // GET /tasks/last-seen
		r.Post("/last-seen", h.RecordLastSeen)                            // POST /tasks/last-seen
		r.Get("/{taskID}", h.GetTask)                                     // GET /tasks/{taskID}
		admin(services.OperationEdit).Put("/{taskID}", h.EditTask)        // PUT /tasks/{taskID}
		admin(services.OperationDelete).Delete("/{taskID}", h.DeleteTask) // DELETE /tasks/{taskID}
	})
}

// ListTasks returns today's relevant tasks
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.ListRelevantTasks(r.Context(), auth.UserFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	resp := make([]*TaskResponse, 0, len(views))
	for i := range views {
		resp = append(resp, taskToResponse(&views[i].Task, views[i].IsOverdue))
	}
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// CreateTask creates a task (admin only)
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	task, err := h.service.CreateTask(r.Context(), auth.UserFromContext(r.Context()), services.CreateTaskInput{
		Title:        req.Title,
		Description:  req.Description,
		Status:       req.Status,
		Priority:     req.Priority,
		DueDate:      req.DueDate,
		AssignedToID: req.AssignedToID,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, taskToResponse(task, task.IsOverdueAt(h.now())))
}

// GetTask returns a single task
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetTask(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "taskID"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, taskToResponse(&view.Task, view.IsOverdue))
}

// EditTask applies a partial edit (admin only)
func (h *TaskHandler) EditTask(w http.ResponseWriter, r *http.Request) {
	var req EditTaskRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	task, err := h.service.EditTask(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "taskID"), services.EditTaskInput{
		Title:        req.Title,
		Description:  req.Description,
		Status:       req.Status,
		Priority:     req.Priority,
		DueDate:      req.DueDate,
		AssignedToID: req.AssignedToID,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, taskToResponse(task, task.IsOverdueAt(h.now())))
}

// DeleteTask deletes a task (admin only). Returns the removed task, or 204 when
// nothing matched.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.service.DeleteTask(r.Context(), auth.UserFromContext(r.Context()), chi.URLParam(r, "taskID"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if task == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, taskToResponse(task, false))
}

// UpdateStatus changes a task's status
func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	task, err := h.service.UpdateStatus(r.Context(), auth.UserFromContext(r.Context()), req.TaskID, req.Status)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, taskToResponse(task, task.IsOverdueAt(h.now())))
}

// GetLastSeen returns when the caller last viewed the task list
func (h *TaskHandler) GetLastSeen(w http.ResponseWriter, r *http.Request) {
	value, err := h.service.GetLastSeen(r.Context(), auth.UserFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, LastSeenResponse{LastSeenTasks: value})
}

// RecordLastSeen stores the supplied timestamp, or now when the body is empty
func (h *TaskHandler) RecordLastSeen(w http.ResponseWriter, r *http.Request) {
	var req LastSeenRequest
	if !decodeBody(w, r, &req, true) {
		return
	}

	value, err := h.service.RecordLastSeen(r.Context(), auth.UserFromContext(r.Context()), req.Timestamp)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, LastSeenResponse{LastSeenTasks: &value})
}
