package handler

import (
	"log/slog"
	"net/http"
	"time"

	"betty/internal/domain/models"
	"betty/internal/httputil"
	"betty/internal/service/planner"
)

// PlannerHandler handles task, note, calendar and dashboard HTTP requests
type PlannerHandler struct {
	planner *planner.Service
	logger  *slog.Logger
}

func NewPlannerHandler(plannerService *planner.Service, logger *slog.Logger) *PlannerHandler {
	return &PlannerHandler{planner: plannerService, logger: logger}
}

// CreateTask creates a new task
// POST /api/planner/tasks
func (h *PlannerHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req models.CreateTaskRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.UserID = userID

	task, err := h.planner.CreateTask(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, task)
}

// ListTasks lists the user's tasks, optionally filtered by status
// GET /api/planner/tasks
func (h *PlannerHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	status := models.TaskStatus(r.URL.Query().Get("status"))
	limit := httputil.QueryInt(r, "limit", 50)
	offset := httputil.QueryInt(r, "offset", 0)

	tasks := h.planner.ListTasks(r.Context(), userID, status, limit, offset)
	respondTasks(w, tasks)
}

// TodayTasks lists open tasks due today
// GET /api/planner/tasks/today
func (h *PlannerHandler) TodayTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	respondTasks(w, h.planner.TodayTasks(r.Context(), userID))
}

// OverdueTasks lists open tasks whose due date has passed
// GET /api/planner/tasks/overdue
func (h *PlannerHandler) OverdueTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	respondTasks(w, h.planner.OverdueTasks(r.Context(), userID))
}

// GetTask retrieves a single task
// GET /api/planner/tasks/{id}
func (h *PlannerHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	task, err := h.planner.GetTask(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, task)
}

// UpdateTask patches a task
// PATCH /api/planner/tasks/{id}
func (h *PlannerHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req models.UpdateTaskRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	task, err := h.planner.UpdateTask(r.Context(), userID, r.PathValue("id"), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, task)
}

// DeleteTask removes a task
// DELETE /api/planner/tasks/{id}
func (h *PlannerHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.planner.DeleteTask(r.Context(), userID, r.PathValue("id")); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateNote creates a new note
// POST /api/planner/notes
func (h *PlannerHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req models.CreateNoteRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.UserID = userID

	note, err := h.planner.CreateNote(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, note)
}

// ListNotes lists the user's notes, newest activity first
// GET /api/planner/notes
func (h *PlannerHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	limit := httputil.QueryInt(r, "limit", 50)
	offset := httputil.QueryInt(r, "offset", 0)

	notes := h.planner.ListNotes(r.Context(), userID, limit, offset)
	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"notes": notes,
		"total": len(notes),
	})
}

// GetNote retrieves a single note
// GET /api/planner/notes/{id}
func (h *PlannerHandler) GetNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	note, err := h.planner.GetNote(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, note)
}

// UpdateNote patches a note
// PATCH /api/planner/notes/{id}
func (h *PlannerHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req models.UpdateNoteRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	note, err := h.planner.UpdateNote(r.Context(), userID, r.PathValue("id"), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, note)
}

// DeleteNote removes a note
// DELETE /api/planner/notes/{id}
func (h *PlannerHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.planner.DeleteNote(r.Context(), userID, r.PathValue("id")); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateEvent creates a calendar event, mirrored to Google Calendar when
// export is configured
// POST /api/planner/events
func (h *PlannerHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req models.CreateEventRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.UserID = userID

	event, err := h.planner.CreateEvent(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, event)
}

// ListEvents lists events starting in [from, to), defaulting to the next
// seven days
// GET /api/planner/events
func (h *PlannerHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	now := time.Now().UTC()
	from := queryTime(r, "from", now)
	to := queryTime(r, "to", from.Add(7*24*time.Hour))

	events := h.planner.ListEvents(r.Context(), userID, from, to)
	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"total":  len(events),
	})
}

// DeleteEvent removes a calendar event
// DELETE /api/planner/events/{id}
func (h *PlannerHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.planner.DeleteEvent(r.Context(), userID, r.PathValue("id")); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Dashboard aggregates the planner home view
// GET /api/planner/dashboard
func (h *PlannerHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	httputil.RespondJSON(w, http.StatusOK, h.planner.Dashboard(r.Context(), userID))
}

func respondTasks(w http.ResponseWriter, tasks []*models.Task) {
	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"tasks": tasks,
		"total": len(tasks),
	})
}

func queryTime(r *http.Request, name string, def time.Time) time.Time {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return def
	}
	return t.UTC()
}
