// Package planner implements tasks, notes and calendar events, plus the
// dashboard aggregation over them. Calendar export is a best-effort side
// effect that never fails the local write.
package planner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"betty/internal/domain"
	"betty/internal/domain/models"
	"betty/internal/domain/store"
	"betty/internal/service/index"
	"betty/internal/utils"
)

// CalendarExporter mirrors events into the user's external calendar.
type CalendarExporter interface {
	CreateEvent(ctx context.Context, summary, description string, start, end time.Time) (string, error)
}

type Service struct {
	store    store.DocumentStore
	index    *index.Cache
	calendar CalendarExporter
	logger   *slog.Logger
}

// NewService builds the planner service. calendar may be nil; tasks and
// events are then stored locally only.
func NewService(docStore store.DocumentStore, cache *index.Cache, calendar CalendarExporter, logger *slog.Logger) *Service {
	return &Service{store: docStore, index: cache, calendar: calendar, logger: logger}
}

func (s *Service) CreateTask(ctx context.Context, req *models.CreateTaskRequest) (*models.Task, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&req.Priority, validation.In(
			models.PriorityLow, models.PriorityMedium, models.PriorityHigh, models.PriorityUrgent,
		)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	if req.Tags == nil {
		req.Tags = []string{}
	}

	record := store.Record{
		"user_id":     req.UserID,
		"title":       req.Title,
		"description": req.Description,
		"priority":    string(req.Priority),
		"status":      string(models.TaskTodo),
		"tags":        req.Tags,
	}
	if req.DueDate != nil {
		record["due_date"] = req.DueDate.UTC()
	}

	id, err := s.store.Create(ctx, store.CollectionTasks, record)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	if err := s.index.AddToIndex(ctx, req.UserID, models.IndexTasks, id); err != nil {
		s.logger.Warn("task index update failed", "task_id", id, "error", err)
	}

	// Calendar linkage is secondary bookkeeping; a failed export leaves a
	// perfectly valid local task.
	if req.SyncToCalendar && req.DueDate != nil && s.calendar != nil {
		due := req.DueDate.UTC()
		eventID, err := s.calendar.CreateEvent(ctx, req.Title, req.Description, due, due.Add(time.Hour))
		if err != nil {
			s.logger.Warn("task calendar sync failed", "task_id", id, "error", err)
		} else if err := s.store.Update(ctx, store.CollectionTasks, id, store.Record{"calendar_event_id": eventID}); err != nil {
			s.logger.Warn("calendar linkage not persisted", "task_id", id, "error", err)
		}
	}

	return s.loadTask(ctx, req.UserID, id)
}

func (s *Service) GetTask(ctx context.Context, userID, taskID string) (*models.Task, error) {
	return s.loadTask(ctx, userID, taskID)
}

// ListTasks returns the user's tasks, most recently updated first,
// optionally filtered by status. Failures degrade to an empty slice.
func (s *Service) ListTasks(ctx context.Context, userID string, status models.TaskStatus, limit, offset int) []*models.Task {
	if limit <= 0 {
		limit = 50
	}
	fetch := limit
	if status != "" {
		fetch = 0
	}

	records, err := s.index.GetIndexed(ctx, userID, models.IndexTasks, store.CollectionTasks, fetch, offset)
	if err != nil {
		s.logger.Warn("task listing failed", "user_id", userID, "error", err)
		return nil
	}

	tasks := make([]*models.Task, 0, len(records))
	for _, record := range records {
		var task models.Task
		if err := store.Decode(record, &task); err != nil {
			continue
		}
		if status != "" && task.Status != status {
			continue
		}
		tasks = append(tasks, &task)
		if len(tasks) == limit {
			break
		}
	}
	return tasks
}

// TodayTasks returns open tasks due today (UTC), soonest first.
func (s *Service) TodayTasks(ctx context.Context, userID string) []*models.Task {
	todayStart := utils.StartOfTodayUTC(time.Now().UTC())
	return s.tasksDueIn(ctx, userID, todayStart, todayStart.Add(24*time.Hour))
}

// OverdueTasks returns open tasks whose due date has passed before today
// (UTC), oldest first.
func (s *Service) OverdueTasks(ctx context.Context, userID string) []*models.Task {
	return s.tasksDueIn(ctx, userID, time.Time{}, utils.StartOfTodayUTC(time.Now().UTC()))
}

func (s *Service) tasksDueIn(ctx context.Context, userID string, from, to time.Time) []*models.Task {
	due := make([]*models.Task, 0)
	for _, task := range s.ListTasks(ctx, userID, "", 0, 0) {
		if task.Status == models.TaskCompleted || task.DueDate == nil {
			continue
		}
		d := task.DueDate.UTC()
		if !from.IsZero() && d.Before(from) {
			continue
		}
		if !d.Before(to) {
			continue
		}
		due = append(due, task)
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].DueDate.Before(*due[j].DueDate)
	})
	return due
}

// UpdateTask patches a task. completed_at is set exactly when the status
// transitions to completed and cleared when it leaves it.
func (s *Service) UpdateTask(ctx context.Context, userID, taskID string, req *models.UpdateTaskRequest) (*models.Task, error) {
	task, err := s.loadTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	patch := store.Record{}
	if req.Title != nil {
		patch["title"] = *req.Title
	}
	if req.Description != nil {
		patch["description"] = *req.Description
	}
	if req.Priority != nil {
		patch["priority"] = string(*req.Priority)
	}
	if req.DueDate != nil {
		patch["due_date"] = req.DueDate.UTC()
	}
	if req.Tags != nil {
		patch["tags"] = req.Tags
	}
	if req.Status != nil && *req.Status != task.Status {
		patch["status"] = string(*req.Status)
		if *req.Status == models.TaskCompleted {
			patch["completed_at"] = time.Now().UTC()
		} else {
			patch["completed_at"] = nil
		}
	}
	if len(patch) == 0 {
		return task, nil
	}

	if err := s.store.Update(ctx, store.CollectionTasks, taskID, patch); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return s.loadTask(ctx, userID, taskID)
}

func (s *Service) DeleteTask(ctx context.Context, userID, taskID string) error {
	if _, err := s.loadTask(ctx, userID, taskID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, store.CollectionTasks, taskID); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if err := s.index.RemoveFromIndex(ctx, userID, models.IndexTasks, taskID); err != nil {
		s.logger.Warn("task index removal failed", "task_id", taskID, "error", err)
	}
	return nil
}

func (s *Service) CreateNote(ctx context.Context, req *models.CreateNoteRequest) (*models.Note, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&req.NoteType, validation.In(
			models.NoteText, models.NoteChecklist, models.NoteMeetingNotes,
		)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if req.NoteType == "" {
		req.NoteType = models.NoteText
	}
	if req.Tags == nil {
		req.Tags = []string{}
	}

	id, err := s.store.Create(ctx, store.CollectionNotes, store.Record{
		"user_id":    req.UserID,
		"title":      req.Title,
		"content":    req.Content,
		"note_type":  string(req.NoteType),
		"tags":       req.Tags,
		"is_pinned":  req.Pinned,
		"word_count": utils.CountWords(req.Content),
	})
	if err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}

	if err := s.index.AddToIndex(ctx, req.UserID, models.IndexNotes, id); err != nil {
		s.logger.Warn("note index update failed", "note_id", id, "error", err)
	}

	return s.loadNote(ctx, req.UserID, id)
}

func (s *Service) GetNote(ctx context.Context, userID, noteID string) (*models.Note, error) {
	return s.loadNote(ctx, userID, noteID)
}

// ListNotes returns the user's notes, most recently updated first.
func (s *Service) ListNotes(ctx context.Context, userID string, limit, offset int) []*models.Note {
	if limit <= 0 {
		limit = 50
	}
	records, err := s.index.GetIndexed(ctx, userID, models.IndexNotes, store.CollectionNotes, limit, offset)
	if err != nil {
		s.logger.Warn("note listing failed", "user_id", userID, "error", err)
		return nil
	}

	notes := make([]*models.Note, 0, len(records))
	for _, record := range records {
		var note models.Note
		if err := store.Decode(record, &note); err != nil {
			continue
		}
		notes = append(notes, &note)
	}
	return notes
}

func (s *Service) UpdateNote(ctx context.Context, userID, noteID string, req *models.UpdateNoteRequest) (*models.Note, error) {
	if _, err := s.loadNote(ctx, userID, noteID); err != nil {
		return nil, err
	}

	patch := store.Record{}
	if req.Title != nil {
		patch["title"] = *req.Title
	}
	if req.Content != nil {
		patch["content"] = *req.Content
		patch["word_count"] = utils.CountWords(*req.Content)
	}
	if req.NoteType != nil {
		patch["note_type"] = string(*req.NoteType)
	}
	if req.Tags != nil {
		patch["tags"] = req.Tags
	}
	if req.Pinned != nil {
		patch["is_pinned"] = *req.Pinned
	}
	if len(patch) == 0 {
		return s.loadNote(ctx, userID, noteID)
	}

	if err := s.store.Update(ctx, store.CollectionNotes, noteID, patch); err != nil {
		return nil, fmt.Errorf("update note: %w", err)
	}
	return s.loadNote(ctx, userID, noteID)
}

func (s *Service) DeleteNote(ctx context.Context, userID, noteID string) error {
	if _, err := s.loadNote(ctx, userID, noteID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, store.CollectionNotes, noteID); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if err := s.index.RemoveFromIndex(ctx, userID, models.IndexNotes, noteID); err != nil {
		s.logger.Warn("note index removal failed", "note_id", noteID, "error", err)
	}
	return nil
}

// CreateEvent stores a calendar event locally and mirrors it to the
// external calendar when one is configured.
func (s *Service) CreateEvent(ctx context.Context, req *models.CreateEventRequest) (*models.CalendarEvent, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Summary, validation.Required, validation.Length(1, 200)),
		validation.Field(&req.StartTime, validation.Required),
		validation.Field(&req.EndTime, validation.Required),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, fmt.Errorf("%w: end_time must be after start_time", domain.ErrValidation)
	}

	record := store.Record{
		"user_id":     req.UserID,
		"summary":     req.Summary,
		"description": req.Description,
		"start_time":  req.StartTime.UTC(),
		"end_time":    req.EndTime.UTC(),
		"location":    req.Location,
		"attendees":   req.Attendees,
	}

	id, err := s.store.Create(ctx, store.CollectionEvents, record)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	if s.calendar != nil {
		googleID, err := s.calendar.CreateEvent(ctx, req.Summary, req.Description, req.StartTime, req.EndTime)
		if err != nil {
			s.logger.Warn("calendar export failed", "event_id", id, "error", err)
		} else if err := s.store.Update(ctx, store.CollectionEvents, id, store.Record{"google_event_id": googleID}); err != nil {
			s.logger.Warn("calendar linkage not persisted", "event_id", id, "error", err)
		}
	}

	return s.loadEvent(ctx, req.UserID, id)
}

// ListEvents returns the user's events starting in [from, to), soonest
// first.
func (s *Service) ListEvents(ctx context.Context, userID string, from, to time.Time) []*models.CalendarEvent {
	records, err := s.store.Query(ctx, store.CollectionEvents, store.Query{
		Filters: []store.Filter{
			{Field: "user_id", Op: store.OpEq, Value: userID},
			{Field: "start_time", Op: store.OpGte, Value: from.UTC()},
			{Field: "start_time", Op: store.OpLt, Value: to.UTC()},
		},
		OrderBy: "start_time",
	})
	if err != nil {
		s.logger.Warn("event listing failed", "user_id", userID, "error", err)
		return nil
	}

	events := make([]*models.CalendarEvent, 0, len(records))
	for _, record := range records {
		var event models.CalendarEvent
		if err := store.Decode(record, &event); err != nil {
			continue
		}
		events = append(events, &event)
	}
	return events
}

func (s *Service) DeleteEvent(ctx context.Context, userID, eventID string) error {
	if _, err := s.loadEvent(ctx, userID, eventID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, store.CollectionEvents, eventID); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// Dashboard aggregates the planner home view: today's and overdue open
// tasks, completions today, recent notes, and upcoming events for the week.
func (s *Service) Dashboard(ctx context.Context, userID string) *models.PlannerDashboard {
	now := time.Now().UTC()
	todayStart := utils.StartOfTodayUTC(now)
	todayEnd := todayStart.Add(24 * time.Hour)

	dashboard := &models.PlannerDashboard{UserID: userID, RecentNotes: []models.Note{}}

	for _, task := range s.ListTasks(ctx, userID, "", 0, 0) {
		switch task.Status {
		case models.TaskCompleted:
			if task.CompletedAt != nil && !task.CompletedAt.Before(todayStart) {
				dashboard.CompletedToday++
			}
		default:
			if task.DueDate == nil {
				continue
			}
			due := task.DueDate.UTC()
			switch {
			case due.Before(todayStart):
				dashboard.OverdueTasks++
			case due.Before(todayEnd):
				dashboard.TodayTasks++
			}
		}
	}

	for _, note := range s.ListNotes(ctx, userID, 5, 0) {
		dashboard.RecentNotes = append(dashboard.RecentNotes, *note)
	}

	dashboard.UpcomingEventCount = len(s.ListEvents(ctx, userID, now, now.Add(7*24*time.Hour)))
	return dashboard
}

func (s *Service) loadTask(ctx context.Context, userID, taskID string) (*models.Task, error) {
	record, err := s.ownedRecord(ctx, store.CollectionTasks, userID, taskID, "task")
	if err != nil {
		return nil, err
	}
	var task models.Task
	if err := store.Decode(record, &task); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	return &task, nil
}

func (s *Service) loadNote(ctx context.Context, userID, noteID string) (*models.Note, error) {
	record, err := s.ownedRecord(ctx, store.CollectionNotes, userID, noteID, "note")
	if err != nil {
		return nil, err
	}
	var note models.Note
	if err := store.Decode(record, &note); err != nil {
		return nil, fmt.Errorf("decode note: %w", err)
	}
	return &note, nil
}

func (s *Service) loadEvent(ctx context.Context, userID, eventID string) (*models.CalendarEvent, error) {
	record, err := s.ownedRecord(ctx, store.CollectionEvents, userID, eventID, "event")
	if err != nil {
		return nil, err
	}
	var event models.CalendarEvent
	if err := store.Decode(record, &event); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &event, nil
}

func (s *Service) ownedRecord(ctx context.Context, collection, userID, id, kind string) (store.Record, error) {
	record, err := s.store.Get(ctx, collection, id)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, &domain.NotFoundError{Message: kind + " not found or access denied"}
		}
		return nil, fmt.Errorf("load %s: %w", kind, err)
	}
	if record.String("user_id") != userID {
		return nil, &domain.NotFoundError{Message: kind + " not found or access denied"}
	}
	return record, nil
}
