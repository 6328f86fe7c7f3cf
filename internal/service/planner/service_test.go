package planner

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"betty/internal/domain"
	"betty/internal/domain/models"
	"betty/internal/domain/store"
	"betty/internal/repository/memory"
	"betty/internal/service/index"
)

type stubCalendar struct {
	eventID string
	err     error
	calls   int
}

func (c *stubCalendar) CreateEvent(ctx context.Context, summary, description string, start, end time.Time) (string, error) {
	c.calls++
	return c.eventID, c.err
}

func newTestService(t *testing.T, calendar CalendarExporter) (*Service, *memory.Store, string) {
	t.Helper()
	docStore := memory.NewStore()
	logger := slog.New(slog.DiscardHandler)

	uid, err := docStore.Create(context.Background(), store.CollectionUsers, store.Record{
		"uid":     "user-1",
		"indexes": models.EmptyIndexes(),
		"stats":   models.EmptyStats(),
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	cache := index.NewCache(docStore, logger)
	return NewService(docStore, cache, calendar, logger), docStore, uid
}

func TestCreateTaskDefaults(t *testing.T) {
	service, _, uid := newTestService(t, nil)

	task, err := service.CreateTask(context.Background(), &models.CreateTaskRequest{
		UserID: uid,
		Title:  "File VAT return",
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.Status != models.TaskTodo {
		t.Errorf("status = %s, want todo", task.Status)
	}
	if task.Priority != models.PriorityMedium {
		t.Errorf("priority = %s, want medium", task.Priority)
	}
	if task.CompletedAt != nil {
		t.Error("new task has completed_at set")
	}
}

func TestCompletedAtTransitions(t *testing.T) {
	service, _, uid := newTestService(t, nil)
	ctx := context.Background()

	task, _ := service.CreateTask(ctx, &models.CreateTaskRequest{UserID: uid, Title: "t"})

	completed := models.TaskCompleted
	updated, err := service.UpdateTask(ctx, uid, task.ID, &models.UpdateTaskRequest{Status: &completed})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if updated.CompletedAt == nil {
		t.Fatal("completed_at not set on completion")
	}

	reopened := models.TaskInProgress
	updated, err = service.UpdateTask(ctx, uid, task.ID, &models.UpdateTaskRequest{Status: &reopened})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if updated.CompletedAt != nil {
		t.Error("completed_at not cleared on reopen")
	}
}

func TestTaskCalendarSyncIsBestEffort(t *testing.T) {
	calendar := &stubCalendar{err: errors.New("calendar down")}
	service, _, uid := newTestService(t, calendar)

	due := time.Now().UTC().Add(48 * time.Hour)
	task, err := service.CreateTask(context.Background(), &models.CreateTaskRequest{
		UserID:         uid,
		Title:          "Prep board pack",
		DueDate:        &due,
		SyncToCalendar: true,
	})
	if err != nil {
		t.Fatalf("CreateTask failed on calendar error: %v", err)
	}
	if calendar.calls != 1 {
		t.Errorf("calendar called %d times, want 1", calendar.calls)
	}
	if task.CalendarEventID != "" {
		t.Errorf("calendar_event_id = %q after failed sync", task.CalendarEventID)
	}
}

func TestTaskCalendarSyncLinksEvent(t *testing.T) {
	calendar := &stubCalendar{eventID: "gcal-1"}
	service, _, uid := newTestService(t, calendar)

	due := time.Now().UTC().Add(48 * time.Hour)
	task, err := service.CreateTask(context.Background(), &models.CreateTaskRequest{
		UserID:         uid,
		Title:          "Prep board pack",
		DueDate:        &due,
		SyncToCalendar: true,
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.CalendarEventID != "gcal-1" {
		t.Errorf("calendar_event_id = %q, want gcal-1", task.CalendarEventID)
	}
}

func TestListTasksFiltersByStatus(t *testing.T) {
	service, _, uid := newTestService(t, nil)
	ctx := context.Background()

	a, _ := service.CreateTask(ctx, &models.CreateTaskRequest{UserID: uid, Title: "a"})
	service.CreateTask(ctx, &models.CreateTaskRequest{UserID: uid, Title: "b"})

	completed := models.TaskCompleted
	service.UpdateTask(ctx, uid, a.ID, &models.UpdateTaskRequest{Status: &completed})

	open := service.ListTasks(ctx, uid, models.TaskTodo, 10, 0)
	if len(open) != 1 || open[0].Title != "b" {
		t.Errorf("todo tasks = %d, want just b", len(open))
	}
	done := service.ListTasks(ctx, uid, models.TaskCompleted, 10, 0)
	if len(done) != 1 || done[0].Title != "a" {
		t.Errorf("completed tasks = %d, want just a", len(done))
	}
}

func TestNoteWordCountMaintained(t *testing.T) {
	service, _, uid := newTestService(t, nil)
	ctx := context.Background()

	note, err := service.CreateNote(ctx, &models.CreateNoteRequest{
		UserID:  uid,
		Title:   "Standup",
		Content: "three word note",
	})
	if err != nil {
		t.Fatalf("CreateNote: %v", err)
	}
	if note.WordCount != 3 {
		t.Errorf("word_count = %d, want 3", note.WordCount)
	}
	if note.NoteType != models.NoteText {
		t.Errorf("note_type = %s, want text", note.NoteType)
	}

	content := "now five words in here"
	updated, err := service.UpdateNote(ctx, uid, note.ID, &models.UpdateNoteRequest{Content: &content})
	if err != nil {
		t.Fatalf("UpdateNote: %v", err)
	}
	if updated.WordCount != 5 {
		t.Errorf("word_count after update = %d, want 5", updated.WordCount)
	}
}

func TestEventValidation(t *testing.T) {
	service, _, uid := newTestService(t, nil)
	now := time.Now().UTC()

	_, err := service.CreateEvent(context.Background(), &models.CreateEventRequest{
		UserID:    uid,
		Summary:   "Backwards meeting",
		StartTime: now,
		EndTime:   now.Add(-time.Hour),
	})
	if !domain.IsValidation(err) {
		t.Errorf("inverted times error = %v, want validation", err)
	}
}

func TestListEventsWindow(t *testing.T) {
	service, _, uid := newTestService(t, nil)
	ctx := context.Background()
	now := time.Now().UTC()

	service.CreateEvent(ctx, &models.CreateEventRequest{
		UserID: uid, Summary: "past", StartTime: now.Add(-48 * time.Hour), EndTime: now.Add(-47 * time.Hour),
	})
	service.CreateEvent(ctx, &models.CreateEventRequest{
		UserID: uid, Summary: "this week", StartTime: now.Add(24 * time.Hour), EndTime: now.Add(25 * time.Hour),
	})
	service.CreateEvent(ctx, &models.CreateEventRequest{
		UserID: uid, Summary: "next month", StartTime: now.Add(40 * 24 * time.Hour), EndTime: now.Add(41 * 24 * time.Hour),
	})

	events := service.ListEvents(ctx, uid, now, now.Add(7*24*time.Hour))
	if len(events) != 1 || events[0].Summary != "this week" {
		t.Errorf("events in window = %d, want just this week", len(events))
	}
}

func TestDashboardAggregation(t *testing.T) {
	service, _, uid := newTestService(t, nil)
	ctx := context.Background()
	now := time.Now().UTC()

	overdue := now.Add(-48 * time.Hour)
	service.CreateTask(ctx, &models.CreateTaskRequest{UserID: uid, Title: "late", DueDate: &overdue})

	soon := now.Add(time.Minute)
	service.CreateTask(ctx, &models.CreateTaskRequest{UserID: uid, Title: "today", DueDate: &soon})

	done, _ := service.CreateTask(ctx, &models.CreateTaskRequest{UserID: uid, Title: "done"})
	completed := models.TaskCompleted
	service.UpdateTask(ctx, uid, done.ID, &models.UpdateTaskRequest{Status: &completed})

	service.CreateNote(ctx, &models.CreateNoteRequest{UserID: uid, Title: "note", Content: "x"})
	service.CreateEvent(ctx, &models.CreateEventRequest{
		UserID: uid, Summary: "sync", StartTime: now.Add(24 * time.Hour), EndTime: now.Add(25 * time.Hour),
	})

	dashboard := service.Dashboard(ctx, uid)
	if dashboard.OverdueTasks != 1 {
		t.Errorf("overdue = %d, want 1", dashboard.OverdueTasks)
	}
	if dashboard.CompletedToday != 1 {
		t.Errorf("completed today = %d, want 1", dashboard.CompletedToday)
	}
	if len(dashboard.RecentNotes) != 1 {
		t.Errorf("recent notes = %d, want 1", len(dashboard.RecentNotes))
	}
	if dashboard.UpcomingEventCount != 1 {
		t.Errorf("upcoming events = %d, want 1", dashboard.UpcomingEventCount)
	}
}

func TestOwnershipChecks(t *testing.T) {
	service, _, uid := newTestService(t, nil)
	ctx := context.Background()

	task, _ := service.CreateTask(ctx, &models.CreateTaskRequest{UserID: uid, Title: "mine"})

	if _, err := service.GetTask(ctx, "intruder", task.ID); !domain.IsNotFound(err) {
		t.Errorf("foreign get = %v, want not-found", err)
	}
	if err := service.DeleteTask(ctx, "intruder", task.ID); !domain.IsNotFound(err) {
		t.Errorf("foreign delete = %v, want not-found", err)
	}
}

func TestTaskDueWindows(t *testing.T) {
	service, _, uid := newTestService(t, nil)
	ctx := context.Background()

	overdue := time.Now().UTC().Add(-48 * time.Hour)
	future := time.Now().UTC().Add(72 * time.Hour)

	late, _ := service.CreateTask(ctx, &models.CreateTaskRequest{UserID: uid, Title: "late", DueDate: &overdue})
	service.CreateTask(ctx, &models.CreateTaskRequest{UserID: uid, Title: "later", DueDate: &future})
	service.CreateTask(ctx, &models.CreateTaskRequest{UserID: uid, Title: "undated"})

	got := service.OverdueTasks(ctx, uid)
	if len(got) != 1 || got[0].ID != late.ID {
		t.Fatalf("overdue = %d tasks, want exactly the late one", len(got))
	}

	// Completing the late task removes it from the overdue view.
	completed := models.TaskCompleted
	if _, err := service.UpdateTask(ctx, uid, late.ID, &models.UpdateTaskRequest{Status: &completed}); err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if got := service.OverdueTasks(ctx, uid); len(got) != 0 {
		t.Errorf("overdue after completion = %d tasks, want 0", len(got))
	}

	if got := service.TodayTasks(ctx, uid); len(got) != 0 {
		t.Errorf("today = %d tasks, want 0", len(got))
	}
}
