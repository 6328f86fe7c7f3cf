package models

import "time"

// TaskStatus is the task lifecycle.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

// TaskPriority orders tasks by urgency.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// Task is a planner to-do item. CompletedAt is set exactly when the
// status transitions to completed and cleared on any other status.
type Task struct {
	ID              string       `json:"id,omitempty"`
	UserID          string       `json:"user_id"`
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	Priority        TaskPriority `json:"priority"`
	Status          TaskStatus   `json:"status"`
	DueDate         *time.Time   `json:"due_date,omitempty"`
	Tags            []string     `json:"tags"`
	CompletedAt     *time.Time   `json:"completed_at,omitempty"`
	CalendarEventID string       `json:"calendar_event_id,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// CreateTaskRequest creates a new task.
type CreateTaskRequest struct {
	UserID         string       `json:"-"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	Priority       TaskPriority `json:"priority"`
	DueDate        *time.Time   `json:"due_date"`
	Tags           []string     `json:"tags"`
	SyncToCalendar bool         `json:"sync_to_calendar"`
}

// UpdateTaskRequest patches a task. Nil fields are untouched.
type UpdateTaskRequest struct {
	Title       *string       `json:"title"`
	Description *string       `json:"description"`
	Priority    *TaskPriority `json:"priority"`
	Status      *TaskStatus   `json:"status"`
	DueDate     *time.Time    `json:"due_date"`
	Tags        []string      `json:"tags"`
}

// NoteType classifies planner notes.
type NoteType string

const (
	NoteText         NoteType = "text"
	NoteChecklist    NoteType = "checklist"
	NoteMeetingNotes NoteType = "meeting_notes"
)

// Note is a planner note.
type Note struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	NoteType  NoteType  `json:"note_type"`
	Tags      []string  `json:"tags"`
	Pinned    bool      `json:"is_pinned"`
	WordCount int       `json:"word_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateNoteRequest creates a new note.
type CreateNoteRequest struct {
	UserID   string   `json:"-"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	NoteType NoteType `json:"note_type"`
	Tags     []string `json:"tags"`
	Pinned   bool     `json:"is_pinned"`
}

// UpdateNoteRequest patches a note. Nil fields are untouched.
type UpdateNoteRequest struct {
	Title    *string   `json:"title"`
	Content  *string   `json:"content"`
	NoteType *NoteType `json:"note_type"`
	Tags     []string  `json:"tags"`
	Pinned   *bool     `json:"is_pinned"`
}

// CalendarEvent is stored locally and exported to Google Calendar as a
// best-effort side effect.
type CalendarEvent struct {
	ID            string    `json:"id,omitempty"`
	UserID        string    `json:"user_id"`
	Summary       string    `json:"summary"`
	Description   string    `json:"description"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Location      string    `json:"location,omitempty"`
	Attendees     []string  `json:"attendees,omitempty"`
	GoogleEventID string    `json:"google_event_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreateEventRequest creates a calendar event.
type CreateEventRequest struct {
	UserID      string    `json:"-"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Location    string    `json:"location"`
	Attendees   []string  `json:"attendees"`
}

// PlannerDashboard aggregates the planner home view.
type PlannerDashboard struct {
	UserID             string `json:"user_id"`
	TodayTasks         int    `json:"today_tasks"`
	OverdueTasks       int    `json:"overdue_tasks"`
	CompletedToday     int    `json:"completed_tasks_today"`
	RecentNotes        []Note `json:"recent_notes"`
	UpcomingEventCount int    `json:"upcoming_events"`
}
