// Package google mirrors Betty content into Google Workspace: documents
// into Google Docs and scheduled tasks/events into Google Calendar.
package google

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/docs/v1"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"betty/internal/domain"
)

// Credentials is the OAuth material for a Workspace account with the
// docs, drive.file and calendar.events scopes granted.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Configured reports whether all fields are set. The services treat an
// absent exporter as "sync disabled" rather than an error.
func (c Credentials) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// Exporter satisfies document.DocExporter and planner.CalendarExporter.
type Exporter struct {
	docs     *docs.Service
	drive    *drive.Service
	calendar *calendar.Service
	logger   *slog.Logger
}

func NewExporter(ctx context.Context, creds Credentials, logger *slog.Logger) (*Exporter, error) {
	if !creds.Configured() {
		return nil, fmt.Errorf("google exporter: incomplete credentials")
	}

	cfg := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     googleoauth.Endpoint,
		Scopes: []string{
			docs.DocumentsScope,
			drive.DriveFileScope,
			calendar.CalendarEventsScope,
		},
	}
	client := cfg.Client(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})

	docsSvc, err := docs.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("docs client: %w", err)
	}
	driveSvc, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("drive client: %w", err)
	}
	calendarSvc, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("calendar client: %w", err)
	}

	return &Exporter{
		docs:     docsSvc,
		drive:    driveSvc,
		calendar: calendarSvc,
		logger:   logger,
	}, nil
}

// CreateDoc creates a Google Doc with the given title, inserts the content
// as the body, and returns the doc id and its web view link.
func (e *Exporter) CreateDoc(ctx context.Context, title, content string) (string, string, error) {
	doc, err := e.docs.Documents.Create(&docs.Document{Title: title}).Context(ctx).Do()
	if err != nil {
		return "", "", fmt.Errorf("%w: create doc: %v", domain.ErrUpstream, err)
	}

	if content != "" {
		_, err = e.docs.Documents.BatchUpdate(doc.DocumentId, &docs.BatchUpdateDocumentRequest{
			Requests: []*docs.Request{{
				InsertText: &docs.InsertTextRequest{
					Text:     content,
					Location: &docs.Location{Index: 1},
				},
			}},
		}).Context(ctx).Do()
		if err != nil {
			return "", "", fmt.Errorf("%w: write doc body: %v", domain.ErrUpstream, err)
		}
	}

	url := fmt.Sprintf("https://docs.google.com/document/d/%s/edit", doc.DocumentId)
	if file, err := e.drive.Files.Get(doc.DocumentId).Fields("webViewLink").Context(ctx).Do(); err == nil && file.WebViewLink != "" {
		url = file.WebViewLink
	} else if err != nil {
		e.logger.Warn("drive link lookup failed, using constructed url", "doc_id", doc.DocumentId, "error", err)
	}

	e.logger.Info("document exported", "doc_id", doc.DocumentId)
	return doc.DocumentId, url, nil
}

// CreateEvent inserts an event on the account's primary calendar and
// returns its id.
func (e *Exporter) CreateEvent(ctx context.Context, summary, description string, start, end time.Time) (string, error) {
	event, err := e.calendar.Events.Insert("primary", &calendar.Event{
		Summary:     summary,
		Description: description,
		Start:       &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: end.Format(time.RFC3339)},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("%w: create event: %v", domain.ErrUpstream, err)
	}

	e.logger.Info("event exported", "event_id", event.Id)
	return event.Id, nil
}
