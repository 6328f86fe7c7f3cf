// Package document implements the user-document lifecycle: CRUD with
// derived word counts and version bumps, search, duplication, and export to
// Google Docs.
package document

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"betty/internal/domain"
	"betty/internal/domain/models"
	"betty/internal/domain/store"
	"betty/internal/service/index"
	"betty/internal/utils"
)

// DocExporter creates an external Google Doc from a document's content.
type DocExporter interface {
	CreateDoc(ctx context.Context, title, content string) (id, url string, err error)
}

type Service struct {
	store    store.DocumentStore
	index    *index.Cache
	exporter DocExporter
	logger   *slog.Logger
}

// NewService builds the document service. exporter may be nil; export then
// fails with an upstream error instead of producing dead links.
func NewService(docStore store.DocumentStore, cache *index.Cache, exporter DocExporter, logger *slog.Logger) *Service {
	return &Service{store: docStore, index: cache, exporter: exporter, logger: logger}
}

func (s *Service) Create(ctx context.Context, req *models.CreateDocumentRequest) (*models.Document, error) {
	if err := s.validateCreate(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if req.Status == "" {
		req.Status = models.DocDraft
	}
	if req.Tags == nil {
		req.Tags = []string{}
	}

	id, err := s.store.Create(ctx, store.CollectionDocuments, store.Record{
		"user_id":       req.UserID,
		"title":         req.Title,
		"content":       req.Content,
		"document_type": string(req.DocumentType),
		"status":        string(req.Status),
		"tags":          req.Tags,
		"word_count":    utils.CountWords(req.Content),
		"version":       1,
	})
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	if err := s.index.AddToIndex(ctx, req.UserID, models.IndexDocuments, id); err != nil {
		s.logger.Warn("document index update failed", "document_id", id, "error", err)
	}

	return s.load(ctx, id)
}

func (s *Service) Get(ctx context.Context, userID, documentID string) (*models.Document, error) {
	return s.getOwned(ctx, userID, documentID)
}

// List returns the user's documents, most recently updated first,
// optionally filtered by type. Listing failures degrade to an empty slice.
func (s *Service) List(ctx context.Context, userID string, docType models.DocumentType, limit, offset int) []*models.Document {
	if limit <= 0 {
		limit = 50
	}

	// Over-fetch when filtering by type, since the index is not
	// type-partitioned.
	fetch := limit
	if docType != "" {
		fetch = 0
	}

	records, err := s.index.GetIndexed(ctx, userID, models.IndexDocuments, store.CollectionDocuments, fetch, offset)
	if err != nil {
		s.logger.Warn("document listing failed", "user_id", userID, "error", err)
		return nil
	}

	documents := make([]*models.Document, 0, len(records))
	for _, record := range records {
		var doc models.Document
		if err := store.Decode(record, &doc); err != nil {
			continue
		}
		if docType != "" && doc.DocumentType != docType {
			continue
		}
		documents = append(documents, &doc)
		if len(documents) == limit {
			break
		}
	}
	return documents
}

// Update patches the document. A content change recalculates the word
// count; any change bumps the version.
func (s *Service) Update(ctx context.Context, userID, documentID string, req *models.UpdateDocumentRequest) (*models.Document, error) {
	doc, err := s.getOwned(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}

	patch := store.Record{}
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", domain.ErrValidation)
		}
		patch["title"] = *req.Title
	}
	if req.Content != nil {
		patch["content"] = *req.Content
		patch["word_count"] = utils.CountWords(*req.Content)
	}
	if req.DocumentType != nil {
		patch["document_type"] = string(*req.DocumentType)
	}
	if req.Status != nil {
		patch["status"] = string(*req.Status)
	}
	if req.Tags != nil {
		patch["tags"] = req.Tags
	}
	if len(patch) == 0 {
		return doc, nil
	}
	patch["version"] = doc.Version + 1

	if err := s.store.Update(ctx, store.CollectionDocuments, documentID, patch); err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}
	return s.load(ctx, documentID)
}

func (s *Service) Delete(ctx context.Context, userID, documentID string) error {
	if _, err := s.getOwned(ctx, userID, documentID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, store.CollectionDocuments, documentID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if err := s.index.RemoveFromIndex(ctx, userID, models.IndexDocuments, documentID); err != nil {
		s.logger.Warn("document index removal failed", "document_id", documentID, "error", err)
	}
	return nil
}

// Search matches the term against title, content and tags,
// case-insensitively.
func (s *Service) Search(ctx context.Context, userID, term string, docType models.DocumentType, limit int) []*models.Document {
	if limit <= 0 {
		limit = 20
	}
	term = strings.ToLower(term)

	candidates := s.List(ctx, userID, docType, 0, 0)
	results := make([]*models.Document, 0, limit)
	for _, doc := range candidates {
		if matchesSearch(doc, term) {
			results = append(results, doc)
			if len(results) == limit {
				break
			}
		}
	}
	return results
}

func matchesSearch(doc *models.Document, term string) bool {
	if strings.Contains(strings.ToLower(doc.Title), term) {
		return true
	}
	if strings.Contains(strings.ToLower(doc.Content), term) {
		return true
	}
	for _, tag := range doc.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

// Duplicate copies a document into a fresh version-1 draft of its own.
func (s *Service) Duplicate(ctx context.Context, userID, documentID, newTitle string) (*models.Document, error) {
	original, err := s.getOwned(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}
	if newTitle == "" {
		newTitle = original.Title + " (Copy)"
	}
	return s.Create(ctx, &models.CreateDocumentRequest{
		UserID:       userID,
		Title:        newTitle,
		Content:      original.Content,
		DocumentType: original.DocumentType,
		Status:       original.Status,
		Tags:         append([]string(nil), original.Tags...),
	})
}

// Export creates a Google Doc from the document and stamps the external
// reference back onto it. Export failures are typed upstream errors and
// leave the document untouched.
func (s *Service) Export(ctx context.Context, userID, documentID string) (*models.DocExportResult, error) {
	doc, err := s.getOwned(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}
	if s.exporter == nil {
		return nil, fmt.Errorf("%w: google docs export not configured", domain.ErrUpstream)
	}

	googleID, googleURL, err := s.exporter.CreateDoc(ctx, doc.Title, doc.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: export to google docs: %v", domain.ErrUpstream, err)
	}

	now := time.Now().UTC()
	patch := store.Record{
		"google_doc_id":  googleID,
		"google_doc_url": googleURL,
		"exported_at":    now,
	}
	if err := s.store.Update(ctx, store.CollectionDocuments, documentID, patch); err != nil {
		s.logger.Warn("export reference not persisted", "document_id", documentID, "error", err)
	}

	return &models.DocExportResult{
		GoogleDocID:  googleID,
		GoogleDocURL: googleURL,
		ExportDate:   now,
	}, nil
}

func (s *Service) validateCreate(req *models.CreateDocumentRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&req.Content, validation.Required),
		validation.Field(&req.DocumentType, validation.Required, validation.In(
			models.DocContract, models.DocMOI, models.DocBusinessPlan,
			models.DocInvoice, models.DocProposal, models.DocNDA,
			models.DocPolicy, models.DocTemplate, models.DocAIGenerated,
			models.DocOther,
		)),
	)
}

// getOwned loads the document and verifies ownership. A missing record and
// an ownership mismatch return the same error.
func (s *Service) getOwned(ctx context.Context, userID, documentID string) (*models.Document, error) {
	record, err := s.store.Get(ctx, store.CollectionDocuments, documentID)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, &domain.NotFoundError{Message: "document not found or access denied"}
		}
		return nil, fmt.Errorf("load document: %w", err)
	}
	if record.String("user_id") != userID {
		return nil, &domain.NotFoundError{Message: "document not found or access denied"}
	}

	var doc models.Document
	if err := store.Decode(record, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}

func (s *Service) load(ctx context.Context, documentID string) (*models.Document, error) {
	record, err := s.store.Get(ctx, store.CollectionDocuments, documentID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	var doc models.Document
	if err := store.Decode(record, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}
