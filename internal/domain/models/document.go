package models

import "time"

// DocumentType enumerates the supported user-document kinds.
type DocumentType string

const (
	DocContract     DocumentType = "contract"
	DocMOI          DocumentType = "moi"
	DocBusinessPlan DocumentType = "business_plan"
	DocInvoice      DocumentType = "invoice"
	DocProposal     DocumentType = "proposal"
	DocNDA          DocumentType = "nda"
	DocPolicy       DocumentType = "policy"
	DocTemplate     DocumentType = "template"
	DocAIGenerated  DocumentType = "ai_generated"
	DocOther        DocumentType = "other"
)

// DocumentStatus is the review lifecycle of a user document.
type DocumentStatus string

const (
	DocDraft    DocumentStatus = "draft"
	DocReview   DocumentStatus = "review"
	DocApproved DocumentStatus = "approved"
	DocArchived DocumentStatus = "archived"
)

// Document is a user-authored artifact (contract, invoice, ...), not to
// be confused with a store record. Version increments on every
// content-affecting update.
type Document struct {
	ID           string         `json:"id,omitempty"`
	UserID       string         `json:"user_id"`
	Title        string         `json:"title"`
	Content      string         `json:"content"`
	DocumentType DocumentType   `json:"document_type"`
	Status       DocumentStatus `json:"status"`
	Tags         []string       `json:"tags"`
	WordCount    int            `json:"word_count"`
	Version      int            `json:"version"`
	GoogleDocID  string         `json:"google_doc_id,omitempty"`
	GoogleDocURL string         `json:"google_doc_url,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// CreateDocumentRequest creates a new document.
type CreateDocumentRequest struct {
	UserID       string         `json:"-"`
	Title        string         `json:"title"`
	Content      string         `json:"content"`
	DocumentType DocumentType   `json:"document_type"`
	Status       DocumentStatus `json:"status"`
	Tags         []string       `json:"tags"`
}

// UpdateDocumentRequest patches a document. Nil fields are untouched.
type UpdateDocumentRequest struct {
	Title        *string         `json:"title"`
	Content      *string         `json:"content"`
	DocumentType *DocumentType   `json:"document_type"`
	Status       *DocumentStatus `json:"status"`
	Tags         []string        `json:"tags"`
}

// DocExportResult reports a completed Google Docs export.
type DocExportResult struct {
	GoogleDocID  string    `json:"google_doc_id"`
	GoogleDocURL string    `json:"google_doc_url"`
	ExportDate   time.Time `json:"export_date"`
}
