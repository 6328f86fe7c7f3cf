package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// Collection names used by the services. Every record in these
// collections carries a user_id field and implicit created_at/updated_at
// timestamps maintained by the store.
const (
	CollectionUsers         = "users"
	CollectionConversations = "conversations"
	CollectionChatHistory   = "chat_history"
	CollectionDocuments     = "documents"
	CollectionTasks         = "tasks"
	CollectionNotes         = "notes"
	CollectionEvents        = "calendar_events"
	CollectionDeletedUsers  = "deleted_users"
)

// Filter operators.
const (
	OpEq  = "=="
	OpNeq = "!="
	OpGt  = ">"
	OpGte = ">="
	OpLt  = "<"
	OpLte = "<="
	OpIn  = "in"
)

// Filter is a single (field, operator, value) predicate.
type Filter struct {
	Field string
	Op    string
	Value any
}

// Query describes a filtered, ordered, paginated read.
// OrderBy is a field name; a leading '-' means descending.
type Query struct {
	Filters []Filter
	OrderBy string
	Limit   int
	Offset  int
}

// Record is the schemaless document shape the store works with.
type Record map[string]any

// DocumentStore is the generic persistence collaborator. Implementations
// stamp id, created_at and updated_at on Create and bump updated_at on
// Update. Get returns domain.ErrNotFound (wrapped) for a missing id.
type DocumentStore interface {
	Create(ctx context.Context, collection string, data Record) (string, error)
	Get(ctx context.Context, collection, id string) (Record, error)
	Update(ctx context.Context, collection, id string, data Record) error
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, collection string, q Query) ([]Record, error)
	Count(ctx context.Context, collection string, filters []Filter) (int, error)
}

// Decode maps a record onto a struct via its json tags.
func Decode(rec Record, dest any) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}

// Encode converts a struct into a record via its json tags.
func Encode(src any) (Record, error) {
	b, err := json.Marshal(src)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("decode into record: %w", err)
	}
	return rec, nil
}

// String reads a string-typed field, returning "" when absent or not a string.
func (r Record) String(field string) string {
	s, _ := r[field].(string)
	return s
}

// Int reads a numeric field. JSON round-trips numbers as float64.
func (r Record) Int(field string) int {
	switch v := r[field].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
