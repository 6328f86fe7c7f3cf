package memory

import (
	"context"
	"testing"
	"time"

	"betty/internal/domain"
	"betty/internal/domain/store"
)

func TestCreateGetUpdateDelete(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	id, err := s.Create(ctx, "things", store.Record{"name": "first", "user_id": "u1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	record, err := s.Get(ctx, "things", id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if record.String("name") != "first" {
		t.Errorf("name = %q, want %q", record.String("name"), "first")
	}
	if record.String("id") != id {
		t.Errorf("id not stamped on record")
	}
	if _, ok := record["created_at"]; !ok {
		t.Errorf("created_at not stamped")
	}

	if err := s.Update(ctx, "things", id, store.Record{"name": "second"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	record, _ = s.Get(ctx, "things", id)
	if record.String("name") != "second" {
		t.Errorf("name after update = %q, want %q", record.String("name"), "second")
	}

	if err := s.Delete(ctx, "things", id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, "things", id); !domain.IsNotFound(err) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "things", id); !domain.IsNotFound(err) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestQueryFiltersOrderingPagination(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		s.Create(ctx, "tasks", store.Record{
			"user_id":    "u1",
			"title":      string(rune('a' + i)),
			"priority":   "high",
			"updated_at": base.Add(time.Duration(i) * time.Minute),
		})
	}
	s.Create(ctx, "tasks", store.Record{"user_id": "u2", "title": "foreign"})

	records, err := s.Query(ctx, "tasks", store.Query{
		Filters: []store.Filter{{Field: "user_id", Op: store.OpEq, Value: "u1"}},
		OrderBy: "-updated_at",
		Limit:   2,
		Offset:  1,
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].String("title") != "d" || records[1].String("title") != "c" {
		t.Errorf("order = %q,%q, want d,c", records[0].String("title"), records[1].String("title"))
	}
}

func TestQueryTimestampRangeFilter(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	boundary := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	s.Create(ctx, "messages", store.Record{"user_id": "u1", "created_at": boundary.Add(-time.Second)})
	s.Create(ctx, "messages", store.Record{"user_id": "u1", "created_at": boundary})
	// String-encoded timestamps must compare as instants, not as strings.
	s.Create(ctx, "messages", store.Record{"user_id": "u1", "created_at": boundary.Add(time.Hour).Format(time.RFC3339)})

	count, err := s.Count(ctx, "messages", []store.Filter{
		{Field: "created_at", Op: store.OpGte, Value: boundary},
	})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestQueryInOperator(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	s.Create(ctx, "docs", store.Record{"status": "draft"})
	s.Create(ctx, "docs", store.Record{"status": "approved"})
	s.Create(ctx, "docs", store.Record{"status": "archived"})

	records, err := s.Query(ctx, "docs", store.Query{
		Filters: []store.Filter{{Field: "status", Op: store.OpIn, Value: []string{"draft", "approved"}}},
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("got %d records, want 2", len(records))
	}
}

func TestRecordsAreCopiedNotAliased(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	id, _ := s.Create(ctx, "things", store.Record{"tags": []string{"one"}})
	record, _ := s.Get(ctx, "things", id)
	record["tags"].([]string)[0] = "mutated"

	fresh, _ := s.Get(ctx, "things", id)
	if fresh["tags"].([]string)[0] != "one" {
		t.Errorf("stored record mutated through returned copy")
	}
}
