// Package memory provides an in-process DocumentStore used for local
// development and service tests. It mirrors the query semantics of the
// postgres implementation: string-keyed collections, field filters, and
// optional ordering and pagination.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"betty/internal/domain"
	"betty/internal/domain/store"
)

// collection keeps records plus their insertion order, so queries that sort
// on a tied field (message pairs share one timestamp) stay deterministic.
type collection struct {
	records map[string]store.Record
	order   []string
}

type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

func NewStore() *Store {
	return &Store{collections: make(map[string]*collection)}
}

func (s *Store) Create(ctx context.Context, name string, data store.Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[name]
	if !ok {
		coll = &collection{records: make(map[string]store.Record)}
		s.collections[name] = coll
	}

	id, _ := data["id"].(string)
	if id == "" {
		id = uuid.New().String()
	}

	now := time.Now().UTC()
	record := clone(data)
	record["id"] = id
	if _, ok := record["created_at"]; !ok {
		record["created_at"] = now
	}
	if _, ok := record["updated_at"]; !ok {
		record["updated_at"] = now
	}

	coll.records[id] = record
	coll.order = append(coll.order, id)
	return id, nil
}

func (s *Store) Get(ctx context.Context, name, id string) (store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll := s.collections[name]
	if coll == nil {
		return nil, fmt.Errorf("get %s/%s: %w", name, id, domain.ErrNotFound)
	}
	record, ok := coll.records[id]
	if !ok {
		return nil, fmt.Errorf("get %s/%s: %w", name, id, domain.ErrNotFound)
	}
	return clone(record), nil
}

func (s *Store) Update(ctx context.Context, name, id string, data store.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.collections[name]
	if coll == nil {
		return fmt.Errorf("update %s/%s: %w", name, id, domain.ErrNotFound)
	}
	record, ok := coll.records[id]
	if !ok {
		return fmt.Errorf("update %s/%s: %w", name, id, domain.ErrNotFound)
	}

	for k, v := range data {
		if k == "id" || k == "created_at" {
			continue
		}
		record[k] = v
	}
	record["updated_at"] = time.Now().UTC()
	return nil
}

func (s *Store) Delete(ctx context.Context, name, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.collections[name]
	if coll == nil {
		return fmt.Errorf("delete %s/%s: %w", name, id, domain.ErrNotFound)
	}
	if _, ok := coll.records[id]; !ok {
		return fmt.Errorf("delete %s/%s: %w", name, id, domain.ErrNotFound)
	}
	delete(coll.records, id)
	for i, existing := range coll.order {
		if existing == id {
			coll.order = append(coll.order[:i], coll.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) Query(ctx context.Context, name string, q store.Query) ([]store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll := s.collections[name]
	if coll == nil {
		return nil, nil
	}

	var matched []store.Record
	for _, id := range coll.order {
		record := coll.records[id]
		if matchesAll(record, q.Filters) {
			matched = append(matched, clone(record))
		}
	}

	if q.OrderBy != "" {
		field := q.OrderBy
		desc := strings.HasPrefix(field, "-")
		if desc {
			field = field[1:]
		}
		sort.SliceStable(matched, func(i, j int) bool {
			cmp := compareValues(matched[i][field], matched[j][field])
			if desc {
				return cmp > 0
			}
			return cmp < 0
		})
	}

	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

func (s *Store) Count(ctx context.Context, name string, filters []store.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll := s.collections[name]
	if coll == nil {
		return 0, nil
	}

	count := 0
	for _, record := range coll.records {
		if matchesAll(record, filters) {
			count++
		}
	}
	return count, nil
}

func matchesAll(record store.Record, filters []store.Filter) bool {
	for _, f := range filters {
		if !matches(record[f.Field], f) {
			return false
		}
	}
	return true
}

func matches(value any, f store.Filter) bool {
	switch f.Op {
	case store.OpEq:
		return compareValues(value, f.Value) == 0
	case store.OpNeq:
		return compareValues(value, f.Value) != 0
	case store.OpGt:
		return compareValues(value, f.Value) > 0
	case store.OpGte:
		return compareValues(value, f.Value) >= 0
	case store.OpLt:
		return compareValues(value, f.Value) < 0
	case store.OpLte:
		return compareValues(value, f.Value) <= 0
	case store.OpIn:
		if items, ok := f.Value.([]string); ok {
			for _, item := range items {
				if compareValues(value, item) == 0 {
					return true
				}
			}
		}
		return false
	default:
		return false
	}
}

// compareValues orders two record values. Timestamps compare as instants
// regardless of whether they are stored as time.Time or RFC 3339 strings;
// numbers compare numerically across int/float representations.
func compareValues(a, b any) int {
	if at, ok := asTime(a); ok {
		if bt, bok := asTime(b); bok {
			switch {
			case at.Before(bt):
				return -1
			case at.After(bt):
				return 1
			default:
				return 0
			}
		}
	}

	if af, ok := asFloat(a); ok {
		if bf, bok := asFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}

	as := fmt.Sprintf("%v", a)
	bs := fmt.Sprintf("%v", b)
	return strings.Compare(as, bs)
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed, true
		}
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}

func clone(record store.Record) store.Record {
	out := make(store.Record, len(record))
	for k, v := range record {
		switch typed := v.(type) {
		case []string:
			out[k] = append([]string(nil), typed...)
		case map[string]any:
			inner := make(map[string]any, len(typed))
			for ik, iv := range typed {
				inner[ik] = iv
			}
			out[k] = inner
		case map[string][]string:
			inner := make(map[string][]string, len(typed))
			for ik, iv := range typed {
				inner[ik] = append([]string(nil), iv...)
			}
			out[k] = inner
		default:
			out[k] = v
		}
	}
	return out
}
