// Package postgres implements the DocumentStore on a single JSONB table per
// environment. Every record lives in {prefix}records keyed by (collection, id),
// with the full document in a jsonb column so collections stay schemaless.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"betty/internal/domain"
	"betty/internal/domain/store"
)

type Store struct {
	pool   *pgxpool.Pool
	table  string
	logger *slog.Logger
}

// NewStore creates a JSONB document store over the given pool. The table name
// is derived from the environment prefix (dev_records, test_records,
// prod_records).
func NewStore(pool *pgxpool.Pool, tablePrefix string, logger *slog.Logger) *Store {
	return &Store{
		pool:   pool,
		table:  tablePrefix + "records",
		logger: logger,
	}
}

// EnsureSchema creates the records table and its lookup indexes if they do
// not exist yet. Safe to run on every startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				seq        bigserial,
				id         text NOT NULL,
				collection text NOT NULL,
				data       jsonb NOT NULL,
				PRIMARY KEY (collection, id)
			)`, s.table),
		fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s_user_idx
			ON %s (collection, (data->>'user_id'))`, s.table, s.table),
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Create(ctx context.Context, collection string, data store.Record) (string, error) {
	id, _ := data["id"].(string)
	if id == "" {
		id = uuid.New().String()
	}

	now := time.Now().UTC()
	record := make(store.Record, len(data)+3)
	for k, v := range data {
		record[k] = normalizeValue(v)
	}
	record["id"] = id
	if _, ok := record["created_at"]; !ok {
		record["created_at"] = encodeTime(now)
	}
	if _, ok := record["updated_at"]; !ok {
		record["updated_at"] = encodeTime(now)
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, collection, data)
		VALUES ($1, $2, $3)`, s.table)

	if _, err := s.pool.Exec(ctx, query, id, collection, payload); err != nil {
		if IsPgDuplicateError(err) {
			return "", fmt.Errorf("create %s/%s: record already exists", collection, id)
		}
		return "", fmt.Errorf("create %s/%s: %w", collection, id, err)
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (store.Record, error) {
	query := fmt.Sprintf(`
		SELECT data FROM %s
		WHERE collection = $1 AND id = $2`, s.table)

	var payload []byte
	err := s.pool.QueryRow(ctx, query, collection, id).Scan(&payload)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("get %s/%s: %w", collection, id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}

	var record store.Record
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("unmarshal record %s/%s: %w", collection, id, err)
	}
	return record, nil
}

func (s *Store) Update(ctx context.Context, collection, id string, data store.Record) error {
	patch := make(store.Record, len(data)+1)
	for k, v := range data {
		if k == "id" || k == "created_at" {
			continue
		}
		patch[k] = normalizeValue(v)
	}
	patch["updated_at"] = encodeTime(time.Now().UTC())

	payload, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("marshal patch: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE %s SET data = data || $3
		WHERE collection = $1 AND id = $2`, s.table)

	tag, err := s.pool.Exec(ctx, query, collection, id, payload)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update %s/%s: %w", collection, id, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE collection = $1 AND id = $2`, s.table)

	tag, err := s.pool.Exec(ctx, query, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete %s/%s: %w", collection, id, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, collection string, q store.Query) ([]store.Record, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT data FROM %s WHERE collection = $1", s.table)

	args := []any{collection}
	for _, f := range q.Filters {
		clause, value, err := compileFilter(f, len(args)+1)
		if err != nil {
			return nil, err
		}
		sb.WriteString(" AND ")
		sb.WriteString(clause)
		args = append(args, value)
	}

	if q.OrderBy != "" {
		field := q.OrderBy
		direction := "ASC"
		if strings.HasPrefix(field, "-") {
			field = field[1:]
			direction = "DESC"
		}
		// seq breaks ties for records written with identical timestamps,
		// keeping insertion order stable.
		fmt.Fprintf(&sb, " ORDER BY data->>'%s' %s NULLS LAST, seq %s", sanitizeField(field), direction, direction)
	}
	if q.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}
	if q.Offset > 0 {
		fmt.Fprintf(&sb, " OFFSET %d", q.Offset)
	}

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	var records []store.Record
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var record store.Record
		if err := json.Unmarshal(payload, &record); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	return records, nil
}

func (s *Store) Count(ctx context.Context, collection string, filters []store.Filter) (int, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT count(*) FROM %s WHERE collection = $1", s.table)

	args := []any{collection}
	for _, f := range filters {
		clause, value, err := compileFilter(f, len(args)+1)
		if err != nil {
			return 0, err
		}
		sb.WriteString(" AND ")
		sb.WriteString(clause)
		args = append(args, value)
	}

	var count int
	if err := s.pool.QueryRow(ctx, sb.String(), args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return count, nil
}

// compileFilter turns a field filter into a SQL predicate over the jsonb
// column. Values are compared as text, which is only correct for timestamps
// because every stored timestamp uses the fixed-width timeLayout encoding.
func compileFilter(f store.Filter, argPos int) (string, any, error) {
	field := sanitizeField(f.Field)

	var op string
	switch f.Op {
	case store.OpEq:
		op = "="
	case store.OpNeq:
		op = "<>"
	case store.OpGt:
		op = ">"
	case store.OpGte:
		op = ">="
	case store.OpLt:
		op = "<"
	case store.OpLte:
		op = "<="
	case store.OpIn:
		clause := fmt.Sprintf("data->>'%s' = ANY($%d)", field, argPos)
		return clause, f.Value, nil
	default:
		return "", nil, fmt.Errorf("unsupported filter op %q", f.Op)
	}

	clause := fmt.Sprintf("data->>'%s' %s $%d", field, op, argPos)
	return clause, filterValue(f.Value), nil
}

func filterValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return encodeTime(t)
	case *time.Time:
		if t == nil {
			return nil
		}
		return encodeTime(*t)
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// timeLayout is RFC 3339 with a fixed nine-digit fraction. The default JSON
// encoding of time.Time trims trailing zeros, so "…00.1Z" would sort after
// "…00.15Z" when compared as text. With every fraction padded to the same
// width, lexicographic order on the stored strings matches chronological
// order, which ORDER BY and the range filters rely on.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func encodeTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// normalizeValue rewrites time values, including those nested inside maps and
// slices, to the fixed-width layout before the record is marshalled. Maps and
// slices are copied so callers never see their inputs mutated.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return encodeTime(t)
	case *time.Time:
		if t == nil {
			return nil
		}
		return encodeTime(*t)
	case store.Record:
		return normalizeMap(t)
	case map[string]any:
		return normalizeMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	default:
		return v
	}
}

func normalizeMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

// sanitizeField strips characters that could escape the jsonb path quoting.
// Field names come from code, not callers, so this is a backstop.
func sanitizeField(field string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return -1
	}, field)
}
