// Package index maintains the per-user denormalized id lists and aggregate
// counters stored on the user record, so dashboard reads resolve against one
// document instead of scanning whole collections.
//
// The cache is not the source of truth. When the index and the underlying
// collection disagree, the collection wins, and Rebuild restores agreement.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"betty/internal/domain"
	"betty/internal/domain/models"
	"betty/internal/domain/store"
	"betty/internal/utils"
)

type Cache struct {
	store  store.DocumentStore
	logger *slog.Logger
}

func NewCache(docStore store.DocumentStore, logger *slog.Logger) *Cache {
	return &Cache{store: docStore, logger: logger}
}

// AddToIndex appends entityID to the named list on the user record. Adding
// an id that is already present is a no-op, so retries cannot produce
// duplicates. The paired total counter is set to the list length.
func (c *Cache) AddToIndex(ctx context.Context, userID, indexName, entityID string) error {
	user, err := c.store.Get(ctx, store.CollectionUsers, userID)
	if err != nil {
		return fmt.Errorf("load user %s: %w", userID, err)
	}

	indexes := decodeIndexes(user)
	ids := indexes[indexName]
	for _, id := range ids {
		if id == entityID {
			return nil
		}
	}
	indexes[indexName] = append(ids, entityID)

	patch := store.Record{"indexes": indexes}
	if statKey := models.StatKeyForIndex(indexName); statKey != "" {
		stats := decodeStats(user)
		stats[statKey] = len(indexes[indexName])
		stats[models.StatLastActivity] = time.Now().UTC()
		patch["stats"] = stats
	}

	if err := c.store.Update(ctx, store.CollectionUsers, userID, patch); err != nil {
		return fmt.Errorf("update index %s for user %s: %w", indexName, userID, err)
	}
	return nil
}

// RemoveFromIndex drops entityID from the named list. Absence is a no-op.
func (c *Cache) RemoveFromIndex(ctx context.Context, userID, indexName, entityID string) error {
	user, err := c.store.Get(ctx, store.CollectionUsers, userID)
	if err != nil {
		return fmt.Errorf("load user %s: %w", userID, err)
	}

	indexes := decodeIndexes(user)
	ids := indexes[indexName]
	kept := ids[:0:0]
	for _, id := range ids {
		if id != entityID {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(ids) {
		return nil
	}
	if kept == nil {
		kept = []string{}
	}
	indexes[indexName] = kept

	patch := store.Record{"indexes": indexes}
	if statKey := models.StatKeyForIndex(indexName); statKey != "" {
		stats := decodeStats(user)
		stats[statKey] = len(kept)
		patch["stats"] = stats
	}

	if err := c.store.Update(ctx, store.CollectionUsers, userID, patch); err != nil {
		return fmt.Errorf("update index %s for user %s: %w", indexName, userID, err)
	}
	return nil
}

// GetIndexed materializes the indexed entities from their collection, most
// recently updated first, paginated. Ids whose records no longer exist are
// skipped; listing never fails on collaborator errors, it returns what it
// could resolve.
func (c *Cache) GetIndexed(ctx context.Context, userID, indexName, collection string, limit, offset int) ([]store.Record, error) {
	user, err := c.store.Get(ctx, store.CollectionUsers, userID)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}

	ids := decodeIndexes(user)[indexName]
	if len(ids) == 0 {
		return nil, nil
	}

	records := make([]store.Record, 0, len(ids))
	for _, id := range ids {
		record, err := c.store.Get(ctx, collection, id)
		if err != nil {
			if !domain.IsNotFound(err) {
				c.logger.Warn("indexed record unreadable",
					"user_id", userID,
					"collection", collection,
					"entity_id", id,
					"error", err,
				)
			}
			continue
		}
		if record.String("user_id") != userID {
			continue
		}
		records = append(records, record)
	}

	sort.SliceStable(records, func(i, j int) bool {
		ti := utils.NormalizeTime(records[i]["updated_at"])
		tj := utils.NormalizeTime(records[j]["updated_at"])
		return ti.After(tj)
	})

	if offset > 0 {
		if offset >= len(records) {
			return nil, nil
		}
		records = records[offset:]
	}
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return records, nil
}

// IncrementStat adjusts a counter by delta. Stats writes are best-effort:
// failures are logged and swallowed so they never fail the primary write
// they accompany.
func (c *Cache) IncrementStat(ctx context.Context, userID, statName string, delta int) {
	user, err := c.store.Get(ctx, store.CollectionUsers, userID)
	if err != nil {
		c.logger.Warn("stat increment skipped", "user_id", userID, "stat", statName, "error", err)
		return
	}

	stats := decodeStats(user)
	current, _ := asInt(stats[statName])
	next := current + delta
	if next < 0 {
		next = 0
	}
	stats[statName] = next
	stats[models.StatLastActivity] = time.Now().UTC()

	if err := c.store.Update(ctx, store.CollectionUsers, userID, store.Record{"stats": stats}); err != nil {
		c.logger.Warn("stat increment failed", "user_id", userID, "stat", statName, "error", err)
	}
}

// SetStat writes a stat value outright, with the same best-effort contract
// as IncrementStat.
func (c *Cache) SetStat(ctx context.Context, userID, statName string, value any) {
	user, err := c.store.Get(ctx, store.CollectionUsers, userID)
	if err != nil {
		c.logger.Warn("stat set skipped", "user_id", userID, "stat", statName, "error", err)
		return
	}

	stats := decodeStats(user)
	stats[statName] = value

	if err := c.store.Update(ctx, store.CollectionUsers, userID, store.Record{"stats": stats}); err != nil {
		c.logger.Warn("stat set failed", "user_id", userID, "stat", statName, "error", err)
	}
}

// GetStats reads the cached counters and computes messages_today on demand.
// The day counter depends on the wall-clock day boundary, so it is never
// served from the cache.
func (c *Cache) GetStats(ctx context.Context, userID string) (*models.ProfileStats, error) {
	user, err := c.store.Get(ctx, store.CollectionUsers, userID)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", userID, err)
	}

	stats := decodeStats(user)
	result := &models.ProfileStats{}
	result.TotalConversations, _ = asInt(stats[models.StatTotalConversations])
	result.TotalDocuments, _ = asInt(stats[models.StatTotalDocuments])
	result.TotalTasks, _ = asInt(stats[models.StatTotalTasks])
	result.TotalNotes, _ = asInt(stats[models.StatTotalNotes])
	result.TotalMessages, _ = asInt(stats[models.StatTotalMessages])

	if raw, ok := stats[models.StatLastActivity]; ok && raw != nil {
		t := utils.NormalizeTime(raw)
		result.LastActivity = &t
	}

	today, err := c.MessagesToday(ctx, userID)
	if err != nil {
		c.logger.Warn("messages_today computation failed", "user_id", userID, "error", err)
		today = 0
	}
	result.MessagesToday = today
	return result, nil
}

// MessagesToday counts the user's chat messages since UTC midnight. Callers
// near midnight in a local timezone ahead of UTC may see an undercount for
// their local day; the boundary is deliberately UTC.
func (c *Cache) MessagesToday(ctx context.Context, userID string) (int, error) {
	boundary := utils.StartOfTodayUTC(time.Now().UTC())
	return c.store.Count(ctx, store.CollectionChatHistory, []store.Filter{
		{Field: "user_id", Op: store.OpEq, Value: userID},
		{Field: "created_at", Op: store.OpGte, Value: boundary},
	})
}

// Rebuild recomputes every index list and counter by scanning the
// collections filtered by user_id. It is safe to run repeatedly: the result
// depends only on the collections' contents, so consecutive runs converge.
func (c *Cache) Rebuild(ctx context.Context, userID string) error {
	if _, err := c.store.Get(ctx, store.CollectionUsers, userID); err != nil {
		return fmt.Errorf("load user %s: %w", userID, err)
	}

	scans := []struct {
		indexName  string
		collection string
	}{
		{models.IndexConversations, store.CollectionConversations},
		{models.IndexDocuments, store.CollectionDocuments},
		{models.IndexTasks, store.CollectionTasks},
		{models.IndexNotes, store.CollectionNotes},
	}

	indexes := models.EmptyIndexes()
	stats := map[string]any{}
	var lastActivity time.Time

	for _, scan := range scans {
		records, err := c.store.Query(ctx, scan.collection, store.Query{
			Filters: []store.Filter{{Field: "user_id", Op: store.OpEq, Value: userID}},
			OrderBy: "-updated_at",
		})
		if err != nil {
			return fmt.Errorf("scan %s for user %s: %w", scan.collection, userID, err)
		}

		ids := make([]string, 0, len(records))
		for _, record := range records {
			ids = append(ids, record.String("id"))
			if updated := utils.NormalizeTime(record["updated_at"]); updated.After(lastActivity) {
				lastActivity = updated
			}
		}
		indexes[scan.indexName] = ids
		if statKey := models.StatKeyForIndex(scan.indexName); statKey != "" {
			stats[statKey] = len(ids)
		}
	}

	totalMessages, err := c.store.Count(ctx, store.CollectionChatHistory, []store.Filter{
		{Field: "user_id", Op: store.OpEq, Value: userID},
	})
	if err != nil {
		return fmt.Errorf("count messages for user %s: %w", userID, err)
	}
	stats[models.StatTotalMessages] = totalMessages
	if !lastActivity.IsZero() {
		stats[models.StatLastActivity] = lastActivity
	}

	err = c.store.Update(ctx, store.CollectionUsers, userID, store.Record{
		"indexes": indexes,
		"stats":   stats,
	})
	if err != nil {
		return fmt.Errorf("write rebuilt indexes for user %s: %w", userID, err)
	}

	c.logger.Info("indexes rebuilt",
		"user_id", userID,
		"conversations", len(indexes[models.IndexConversations]),
		"documents", len(indexes[models.IndexDocuments]),
		"tasks", len(indexes[models.IndexTasks]),
		"notes", len(indexes[models.IndexNotes]),
	)
	return nil
}

// decodeIndexes reads the indexes field off a raw user record, tolerating
// the map-of-any shape JSON round-trips produce.
func decodeIndexes(user store.Record) map[string][]string {
	indexes := models.EmptyIndexes()
	raw, ok := user["indexes"]
	if !ok || raw == nil {
		return indexes
	}

	switch typed := raw.(type) {
	case map[string][]string:
		for name, ids := range typed {
			indexes[name] = append([]string(nil), ids...)
		}
	case map[string]any:
		for name, rawIDs := range typed {
			list, ok := rawIDs.([]any)
			if !ok {
				continue
			}
			ids := make([]string, 0, len(list))
			for _, item := range list {
				if id, ok := item.(string); ok {
					ids = append(ids, id)
				}
			}
			indexes[name] = ids
		}
	}
	return indexes
}

func decodeStats(user store.Record) map[string]any {
	stats := models.EmptyStats()
	raw, ok := user["stats"].(map[string]any)
	if !ok {
		return stats
	}
	for name, value := range raw {
		stats[name] = value
	}
	return stats
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
