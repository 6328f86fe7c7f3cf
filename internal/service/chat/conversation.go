package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"betty/internal/domain"
	"betty/internal/domain/models"
	"betty/internal/domain/store"
	"betty/internal/service/index"
	"betty/internal/utils"
)

// separatorToken delimits a user-facing confirmation from a generated
// document body in assistant replies.
const separatorToken = "|||"

const defaultConversationTitle = "New Chat"

// ConversationManager owns the conversation lifecycle: create session,
// append exchanges, list, summarize, delete with cascade. It sits on the
// document store plus the index cache; index and stat maintenance is
// best-effort and never fails the primary write.
type ConversationManager struct {
	store  store.DocumentStore
	index  *index.Cache
	logger *slog.Logger
}

func NewConversationManager(docStore store.DocumentStore, cache *index.Cache, logger *slog.Logger) *ConversationManager {
	return &ConversationManager{store: docStore, index: cache, logger: logger}
}

// CreateSession creates a fresh active conversation and returns its
// conversation id. The record id IS the conversation id: the index cache
// resolves entries by record id, so the two must never diverge. A failed
// index update degrades listing, not correctness.
func (m *ConversationManager) CreateSession(ctx context.Context, userID string) (string, error) {
	conversationID := uuid.New().String()
	now := time.Now().UTC()

	_, err := m.store.Create(ctx, store.CollectionConversations, store.Record{
		"id":              conversationID,
		"user_id":         userID,
		"conversation_id": conversationID,
		"title":           defaultConversationTitle,
		"message_count":   0,
		"status":          string(models.ConversationActive),
		"created_at":      now,
		"updated_at":      now,
	})
	if err != nil {
		return "", fmt.Errorf("create conversation: %w", err)
	}

	if err := m.index.AddToIndex(ctx, userID, models.IndexConversations, conversationID); err != nil {
		m.logger.Warn("conversation index update failed",
			"user_id", userID,
			"conversation_id", conversationID,
			"error", err,
		)
	}

	return conversationID, nil
}

// AppendExchange writes the user and assistant messages of one turn as a
// pair sharing a single canonical timestamp, then bumps message_count by 2
// and rederives the title from the assistant text. Archived conversations
// refuse new messages.
func (m *ConversationManager) AppendExchange(ctx context.Context, userID, conversationID, userText, assistantText string, processingTime float64) error {
	conv, err := m.findConversation(ctx, userID, conversationID)
	if err != nil {
		return err
	}
	if conv.String("status") == string(models.ConversationArchived) {
		return &domain.ValidationError{Message: "conversation is archived"}
	}

	timestamp := time.Now().UTC()

	userMsg := store.Record{
		"user_id":         userID,
		"conversation_id": conversationID,
		"role":            string(models.RoleUser),
		"content":         userText,
		"message_type":    string(models.TypeText),
		"timestamp":       timestamp,
		"created_at":      timestamp,
		"context":         map[string]any{},
	}
	if _, err := m.store.Create(ctx, store.CollectionChatHistory, userMsg); err != nil {
		return fmt.Errorf("store user message: %w", err)
	}

	assistantMsg := store.Record{
		"user_id":         userID,
		"conversation_id": conversationID,
		"role":            string(models.RoleAssistant),
		"content":         assistantText,
		"message_type":    string(models.TypeText),
		"timestamp":       timestamp,
		"created_at":      timestamp,
		"processing_time": processingTime,
		"context":         map[string]any{},
	}
	if _, err := m.store.Create(ctx, store.CollectionChatHistory, assistantMsg); err != nil {
		return fmt.Errorf("store assistant message: %w", err)
	}

	// Metadata upkeep past this point is secondary bookkeeping.
	patch := store.Record{
		"message_count": conv.Int("message_count") + 2,
		"title":         deriveTitle(assistantText),
		"updated_at":    time.Now().UTC(),
	}
	if err := m.store.Update(ctx, store.CollectionConversations, conv.String("id"), patch); err != nil {
		m.logger.Warn("conversation metadata update failed",
			"conversation_id", conversationID,
			"error", err,
		)
	}

	m.index.IncrementStat(ctx, userID, models.StatTotalMessages, 2)
	m.index.SetStat(ctx, userID, models.StatLastMessageAt, timestamp)

	return nil
}

// ListMessages returns a conversation's messages in chronological reading
// order. Store failures degrade to an empty list.
func (m *ConversationManager) ListMessages(ctx context.Context, userID, conversationID string, limit int) []models.Message {
	if limit <= 0 {
		limit = 100
	}
	records, err := m.store.Query(ctx, store.CollectionChatHistory, store.Query{
		Filters: []store.Filter{
			{Field: "user_id", Op: store.OpEq, Value: userID},
			{Field: "conversation_id", Op: store.OpEq, Value: conversationID},
		},
		OrderBy: "timestamp",
		Limit:   limit,
	})
	if err != nil {
		m.logger.Warn("list messages failed", "conversation_id", conversationID, "error", err)
		return nil
	}
	return decodeMessages(records)
}

// History returns the user's messages across all conversations, most recent
// first. Store failures degrade to an empty list.
func (m *ConversationManager) History(ctx context.Context, userID string, limit int) []models.Message {
	if limit <= 0 {
		limit = 50
	}
	records, err := m.store.Query(ctx, store.CollectionChatHistory, store.Query{
		Filters: []store.Filter{{Field: "user_id", Op: store.OpEq, Value: userID}},
		OrderBy: "-timestamp",
		Limit:   limit,
	})
	if err != nil {
		m.logger.Warn("list history failed", "user_id", userID, "error", err)
		return nil
	}
	return decodeMessages(records)
}

// ListConversations returns the user's conversations ordered by updated_at
// descending, each annotated with a preview of its latest message.
func (m *ConversationManager) ListConversations(ctx context.Context, userID string, limit, offset int) []models.Conversation {
	if limit <= 0 {
		limit = 50
	}
	records, err := m.index.GetIndexed(ctx, userID, models.IndexConversations, store.CollectionConversations, limit, offset)
	if err != nil {
		m.logger.Warn("list conversations failed", "user_id", userID, "error", err)
		return nil
	}

	conversations := make([]models.Conversation, 0, len(records))
	for _, record := range records {
		var conv models.Conversation
		if err := store.Decode(record, &conv); err != nil {
			m.logger.Warn("conversation decode failed", "error", err)
			continue
		}
		m.annotatePreview(ctx, &conv)
		conversations = append(conversations, conv)
	}
	return conversations
}

func (m *ConversationManager) annotatePreview(ctx context.Context, conv *models.Conversation) {
	records, err := m.store.Query(ctx, store.CollectionChatHistory, store.Query{
		Filters: []store.Filter{
			{Field: "user_id", Op: store.OpEq, Value: conv.UserID},
			{Field: "conversation_id", Op: store.OpEq, Value: conv.ConversationID},
		},
		OrderBy: "-timestamp",
		Limit:   1,
	})
	if err != nil || len(records) == 0 {
		conv.LastMessage = "Start chatting..."
		created := conv.CreatedAt
		conv.LastMessageAt = &created
		return
	}

	content := records[0].String("content")
	if utf8.RuneCountInString(content) > 100 {
		content = truncateRunes(content, 100) + "..."
	}
	conv.LastMessage = content
	at := utils.NormalizeTime(records[0]["timestamp"])
	conv.LastMessageAt = &at
}

// DeleteConversation removes every message of the conversation and then the
// conversation record, unwinding index entries and stats. It reports false,
// not an error, when the conversation does not exist for this user, which
// makes deletion idempotent.
func (m *ConversationManager) DeleteConversation(ctx context.Context, userID, conversationID string) (bool, error) {
	conv, err := m.findConversation(ctx, userID, conversationID)
	if err != nil {
		if domain.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}

	messages, err := m.store.Query(ctx, store.CollectionChatHistory, store.Query{
		Filters: []store.Filter{
			{Field: "user_id", Op: store.OpEq, Value: userID},
			{Field: "conversation_id", Op: store.OpEq, Value: conversationID},
		},
	})
	if err != nil {
		return false, fmt.Errorf("load conversation messages: %w", err)
	}

	for _, msg := range messages {
		if err := m.store.Delete(ctx, store.CollectionChatHistory, msg.String("id")); err != nil && !domain.IsNotFound(err) {
			return false, fmt.Errorf("delete message %s: %w", msg.String("id"), err)
		}
	}

	if err := m.store.Delete(ctx, store.CollectionConversations, conv.String("id")); err != nil && !domain.IsNotFound(err) {
		return false, fmt.Errorf("delete conversation: %w", err)
	}

	if err := m.index.RemoveFromIndex(ctx, userID, models.IndexConversations, conversationID); err != nil {
		m.logger.Warn("conversation index removal failed",
			"conversation_id", conversationID,
			"error", err,
		)
	}
	m.index.IncrementStat(ctx, userID, models.StatTotalMessages, -len(messages))

	return true, nil
}

// ClearHistory deletes every stored message for the user across all
// conversations.
func (m *ConversationManager) ClearHistory(ctx context.Context, userID string) error {
	messages, err := m.store.Query(ctx, store.CollectionChatHistory, store.Query{
		Filters: []store.Filter{{Field: "user_id", Op: store.OpEq, Value: userID}},
	})
	if err != nil {
		return fmt.Errorf("load chat history: %w", err)
	}
	for _, msg := range messages {
		if err := m.store.Delete(ctx, store.CollectionChatHistory, msg.String("id")); err != nil && !domain.IsNotFound(err) {
			return fmt.Errorf("delete message %s: %w", msg.String("id"), err)
		}
	}
	m.index.SetStat(ctx, userID, models.StatTotalMessages, 0)
	return nil
}

// Summarize aggregates one conversation, or the user's whole history when
// conversationID is empty: topic buckets from user messages, document
// creations counted by separator presence, task creations by message type.
func (m *ConversationManager) Summarize(ctx context.Context, userID, conversationID string) *models.ConversationSummary {
	var messages []models.Message
	if conversationID != "" {
		messages = m.ListMessages(ctx, userID, conversationID, 100)
	} else {
		messages = m.History(ctx, userID, 100)
	}

	summary := &models.ConversationSummary{TopicsDiscussed: []string{}}
	if len(messages) == 0 {
		return summary
	}

	summary.TotalMessages = len(messages)

	var lastAt time.Time
	topics := map[string]bool{}
	for _, msg := range messages {
		if msg.Timestamp.After(lastAt) {
			lastAt = msg.Timestamp
		}
		switch msg.Role {
		case models.RoleUser:
			content := strings.ToLower(msg.Content)
			if strings.Contains(content, "contract") {
				topics["contracts"] = true
			}
			if strings.Contains(content, "invoice") {
				topics["invoices"] = true
			}
			if strings.Contains(content, "task") {
				topics["tasks"] = true
			}
			if strings.Contains(content, "business plan") {
				topics["business planning"] = true
			}
			if strings.Contains(content, "help") {
				topics["general help"] = true
			}
		case models.RoleAssistant:
			if strings.Contains(msg.Content, separatorToken) {
				summary.DocumentsCreated++
			}
			if msg.MessageType == models.TypeTaskCreation {
				summary.TasksCreated++
			}
		}
	}

	if !lastAt.IsZero() {
		summary.LastMessageAt = &lastAt
	}
	for topic := range topics {
		summary.TopicsDiscussed = append(summary.TopicsDiscussed, topic)
	}
	return summary
}

// Stats serves the user's chat aggregates from the stats cache, with
// messages_today computed against the UTC day boundary.
func (m *ConversationManager) Stats(ctx context.Context, userID string) *models.ChatStats {
	stats := &models.ChatStats{}

	cached, err := m.index.GetStats(ctx, userID)
	if err != nil {
		m.logger.Warn("chat stats unavailable", "user_id", userID, "error", err)
		return stats
	}

	stats.TotalConversations = cached.TotalConversations
	stats.TotalMessages = cached.TotalMessages
	stats.MessagesToday = cached.MessagesToday
	if cached.TotalConversations > 0 {
		stats.AvgPerConversation = float64(cached.TotalMessages) / float64(cached.TotalConversations)
	}
	stats.LastChatAt = cached.LastActivity
	return stats
}

// Archive marks a conversation as archived. Archived conversations remain
// readable but refuse appended exchanges.
func (m *ConversationManager) Archive(ctx context.Context, userID, conversationID string) error {
	conv, err := m.findConversation(ctx, userID, conversationID)
	if err != nil {
		return err
	}
	patch := store.Record{"status": string(models.ConversationArchived)}
	if err := m.store.Update(ctx, store.CollectionConversations, conv.String("id"), patch); err != nil {
		return fmt.Errorf("archive conversation: %w", err)
	}
	return nil
}

func (m *ConversationManager) findConversation(ctx context.Context, userID, conversationID string) (store.Record, error) {
	records, err := m.store.Query(ctx, store.CollectionConversations, store.Query{
		Filters: []store.Filter{
			{Field: "user_id", Op: store.OpEq, Value: userID},
			{Field: "conversation_id", Op: store.OpEq, Value: conversationID},
		},
		Limit: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	if len(records) == 0 {
		return nil, &domain.NotFoundError{Message: "conversation not found or access denied"}
	}
	return records[0], nil
}

// deriveTitle builds a conversation title from the assistant's reply: the
// first sentence when it is long enough and fits in 50 characters, otherwise
// the first 30 characters of the raw text, each suffixed with an ellipsis.
// Lengths count runes so truncation never splits a multibyte character.
func deriveTitle(assistantText string) string {
	if assistantText == "" {
		return defaultConversationTitle
	}
	first, _, _ := strings.Cut(assistantText, ".")
	if utf8.RuneCountInString(first) > 10 {
		return truncateRunes(first, 50) + "..."
	}
	if utf8.RuneCountInString(assistantText) > 10 {
		return truncateRunes(assistantText, 30) + "..."
	}
	return defaultConversationTitle
}

// truncateRunes shortens s to at most max runes without splitting a
// multibyte character.
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func decodeMessages(records []store.Record) []models.Message {
	messages := make([]models.Message, 0, len(records))
	for _, record := range records {
		var msg models.Message
		if err := store.Decode(record, &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	return messages
}
