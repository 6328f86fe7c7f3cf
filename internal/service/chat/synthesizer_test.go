package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"betty/internal/domain"
	"betty/internal/domain/models"
	"betty/internal/domain/store"
	"betty/internal/llm"
	"betty/internal/repository/memory"
	"betty/internal/service/index"
)

type stubGenerator struct {
	reply string
	err   error
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.reply, g.err
}

func newTestSynthesizer(t *testing.T, generator llm.Generator) (*Synthesizer, *memory.Store, string) {
	t.Helper()
	docStore := memory.NewStore()
	logger := slog.New(slog.DiscardHandler)

	uid, err := docStore.Create(context.Background(), store.CollectionUsers, store.Record{
		"uid":      "user-1",
		"email":    "user@example.com",
		"location": "Cape Town, South Africa",
		"timezone": "Africa/Johannesburg",
		"indexes":  models.EmptyIndexes(),
		"stats":    models.EmptyStats(),
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	cache := index.NewCache(docStore, logger)
	manager := NewConversationManager(docStore, cache, logger)
	fallback, err := NewFallback()
	if err != nil {
		t.Fatalf("NewFallback: %v", err)
	}

	synth := NewSynthesizer(docStore, manager, NewClassifier(), generator, fallback, cache, time.Second, logger)
	return synth, docStore, uid
}

func TestProcessMessageCreatesConversationWhenAbsent(t *testing.T) {
	synth, _, uid := newTestSynthesizer(t, &stubGenerator{reply: "Happy to help with that."})

	resp, err := synth.ProcessMessage(context.Background(), uid, &models.ChatRequest{Content: "Good morning"})
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if resp.ConversationID == "" {
		t.Error("no conversation id assigned")
	}
	if resp.MessageType != models.TypeText {
		t.Errorf("message_type = %s, want text", resp.MessageType)
	}
	if resp.ConfidenceScore != 0.9 {
		t.Errorf("confidence = %v, want 0.9", resp.ConfidenceScore)
	}
}

func TestProcessMessageDocumentFlow(t *testing.T) {
	synth, _, uid := newTestSynthesizer(t, &stubGenerator{
		reply: "I'll draft that now.|||**Service Contract**\n\nTerms follow.",
	})

	resp, err := synth.ProcessMessage(context.Background(), uid, &models.ChatRequest{
		Content: "Please create a contract for my client",
	})
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if !resp.DocumentCreated {
		t.Fatal("document_created = false, want true")
	}
	if resp.DocumentTitle != "Service Contract" {
		t.Errorf("title = %q", resp.DocumentTitle)
	}
	if resp.DocumentContent != "**Service Contract**\n\nTerms follow." {
		t.Errorf("document content = %q", resp.DocumentContent)
	}
	if resp.Content != "I'll draft that now." {
		t.Errorf("content = %q, want confirmation only", resp.Content)
	}
}

func TestProcessMessageOverrideProperty(t *testing.T) {
	// The generator misbehaves and emits the separator even though the
	// classifier decided against a document.
	synth, _, uid := newTestSynthesizer(t, &stubGenerator{
		reply: "Here's an answer.|||**Unrequested Document**\n\nBody",
	})

	resp, err := synth.ProcessMessage(context.Background(), uid, &models.ChatRequest{
		Content: "Can you explain how tax works?",
	})
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if resp.DocumentCreated {
		t.Error("document_created = true despite classifier saying no")
	}
	if resp.DocumentTitle != "" || resp.DocumentContent != "" || resp.DocumentType != "" {
		t.Error("document fields not cleared by override")
	}
	if resp.MessageType != models.TypeText {
		t.Errorf("message_type = %s, want text", resp.MessageType)
	}
}

func TestProcessMessageFallsBackOnGeneratorError(t *testing.T) {
	synth, _, uid := newTestSynthesizer(t, &stubGenerator{err: errors.New("backend down")})

	resp, err := synth.ProcessMessage(context.Background(), uid, &models.ChatRequest{
		Content: "Please create a contract for my client",
	})
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	// Fallback still honors the document decision via canned templates.
	if !resp.DocumentCreated {
		t.Error("fallback reply did not produce the requested document")
	}
	if !strings.Contains(resp.DocumentContent, "Service Contract Template") {
		t.Errorf("document content = %q, want canned contract", resp.DocumentContent)
	}
}

func TestProcessMessageNilGeneratorUsesFallback(t *testing.T) {
	synth, _, uid := newTestSynthesizer(t, nil)

	resp, err := synth.ProcessMessage(context.Background(), uid, &models.ChatRequest{Content: "What can you do?"})
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}
	if !strings.Contains(resp.Content, "AI business assistant") {
		t.Errorf("content = %q, want canned help reply", resp.Content)
	}
}

func TestProcessMessagePersistsExchange(t *testing.T) {
	synth, docStore, uid := newTestSynthesizer(t, &stubGenerator{reply: "Noted, thanks for sharing that update."})

	resp, err := synth.ProcessMessage(context.Background(), uid, &models.ChatRequest{Content: "hello"})
	if err != nil {
		t.Fatalf("ProcessMessage: %v", err)
	}

	records, err := docStore.Query(context.Background(), store.CollectionChatHistory, store.Query{
		Filters: []store.Filter{
			{Field: "conversation_id", Op: store.OpEq, Value: resp.ConversationID},
		},
		OrderBy: "timestamp",
	})
	if err != nil {
		t.Fatalf("query history: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("stored %d messages, want 2", len(records))
	}
	if records[0].String("role") != "user" || records[1].String("role") != "assistant" {
		t.Errorf("stored roles = %q,%q", records[0].String("role"), records[1].String("role"))
	}
}

// conversationCreateFailStore refuses to create conversation records while
// delegating everything else to the wrapped store.
type conversationCreateFailStore struct {
	store.DocumentStore
}

func (s *conversationCreateFailStore) Create(ctx context.Context, collection string, record store.Record) (string, error) {
	if collection == store.CollectionConversations {
		return "", errors.New("store unavailable")
	}
	return s.DocumentStore.Create(ctx, collection, record)
}

func TestProcessMessageApologizesWhenSessionCreationFails(t *testing.T) {
	base := memory.NewStore()
	logger := slog.New(slog.DiscardHandler)

	uid, err := base.Create(context.Background(), store.CollectionUsers, store.Record{
		"uid":      "user-1",
		"email":    "user@example.com",
		"location": "Cape Town, South Africa",
		"timezone": "Africa/Johannesburg",
		"indexes":  models.EmptyIndexes(),
		"stats":    models.EmptyStats(),
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	failing := &conversationCreateFailStore{DocumentStore: base}
	cache := index.NewCache(failing, logger)
	manager := NewConversationManager(failing, cache, logger)
	fallback, err := NewFallback()
	if err != nil {
		t.Fatalf("NewFallback: %v", err)
	}
	synth := NewSynthesizer(failing, manager, NewClassifier(), &stubGenerator{reply: "ok"}, fallback, cache, time.Second, logger)

	resp, err := synth.ProcessMessage(context.Background(), uid, &models.ChatRequest{Content: "hello"})
	if err != nil {
		t.Fatalf("ProcessMessage returned error %v, want apologetic reply", err)
	}
	if !strings.HasPrefix(resp.Content, "I apologize, but I'm having trouble processing your request right now.") {
		t.Errorf("content = %q, want apology", resp.Content)
	}
	if resp.ConversationID != "" {
		t.Errorf("conversation_id = %q, want empty when no session exists", resp.ConversationID)
	}
	if resp.MessageType != models.TypeText {
		t.Errorf("message_type = %s, want text", resp.MessageType)
	}
}

func TestProcessMessageRejectsInvalidInput(t *testing.T) {
	synth, _, uid := newTestSynthesizer(t, &stubGenerator{reply: "ok"})

	_, err := synth.ProcessMessage(context.Background(), uid, &models.ChatRequest{Content: ""})
	if !domain.IsValidation(err) {
		t.Errorf("empty content error = %v, want validation", err)
	}

	_, err = synth.ProcessMessage(context.Background(), uid, &models.ChatRequest{
		Content: strings.Repeat("a", 4001),
	})
	if !domain.IsValidation(err) {
		t.Errorf("oversized content error = %v, want validation", err)
	}
}
