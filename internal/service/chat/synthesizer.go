package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"betty/internal/domain"
	"betty/internal/domain/models"
	"betty/internal/domain/store"
	"betty/internal/llm"
	"betty/internal/service/index"
)

const defaultConfidenceScore = 0.9

// Synthesizer turns one user message into the assistant's structured reply:
// it resolves the conversation, decides up front whether a document must be
// produced, generates (or falls back to) a raw reply, parses the separator
// protocol out of it, and persists the exchange.
type Synthesizer struct {
	store         store.DocumentStore
	conversations *ConversationManager
	classifier    *Classifier
	generator     llm.Generator
	fallback      *Fallback
	index         *index.Cache
	timeout       time.Duration
	logger        *slog.Logger
}

// NewSynthesizer wires the chat pipeline. generator may be nil, in which
// case every turn uses the deterministic fallback.
func NewSynthesizer(
	docStore store.DocumentStore,
	conversations *ConversationManager,
	classifier *Classifier,
	generator llm.Generator,
	fallback *Fallback,
	cache *index.Cache,
	timeout time.Duration,
	logger *slog.Logger,
) *Synthesizer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Synthesizer{
		store:         docStore,
		conversations: conversations,
		classifier:    classifier,
		generator:     generator,
		fallback:      fallback,
		index:         cache,
		timeout:       timeout,
		logger:        logger,
	}
}

// ProcessMessage runs one chat turn. It never returns an error for internal
// failures: session creation, generation and parsing problems all degrade to
// an apologetic reply so the conversational surface stays unbroken. Only
// invalid input is rejected.
func (s *Synthesizer) ProcessMessage(ctx context.Context, userID string, req *models.ChatRequest) (*models.ChatResponse, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Content, validation.Required, validation.Length(1, 4000)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	start := time.Now()

	conversationID := req.ConversationID
	if conversationID == "" {
		id, err := s.conversations.CreateSession(ctx, userID)
		if err != nil {
			s.logger.Error("chat turn failed", "user_id", userID, "error", err)
			return s.apology(start, "", err), nil
		}
		conversationID = id
	}

	createDocument, docType := s.classifier.Classify(req.Content)

	promptContext := s.buildContext(ctx, userID, req.ConversationID)
	prompt := buildPrompt(promptContext, req.Content, createDocument, docType)

	raw := s.generateReply(ctx, prompt, req.Content, createDocument, docType)

	processingTime := time.Since(start).Seconds()
	parsed := parseResponse(raw)

	// The up-front classifier decision is authoritative: when it said no
	// document, the reply stays plain text no matter what the generator
	// actually emitted.
	if !createDocument {
		parsed.DocumentCreated = false
		parsed.DocumentTitle = ""
		parsed.DocumentContent = ""
		parsed.DocumentType = ""
		if parsed.MessageType == models.TypeDocumentCreation {
			parsed.MessageType = models.TypeText
		}
	}

	// Persisting history is best-effort; the response still goes out.
	if err := s.conversations.AppendExchange(ctx, userID, conversationID, req.Content, raw, processingTime); err != nil {
		s.logger.Warn("exchange persistence failed",
			"user_id", userID,
			"conversation_id", conversationID,
			"error", err,
		)
	}

	return &models.ChatResponse{
		Content:         parsed.Content,
		MessageType:     parsed.MessageType,
		DocumentCreated: parsed.DocumentCreated,
		DocumentTitle:   parsed.DocumentTitle,
		DocumentContent: parsed.DocumentContent,
		DocumentType:    parsed.DocumentType,
		TaskCreated:     parsed.TaskCreated,
		TaskData:        parsed.TaskData,
		ProcessingTime:  processingTime,
		ConfidenceScore: defaultConfidenceScore,
		ConversationID:  conversationID,
	}, nil
}

// generateReply asks the generative backend under a bounded timeout and
// routes any failure, including an expired deadline, to the fallback. The
// fallback is deterministic, so this step itself cannot fail.
func (s *Synthesizer) generateReply(ctx context.Context, prompt, userMessage string, createDocument bool, docType string) string {
	if s.generator == nil {
		return s.fallback.Respond(userMessage, createDocument, docType)
	}

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.generator.Generate(genCtx, prompt)
	if err != nil {
		s.logger.Warn("generation unavailable, using fallback", "error", err)
		return s.fallback.Respond(userMessage, createDocument, docType)
	}
	return raw
}

// apology is the envelope returned for any internal failure of the turn:
// still a well-formed response so the conversational surface never breaks.
func (s *Synthesizer) apology(start time.Time, conversationID string, err error) *models.ChatResponse {
	return &models.ChatResponse{
		Content:        fmt.Sprintf("I apologize, but I'm having trouble processing your request right now. Error: %v", err),
		MessageType:    models.TypeText,
		ProcessingTime: time.Since(start).Seconds(),
		ConversationID: conversationID,
	}
}

// buildContext gathers the prompt context: profile fields with fixed
// defaults, the last 5 messages (conversation-scoped when an id was
// supplied, global otherwise), and the 5 most recent document and task ids.
// Every lookup degrades to a default on failure.
func (s *Synthesizer) buildContext(ctx context.Context, userID, conversationID string) models.PromptContext {
	pc := models.PromptContext{
		UserLocation: models.DefaultLocation,
		UserTimezone: models.DefaultTimezone,
		CurrentTime:  time.Now().UTC(),
	}

	user, err := s.store.Get(ctx, store.CollectionUsers, userID)
	if err == nil {
		if location := user.String("location"); location != "" {
			pc.UserLocation = location
		}
		if timezone := user.String("timezone"); timezone != "" {
			pc.UserTimezone = timezone
		}
	}

	if conversationID != "" {
		messages := s.conversations.ListMessages(ctx, userID, conversationID, 0)
		if len(messages) > 5 {
			messages = messages[len(messages)-5:]
		}
		pc.History = messages
	} else {
		pc.History = s.conversations.History(ctx, userID, 5)
	}

	pc.RecentDocuments = s.recentIDs(ctx, userID, models.IndexDocuments, store.CollectionDocuments)
	pc.RecentTasks = s.recentIDs(ctx, userID, models.IndexTasks, store.CollectionTasks)
	return pc
}

func (s *Synthesizer) recentIDs(ctx context.Context, userID, indexName, collection string) []string {
	records, err := s.index.GetIndexed(ctx, userID, indexName, collection, 5, 0)
	if err != nil {
		return nil
	}
	ids := make([]string, 0, len(records))
	for _, record := range records {
		ids = append(ids, record.String("id"))
	}
	return ids
}
