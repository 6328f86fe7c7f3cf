package models

import "time"

// MessageRole is who authored a stored message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// MessageType tags what a message represents beyond plain text.
type MessageType string

const (
	TypeText             MessageType = "text"
	TypeDocumentCreation MessageType = "document_creation"
	TypeTaskCreation     MessageType = "task_creation"
	TypeCalendarEvent    MessageType = "calendar_event"
	TypeFileAnalysis     MessageType = "file_analysis"
)

// ConversationStatus is the conversation lifecycle state.
type ConversationStatus string

const (
	ConversationActive   ConversationStatus = "active"
	ConversationArchived ConversationStatus = "archived"
)

// Conversation is a thread of alternating user/assistant messages.
// MessageCount only ever grows (by 2 per exchange) until deletion.
type Conversation struct {
	ID             string             `json:"id,omitempty"`
	ConversationID string             `json:"conversation_id"`
	UserID         string             `json:"user_id"`
	Title          string             `json:"title"`
	MessageCount   int                `json:"message_count"`
	Status         ConversationStatus `json:"status"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`

	// Listing annotations, not persisted as source of truth
	LastMessage   string     `json:"last_message,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
}

// Message is one stored chat_history entry. Immutable once written.
type Message struct {
	ID             string         `json:"id,omitempty"`
	UserID         string         `json:"user_id"`
	ConversationID string         `json:"conversation_id"`
	Role           MessageRole    `json:"role"`
	Content        string         `json:"content"`
	MessageType    MessageType    `json:"message_type"`
	Timestamp      time.Time      `json:"timestamp"`
	ProcessingTime *float64       `json:"processing_time,omitempty"`
	Context        map[string]any `json:"context,omitempty"`
}

// ChatRequest is an incoming chat message.
type ChatRequest struct {
	Content        string         `json:"content"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Context        map[string]any `json:"context,omitempty"`
}

// ChatResponse is the structured result of one synthesizer turn.
type ChatResponse struct {
	Content     string      `json:"content"`
	MessageType MessageType `json:"message_type"`

	DocumentCreated bool   `json:"document_created"`
	DocumentTitle   string `json:"document_title,omitempty"`
	DocumentContent string `json:"document_content,omitempty"`
	DocumentType    string `json:"document_type,omitempty"`

	TaskCreated bool           `json:"task_created"`
	TaskData    map[string]any `json:"task_data,omitempty"`

	ProcessingTime  float64 `json:"processing_time"`
	ConfidenceScore float64 `json:"confidence_score"`
	ConversationID  string  `json:"conversation_id"`
}

// ConversationSummary aggregates one conversation (or the user's whole
// history when no conversation id is given).
type ConversationSummary struct {
	TotalMessages    int        `json:"total_messages"`
	LastMessageAt    *time.Time `json:"last_message_at,omitempty"`
	TopicsDiscussed  []string   `json:"topics_discussed"`
	DocumentsCreated int        `json:"documents_created"`
	TasksCreated     int        `json:"tasks_created"`
}

// ChatStats is the per-user aggregate served from the stats cache.
type ChatStats struct {
	TotalConversations int        `json:"total_conversations"`
	TotalMessages      int        `json:"total_messages"`
	MessagesToday      int        `json:"messages_today"`
	AvgPerConversation float64    `json:"avg_messages_per_conversation"`
	LastChatAt         *time.Time `json:"last_chat_at,omitempty"`
}

// PromptContext carries the user profile fields and recent activity the
// synthesizer embeds into the generation prompt.
type PromptContext struct {
	UserLocation    string
	UserTimezone    string
	CurrentTime     time.Time
	History         []Message
	RecentDocuments []string
	RecentTasks     []string
}
