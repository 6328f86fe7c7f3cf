package models

import "time"

// Index names on the user record. Each maps to an ordered list of entity
// ids maintained by the index cache.
const (
	IndexConversations = "conversation_ids"
	IndexDocuments     = "document_ids"
	IndexTasks         = "task_ids"
	IndexNotes         = "note_ids"
)

// Stat keys on the user record.
const (
	StatTotalConversations = "total_conversations"
	StatTotalDocuments     = "total_documents"
	StatTotalTasks         = "total_tasks"
	StatTotalNotes         = "total_notes"
	StatTotalMessages      = "total_messages"
	StatMessagesToday      = "messages_today"
	StatLastActivity       = "last_activity"
	StatLastMessageAt      = "last_message_at"
)

// User is the profile record, including the denormalized index/stats
// cache that keeps dashboard reads away from full collection scans.
type User struct {
	UID       string    `json:"uid"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Location  string    `json:"location"`
	Timezone  string    `json:"timezone"`
	Phone     string    `json:"phone,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	Verified  bool      `json:"is_verified"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	LastLogin time.Time `json:"last_login,omitzero"`

	Indexes map[string][]string `json:"indexes,omitempty"`
	Stats   map[string]any      `json:"stats,omitempty"`

	Preferences          map[string]any `json:"preferences,omitempty"`
	NotificationSettings map[string]any `json:"notification_settings,omitempty"`
}

// Defaults applied when a profile field is absent, matching the prompt
// context defaults used by the synthesizer.
const (
	DefaultLocation = "Johannesburg, South Africa"
	DefaultTimezone = "Africa/Johannesburg"
)

// EmptyIndexes returns the initial index map for a new user.
func EmptyIndexes() map[string][]string {
	return map[string][]string{
		IndexConversations: {},
		IndexDocuments:     {},
		IndexTasks:         {},
		IndexNotes:         {},
	}
}

// EmptyStats returns the initial stats map for a new user.
func EmptyStats() map[string]any {
	return map[string]any{
		StatTotalConversations: 0,
		StatTotalDocuments:     0,
		StatTotalTasks:         0,
		StatTotalNotes:         0,
		StatTotalMessages:      0,
		StatMessagesToday:      0,
		StatLastActivity:       nil,
		StatLastMessageAt:      nil,
	}
}

// StatKeyForIndex maps an index name to the counter it feeds, or "".
func StatKeyForIndex(indexName string) string {
	switch indexName {
	case IndexConversations:
		return StatTotalConversations
	case IndexDocuments:
		return StatTotalDocuments
	case IndexTasks:
		return StatTotalTasks
	case IndexNotes:
		return StatTotalNotes
	}
	return ""
}

// ProfileStats is the aggregate view served on the profile dashboard.
type ProfileStats struct {
	TotalConversations int        `json:"total_conversations"`
	TotalDocuments     int        `json:"total_documents"`
	TotalTasks         int        `json:"total_tasks"`
	TotalNotes         int        `json:"total_notes"`
	TotalMessages      int        `json:"total_messages"`
	MessagesToday      int        `json:"messages_today"`
	LastActivity       *time.Time `json:"last_activity,omitempty"`
}
