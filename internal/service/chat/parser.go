package chat

import (
	"regexp"
	"strings"

	"betty/internal/domain/models"
)

// ParsedResponse is the structured reading of a raw assistant reply.
type ParsedResponse struct {
	Content         string
	MessageType     models.MessageType
	DocumentCreated bool
	DocumentTitle   string
	DocumentContent string
	DocumentType    string
	TaskCreated     bool
	TaskData        map[string]any
}

var boldTitlePattern = regexp.MustCompile(`\*\*([^*]+)\*\*`)

var taskIndicators = []string{"create task", "add task", "new task", "task:"}

// parseResponse reads the separator protocol out of a raw reply. A reply
// containing the separator splits on its first occurrence into a
// confirmation message and a document body; the body's first **bold** span
// becomes the document title and its text decides the document type. Task
// indicator phrases mark a task creation with a placeholder payload.
func parseResponse(raw string) ParsedResponse {
	parsed := ParsedResponse{
		Content:     raw,
		MessageType: models.TypeText,
	}

	if strings.Contains(raw, separatorToken) {
		confirmation, body, _ := strings.Cut(raw, separatorToken)
		parsed.Content = strings.TrimSpace(confirmation)
		parsed.DocumentCreated = true
		parsed.MessageType = models.TypeDocumentCreation

		docContent := strings.TrimSpace(body)
		parsed.DocumentContent = docContent

		parsed.DocumentTitle = "AI Generated Document"
		if match := boldTitlePattern.FindStringSubmatch(docContent); match != nil {
			parsed.DocumentTitle = match[1]
		}

		parsed.DocumentType = documentTypeFromBody(docContent)
	}

	lower := strings.ToLower(raw)
	for _, indicator := range taskIndicators {
		if strings.Contains(lower, indicator) {
			parsed.TaskCreated = true
			parsed.MessageType = models.TypeTaskCreation
			parsed.TaskData = map[string]any{
				"title":    "AI Generated Task",
				"priority": "medium",
			}
			break
		}
	}

	return parsed
}

// documentTypeFromBody classifies a generated document by its body text.
// This is narrower than the request classifier on purpose: it only tells
// apart the types the fallback templates emit.
func documentTypeFromBody(body string) string {
	lower := strings.ToLower(body)
	switch {
	case strings.Contains(lower, "contract"):
		return "contract"
	case strings.Contains(lower, "invoice"):
		return "invoice"
	case strings.Contains(lower, "business plan"):
		return "business_plan"
	case strings.Contains(lower, "nda"), strings.Contains(lower, "non-disclosure"):
		return "nda"
	default:
		return "ai_generated"
	}
}
