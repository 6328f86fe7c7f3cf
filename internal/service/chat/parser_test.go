package chat

import (
	"strings"
	"testing"

	"betty/internal/domain/models"
)

func TestParseResponseSeparatorProtocol(t *testing.T) {
	raw := "I've created the contract for you.  |||  **Service Contract**\n\nPARTIES: ..."

	parsed := parseResponse(raw)
	if !parsed.DocumentCreated {
		t.Fatal("document_created = false, want true")
	}
	if parsed.MessageType != models.TypeDocumentCreation {
		t.Errorf("message_type = %s, want document_creation", parsed.MessageType)
	}
	if parsed.Content != "I've created the contract for you." {
		t.Errorf("content = %q, want trimmed confirmation", parsed.Content)
	}
	if !strings.HasPrefix(parsed.DocumentContent, "**Service Contract**") {
		t.Errorf("document content = %q, want trimmed body", parsed.DocumentContent)
	}
	if parsed.DocumentTitle != "Service Contract" {
		t.Errorf("title = %q, want %q", parsed.DocumentTitle, "Service Contract")
	}
	if parsed.DocumentType != "contract" {
		t.Errorf("document type = %q, want contract", parsed.DocumentType)
	}
}

func TestParseResponseSplitsOnFirstSeparatorOnly(t *testing.T) {
	raw := "Done.|||Body part one ||| body part two"

	parsed := parseResponse(raw)
	if parsed.Content != "Done." {
		t.Errorf("content = %q", parsed.Content)
	}
	if parsed.DocumentContent != "Body part one ||| body part two" {
		t.Errorf("document content = %q, want remainder after first separator", parsed.DocumentContent)
	}
}

func TestParseResponseDefaultTitle(t *testing.T) {
	parsed := parseResponse("Here you go.|||Plain body with no bold span")
	if parsed.DocumentTitle != "AI Generated Document" {
		t.Errorf("title = %q, want default", parsed.DocumentTitle)
	}
	if parsed.DocumentType != "ai_generated" {
		t.Errorf("document type = %q, want ai_generated", parsed.DocumentType)
	}
}

func TestParseResponseDocumentTypeFromBody(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{"**Invoice Template** total due", "invoice"},
		{"Our business plan covers five years", "business_plan"},
		{"This NDA binds both parties", "nda"},
		{"A non-disclosure arrangement", "nda"},
		{"Some generated text", "ai_generated"},
	}
	for _, tt := range tests {
		parsed := parseResponse("ok|||" + tt.body)
		if parsed.DocumentType != tt.want {
			t.Errorf("body %q: type = %q, want %q", tt.body, parsed.DocumentType, tt.want)
		}
	}
}

func TestParseResponseTaskIndicators(t *testing.T) {
	parsed := parseResponse("Sure, I'll add task: follow up with the supplier")
	if !parsed.TaskCreated {
		t.Fatal("task_created = false, want true")
	}
	if parsed.MessageType != models.TypeTaskCreation {
		t.Errorf("message_type = %s, want task_creation", parsed.MessageType)
	}
	if parsed.TaskData["title"] != "AI Generated Task" || parsed.TaskData["priority"] != "medium" {
		t.Errorf("task data = %v, want placeholder payload", parsed.TaskData)
	}
}

func TestParseResponsePlainText(t *testing.T) {
	raw := "Tax season runs from July in South Africa."
	parsed := parseResponse(raw)
	if parsed.DocumentCreated || parsed.TaskCreated {
		t.Error("plain text reply produced side-effect flags")
	}
	if parsed.MessageType != models.TypeText {
		t.Errorf("message_type = %s, want text", parsed.MessageType)
	}
	if parsed.Content != raw {
		t.Errorf("content = %q, want unchanged", parsed.Content)
	}
}
