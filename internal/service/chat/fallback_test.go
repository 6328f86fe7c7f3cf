package chat

import (
	"strings"
	"testing"
)

func TestFallbackDocumentTemplates(t *testing.T) {
	fallback, err := NewFallback()
	if err != nil {
		t.Fatalf("NewFallback: %v", err)
	}

	for _, docType := range []string{"contract", "invoice", "business_plan"} {
		reply := fallback.Respond("please create one", true, docType)
		if !strings.Contains(reply, separatorToken) {
			t.Errorf("%s template missing separator", docType)
		}
		parsed := parseResponse(reply)
		if !parsed.DocumentCreated {
			t.Errorf("%s template did not parse as document", docType)
		}
	}

	// Types without a template of their own reuse the contract template.
	reply := fallback.Respond("please create one", true, "moi")
	if !strings.Contains(reply, "Service Contract Template") {
		t.Errorf("unknown type reply = %q, want contract template", reply[:40])
	}
}

func TestFallbackInvoiceDateSubstitution(t *testing.T) {
	fallback, err := NewFallback()
	if err != nil {
		t.Fatalf("NewFallback: %v", err)
	}

	reply := fallback.Respond("invoice please", true, "invoice")
	if strings.Contains(reply, "{date}") {
		t.Error("date placeholder not substituted")
	}
}

func TestFallbackKeywordRouting(t *testing.T) {
	fallback, err := NewFallback()
	if err != nil {
		t.Fatalf("NewFallback: %v", err)
	}

	tests := []struct {
		message string
		want    string
	}{
		{"What can you do?", "Document Creation"},
		{"Any advice on pricing?", "business strategy"},
		{"remind me about the meeting", "organize tasks"},
		{"Good morning", "AI business assistant"},
	}
	for _, tt := range tests {
		reply := fallback.Respond(tt.message, false, "")
		if !strings.Contains(reply, tt.want) {
			t.Errorf("Respond(%q) = %q, want to contain %q", tt.message, reply, tt.want)
		}
	}
}
