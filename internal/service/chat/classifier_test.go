package chat

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		message     string
		wantCreate  bool
		wantDocType string
	}{
		{
			name:        "strong indicator with contract type",
			message:     "Please create a contract for my client",
			wantCreate:  true,
			wantDocType: "contract",
		},
		{
			name:        "negative context wins",
			message:     "Can you explain how tax works?",
			wantCreate:  false,
			wantDocType: "",
		},
		{
			name:        "weak indicator plus document keyword infers invoice",
			message:     "I need a template for invoices",
			wantCreate:  true,
			wantDocType: "invoice",
		},
		{
			name:        "strong indicator beats negative context",
			message:     "Create a contract for the meeting tomorrow",
			wantCreate:  true,
			wantDocType: "contract",
		},
		{
			name:        "negative context beats weak indicator",
			message:     "Make a reminder for me",
			wantCreate:  false,
			wantDocType: "",
		},
		{
			name:        "weak verb alone without document keyword",
			message:     "Make my business more profitable",
			wantCreate:  false,
			wantDocType: "",
		},
		{
			name:        "implicit pattern",
			message:     "A policy for remote work would be useful",
			wantCreate:  true,
			wantDocType: "policy",
		},
		{
			name:        "type inference order prefers contract over template",
			message:     "Draft a template agreement please",
			wantCreate:  true,
			wantDocType: "contract",
		},
		{
			name:        "nda phrasing",
			message:     "Draft an NDA for the new supplier",
			wantCreate:  true,
			wantDocType: "nda",
		},
		{
			name:        "moi inference",
			message:     "Generate a memorandum of incorporation document",
			wantCreate:  true,
			wantDocType: "moi",
		},
		{
			name:        "default type when no keyword matches",
			message:     "Create a document about our values",
			wantCreate:  true,
			wantDocType: "template",
		},
		{
			name:        "plain chat",
			message:     "Good morning Betty",
			wantCreate:  false,
			wantDocType: "",
		},
	}

	classifier := NewClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotCreate, gotType := classifier.Classify(tt.message)
			if gotCreate != tt.wantCreate || gotType != tt.wantDocType {
				t.Errorf("Classify(%q) = (%v, %q), want (%v, %q)",
					tt.message, gotCreate, gotType, tt.wantCreate, tt.wantDocType)
			}
		})
	}
}
