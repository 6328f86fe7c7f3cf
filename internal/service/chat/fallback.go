package chat

import (
	"embed"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed templates/*.yaml
var templateFiles embed.FS

type fallbackTemplates struct {
	Responses struct {
		Help    string `yaml:"help"`
		Advice  string `yaml:"advice"`
		Task    string `yaml:"task"`
		Generic string `yaml:"generic"`
	} `yaml:"responses"`
	Documents map[string]string `yaml:"documents"`
}

// Fallback is the deterministic responder used when the generative backend
// is unconfigured or unavailable. Replies come from embedded canned
// templates keyed on simple keyword checks, so chat keeps working offline.
type Fallback struct {
	templates fallbackTemplates
	now       func() time.Time
}

func NewFallback() (*Fallback, error) {
	data, err := templateFiles.ReadFile("templates/fallback.yaml")
	if err != nil {
		return nil, fmt.Errorf("read fallback templates: %w", err)
	}

	var templates fallbackTemplates
	if err := yaml.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("unmarshal fallback templates: %w", err)
	}
	for _, required := range []string{"contract", "invoice", "business_plan"} {
		if templates.Documents[required] == "" {
			return nil, fmt.Errorf("fallback templates missing document type %q", required)
		}
	}

	return &Fallback{templates: templates, now: time.Now}, nil
}

// Respond produces a canned reply. When a document is required, the reply
// carries the separator protocol so it parses like a generated one; the
// contract template stands in for types without a template of their own.
func (f *Fallback) Respond(userMessage string, createDocument bool, docType string) string {
	if createDocument {
		template, ok := f.templates.Documents[docType]
		if !ok {
			template = f.templates.Documents["contract"]
		}
		return strings.ReplaceAll(template, "{date}", f.now().UTC().Format("2006-01-02"))
	}

	lower := strings.ToLower(userMessage)
	switch {
	case strings.Contains(lower, "help"), strings.Contains(lower, "what can you do"):
		return f.templates.Responses.Help
	case containsAny(lower, "advice", "recommend", "suggest"):
		return f.templates.Responses.Advice
	case containsAny(lower, "task", "remind", "todo"):
		return f.templates.Responses.Task
	default:
		return f.templates.Responses.Generic
	}
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
