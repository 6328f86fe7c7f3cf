package chat

import (
	"regexp"
	"strings"
)

// Classifier decides, before generation, whether a chat turn must produce a
// document and of what type. It is a deterministic, order-sensitive
// heuristic: the first matching rule category wins, and within type
// inference the first type in the fixed enumeration order wins.
type Classifier struct{}

func NewClassifier() *Classifier {
	return &Classifier{}
}

// Explicit phrases that decide document creation on their own.
var strongDocumentIndicators = []string{
	"create a document", "make a document", "generate a document",
	"write a contract", "create a contract", "draft a contract",
	"create an invoice", "generate an invoice", "make an invoice",
	"write a business plan", "create a business plan",
	"draft an nda", "create an nda", "make an nda",
	"write a proposal", "create a proposal", "draft a proposal",
	"create a template", "make a template", "generate a template",
	"write a policy", "create a policy", "draft a policy",
}

// Words that mark the message as a non-document request. Negative context
// beats weak indicators but not strong ones.
var nonDocumentContext = []string{
	"task", "reminder", "appointment", "meeting", "calendar", "event",
	"explain", "how to", "what is", "tell me", "help me understand",
	"advice", "recommend", "suggest", "opinion", "think", "question",
}

// Generic verbs that only count when paired with a document keyword.
var weakDocumentIndicators = []string{
	"create", "make", "write", "draft", "generate", "prepare",
}

var documentKeywords = []string{
	"document", "contract", "invoice", "template", "policy",
	"business plan", "proposal", "nda", "agreement", "moi",
}

var implicitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`i need a .* (contract|invoice|template|policy)`),
	regexp.MustCompile(`can you .* (contract|invoice|template|policy)`),
	regexp.MustCompile(`help me with .* (contract|invoice|template|policy)`),
	regexp.MustCompile(`(contract|invoice|template|policy) for`),
}

// documentTypeKeywords is scanned in order; the first type with a keyword
// present in the message wins.
var documentTypeKeywords = []struct {
	docType  string
	keywords []string
}{
	{"contract", []string{"contract", "agreement", "terms", "conditions"}},
	{"invoice", []string{"invoice", "bill", "payment", "charge", "cost"}},
	{"business_plan", []string{"business plan", "strategy", "market analysis"}},
	{"nda", []string{"nda", "non-disclosure", "confidentiality"}},
	{"proposal", []string{"proposal", "pitch", "offer", "quotation"}},
	{"template", []string{"template", "format", "layout"}},
	{"policy", []string{"policy", "procedure", "guideline", "rule"}},
	{"moi", []string{"moi", "memorandum of incorporation", "articles"}},
}

// Classify returns whether a document should be created for the message and,
// if so, the inferred document type.
func (c *Classifier) Classify(message string) (bool, string) {
	lower := strings.ToLower(message)

	for _, indicator := range strongDocumentIndicators {
		if strings.Contains(lower, indicator) {
			return true, inferDocumentType(lower)
		}
	}

	for _, context := range nonDocumentContext {
		if strings.Contains(lower, context) {
			return false, ""
		}
	}

	hasWeakIndicator := false
	for _, word := range weakDocumentIndicators {
		if strings.Contains(lower, word) {
			hasWeakIndicator = true
			break
		}
	}
	if hasWeakIndicator {
		for _, keyword := range documentKeywords {
			if strings.Contains(lower, keyword) {
				return true, inferDocumentType(lower)
			}
		}
	}

	for _, pattern := range implicitPatterns {
		if pattern.MatchString(lower) {
			return true, inferDocumentType(lower)
		}
	}

	return false, ""
}

func inferDocumentType(lower string) string {
	for _, entry := range documentTypeKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(lower, keyword) {
				return entry.docType
			}
		}
	}
	return "template"
}
