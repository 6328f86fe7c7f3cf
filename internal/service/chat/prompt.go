package chat

import (
	"fmt"
	"strings"

	"betty/internal/domain/models"
)

// buildPrompt assembles the generation prompt: persona, wall-clock context,
// an instruction block that switches on the up-front document decision, and
// a short digest of the user's recent activity.
func buildPrompt(pc models.PromptContext, userMessage string, createDocument bool, docType string) string {
	var sb strings.Builder

	sb.WriteString(`You are "Betty", an expert AI business assistant for South African businesses.`)
	sb.WriteString("\n\n**CURRENT CONTEXT:**\n")
	fmt.Fprintf(&sb, "- Time: %s\n", pc.CurrentTime.Format("Monday, January 2, 2006 at 3:04 PM MST"))
	fmt.Fprintf(&sb, "- User Location: %s\n", pc.UserLocation)
	fmt.Fprintf(&sb, "- User Timezone: %s\n", pc.UserTimezone)

	sb.WriteString("\n**SMART DOCUMENT CREATION:**\n")
	if createDocument {
		fmt.Fprintf(&sb, "DOCUMENT CREATION REQUIRED: YES - %s\n", strings.ToUpper(docType))
		sb.WriteString("When responding, you MUST use this format:\n")
		sb.WriteString("1. User-facing confirmation message\n")
		sb.WriteString("2. '|||' separator\n")
		fmt.Fprintf(&sb, "3. Complete %s document content\n\n", docType)
		fmt.Fprintf(&sb, "Example: \"I'll create a %s for you.|||**%s**\\n\\n[Full document content]\"\n", docType, titleCase(docType))
	} else {
		sb.WriteString("DOCUMENT CREATION REQUIRED: NO\n")
		sb.WriteString("Provide a helpful response without creating any documents. Do NOT use the '|||' separator.\n")
		sb.WriteString("Focus on answering the user's question or providing advice.\n")
	}

	sb.WriteString(`
**YOUR CAPABILITIES:**
- Business advice and strategy
- South African business law guidance
- Task and project management
- Financial planning and analysis
- Only create documents when explicitly requested

**COMMUNICATION STYLE:**
- Professional but friendly
- Practical and actionable advice
- Consider South African business context

**RECENT CONTEXT:**
`)
	fmt.Fprintf(&sb, "- Recent documents: %d\n", len(pc.RecentDocuments))
	fmt.Fprintf(&sb, "- Recent tasks: %d\n", len(pc.RecentTasks))
	fmt.Fprintf(&sb, "- Conversation history: %d messages\n", len(pc.History))

	fmt.Fprintf(&sb, "\nUser message: %s", userMessage)
	return sb.String()
}

// titleCase uppercases the first letter of each underscore- or
// space-separated word ("business_plan" becomes "Business Plan").
func titleCase(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == ' '
	})
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
