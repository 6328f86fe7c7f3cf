package utils

import (
	"strings"
	"unicode"
)

// CountWords counts the number of words in a markdown string. Markdown
// syntax is stripped first so templates full of **bold** headings and
// table pipes don't inflate document word counts.
func CountWords(markdown string) int {
	text := cleanMarkdown(markdown)

	words := strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || r == '|'
	})

	count := 0
	for _, word := range words {
		if len(strings.TrimSpace(word)) > 0 {
			count++
		}
	}

	return count
}

func cleanMarkdown(markdown string) string {
	text := removeCodeBlocks(markdown)

	// Inline markers
	text = strings.ReplaceAll(text, "`", "")
	text = strings.ReplaceAll(text, "**", "")
	text = strings.ReplaceAll(text, "*", "")
	text = strings.ReplaceAll(text, "__", "")
	text = strings.ReplaceAll(text, "_", "")
	text = strings.ReplaceAll(text, "~~", "")
	text = strings.ReplaceAll(text, "#", "")

	// List markers
	lines := strings.Split(text, "\n")
	var cleanedLines []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "- ") {
			line = strings.TrimPrefix(line, "- ")
		}
		if len(line) > 2 && unicode.IsDigit(rune(line[0])) && line[1] == '.' {
			line = line[2:]
		}
		cleanedLines = append(cleanedLines, line)
	}
	text = strings.Join(cleanedLines, " ")

	text = strings.ReplaceAll(text, ">", "")
	text = strings.ReplaceAll(text, "---", "")

	return text
}

func removeCodeBlocks(text string) string {
	for {
		start := strings.Index(text, "```")
		if start == -1 {
			break
		}
		end := strings.Index(text[start+3:], "```")
		if end == -1 {
			break
		}
		text = text[:start] + text[start+end+6:]
	}
	return text
}
