package extract

import (
	"strings"

	"github.com/raphaelgruber/askdocs-go/internal/models"
)

// importantProseChars is the prose length above which a general section
// is still considered important for dedup prioritization.
const importantProseChars = 300

// categorize buckets a section by its heading (and parent heading as a
// fallback), matching loosely on common documentation vocabulary.
func categorize(heading, parent string) models.SectionCategory {
	for _, h := range []string{heading, parent} {
		h = strings.ToLower(h)
		switch {
		case h == "":
			continue
		case containsAny(h, "install", "setup", "set up", "requirements", "prerequisites"):
			return models.CategoryInstallation
		case containsAny(h, "config", "settings", "options", "environment variable"):
			return models.CategoryConfiguration
		case containsAny(h, "api", "reference", "endpoint", "method", "function", "class", "parameters"):
			return models.CategoryAPIReference
		case containsAny(h, "guide", "tutorial", "getting started", "quickstart", "quick start", "usage", "example", "how to"):
			return models.CategoryGuide
		case containsAny(h, "troubleshoot", "error", "faq", "debug", "common issues", "known issues"):
			return models.CategoryTroubleshooting
		}
	}
	return models.CategoryGeneral
}

// priorityCategories are kept preferentially when the section cap is hit.
var priorityCategories = map[models.SectionCategory]bool{
	models.CategoryInstallation: true,
	models.CategoryGuide:        true,
	models.CategoryAPIReference: true,
}

func isImportant(category models.SectionCategory, prose string) bool {
	return priorityCategories[category] || len(prose) >= importantProseChars
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// guessLanguage infers a code block's language when the fence carries no
// info string. Checks run most-specific first; "text" is the terminal
// fallback for anything unrecognized.
func guessLanguage(code string) string {
	trimmed := strings.TrimSpace(code)
	lower := strings.ToLower(trimmed)

	switch {
	case strings.HasPrefix(trimmed, "#!"):
		return "bash"
	case strings.HasPrefix(lower, "npm ") || strings.HasPrefix(lower, "npx ") ||
		strings.HasPrefix(lower, "yarn ") || strings.HasPrefix(lower, "pip ") ||
		strings.HasPrefix(lower, "brew ") || strings.HasPrefix(lower, "apt ") ||
		strings.HasPrefix(trimmed, "$ "):
		return "bash"
	case strings.Contains(code, "func ") && strings.Contains(code, ":="):
		return "go"
	case strings.Contains(code, "=>") || strings.Contains(code, "const ") ||
		strings.Contains(code, "console.log"):
		return "javascript"
	case strings.Contains(code, "interface ") && strings.Contains(code, "{") ||
		strings.Contains(code, ": string") || strings.Contains(code, ": number") ||
		strings.Contains(code, ": boolean"):
		return "typescript"
	case strings.Contains(code, "def ") && strings.Contains(code, ":"):
		return "python"
	case strings.HasPrefix(lower, "curl ") || strings.HasPrefix(lower, "wget "):
		return "bash"
	case strings.HasPrefix(trimmed, "<"):
		return "html"
	case strings.HasPrefix(trimmed, "{") && strings.Contains(trimmed, "\":"):
		return "json"
	case strings.Contains(lower, "select ") && strings.Contains(lower, " from "):
		return "sql"
	}
	return "text"
}
