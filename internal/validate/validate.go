package validate

import (
	"fmt"
	"html"
	"strings"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

// Text field length limits, counted in bytes.
const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 5000
	MaxCommentLength     = 5000
	MaxPromptLength      = 1000
)

var plainText = bluemonday.StrictPolicy()

func checkLen(value string, max int, field string) string {
	if len(value) > max {
		return fmt.Sprintf("%s must be %d characters or fewer", field, max)
	}
	return ""
}

func Title(s string) string       { return checkLen(s, MaxTitleLength, "title") }
func Description(s string) string { return checkLen(s, MaxDescriptionLength, "description") }
func Comment(s string) string     { return checkLen(s, MaxCommentLength, "comment") }
func Prompt(s string) string      { return checkLen(s, MaxPromptLength, "prompt") }

// UUID reports whether s is a canonical UUID.
func UUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil && len(s) == 36
}

// maxSanitizeRounds bounds how many layers of entity encoding PlainText peels.
const maxSanitizeRounds = 8

// PlainText strips every HTML element from s and trims surrounding space.
// Entities are decoded so stored text matches what the user typed; decoding
// repeats until no markup is left. Input still changing after
// maxSanitizeRounds is returned escaped.
func PlainText(s string) string {
	out := s
	for range maxSanitizeRounds {
		next := html.UnescapeString(plainText.Sanitize(out))
		if next == out {
			return strings.TrimSpace(out)
		}
		out = next
	}
	return strings.TrimSpace(plainText.Sanitize(out))
}
