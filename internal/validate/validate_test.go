package validate

import (
	"html"
	"strings"
	"testing"
)

func TestLengthLimits(t *testing.T) {
	tests := []struct {
		name    string
		check   func(string) string
		max     int
		wantMsg string
	}{
		{"title", Title, MaxTitleLength, "title must be 100 characters or fewer"},
		{"description", Description, MaxDescriptionLength, "description must be 5000 characters or fewer"},
		{"comment", Comment, MaxCommentLength, "comment must be 5000 characters or fewer"},
		{"prompt", Prompt, MaxPromptLength, "prompt must be 1000 characters or fewer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if msg := tt.check(strings.Repeat("a", tt.max)); msg != "" {
				t.Errorf("expected value at the limit to pass, got %q", msg)
			}
			if msg := tt.check(strings.Repeat("a", tt.max+1)); msg != tt.wantMsg {
				t.Errorf("expected %q, got %q", tt.wantMsg, msg)
			}
		})
	}
}

func TestUUID(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"550e8400-e29b-41d4-a716-446655440000", true},
		{"550E8400-E29B-41D4-A716-446655440000", true},
		{"550e8400e29b41d4a716446655440000", false},
		{"urn:uuid:550e8400-e29b-41d4-a716-446655440000", false},
		{"not-a-uuid", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := UUID(tt.in); got != tt.want {
				t.Errorf("UUID(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "great video", "great video"},
		{"trims", "  hi  ", "hi"},
		{"strips script", `nice<script>alert(1)</script>`, "nice"},
		{"strips tags keeps text", `<b>bold</b> move`, "bold move"},
		{"keeps ampersand", "salt & pepper", "salt & pepper"},
		{"only markup", "<img src=x onerror=alert(1)>", ""},
		{"keeps less than", "a < b", "a < b"},
		{"encoded script", "&lt;script&gt;alert(1)&lt;/script&gt;", ""},
		{"encoded tags", "&lt;b&gt;bold&lt;/b&gt; move", "bold move"},
		{"double encoded tags", "&amp;lt;b&amp;gt;hi&amp;lt;/b&amp;gt;", "hi"},
		{"encoded handler", "&lt;img src=x onerror=alert(1)&gt;ok", "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlainText(tt.in); got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPlainText_DeepEncodingStaysEscaped(t *testing.T) {
	in := "<b>x</b>"
	for range maxSanitizeRounds + 2 {
		in = html.EscapeString(in)
	}

	got := PlainText(in)
	if strings.ContainsAny(got, "<>") {
		t.Errorf("PlainText left markup in %q", got)
	}
}
