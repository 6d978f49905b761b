package summarize

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dshills/issuelens/internal/issue"
	"github.com/dshills/issuelens/internal/redact"
)

// DefaultPromptTemplate is rendered with the issue title and body.
const DefaultPromptTemplate = `Summarize the core of the GitHub issue below in one sentence of at most 30 words. Reply with the summary only.
Title: {title}
Body:
{body}
`

const (
	// MaxBodyRunes bounds how much of the body reaches the prompt.
	MaxBodyRunes = 1500
	// MaxSummaryRunes bounds an acceptable summary.
	MaxSummaryRunes = 120
	// FallbackWidth bounds a fallback excerpt, ellipsis included.
	FallbackWidth = 60
)

const ellipsis = "…"

// RenderPrompt fills tmpl with the issue's title and its redacted,
// truncated body.
func RenderPrompt(tmpl string, is issue.Issue) string {
	body := redact.Secrets(truncateRunes(is.Body, MaxBodyRunes))
	return strings.NewReplacer("{title}", redact.Secrets(is.Title), "{body}", body).Replace(tmpl)
}

// Acceptable reports whether s can be used as a summary.
func Acceptable(s string) bool {
	return s != "" &&
		!strings.ContainsAny(s, "\r\n") &&
		utf8.RuneCountInString(s) <= MaxSummaryRunes
}

// clean trims whitespace and wrapping quotes that models like to add.
func clean(s string) string {
	s = strings.TrimSpace(s)
	for _, q := range []string{`"`, "'", "“”", "「」"} {
		open, close := q, q
		if r := []rune(q); len(r) == 2 {
			open, close = string(r[0]), string(r[1])
		}
		if len(s) >= len(open)+len(close) && strings.HasPrefix(s, open) && strings.HasSuffix(s, close) {
			s = strings.TrimSpace(s[len(open) : len(s)-len(close)])
		}
	}
	return s
}

// Fallback builds a summary from the issue itself: title and body with
// whitespace collapsed, cut at a word boundary to FallbackWidth runes.
func Fallback(is issue.Issue) string {
	words := strings.Fields(is.Title + " " + is.Body)
	if len(words) == 0 {
		return fmt.Sprintf("Issue #%d", is.Number)
	}
	joined := strings.Join(words, " ")
	if utf8.RuneCountInString(joined) <= FallbackWidth {
		return joined
	}

	var b strings.Builder
	n := 0
	for _, w := range words {
		wl := utf8.RuneCountInString(w)
		sep := 0
		if n > 0 {
			sep = 1
		}
		if n+sep+wl+1 > FallbackWidth {
			break
		}
		if sep == 1 {
			b.WriteByte(' ')
		}
		b.WriteString(w)
		n += sep + wl
	}
	if n == 0 {
		return truncateRunes(words[0], FallbackWidth-1) + ellipsis
	}
	return b.String() + ellipsis
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
