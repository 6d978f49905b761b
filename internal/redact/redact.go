package redact

import (
	"regexp"
	"strings"
)

const placeholder = "[REDACTED]"

type rule struct {
	name string
	re   *regexp.Regexp
	// keep is the submatch index preserved in front of the placeholder
	// (the "api_key=" part of an assignment). Zero replaces the whole match.
	keep int
}

var rules = []rule{
	{name: "private key block", re: regexp.MustCompile(`-----BEGIN\s+(?:RSA\s+|EC\s+|OPENSSH\s+)?PRIVATE KEY-----[\s\S]*?(?:-----END\s+(?:RSA\s+|EC\s+|OPENSSH\s+)?PRIVATE KEY-----|$)`)},
	{name: "github token", re: regexp.MustCompile(`\b(?:gh[pousr]_[A-Za-z0-9_]{36,}|github_pat_[A-Za-z0-9_]{22,})`)},
	{name: "openai key", re: regexp.MustCompile(`\bsk-(?:proj-|ant-)?[A-Za-z0-9_-]{20,}`)},
	{name: "slack token", re: regexp.MustCompile(`\bxox[bporas]-[A-Za-z0-9-]{10,}`)},
	{name: "aws access key", re: regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`)},
	{name: "jwt", re: regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`)},
	{name: "bearer", re: regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9._~+/-]{20,}=*`), keep: 1},
	{name: "url credentials", re: regexp.MustCompile(`([a-z][a-z0-9+.-]*://[^\s:/@]+:)[^\s@/]+(@)`), keep: 1},
	{name: "assignment", re: regexp.MustCompile(`(?i)((?:api[_-]?key|api[_-]?secret|secret|token|password|passwd|credential)s?\s*[:=]\s*["']?)[^\s"']{8,}`), keep: 1},
}

// Secrets replaces credentials found in text with [REDACTED].
func Secrets(text string) string {
	for _, r := range rules {
		if r.keep == 0 {
			text = r.re.ReplaceAllString(text, placeholder)
			continue
		}
		text = r.re.ReplaceAllStringFunc(text, func(match string) string {
			sub := r.re.FindStringSubmatch(match)
			out := sub[r.keep] + placeholder
			// url credentials keep the trailing "@" as well
			if last := len(sub) - 1; last > r.keep {
				out += sub[last]
			}
			return out
		})
	}
	return text
}

// Found reports the names of the rules that matched text.
func Found(text string) []string {
	var names []string
	for _, r := range rules {
		if r.re.MatchString(text) {
			names = append(names, r.name)
		}
	}
	return names
}

// Token masks a credential for display, keeping a short prefix and the last
// four characters.
func Token(tok string) string {
	tok = strings.TrimSpace(tok)
	switch {
	case tok == "":
		return ""
	case len(tok) <= 8:
		return strings.Repeat("*", len(tok))
	}
	prefix := 0
	if i := strings.IndexAny(tok, "_-"); i > 0 && i <= 4 {
		prefix = i + 1
	}
	return tok[:prefix] + "…" + tok[len(tok)-4:]
}
