package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Key prefixes identify the subject a key was derived from.
const (
	IssuesPrefix  = "github_issues"
	SummaryPrefix = "summary"
)

// HashText returns the hex SHA-256 of s.
func HashText(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// fingerprint hashes the JSON form of fields. encoding/json writes map keys
// in sorted order, so the result does not depend on how fields was built.
// Callers only pass strings and ints, which always marshal.
func fingerprint(fields map[string]any) string {
	data, _ := json.Marshal(fields)
	return HashText(string(data))
}

// IssuesKey derives the key for a repository's open-issue list. The token is
// hashed so the key never carries the credential.
func IssuesKey(repo, token string) string {
	tokenHash := "no_token"
	if token != "" {
		tokenHash = HashText(token)
	}
	return IssuesPrefix + ":" + fingerprint(map[string]any{
		"repo":       repo,
		"token_hash": tokenHash,
		"type":       "github_issues",
	})
}

// SummarySubject is everything a generated summary depends on.
type SummarySubject struct {
	Number    int
	Title     string
	Body      string
	UpdatedAt time.Time
	Model     string
	// Prompt is the raw template; only its hash enters the key.
	Prompt string
}

// SummaryKey derives the key for an issue summary. Changing the model or
// the prompt template changes the key.
func SummaryKey(s SummarySubject) string {
	updated := ""
	if !s.UpdatedAt.IsZero() {
		updated = s.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return SummaryPrefix + ":" + fingerprint(map[string]any{
		"number":      s.Number,
		"title":       s.Title,
		"body":        s.Body,
		"updated_at":  updated,
		"model":       s.Model,
		"prompt_hash": HashText(s.Prompt),
	})
}
