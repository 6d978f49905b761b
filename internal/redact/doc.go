// Package redact masks credentials in free text.
//
// Issue bodies are user-written and routinely contain pasted configs, logs,
// and connection strings. Secrets runs over every body before it is
// rendered into an LLM prompt, and over upstream error bodies before they
// are logged. Token masks a configured credential for display.
package redact
