// Package config loads and merges issuelens configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (GH_TOKEN, OPENAI_API_KEY, MODEL_NAME, CACHE_DB_PATH, etc.)
//  3. Config file ($XDG_CONFIG_HOME/issuelens/config.json)
//  4. Built-in defaults
//
// Use [Load] to obtain a merged [Config], [Save] to write it back, and
// [SetField] to update a single dotted key such as "llm.model".
package config
