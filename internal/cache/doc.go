// Package cache is the two-tier cache in front of the GitHub issue fetch and
// the LLM summaries.
//
// The memory tier is a bounded in-process map that evicts the entry closest
// to expiry when it grows past its bound. The durable tier is a single sqlite
// table (key, value, expires_at) that survives restarts and is the source of
// truth after a memory miss. Cache coordinates the two: reads check memory,
// then sqlite, promoting durable hits; writes go to memory first and sqlite
// second; expired rows are swept from both tiers on a time interval.
//
// Values are stored as a versioned JSON envelope around a tagged union of
// the cacheable shapes (issue list, summary text, free-form JSON). Keys come
// from the derivation helpers in keys.go, which hash a canonical JSON form of
// the subject so that field order and raw credentials never reach the key.
//
// A failing sqlite tier is reported as ErrStorageUnavailable and is never
// turned into a cache miss.
package cache
