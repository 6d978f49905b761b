// Package summarize produces one-line issue summaries through the cache.
//
// Each issue goes through CACHE_CHECK, then PRODUCING under the retry
// policy, and ends in SUCCESS or, once the attempt budget is spent, in
// FALLBACK. Produced text that fails the quality check (empty, multi-line,
// too long) counts as a retryable quality_rejected failure. A fallback
// summary is a truncated excerpt of the issue's own title and body; it is
// cached with the full TTL like a real summary and counted per failure
// reason in Degradations. Only cache failures are returned as errors.
//
// SummarizeBatch splits large inputs into sequential chunks and runs each
// chunk behind a weighted semaphore, so no more than Concurrency completions
// are in flight. Results come back in input order.
package summarize
