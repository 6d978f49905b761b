// Package report assembles the result of one summarizer run.
//
// A [Report] carries the triaged issue list with summaries attached, the
// overview, fallback counts per failure reason, cache statistics and timing.
// Writers in the output package render it.
package report
