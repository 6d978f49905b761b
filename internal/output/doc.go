// Package output renders issue reports.
//
// Three formats are supported:
//   - text:     a console table of the top issues (default)
//   - markdown: the summary document with a one-liner and an issue table
//   - json:     the full structured report
//
// Use [GetWriter] to obtain a [Writer] for a format string. [WriteFiles]
// writes the report artifacts (summary.md and filtered_issues.json) into a
// directory.
package output
