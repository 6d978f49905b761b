package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/dshills/issuelens/internal/report"
)

// ConsoleRows is how many issues the text format lists.
const ConsoleRows = 20

// TextWriter outputs a human-readable text report.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, r *report.Report) error {
	ew := &errWriter{w: w}

	ew.printf("%s — %d open issues need attention\n", r.Repo, r.Overview.Total)
	ew.println(strings.Repeat("─", 60))
	ew.printf("Bugs: %d | Feature requests: %d | Average priority: %s\n",
		r.Overview.Bugs, r.Overview.Features, r.Overview.AvgPriority)
	ew.println(strings.Repeat("─", 60))

	if len(r.Issues) == 0 {
		ew.println("\nNothing to triage.")
		return ew.err
	}

	tw := tabwriter.NewWriter(ew, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPRIORITY\tTYPE\tTITLE\tSUMMARY")
	for _, is := range r.Issues[:min(ConsoleRows, len(r.Issues))] {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			is.Number, is.Priority, is.Type, clip(is.Title, 50), clip(is.Summary, 60))
	}
	if err := tw.Flush(); err != nil && ew.err == nil {
		ew.err = err
	}
	if len(r.Issues) > ConsoleRows {
		ew.printf("... and %d more\n", len(r.Issues)-ConsoleRows)
	}

	ew.printf("\n%s\n", strings.Repeat("─", 60))
	if n := r.Degraded(); n > 0 {
		ew.printf("Fallback summaries: %d (%s)\n", n, formatCounts(r.Degradations))
	}
	ew.printf("Completed in %dms (fetch: %dms, summarize: %dms)\n",
		r.Timing.TotalMs, r.Timing.FetchMs, r.Timing.SummarizeMs)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) Write(p []byte) (int, error) {
	if ew.err != nil {
		return 0, ew.err
	}
	var n int
	n, ew.err = ew.w.Write(p)
	return n, ew.err
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

func clip(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	return string([]rune(s)[:width-1]) + "…"
}

// formatCounts renders counters as "auth 1, timeout 2", sorted by name.
func formatCounts(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %d", k, m[k]))
	}
	return strings.Join(parts, ", ")
}
