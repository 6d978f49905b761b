package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/dshills/issuelens/internal/report"
)

// MarkdownWriter outputs the summary document.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, r *report.Report) error {
	ew := &errWriter{w: w}

	ew.printf("# %s open issues\n\n", r.Repo)
	ew.printf("%s\n\n", r.Overview.Oneliner())

	issues := r.Summarized()
	if len(issues) == 0 {
		ew.println("No open issues need attention. :white_check_mark:")
		return ew.err
	}

	ew.println("| # | Title | Type | Priority | Summary | Updated |")
	ew.println("|---|-------|------|----------|---------|---------|")
	for _, is := range issues {
		num := fmt.Sprintf("#%d", is.Number)
		if is.HTMLURL != "" {
			num = fmt.Sprintf("[#%d](%s)", is.Number, is.HTMLURL)
		}
		updated := ""
		if !is.UpdatedAt.IsZero() {
			updated = is.UpdatedAt.UTC().Format("2006-01-02")
		}
		ew.printf("| %s | %s | %s | %s | %s | %s |\n",
			num, mdCell(is.Title), is.Type, is.Priority, mdCell(is.Summary), updated)
	}

	if rest := len(r.Issues) - len(issues); rest > 0 {
		ew.printf("\n*%d more issues are listed in %s.*\n", rest, IssuesFile)
	}
	if n := r.Degraded(); n > 0 {
		ew.printf("\n> %d summaries are excerpts because the model was unavailable (%s).\n",
			n, formatCounts(r.Degradations))
	}
	ew.printf("\n*Generated %s in %dms (run %s)*\n",
		r.GeneratedAt.Format("2006-01-02 15:04 MST"), r.Timing.TotalMs, r.RunID)
	return ew.err
}

// mdCell keeps a value on one table row.
func mdCell(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
