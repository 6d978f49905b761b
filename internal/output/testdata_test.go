package output

import (
	"fmt"
	"time"

	"github.com/dshills/issuelens/internal/issue"
	"github.com/dshills/issuelens/internal/report"
)

func sampleReport(n int, summaries int) *report.Report {
	issues := make([]issue.Issue, n)
	sums := make([]string, 0, summaries)
	for i := range issues {
		issues[i] = issue.Issue{
			Number:    100 + i,
			Title:     fmt.Sprintf("Crash | when saving file %d", i),
			State:     "open",
			Type:      issue.TypeBug,
			Priority:  issue.PriorityP1,
			UpdatedAt: time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC),
			HTMLURL:   fmt.Sprintf("https://github.com/octo/hello/issues/%d", 100+i),
		}
		if i < summaries {
			sums = append(sums, fmt.Sprintf("Saving file %d crashes the editor.", i))
		}
	}
	return report.Build(report.Input{
		Version:      "1.0",
		Repo:         "octo/hello",
		Now:          time.Date(2024, 4, 3, 8, 0, 0, 0, time.UTC),
		Issues:       issues,
		Summaries:    sums,
		SummaryLimit: summaries,
		Timing:       report.Timing{FetchMs: 20, SummarizeMs: 900, TotalMs: 930},
	})
}
