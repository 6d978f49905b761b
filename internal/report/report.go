package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/dshills/issuelens/internal/cache"
	"github.com/dshills/issuelens/internal/issue"
	"github.com/dshills/issuelens/internal/triage"
)

// Tool is the name recorded in every report.
const Tool = "issuelens"

// DefaultSummaryLimit is how many issues get a summary.
const DefaultSummaryLimit = 100

// Timing contains performance metrics.
type Timing struct {
	FetchMs     int64 `json:"fetchMs"`
	SummarizeMs int64 `json:"summarizeMs"`
	TotalMs     int64 `json:"totalMs"`
}

// Report is the top-level output structure.
type Report struct {
	Tool         string          `json:"tool"`
	Version      string          `json:"version"`
	RunID        string          `json:"runId"`
	Repo         string          `json:"repo"`
	GeneratedAt  time.Time       `json:"generatedAt"`
	Offline      bool            `json:"offline,omitempty"`
	FromCache    bool            `json:"fromCache"`
	SummaryLimit int             `json:"summaryLimit"`
	Overview     triage.Overview `json:"overview"`
	Issues       []issue.Issue   `json:"issues"`
	Degradations map[string]int  `json:"degradations"`
	Cache        *cache.Stats    `json:"cache,omitempty"`
	Timing       Timing          `json:"timing"`
}

// Input is everything Build needs.
type Input struct {
	Version string
	Repo    string
	Now     time.Time
	Offline bool
	// FromCache is set when the issue list was served from the cache.
	FromCache bool
	// Issues is the triaged list. Summaries[i] belongs to Issues[i];
	// issues past len(Summaries) stay unsummarized.
	Issues       []issue.Issue
	Summaries    []string
	SummaryLimit int
	Degradations map[string]int
	Cache        *cache.Stats
	Timing       Timing
}

// Build assembles a report. The input slices are not modified.
func Build(in Input) *Report {
	if in.SummaryLimit <= 0 {
		in.SummaryLimit = DefaultSummaryLimit
	}
	if in.Now.IsZero() {
		in.Now = time.Now()
	}
	issues := make([]issue.Issue, len(in.Issues))
	copy(issues, in.Issues)
	for i := range issues {
		if i < len(in.Summaries) && i < in.SummaryLimit {
			issues[i].Summary = in.Summaries[i]
		}
	}
	deg := in.Degradations
	if deg == nil {
		deg = map[string]int{}
	}
	return &Report{
		Tool:         Tool,
		Version:      in.Version,
		RunID:        uuid.NewString(),
		Repo:         in.Repo,
		GeneratedAt:  in.Now.UTC(),
		Offline:      in.Offline,
		FromCache:    in.FromCache,
		SummaryLimit: in.SummaryLimit,
		Overview:     triage.BuildOverview(in.Repo, issues),
		Issues:       issues,
		Degradations: deg,
		Cache:        in.Cache,
		Timing:       in.Timing,
	}
}

// Summarized returns the issues that were eligible for a summary.
func (r *Report) Summarized() []issue.Issue {
	return r.Issues[:min(r.SummaryLimit, len(r.Issues))]
}

// Degraded returns how many summaries are fallbacks.
func (r *Report) Degraded() int {
	n := 0
	for _, v := range r.Degradations {
		n += v
	}
	return n
}
