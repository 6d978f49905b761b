package triage

import (
	"fmt"
	"math"
	"time"

	"github.com/dshills/issuelens/internal/issue"
)

// Overview aggregates a filtered issue list.
type Overview struct {
	Repo         string                 `json:"repo"`
	Total        int                    `json:"total"`
	Bugs         int                    `json:"bugs"`
	Features     int                    `json:"features"`
	ByType       map[issue.Type]int     `json:"byType"`
	ByPriority   map[issue.Priority]int `json:"byPriority"`
	AvgPriority  issue.Priority         `json:"avgPriority"`
	LatestUpdate time.Time              `json:"latestUpdate,omitempty"`
}

// BuildOverview counts issues by type and priority. The average priority is
// the rounded mean rank (P2 when there are no issues).
func BuildOverview(repo string, list []issue.Issue) Overview {
	o := Overview{
		Repo:        repo,
		Total:       len(list),
		ByType:      make(map[issue.Type]int),
		ByPriority:  make(map[issue.Priority]int),
		AvgPriority: issue.PriorityP2,
	}
	sum := 0
	for _, is := range list {
		o.ByType[is.Type]++
		o.ByPriority[is.Priority]++
		sum += is.Priority.Rank()
		switch is.Type {
		case issue.TypeBug:
			o.Bugs++
		case issue.TypeFeature:
			o.Features++
		}
		if is.UpdatedAt.After(o.LatestUpdate) {
			o.LatestUpdate = is.UpdatedAt
		}
	}
	if o.Total > 0 {
		avg := math.RoundToEven(float64(sum) / float64(o.Total))
		o.AvgPriority = issue.Priority(fmt.Sprintf("P%d", int(avg)))
	}
	return o
}

// Oneliner renders the overview as one Markdown sentence.
func (o Overview) Oneliner() string {
	latest := "N/A"
	if !o.LatestUpdate.IsZero() {
		latest = o.LatestUpdate.UTC().Format("2006-01-02")
	}
	return fmt.Sprintf("%s currently has **%d** open issues (%d bugs / %d feature requests), average priority %s, last updated %s.",
		o.Repo, o.Total, o.Bugs, o.Features, o.AvgPriority, latest)
}
