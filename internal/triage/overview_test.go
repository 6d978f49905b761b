package triage

import (
	"testing"
	"time"

	"github.com/dshills/issuelens/internal/issue"
)

func TestBuildOverview(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 3, d, 10, 0, 0, 0, time.UTC) }
	list := []issue.Issue{
		{Number: 1, Type: issue.TypeBug, Priority: issue.PriorityP0, UpdatedAt: day(1)},
		{Number: 2, Type: issue.TypeBug, Priority: issue.PriorityP1, UpdatedAt: day(9)},
		{Number: 3, Type: issue.TypeFeature, Priority: issue.PriorityP2, UpdatedAt: day(5)},
		{Number: 4, Type: issue.TypeOther, Priority: issue.PriorityP2, UpdatedAt: day(2)},
	}
	o := BuildOverview("octo/hello", list)

	if o.Total != 4 || o.Bugs != 2 || o.Features != 1 {
		t.Errorf("counts = %d/%d/%d", o.Total, o.Bugs, o.Features)
	}
	if o.ByType[issue.TypeOther] != 1 || o.ByPriority[issue.PriorityP2] != 2 {
		t.Errorf("ByType = %v, ByPriority = %v", o.ByType, o.ByPriority)
	}
	// (0+1+2+2)/4 = 1.25
	if o.AvgPriority != issue.PriorityP1 {
		t.Errorf("AvgPriority = %q, want P1", o.AvgPriority)
	}
	if !o.LatestUpdate.Equal(day(9)) {
		t.Errorf("LatestUpdate = %v", o.LatestUpdate)
	}
	want := "octo/hello currently has **4** open issues (2 bugs / 1 feature requests), average priority P1, last updated 2024-03-09."
	if got := o.Oneliner(); got != want {
		t.Errorf("Oneliner = %q\nwant       %q", got, want)
	}
}

func TestBuildOverview_Empty(t *testing.T) {
	o := BuildOverview("octo/empty", nil)
	if o.AvgPriority != issue.PriorityP2 {
		t.Errorf("AvgPriority = %q, want P2", o.AvgPriority)
	}
	want := "octo/empty currently has **0** open issues (0 bugs / 0 feature requests), average priority P2, last updated N/A."
	if got := o.Oneliner(); got != want {
		t.Errorf("Oneliner = %q", got)
	}
}
