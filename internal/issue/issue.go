package issue

import "time"

// Type is the rule-derived category of an issue.
type Type string

const (
	TypeBug           Type = "Bug"
	TypeEnhancement   Type = "Enhancement"
	TypeFeature       Type = "Feature Request"
	TypeDocumentation Type = "Documentation"
	TypePerformance   Type = "Performance"
	TypeSecurity      Type = "Security"
	TypeQuestion      Type = "Question"
	TypeOther         Type = "Other"
)

// Priority is the rule-derived urgency of an issue.
type Priority string

const (
	PriorityP0 Priority = "P0"
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
)

// Rank returns 0 for P0 through 2 for P2. Unknown priorities rank as P2.
func (p Priority) Rank() int {
	switch p {
	case PriorityP0:
		return 0
	case PriorityP1:
		return 1
	default:
		return 2
	}
}

// Issue is an open GitHub issue plus the fields computed during triage.
type Issue struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Labels    []string  `json:"labels"`
	Assignees []string  `json:"assignees"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	HTMLURL   string    `json:"html_url"`
	Type      Type      `json:"type,omitempty"`
	Priority  Priority  `json:"priority,omitempty"`
	Summary   string    `json:"summary,omitempty"`
}
