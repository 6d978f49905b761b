package triage

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/dshills/issuelens/internal/issue"
)

// TypeRule assigns Type when any pattern matches the issue text.
type TypeRule struct {
	Type     issue.Type `json:"type"`
	Patterns []string   `json:"patterns"`
}

// PriorityRule assigns Priority when any pattern matches the issue text or
// equals one of its labels.
type PriorityRule struct {
	Priority issue.Priority `json:"priority"`
	Patterns []string       `json:"patterns"`
}

// Rules is a triage rules pack. Rule order matters: the first match wins.
type Rules struct {
	DoneKeywords []string       `json:"doneKeywords,omitempty"`
	NoiseLabels  []string       `json:"noiseLabels,omitempty"`
	Types        []TypeRule     `json:"types,omitempty"`
	Priorities   []PriorityRule `json:"priorities,omitempty"`
}

// DefaultRules returns the built-in tables.
func DefaultRules() Rules {
	return Rules{
		DoneKeywords: []string{"done", "fixed", "resolved", "closed", "completed", "已解决"},
		NoiseLabels:  []string{"wontfix", "invalid", "duplicate", "help wanted", "good first issue"},
		Types: []TypeRule{
			{Type: issue.TypeBug, Patterns: []string{`\bbug\b`, `\bfix\b`}},
			{Type: issue.TypeEnhancement, Patterns: []string{`\benhancement\b`, `\bimprove\b`}},
			{Type: issue.TypeFeature, Patterns: []string{`\bfeat\b`, `\bfeature\b`}},
			{Type: issue.TypeDocumentation, Patterns: []string{`\bdocs?\b`}},
			{Type: issue.TypePerformance, Patterns: []string{`\bperf\b`, `\bperformance\b`}},
			{Type: issue.TypeSecurity, Patterns: []string{`\bsecurity\b`}},
			{Type: issue.TypeQuestion, Patterns: []string{`\bquestion\b`, `\bhow to\b`}},
		},
		Priorities: []PriorityRule{
			{Priority: issue.PriorityP0, Patterns: []string{"priority/critical", "critical"}},
			{Priority: issue.PriorityP1, Patterns: []string{"priority/major", "major"}},
			{Priority: issue.PriorityP2, Patterns: []string{"priority/minor", "minor"}},
		},
	}
}

// LoadRules loads a rules file from disk. Returns nil Rules and nil error if path is empty.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	var rules Rules
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing rules file: %w", err)
	}
	return &rules, nil
}

// Merge returns r with every non-empty table of override replacing its own.
func (r Rules) Merge(override *Rules) Rules {
	if override == nil {
		return r
	}
	if len(override.DoneKeywords) > 0 {
		r.DoneKeywords = override.DoneKeywords
	}
	if len(override.NoiseLabels) > 0 {
		r.NoiseLabels = override.NoiseLabels
	}
	if len(override.Types) > 0 {
		r.Types = override.Types
	}
	if len(override.Priorities) > 0 {
		r.Priorities = override.Priorities
	}
	return r
}

// SplitList splits a comma-separated keyword list. Full-width commas
// separate entries too.
func SplitList(s string) []string {
	s = strings.ReplaceAll(s, "，", ",")
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type compiledType struct {
	typ issue.Type
	res []*regexp.Regexp
}

type compiledPriority struct {
	prio   issue.Priority
	res    []*regexp.Regexp
	labels map[string]bool
}

// Classifier applies a compiled Rules pack.
type Classifier struct {
	done       []string
	noise      map[string]bool
	types      []compiledType
	priorities []compiledPriority
}

// Compile validates and compiles rules.
func Compile(r Rules) (*Classifier, error) {
	c := &Classifier{noise: make(map[string]bool)}
	for _, kw := range r.DoneKeywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			c.done = append(c.done, kw)
		}
	}
	for _, l := range r.NoiseLabels {
		c.noise[strings.ToLower(strings.TrimSpace(l))] = true
	}
	for _, tr := range r.Types {
		ct := compiledType{typ: tr.Type}
		for _, p := range tr.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("type %q pattern %q: %w", tr.Type, p, err)
			}
			ct.res = append(ct.res, re)
		}
		c.types = append(c.types, ct)
	}
	for _, pr := range r.Priorities {
		cp := compiledPriority{prio: pr.Priority, labels: make(map[string]bool)}
		for _, p := range pr.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("priority %q pattern %q: %w", pr.Priority, p, err)
			}
			cp.res = append(cp.res, re)
			cp.labels[strings.ToLower(strings.Trim(p, "/"))] = true
		}
		c.priorities = append(c.priorities, cp)
	}
	return c, nil
}

func text(is issue.Issue) string {
	return strings.ToLower(is.Title + " " + is.Body)
}

// Classify sets Type and Priority on a copy of is.
func (c *Classifier) Classify(is issue.Issue) issue.Issue {
	t := text(is)

	is.Type = issue.TypeOther
	for _, ct := range c.types {
		if anyMatch(ct.res, t) {
			is.Type = ct.typ
			break
		}
	}

	is.Priority = issue.PriorityP2
	for _, cp := range c.priorities {
		if anyMatch(cp.res, t) || hasLabel(is.Labels, cp.labels) {
			is.Priority = cp.prio
			break
		}
	}
	return is
}

// ShouldInclude reports whether is survives the filters.
func (c *Classifier) ShouldInclude(is issue.Issue) bool {
	if is.State != "open" {
		return false
	}
	if len(is.Assignees) > 0 {
		return false
	}
	t := text(is)
	for _, kw := range c.done {
		if strings.Contains(t, kw) {
			return false
		}
	}
	for _, l := range is.Labels {
		if c.noise[strings.ToLower(l)] {
			return false
		}
	}
	return true
}

// Apply classifies every issue and returns the survivors in input order.
func (c *Classifier) Apply(list []issue.Issue) []issue.Issue {
	out := make([]issue.Issue, 0, len(list))
	for _, is := range list {
		is = c.Classify(is)
		if c.ShouldInclude(is) {
			out = append(out, is)
		}
	}
	return out
}

func anyMatch(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func hasLabel(labels []string, want map[string]bool) bool {
	for _, l := range labels {
		if want[strings.ToLower(l)] {
			return true
		}
	}
	return false
}
