package cache

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/dshills/issuelens/internal/issue"
)

// Kind tags the shape held by a Value.
type Kind string

const (
	KindIssues  Kind = "issues"
	KindSummary Kind = "summary"
	KindJSON    Kind = "json"
)

// schemaVersion is bumped whenever the envelope layout changes; rows
// written under another version read as misses.
const schemaVersion = 1

// ErrUnknownSchema is returned when a stored envelope cannot be read by
// this version.
var ErrUnknownSchema = errors.New("unknown cache value schema")

// Value is a cached payload. Exactly one field matches Kind.
type Value struct {
	Kind    Kind
	Issues  []issue.Issue
	Summary string
	JSON    json.RawMessage
}

// IssuesValue wraps a fetched issue list.
func IssuesValue(list []issue.Issue) Value {
	return Value{Kind: KindIssues, Issues: list}
}

// SummaryValue wraps a one-line summary.
func SummaryValue(s string) Value {
	return Value{Kind: KindSummary, Summary: s}
}

// JSONValue marshals v into a free-form JSON value.
func JSONValue(v any) (Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Value{}, errors.Wrap(err, "marshal json value")
	}
	return Value{Kind: KindJSON, JSON: data}, nil
}

// Decode unmarshals a KindJSON value into dst.
func (v Value) Decode(dst any) error {
	if v.Kind != KindJSON {
		return errors.Errorf("cache value is %s, not json", v.Kind)
	}
	return errors.Wrap(json.Unmarshal(v.JSON, dst), "decode json value")
}

type envelope struct {
	Version int             `json:"v"`
	Kind    Kind            `json:"kind"`
	Issues  []issue.Issue   `json:"issues,omitempty"`
	Summary string          `json:"summary,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func encodeValue(v Value) (string, error) {
	env := envelope{Version: schemaVersion, Kind: v.Kind}
	switch v.Kind {
	case KindIssues:
		env.Issues = v.Issues
	case KindSummary:
		env.Summary = v.Summary
	case KindJSON:
		var buf bytes.Buffer
		if err := json.Compact(&buf, v.JSON); err != nil {
			return "", errors.Wrap(err, "compact json value")
		}
		env.Data = buf.Bytes()
	default:
		return "", errors.Errorf("cannot encode cache value of kind %q", v.Kind)
	}
	data, err := json.Marshal(env)
	if err != nil {
		return "", errors.Wrap(err, "marshal cache envelope")
	}
	return string(data), nil
}

func decodeValue(s string) (Value, error) {
	var env envelope
	if err := json.Unmarshal([]byte(s), &env); err != nil {
		return Value{}, errors.Wrapf(ErrUnknownSchema, "unmarshal envelope: %v", err)
	}
	if env.Version != schemaVersion {
		return Value{}, errors.Wrapf(ErrUnknownSchema, "version %d", env.Version)
	}
	switch env.Kind {
	case KindIssues:
		if env.Issues == nil {
			env.Issues = []issue.Issue{}
		}
		return IssuesValue(env.Issues), nil
	case KindSummary:
		return SummaryValue(env.Summary), nil
	case KindJSON:
		return Value{Kind: KindJSON, JSON: env.Data}, nil
	default:
		return Value{}, errors.Wrapf(ErrUnknownSchema, "kind %q", env.Kind)
	}
}
