package output

import (
	"bytes"
	"strings"
	"testing"
)

func TestMarkdownWriter_Empty(t *testing.T) {
	r := sampleReport(0, 0)

	var buf bytes.Buffer
	w := &MarkdownWriter{}
	if err := w.Write(&buf, r); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "# octo/hello open issues") {
		t.Error("Missing heading")
	}
	if !strings.Contains(out, "**0** open issues") {
		t.Errorf("Missing one-liner:\n%s", out)
	}
	if !strings.Contains(out, "No open issues need attention") {
		t.Error("Expected empty notice")
	}
	if strings.Contains(out, "| # |") {
		t.Error("Empty report should not render a table")
	}
}

func TestMarkdownWriter_Table(t *testing.T) {
	r := sampleReport(5, 3)
	r.Degradations = map[string]int{"timeout": 1}

	var buf bytes.Buffer
	w := &MarkdownWriter{}
	if err := w.Write(&buf, r); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "| # | Title | Type | Priority | Summary | Updated |") {
		t.Error("Missing table header")
	}
	if !strings.Contains(out, "[#100](https://github.com/octo/hello/issues/100)") {
		t.Error("Issue number should link to the issue")
	}
	if !strings.Contains(out, `Crash \| when saving file 0`) {
		t.Error("Pipes in titles should be escaped")
	}
	if !strings.Contains(out, "Saving file 2 crashes the editor.") {
		t.Error("Missing summary")
	}
	if strings.Contains(out, "#103") {
		t.Error("Only summarized issues belong in the table")
	}
	if !strings.Contains(out, "2 more issues are listed in filtered_issues.json") {
		t.Errorf("Missing overflow note:\n%s", out)
	}
	if !strings.Contains(out, "(timeout 1)") {
		t.Error("Missing degradation note")
	}
	if got := strings.Count(out, "| Bug | P1 |"); got != 3 {
		t.Errorf("table rows = %d, want 3", got)
	}
}
