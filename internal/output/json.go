package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/issuelens/internal/report"
)

// JSONWriter outputs the full report as JSON.
type JSONWriter struct{}

func (j *JSONWriter) Write(w io.Writer, r *report.Report) error {
	if err := encodeJSON(w, r); err != nil {
		return fmt.Errorf("writing JSON report: %w", err)
	}
	return nil
}

// encodeJSON writes v indented and newline-terminated. Issue titles are
// left unescaped so <, > and & read as typed.
func encodeJSON(w io.Writer, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}
