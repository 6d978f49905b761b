package output

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dshills/issuelens/internal/report"
)

// Artifact file names written by WriteFiles.
const (
	SummaryFile = "summary.md"
	IssuesFile  = "filtered_issues.json"
)

// Writer writes a report in a specific format.
type Writer interface {
	Write(w io.Writer, r *report.Report) error
}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch format {
	case "text", "":
		return &TextWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	case "markdown", "md":
		return &MarkdownWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteReport writes the report to outPath, or to stdout when outPath is empty.
func WriteReport(r *report.Report, format, outPath string) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}

	var w io.Writer
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	} else {
		w = os.Stdout
	}

	return writer.Write(w, r)
}

// WriteFiles writes the Markdown summary and the filtered issue list into
// dir, creating it if needed, and returns the paths written.
func WriteFiles(r *report.Report, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	mdPath := filepath.Join(dir, SummaryFile)
	if err := WriteReport(r, "markdown", mdPath); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := encodeJSON(&buf, r.Issues); err != nil {
		return nil, fmt.Errorf("encoding issues: %w", err)
	}
	jsonPath := filepath.Join(dir, IssuesFile)
	if err := os.WriteFile(jsonPath, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", IssuesFile, err)
	}
	return []string{mdPath, jsonPath}, nil
}
