// Package cli provides output helpers for the doctext command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/doctext/internal/extract"
	"github.com/hyperjump/doctext/internal/storage"
	"github.com/hyperjump/doctext/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputJSON is the result envelope as indented JSON (default).
	OutputJSON OutputFormat = "json"
	// OutputText is a short header followed by the extracted text.
	OutputText OutputFormat = "text"
)

// ParseOutputFormat accepts "json" or "text", case-insensitively.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case OutputJSON, OutputText:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want json or text)", s)
	}
}

// WriteResult writes one extraction result to w. maxChars > 0 truncates the
// text in text format; JSON output is never truncated.
func WriteResult(w io.Writer, env extract.Envelope, format OutputFormat, maxChars int) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(env)
	}
	fmt.Fprintf(w, "Document: %s\n", env.DocumentName)
	fmt.Fprintf(w, "Type:     %s\n", env.DocumentType)
	fmt.Fprintf(w, "ID:       %s\n", env.DocumentID)
	fmt.Fprintf(w, "Chars:    %d (%dms)\n", env.CharCount, env.ElapsedMS)
	fmt.Fprintln(w, strings.Repeat("─", 57))
	_, err := fmt.Fprintln(w, utils.Truncate(env.TextPayload, maxChars))
	return err
}

// WriteRecords writes stored results to w, one line per record in text format.
func WriteRecords(w io.Writer, recs []*storage.Record, total int64, format OutputFormat) error {
	if format == OutputJSON {
		if recs == nil {
			recs = []*storage.Record{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{"documents": recs, "total": total})
	}
	fmt.Fprintf(w, "%d of %d stored results\n\n", len(recs), total)
	for _, rec := range recs {
		source := rec.SourcePath
		if source == "" {
			source = "(upload)"
		}
		fmt.Fprintf(w, "%s  %-9s  %6d chars  %s\n", rec.ID, rec.Type, rec.CharCount, rec.Name)
		fmt.Fprintf(w, "    %s\n", source)
		if preview := TruncateWords(rec.Text, 12); preview != "" {
			fmt.Fprintf(w, "    %s\n", preview)
		}
	}
	return nil
}

// TruncateWords returns up to maxWords words of s on a single line.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
