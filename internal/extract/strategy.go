// Package extract turns heterogeneous document sources into plain text by
// trying a fixed, ordered set of strategies and keeping the first success.
package extract

import "context"

// Strategy extracts text from one category of document.
// Implementations are stateless and safe for concurrent use.
type Strategy interface {
	// Type is the document type reported when this strategy succeeds.
	Type() DocumentType
	// CanProcess is a cheap admissibility check. It must not do heavy I/O.
	CanProcess(path string) bool
	// ExtractText returns the document text, or an error if none could be
	// produced. An empty string with a nil error is a valid result.
	ExtractText(ctx context.Context, path string) (string, error)
}

// Outcome is the result of one extraction attempt.
type Outcome struct {
	Type DocumentType
	Text string
	Err  error
}

// OK reports whether the attempt produced text.
func (o Outcome) OK() bool {
	return o.Err == nil
}
