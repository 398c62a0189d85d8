package extract

import (
	"context"
	"path/filepath"
	"strings"
)

type csvStrategy struct{}

// NewCSVStrategy returns the strategy for comma-separated files. The text is
// returned verbatim after charset decoding; delimiters and line endings are
// preserved.
func NewCSVStrategy() Strategy {
	return csvStrategy{}
}

func (csvStrategy) Type() DocumentType { return TypeCSV }

func (csvStrategy) CanProcess(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".csv"
}

func (s csvStrategy) ExtractText(_ context.Context, path string) (string, error) {
	return readDecoded(s.Type(), path)
}
