package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// docxDocumentXMLPath is the default path to the main document body inside a .docx zip.
const docxDocumentXMLPath = "word/document.xml"

// contentTypesPath is the path to [Content_Types].xml in OOXML packages.
const contentTypesPath = "[Content_Types].xml"

// docxMainContentType is the content type for the main document in DOCX files.
const docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"

var (
	// runContentRe matches <w:t>text</w:t> (group 1) or a <w:tab/>, <w:br/> or
	// <w:cr/> break (group 2), but not <w:tbl> or <w:tc>.
	runContentRe = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>|<w:(tab|br|cr)(?:\s[^>]*)?/>`)
	// pPrRe matches paragraph properties, whose <w:tabs> hold tab stops, not tabs.
	pPrRe = regexp.MustCompile(`(?s)<w:pPr(?:\s[^>]*)?>.*?</w:pPr>`)
	// paragraphRe does not match <w:pPr> or self-closing <w:p/>.
	paragraphRe = regexp.MustCompile(`(?s)<w:p(?:\s[^>]*)?>.*?</w:p>`)
	tableRe     = regexp.MustCompile(`(?s)<w:tbl(?:\s[^>]*)?>.*?</w:tbl>`)
	rowRe       = regexp.MustCompile(`(?s)<w:tr(?:\s[^>]*)?>.*?</w:tr>`)
	cellRe      = regexp.MustCompile(`(?s)<w:tc(?:\s[^>]*)?>.*?</w:tc>`)
)

// partNameRe extracts PartName from Override elements in [Content_Types].xml.
var partNameRe = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)

// partNameRe2 handles the case where ContentType appears before PartName.
var partNameRe2 = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`)

type docxStrategy struct{}

// NewDocxStrategy returns the strategy for Word .docx files.
func NewDocxStrategy() Strategy {
	return docxStrategy{}
}

func (docxStrategy) Type() DocumentType { return TypeDOCX }

func (docxStrategy) CanProcess(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".docx"
}

func (s docxStrategy) ExtractText(_ context.Context, path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", strategyErr(s.Type(), fmt.Errorf("read file: %w", err))
	}
	text, err := extractDOCX(content)
	if err != nil {
		return "", strategyErr(s.Type(), err)
	}
	return text, nil
}

// readZipFile returns the contents of the named entry, or nil if absent.
func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			_ = rc.Close()
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		_ = rc.Close()
		return buf.Bytes(), nil
	}
	return nil, nil
}

// findDocxMainDocumentPath finds the main document path from [Content_Types].xml.
// Returns the path without leading slash, or empty string if not found.
func findDocxMainDocumentPath(zr *zip.Reader) string {
	data, err := readZipFile(zr, contentTypesPath)
	if err != nil || data == nil {
		return ""
	}
	content := string(data)
	// Try both attribute orders
	if matches := partNameRe.FindStringSubmatch(content); len(matches) > 1 {
		return strings.TrimPrefix(matches[1], "/")
	}
	if matches := partNameRe2.FindStringSubmatch(content); len(matches) > 1 {
		return strings.TrimPrefix(matches[1], "/")
	}
	return ""
}

// extractDOCX returns body paragraphs one per line, followed by table rows
// with non-empty cells joined by tabs.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open DOCX: not a zip: %w", err)
	}

	docPath := findDocxMainDocumentPath(zr)
	if docPath == "" {
		docPath = docxDocumentXMLPath
	}
	docXML, err := readZipFile(zr, docPath)
	if err != nil {
		return "", fmt.Errorf("open DOCX: %w", err)
	}
	if docXML == nil {
		return "", fmt.Errorf("open DOCX: %s not found", docPath)
	}

	body := string(docXML)
	tables := tableRe.FindAllString(body, -1)
	body = tableRe.ReplaceAllString(body, "")

	var parts []string
	for _, p := range paragraphRe.FindAllString(body, -1) {
		if text := strings.TrimSpace(paragraphText(p)); text != "" {
			parts = append(parts, text)
		}
	}
	for _, tbl := range tables {
		for _, row := range rowRe.FindAllString(tbl, -1) {
			var cells []string
			for _, cell := range cellRe.FindAllString(row, -1) {
				if text := strings.TrimSpace(cellText(cell)); text != "" {
					cells = append(cells, text)
				}
			}
			if len(cells) > 0 {
				parts = append(parts, strings.Join(cells, "\t"))
			}
		}
	}
	return strings.Join(parts, "\n"), nil
}

// paragraphText concatenates the runs of one paragraph. Tabs become \t and
// line breaks \n.
func paragraphText(p string) string {
	p = pPrRe.ReplaceAllString(p, "")
	var b strings.Builder
	for _, m := range runContentRe.FindAllStringSubmatch(p, -1) {
		switch m[2] {
		case "tab":
			b.WriteByte('\t')
		case "br", "cr":
			b.WriteByte('\n')
		default:
			b.WriteString(html.UnescapeString(m[1]))
		}
	}
	return b.String()
}

func cellText(cell string) string {
	paras := paragraphRe.FindAllString(cell, -1)
	lines := make([]string, 0, len(paras))
	for _, p := range paras {
		lines = append(lines, paragraphText(p))
	}
	return strings.Join(lines, "\n")
}
