package extract

import (
	"fmt"
	"strings"
)

// DocumentType classifies a document by the strategy that extracted it.
type DocumentType string

// The closed set of document types, one per strategy.
const (
	TypePDFText  DocumentType = "pdf_text"
	TypePDFImage DocumentType = "pdf_image" // scanned or rasterised
	TypeImage    DocumentType = "image"
	TypeDOCX     DocumentType = "docx"
	TypeText     DocumentType = "text"
	TypeCSV      DocumentType = "csv"
)

var documentTypes = []DocumentType{TypePDFText, TypePDFImage, TypeImage, TypeDOCX, TypeText, TypeCSV}

// DocumentTypes returns every known document type.
func DocumentTypes() []DocumentType {
	return append([]DocumentType(nil), documentTypes...)
}

// IsPDF reports whether t is one of the PDF variants.
func (t DocumentType) IsPDF() bool {
	return strings.HasPrefix(string(t), "pdf")
}

// IsOCR reports whether strategies of this type rely on OCR.
func (t DocumentType) IsOCR() bool {
	return t == TypeImage || t == TypePDFImage
}

// Valid reports whether t is a known document type.
func (t DocumentType) Valid() bool {
	for _, known := range documentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseDocumentType parses the wire form of a document type.
func ParseDocumentType(s string) (DocumentType, error) {
	t := DocumentType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown document type %q", s)
	}
	return t, nil
}

// UnmarshalText rejects unknown document types.
func (t *DocumentType) UnmarshalText(b []byte) error {
	parsed, err := ParseDocumentType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
