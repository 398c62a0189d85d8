package extract

import (
	"encoding/json"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Result is the immutable envelope returned by a successful Load.
type Result struct {
	id      string
	name    string
	docType DocumentType
	text    string
}

func newResult(name string, t DocumentType, text string) *Result {
	return &Result{
		id:      uuid.New().String(),
		name:    name,
		docType: t,
		text:    text,
	}
}

// ID is a random identifier unique to the Load call that produced r.
func (r *Result) ID() string { return r.id }

// Name is the display name of the source document.
func (r *Result) Name() string { return r.name }

// Type is the document type of the strategy that produced the text.
func (r *Result) Type() DocumentType { return r.docType }

// Text is the extracted text.
func (r *Result) Text() string { return r.text }

// Map returns the serialized shape of r.
func (r *Result) Map() map[string]any {
	return map[string]any{
		"document_id":   r.id,
		"document_name": r.name,
		"document_type": string(r.docType),
		"text_payload":  r.text,
	}
}

type resultJSON struct {
	DocumentID   string       `json:"document_id"`
	DocumentName string       `json:"document_name"`
	DocumentType DocumentType `json:"document_type"`
	TextPayload  string       `json:"text_payload"`
}

// MarshalJSON encodes r as {document_id, document_name, document_type, text_payload}.
func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{
		DocumentID:   r.id,
		DocumentName: r.name,
		DocumentType: r.docType,
		TextPayload:  r.text,
	})
}

// JSON is shorthand for MarshalJSON.
func (r *Result) JSON() ([]byte, error) {
	return r.MarshalJSON()
}

// UnmarshalJSON decodes the shape written by MarshalJSON. Unknown document
// types are rejected.
func (r *Result) UnmarshalJSON(data []byte) error {
	var v resultJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = Result{id: v.DocumentID, name: v.DocumentName, docType: v.DocumentType, text: v.TextPayload}
	return nil
}

// Envelope is a Result plus timing, the shape written by the CLI, the HTTP
// API and the watcher.
type Envelope struct {
	DocumentID   string       `json:"document_id"`
	DocumentName string       `json:"document_name"`
	DocumentType DocumentType `json:"document_type"`
	TextPayload  string       `json:"text_payload"`
	ElapsedMS    int64        `json:"elapsed_ms"`
	CharCount    int          `json:"char_count"`
}

// Envelope wraps r with the time the Load took. CharCount counts runes.
func (r *Result) Envelope(elapsed time.Duration) Envelope {
	return Envelope{
		DocumentID:   r.id,
		DocumentName: r.name,
		DocumentType: r.docType,
		TextPayload:  r.text,
		ElapsedMS:    elapsed.Milliseconds(),
		CharCount:    utf8.RuneCountInString(r.text),
	}
}
