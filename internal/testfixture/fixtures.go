// Package testfixture builds small, valid document files for tests.
package testfixture

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// TextPage returns a PDF content stream that prints each line with Helvetica.
func TextPage(lines ...string) string {
	var b strings.Builder
	b.WriteString("BT\n/F1 12 Tf\n14 TL\n72 720 Td\n")
	for i, line := range lines {
		if i > 0 {
			b.WriteString("T*\n")
		}
		fmt.Fprintf(&b, "(%s) Tj\n", escapePDFString(line))
	}
	b.WriteString("ET")
	return b.String()
}

// BlankPage returns a content stream that only paints a rectangle, so the page
// has no text layer.
func BlankPage() string {
	return "0.5 g\n72 72 200 200 re\nf"
}

// PDF assembles a PDF document with one page per content stream. Offsets in
// the cross-reference table are computed from the emitted bytes.
func PDF(pages ...string) []byte {
	specs := make([]pageSpec, len(pages))
	for i, content := range pages {
		specs[i] = pageSpec{content: content}
	}
	return buildPDF(specs)
}

// ScannedPDF returns a PDF whose pages are JPEG images of the given lines of
// text, with no text layer. Each argument is one page.
func ScannedPDF(pages ...[]string) ([]byte, error) {
	specs := make([]pageSpec, len(pages))
	for i, lines := range pages {
		img, w, h, err := renderJPEG(lines)
		if err != nil {
			return nil, err
		}
		specs[i] = pageSpec{
			content: fmt.Sprintf("q\n612 0 0 %d 0 %d cm\n/Im1 Do\nQ", 612*h/w, 792-612*h/w),
			image:   img,
			imageW:  w,
			imageH:  h,
		}
	}
	return buildPDF(specs), nil
}

type pageSpec struct {
	content string
	image   []byte
	imageW  int
	imageH  int
}

func buildPDF(pages []pageSpec) []byte {
	if len(pages) == 0 {
		pages = []pageSpec{{content: BlankPage()}}
	}
	// 1: catalog, 2: pages, 3: font, then (page, contents, image) triples.
	const perPage = 3
	var objects []string
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+perPage*i)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	)
	for i, p := range pages {
		pageObj := 4 + perPage*i
		resources := "<< /Font << /F1 3 0 R >> >>"
		imageObj := "<< /Length 0 >>\nstream\n\nendstream"
		if p.image != nil {
			resources = fmt.Sprintf("<< /Font << /F1 3 0 R >> /XObject << /Im1 %d 0 R >> >>", pageObj+2)
			imageObj = fmt.Sprintf("<< /Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceGray /BitsPerComponent 8 /Filter /DCTDecode /Length %d >>\nstream\n%s\nendstream",
				p.imageW, p.imageH, len(p.image), p.image)
		}
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources %s /Contents %d 0 R >>", resources, pageObj+1),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(p.content)+1, p.content),
			imageObj,
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

// renderJPEG draws lines in a bitmap font, scaled up so OCR can read it.
func renderJPEG(lines []string) ([]byte, int, int, error) {
	const scale = 4
	face := basicfont.Face7x13
	width := 0
	for _, l := range lines {
		if n := font.MeasureString(face, l).Ceil(); n > width {
			width = n
		}
	}
	width += 20
	lineHeight := face.Metrics().Height.Ceil() + 4
	height := lineHeight*len(lines) + 20

	small := image.NewGray(image.Rect(0, 0, width, height))
	draw.Draw(small, small.Bounds(), image.White, image.Point{}, draw.Src)
	d := &font.Drawer{Dst: small, Src: image.Black, Face: face}
	for i, l := range lines {
		d.Dot = fixed.P(10, 10+lineHeight*(i+1)-4)
		d.DrawString(l)
	}

	big := image.NewGray(image.Rect(0, 0, width*scale, height*scale))
	for y := 0; y < height*scale; y++ {
		for x := 0; x < width*scale; x++ {
			big.SetGray(x, y, small.GrayAt(x/scale, y/scale))
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, big, &jpeg.Options{Quality: 95}); err != nil {
		return nil, 0, 0, err
	}
	return buf.Bytes(), width * scale, height * scale, nil
}

func escapePDFString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

// Docx returns a minimal .docx archive. Each paragraph becomes a <w:p>; each
// table row is a slice of cell texts.
func Docx(paragraphs []string, rows [][]string) []byte {
	var body strings.Builder
	for _, p := range paragraphs {
		fmt.Fprintf(&body, `<w:p w:rsidR="00A1"><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p>`, p)
	}
	if len(rows) > 0 {
		body.WriteString("<w:tbl>")
		for _, row := range rows {
			body.WriteString("<w:tr>")
			for _, cell := range row {
				fmt.Fprintf(&body, `<w:tc><w:p><w:r><w:t>%s</w:t></w:r></w:p></w:tc>`, cell)
			}
			body.WriteString("</w:tr>")
		}
		body.WriteString("</w:tbl>")
	}

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	ct, _ := w.Create("[Content_Types].xml")
	_, _ = ct.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`))
	fw, _ := w.Create("word/document.xml")
	_, _ = fw.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body.String() + `</w:body></w:document>`))
	_ = w.Close()
	return buf.Bytes()
}

// WriteFile writes content to name inside a fresh temp dir and returns the path.
func WriteFile(t testing.TB, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatal(err)
	}
	return path
}
