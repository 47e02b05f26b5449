package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

// Fallback is handed to the prompt builder when no text could be pulled from the upload.
const Fallback = "Could not extract text. Analyze based on placeholders if present."

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Kind is the detected document format of an upload.
type Kind string

const (
	KindDOCX    Kind = "docx"
	KindPDF     Kind = "pdf"
	KindUnknown Kind = "unknown"
)

// ErrUnsupported is returned for payloads that are neither DOCX nor PDF.
var ErrUnsupported = errors.New("unsupported document type")

// Detect sniffs the payload first and falls back to the declared mime type and extension.
func Detect(data []byte, fileName, mimeType string) Kind {
	if bytes.HasPrefix(data, []byte("%PDF")) {
		return KindPDF
	}
	if isDocxZip(data) {
		return KindDOCX
	}
	clean := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	switch clean {
	case mimePDF:
		return KindPDF
	case mimeDOCX:
		return KindDOCX
	}
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return KindPDF
	case ".docx":
		return KindDOCX
	}
	return KindUnknown
}

// Text extracts plain text from an in-memory upload.
func Text(ctx context.Context, data []byte, fileName, mimeType string) (string, Kind, error) {
	if err := ctx.Err(); err != nil {
		return "", KindUnknown, err
	}
	kind := Detect(data, fileName, mimeType)
	var (
		text string
		err  error
	)
	switch kind {
	case KindPDF:
		text, err = extractPDF(data)
	case KindDOCX:
		text, err = extractDOCX(data)
	default:
		return "", kind, fmt.Errorf("%w: %s", ErrUnsupported, mimeType)
	}
	if err != nil {
		return "", kind, fmt.Errorf("extract %s %q: %w", kind, fileName, err)
	}
	return text, kind, nil
}

// TextOrFallback never fails: any extraction error or empty result yields Fallback.
// The returned error reports why the fallback was used, if it was.
func TextOrFallback(ctx context.Context, data []byte, fileName, mimeType string) (string, Kind, error) {
	text, kind, err := Text(ctx, data, fileName, mimeType)
	if err != nil {
		return Fallback, kind, err
	}
	if strings.TrimSpace(text) == "" {
		return Fallback, kind, errors.New("no text found in document")
	}
	return text, kind, nil
}

// extractPDF reads page by page, joining text runs on the same row so that
// headings and bullet lines survive as separate lines for the prompt.
func extractPDF(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		for _, row := range rows {
			var line strings.Builder
			for _, word := range row.Content {
				line.WriteString(word.S)
			}
			if s := strings.TrimSpace(line.String()); s != "" {
				b.WriteString(s)
				b.WriteByte('\n')
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}

func extractDOCX(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx data")
	}
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	defer doc.Close()
	return stripDocxXML(doc.Editable().GetContent()), nil
}

func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return raw
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.WriteString(string(t))
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				if buf.Len() > 0 {
					buf.WriteString("\n")
				}
			}
		case xml.StartElement:
			if t.Name.Local == "tab" {
				buf.WriteString("\t")
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

func isDocxZip(data []byte) bool {
	if len(data) < 4 || !bytes.HasPrefix(data, []byte("PK")) {
		return false
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == "word/document.xml" {
			return true
		}
	}
	return false
}
