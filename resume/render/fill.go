package render

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

// ErrMalformedTemplate is returned when a paragraph opens a {{ tag it never closes.
var ErrMalformedTemplate = errors.New("malformed template")

// FillResult is a filled document plus bookkeeping about the placeholders it held.
type FillResult struct {
	Document []byte
	// Filled counts placeholders in the document body that received a value.
	Filled int
	// Unresolved lists body placeholder names with no value; they are rendered empty.
	Unresolved []string
}

var (
	textRunPattern     = regexp.MustCompile(`(?s)(<w:t(?:\s[^>]*)?>)([^<]*)</w:t>`)
	placeholderPattern = regexp.MustCompile(`\{\{\s*([^{}]*?)\s*\}\}`)
)

// Fill substitutes {{name}} placeholders in a DOCX template. Placeholders split
// across runs are merged into the paragraph's first text run. Newlines in values
// become line breaks.
func Fill(template []byte, values map[string]string) (FillResult, error) {
	if len(template) == 0 {
		return FillResult{}, errors.New("empty template")
	}
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(template), int64(len(template)))
	if err != nil {
		return FillResult{}, fmt.Errorf("open template: %w", err)
	}
	defer doc.Close()
	editable := doc.Editable()

	body, stats, err := fillDocumentXML(editable.GetContent(), values)
	if err != nil {
		return FillResult{}, err
	}
	if err := validateXML(body); err != nil {
		return FillResult{}, fmt.Errorf("filled document.xml is not well-formed: %w", err)
	}
	editable.SetContent(body)

	for name, value := range values {
		token := "{{" + name + "}}"
		if err := editable.ReplaceHeader(token, value); err != nil {
			return FillResult{}, fmt.Errorf("header %s: %w", name, err)
		}
		if err := editable.ReplaceFooter(token, value); err != nil {
			return FillResult{}, fmt.Errorf("footer %s: %w", name, err)
		}
	}

	var out bytes.Buffer
	if err := editable.Write(&out); err != nil {
		return FillResult{}, fmt.Errorf("write document: %w", err)
	}
	return FillResult{
		Document:   out.Bytes(),
		Filled:     stats.filled,
		Unresolved: stats.unresolvedNames(),
	}, nil
}

type fillStats struct {
	filled     int
	unresolved map[string]struct{}
}

func (s fillStats) unresolvedNames() []string {
	out := make([]string, 0, len(s.unresolved))
	for name := range s.unresolved {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func fillDocumentXML(xmlText string, values map[string]string) (string, fillStats, error) {
	stats := fillStats{unresolved: map[string]struct{}{}}
	out, err := fillParagraphs(xmlText, values, &stats)
	if err != nil {
		return "", stats, err
	}
	return out, stats, nil
}

// fillParagraphs fills every top-level paragraph in s.
func fillParagraphs(s string, values map[string]string, stats *fillStats) (string, error) {
	spans := paragraphSpans(s)
	if len(spans) == 0 {
		return s, nil
	}
	var b strings.Builder
	last := 0
	for _, sp := range spans {
		b.WriteString(s[last:sp[0]])
		filled, err := fillNested(s[sp[0]:sp[1]], values, stats)
		if err != nil {
			return "", err
		}
		b.WriteString(filled)
		last = sp[1]
	}
	b.WriteString(s[last:])
	return b.String(), nil
}

// fillNested fills a paragraph that may hold other paragraphs, as a text box
// does. Inner paragraphs are masked while the outer runs are merged, then
// filled on their own.
func fillNested(p string, values map[string]string, stats *fillStats) (string, error) {
	bodyStart := strings.IndexByte(p, '>') + 1
	bodyEnd := len(p) - len(paragraphClose)
	inner := paragraphSpans(p[bodyStart:bodyEnd])
	if len(inner) == 0 {
		return fillParagraph(p, values, stats)
	}

	var masked strings.Builder
	children := make([]string, 0, len(inner))
	last := 0
	for i, sp := range inner {
		start, end := bodyStart+sp[0], bodyStart+sp[1]
		masked.WriteString(p[last:start])
		masked.WriteString(childMarker(i))
		child, err := fillNested(p[start:end], values, stats)
		if err != nil {
			return "", err
		}
		children = append(children, child)
		last = end
	}
	masked.WriteString(p[last:])

	outer, err := fillParagraph(masked.String(), values, stats)
	if err != nil {
		return "", err
	}
	for i, child := range children {
		outer = strings.Replace(outer, childMarker(i), child, 1)
	}
	return outer, nil
}

// childMarker cannot collide with document text: NUL is not legal in XML.
func childMarker(i int) string {
	return fmt.Sprintf("\x00%d\x00", i)
}

const paragraphClose = "</w:p>"

// paragraphSpans returns the [start, end) offsets of the outermost <w:p>
// elements in s, tracking nesting depth. Self-closing paragraphs and
// sibling tags such as <w:pPr> are skipped.
func paragraphSpans(s string) [][2]int {
	var spans [][2]int
	depth, start := 0, 0
	for i := 0; i < len(s); {
		next := strings.IndexByte(s[i:], '<')
		if next < 0 {
			break
		}
		at := i + next
		switch {
		case strings.HasPrefix(s[at:], paragraphClose):
			if depth > 0 {
				depth--
				if depth == 0 {
					spans = append(spans, [2]int{start, at + len(paragraphClose)})
				}
			}
			i = at + len(paragraphClose)
		case strings.HasPrefix(s[at:], "<w:p") && len(s) > at+4 && isNameEnd(s[at+4]):
			end := strings.IndexByte(s[at:], '>')
			if end < 0 {
				return spans
			}
			end += at
			if s[end-1] != '/' {
				if depth == 0 {
					start = at
				}
				depth++
			}
			i = end + 1
		default:
			i = at + 1
		}
	}
	return spans
}

func isNameEnd(c byte) bool {
	switch c {
	case '>', '/', ' ', '\t', '\n', '\r':
		return true
	}
	return false
}

func fillParagraph(p string, values map[string]string, stats *fillStats) (string, error) {
	runs := textRunPattern.FindAllStringSubmatchIndex(p, -1)
	if len(runs) == 0 {
		return p, nil
	}
	var combined strings.Builder
	for _, r := range runs {
		combined.WriteString(html.UnescapeString(p[r[4]:r[5]]))
	}
	text := combined.String()
	if !strings.Contains(text, "{{") {
		return p, nil
	}
	if err := checkBalanced(text); err != nil {
		return "", err
	}

	filled := placeholderPattern.ReplaceAllStringFunc(text, func(tag string) string {
		name := strings.TrimSpace(placeholderPattern.FindStringSubmatch(tag)[1])
		value, ok := values[name]
		if !ok {
			stats.unresolved[name] = struct{}{}
			return ""
		}
		stats.filled++
		return value
	})

	var b strings.Builder
	last := 0
	for i, r := range runs {
		b.WriteString(p[last:r[0]])
		if i == 0 {
			b.WriteString(`<w:t xml:space="preserve">`)
			b.WriteString(encodeRunText(filled))
			b.WriteString("</w:t>")
		} else {
			b.WriteString(p[r[2]:r[3]])
			b.WriteString("</w:t>")
		}
		last = r[1]
	}
	b.WriteString(p[last:])
	return b.String(), nil
}

func checkBalanced(text string) error {
	pos := 0
	for {
		open := strings.Index(text[pos:], "{{")
		if open < 0 {
			return nil
		}
		open += pos
		end := strings.Index(text[open+2:], "}}")
		if end < 0 {
			return fmt.Errorf("%w: unclosed tag near %q", ErrMalformedTemplate, snippet(text, open))
		}
		end += open + 2
		if strings.Contains(text[open+2:end], "{{") {
			return fmt.Errorf("%w: nested tag near %q", ErrMalformedTemplate, snippet(text, open))
		}
		pos = end + 2
	}
}

func snippet(text string, at int) string {
	end := at + 40
	if end > len(text) {
		end = len(text)
	}
	return text[at:end]
}

// encodeRunText escapes a value for a <w:t> body and turns newlines into <w:br/>.
func encodeRunText(value string) string {
	value = strings.ReplaceAll(value, "\r\n", "\n")
	lines := strings.Split(value, "\n")
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteString(`</w:t><w:br/><w:t xml:space="preserve">`)
		}
		var esc bytes.Buffer
		_ = xml.EscapeText(&esc, []byte(line))
		b.Write(esc.Bytes())
	}
	return b.String()
}

func validateXML(xmlText string) error {
	decoder := xml.NewDecoder(strings.NewReader(xmlText))
	for {
		_, err := decoder.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
