// Package typst converts Markdown body text into Typst markup. The converter
// walks goldmark's source-offset-bearing AST and emits the Typst equivalent
// for each construct, applying markup-context escaping to prose, string
// escaping inside string literals, and wrapping annotated spans in an
// #annot call so a downstream show rule can style them.
package typst

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/goliatone/go-typeset/annotation"
)

// MaxNestingDepth bounds how deep Markdown structures may nest before the
// conversion is aborted with a NestingDepthError.
const MaxNestingDepth = 100

// Converter turns Markdown into Typst markup. It is stateless apart from the
// shared goldmark engine, so a single instance is safe for concurrent use;
// each conversion allocates its own walker.
type Converter struct {
	md goldmark.Markdown
}

// NewConverter constructs a converter with the strikethrough extension
// enabled, mirroring the constructs the output mapping supports.
func NewConverter() *Converter {
	return &Converter{
		md: goldmark.New(goldmark.WithExtensions(extension.Strikethrough)),
	}
}

// Convert renders body as Typst markup. ranges are annotation spans over the
// body's original bytes; any emitted text overlapping one is wrapped instead
// of carrying its literal marker characters through.
func (c *Converter) Convert(body string, ranges []annotation.Range) (string, error) {
	src := []byte(body)
	doc := c.md.Parser().Parse(text.NewReader(src))

	w := &walker{src: src, ranges: ranges, endNewline: true}
	if err := ast.Walk(doc, w.walk); err != nil {
		return "", err
	}
	return w.out.String(), nil
}

// Convert renders Markdown body text using a default converter.
func Convert(body string, ranges []annotation.Range) (string, error) {
	return NewConverter().Convert(body, ranges)
}

type listKind int

const (
	listBullet listKind = iota
	listOrdered
)

type strongKind int

const (
	strongBold strongKind = iota
	strongUnderline
)

// walker holds the per-conversion emission state. endNewline tracks whether
// the output currently sits at the start of a line; all overlap decisions use
// source offsets, never the output buffer length.
type walker struct {
	out        strings.Builder
	src        []byte
	ranges     []annotation.Range
	endNewline bool
	lists      []listKind
	strongs    []strongKind
	inListItem bool
	depth      int
}

func (w *walker) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		return w.enter(n)
	}
	w.exit(n)
	return ast.WalkContinue, nil
}

func (w *walker) enter(n ast.Node) (ast.WalkStatus, error) {
	switch n.(type) {
	case *ast.Document, *ast.Text, *ast.String:
	default:
		w.depth++
		if w.depth > MaxNestingDepth {
			return ast.WalkStop, &NestingDepthError{Depth: w.depth, Max: MaxNestingDepth}
		}
	}

	switch n := n.(type) {
	case *ast.Heading:
		if !w.endNewline {
			w.out.WriteByte('\n')
		}
		w.out.WriteString(strings.Repeat("=", n.Level))
		w.out.WriteByte(' ')
		w.endNewline = false

	case *ast.Paragraph:
		if !w.inListItem && !w.endNewline {
			w.out.WriteByte('\n')
			w.endNewline = true
		}

	case *ast.List:
		if !w.endNewline {
			w.out.WriteByte('\n')
			w.endNewline = true
		}
		kind := listBullet
		if n.IsOrdered() {
			kind = listOrdered
		}
		w.lists = append(w.lists, kind)

	case *ast.ListItem:
		w.inListItem = true
		if len(w.lists) > 0 {
			w.out.WriteString(strings.Repeat("  ", len(w.lists)-1))
			// Typst numbers ordered items itself; the source marker is
			// never copied through.
			if w.lists[len(w.lists)-1] == listOrdered {
				w.out.WriteString("+ ")
			} else {
				w.out.WriteString("- ")
			}
			w.endNewline = false
		}

	case *ast.Emphasis:
		if n.Level >= 2 {
			kind := w.strongMarker(n)
			w.strongs = append(w.strongs, kind)
			if kind == strongUnderline {
				w.out.WriteString("#underline[")
			} else {
				w.out.WriteByte('*')
			}
		} else {
			w.out.WriteByte('_')
		}
		w.endNewline = false

	case *east.Strikethrough:
		w.out.WriteString("#strike[")
		w.endNewline = false

	case *ast.Link:
		w.out.WriteString(`#link("`)
		w.out.WriteString(EscapeString(string(n.Destination)))
		w.out.WriteString(`")[`)
		w.endNewline = false

	case *ast.AutoLink:
		url := string(n.URL(w.src))
		w.out.WriteString(`#link("`)
		w.out.WriteString(EscapeString(url))
		w.out.WriteString(`")[`)
		w.out.WriteString(EscapeMarkup(url))
		w.out.WriteByte(']')
		w.endNewline = false
		return ast.WalkSkipChildren, nil

	case *ast.CodeSpan:
		w.writeCodeSpan(n)
		return ast.WalkSkipChildren, nil

	case *ast.FencedCodeBlock:
		language := ""
		if l := n.Language(w.src); l != nil {
			language = string(l)
		}
		w.writeCodeBlock(language, n.Lines())
		return ast.WalkSkipChildren, nil

	case *ast.CodeBlock:
		w.writeCodeBlock("", n.Lines())
		return ast.WalkSkipChildren, nil

	case *ast.RawHTML:
		// The tag itself is dropped, but a dropped tag can sit inside an
		// annotation span (`<<note>>` parses as text around a raw <note>
		// tag), so annotated portions still come through.
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			w.writeAnnotatedOnly(seg.Start, seg.Stop)
		}
		return ast.WalkSkipChildren, nil

	case *ast.HTMLBlock, *ast.Image:
		return ast.WalkSkipChildren, nil

	case *ast.Text:
		w.writeText(n)

	case *ast.String:
		w.writePlain(n.Value)
	}

	return ast.WalkContinue, nil
}

func (w *walker) exit(n ast.Node) {
	switch n.(type) {
	case *ast.Document, *ast.Text, *ast.String:
	default:
		if w.depth > 0 {
			w.depth--
		}
	}

	switch n := n.(type) {
	case *ast.Heading:
		w.out.WriteString("\n\n")
		w.endNewline = true

	case *ast.Paragraph:
		if !w.inListItem {
			w.out.WriteString("\n\n")
			w.endNewline = true
		}

	case *ast.List:
		if len(w.lists) > 0 {
			w.lists = w.lists[:len(w.lists)-1]
		}
		if len(w.lists) == 0 {
			w.out.WriteByte('\n')
			w.endNewline = true
		}

	case *ast.ListItem:
		w.inListItem = false
		if !w.endNewline {
			w.out.WriteByte('\n')
			w.endNewline = true
		}

	case *ast.Emphasis:
		if n.Level >= 2 {
			kind := strongBold
			if len(w.strongs) > 0 {
				kind = w.strongs[len(w.strongs)-1]
				w.strongs = w.strongs[:len(w.strongs)-1]
			}
			if kind == strongUnderline {
				w.out.WriteByte(']')
			} else {
				w.out.WriteByte('*')
				w.writeWordBoundary(n)
			}
		} else {
			w.out.WriteByte('_')
			w.writeWordBoundary(n)
		}
		w.endNewline = false

	case *east.Strikethrough:
		w.out.WriteByte(']')
		w.endNewline = false

	case *ast.Link:
		w.out.WriteByte(']')
		w.endNewline = false
	}
}

// writeWordBoundary emits an empty code block after a closing `_` or `*`
// marker when the next character is alphanumeric; Typst would otherwise read
// the marker as part of the following word and leave it unclosed.
func (w *walker) writeWordBoundary(n ast.Node) {
	next, ok := n.NextSibling().(*ast.Text)
	if !ok {
		return
	}
	value := next.Segment.Value(w.src)
	if len(value) == 0 {
		return
	}
	r, _ := utf8.DecodeRune(value)
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		w.out.WriteString("#{}")
	}
}

// strongMarker peeks at the source byte before the first piece of content to
// tell `__` runs (underline) apart from `**` runs (bold). goldmark reports
// both as level-2 emphasis.
func (w *walker) strongMarker(n *ast.Emphasis) strongKind {
	if off, ok := firstContentOffset(n); ok && off > 0 && w.src[off-1] == '_' {
		return strongUnderline
	}
	return strongBold
}

func firstContentOffset(n ast.Node) (int, bool) {
	if t, ok := n.(*ast.Text); ok {
		return t.Segment.Start, true
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if off, ok := firstContentOffset(c); ok {
			return off, true
		}
	}
	return 0, false
}

func (w *walker) writeText(n *ast.Text) {
	w.writeSpan(n.Segment.Start, n.Segment.Stop)
	if n.HardLineBreak() {
		w.out.WriteByte('\n')
		w.endNewline = true
	} else if n.SoftLineBreak() {
		w.out.WriteByte(' ')
		w.endNewline = false
	}
}

// writeSpan emits the source bytes in [start, stop), markup-escaped except
// where an annotation range overlaps. Because output length diverges from
// input length as escaping proceeds, overlap is always tested against the
// source offsets being processed.
func (w *walker) writeSpan(start, stop int) {
	for start < stop {
		r, ok := w.overlapping(start, stop)
		if !ok {
			w.writePlain(w.src[start:stop])
			return
		}
		if r.Start > start {
			w.writePlain(w.src[start:r.Start])
			start = r.Start
		}
		hi := min(stop, r.End)
		w.writeAnnotated(r, start, hi)
		start = hi
	}
}

// writeAnnotatedOnly emits only the annotated portions of [start, stop),
// dropping everything else.
func (w *walker) writeAnnotatedOnly(start, stop int) {
	for start < stop {
		r, ok := w.overlapping(start, stop)
		if !ok {
			return
		}
		hi := min(stop, r.End)
		w.writeAnnotated(r, max(start, r.Start), hi)
		start = hi
	}
}

func (w *walker) overlapping(start, stop int) (annotation.Range, bool) {
	for _, r := range w.ranges {
		if r.End <= start {
			continue
		}
		if r.Start >= stop {
			break
		}
		return r, true
	}
	return annotation.Range{}, false
}

// writeAnnotated renders the slice [lo, hi) of an annotation range. The
// marker bytes at both ends of the range are dropped; what remains is
// wrapped in an #annot call with string escaping, so arbitrary annotated
// content cannot break the surrounding markup. Whitespace is trimmed only at
// the range's outer edges: a range spanning inline markup arrives in pieces,
// and interior piece boundaries must keep their spacing.
func (w *walker) writeAnnotated(r annotation.Range, lo, hi int) {
	contentLo := max(lo, r.Start+2)
	contentHi := min(hi, r.End-2)
	if contentLo >= contentHi {
		return
	}
	content := string(w.src[contentLo:contentHi])
	if contentLo == r.Start+2 {
		content = strings.TrimLeftFunc(content, unicode.IsSpace)
	}
	if contentHi == r.End-2 {
		content = strings.TrimRightFunc(content, unicode.IsSpace)
	}
	if content == "" {
		return
	}
	w.out.WriteString(`#annot("`)
	w.out.WriteString(EscapeString(content))
	w.out.WriteString(`")`)
	w.endNewline = false
}

func (w *walker) writePlain(b []byte) {
	if len(b) == 0 {
		return
	}
	escaped := EscapeMarkup(string(b))
	w.out.WriteString(escaped)
	w.endNewline = strings.HasSuffix(escaped, "\n")
}

func (w *walker) writeCodeSpan(n *ast.CodeSpan) {
	var content strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			content.Write(t.Segment.Value(w.src))
		}
	}
	code := strings.ReplaceAll(content.String(), "\n", " ")

	// Typst raw spans use the same backtick syntax; a delimiter one longer
	// than any run inside the content keeps it verbatim.
	delim := strings.Repeat("`", maxRun(code, '`')+1)
	w.out.WriteString(delim)
	if strings.HasPrefix(code, "`") {
		w.out.WriteByte(' ')
	}
	w.out.WriteString(code)
	if strings.HasSuffix(code, "`") {
		w.out.WriteByte(' ')
	}
	w.out.WriteString(delim)
	w.endNewline = false
}

func (w *walker) writeCodeBlock(language string, lines *text.Segments) {
	var content strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		content.Write(seg.Value(w.src))
	}
	code := content.String()

	if !w.endNewline {
		w.out.WriteByte('\n')
	}
	fence := "```"
	if run := maxRun(code, '`'); run >= 3 {
		fence = strings.Repeat("`", run+1)
	}
	w.out.WriteString(fence)
	w.out.WriteString(language)
	w.out.WriteByte('\n')
	w.out.WriteString(code)
	if !strings.HasSuffix(code, "\n") {
		w.out.WriteByte('\n')
	}
	w.out.WriteString(fence)
	w.out.WriteString("\n\n")
	w.endNewline = true
}

func maxRun(s string, c byte) int {
	run, longest := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] != c {
			run = 0
			continue
		}
		run++
		if run > longest {
			longest = run
		}
	}
	return longest
}
