package document

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// block is a located metadata block. start points at the opening delimiter,
// end sits just past the closing delimiter line, so src[end:] begins the text
// that follows the block.
type block struct {
	start    int
	end      int
	scope    string
	template string
	fields   map[string]any
}

// Decompose splits src into a field map and body text. Metadata blocks are
// delimited by `---` lines; the body field is always present. Errors are
// terminal: no partial Document is ever returned.
func Decompose(src string) (*Document, error) {
	if len(src) > MaxInputSize {
		return nil, &MalformedMetadataError{
			Reason: fmt.Sprintf("input exceeds %d bytes", MaxInputSize),
		}
	}

	blocks, err := findBlocks(src)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}

	if len(blocks) == 0 {
		fields[BodyField] = src
		return &Document{fields: fields}, nil
	}

	template := ""
	globalIdx := -1
	for i, b := range blocks {
		if b.template != "" {
			if template != "" {
				return nil, &MalformedMetadataError{
					Offset: b.start,
					Reason: "multiple TEMPLATE blocks, only one allowed",
				}
			}
			template = b.template
		}
		if b.scope == "" && b.template == "" {
			if globalIdx >= 0 {
				return nil, &MalformedMetadataError{
					Offset: b.start,
					Reason: "multiple untagged metadata blocks, only one allowed",
				}
			}
			globalIdx = i
		}
	}

	if globalIdx >= 0 {
		global := blocks[globalIdx]
		for _, other := range blocks {
			if other.scope == "" {
				continue
			}
			if existing, ok := global.fields[other.scope]; ok {
				if _, isArray := existing.([]any); !isArray {
					return nil, &MalformedMetadataError{
						Offset: other.start,
						Reason: fmt.Sprintf("scope %q collides with a non-sequence global field", other.scope),
					}
				}
			}
		}
		for key, value := range global.fields {
			fields[key] = value
		}
	}

	// A TEMPLATE block may carry additional fields; they merge into the
	// global map but may not shadow anything already declared.
	for _, b := range blocks {
		if b.template == "" {
			continue
		}
		for key, value := range b.fields {
			if _, exists := fields[key]; exists {
				return nil, &MalformedMetadataError{
					Offset: b.start,
					Reason: fmt.Sprintf("TEMPLATE block field %q collides with an existing field", key),
				}
			}
			fields[key] = value
		}
	}

	scoped := map[string][]any{}
	var scopeOrder []string
	for i, b := range blocks {
		if b.scope == "" {
			continue
		}
		if existing, ok := fields[b.scope]; ok {
			if _, isArray := existing.([]any); !isArray {
				return nil, &MalformedMetadataError{
					Offset: b.start,
					Reason: fmt.Sprintf("scope %q collides with a non-sequence global field", b.scope),
				}
			}
		}

		item := make(map[string]any, len(b.fields)+1)
		for key, value := range b.fields {
			item[key] = value
		}

		// The scope element owns the contiguous text that follows its
		// closing delimiter, up to the next block or end of input.
		bodyEnd := len(src)
		if i+1 < len(blocks) {
			bodyEnd = blocks[i+1].start
		}
		item[BodyField] = src[b.end:bodyEnd]

		if _, seen := scoped[b.scope]; !seen {
			scopeOrder = append(scopeOrder, b.scope)
		}
		scoped[b.scope] = append(scoped[b.scope], item)
	}

	// The global body runs from the end of the untagged block when one
	// exists, else from the end of the TEMPLATE block, else from the top of
	// the document, down to the first scope block after it.
	bodyStart := 0
	if globalIdx >= 0 {
		bodyStart = blocks[globalIdx].end
	} else {
		for _, b := range blocks {
			if b.template != "" {
				bodyStart = b.end
				break
			}
		}
	}
	bodyEnd := len(src)
	for _, b := range blocks {
		if b.scope != "" && b.start >= bodyStart {
			bodyEnd = b.start
			break
		}
	}
	fields[BodyField] = src[bodyStart:bodyEnd]

	for _, name := range scopeOrder {
		items := scoped[name]
		if existing, ok := fields[name]; ok {
			existingItems := existing.([]any)
			merged := make([]any, 0, len(existingItems)+len(items))
			merged = append(merged, existingItems...)
			merged = append(merged, items...)
			fields[name] = merged
			continue
		}
		fields[name] = items
	}

	return &Document{fields: fields, template: template}, nil
}

// findBlocks locates every metadata block in document order. A delimiter line
// followed by a blank line is a horizontal rule, never a block opening. An
// interior opening without a matching close degrades to body text; only an
// unclosed opening at offset zero is an error.
func findBlocks(src string) ([]block, error) {
	var blocks []block
	pos := 0

	for pos < len(src) {
		rel, delimLen := findOpeningDelimiter(src[pos:])
		if rel < 0 {
			break
		}
		abs := pos + rel

		if abs > 0 {
			prev := src[abs-1]
			if prev != '\n' && prev != '\r' {
				pos = abs + 1
				continue
			}
		}

		contentStart := abs + delimLen
		followedByBlank := strings.HasPrefix(src[contentStart:], "\n") ||
			strings.HasPrefix(src[contentStart:], "\r\n")

		// Blank line below means horizontal rule, not metadata.
		if followedByBlank {
			pos = abs + 3
			continue
		}

		rest := src[contentStart:]
		closePos, closeLen := findClosingDelimiter(rest)
		if closePos < 0 {
			if abs == 0 {
				return nil, &UnclosedMetadataError{Offset: abs}
			}
			pos = abs + 3
			continue
		}

		content := rest[:closePos]
		if len(content) > MaxMetadataSize {
			return nil, &MalformedMetadataError{
				Offset: abs,
				Reason: fmt.Sprintf("metadata block exceeds %d bytes", MaxMetadataSize),
			}
		}

		b, err := parseBlock(content, abs)
		if err != nil {
			return nil, err
		}
		b.start = abs
		b.end = contentStart + closePos + closeLen
		blocks = append(blocks, b)
		pos = b.end
	}

	return blocks, nil
}

// findOpeningDelimiter returns the offset and length of the next `---` line
// opening, accepting both LF and CRLF endings.
func findOpeningDelimiter(s string) (int, int) {
	lf := strings.Index(s, "---\n")
	crlf := strings.Index(s, "---\r\n")
	if crlf >= 0 && (lf < 0 || crlf < lf) {
		return crlf, 5
	}
	if lf >= 0 {
		return lf, 4
	}
	return -1, 0
}

// findClosingDelimiter returns the earliest closing `---` line within rest.
// The reported position marks the newline terminating the block content; the
// length spans through the end of the closing delimiter line. A closing
// delimiter flush at end of input needs no trailing newline.
func findClosingDelimiter(rest string) (int, int) {
	pos, length := -1, 0
	consider := func(p, l int) {
		if p >= 0 && (pos < 0 || p < pos) {
			pos, length = p, l
		}
	}

	consider(strings.Index(rest, "\n---\n"), 5)
	consider(strings.Index(rest, "\r\n---\r\n"), 7)
	consider(strings.Index(rest, "\n---\r\n"), 6)
	consider(strings.Index(rest, "\r\n---\n"), 6)

	if strings.HasSuffix(rest, "\r\n---") {
		consider(len(rest)-5, 5)
	} else if strings.HasSuffix(rest, "\n---") {
		consider(len(rest)-4, 4)
	}

	return pos, length
}

// parseBlock parses block content as a YAML mapping and extracts the reserved
// SCOPE and TEMPLATE keys. offset is used for error reporting only.
func parseBlock(content string, offset int) (block, error) {
	b := block{fields: map[string]any{}}
	if strings.TrimSpace(content) == "" {
		return b, nil
	}

	var mapping map[string]any
	if err := yaml.Unmarshal([]byte(content), &mapping); err != nil {
		return block{}, &MalformedMetadataError{
			Offset: offset,
			Reason: "content is not a YAML mapping",
			Err:    err,
		}
	}
	if mapping == nil {
		mapping = map[string]any{}
	}

	scopeValue, hasScope := mapping[scopeKey]
	templateValue, hasTemplate := mapping[templateKey]
	if hasScope && hasTemplate {
		return block{}, &MalformedMetadataError{
			Offset: offset,
			Reason: "block cannot declare both SCOPE and TEMPLATE",
		}
	}

	switch {
	case hasScope:
		name, ok := scopeValue.(string)
		if !ok {
			return block{}, &MalformedMetadataError{Offset: offset, Reason: "SCOPE value must be a string"}
		}
		if !isValidName(name) {
			return block{}, &MalformedMetadataError{
				Offset: offset,
				Reason: fmt.Sprintf("invalid scope name %q, must match [a-z_][a-z0-9_]*", name),
			}
		}
		if name == BodyField {
			return block{}, &MalformedMetadataError{
				Offset: offset,
				Reason: fmt.Sprintf("reserved field name %q cannot be used as a scope", BodyField),
			}
		}
		delete(mapping, scopeKey)
		b.scope = name
	case hasTemplate:
		name, ok := templateValue.(string)
		if !ok {
			return block{}, &MalformedMetadataError{Offset: offset, Reason: "TEMPLATE value must be a string"}
		}
		if !isValidName(name) {
			return block{}, &MalformedMetadataError{
				Offset: offset,
				Reason: fmt.Sprintf("invalid template name %q, must match [a-z_][a-z0-9_]*", name),
			}
		}
		delete(mapping, templateKey)
		b.template = name
	}

	b.fields = mapping
	return b, nil
}
