// Package document decomposes annotated Markdown sources into a structured
// field map plus leftover body text. Metadata travels in delimiter-bound YAML
// blocks: an optional untagged block at the top of the document supplies
// global fields, and interspersed blocks tagged with the reserved SCOPE key
// aggregate into named sequences together with the prose that follows them.
package document

// Reserved keys and limits for metadata blocks.
const (
	// BodyField is the reserved field name holding leftover prose.
	BodyField = "body"

	// DefaultTemplate is reported when no TEMPLATE block names a route.
	DefaultTemplate = "default"

	scopeKey    = "SCOPE"
	templateKey = "TEMPLATE"

	// MaxInputSize bounds the whole source document.
	MaxInputSize = 10 << 20
	// MaxMetadataSize bounds a single metadata block's content.
	MaxMetadataSize = 1 << 20
)

// Document is the result of decomposing a source document. The field map
// always carries the reserved body field, possibly empty. Field iteration
// order is not significant.
type Document struct {
	fields   map[string]any
	template string
}

// Body returns the leftover prose after metadata extraction.
func (d *Document) Body() string {
	if d == nil {
		return ""
	}
	body, _ := d.fields[BodyField].(string)
	return body
}

// Template returns the routing value declared by a TEMPLATE block. The value
// is opaque to this package; dispatch belongs to the caller.
func (d *Document) Template() string {
	if d == nil || d.template == "" {
		return DefaultTemplate
	}
	return d.template
}

// Field returns a single field value by name.
func (d *Document) Field(name string) (any, bool) {
	if d == nil {
		return nil, false
	}
	value, ok := d.fields[name]
	return value, ok
}

// Fields returns the full field map, including the body field. The map is
// owned by the Document; callers must not mutate it.
func (d *Document) Fields() map[string]any {
	if d == nil {
		return nil
	}
	return d.fields
}

// isValidName reports whether a SCOPE or TEMPLATE value matches the
// [a-z_][a-z0-9_]* field name pattern.
func isValidName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '_':
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
