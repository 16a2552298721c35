package typst

import (
	"fmt"
	"strings"
	"unicode"
)

// markupReplacer escapes every character Typst assigns meaning in markup
// mode: comment introducers, formatting runes, function calls, math mode,
// scoping brackets, and references. Patterns are matched in a single pass so
// inserted backslashes are never re-escaped.
var markupReplacer = strings.NewReplacer(
	`\`, `\\`,
	"//", `\/\/`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"#", `\#`,
	"[", `\[`,
	"]", `\]`,
	"$", `\$`,
	"<", `\<`,
	">", `\>`,
	"@", `\@`,
)

// EscapeMarkup escapes text for safe use in Typst markup context.
func EscapeMarkup(s string) string {
	return markupReplacer.Replace(s)
}

// EscapeString escapes text for embedding in a Typst string literal. The
// escape set is deliberately narrower than EscapeMarkup's: inside quotes only
// the backslash, the quote itself, and control characters carry meaning.
func EscapeString(s string) string {
	var out strings.Builder
	out.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\':
			out.WriteString(`\\`)
		case '"':
			out.WriteString(`\"`)
		case '\n':
			out.WriteString(`\n`)
		case '\r':
			out.WriteString(`\r`)
		case '\t':
			out.WriteString(`\t`)
		default:
			if unicode.IsControl(r) {
				fmt.Fprintf(&out, "\\u{%x}", r)
				continue
			}
			out.WriteRune(r)
		}
	}
	return out.String()
}
