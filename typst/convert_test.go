package typst

import (
	"errors"
	"strings"
	"testing"

	"github.com/goliatone/go-typeset/annotation"
)

func convert(t *testing.T, body string) string {
	t.Helper()
	got, err := Convert(body, annotation.Scan(body))
	if err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
	return got
}

func TestConvertHeadings(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "level 1", in: "# Heading 1", want: "= Heading 1\n\n"},
		{name: "level 3", in: "### Heading 3", want: "=== Heading 3\n\n"},
		{name: "level 6", in: "###### Heading 6", want: "====== Heading 6\n\n"},
		{name: "multiple", in: "# First\n\n## Second\n\n### Third", want: "= First\n\n== Second\n\n=== Third\n\n"},
		{name: "with formatting", in: "## Heading with **bold** and _italic_", want: "== Heading with *bold* and _italic_\n\n"},
		{name: "with special chars", in: "# Heading with $math$ and #functions", want: `= Heading with \$math\$ and \#functions` + "\n\n"},
		{name: "followed by paragraph", in: "# Heading\n\nThis is a paragraph.", want: "= Heading\n\nThis is a paragraph.\n\n"},
		{name: "after paragraph", in: "A paragraph.\n\n# A Heading", want: "A paragraph.\n\n= A Heading\n\n"},
		{name: "with inline code", in: "## Code example: `fn main()`", want: "== Code example: `fn main()`\n\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := convert(t, tc.in); got != tc.want {
				t.Fatalf("Convert(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestConvertEmphasis(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "italic", in: "*italic* text", want: "_italic_ text\n\n"},
		{name: "italic before punctuation", in: "*italic*.", want: "_italic_.\n\n"},
		{name: "italic before letter", in: "*Write y*our paragraphs here.", want: "_Write y_#{}our paragraphs here.\n\n"},
		{name: "bold", in: "**bold**", want: "*bold*\n\n"},
		{name: "bold before letter", in: "**bold**text", want: "*bold*#{}text\n\n"},
		{name: "underline", in: "__underlined__", want: "#underline[underlined]\n\n"},
		{name: "underline in sentence", in: "This is __underlined__ text", want: "This is #underline[underlined] text\n\n"},
		{name: "underline containing bold", in: "__A **B** A__", want: "#underline[A *B* A]\n\n"},
		{name: "bold containing underline", in: "**A __B__ A**", want: "*A #underline[B] A*\n\n"},
		{name: "adjacent underline bold", in: "__A__**B**", want: "#underline[A]*B*\n\n"},
		{name: "adjacent bold underline", in: "**A**__B__", want: "*A*#underline[B]\n\n"},
		{name: "strikethrough", in: "~~strike~~", want: "#strike[strike]\n\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := convert(t, tc.in); got != tc.want {
				t.Fatalf("Convert(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestConvertCommentEscaping(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "line start", in: "// not a comment", want: `\/\/ not a comment` + "\n\n"},
		{name: "mid sentence", in: "Some text // with slashes", want: `Some text \/\/ with slashes` + "\n\n"},
		{name: "bare url", in: "Check out https://example.com for more.", want: `Check out https:\/\/example.com for more.` + "\n\n"},
		{name: "single slash untouched", in: "Use path/to/file here", want: "Use path/to/file here\n\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := convert(t, tc.in); got != tc.want {
				t.Fatalf("Convert(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestConvertLinks(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "basic link",
			in:   "[Link text](https://example.com)",
			want: `#link("https://example.com")[Link text]` + "\n\n",
		},
		{
			name: "link in sentence",
			in:   "Visit [our site](https://example.com) for more.",
			want: `Visit #link("https://example.com")[our site] for more.` + "\n\n",
		},
		{
			name: "anchor destination stays literal",
			in:   "[Link](#anchor)",
			want: `#link("#anchor")[Link]` + "\n\n",
		},
		{
			name: "autolink",
			in:   "<https://example.com>",
			want: `#link("https://example.com")[https:\/\/example.com]` + "\n\n",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := convert(t, tc.in); got != tc.want {
				t.Fatalf("Convert(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestConvertLists(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "unordered",
			in:   "- Item 1\n- Item 2\n- Item 3",
			want: "- Item 1\n- Item 2\n- Item 3\n\n",
		},
		{
			name: "ordered",
			in:   "1. First\n2. Second\n3. Third",
			want: "+ First\n+ Second\n+ Third\n\n",
		},
		{
			name: "nested",
			in:   "- Item 1\n- Item 2\n  - Nested item\n- Item 3",
			want: "- Item 1\n- Item 2\n  - Nested item\n- Item 3\n\n",
		},
		{
			name: "with formatting",
			in:   "- **Bold** item\n- _Italic_ item\n- `Code` item",
			want: "- *Bold* item\n- _Italic_ item\n- `Code` item\n\n",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := convert(t, tc.in); got != tc.want {
				t.Fatalf("Convert(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestConvertCode(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "inline", in: "`code`", want: "`code`\n\n"},
		{name: "inline in sentence", in: "Text with `inline code` here", want: "Text with `inline code` here\n\n"},
		{name: "inline with backtick", in: "``a`b``", want: "``a`b``\n\n"},
		{name: "fenced with language", in: "```go\nfmt.Println()\n```\n", want: "```go\nfmt.Println()\n```\n\n"},
		{name: "fenced without language", in: "```\nplain code\n```\n", want: "```\nplain code\n```\n\n"},
		{name: "indented block", in: "    indented line\n", want: "```\nindented line\n```\n\n"},
		{
			name: "fence content with backtick run",
			in:   "````\ninner ``` fence\n````\n",
			want: "````\ninner ``` fence\n````\n\n",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := convert(t, tc.in); got != tc.want {
				t.Fatalf("Convert(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestConvertDroppedConstructs(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "image", in: "Before ![alt](img.png) after", want: "Before  after\n\n"},
		{name: "inline html tags", in: "Text <span>inline</span> here", want: "Text inline here\n\n"},
		{name: "html block", in: "<div>\nblock\n</div>\n", want: ""},
		{name: "blockquote tags", in: "> quoted text", want: "quoted text\n\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := convert(t, tc.in); got != tc.want {
				t.Fatalf("Convert(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestConvertAnnotations(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "single span",
			in:   "Take <<note>> here.",
			want: `Take #annot("note") here.` + "\n\n",
		},
		{
			name: "span with quotes",
			in:   `Note <<say "hi">> end.`,
			want: `Note #annot("say \"hi\"") end.` + "\n\n",
		},
		{
			name: "two spans",
			in:   "<<alpha>> and <<beta>>",
			want: `#annot("alpha") and #annot("beta")` + "\n\n",
		},
		{
			name: "span enclosing emphasis keeps interior spacing",
			in:   "x <<a *b* c>> y",
			want: `x #annot("a ")_#annot("b")_#annot(" c") y` + "\n\n",
		},
		{
			name: "span with padded content trims outer edges",
			in:   "Take << note >> here.",
			want: `Take #annot("note") here.` + "\n\n",
		},
		{
			name: "inline code stays literal",
			in:   "use `<<x>>` here",
			want: "use `<<x>>` here\n\n",
		},
		{
			name: "unmatched markers escape as text",
			in:   "shift << left",
			want: `shift \<\< left` + "\n\n",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := convert(t, tc.in); got != tc.want {
				t.Fatalf("Convert(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestConvertNestingDepthExceeded(t *testing.T) {
	body := strings.Repeat("> ", MaxNestingDepth+1) + "text"

	_, err := Convert(body, nil)
	if err == nil {
		t.Fatalf("expected nesting depth error")
	}
	if !errors.Is(err, ErrNestingTooDeep) {
		t.Fatalf("expected ErrNestingTooDeep, got %v", err)
	}

	var depthErr *NestingDepthError
	if !errors.As(err, &depthErr) {
		t.Fatalf("expected *NestingDepthError, got %T", err)
	}
	if depthErr.Max != MaxNestingDepth {
		t.Fatalf("max mismatch: got %d want %d", depthErr.Max, MaxNestingDepth)
	}
	if depthErr.Depth <= depthErr.Max {
		t.Fatalf("depth %d should exceed max %d", depthErr.Depth, depthErr.Max)
	}
}

func TestConvertNestingDepthWithinLimit(t *testing.T) {
	body := strings.Repeat("> ", 50) + "text"

	if _, err := Convert(body, nil); err != nil {
		t.Fatalf("Convert returned error: %v", err)
	}
}

func TestConvertEmptyBody(t *testing.T) {
	if got := convert(t, ""); got != "" {
		t.Fatalf("expected empty output, got %q", got)
	}
}
