// Package typeset turns annotated Markdown documents into a structured field
// map plus a Typst rendering of the body text. Decomposition, annotation
// scanning, and markup conversion are pure functions over their input; the
// Service here wires them together with logging and error categorisation so
// a host application has a single entry point.
package typeset

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-typeset/annotation"
	"github.com/goliatone/go-typeset/document"
	"github.com/goliatone/go-typeset/internal/logging"
	"github.com/goliatone/go-typeset/pkg/interfaces"
	"github.com/goliatone/go-typeset/typst"
)

// Text codes attached to errors crossing the service boundary.
const (
	codeMetadataMalformed = "METADATA_MALFORMED"
	codeMetadataUnclosed  = "METADATA_UNCLOSED"
	codeMarkupNesting     = "MARKUP_NESTING_LIMIT"
)

// Config controls the pipeline service. The zero value is usable.
type Config struct {
	// Logger receives pipeline entries; defaults to a no-op logger.
	Logger interfaces.Logger
}

// Service runs the decompose/scan/convert pipeline. It holds no mutable
// state, so one instance can serve concurrent callers without locking as
// long as each call owns its input.
type Service struct {
	log  interfaces.Logger
	conv *typst.Converter
}

// RenderResult carries everything the template and compiler collaborators
// need: the field map, the converted body, and the annotation spans that
// were applied to it.
type RenderResult struct {
	Document    *document.Document
	Markup      string
	Annotations []annotation.Range
}

// New constructs a pipeline service.
func New(cfg Config) *Service {
	log := cfg.Logger
	if log == nil {
		log = logging.NoOp()
	}
	return &Service{
		log:  log,
		conv: typst.NewConverter(),
	}
}

// Decompose splits a source document into its field map and body text.
func (s *Service) Decompose(ctx context.Context, source string) (*document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := document.Decompose(source)
	if err != nil {
		s.log.Error("document decomposition failed", "error", err)
		return nil, wrapDocumentError(err)
	}

	s.log.Debug("document decomposed",
		"fields", len(doc.Fields()),
		"body_bytes", len(doc.Body()),
		"template", doc.Template(),
	)
	return doc, nil
}

// Convert scans body text for annotation spans and renders it as Typst
// markup. The returned ranges address the original body bytes.
func (s *Service) Convert(ctx context.Context, body string) (string, []annotation.Range, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	ranges := annotation.Scan(body)
	markup, err := s.conv.Convert(body, ranges)
	if err != nil {
		s.log.Error("markup conversion failed", "error", err)
		return "", nil, goerrors.Wrap(err, goerrors.CategoryValidation, "markup conversion failed").
			WithTextCode(codeMarkupNesting)
	}

	s.log.Debug("body converted", "annotations", len(ranges), "markup_bytes", len(markup))
	return markup, ranges, nil
}

// Render runs the full pipeline over a source document.
func (s *Service) Render(ctx context.Context, source string) (*RenderResult, error) {
	doc, err := s.Decompose(ctx, source)
	if err != nil {
		return nil, err
	}

	markup, ranges, err := s.Convert(ctx, doc.Body())
	if err != nil {
		return nil, err
	}

	return &RenderResult{
		Document:    doc,
		Markup:      markup,
		Annotations: ranges,
	}, nil
}

func wrapDocumentError(err error) error {
	code := codeMetadataMalformed
	if errors.Is(err, document.ErrUnclosedMetadata) {
		code = codeMetadataUnclosed
	}
	return goerrors.Wrap(err, goerrors.CategoryValidation, "document decomposition failed").
		WithTextCode(code)
}
