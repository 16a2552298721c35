package document

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedMetadata = errors.New("document: malformed metadata block")
	ErrUnclosedMetadata  = errors.New("document: metadata block not closed")
)

// MalformedMetadataError captures a metadata block whose content could not be
// parsed, or whose reserved keys are misused. Offset is the byte position of
// the block's opening delimiter within the source document.
type MalformedMetadataError struct {
	Offset int
	Reason string
	Err    error
}

func (e *MalformedMetadataError) Error() string {
	if e == nil {
		return ErrMalformedMetadata.Error()
	}
	reason := strings.TrimSpace(e.Reason)
	if reason == "" && e.Err != nil {
		reason = e.Err.Error()
	}
	if reason == "" {
		return ErrMalformedMetadata.Error()
	}
	return fmt.Sprintf("%s: %s", ErrMalformedMetadata.Error(), reason)
}

func (e *MalformedMetadataError) Unwrap() error {
	return ErrMalformedMetadata
}

// UnclosedMetadataError captures an opening delimiter at the top of the
// document that never sees a matching closing delimiter.
type UnclosedMetadataError struct {
	Offset int
}

func (e *UnclosedMetadataError) Error() string {
	if e == nil {
		return ErrUnclosedMetadata.Error()
	}
	return fmt.Sprintf("%s: opening delimiter at offset %d", ErrUnclosedMetadata.Error(), e.Offset)
}

func (e *UnclosedMetadataError) Unwrap() error {
	return ErrUnclosedMetadata
}
