package typst

import (
	"errors"
	"fmt"
)

// ErrNestingTooDeep is the converter's only failure mode: a resource limit,
// never a parse error. Any well-formed Markdown within the limit converts.
var ErrNestingTooDeep = errors.New("typst: markup nesting exceeds limit")

// NestingDepthError reports the depth observed when the limit was crossed.
type NestingDepthError struct {
	Depth int
	Max   int
}

func (e *NestingDepthError) Error() string {
	if e == nil {
		return ErrNestingTooDeep.Error()
	}
	return fmt.Sprintf("%s: %d levels (max %d)", ErrNestingTooDeep.Error(), e.Depth, e.Max)
}

func (e *NestingDepthError) Unwrap() error {
	return ErrNestingTooDeep
}
