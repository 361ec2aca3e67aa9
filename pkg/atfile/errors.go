package atfile

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/calvinalkan/outline/pkg/outline"
)

// Format errors. They are wrapped in *FormatError when raised by the reader.
var (
	ErrMissingHeader      = errors.New("missing or unrecognized @+leo header")
	ErrMalformedSentinel  = errors.New("malformed sentinel")
	ErrMismatchedSentinel = errors.New("mismatched sentinel")
	ErrBadLevel           = errors.New("bad node level")
	ErrMissingEnd         = errors.New("missing @-leo sentinel")
	ErrRootGNX            = errors.New("root gnx is used by another node")
)

// Write errors.
var (
	ErrOrphanNode         = errors.New("node is not written by @others or a section reference")
	ErrInvalidHeadline    = errors.New("headline contains a newline")
	ErrMisplacedDirective = errors.New("misplaced directive")
	ErrSectionCycle       = errors.New("section reference cycle")
	ErrInvalidRoot        = errors.New("invalid root position")
	ErrUnknownEncoding    = errors.New("unknown encoding")
)

// FormatError is returned when sentinel text cannot be read. The tree is
// left untouched when a FormatError is returned.
//
// It formats as "<cause> (path=X line=N)":
//
//	mismatched sentinel: @-others without @+others (path=src/a.py line=12)
type FormatError struct {
	// Path is the file being read, if known.
	Path string
	// Line is the 1-based line number, 0 when not tied to a line.
	Line int
	// Err is the underlying cause.
	Err error
}

func (e *FormatError) Error() string {
	if e == nil {
		return ""
	}

	var parts []string

	if e.Path != "" {
		parts = append(parts, "path="+e.Path)
	}

	if e.Line > 0 {
		parts = append(parts, "line="+strconv.Itoa(e.Line))
	}

	cause := ""
	if e.Err != nil {
		cause = e.Err.Error()
	}

	if len(parts) == 0 {
		return cause
	}

	return cause + " (" + strings.Join(parts, " ") + ")"
}

// Unwrap returns the underlying error for use with [errors.Is].
func (e *FormatError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Err
}

// Warning reports a content problem that did not stop reading or writing:
// an undefined section reference, a clone whose text differs between
// occurrences, an unknown sentinel and the like.
type Warning struct {
	GNX      outline.GNX
	Headline string
	Line     int
	Msg      string
}

func (w Warning) String() string {
	var b strings.Builder

	if w.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", w.Line)
	}

	b.WriteString(w.Msg)

	if w.GNX != "" {
		fmt.Fprintf(&b, " (gnx=%s headline=%q)", w.GNX, w.Headline)
	}

	return b.String()
}
