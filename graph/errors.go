package graph

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrMalformedDocument is the cause of all fatal document errors.
	ErrMalformedDocument = errors.New("malformed document")
	// ErrUnresolvedNodeReference marks nd refs to nodes that are not in the
	// node table. These are never returned, only counted and logged.
	ErrUnresolvedNodeReference = errors.New("unresolved node reference")
)

// DocumentError describes where a document stopped making sense.
type DocumentError struct {
	// Element is the name of the offending element, empty for XML syntax
	// errors.
	Element string
	// Index is the 1-based number of the start element in the document.
	Index int
	// Offset is the byte offset in the input, -1 if unknown.
	Offset int64
	Msg    string
}

func (e *DocumentError) Error() string {
	pos := "syntax error"
	if e.Element != "" {
		pos = fmt.Sprintf("<%s> element #%d", e.Element, e.Index)
	}
	if e.Offset >= 0 {
		pos += fmt.Sprintf(" at byte %d", e.Offset)
	}
	return fmt.Sprintf("%s: %s: %s", ErrMalformedDocument, pos, e.Msg)
}

func (e *DocumentError) Cause() error  { return ErrMalformedDocument }
func (e *DocumentError) Unwrap() error { return ErrMalformedDocument }
