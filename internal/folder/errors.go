package folder

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/fyrsmithlabs/attnd/internal/metadata"
	"github.com/fyrsmithlabs/attnd/internal/sanitize"
)

// Error kinds returned by Service. Every error from Service wraps exactly one
// of these, or a context error.
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("not found")
	ErrAccessDenied  = errors.New("access denied")
	ErrMalformedData = errors.New("malformed data")
	ErrIO            = errors.New("i/o failure")
	ErrUpstream      = errors.New("upstream failure")
	ErrTooLarge      = errors.New("file too large")
)

var kinds = []error{
	ErrInvalidInput, ErrNotFound, ErrAccessDenied, ErrMalformedData,
	ErrIO, ErrUpstream, ErrTooLarge,
}

// Kind returns the error kind wrapped by err, or nil if it has none.
func Kind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// classify tags err from a lower layer with the matching kind.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if Kind(err) != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var kind error
	switch {
	case errors.Is(err, sanitize.ErrEmptyPath), errors.Is(err, metadata.ErrInvalidEntry):
		kind = ErrInvalidInput
	case errors.Is(err, sanitize.ErrPathTraversal), errors.Is(err, fs.ErrPermission):
		kind = ErrAccessDenied
	case errors.Is(err, sanitize.ErrNotDirectory), errors.Is(err, fs.ErrNotExist):
		kind = ErrNotFound
	case errors.Is(err, metadata.ErrMalformedData):
		kind = ErrMalformedData
	default:
		kind = ErrIO
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}
