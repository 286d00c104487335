package loader

import (
	"errors"
	"fmt"
)

var (
	// ErrLoadTimeout marks requests still pending when the manager's
	// timeout expired.
	ErrLoadTimeout = errors.New("asset load timed out")
	// ErrUnexpectedContent is returned when fetched bytes are not of the
	// requested kind.
	ErrUnexpectedContent = errors.New("unexpected asset content")
	// ErrClosed is returned for requests made after Close.
	ErrClosed = errors.New("loader closed")
)

// AssetLoadFailedError wraps the cause of a failed request.
type AssetLoadFailedError struct {
	URL string
	Err error
}

func (e *AssetLoadFailedError) Error() string {
	return fmt.Sprintf("load %s: %v", e.URL, e.Err)
}

func (e *AssetLoadFailedError) Unwrap() error { return e.Err }
