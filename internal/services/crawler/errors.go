package crawler

import (
	"errors"
	"fmt"
)

// ErrInsufficientContent indicates the site yielded too little text to build
// article context, typically a JS-rendered page or a bot block.
var ErrInsufficientContent = errors.New("insufficient text content")

// FetchError wraps a page fetch failure with its URL and HTTP status.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
