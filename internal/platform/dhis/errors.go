package dhis

import (
	"errors"
	"fmt"
)

// ErrConflict is returned when the tracker system rejects a write with
// HTTP 409. Callers branch on it for retry/skip policy instead of treating
// the response as a fatal system error.
var ErrConflict = errors.New("tracker conflict")

// ImportError reports a write whose import summaries signal failure, even
// when the HTTP exchange itself succeeded.
type ImportError struct {
	Status      string
	Description string
}

func (e *ImportError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("tracker import failed with status %s", e.Status)
	}
	return fmt.Sprintf("tracker import failed with status %s: %s", e.Status, e.Description)
}

// StatusError reports a non-2xx HTTP response from the tracker API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tracker API returned status %d", e.Code)
}
