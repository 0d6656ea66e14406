package browser

import (
	"errors"
	"fmt"
)

var (
	// ErrElementNotFound marks a required page region that never became visible.
	ErrElementNotFound = errors.New("element not found")
	// ErrSessionClosed is returned by calls made after Quit.
	ErrSessionClosed = errors.New("browser session closed")
	// ErrCookiesUnsupported is returned when the driver cannot export cookies.
	ErrCookiesUnsupported = errors.New("driver does not expose cookies")
)

// NotFound wraps ErrElementNotFound with the name of the missing region.
func NotFound(name string) error {
	return fmt.Errorf("%w: %s", ErrElementNotFound, name)
}
