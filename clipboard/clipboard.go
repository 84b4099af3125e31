// Package clipboard copies suggestions to the system clipboard.
package clipboard

import (
	"errors"
	"strings"

	cb "github.com/atotto/clipboard"
)

var ErrUnsupported = errors.New("clipboard: no clipboard utility available")

func Available() bool {
	return !cb.Unsupported
}

func Read() (string, error) {
	if !Available() {
		return "", ErrUnsupported
	}
	return cb.ReadAll()
}

// Copy writes text to the clipboard. Blank text is rejected so an empty
// suggestion never clobbers what the user had copied.
func Copy(text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("clipboard: nothing to copy")
	}
	if !Available() {
		return ErrUnsupported
	}
	return cb.WriteAll(text)
}
