package clipboard

import (
	"errors"

	"github.com/atotto/clipboard"
)

var ErrUnsupported = errors.New("no system clipboard available")

// System is the operating system clipboard.
type System struct{}

func (System) Set(text string) error {
	if clipboard.Unsupported {
		return ErrUnsupported
	}
	return clipboard.WriteAll(text)
}

func (System) Get() (string, error) {
	if clipboard.Unsupported {
		return "", ErrUnsupported
	}
	return clipboard.ReadAll()
}
