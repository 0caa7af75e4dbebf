//go:build !linux

package sim

import (
	"errors"

	"flashjitter/core"
)

var errNoChardev = errors.New("gpio character devices need linux")

type ChipMirror struct{}

func OpenChipMirror(chip string, pins ...core.GPIOPin) (*ChipMirror, error) {
	return nil, errNoChardev
}

func (m *ChipMirror) Set(core.GPIOPin, bool) error { return errNoChardev }

func (m *ChipMirror) Close() error { return nil }
