//go:build linux

package sim

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"flashjitter/core"
)

// ChipMirror drives real lines of a Linux GPIO character device so the
// simulated signals can be watched on a logic analyzer.
type ChipMirror struct {
	chip  string
	lines map[core.GPIOPin]*gpiocdev.Line
}

// OpenChipMirror requests each pin as an output on chip (e.g. "gpiochip0"),
// using the pin number as the line offset. All lines start low.
func OpenChipMirror(chip string, pins ...core.GPIOPin) (*ChipMirror, error) {
	m := &ChipMirror{chip: chip, lines: make(map[core.GPIOPin]*gpiocdev.Line)}
	for _, pin := range pins {
		l, err := gpiocdev.RequestLine(chip, int(pin), gpiocdev.AsOutput(0), gpiocdev.WithConsumer("flashjitter"))
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("request %s:%d: %w", chip, pin, err)
		}
		m.lines[pin] = l
	}
	return m, nil
}

func (m *ChipMirror) Set(pin core.GPIOPin, level bool) error {
	l, ok := m.lines[pin]
	if !ok {
		return nil
	}
	v := 0
	if level {
		v = 1
	}
	return l.SetValue(v)
}

// Close reverts every line to an input and releases it.
func (m *ChipMirror) Close() error {
	var first error
	for pin, l := range m.lines {
		l.Reconfigure(gpiocdev.AsInput)
		if err := l.Close(); err != nil && first == nil {
			first = err
		}
		delete(m.lines, pin)
	}
	return first
}
