package core

import (
	"strings"
	"testing"
)

// captureLogs collects console lines for the duration of a test.
func captureLogs(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	SetDebugWriter(func(s string) {
		lines = append(lines, s)
	})
	t.Cleanup(func() {
		SetDebugWriter(func(string) {})
	})
	return &lines
}

func containsLine(lines []string, substr string) bool {
	for _, l := range lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

// manualClock installs a clock the test advances by hand.
func manualClock(t *testing.T) *uint64 {
	t.Helper()
	now := new(uint64)
	SetClockSource(func() uint64 { return *now })
	t.Cleanup(func() {
		SetClockSource(func() uint64 { return 0 })
	})
	return now
}
