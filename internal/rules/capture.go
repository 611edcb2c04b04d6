package rules

import (
	"strings"

	"github.com/benmartin/gtdflow/internal/models"
)

// ParseCaptureBatch splits a multi-line idea dump into individual capture
// texts: one line per item, trimmed, blank lines dropped.
func ParseCaptureBatch(input string) []string {
	var items []string
	for _, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			items = append(items, line)
		}
	}
	return items
}

// CanDeleteCapture reports whether a capture item may be deleted
func CanDeleteCapture(status models.CaptureStatus) bool {
	return status == models.CaptureStatusUnprocessed || status == models.CaptureStatusParked
}

// CanParkCapture reports whether a capture item may be parked
func CanParkCapture(status models.CaptureStatus) bool {
	return status == models.CaptureStatusUnprocessed
}
