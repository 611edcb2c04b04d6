package models

import (
	"time"

	"github.com/google/uuid"
)

// CaptureStatus represents the status of a capture item
type CaptureStatus string

const (
	CaptureStatusUnprocessed CaptureStatus = "UNPROCESSED"
	CaptureStatusProcessed   CaptureStatus = "PROCESSED"
	CaptureStatusParked      CaptureStatus = "PARKED"
	CaptureStatusDeleted     CaptureStatus = "DELETED"
)

// CaptureItem is a raw, unclarified idea. RawText is immutable once
// captured; only the status moves.
type CaptureItem struct {
	ID         uuid.UUID     `json:"id"`
	RawText    string        `json:"raw_text"`
	Status     CaptureStatus `json:"status"`
	Source     string        `json:"source"`
	CapturedAt time.Time     `json:"captured_at"`
}
