// Package models holds the domain types exchanged between the client,
// the HTTP API and the stores.
package models

import (
	"time"

	"github.com/dmitrijs2005/sanposhin/internal/common"
)

// Status of a log entry.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// ParseStatus maps anything other than "cancelled" to completed.
func ParseStatus(s string) Status {
	if Status(s) == StatusCancelled {
		return StatusCancelled
	}
	return StatusCompleted
}

type Location struct {
	Name string `json:"name"`
}

// LogEntry is a user's response to a mission.
//
// ImageURL and ImageData are mutually exclusive once normalized: a remote
// URL always wins over inline bytes.
type LogEntry struct {
	ID          string    `json:"id,omitempty"`
	ClientID    string    `json:"clientId,omitempty"`
	UserID      string    `json:"userId"`
	MissionID   string    `json:"missionId"`
	MissionText string    `json:"missionText"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	ImageData   string    `json:"imageData,omitempty"`
	Location    *Location `json:"location,omitempty"`
	Memo        string    `json:"memo,omitempty"`
	IsPublic    bool      `json:"isPublic"`
	Status      Status    `json:"status"`
	CreatedAt   string    `json:"createdAt"`
}

// NormalizeImage enforces the one-image-reference invariant.
func (e *LogEntry) NormalizeImage() {
	if e.ImageURL != "" {
		e.ImageData = ""
	}
}

// Portable returns a copy without inline image bytes.
func (e LogEntry) Portable() LogEntry {
	e.ImageData = ""
	return e
}

// FormatTime renders t in the canonical CreatedAt form.
func FormatTime(t time.Time) string {
	return t.UTC().Format(common.TimeLayout)
}

// ParseTime accepts any RFC 3339 timestamp, including the canonical form.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
