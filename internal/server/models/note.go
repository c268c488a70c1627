// Package models defines the durable data types persisted by the server.
package models

import "time"

// Note is a sticky note as stored durably. Positions are world-space
// coordinates on the infinite canvas.
type Note struct {
	ID            string
	RoomID        string
	Title         string
	Body          string
	X             float64
	Y             float64
	Z             int
	Color         string
	CreatedBy     string
	AttachmentKey string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NoteChanges carries a partial update; nil fields are left untouched.
type NoteChanges struct {
	Title *string
	Body  *string
	Color *string
	Z     *int
}

// IsEmpty reports whether the change set touches nothing.
func (c NoteChanges) IsEmpty() bool {
	return c.Title == nil && c.Body == nil && c.Color == nil && c.Z == nil
}
