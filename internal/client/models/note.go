// Package models defines the client-side view of sticky notes and remote
// cursors.
package models

// NoteState tags where a note stands in the optimistic-persistence cycle.
type NoteState string

const (
	// NoteStatePending marks a locally created note that the durable store
	// has not confirmed yet. Pending notes carry a temporary id.
	NoteStatePending NoteState = "pending"
	// NoteStateConfirmed marks a note whose durable id is known.
	NoteStateConfirmed NoteState = "confirmed"
	// NoteStateDeleted marks a note removed locally while its deletion is
	// still in flight. It is restored if the durable delete fails.
	NoteStateDeleted NoteState = "deleted"
)

// Note is one sticky note as the client sees it. X and Y are world-space
// coordinates.
type Note struct {
	ID        string
	RoomID    string
	Title     string
	Body      string
	X         float64
	Y         float64
	Z         int
	Color     string
	CreatedBy string
	State     NoteState
}

// NoteDraft carries the fields a user supplies when creating a note.
type NoteDraft struct {
	Title string
	Body  string
	X     float64
	Y     float64
	Z     int
	Color string
}

// NoteChanges describes a partial edit. Nil fields are left untouched.
type NoteChanges struct {
	Title *string
	Body  *string
	Color *string
	Z     *int
}

// IsEmpty reports whether the edit would change nothing.
func (c NoteChanges) IsEmpty() bool {
	return c.Title == nil && c.Body == nil && c.Color == nil && c.Z == nil
}

// RemoteCursor is the last known pointer state of another participant in the
// room. Positions are world-space.
type RemoteCursor struct {
	ParticipantID string
	DisplayName   string
	Color         string
	X             float64
	Y             float64
}
