// Package protocol defines the wire event catalogue shared by the relay
// server and the client SDK. Every frame on the real-time channel is a JSON
// Envelope; payload shapes are plain structs with no behavior.
//
// The relay treats payloads as opaque: it forwards them verbatim and only
// stamps the sender identity on the envelope. Semantics live entirely in the
// client reconciliation store.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Type discriminates envelope payloads.
type Type string

const (
	// Client -> server. Declares room membership for the connection.
	TypeJoinRoom Type = "join_room"

	// Server -> other room members.
	TypeParticipantJoined Type = "participant_joined"
	TypeParticipantLeft   Type = "participant_left"

	// Client -> server -> other room members, forwarded verbatim.
	TypeCursorMove         Type = "cursor_move"
	TypeNoteCreate         Type = "note_create"
	TypeNoteUpdate         Type = "note_update"
	TypeNoteMove           Type = "note_move"
	TypeNoteDelete         Type = "note_delete"
	TypeNoteCreateAck      Type = "note_create_ack"
	TypeNoteCreateRollback Type = "note_create_rollback"
)

var knownTypes = map[Type]struct{}{
	TypeJoinRoom:           {},
	TypeParticipantJoined:  {},
	TypeParticipantLeft:    {},
	TypeCursorMove:         {},
	TypeNoteCreate:         {},
	TypeNoteUpdate:         {},
	TypeNoteMove:           {},
	TypeNoteDelete:         {},
	TypeNoteCreateAck:      {},
	TypeNoteCreateRollback: {},
}

// Known reports whether t is part of the event catalogue.
func (t Type) Known() bool {
	_, ok := knownTypes[t]
	return ok
}

// Envelope is the frame exchanged on the real-time channel.
//
// From is the application-level identity of the sender. Clients leave it
// empty on outbound frames; the server stamps it from the session registry
// during fan-out, so receivers never trust a client-supplied value.
type Envelope struct {
	Type    Type            `json:"type"`
	From    string          `json:"from,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinRoom declares the sending connection's room, display name and cursor
// color. The room id is always the joiner-supplied one.
type JoinRoom struct {
	ParticipantID string `json:"participantId"`
	RoomID        string `json:"roomId"`
	DisplayName   string `json:"displayName"`
	CursorColor   string `json:"cursorColor"`
}

// ParticipantJoined announces a new room member to everyone already joined.
type ParticipantJoined struct {
	ParticipantID string  `json:"participantId"`
	DisplayName   string  `json:"displayName"`
	CursorColor   string  `json:"cursorColor"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
}

// ParticipantLeft is emitted by the server when a joined connection goes
// away, explicitly or by network drop. Never sent by clients.
type ParticipantLeft struct {
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
	RoomID        string `json:"roomId"`
}

// CursorMove carries a world-space pointer position.
type CursorMove struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Timestamp int64   `json:"timestamp,omitempty"`
}

// NoteCreate carries the full optimistic note record, including the
// client-generated temporary id.
type NoteCreate struct {
	NoteID    string  `json:"noteId"`
	RoomID    string  `json:"roomId"`
	Title     string  `json:"title"`
	Body      string  `json:"body"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         int     `json:"z,omitempty"`
	Color     string  `json:"color,omitempty"`
	CreatedBy string  `json:"createdBy"`
}

// NoteUpdate carries a note id plus only the fields that changed.
type NoteUpdate struct {
	NoteID string  `json:"noteId"`
	Title  *string `json:"title,omitempty"`
	Body   *string `json:"body,omitempty"`
	Color  *string `json:"color,omitempty"`
	Z      *int    `json:"z,omitempty"`
}

// NoteMove carries a live drag position in world space.
type NoteMove struct {
	NoteID    string  `json:"noteId"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Timestamp int64   `json:"timestamp"`
}

type NoteDelete struct {
	NoteID string `json:"noteId"`
	RoomID string `json:"roomId"`
}

// NoteCreateAck tells room-mates that a previously broadcast note_create has
// been durably confirmed, carrying the temp-to-durable id mapping.
type NoteCreateAck struct {
	TemporaryID string `json:"temporaryId"`
	DurableID   string `json:"durableId"`
}

// NoteCreateRollback tells room-mates to discard their speculative copy.
type NoteCreateRollback struct {
	TemporaryID string `json:"temporaryId"`
}

// Encode wraps payload in an Envelope of the given type and marshals it.
func Encode(t Type, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return json.Marshal(Envelope{Type: t, Payload: raw})
}

// Parse unmarshals a raw frame into an Envelope. The payload stays raw until
// the receiver decodes it by type.
func Parse(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse envelope: %w", err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("parse envelope: missing type")
	}
	return &env, nil
}

// Decode unmarshals the envelope payload into v.
func (e *Envelope) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("decode %s: empty payload", e.Type)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}
