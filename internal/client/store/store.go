// Package store holds the client's canonical local view of notes and remote
// cursors. Local actions mutate it optimistically before the durable store
// confirms them; relay events from peers are applied last-writer-wins.
package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/corkboard/internal/client/models"
	"github.com/dmitrijs2005/corkboard/internal/common"
	"github.com/dmitrijs2005/corkboard/internal/logging"
	"github.com/dmitrijs2005/corkboard/internal/protocol"
)

// Outbound publishes events to the room through the relay connection.
type Outbound interface {
	Emit(ctx context.Context, t protocol.Type, payload any) error
}

// Durable is the persistence collaborator. Failures here trigger the
// rollback/restore paths; peers are never told about them except through a
// compensating rollback event.
type Durable interface {
	CreateNote(ctx context.Context, roomID string, draft models.NoteDraft) (string, error)
	UpdateNote(ctx context.Context, id string, changes models.NoteChanges) error
	MoveNote(ctx context.Context, id string, x, y float64) error
	DeleteNote(ctx context.Context, id string) error
}

// Store is the reconciliation state container. All mutation goes through its
// methods; the gesture layer and the relay reader share one instance.
type Store struct {
	mu       sync.Mutex
	roomID   string
	identity string
	notes    map[string]*models.Note
	cursors  map[string]*models.RemoteCursor

	// pre-mutation snapshots held until the durable call resolves
	dragStart map[string]models.Note

	out     Outbound
	durable Durable
	logger  logging.Logger

	newID func() string
	nowFn func() time.Time
}

// New returns an empty store for one room. identity is the display identity
// stamped on notes this client creates.
func New(roomID, identity string, out Outbound, durable Durable, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &Store{
		roomID:    roomID,
		identity:  identity,
		notes:     make(map[string]*models.Note),
		cursors:   make(map[string]*models.RemoteCursor),
		dragStart: make(map[string]models.Note),
		out:       out,
		durable:   durable,
		logger:    logger.With("module", "store"),
		newID:     uuid.NewString,
		nowFn:     time.Now,
	}
}

// Load seeds the store with durably persisted notes, typically the room
// listing fetched on join. Loaded notes are Confirmed.
func (s *Store) Load(notes []models.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range notes {
		n := n
		n.State = models.NoteStateConfirmed
		s.notes[n.ID] = &n
	}
}

// Notes returns a copy of all visible notes.
func (s *Store) Notes() []models.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Note, 0, len(s.notes))
	for _, n := range s.notes {
		out = append(out, *n)
	}
	return out
}

// Note returns one note by id.
func (s *Store) Note(id string) (models.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id]
	if !ok {
		return models.Note{}, false
	}
	return *n, true
}

// Cursors returns a copy of all known remote cursors.
func (s *Store) Cursors() []models.RemoteCursor {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.RemoteCursor, 0, len(s.cursors))
	for _, c := range s.cursors {
		out = append(out, *c)
	}
	return out
}

func isTemporary(id string) bool {
	return strings.HasPrefix(id, common.TempIDPrefix)
}

// CreateNote inserts a Pending note under a temporary id, announces it to
// the room, then asks the durable store for a real id. On success the
// durable id is swapped in place and an ack is broadcast; on any failure
// (transport, timeout, application error) the note is removed and a
// rollback is broadcast so peers discard their speculative copies too.
func (s *Store) CreateNote(ctx context.Context, draft models.NoteDraft) (models.Note, error) {
	tempID := common.TempIDPrefix + s.newID()

	note := &models.Note{
		ID:        tempID,
		RoomID:    s.roomID,
		Title:     draft.Title,
		Body:      draft.Body,
		X:         draft.X,
		Y:         draft.Y,
		Z:         draft.Z,
		Color:     draft.Color,
		CreatedBy: s.identity,
		State:     models.NoteStatePending,
	}

	s.mu.Lock()
	s.notes[tempID] = note
	s.mu.Unlock()

	s.emit(ctx, protocol.TypeNoteCreate, protocol.NoteCreate{
		NoteID:    tempID,
		RoomID:    s.roomID,
		Title:     draft.Title,
		Body:      draft.Body,
		X:         draft.X,
		Y:         draft.Y,
		Z:         draft.Z,
		Color:     draft.Color,
		CreatedBy: s.identity,
	})

	durableID, err := s.durable.CreateNote(ctx, s.roomID, draft)
	if err != nil {
		s.mu.Lock()
		delete(s.notes, tempID)
		s.mu.Unlock()
		s.emit(ctx, protocol.TypeNoteCreateRollback, protocol.NoteCreateRollback{TemporaryID: tempID})
		return models.Note{}, err
	}

	s.mu.Lock()
	// In-place identity swap: the same note value moves to the new key, so
	// a drag or selection holding the old pointer keeps working.
	delete(s.notes, tempID)
	note.ID = durableID
	note.State = models.NoteStateConfirmed
	s.notes[durableID] = note
	result := *note
	s.mu.Unlock()

	s.emit(ctx, protocol.TypeNoteCreateAck, protocol.NoteCreateAck{
		TemporaryID: tempID,
		DurableID:   durableID,
	})

	return result, nil
}

// UpdateNote applies a partial edit locally, mirrors it to the room, and
// persists it. On durable failure the prior field values are restored.
// Edits to a still-Pending note stay optimistic until the note is confirmed.
func (s *Store) UpdateNote(ctx context.Context, id string, changes models.NoteChanges) error {
	if changes.IsEmpty() {
		return common.ErrorValidation
	}

	s.mu.Lock()
	note, ok := s.notes[id]
	if !ok {
		s.mu.Unlock()
		return common.ErrorNotFound
	}
	snapshot := *note
	applyChanges(note, changes)
	s.mu.Unlock()

	s.emit(ctx, protocol.TypeNoteUpdate, protocol.NoteUpdate{
		NoteID: id,
		Title:  changes.Title,
		Body:   changes.Body,
		Color:  changes.Color,
		Z:      changes.Z,
	})

	if isTemporary(id) {
		return nil
	}

	if err := s.durable.UpdateNote(ctx, id, changes); err != nil {
		s.mu.Lock()
		if cur, ok := s.notes[id]; ok {
			*cur = snapshot
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// BeginDrag snapshots a note's position before a drag so EndDrag can restore
// it if the durable write fails.
func (s *Store) BeginDrag(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	note, ok := s.notes[id]
	if !ok {
		return common.ErrorNotFound
	}
	s.dragStart[id] = *note
	return nil
}

// DragTo moves the note locally and streams the intermediate position to the
// room. No durable write happens here; peers get live feedback only.
func (s *Store) DragTo(ctx context.Context, id string, x, y float64) error {
	s.mu.Lock()
	note, ok := s.notes[id]
	if !ok {
		s.mu.Unlock()
		return common.ErrorNotFound
	}
	note.X, note.Y = x, y
	s.mu.Unlock()

	s.emit(ctx, protocol.TypeNoteMove, protocol.NoteMove{
		NoteID:    id,
		X:         x,
		Y:         y,
		Timestamp: s.nowFn().UnixMilli(),
	})
	return nil
}

// EndDrag performs the single durable position write for a finished drag.
// On failure the position recorded at BeginDrag is restored.
func (s *Store) EndDrag(ctx context.Context, id string) error {
	s.mu.Lock()
	snapshot, started := s.dragStart[id]
	delete(s.dragStart, id)
	note, ok := s.notes[id]
	if !ok {
		s.mu.Unlock()
		return common.ErrorNotFound
	}
	x, y := note.X, note.Y
	s.mu.Unlock()

	if isTemporary(id) {
		return nil
	}

	if err := s.durable.MoveNote(ctx, id, x, y); err != nil {
		if started {
			s.mu.Lock()
			if cur, ok := s.notes[id]; ok {
				cur.X, cur.Y = snapshot.X, snapshot.Y
			}
			s.mu.Unlock()
		}
		return err
	}
	return nil
}

// DeleteNote removes a note locally, tells the room, and deletes it from the
// durable store. If the durable delete fails the note is restored.
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	s.mu.Lock()
	note, ok := s.notes[id]
	if !ok {
		s.mu.Unlock()
		return common.ErrorNotFound
	}
	snapshot := *note
	snapshot.State = models.NoteStateDeleted
	delete(s.notes, id)
	s.mu.Unlock()

	s.emit(ctx, protocol.TypeNoteDelete, protocol.NoteDelete{NoteID: id, RoomID: s.roomID})

	if isTemporary(id) {
		return nil
	}

	if err := s.durable.DeleteNote(ctx, id); err != nil {
		s.mu.Lock()
		restored := snapshot
		restored.State = models.NoteStateConfirmed
		s.notes[id] = &restored
		s.mu.Unlock()
		return err
	}
	return nil
}

// ApplyRemote applies one relay event from a peer. Events referencing
// unknown note ids are ignored; they are benign races, not errors.
func (s *Store) ApplyRemote(ctx context.Context, env *protocol.Envelope) {
	switch env.Type {

	case protocol.TypeParticipantJoined:
		var p protocol.ParticipantJoined
		if env.Decode(&p) != nil {
			return
		}
		s.mu.Lock()
		s.cursors[p.ParticipantID] = &models.RemoteCursor{
			ParticipantID: p.ParticipantID,
			DisplayName:   p.DisplayName,
			Color:         p.CursorColor,
			X:             p.X,
			Y:             p.Y,
		}
		s.mu.Unlock()

	case protocol.TypeParticipantLeft:
		var p protocol.ParticipantLeft
		if env.Decode(&p) != nil {
			return
		}
		s.mu.Lock()
		delete(s.cursors, p.ParticipantID)
		s.mu.Unlock()

	case protocol.TypeCursorMove:
		var p protocol.CursorMove
		if env.Decode(&p) != nil || env.From == "" {
			return
		}
		s.mu.Lock()
		cur, ok := s.cursors[env.From]
		if !ok {
			// A cursor_move can outrun its participant_joined; tolerate it.
			cur = &models.RemoteCursor{ParticipantID: env.From}
			s.cursors[env.From] = cur
		}
		cur.X, cur.Y = p.X, p.Y
		s.mu.Unlock()

	case protocol.TypeNoteCreate:
		var p protocol.NoteCreate
		if env.Decode(&p) != nil || p.NoteID == "" {
			return
		}
		state := models.NoteStateConfirmed
		if isTemporary(p.NoteID) {
			state = models.NoteStatePending
		}
		s.mu.Lock()
		s.notes[p.NoteID] = &models.Note{
			ID:        p.NoteID,
			RoomID:    p.RoomID,
			Title:     p.Title,
			Body:      p.Body,
			X:         p.X,
			Y:         p.Y,
			Z:         p.Z,
			Color:     p.Color,
			CreatedBy: p.CreatedBy,
			State:     state,
		}
		s.mu.Unlock()

	case protocol.TypeNoteUpdate:
		var p protocol.NoteUpdate
		if env.Decode(&p) != nil {
			return
		}
		s.mu.Lock()
		if note, ok := s.notes[p.NoteID]; ok {
			applyChanges(note, models.NoteChanges{
				Title: p.Title, Body: p.Body, Color: p.Color, Z: p.Z,
			})
		}
		s.mu.Unlock()

	case protocol.TypeNoteMove:
		var p protocol.NoteMove
		if env.Decode(&p) != nil {
			return
		}
		s.mu.Lock()
		if note, ok := s.notes[p.NoteID]; ok {
			note.X, note.Y = p.X, p.Y
		}
		s.mu.Unlock()

	case protocol.TypeNoteDelete:
		var p protocol.NoteDelete
		if env.Decode(&p) != nil {
			return
		}
		s.mu.Lock()
		delete(s.notes, p.NoteID)
		s.mu.Unlock()

	case protocol.TypeNoteCreateAck:
		var p protocol.NoteCreateAck
		if env.Decode(&p) != nil {
			return
		}
		s.mu.Lock()
		if note, ok := s.notes[p.TemporaryID]; ok {
			delete(s.notes, p.TemporaryID)
			note.ID = p.DurableID
			note.State = models.NoteStateConfirmed
			s.notes[p.DurableID] = note
		}
		s.mu.Unlock()

	case protocol.TypeNoteCreateRollback:
		var p protocol.NoteCreateRollback
		if env.Decode(&p) != nil {
			return
		}
		s.mu.Lock()
		delete(s.notes, p.TemporaryID)
		s.mu.Unlock()

	default:
		s.logger.Debug(ctx, "ignoring event", "type", env.Type)
	}
}

func applyChanges(note *models.Note, c models.NoteChanges) {
	if c.Title != nil {
		note.Title = *c.Title
	}
	if c.Body != nil {
		note.Body = *c.Body
	}
	if c.Color != nil {
		note.Color = *c.Color
	}
	if c.Z != nil {
		note.Z = *c.Z
	}
}

// emit publishes an event to the room. Relay failures do not undo local
// state; the relay is volatile and durable state wins on the next rejoin.
func (s *Store) emit(ctx context.Context, t protocol.Type, payload any) {
	if err := s.out.Emit(ctx, t, payload); err != nil {
		s.logger.Warn(ctx, "event emit failed", "type", t, "error", err)
	}
}
