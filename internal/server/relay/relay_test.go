package relay

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/corkboard/internal/protocol"
	"github.com/dmitrijs2005/corkboard/internal/server/session"
)

// ---- fakes ----

type fakePeer struct {
	mu     sync.Mutex
	frames [][]byte
	full   bool
	closed bool
}

func (f *fakePeer) TrySend(frame []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full {
		return false
	}
	cp := make([]byte, len(frame))
	copy(cp, frame)
	f.frames = append(f.frames, cp)
	return true
}

func (f *fakePeer) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakePeer) envelopes(t *testing.T) []*protocol.Envelope {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*protocol.Envelope, 0, len(f.frames))
	for _, raw := range f.frames {
		env, err := protocol.Parse(raw)
		require.NoError(t, err)
		out = append(out, env)
	}
	return out
}

// racingPeer rejects every send, forcing the slow-consumer path, and records
// whether any frame still reached it after its queue was closed.
type racingPeer struct {
	mu             sync.Mutex
	closed         bool
	sentAfterClose bool
	onClose        func()
}

func (p *racingPeer) TrySend(frame []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.sentAfterClose = true
	}
	return false
}

func (p *racingPeer) Close() {
	p.mu.Lock()
	p.closed = true
	cb := p.onClose
	p.mu.Unlock()
	if cb != nil {
		cb()
	}
}

type fakeBridge struct {
	mu     sync.Mutex
	rooms  []string
	frames [][]byte
}

func (b *fakeBridge) Publish(ctx context.Context, roomID string, frame []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rooms = append(b.rooms, roomID)
	b.frames = append(b.frames, frame)
	return nil
}

// ---- helpers ----

func mustEncode(t *testing.T, typ protocol.Type, payload any) []byte {
	t.Helper()
	frame, err := protocol.Encode(typ, payload)
	require.NoError(t, err)
	return frame
}

func joinFrame(t *testing.T, participantID, roomID, name, color string) []byte {
	t.Helper()
	return mustEncode(t, protocol.TypeJoinRoom, protocol.JoinRoom{
		ParticipantID: participantID,
		RoomID:        roomID,
		DisplayName:   name,
		CursorColor:   color,
	})
}

func attachAndJoin(t *testing.T, r *Relay, connID, participantID, roomID string) *fakePeer {
	t.Helper()
	p := &fakePeer{}
	r.Attach(connID, p)
	r.HandleFrame(context.Background(), connID, joinFrame(t, participantID, roomID, participantID, "#fff"))
	return p
}

// ---- tests ----

func TestRelay_JoinFansOutToExistingMembersOnly(t *testing.T) {
	r := New(session.NewRegistry(), nil, nil)

	a := attachAndJoin(t, r, "ca", "p-a", "r1")
	b := attachAndJoin(t, r, "cb", "p-b", "r1")

	// A observes B's arrival; the joiner itself receives nothing.
	envsA := a.envelopes(t)
	require.Len(t, envsA, 1)
	assert.Equal(t, protocol.TypeParticipantJoined, envsA[0].Type)
	assert.Equal(t, "p-b", envsA[0].From)

	var joined protocol.ParticipantJoined
	require.NoError(t, envsA[0].Decode(&joined))
	assert.Equal(t, "p-b", joined.ParticipantID)

	assert.Empty(t, b.envelopes(t))
}

func TestRelay_FanOutIsolation(t *testing.T) {
	r := New(session.NewRegistry(), nil, nil)

	a := attachAndJoin(t, r, "ca", "p-a", "r1")
	b := attachAndJoin(t, r, "cb", "p-b", "r1")
	c := attachAndJoin(t, r, "cc", "p-c", "r2")

	before := len(a.frames)
	r.HandleFrame(context.Background(), "ca", mustEncode(t, protocol.TypeCursorMove, protocol.CursorMove{X: 1, Y: 2}))

	envsB := b.envelopes(t)
	require.NotEmpty(t, envsB)
	last := envsB[len(envsB)-1]
	assert.Equal(t, protocol.TypeCursorMove, last.Type)
	assert.Equal(t, "p-a", last.From, "relay stamps the sender's participant identity")

	var cm protocol.CursorMove
	require.NoError(t, last.Decode(&cm))
	assert.Equal(t, 1.0, cm.X)
	assert.Equal(t, 2.0, cm.Y)

	// Neither the sender nor the other room sees the event.
	assert.Len(t, a.frames, before)
	for _, env := range c.envelopes(t) {
		assert.NotEqual(t, protocol.TypeCursorMove, env.Type)
	}
}

func TestRelay_PerSenderOrderingPreserved(t *testing.T) {
	r := New(session.NewRegistry(), nil, nil)

	attachAndJoin(t, r, "ca", "p-a", "r1")
	b := attachAndJoin(t, r, "cb", "p-b", "r1")

	for i := 0; i < 3; i++ {
		r.HandleFrame(context.Background(), "ca", mustEncode(t, protocol.TypeNoteMove, protocol.NoteMove{
			NoteID: "n1", X: float64(10 * i), Y: 0, Timestamp: int64(i),
		}))
	}

	var moves []protocol.NoteMove
	for _, env := range b.envelopes(t) {
		if env.Type != protocol.TypeNoteMove {
			continue
		}
		var mv protocol.NoteMove
		require.NoError(t, env.Decode(&mv))
		moves = append(moves, mv)
	}
	require.Len(t, moves, 3)
	for i, mv := range moves {
		assert.Equal(t, int64(i), mv.Timestamp)
	}
}

func TestRelay_UnjoinedConnectionIgnored(t *testing.T) {
	r := New(session.NewRegistry(), nil, nil)

	b := attachAndJoin(t, r, "cb", "p-b", "r1")
	before := len(b.frames)

	ghost := &fakePeer{}
	r.Attach("ghost", ghost)
	r.HandleFrame(context.Background(), "ghost", mustEncode(t, protocol.TypeCursorMove, protocol.CursorMove{X: 5}))

	assert.Len(t, b.frames, before)
}

func TestRelay_JoinWithoutRoomIDStaysUnjoined(t *testing.T) {
	reg := session.NewRegistry()
	r := New(reg, nil, nil)

	p := &fakePeer{}
	r.Attach("c1", p)
	r.HandleFrame(context.Background(), "c1", joinFrame(t, "p-1", "", "alice", "#fff"))

	_, joined := reg.Lookup("c1")
	assert.False(t, joined)

	// Detaching a never-joined connection must not announce a leave.
	b := attachAndJoin(t, r, "cb", "p-b", "r1")
	r.Detach(context.Background(), "c1")
	for _, env := range b.envelopes(t) {
		assert.NotEqual(t, protocol.TypeParticipantLeft, env.Type)
	}
}

func TestRelay_DetachEmitsParticipantLeft(t *testing.T) {
	r := New(session.NewRegistry(), nil, nil)

	a := attachAndJoin(t, r, "ca", "p-a", "r1")
	attachAndJoin(t, r, "cb", "p-b", "r1")

	r.Detach(context.Background(), "cb")

	envs := a.envelopes(t)
	require.NotEmpty(t, envs)
	last := envs[len(envs)-1]
	assert.Equal(t, protocol.TypeParticipantLeft, last.Type)

	var left protocol.ParticipantLeft
	require.NoError(t, last.Decode(&left))
	assert.Equal(t, "p-b", left.ParticipantID)
	assert.Equal(t, "r1", left.RoomID)
}

func TestRelay_MalformedFrameIgnored(t *testing.T) {
	r := New(session.NewRegistry(), nil, nil)

	b := attachAndJoin(t, r, "cb", "p-b", "r1")
	before := len(b.frames)

	r.HandleFrame(context.Background(), "cb", []byte("not json"))
	r.HandleFrame(context.Background(), "cb", []byte(`{"payload":{}}`))

	assert.Len(t, b.frames, before)
}

func TestRelay_SlowConsumerDropped(t *testing.T) {
	r := New(session.NewRegistry(), nil, nil)

	attachAndJoin(t, r, "ca", "p-a", "r1")
	b := attachAndJoin(t, r, "cb", "p-b", "r1")
	c := attachAndJoin(t, r, "cc", "p-c", "r1")

	b.mu.Lock()
	b.full = true
	b.mu.Unlock()

	r.HandleFrame(context.Background(), "ca", mustEncode(t, protocol.TypeCursorMove, protocol.CursorMove{X: 1}))

	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	assert.True(t, closed, "slow consumer must be closed")

	// The remaining members learn that the dropped peer left.
	var sawLeft bool
	for _, env := range c.envelopes(t) {
		if env.Type == protocol.TypeParticipantLeft {
			sawLeft = true
		}
	}
	assert.True(t, sawLeft)
}

func TestRelay_SlowConsumerDropRacesFanOut(t *testing.T) {
	reg := session.NewRegistry()
	r := New(reg, nil, nil)

	attachAndJoin(t, r, "ca", "p-a", "r1")

	b := &racingPeer{}
	b.onClose = func() {
		// A frame arriving at the instant the queue is shut must no
		// longer route to this connection.
		r.HandleFrame(context.Background(), "ca", mustEncode(t, protocol.TypeCursorMove, protocol.CursorMove{X: 9}))
	}
	r.Attach("cb", b)
	r.HandleFrame(context.Background(), "cb", joinFrame(t, "p-b", "r1", "p-b", "#fff"))

	r.HandleFrame(context.Background(), "ca", mustEncode(t, protocol.TypeCursorMove, protocol.CursorMove{X: 1}))

	b.mu.Lock()
	closed, late := b.closed, b.sentAfterClose
	b.mu.Unlock()
	assert.True(t, closed, "slow consumer must be closed")
	assert.False(t, late, "no frame may reach a peer once its queue is closed")

	_, joined := reg.Lookup("cb")
	assert.False(t, joined)
}

func TestRelay_RoomSwitchAnnouncesLeaveToOldRoom(t *testing.T) {
	r := New(session.NewRegistry(), nil, nil)

	a := attachAndJoin(t, r, "ca", "p-a", "r1")
	b := attachAndJoin(t, r, "cb", "p-b", "r1")
	c := attachAndJoin(t, r, "cc", "p-c", "r2")

	r.HandleFrame(context.Background(), "cb", joinFrame(t, "p-b", "r2", "p-b", "#fff"))

	// The vacated room hears the departure.
	envsA := a.envelopes(t)
	require.NotEmpty(t, envsA)
	last := envsA[len(envsA)-1]
	assert.Equal(t, protocol.TypeParticipantLeft, last.Type)

	var left protocol.ParticipantLeft
	require.NoError(t, last.Decode(&left))
	assert.Equal(t, "p-b", left.ParticipantID)
	assert.Equal(t, "r1", left.RoomID)

	// The new room hears the arrival; the switcher itself hears neither.
	envsC := c.envelopes(t)
	require.NotEmpty(t, envsC)
	assert.Equal(t, protocol.TypeParticipantJoined, envsC[len(envsC)-1].Type)
	assert.Empty(t, b.envelopes(t))
}

func TestRelay_RejoinSameRoomNoLeave(t *testing.T) {
	r := New(session.NewRegistry(), nil, nil)

	a := attachAndJoin(t, r, "ca", "p-a", "r1")
	attachAndJoin(t, r, "cb", "p-b", "r1")

	r.HandleFrame(context.Background(), "cb", joinFrame(t, "p-b", "r1", "p-b", "#fff"))

	for _, env := range a.envelopes(t) {
		assert.NotEqual(t, protocol.TypeParticipantLeft, env.Type)
	}
}

func TestRelay_UnknownEventTypeDropped(t *testing.T) {
	r := New(session.NewRegistry(), nil, nil)

	attachAndJoin(t, r, "ca", "p-a", "r1")
	b := attachAndJoin(t, r, "cb", "p-b", "r1")
	before := len(b.frames)

	r.HandleFrame(context.Background(), "ca", []byte(`{"type":"note_explode","payload":{}}`))

	assert.Len(t, b.frames, before)
}

func TestRelay_BridgePublishAndDeliverRemote(t *testing.T) {
	bridge := &fakeBridge{}
	r := New(session.NewRegistry(), nil, bridge)

	a := attachAndJoin(t, r, "ca", "p-a", "r1")
	r.HandleFrame(context.Background(), "ca", mustEncode(t, protocol.TypeCursorMove, protocol.CursorMove{X: 1}))

	bridge.mu.Lock()
	published := len(bridge.frames)
	bridge.mu.Unlock()
	// join_room announcement + cursor_move
	assert.Equal(t, 2, published)

	remote := mustEncode(t, protocol.TypeNoteDelete, protocol.NoteDelete{NoteID: "n1", RoomID: "r1"})
	r.DeliverRemote(context.Background(), "r1", remote)

	envs := a.envelopes(t)
	require.NotEmpty(t, envs)
	assert.Equal(t, protocol.TypeNoteDelete, envs[len(envs)-1].Type)
}
