// Package relay implements the room-scoped fan-out of real-time events. The
// relay is stateless with respect to event content: every inbound catalogue
// frame from a joined connection is forwarded to all other connections in the
// same room,
// in the order it was received from that connection. It holds no per-note
// state and never blocks on durable storage.
package relay

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/dmitrijs2005/corkboard/internal/common"
	"github.com/dmitrijs2005/corkboard/internal/logging"
	"github.com/dmitrijs2005/corkboard/internal/protocol"
	"github.com/dmitrijs2005/corkboard/internal/server/session"
)

// sender is the outbound side of one connection. TrySend must not block;
// it reports false when the peer's queue is full.
type sender interface {
	TrySend(frame []byte) bool
	Close()
}

// Bridge carries frames between relay instances that share a room. Frames
// arriving from the bridge have already been stamped by the origin instance.
type Bridge interface {
	Publish(ctx context.Context, roomID string, frame []byte) error
}

// Relay resolves "which connections are my room-mates right now" through the
// session registry and forwards frames between them.
type Relay struct {
	registry *session.Registry
	logger   logging.Logger
	bridge   Bridge

	mu    sync.RWMutex
	conns map[string]sender
}

func New(registry *session.Registry, logger logging.Logger, bridge Bridge) *Relay {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &Relay{
		registry: registry,
		logger:   logger.With("module", "relay"),
		bridge:   bridge,
		conns:    make(map[string]sender),
	}
}

// Attach registers a freshly upgraded connection's outbound queue. The
// connection stays Unjoined until it sends a join_room frame.
func (r *Relay) Attach(connID string, s sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[connID] = s
}

// Detach removes the connection and, if it had joined a room, fans out
// participant_left to the remaining room members. Both explicit leave and
// abrupt network drop arrive here; it is the only cleanup path.
func (r *Relay) Detach(ctx context.Context, connID string) {
	r.mu.Lock()
	delete(r.conns, connID)
	r.mu.Unlock()

	s, joined := r.registry.Leave(connID)
	if !joined {
		return
	}
	r.announceLeft(ctx, connID, s)
}

func (r *Relay) announceLeft(ctx context.Context, exceptConnID string, s session.Session) {
	frame, err := encodeFrom(protocol.TypeParticipantLeft, s.ParticipantID, protocol.ParticipantLeft{
		ParticipantID: s.ParticipantID,
		DisplayName:   s.DisplayName,
		RoomID:        s.RoomID,
	})
	if err != nil {
		r.logger.Error(ctx, "encode participant_left", "error", err)
		return
	}

	r.fanOut(ctx, s.RoomID, exceptConnID, frame)
	r.publish(ctx, s.RoomID, frame)
	r.logger.Info(ctx, "participant left", "room", s.RoomID, "participant", s.ParticipantID)
}

// HandleFrame processes one inbound frame from a connection. Malformed
// frames and frames from unjoined connections are ignored; nothing here is
// fatal.
func (r *Relay) HandleFrame(ctx context.Context, connID string, raw []byte) {
	env, err := protocol.Parse(raw)
	if err != nil {
		r.logger.Warn(ctx, "dropping malformed frame", "conn", connID, "error", err)
		return
	}
	if !env.Type.Known() {
		r.logger.Warn(ctx, "dropping frame", "conn", connID, "type", env.Type, "error", common.ErrUnknownEvent)
		return
	}

	if env.Type == protocol.TypeJoinRoom {
		r.handleJoin(ctx, connID, env)
		return
	}

	s, joined := r.registry.Lookup(connID)
	if !joined {
		r.logger.Debug(ctx, "frame ignored", "conn", connID, "type", env.Type, "error", common.ErrNotJoined)
		return
	}

	// Re-stamp the sender identity; the payload itself is forwarded verbatim.
	env.From = s.ParticipantID
	frame, err := marshalEnvelope(env)
	if err != nil {
		r.logger.Error(ctx, "re-encode frame", "error", err)
		return
	}

	r.fanOut(ctx, s.RoomID, connID, frame)
	r.publish(ctx, s.RoomID, frame)
}

// DeliverRemote injects a frame that arrived from another relay instance via
// the bridge. It goes to every local member of the room; the origin instance
// already excluded the sender.
func (r *Relay) DeliverRemote(ctx context.Context, roomID string, frame []byte) {
	r.fanOut(ctx, roomID, "", frame)
}

func (r *Relay) handleJoin(ctx context.Context, connID string, env *protocol.Envelope) {
	var join protocol.JoinRoom
	if err := env.Decode(&join); err != nil {
		r.logger.Warn(ctx, "dropping malformed join_room", "conn", connID, "error", err)
		return
	}
	if join.RoomID == "" {
		// Not a hard error: the connection simply remains Unjoined and
		// receives no fan-out.
		r.logger.Warn(ctx, "join_room without room id ignored", "conn", connID)
		return
	}

	prev, rejoined := r.registry.Join(connID, join.RoomID, join.ParticipantID, join.DisplayName, join.CursorColor)

	// Switching rooms over a live connection vacates the old room; its
	// members must hear the departure or they keep a stale cursor.
	if rejoined && prev.RoomID != join.RoomID {
		r.announceLeft(ctx, connID, prev)
	}

	frame, err := encodeFrom(protocol.TypeParticipantJoined, join.ParticipantID, protocol.ParticipantJoined{
		ParticipantID: join.ParticipantID,
		DisplayName:   join.DisplayName,
		CursorColor:   join.CursorColor,
	})
	if err != nil {
		r.logger.Error(ctx, "encode participant_joined", "error", err)
		return
	}

	// Announce to everyone already in the room, not to the joiner.
	r.fanOut(ctx, join.RoomID, connID, frame)
	r.publish(ctx, join.RoomID, frame)
	r.logger.Info(ctx, "participant joined", "room", join.RoomID, "participant", join.ParticipantID)
}

// fanOut sends frame to every member of the room except exceptConnID. Sends
// never block: a peer whose queue is full is dropped and cleaned up like any
// other disconnect.
func (r *Relay) fanOut(ctx context.Context, roomID, exceptConnID string, frame []byte) {
	type slowPeer struct {
		id   string
		peer sender
	}
	var slow []slowPeer

	r.mu.RLock()
	for _, id := range r.registry.Members(roomID) {
		if id == exceptConnID {
			continue
		}
		peer, ok := r.conns[id]
		if !ok {
			continue
		}
		if !peer.TrySend(frame) {
			slow = append(slow, slowPeer{id: id, peer: peer})
		}
	}
	r.mu.RUnlock()

	// Detach must precede Close: Detach takes the exclusive lock, so once
	// it returns no concurrent fan-out holds the peer, and closing its
	// queue cannot race a TrySend.
	for _, s := range slow {
		r.logger.Warn(ctx, "dropping slow consumer", "conn", s.id, "room", roomID)
		r.Detach(ctx, s.id)
		s.peer.Close()
	}
}

func (r *Relay) publish(ctx context.Context, roomID string, frame []byte) {
	if r.bridge == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := r.bridge.Publish(ctx, roomID, frame); err != nil {
		r.logger.Error(ctx, "bridge publish failed", "room", roomID, "error", err)
	}
}

const publishTimeout = 2 * time.Second

func marshalEnvelope(env *protocol.Envelope) ([]byte, error) {
	return json.Marshal(env)
}

func encodeFrom(t protocol.Type, from string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(protocol.Envelope{Type: t, From: from, Payload: raw})
}
