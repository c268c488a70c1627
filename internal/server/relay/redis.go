package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/corkboard/internal/logging"
)

const roomChannelPrefix = "corkboard:room:"

// bridgeFrame wraps a relay frame for transport between instances. Origin
// lets a subscriber skip frames it published itself.
type bridgeFrame struct {
	Origin string `json:"origin"`
	Frame  []byte `json:"frame"`
}

// RedisBridge fans frames out across relay instances through Redis pub/sub,
// one channel per room. Single-instance deployments run without it.
type RedisBridge struct {
	rdb        *redis.Client
	instanceID string
	logger     logging.Logger
}

func NewRedisBridge(ctx context.Context, addr, instanceID string, logger logging.Logger) (*RedisBridge, error) {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisBridge{
		rdb:        rdb,
		instanceID: instanceID,
		logger:     logger.With("module", "redis_bridge"),
	}, nil
}

// Publish sends a stamped frame to the room's channel.
func (b *RedisBridge) Publish(ctx context.Context, roomID string, frame []byte) error {
	payload, err := json.Marshal(bridgeFrame{Origin: b.instanceID, Frame: frame})
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, roomChannelPrefix+roomID, payload).Err()
}

// Run subscribes to all room channels and delivers foreign frames through
// deliver until ctx is cancelled.
func (b *RedisBridge) Run(ctx context.Context, deliver func(ctx context.Context, roomID string, frame []byte)) error {
	pubsub := b.rdb.PSubscribe(ctx, roomChannelPrefix+"*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var bf bridgeFrame
			if err := json.Unmarshal([]byte(msg.Payload), &bf); err != nil {
				b.logger.Warn(ctx, "malformed bridge frame", "error", err)
				continue
			}
			if bf.Origin == b.instanceID {
				continue
			}
			roomID := strings.TrimPrefix(msg.Channel, roomChannelPrefix)
			deliver(ctx, roomID, bf.Frame)
		}
	}
}

// Close releases the underlying Redis client.
func (b *RedisBridge) Close() error {
	return b.rdb.Close()
}
