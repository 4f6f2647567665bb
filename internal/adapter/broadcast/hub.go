package broadcast

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Viewer is one connected client of the real-time channel. Messages arrive
// on C; the channel is closed when the hub shuts down.
type Viewer struct {
	ID string
	C  chan []byte
}

// Hub is the explicit registry of connected viewers. It subscribes to the
// broadcast channel and fans every message out to all registered viewers.
// Registration and removal never trigger a broadcast, and a new viewer
// receives nothing until the next state change.
type Hub struct {
	client  *redis.Client
	channel string
	bufSize int
	log     *zap.Logger

	mu      sync.RWMutex
	viewers map[string]*Viewer
	closed  bool
}

// NewHub creates a hub reading from the given Redis channel.
func NewHub(client *redis.Client, channel string, bufSize int, log *zap.Logger) *Hub {
	return &Hub{
		client:  client,
		channel: channel,
		bufSize: bufSize,
		log:     log,
		viewers: make(map[string]*Viewer),
	}
}

// Register adds a viewer to the registry and returns it.
func (h *Hub) Register() *Viewer {
	v := &Viewer{
		ID: uuid.NewString(),
		C:  make(chan []byte, h.bufSize),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(v.C)
		return v
	}
	h.viewers[v.ID] = v
	count := len(h.viewers)
	h.mu.Unlock()

	h.log.Info("client connected", zap.String("viewer_id", v.ID), zap.Int("viewers", count))
	return v
}

// Unregister removes a viewer from the registry.
func (h *Hub) Unregister(v *Viewer) {
	if v == nil {
		return
	}

	h.mu.Lock()
	if _, ok := h.viewers[v.ID]; ok {
		delete(h.viewers, v.ID)
		close(v.C)
	}
	count := len(h.viewers)
	h.mu.Unlock()

	h.log.Info("client disconnected", zap.String("viewer_id", v.ID), zap.Int("viewers", count))
}

// ViewerCount returns the number of currently registered viewers.
func (h *Hub) ViewerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers)
}

// Run subscribes to the broadcast channel and fans messages out until ctx
// is canceled. It blocks, so it is meant to run in its own goroutine.
func (h *Hub) Run(ctx context.Context) error {
	sub := h.client.Subscribe(ctx, h.channel)
	defer func() {
		_ = sub.Close()
		h.closeAll()
	}()

	// Fail fast if the subscription could not be established.
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	h.log.Info("broadcast hub running", zap.String("channel", h.channel))

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			h.log.Info("broadcast hub stopping")
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			h.fanOut([]byte(msg.Payload))
		}
	}
}

// fanOut delivers one message to every registered viewer. A viewer whose
// buffer is full drops the message instead of blocking the fan-out; the
// next snapshot supersedes the dropped one anyway.
func (h *Hub) fanOut(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered, dropped := 0, 0
	for _, v := range h.viewers {
		select {
		case v.C <- payload:
			delivered++
		default:
			dropped++
		}
	}

	if dropped > 0 {
		h.log.Warn("slow viewers dropped a broadcast",
			zap.Int("delivered", delivered),
			zap.Int("dropped", dropped),
		)
	} else {
		h.log.Debug("broadcast delivered", zap.Int("viewers", delivered))
	}
}

// closeAll closes every viewer channel and marks the hub closed so late
// Register calls get an already-closed channel.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, v := range h.viewers {
		close(v.C)
		delete(h.viewers, id)
	}
}
