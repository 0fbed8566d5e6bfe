package feed

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"indoor-nav.klederson.com/internal/engine"
	"indoor-nav.klederson.com/internal/pathfind"
)

// sendBuffer is how many frames a client may fall behind before it is dropped.
const sendBuffer = 16

// Frame is one published engine state: the snapshot plus the active route.
type Frame struct {
	engine.Snapshot
	Path []pathfind.Cell `json:"path"`
}

type client struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
}

// Hub fans published frames out to every connected websocket client and remembers
// the latest one for polling readers.
type Hub struct {
	clients    map[uuid.UUID]*client
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}

	mu     sync.RWMutex
	latest []byte

	log logrus.FieldLogger
}

// NewHub creates a hub. Call Run before publishing.
func NewHub(log logrus.FieldLogger) *Hub {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Hub{
		clients:    make(map[uuid.UUID]*client),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run owns the client set until ctx is done, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for id, c := range h.clients {
				close(c.send)
				delete(h.clients, id)
			}
			return

		case c := <-h.register:
			h.clients[c.id] = c
			h.log.WithField("client", c.id).Debug("feed client connected")

		case c := <-h.unregister:
			if _, ok := h.clients[c.id]; ok {
				close(c.send)
				delete(h.clients, c.id)
				h.log.WithField("client", c.id).Debug("feed client disconnected")
			}

		case msg := <-h.broadcast:
			for id, c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Too slow; drop it rather than stall everyone else.
					close(c.send)
					delete(h.clients, id)
					h.log.WithField("client", id).Warn("feed client dropped")
				}
			}
		}
	}
}

// Publish encodes a frame, stores it as the latest and queues it for broadcast.
// A full broadcast queue drops the frame for streaming clients only.
func (h *Hub) Publish(f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.latest = data
	h.mu.Unlock()

	select {
	case h.broadcast <- data:
	default:
		h.log.Debug("feed broadcast queue full")
	}
	return nil
}

// join hands c to the run loop. It reports false once the hub has stopped.
func (h *Hub) join(c *client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Latest returns the last published frame as JSON, or nil before the first one.
func (h *Hub) Latest() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}
