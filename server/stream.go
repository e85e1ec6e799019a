package server

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	json "github.com/goccy/go-json"

	"github.com/lcrh/turingsoup/driver"
)

// frameBuffer is how many pending frames a slow client tolerates before
// new frames are dropped in its favor — back-pressure is satisfied by
// dropping, never by queuing.
const frameBuffer = 4

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// tickFrame is the compact per-tick payload pushed to every connected
// client.
type tickFrame struct {
	Epoch float64 `json:"epoch"`
	Head0 uint64  `json:"head0"`
	Head1 uint64  `json:"head1"`
	Math  uint64  `json:"math"`
	Copy  uint64  `json:"copy"`
	Loop  uint64  `json:"loop"`
}

// streamHub tracks connected WebSocket clients and fans out tick frames.
type streamHub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

func newStreamHub() *streamHub {
	return &streamHub{clients: make(map[*wsClient]struct{})}
}

func (h *streamHub) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("websocket upgrade: %v", err)
		return
	}

	c := &wsClient{id: uuid.NewString(), conn: conn, send: make(chan []byte, frameBuffer)}
	h.register(c)
	defer h.unregister(c)

	log.Debugf("stream client %s connected", c.id)
	go c.writeLoop()
	c.readLoop() // blocks until the client disconnects
}

func (h *streamHub) register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *streamHub) unregister(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	close(c.send)
	c.conn.Close()
	log.Debugf("stream client %s disconnected", c.id)
}

// broadcast encodes info as a tickFrame and offers it to every connected
// client without blocking; a client whose send buffer is full simply
// misses this frame.
func (h *streamHub) broadcast(info driver.TickInfo) {
	frame := tickFrame{
		Epoch: info.Epoch,
		Head0: info.Counters.Head0,
		Head1: info.Counters.Head1,
		Math:  info.Counters.Math,
		Copy:  info.Counters.Copy,
		Loop:  info.Counters.Loop,
	}
	data, err := json.Marshal(frame)
	if err != nil {
		log.Errorf("encode tick frame: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Client's buffer is full; drop this frame for it.
		}
	}
}

func (c *wsClient) writeLoop() {
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// readLoop discards any client messages but detects disconnects; this
// stream is server-push only.
func (c *wsClient) readLoop() {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
