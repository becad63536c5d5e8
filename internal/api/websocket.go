package api

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-hubsync/internal/device"
	"github.com/nerrad567/gray-logic-hubsync/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-hubsync/internal/infrastructure/logging"
)

// Frame types exchanged over /api/v1/ws.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"
)

// Event channels.
const (
	// EventDeviceState carries one device whose canonical state changed.
	EventDeviceState = "device.state"

	// EventDeviceSnapshot is sent once after subscribing to EventDeviceState,
	// carrying every matching device so clients start from a full picture.
	EventDeviceSnapshot = "device.snapshot"
)

const outboxSize = 256

// WSMessage is the envelope of every frame in both directions.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload selects channels and, optionally, devices. An empty
// DeviceIDs list means every device.
type WSSubscribePayload struct {
	Channels  []string `json:"channels"`
	DeviceIDs []string `json:"device_ids,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are policed by corsMiddleware.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsTiming holds the connection limits derived from config, with defaults
// for unset values.
type wsTiming struct {
	readLimit int64
	ping      time.Duration
	pongWait  time.Duration
}

func newWSTiming(cfg config.WebSocketConfig) wsTiming {
	t := wsTiming{
		readLimit: int64(cfg.MaxMessageSize),
		ping:      time.Duration(cfg.PingInterval) * time.Second,
		pongWait:  time.Duration(cfg.PongTimeout) * time.Second,
	}
	if t.readLimit <= 0 {
		t.readLimit = 8192
	}
	if t.ping <= 0 {
		t.ping = 30 * time.Second
	}
	if t.pongWait <= 0 {
		t.pongWait = 10 * time.Second
	}
	return t
}

// readDeadline is how long a connection may stay silent.
func (t wsTiming) readDeadline() time.Time { return time.Now().Add(t.ping + t.pongWait) }

// Hub tracks WebSocket peers and fans events out to them.
type Hub struct {
	timing wsTiming
	logger *logging.Logger

	mu    sync.RWMutex
	peers map[*peer]struct{}
}

// NewHub creates a new WebSocket hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		timing: newWSTiming(cfg),
		logger: logger,
		peers:  make(map[*peer]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every peer.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	peers := h.peers
	h.peers = make(map[*peer]struct{})
	h.mu.Unlock()

	for p := range peers {
		p.shutdown()
		p.conn.Close()
	}
}

// ClientCount returns the number of connected peers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

func (h *Hub) attach(p *peer) {
	h.mu.Lock()
	h.peers[p] = struct{}{}
	n := len(h.peers)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", n)
}

func (h *Hub) detach(p *peer) {
	h.mu.Lock()
	delete(h.peers, p)
	n := len(h.peers)
	h.mu.Unlock()
	p.shutdown()
	h.logger.Debug("websocket client disconnected", "clients", n)
}

// Publish sends an event about deviceID to every peer subscribed to channel
// whose device filter admits it. Slow peers whose outbox is full miss the event.
func (h *Hub) Publish(channel, deviceID string, payload any) {
	frame, err := encodeFrame(WSMessage{Type: WSTypeEvent, EventType: channel, Payload: payload})
	if err != nil {
		h.logger.Error("encoding websocket event failed", "channel", channel, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*peer, 0, len(h.peers))
	for p := range h.peers {
		if p.wants(channel, deviceID) {
			targets = append(targets, p)
		}
	}
	h.mu.RUnlock()

	dropped := 0
	for _, p := range targets {
		if !p.enqueue(frame) {
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Debug("websocket event dropped for slow clients", "channel", channel, "dropped", dropped)
	}
}

func encodeFrame(msg WSMessage) ([]byte, error) {
	if msg.Timestamp == "" {
		msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	return json.Marshal(msg)
}

// peer is one WebSocket connection.
type peer struct {
	conn   *websocket.Conn
	outbox chan []byte

	mu       sync.RWMutex
	closed   bool
	channels map[string]bool
	devices  map[string]bool
}

func newPeer(conn *websocket.Conn) *peer {
	return &peer{
		conn:     conn,
		outbox:   make(chan []byte, outboxSize),
		channels: make(map[string]bool),
		devices:  make(map[string]bool),
	}
}

func (p *peer) wants(channel, deviceID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.channels[channel] {
		return false
	}
	return len(p.devices) == 0 || deviceID == "" || p.devices[deviceID]
}

// enqueue queues a frame without blocking. It reports false when the peer
// is gone or its outbox is full.
func (p *peer) enqueue(frame []byte) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.outbox <- frame:
		return true
	default:
		return false
	}
}

// shutdown closes the outbox once; the write loop then sends a close frame.
func (p *peer) shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.outbox)
	}
}

func (p *peer) subscribe(sub WSSubscribePayload) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range sub.Channels {
		p.channels[ch] = true
	}
	for _, id := range sub.DeviceIDs {
		p.devices[id] = true
	}
}

func (p *peer) unsubscribe(sub WSSubscribePayload) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range sub.Channels {
		delete(p.channels, ch)
	}
	for _, id := range sub.DeviceIDs {
		delete(p.devices, id)
	}
}

func (p *peer) reply(id, msgType string, payload any) {
	frame, err := encodeFrame(WSMessage{Type: msgType, ID: id, Payload: payload})
	if err != nil {
		return
	}
	p.enqueue(frame)
}

// handleWebSocket upgrades the connection. Peers receive nothing until they
// subscribe.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	p := newPeer(conn)
	s.hub.attach(p)

	go s.hub.writeLoop(p)
	go s.readLoop(p)
}

// writeLoop drains the outbox and keeps the connection alive with pings.
func (h *Hub) writeLoop(p *peer) {
	ticker := time.NewTicker(h.timing.ping)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()

	for {
		var err error
		select {
		case frame, ok := <-p.outbox:
			//nolint:errcheck // a failed deadline surfaces as a write error
			p.conn.SetWriteDeadline(time.Now().Add(h.timing.pongWait))
			if !ok {
				//nolint:errcheck // best effort on the way out
				p.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			err = p.conn.WriteMessage(websocket.TextMessage, frame)
		case <-ticker.C:
			//nolint:errcheck // a failed deadline surfaces as a write error
			p.conn.SetWriteDeadline(time.Now().Add(h.timing.pongWait))
			err = p.conn.WriteMessage(websocket.PingMessage, nil)
		}
		if err != nil {
			return
		}
	}
}

// readLoop handles client frames until the connection drops.
func (s *Server) readLoop(p *peer) {
	timing := s.hub.timing
	defer func() {
		s.hub.detach(p)
		p.conn.Close()
	}()

	p.conn.SetReadLimit(timing.readLimit)
	//nolint:errcheck // a failed deadline surfaces as a read error
	p.conn.SetReadDeadline(timing.readDeadline())
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(timing.readDeadline())
	})

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		// Browsers may not answer protocol pings; any frame counts as liveness.
		//nolint:errcheck // a failed deadline surfaces as a read error
		p.conn.SetReadDeadline(timing.readDeadline())
		s.handleFrame(p, data)
	}
}

func (s *Server) handleFrame(p *peer, data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		p.reply("", WSTypeError, map[string]string{"message": "invalid JSON message"})
		return
	}

	switch msg.Type {
	case WSTypePing:
		p.reply(msg.ID, WSTypePong, nil)

	case WSTypeSubscribe, WSTypeUnsubscribe:
		sub, ok := decodeSubscription(msg.Payload)
		if !ok {
			p.reply(msg.ID, WSTypeError, map[string]string{"message": "invalid " + msg.Type + " payload"})
			return
		}
		if msg.Type == WSTypeUnsubscribe {
			p.unsubscribe(sub)
			p.reply(msg.ID, WSTypeResponse, map[string]any{"unsubscribed": sub.Channels})
			return
		}
		p.subscribe(sub)
		p.reply(msg.ID, WSTypeResponse, map[string]any{"subscribed": sub.Channels})
		if slices.Contains(sub.Channels, EventDeviceState) {
			s.sendSnapshot(p, sub.DeviceIDs)
		}

	default:
		p.reply(msg.ID, WSTypeError, map[string]string{"message": "unknown message type: " + msg.Type})
	}
}

func decodeSubscription(payload any) (WSSubscribePayload, bool) {
	var sub WSSubscribePayload
	raw, err := json.Marshal(payload)
	if err != nil {
		return sub, false
	}
	if err := json.Unmarshal(raw, &sub); err != nil || len(sub.Channels) == 0 {
		return sub, false
	}
	return sub, true
}

// sendSnapshot queues the current view of the requested devices (all when ids is empty).
func (s *Server) sendSnapshot(p *peer, ids []string) {
	views := []stateView{}
	for _, d := range s.syncer.Devices() {
		if len(ids) == 0 || slices.Contains(ids, d.ID) {
			views = append(views, newStateView(d))
		}
	}
	frame, err := encodeFrame(WSMessage{
		Type:      WSTypeEvent,
		EventType: EventDeviceSnapshot,
		Payload:   map[string]any{"devices": views, "count": len(views)},
	})
	if err != nil {
		s.logger.Error("encoding device snapshot failed", "error", err)
		return
	}
	p.enqueue(frame)
}

// broadcastState publishes d's field-level view to EventDeviceState subscribers.
func (s *Server) broadcastState(d device.Device) {
	s.hub.Publish(EventDeviceState, d.ID, newStateView(d))
}
