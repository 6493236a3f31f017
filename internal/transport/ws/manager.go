// Package ws owns the persistent match channel to the game server: one
// websocket per logged-in identity, decoded inbound frames, fire-and-forget
// outbound sends.
package ws

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"mindmaze-client/internal/domain"
	"mindmaze-client/internal/protocol"
)

// Dialer opens match channels. The http URL scheme of base is rewritten to
// its ws equivalent so the same host config serves both transports.
type Dialer struct {
	base string
	log  zerolog.Logger
}

func NewDialer(base string, log zerolog.Logger) *Dialer {
	return &Dialer{base: base, log: log}
}

// Dial opens the channel addressed by username. Exactly one channel exists
// per identity; callers close the previous one before dialing again.
func (d *Dialer) Dial(ctx context.Context, username string) (*Manager, error) {
	url := wsURL(d.base) + "/ws/" + username
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	m := &Manager{
		conn:   conn,
		log:    d.log.With().Str("conn_id", uuid.NewString()).Str("username", username).Logger(),
		done:   make(chan struct{}),
		events: make(chan protocol.ServerEvent, 16),
		states: make(chan domain.ConnState, 2),
	}
	m.states <- domain.ConnConnected
	go m.readLoop()
	return m, nil
}

func wsURL(base string) string {
	switch {
	case len(base) >= 5 && base[:5] == "https":
		return "wss" + base[5:]
	case len(base) >= 4 && base[:4] == "http":
		return "ws" + base[4:]
	}
	return base
}

// Manager is one live channel. It delivers decoded server events in arrival
// order and reports transport transitions, at most one per transport event.
type Manager struct {
	conn *websocket.Conn
	log  zerolog.Logger

	mu     sync.Mutex
	closed bool
	done   chan struct{}

	events chan protocol.ServerEvent
	states chan domain.ConnState
}

// Events delivers inbound frames in arrival order. The channel is closed
// once the connection is done.
func (m *Manager) Events() <-chan protocol.ServerEvent { return m.events }

// States delivers transport transitions. Closed together with Events.
func (m *Manager) States() <-chan domain.ConnState { return m.states }

// Send encodes and writes one outbound frame. It no-ops when the channel is
// not open and never surfaces write errors to the caller; a failed write
// shows up as a read-loop transition instead.
func (m *Manager) Send(ev protocol.ClientEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	data, err := protocol.Encode(ev)
	if err != nil {
		m.log.Error().Err(err).Msg("encode outbound frame")
		return
	}
	if err := m.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		m.log.Warn().Err(err).Msg("write outbound frame")
	}
}

// Close requests shutdown. Events already in flight at the transport level
// are discarded; nothing is delivered after Close returns the read loop.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.done)
	m.mu.Unlock()
	m.conn.Close()
}

func (m *Manager) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Manager) readLoop() {
	defer close(m.events)
	defer close(m.states)

	for {
		_, data, err := m.conn.ReadMessage()
		if err != nil {
			if m.isClosed() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				m.states <- domain.ConnDisconnected
			} else {
				m.log.Warn().Err(err).Msg("channel read failed")
				m.states <- domain.ConnError
			}
			m.Close()
			return
		}
		if m.isClosed() {
			// Close was requested; late frames are dropped.
			continue
		}
		ev, err := protocol.Decode(data)
		if err != nil {
			m.log.Warn().Err(err).Msg("dropping malformed frame")
			continue
		}
		select {
		case m.events <- ev:
		case <-m.done:
			// Consumer is gone; drop the event instead of blocking.
		}
	}
}
