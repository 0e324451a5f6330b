// Package bridge links the service to the plugin running inside the game
// server over a websocket. The plugin reports player events and carries out
// notices, mode changes and proxy transfers on the service's behalf.
package bridge

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/hardcorelimbo/internal/gameserver"
	"github.com/mcoot/hardcorelimbo/internal/model"
	"github.com/mcoot/hardcorelimbo/internal/transfer"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	sendBuffer = 256
)

// Bridge is the game server as seen by the core. It tracks who is online from
// the plugin's events and forwards presentation calls back to it.
// Only one plugin connection is active at a time; a new one replaces the old.
type Bridge struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	handler  gameserver.EventHandler
	presence map[model.PlayerID]gameserver.Presence
	active   *session
}

var (
	_ gameserver.Server = (*Bridge)(nil)
	_ transfer.Sink     = (*Bridge)(nil)
	_ http.Handler      = (*Bridge)(nil)
)

// session is one plugin connection
type session struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

// New creates a Bridge with no event handler. Call SetHandler before serving.
func New(logger *slog.Logger) *Bridge {
	return &Bridge{
		logger: logger.With(slog.String("component", "bridge")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		handler:  gameserver.BaseHandler{},
		presence: make(map[model.PlayerID]gameserver.Presence),
	}
}

// SetHandler sets the receiver of player events
func (b *Bridge) SetHandler(h gameserver.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = h
}

func (b *Bridge) eventHandler() gameserver.EventHandler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.handler
}

// Connected reports whether a plugin is attached
func (b *Bridge) Connected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.active != nil
}

// ServeHTTP upgrades the request and serves the plugin until it disconnects
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("bridge upgrade failed", slog.String("error", err.Error()))
		return
	}

	s := &session{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	b.attach(s)
	go b.writeLoop(s)
	b.readLoop(s)
	b.detach(s)
}

func (b *Bridge) attach(s *session) {
	b.mu.Lock()
	previous := b.active
	b.active = s
	b.mu.Unlock()

	if previous != nil {
		b.logger.Warn("bridge connection replaced")
		previous.close()
	}
	b.logger.Info("bridge connected", slog.String("remote", s.conn.RemoteAddr().String()))
}

// detach drops s and, if it was the active link, treats everyone as gone
func (b *Bridge) detach(s *session) {
	s.close()

	b.mu.Lock()
	if b.active != s {
		b.mu.Unlock()
		return
	}
	b.active = nil
	gone := make([]model.PlayerID, 0, len(b.presence))
	for id := range b.presence {
		gone = append(gone, id)
	}
	b.presence = make(map[model.PlayerID]gameserver.Presence)
	handler := b.handler
	b.mu.Unlock()

	for _, id := range gone {
		handler.PlayerQuit(id)
	}
	b.logger.Info("bridge disconnected", slog.Int("players_dropped", len(gone)))
}

func (b *Bridge) readLoop(s *session) {
	s.conn.SetReadLimit(64 * 1024)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.logger.Warn("bridge read failed", slog.String("error", err.Error()))
			}
			return
		}

		var msg InboundMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			b.logger.Warn("discarding malformed bridge message", slog.String("error", err.Error()))
			continue
		}
		b.dispatch(msg)
	}
}

func (b *Bridge) writeLoop(s *session) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				b.logger.Warn("bridge write failed", slog.String("error", err.Error()))
				s.close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.close()
				return
			}
		case <-s.done:
			return
		}
	}
}

func (b *Bridge) dispatch(msg InboundMessage) {
	if msg.Type == TypeHello {
		b.hello(msg.Players)
		return
	}

	id, err := model.ParsePlayerID(msg.Player)
	if err != nil {
		b.logger.Warn("discarding bridge message with bad player id",
			slog.String("type", msg.Type),
			slog.String("error", err.Error()),
		)
		return
	}

	handler := b.eventHandler()
	switch msg.Type {
	case TypeJoin:
		p := gameserver.Presence{ID: id, Name: msg.Name, Bypass: msg.Bypass}
		b.mu.Lock()
		b.presence[id] = p
		b.mu.Unlock()
		handler.PlayerJoined(p)
	case TypeQuit:
		b.mu.Lock()
		delete(b.presence, id)
		b.mu.Unlock()
		handler.PlayerQuit(id)
	case TypeDeath:
		handler.PlayerDied(id)
	case TypeRespawn:
		handler.PlayerRespawned(id)
	case TypeGameMode:
		handler.GameModeChanged(id, msg.From, msg.To)
	default:
		b.logger.Warn("unknown bridge message type", slog.String("type", msg.Type))
	}
}

// hello replaces the presence set with the plugin's snapshot. Players that
// vanished are treated as quits and newly listed players as joins. Players
// already present only get their presence refreshed.
func (b *Bridge) hello(players []PresenceMessage) {
	current := make(map[model.PlayerID]gameserver.Presence, len(players))
	for _, pm := range players {
		id, err := model.ParsePlayerID(pm.Player)
		if err != nil {
			b.logger.Warn("skipping hello entry with bad player id", slog.String("error", err.Error()))
			continue
		}
		current[id] = gameserver.Presence{ID: id, Name: pm.Name, Bypass: pm.Bypass}
	}

	b.mu.Lock()
	var gone []model.PlayerID
	for id := range b.presence {
		if _, ok := current[id]; !ok {
			gone = append(gone, id)
		}
	}
	var joined []gameserver.Presence
	for id, p := range current {
		if _, ok := b.presence[id]; !ok {
			joined = append(joined, p)
		}
	}
	b.presence = current
	handler := b.handler
	b.mu.Unlock()

	for _, id := range gone {
		handler.PlayerQuit(id)
	}
	for _, p := range joined {
		handler.PlayerJoined(p)
	}
	b.logger.Info("bridge presence synced", slog.Int("players", len(current)))
}

// enqueue hands msg to the writer without blocking
func (b *Bridge) enqueue(msg OutboundMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("failed to marshal bridge message", slog.String("error", err.Error()))
		return
	}

	b.mu.RLock()
	s := b.active
	b.mu.RUnlock()
	if s == nil {
		b.logger.Warn("bridge message dropped - not connected",
			slog.String("type", msg.Type),
			slog.String("player_id", string(msg.Player)),
		)
		return
	}

	select {
	case s.send <- data:
	case <-s.done:
	default:
		b.logger.Warn("bridge message dropped - send buffer full",
			slog.String("type", msg.Type),
			slog.String("player_id", string(msg.Player)),
		)
	}
}

// Server

func (b *Bridge) IsOnline(id model.PlayerID) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.presence[id]
	return ok
}

func (b *Bridge) HasBypass(id model.PlayerID) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.presence[id].Bypass
}

func (b *Bridge) OnlinePlayers() []gameserver.Presence {
	b.mu.RLock()
	defer b.mu.RUnlock()
	players := make([]gameserver.Presence, 0, len(b.presence))
	for _, p := range b.presence {
		players = append(players, p)
	}
	return players
}

func (b *Bridge) Notify(id model.PlayerID, notice model.Notice) {
	b.enqueue(OutboundMessage{Type: TypeNotify, Player: id, Notice: &notice})
}

func (b *Bridge) SetGameMode(id model.PlayerID, mode model.GameMode) {
	b.enqueue(OutboundMessage{Type: TypeSetMode, Player: id, Mode: mode})
}

func (b *Bridge) ApplyLimboState(id model.PlayerID) {
	b.enqueue(OutboundMessage{Type: TypeLimboState, Player: id})
}

// Send implements transfer.Sink. The plugin relays it to the proxy.
func (b *Bridge) Send(sig transfer.Signal) {
	b.enqueue(OutboundMessage{Type: TypeTransfer, Player: sig.PlayerID, Server: sig.Server})
}
