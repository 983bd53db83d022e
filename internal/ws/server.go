package ws

import (
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"poker-settle/internal/room"
	"poker-settle/internal/session"
	"poker-settle/internal/settle"
	"poker-settle/internal/stats"
)

var (
	connectionsTotal = expvar.NewInt("ws_connections_total")
	broadcastsTotal  = expvar.NewInt("ws_broadcasts_total")
	roomsCreated     = expvar.NewInt("rooms_created_total")
)

// Client is one live connection. roomCode and identity are guarded by the
// server mutex: the owning readLoop writes them, broadcasts read them.
type Client struct {
	id       string
	conn     *websocket.Conn
	send     chan []byte
	identity *session.Identity
	roomCode string
}

// Server owns presence: which connection is in which room, and fan-out of
// room snapshots to everyone seated there. Room state itself lives in the
// room store; the server only routes events and broadcasts.
type Server struct {
	rooms    *room.Store
	stats    stats.ProfileStore
	sessions *session.Store
	verifier session.Verifier
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*Client]bool
}

func NewServer(rooms *room.Store, st stats.ProfileStore, sessions *session.Store, verifier session.Verifier) *Server {
	return &Server{
		rooms:    rooms,
		stats:    st,
		sessions: sessions,
		verifier: verifier,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:  map[*Client]bool{},
	}
}

func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := &Client{id: newConnID(), conn: conn, send: make(chan []byte, 16)}

	s.mu.Lock()
	s.clients[client] = true
	s.mu.Unlock()
	connectionsTotal.Add(1)
	log.Debug().Str("conn", client.id).Msg("connected")

	go s.writeLoop(client)
	s.sendStats(client)
	s.readLoop(client)
}

func (s *Server) readLoop(c *Client) {
	defer func() {
		s.handleDisconnect(c)
		_ = c.conn.Close()
	}()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var base struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &base); err != nil {
			continue
		}
		switch base.Type {
		case "login":
			var m LoginMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				continue
			}
			s.handleLogin(c, m)
		case "create-room":
			var m CreateRoomMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				continue
			}
			s.handleCreateRoom(c, m)
		case "join-room":
			var m JoinRoomMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				continue
			}
			s.handleJoinRoom(c, m)
		case "update-player":
			var m UpdatePlayerMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				continue
			}
			s.handleUpdatePlayer(c, m)
		case "update-game-settings":
			var m UpdateSettingsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				continue
			}
			s.handleUpdateSettings(c, m)
		case "get-settlement":
			var m GetSettlementMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				continue
			}
			s.handleGetSettlement(c, m)
		case "close-room":
			s.handleCloseRoom(c)
		case "leave-room":
			s.handleLeaveRoom(c)
		}
	}
}

func (s *Server) writeLoop(c *Client) {
	for msg := range c.send {
		_ = c.conn.WriteMessage(websocket.TextMessage, msg)
	}
}

func (s *Server) handleLogin(c *Client, m LoginMessage) {
	if sess, err := s.sessions.Lookup(m.Token); err == nil {
		s.setIdentity(c, sess.Identity)
		s.sendTo(c, LoginResult{Type: "login-result", Ok: true, Name: sess.Identity.Name, SessionToken: sess.Token})
		return
	}

	id, err := s.verifier.Verify(context.Background(), m.Token)
	if err != nil {
		log.Warn().Str("conn", c.id).Err(err).Msg("login rejected")
		s.sendTo(c, LoginResult{Type: "login-result", Ok: false, Error: "invalid credential"})
		return
	}
	sess := s.sessions.Create(id)
	s.setIdentity(c, id)
	s.sendTo(c, LoginResult{Type: "login-result", Ok: true, Name: id.Name, SessionToken: sess.Token})
}

func (s *Server) handleCreateRoom(c *Client, m CreateRoomMessage) {
	snapshot, secret, err := s.rooms.CreateRoom(c.id, s.identityKey(c), m.PlayerName)
	if err != nil {
		if errors.Is(err, room.ErrInvalidInput) {
			s.sendError(c, err.Error())
			return
		}
		log.Error().Err(err).Msg("create room failed")
		s.sendError(c, "could not create room")
		return
	}
	s.setRoom(c, snapshot.Code)
	roomsCreated.Add(1)

	if _, err := s.stats.IncrRoomsCreated(context.Background()); err != nil {
		log.Error().Err(err).Msg("rooms-created counter write failed")
	}

	s.sendTo(c, RoomCreated{Type: "room-created", RoomCode: snapshot.Code, Room: snapshot, AdminSecret: secret})
	s.broadcastStats()
	log.Info().Str("room", snapshot.Code).Str("player", m.PlayerName).Msg("room created")
}

func (s *Server) handleJoinRoom(c *Client, m JoinRoomMessage) {
	snapshot, err := s.rooms.JoinRoom(m.RoomCode, c.id, s.identityKey(c), m.PlayerName, m.AdminSecret)
	if err != nil {
		switch {
		case errors.Is(err, room.ErrRoomNotFound):
			s.sendError(c, "room not found")
		case errors.Is(err, room.ErrInvalidInput):
			s.sendError(c, err.Error())
		default:
			s.sendError(c, "could not join room")
		}
		return
	}
	s.setRoom(c, snapshot.Code)
	s.broadcastRoom(snapshot)
	log.Info().Str("room", snapshot.Code).Str("player", m.PlayerName).Msg("player joined")
}

func (s *Server) handleUpdatePlayer(c *Client, m UpdatePlayerMessage) {
	snapshot, err := s.rooms.UpdatePlayer(m.RoomCode, m.PlayerName, m.Updates)
	if err != nil {
		s.replyMutationError(c, m.RoomCode, err)
		return
	}
	s.broadcastRoom(snapshot)
}

func (s *Server) handleUpdateSettings(c *Client, m UpdateSettingsMessage) {
	snapshot, err := s.rooms.UpdateSettings(m.RoomCode, m.Settings)
	if err != nil {
		s.replyMutationError(c, m.RoomCode, err)
		return
	}
	s.broadcastRoom(snapshot)
}

// replyMutationError maps store errors for in-room mutations. A vanished room
// is answered with a forced return to the lobby, not a raw error: the common
// cause is normal room expiry, and the error channel is reserved for
// user-actionable messages.
func (s *Server) replyMutationError(c *Client, code string, err error) {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		s.setRoom(c, "")
		s.sendTo(c, RoomClosed{Type: "room-closed", RoomCode: room.NormalizeCode(code)})
	case errors.Is(err, room.ErrInvalidInput):
		s.sendError(c, err.Error())
	case errors.Is(err, room.ErrPlayerNotFound):
		s.sendError(c, "player not found")
	default:
		s.sendError(c, "update failed")
	}
}

func (s *Server) handleGetSettlement(c *Client, m GetSettlementMessage) {
	snapshot, err := s.rooms.Get(m.RoomCode)
	if err != nil {
		s.sendError(c, "room not found")
		return
	}
	result := settle.Calculate(snapshot.Players, snapshot.Settings)
	s.sendTo(c, SettlementMessage{Type: "settlement", Result: result})
}

func (s *Server) handleCloseRoom(c *Client) {
	code := s.roomOf(c)
	if code == "" {
		return
	}
	snapshot, err := s.rooms.CloseRoom(code, c.id)
	if err != nil {
		// Non-admin close attempts are dropped without a reply so the
		// admin's identity is not leaked to other players.
		if !errors.Is(err, room.ErrForbidden) {
			log.Warn().Str("room", code).Err(err).Msg("close-room failed")
		}
		return
	}

	s.finalizeStats(snapshot)

	closed := RoomClosed{Type: "room-closed", RoomCode: snapshot.Code}
	s.broadcastRoomCode(snapshot.Code, closed)
	s.detachRoom(snapshot.Code)
	s.broadcastStats()
	log.Info().Str("room", snapshot.Code).Int("players", len(snapshot.Players)).Msg("room closed")
}

// finalizeStats folds each cashed-out player's net into their lifetime
// profile. Persistence failures are logged and never block the close: the
// in-memory game state must not depend on the external store.
func (s *Server) finalizeStats(snapshot *room.Room) {
	result := settle.Calculate(snapshot.Players, snapshot.Settings)
	now := time.Now()
	for i, p := range snapshot.Players {
		if p.CashOut == nil || p.Identity == "" {
			continue
		}
		if err := s.stats.RecordResult(context.Background(), p.Identity, result.Players[i].Net, now); err != nil {
			log.Error().Str("identity", p.Identity).Err(err).Msg("profile write failed")
		}
	}
}

func (s *Server) handleLeaveRoom(c *Client) {
	code := s.roomOf(c)
	if code == "" {
		return
	}
	snapshot, deleted, err := s.rooms.LeaveRoom(code, c.id)
	s.setRoom(c, "")
	if err != nil {
		return
	}
	if deleted {
		s.broadcastStats()
		return
	}
	s.broadcastRoom(snapshot)
}

func (s *Server) handleDisconnect(c *Client) {
	if snapshot, ok := s.rooms.MarkDisconnected(c.id); ok {
		s.broadcastRoom(snapshot)
	}

	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	safeClose(c.send)
	log.Debug().Str("conn", c.id).Msg("disconnected")
}

// Presence bookkeeping.

func (s *Server) setRoom(c *Client, code string) {
	s.mu.Lock()
	c.roomCode = code
	s.mu.Unlock()
}

func (s *Server) roomOf(c *Client) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.roomCode
}

func (s *Server) setIdentity(c *Client, id session.Identity) {
	s.mu.Lock()
	c.identity = &id
	s.mu.Unlock()
}

func (s *Server) identityKey(c *Client) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.identity == nil {
		return ""
	}
	return c.identity.Subject
}

// detachRoom unbinds every connection still associated with the room.
func (s *Server) detachRoom(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		if c.roomCode == code {
			c.roomCode = ""
		}
	}
}

// Fan-out.

func (s *Server) sendTo(c *Client, v any) {
	msg, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("marshal outbound message")
		return
	}
	safeSend(c.send, msg)
}

func (s *Server) sendError(c *Client, message string) {
	s.sendTo(c, ErrorMessage{Type: "error", Message: message})
}

func (s *Server) broadcastRoom(snapshot *room.Room) {
	s.broadcastRoomCode(snapshot.Code, RoomUpdated{Type: "room-updated", Room: snapshot})
}

func (s *Server) broadcastRoomCode(code string, v any) {
	msg, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("marshal broadcast")
		return
	}
	s.mu.Lock()
	targets := make([]*Client, 0, len(s.clients))
	for c := range s.clients {
		if c.roomCode == code {
			targets = append(targets, c)
		}
	}
	s.mu.Unlock()
	for _, c := range targets {
		safeSend(c.send, msg)
	}
	broadcastsTotal.Add(1)
}

func (s *Server) sendStats(c *Client) {
	s.sendTo(c, s.statsSnapshot())
}

func (s *Server) broadcastStats() {
	msg, err := json.Marshal(s.statsSnapshot())
	if err != nil {
		return
	}
	s.mu.Lock()
	targets := make([]*Client, 0, len(s.clients))
	for c := range s.clients {
		targets = append(targets, c)
	}
	s.mu.Unlock()
	for _, c := range targets {
		safeSend(c.send, msg)
	}
	broadcastsTotal.Add(1)
}

func (s *Server) statsSnapshot() StatsUpdate {
	total, err := s.stats.RoomsCreated(context.Background())
	if err != nil {
		log.Error().Err(err).Msg("rooms-created counter read failed")
	}
	return StatsUpdate{Type: "stats-update", ActiveRooms: s.rooms.Count(), TotalRoomsCreated: total}
}

// A client abandoned mid-broadcast may already have its channel closed;
// the recover turns that send into a no-op. A slow but live client instead
// blocks the send until its writer drains the queue, so broadcasts reach
// every current room member in mutation order rather than being dropped.

func safeClose(ch chan []byte) {
	defer func() {
		_ = recover()
	}()
	close(ch)
}

func safeSend(ch chan []byte, msg []byte) {
	defer func() {
		_ = recover()
	}()
	ch <- msg
}
