package room

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Store is the authoritative map of live rooms. All mutations go through it;
// everything it hands out is a snapshot, so callers never see interim state
// from other connections' handlers.
type Store struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewStore() *Store {
	return &Store{rooms: make(map[string]*Room)}
}

// OptionalAmount distinguishes an absent cash-out field from an explicit
// null. A null clears the cash-out and puts the player back to still-playing;
// an absent field leaves it untouched.
type OptionalAmount struct {
	Set   bool
	Value *float64
}

// Amount is an OptionalAmount holding v.
func Amount(v float64) OptionalAmount {
	return OptionalAmount{Set: true, Value: &v}
}

// ClearAmount is an OptionalAmount that clears the field.
func ClearAmount() OptionalAmount {
	return OptionalAmount{Set: true}
}

func (o *OptionalAmount) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

func (o OptionalAmount) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}

// PlayerUpdate carries a shallow field merge for one player. Unset fields are
// left untouched, so two concurrent updates to different fields both land.
// Per field the last writer wins; there is no cross-field transaction.
type PlayerUpdate struct {
	Name    *string        `json:"name,omitempty"`
	BuyIns  *[]BuyIn       `json:"buyIns,omitempty"`
	CashOut OptionalAmount `json:"cashOut"`
}

// SettingsUpdate is the shallow merge for game settings.
type SettingsUpdate struct {
	ChipRatio *ChipRatio `json:"chipRatio,omitempty"`
}

func (u PlayerUpdate) validate() error {
	if u.Name != nil && *u.Name == "" {
		return fmt.Errorf("%w: empty player name", ErrInvalidInput)
	}
	if u.BuyIns != nil {
		for _, b := range *u.BuyIns {
			if b.Amount <= 0 {
				return fmt.Errorf("%w: buy-in amount must be positive", ErrInvalidInput)
			}
			if !b.Channel.Valid() {
				return fmt.Errorf("%w: unknown buy-in channel %q", ErrInvalidInput, b.Channel)
			}
		}
	}
	if u.CashOut.Set && u.CashOut.Value != nil && *u.CashOut.Value < 0 {
		return fmt.Errorf("%w: cash-out must not be negative", ErrInvalidInput)
	}
	return nil
}

func (u SettingsUpdate) validate() error {
	if u.ChipRatio != nil {
		if u.ChipRatio.Shekel <= 0 || u.ChipRatio.Chips <= 0 {
			return fmt.Errorf("%w: chip ratio components must be positive", ErrInvalidInput)
		}
	}
	return nil
}

// CreateRoom seeds a new room with the creator as its single player and admin.
// The returned secret is handed to the creator only.
func (s *Store) CreateRoom(connID, identity, name string) (*Room, string, error) {
	if name == "" {
		return nil, "", fmt.Errorf("%w: empty player name", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	code := ""
	for i := 0; i < maxCodeAttempts; i++ {
		candidate := randomCode()
		if _, taken := s.rooms[candidate]; !taken {
			code = candidate
			break
		}
	}
	if code == "" {
		return nil, "", ErrCodesExhausted
	}

	secret := newAdminSecret()
	r := &Room{
		Code:        code,
		AdminID:     connID,
		AdminSecret: secret,
		Players: []*Player{{
			ConnectionID: connID,
			Identity:     identity,
			Name:         name,
			BuyIns:       []BuyIn{},
		}},
		Settings:  defaultSettings(),
		CreatedAt: time.Now(),
	}
	s.rooms[code] = r
	return r.clone(), secret, nil
}

// JoinRoom attaches a connection to a room. A player whose identity key is
// already present is re-attached (reconnect) and has its display name
// refreshed; otherwise a new player is appended. A matching adminSecret
// transfers admin rights to the caller unconditionally.
func (s *Store) JoinRoom(code, connID, identity, name, adminSecret string) (*Room, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty player name", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[NormalizeCode(code)]
	if !ok {
		return nil, ErrRoomNotFound
	}

	key := identity
	if key == "" {
		key = name
	}
	if p := r.FindPlayer(key); p != nil {
		p.ConnectionID = connID
		p.Name = name
	} else {
		r.Players = append(r.Players, &Player{
			ConnectionID: connID,
			Identity:     identity,
			Name:         name,
			BuyIns:       []BuyIn{},
		})
	}

	if adminSecret != "" && adminSecret == r.AdminSecret {
		r.AdminID = connID
	}
	return r.clone(), nil
}

// UpdatePlayer merges the given fields into the player matched by key.
func (s *Store) UpdatePlayer(code, key string, upd PlayerUpdate) (*Room, error) {
	if err := upd.validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[NormalizeCode(code)]
	if !ok {
		return nil, ErrRoomNotFound
	}
	p := r.FindPlayer(key)
	if p == nil {
		return nil, ErrPlayerNotFound
	}

	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.BuyIns != nil {
		p.BuyIns = append([]BuyIn(nil), (*upd.BuyIns)...)
	}
	if upd.CashOut.Set {
		if upd.CashOut.Value == nil {
			p.CashOut = nil
		} else {
			v := *upd.CashOut.Value
			p.CashOut = &v
		}
	}
	return r.clone(), nil
}

// UpdateSettings merges the given fields into the room's game settings.
func (s *Store) UpdateSettings(code string, upd SettingsUpdate) (*Room, error) {
	if err := upd.validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[NormalizeCode(code)]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if upd.ChipRatio != nil {
		r.Settings.ChipRatio = *upd.ChipRatio
	}
	return r.clone(), nil
}

// CloseRoom deletes the room if the requesting connection is its admin and
// returns the final snapshot so the caller can finalize per-player stats.
func (s *Store) CloseRoom(code, connID string) (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[NormalizeCode(code)]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if r.AdminID != connID {
		return nil, ErrForbidden
	}
	delete(s.rooms, r.Code)
	return r.clone(), nil
}

// LeaveRoom removes the connection's player entirely, unlike a disconnect.
// Deletes the room when the last player leaves; deleted reports that.
func (s *Store) LeaveRoom(code, connID string) (snapshot *Room, deleted bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[NormalizeCode(code)]
	if !ok {
		return nil, false, ErrRoomNotFound
	}
	p := r.findByConnection(connID)
	if p == nil {
		return nil, false, ErrPlayerNotFound
	}
	for i, candidate := range r.Players {
		if candidate == p {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			break
		}
	}
	if len(r.Players) == 0 {
		delete(s.rooms, r.Code)
		return nil, true, nil
	}
	return r.clone(), false, nil
}

// MarkDisconnected clears the player's connection reference wherever the
// connection was seated. The player and its ledger persist for rejoin.
func (s *Store) MarkDisconnected(connID string) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.rooms {
		if p := r.findByConnection(connID); p != nil {
			p.ConnectionID = ""
			return r.clone(), true
		}
	}
	return nil, false
}

// Get returns a snapshot of the room, for reads like on-demand settlement.
func (s *Store) Get(code string) (*Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[NormalizeCode(code)]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r.clone(), nil
}

// Count reports the number of currently live rooms.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}
