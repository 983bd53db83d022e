package room

import "time"

// Channel tags a buy-in with how the money changed hands. Settlement uses the
// tags to recommend how each transfer should be paid back.
type Channel string

const (
	ChannelCash Channel = "cash"
	ChannelBit  Channel = "bit"
)

func (c Channel) Valid() bool {
	return c == ChannelCash || c == ChannelBit
}

type BuyIn struct {
	Amount  float64   `json:"amount"`
	Channel Channel   `json:"channel"`
	At      time.Time `json:"timestamp"`
}

// ChipRatio is the table's exchange rate: Shekel currency units buy Chips chips.
// Both components must be positive.
type ChipRatio struct {
	Shekel float64 `json:"shekel"`
	Chips  float64 `json:"chips"`
}

type GameSettings struct {
	ChipRatio ChipRatio `json:"chipRatio"`
}

// Player is one seat's ledger. ConnectionID is empty while the player is
// disconnected; the record itself survives until an explicit leave so the
// buy-in history stays available for settlement.
type Player struct {
	ConnectionID string   `json:"id"`
	Identity     string   `json:"-"`
	Name         string   `json:"name"`
	BuyIns       []BuyIn  `json:"buyIns"`
	CashOut      *float64 `json:"cashOut,omitempty"`
}

// Key is the identity players are matched by on rejoin: the authenticated
// identity when there is one, otherwise the display name.
func (p *Player) Key() string {
	if p.Identity != "" {
		return p.Identity
	}
	return p.Name
}

func (p *Player) Connected() bool {
	return p.ConnectionID != ""
}

// Room is one live session. AdminSecret is a bearer capability: presenting it
// on join transfers admin rights unconditionally, which is the only recovery
// path after the admin's connection drops. It is never marshalled into
// snapshots; the creator receives it exactly once.
type Room struct {
	Code        string       `json:"code"`
	AdminID     string       `json:"adminId"`
	AdminSecret string       `json:"-"`
	Players     []*Player    `json:"players"`
	Settings    GameSettings `json:"gameSettings"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// FindPlayer matches by identity key first, then by display name, so both
// authenticated callers and plain name references resolve the same record.
func (r *Room) FindPlayer(key string) *Player {
	for _, p := range r.Players {
		if p.Key() == key {
			return p
		}
	}
	for _, p := range r.Players {
		if p.Name == key {
			return p
		}
	}
	return nil
}

func (r *Room) findByConnection(connID string) *Player {
	if connID == "" {
		return nil
	}
	for _, p := range r.Players {
		if p.ConnectionID == connID {
			return p
		}
	}
	return nil
}

// clone deep-copies a room so handlers can hand snapshots to the fan-out
// without racing later mutations.
func (r *Room) clone() *Room {
	cp := *r
	cp.Players = make([]*Player, len(r.Players))
	for i, p := range r.Players {
		pc := *p
		if p.BuyIns != nil {
			pc.BuyIns = append([]BuyIn(nil), p.BuyIns...)
		}
		if p.CashOut != nil {
			v := *p.CashOut
			pc.CashOut = &v
		}
		cp.Players[i] = &pc
	}
	return &cp
}

func defaultSettings() GameSettings {
	return GameSettings{ChipRatio: ChipRatio{Shekel: 1, Chips: 1}}
}
