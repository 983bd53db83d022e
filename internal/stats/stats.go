// Package stats is the durable side-channel for lifetime statistics: player
// profiles accumulated across closed rooms and the global rooms-created
// counter. Room correctness never depends on it; writes that fail are logged
// and the room flow continues.
package stats

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// Profile is a player's lifetime aggregate, keyed by external identity.
type Profile struct {
	Identity    string    `json:"identity"`
	TotalProfit float64   `json:"totalProfit"`
	GamesPlayed int64     `json:"gamesPlayed"`
	LastPlayed  time.Time `json:"lastPlayed"`
}

// ProfileStore persists profiles and the lifetime room counter.
type ProfileStore interface {
	// RecordResult folds one game's net into the identity's profile.
	RecordResult(ctx context.Context, identity string, net float64, playedAt time.Time) error
	// IncrRoomsCreated bumps the lifetime counter and returns the new value.
	IncrRoomsCreated(ctx context.Context) (int64, error)
	RoomsCreated(ctx context.Context) (int64, error)
	GetProfile(ctx context.Context, identity string) (*Profile, error)
	Close()
}
