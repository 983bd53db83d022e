package stats

import (
	"context"
	"sync"
	"time"
)

// Memory keeps stats in process. Used in tests and when no Postgres DSN is
// configured; the lifetime counter then only survives as long as the process.
type Memory struct {
	mu           sync.Mutex
	profiles     map[string]*Profile
	roomsCreated int64
}

var _ ProfileStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{profiles: make(map[string]*Profile)}
}

func (m *Memory) RecordResult(_ context.Context, identity string, net float64, playedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[identity]
	if !ok {
		p = &Profile{Identity: identity}
		m.profiles[identity] = p
	}
	p.TotalProfit += net
	p.GamesPlayed++
	p.LastPlayed = playedAt
	return nil
}

func (m *Memory) IncrRoomsCreated(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roomsCreated++
	return m.roomsCreated, nil
}

func (m *Memory) RoomsCreated(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roomsCreated, nil
}

func (m *Memory) GetProfile(_ context.Context, identity string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[identity]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) Close() {}
