// Package session binds bearer tokens to authenticated identities. Token
// verification against the identity provider is an external concern behind
// the Verifier interface; this package only keeps the token -> identity map
// that lets a reconnecting client pick up its player record.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrTokenNotFound = errors.New("token_not_found")
	ErrTokenExpired  = errors.New("token_expired")
)

// Identity is what the external provider vouches for.
type Identity struct {
	Subject string `json:"subject"`
	Name    string `json:"name"`
}

// Verifier checks a provider credential and returns the identity it asserts.
type Verifier interface {
	Verify(ctx context.Context, credential string) (Identity, error)
}

// VerifierFunc adapts a plain function to the Verifier interface.
type VerifierFunc func(ctx context.Context, credential string) (Identity, error)

func (f VerifierFunc) Verify(ctx context.Context, credential string) (Identity, error) {
	return f(ctx, credential)
}

type Session struct {
	Token     string
	Identity  Identity
	ExpiresAt time.Time
}

// Store holds live sessions. Expiry is checked lazily at lookup; the janitor
// sweep is hygiene, not a correctness requirement.
type Store struct {
	mu      sync.Mutex
	byToken map[string]Session
	ttl     time.Duration
	now     func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		byToken: make(map[string]Session),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Create mints a session token for the identity.
func (s *Store) Create(id Identity) Session {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	sess := Session{
		Token:     hex.EncodeToString(buf),
		Identity:  id,
		ExpiresAt: s.now().Add(s.ttl),
	}
	s.mu.Lock()
	s.byToken[sess.Token] = sess
	s.mu.Unlock()
	return sess
}

// Lookup resolves a token, deleting it when expired.
func (s *Store) Lookup(token string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.byToken[token]
	if !ok {
		return Session{}, ErrTokenNotFound
	}
	if s.now().After(sess.ExpiresAt) {
		delete(s.byToken, token)
		return Session{}, ErrTokenExpired
	}
	return sess, nil
}

// StartJanitor sweeps expired sessions until ctx is done.
func (s *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.sweep(); n > 0 {
					log.Debug().Int("expired", n).Msg("session janitor sweep")
				}
			}
		}
	}()
}

func (s *Store) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for token, sess := range s.byToken {
		if now.After(sess.ExpiresAt) {
			delete(s.byToken, token)
			n++
		}
	}
	return n
}
