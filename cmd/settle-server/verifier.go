package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"poker-settle/internal/session"
)

// googleVerifier resolves Google ID tokens through the tokeninfo endpoint.
// It is the external identity collaborator; everything downstream only sees
// the session.Verifier interface.
type googleVerifier struct {
	clientID string
	client   *http.Client
}

func newGoogleVerifier(clientID string) *googleVerifier {
	return &googleVerifier{
		clientID: clientID,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

func (g *googleVerifier) Verify(ctx context.Context, credential string) (session.Identity, error) {
	endpoint := "https://oauth2.googleapis.com/tokeninfo?id_token=" + url.QueryEscape(credential)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return session.Identity{}, err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return session.Identity{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return session.Identity{}, fmt.Errorf("tokeninfo status %d", resp.StatusCode)
	}

	var claims struct {
		Aud  string `json:"aud"`
		Sub  string `json:"sub"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return session.Identity{}, err
	}
	if claims.Aud != g.clientID {
		return session.Identity{}, errors.New("token audience mismatch")
	}
	if claims.Sub == "" {
		return session.Identity{}, errors.New("token missing subject")
	}
	return session.Identity{Subject: claims.Sub, Name: claims.Name}, nil
}

// noVerifier rejects all credentials. Used when no identity provider is
// configured; players then match by display name only.
type noVerifier struct{}

func (noVerifier) Verify(context.Context, string) (session.Identity, error) {
	return session.Identity{}, errors.New("identity provider not configured")
}
