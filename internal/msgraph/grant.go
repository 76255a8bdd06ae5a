package msgraph

import (
	"encoding/json"
	"fmt"
	"time"
)

const grantKey = "msgraph_grant"

// refreshMargin is how long before expiry a grant is refreshed.
const refreshMargin = 5 * time.Minute

// GrantStore persists the signed-in grant. The SQLite state table
// satisfies it.
type GrantStore interface {
	GetState(key string) (string, error)
	SetState(key, value string) error
}

// Grant is an OAuth2 grant issued by Azure AD.
type Grant struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Scope        string    `json:"scope"`
}

// Stale reports whether the access token should be refreshed at now.
func (g Grant) Stale(now time.Time) bool {
	return !now.Add(refreshMargin).Before(g.ExpiresAt)
}

// loadGrant returns the stored grant, or nil before the first sign-in.
func loadGrant(s GrantStore) (*Grant, error) {
	raw, err := s.GetState(grantKey)
	if err != nil {
		return nil, fmt.Errorf("reading grant: %w", err)
	}
	if raw == "" {
		return nil, nil
	}
	var g Grant
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		return nil, fmt.Errorf("decoding grant: %w", err)
	}
	return &g, nil
}

func saveGrant(s GrantStore, g *Grant) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encoding grant: %w", err)
	}
	if err := s.SetState(grantKey, string(raw)); err != nil {
		return fmt.Errorf("writing grant: %w", err)
	}
	return nil
}
