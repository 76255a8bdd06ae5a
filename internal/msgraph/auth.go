package msgraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultAuthority = "https://login.microsoftonline.com"
	calendarScope    = "Calendars.Read offline_access"
)

// ErrNotAuthenticated means nobody has signed in yet.
var ErrNotAuthenticated = errors.New("not signed in to Microsoft Graph, run 'dayslot calendar auth' first")

// Auth runs the OAuth2 device code flow against Azure AD.
type Auth struct {
	clientID   string
	tenantID   string
	authority  string
	grants     GrantStore
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

func NewAuth(clientID, tenantID string, grants GrantStore, logger *slog.Logger) *Auth {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if tenantID == "" {
		tenantID = "common"
	}
	return &Auth{
		clientID:   clientID,
		tenantID:   tenantID,
		authority:  defaultAuthority,
		grants:     grants,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		now:        time.Now,
	}
}

type DeviceCode struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURI string `json:"verification_uri"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval"`
	Message         string `json:"message"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
	Error        string `json:"error"`
	ErrorDesc    string `json:"error_description"`
}

func (r tokenResponse) grant(issued time.Time) *Grant {
	return &Grant{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    issued.Add(time.Duration(r.ExpiresIn) * time.Second),
		Scope:        r.Scope,
	}
}

func (a *Auth) endpoint(path string) string {
	return fmt.Sprintf("%s/%s/oauth2/v2.0/%s", a.authority, a.tenantID, path)
}

func (a *Auth) post(ctx context.Context, path string, form url.Values) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint(path), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, nil, fmt.Errorf("creating %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("calling %s endpoint: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s response: %w", path, err)
	}
	return resp, body, nil
}

// StartDeviceCodeFlow asks for a user code to show to the user.
func (a *Auth) StartDeviceCodeFlow(ctx context.Context) (*DeviceCode, error) {
	resp, body, err := a.post(ctx, "devicecode", url.Values{
		"client_id": {a.clientID},
		"scope":     {calendarScope},
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("device code request failed (status %d): %s", resp.StatusCode, string(body))
	}

	var dc DeviceCode
	if err := json.Unmarshal(body, &dc); err != nil {
		return nil, fmt.Errorf("parsing device code response: %w", err)
	}
	return &dc, nil
}

// SignIn waits until the user has approved the device code and stores
// the resulting grant.
func (a *Auth) SignIn(ctx context.Context, dc *DeviceCode) error {
	g, err := a.pollForGrant(ctx, dc)
	if err != nil {
		return err
	}
	return saveGrant(a.grants, g)
}

func (a *Auth) pollForGrant(ctx context.Context, dc *DeviceCode) (*Grant, error) {
	interval := time.Duration(max(dc.Interval, 1)) * time.Second
	form := url.Values{
		"client_id":   {a.clientID},
		"grant_type":  {"urn:ietf:params:oauth:grant-type:device_code"},
		"device_code": {dc.DeviceCode},
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}

		_, body, err := a.post(ctx, "token", form)
		if err != nil {
			return nil, err
		}

		var tr tokenResponse
		if err := json.Unmarshal(body, &tr); err != nil {
			return nil, fmt.Errorf("parsing token response: %w", err)
		}

		switch tr.Error {
		case "":
			return tr.grant(a.now()), nil
		case "authorization_pending":
			a.logger.Debug("waiting for user authorization")
		case "slow_down":
			interval += 5 * time.Second
			a.logger.Debug("slowing down polling", "interval", interval)
		case "expired_token":
			return nil, errors.New("device code expired, please try again")
		default:
			return nil, fmt.Errorf("token error: %s: %s", tr.Error, tr.ErrorDesc)
		}
	}
}

func (a *Auth) refresh(ctx context.Context, refreshToken string) (*Grant, error) {
	_, body, err := a.post(ctx, "token", url.Values{
		"client_id":     {a.clientID},
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"scope":         {calendarScope},
	})
	if err != nil {
		return nil, err
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("parsing refresh response: %w", err)
	}
	if tr.Error != "" {
		return nil, fmt.Errorf("refresh failed: %s: %s", tr.Error, tr.ErrorDesc)
	}
	return tr.grant(a.now()), nil
}

// AccessToken returns a usable access token. A stale grant is refreshed
// and stored again before use.
func (a *Auth) AccessToken(ctx context.Context) (string, error) {
	g, err := loadGrant(a.grants)
	if err != nil {
		return "", err
	}
	if g == nil {
		return "", ErrNotAuthenticated
	}
	if !g.Stale(a.now()) {
		return g.AccessToken, nil
	}

	a.logger.Debug("access token stale, refreshing", "expires_at", g.ExpiresAt)
	fresh, err := a.refresh(ctx, g.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("refreshing token (run 'dayslot calendar auth' to sign in again): %w", err)
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = g.RefreshToken
	}
	if err := saveGrant(a.grants, fresh); err != nil {
		a.logger.Warn("storing refreshed grant", "error", err)
	}
	return fresh.AccessToken, nil
}
