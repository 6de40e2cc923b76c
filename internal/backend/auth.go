package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Riboost-Studio/sushiamo-bridge/internal/model"
)

// authUser is the subset of the GoTrue /auth/v1/user response session.go
// cares about.
type authUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// tokenResponse is the subset of a GoTrue token grant response session.go
// needs to build a refreshed SessionSnapshot.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    *int64 `json:"expires_at"`
	User         authUser `json:"user"`
}

// CurrentUser asks the backend's auth service who the bearer token
// currently in force (via TokenFunc) belongs to. A 401/403 is reported as
// (nil, nil) — no current user — rather than an error, per spec.md 4.2
// ("if the backend reports a current user, adopt it; otherwise...").
func (c *Client) CurrentUser(ctx context.Context) (*model.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("build current-user request: %w", err)
	}
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("current-user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("current-user: unexpected status %d", resp.StatusCode)
	}

	var u authUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, fmt.Errorf("decode current-user response: %w", err)
	}
	if u.ID == "" {
		return nil, nil
	}
	return &model.User{ID: u.ID, Email: u.Email}, nil
}

// RestoreSession exchanges snapshot's refresh token for a fresh access
// token via the auth service's refresh grant, implementing
// session.RestoreFunc.
func (c *Client) RestoreSession(ctx context.Context, snapshot model.SessionSnapshot) (model.SessionSnapshot, *model.User, error) {
	body, err := json.Marshal(map[string]string{"refresh_token": snapshot.RefreshToken})
	if err != nil {
		return model.SessionSnapshot{}, nil, fmt.Errorf("marshal refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/auth/v1/token?grant_type=refresh_token", bytes.NewReader(body))
	if err != nil {
		return model.SessionSnapshot{}, nil, fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.SessionSnapshot{}, nil, fmt.Errorf("refresh session: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.SessionSnapshot{}, nil, fmt.Errorf("read refresh response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.SessionSnapshot{}, nil, fmt.Errorf("refresh session: status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var tok tokenResponse
	if err := json.Unmarshal(respBody, &tok); err != nil {
		return model.SessionSnapshot{}, nil, fmt.Errorf("decode refresh response: %w", err)
	}
	if tok.AccessToken == "" {
		return model.SessionSnapshot{}, nil, fmt.Errorf("refresh session: empty access token")
	}

	refreshed := model.SessionSnapshot{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.ExpiresAt,
	}
	return refreshed, &model.User{ID: tok.User.ID, Email: tok.User.Email}, nil
}
