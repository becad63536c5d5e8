package hub

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Session lifetime as enforced by the controller, and the margin at which the
// client renews ahead of expiry.
const (
	SessionTTL          = 10 * time.Minute
	SessionSafetyMargin = 1 * time.Minute
)

// Session is an issued session key. Values are immutable; renewal replaces
// the cached session as a whole.
type Session struct {
	Key      string
	IssuedAt time.Time
	TTL      time.Duration
}

// ValidAt reports whether the session is still usable at now, leaving the
// safety margin before the controller expires it.
func (s Session) ValidAt(now time.Time) bool {
	if s.Key == "" {
		return false
	}
	return now.Sub(s.IssuedAt) < s.TTL-SessionSafetyMargin
}

// loginResponse is the body returned by GET /login.
type loginResponse struct {
	AuthKey string `json:"authkey"`
	Version string `json:"version"`
}

// EnsureSession returns a valid session, logging in when the cached one is
// missing or inside the renewal margin.
//
// A still-valid session is returned without I/O or locking. Renewals are
// serialised so concurrent callers trigger at most one login.
//
// If a login fails while an older session is cached, the older session is
// returned with a nil error and a warning is logged; later requests then see
// authorisation failures from the controller. With no cached session the
// ErrAuth failure is returned.
func (c *Client) EnsureSession(ctx context.Context) (Session, error) {
	if s := c.session.Load(); s != nil && s.ValidAt(c.now()) {
		return *s, nil
	}

	c.renewMu.Lock()
	defer c.renewMu.Unlock()

	// Another caller may have renewed while we waited.
	prev := c.session.Load()
	if prev != nil && prev.ValidAt(c.now()) {
		return *prev, nil
	}

	fresh, err := c.login(ctx)
	if err != nil {
		if prev == nil {
			return Session{}, err
		}
		c.logger.Warn("hub session renewal failed, reusing previous session",
			"error", err,
			"issued_at", prev.IssuedAt,
		)
		return *prev, nil
	}

	c.session.Store(fresh)
	c.logger.Info("hub session acquired", "issued_at", fresh.IssuedAt)
	return *fresh, nil
}

// Invalidate forgets the cached session so the next call logs in again.
func (c *Client) Invalidate() {
	c.renewMu.Lock()
	defer c.renewMu.Unlock()
	c.session.Store(nil)
}

// Close drops the session and idle connections.
func (c *Client) Close() {
	c.Invalidate()
	c.http.CloseIdleConnections()
}

// login exchanges the API token for a new session key.
func (c *Client) login(ctx context.Context) (*Session, error) {
	issuedAt := c.now()

	var resp loginResponse
	err := c.roundTrip(ctx, http.MethodGet, "/login", map[string]string{headerAuthToken: c.apiToken}, nil, &resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuth, err)
	}
	if resp.AuthKey == "" {
		return nil, fmt.Errorf("%w: login response carried no authkey", ErrAuth)
	}

	return &Session{
		Key:      resp.AuthKey,
		IssuedAt: issuedAt,
		TTL:      SessionTTL,
	}, nil
}
