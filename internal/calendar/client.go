// REST client for the external calendar service. Every method takes the
// caller's explicit credential, attaches the bearer header, and translates
// non-2xx responses into *UpstreamError with the response body preserved for
// logging. The client never swallows failures; the one best-effort call in
// the system (the audit description PATCH) is downgraded by the service
// layer, not here.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

// maxErrorBodyBytes caps how much of an upstream error body is retained.
const maxErrorBodyBytes = 4 << 10

// UpstreamError is any non-success response from the external calendar.
type UpstreamError struct {
	Op     string // e.g. "insert event"
	Status int    // HTTP status code, 0 for transport failures
	Body   string // truncated response body
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("calendar: %s failed: %s", e.Op, e.Body)
	}
	return fmt.Sprintf("calendar: %s failed with status %d", e.Op, e.Status)
}

// Client talks to the external calendar's event store.
//
// BaseURL points at the events collection (e.g.
// "https://calendar.example.com/calendars/primary"). Tokens, when set,
// enables the one-shot refresh of expired credentials before a call.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Tokens  TokenSource

	// Now is a seam for tests; defaults to time.Now.
	Now func() time.Time
}

// NewClient constructs a Client with a sane default HTTP timeout.
func NewClient(baseURL string, ts TokenSource) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
		Tokens:  ts,
	}
}

// InsertEvent creates a new event and returns it with the server-assigned
// identifier.
func (c *Client) InsertEvent(ctx context.Context, cred Credential, ev Event) (Event, error) {
	var created Event
	err := c.do(ctx, cred, "insert event", http.MethodPost, c.BaseURL+"/events", ev, &created)
	return created, err
}

// ListEvents returns the app-tagged events within [timeMin, timeMax], with
// recurring series expanded to single instances, in chronological order.
func (c *Client) ListEvents(ctx context.Context, cred Credential, timeMin, timeMax time.Time) ([]Event, error) {
	q := url.Values{
		"timeMin":                 {timeMin.Format(time.RFC3339)},
		"timeMax":                 {timeMax.Format(time.RFC3339)},
		"singleEvents":            {"true"},
		"orderBy":                 {"startTime"},
		"privateExtendedProperty": {PropAppTag + "=true"},
	}
	var list EventList
	err := c.do(ctx, cred, "list events", http.MethodGet, c.BaseURL+"/events?"+q.Encode(), nil, &list)
	return list.Items, err
}

// GetEvent fetches a single event by identifier.
func (c *Client) GetEvent(ctx context.Context, cred Credential, id string) (Event, error) {
	var ev Event
	err := c.do(ctx, cred, "get event", http.MethodGet, c.BaseURL+"/events/"+url.PathEscape(id), nil, &ev)
	return ev, err
}

// PatchEventDescription updates only an event's description, used for the
// status audit trail.
func (c *Client) PatchEventDescription(ctx context.Context, cred Credential, id, description string) error {
	body := map[string]string{"description": description}
	return c.do(ctx, cred, "patch event", http.MethodPatch, c.BaseURL+"/events/"+url.PathEscape(id), body, nil)
}

// authorize returns a usable access token, refreshing the credential at most
// once when it has expired. A refresh failure surfaces as ErrAuthExpired.
func (c *Client) authorize(ctx context.Context, cred Credential) (string, error) {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	if !cred.Expired(now()) {
		return cred.AccessToken, nil
	}
	if c.Tokens == nil {
		return "", ErrAuthExpired
	}
	refreshed, err := c.Tokens.Refresh(ctx, cred)
	if err != nil {
		if errors.Is(err, ErrAuthExpired) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrAuthExpired, err)
	}
	return refreshed.AccessToken, nil
}

// do performs one authorized round-trip, decoding a 2xx JSON body into out
// (when non-nil) and converting failures to *UpstreamError.
func (c *Client) do(ctx context.Context, cred Credential, op, method, rawURL string, in, out any) error {
	token, err := c.authorize(ctx, cred)
	if err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("calendar: encode %s: %w", op, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return fmt.Errorf("calendar: build %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpc := c.HTTP
	if httpc == nil {
		httpc = http.DefaultClient
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return &UpstreamError{Op: op, Body: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		uerr := &UpstreamError{Op: op, Status: resp.StatusCode, Body: string(raw)}
		log.Error().
			Str("op", op).
			Int("status", resp.StatusCode).
			Str("body", uerr.Body).
			Msg("calendar upstream error")
		return uerr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &UpstreamError{Op: op, Status: resp.StatusCode, Body: "malformed response body"}
		}
	}
	return nil
}
