// Bearer credential handling for the external calendar. Credentials are
// passed explicitly into every call (no ambient session state); an expired
// access token is refreshed at most once per request via the configured
// token endpoint, and a failed refresh surfaces as ErrAuthExpired so the
// caller can prompt re-authentication.
package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrAuthExpired indicates the calendar credential is expired and could not
// be refreshed. The user must re-authenticate.
var ErrAuthExpired = errors.New("calendar credential expired")

// Credential is a bearer access token with known expiry and an optional
// refresh token.
type Credential struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Expired reports whether the access token's expiry has passed. A zero
// expiry means the token lifetime is unknown and it is used as-is.
func (c Credential) Expired(now time.Time) bool {
	return !c.Expiry.IsZero() && !now.Before(c.Expiry)
}

// TokenSource refreshes an expired credential. Implementations return the
// refreshed credential or an error when re-authentication is required.
type TokenSource interface {
	Refresh(ctx context.Context, cred Credential) (Credential, error)
}

// OAuthTokenSource refreshes credentials against a standard OAuth2 token
// endpoint using the refresh_token grant.
type OAuthTokenSource struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	HTTP         *http.Client
}

// Refresh exchanges the refresh token for a new access token. Any failure
// (missing refresh token, transport error, non-2xx response) is reported as
// ErrAuthExpired since the only recovery is re-authentication.
func (s *OAuthTokenSource) Refresh(ctx context.Context, cred Credential) (Credential, error) {
	if cred.RefreshToken == "" {
		return Credential{}, ErrAuthExpired
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {cred.RefreshToken},
		"client_id":     {s.ClientID},
		"client_secret": {s.ClientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrAuthExpired, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpc := s.HTTP
	if httpc == nil {
		httpc = http.DefaultClient
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrAuthExpired, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Credential{}, fmt.Errorf("%w: token endpoint returned %d", ErrAuthExpired, resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.AccessToken == "" {
		return Credential{}, fmt.Errorf("%w: malformed token response", ErrAuthExpired)
	}

	out := Credential{
		AccessToken:  body.AccessToken,
		RefreshToken: cred.RefreshToken,
	}
	if body.ExpiresIn > 0 {
		out.Expiry = time.Now().Add(time.Duration(body.ExpiresIn) * time.Second)
	}
	return out, nil
}
