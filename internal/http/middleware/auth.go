// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements request authentication: validation of the app session
// token (a short-lived HS256 JWT minted at login) and extraction of the
// caller's calendar credential from request headers. The backend never holds
// an ambient calendar session; every calendar-touching request carries the
// user's own tokens, which are passed down to the calendar client explicitly.
package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/rxmind/go-reminder-backend/internal/calendar"
)

// Calendar credential headers. Expiry is RFC3339; absent expiry means the
// access token is treated as live until the calendar rejects it.
const (
	HeaderCalendarToken   = "X-Calendar-Token"
	HeaderCalendarRefresh = "X-Calendar-Refresh-Token"
	HeaderCalendarExpiry  = "X-Calendar-Token-Expiry"
)

// ctxKeyCredential stashes the parsed calendar.Credential.
const ctxKeyCredential = "calendarCredential"

// SessionAuth validates the Authorization bearer token as an HS256 session
// JWT and stores its subject in the Gin context under "userID". Requests
// without a valid token are rejected with a 401 envelope.
func SessionAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("Authorization"))
		const prefix = "Bearer "
		if !strings.HasPrefix(raw, prefix) {
			unauthorized(c, "missing bearer token")
			return
		}

		token, err := jwt.Parse(strings.TrimSpace(raw[len(prefix):]),
			func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return secret, nil
			},
			jwt.WithValidMethods([]string{"HS256"}),
		)
		if err != nil || !token.Valid {
			unauthorized(c, "invalid or expired session")
			return
		}

		sub, err := token.Claims.GetSubject()
		if err != nil || sub == "" {
			unauthorized(c, "session has no subject")
			return
		}

		c.Set("userID", sub)
		c.Next()
	}
}

// CalendarCredential extracts the per-request calendar credential from the
// dedicated headers and stores it in the Gin context. The middleware never
// rejects: endpoints that do not touch the calendar work without one, and
// calendar calls with an empty credential fail there as auth errors.
func CalendarCredential() gin.HandlerFunc {
	return func(c *gin.Context) {
		cred := calendar.Credential{
			AccessToken:  strings.TrimSpace(c.GetHeader(HeaderCalendarToken)),
			RefreshToken: strings.TrimSpace(c.GetHeader(HeaderCalendarRefresh)),
		}
		if raw := strings.TrimSpace(c.GetHeader(HeaderCalendarExpiry)); raw != "" {
			if t, err := time.Parse(time.RFC3339, raw); err == nil {
				cred.Expiry = t
			}
		}
		c.Set(ctxKeyCredential, cred)
		c.Next()
	}
}

// CredentialFrom returns the calendar credential stashed by
// CalendarCredential; the zero Credential when absent.
func CredentialFrom(c *gin.Context) calendar.Credential {
	if v, ok := c.Get(ctxKeyCredential); ok {
		if cred, ok := v.(calendar.Credential); ok {
			return cred
		}
	}
	return calendar.Credential{}
}

// unauthorized aborts with the standard 401 envelope.
func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       "unauthorized",
		"message":    msg,
	})
}
