package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"finitefield.org/wheel-of-life/internal/platform/requestctx"
)

const (
	sessionCookieName = "WHEEL_SESSION"
	sessionLifetime   = 180 * 24 * time.Hour
)

// SessionData is the signed content of the session cookie. The wizard state
// itself lives server side, keyed by ID.
type SessionData struct {
	ID        string    `json:"id"`
	Locale    string    `json:"locale,omitempty"`
	CSRFToken string    `json:"csrf,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	dirty bool
}

// MarkDirty flags the session for writing before the response.
func (s *SessionData) MarkDirty() {
	s.dirty = true
	s.UpdatedAt = time.Now().UTC()
}

// Sessions issues and verifies the HMAC-signed session cookie.
type Sessions struct {
	key    []byte
	secure bool
}

// NewSessions signs cookies with key. An empty key is replaced by a random
// per-process key, which invalidates sessions on restart.
func NewSessions(key string, secure bool, logger *zap.Logger) *Sessions {
	s := &Sessions{key: []byte(key), secure: secure}
	if key == "" {
		s.key = make([]byte, 32)
		_, _ = rand.Read(s.key)
		if logger != nil {
			logger.Warn("session: using ephemeral signing key; set WHEEL_SESSION_SIGNING_KEY")
		}
	}
	return s
}

// Middleware loads or starts a session and stores it in the request context.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sd, fromCookie := s.read(r)
		if sd.ID == "" {
			now := time.Now().UTC()
			sd = &SessionData{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now, CSRFToken: newCSRFToken(), dirty: true}
		}

		ctx := context.WithValue(r.Context(), ctxKeySession, sd)
		ctx = requestctx.WithSessionID(ctx, sd.ID)

		hw := &hookWriter{ResponseWriter: w, before: func(w http.ResponseWriter) {
			if sd.dirty || !fromCookie {
				s.write(w, sd)
			}
		}}
		next.ServeHTTP(hw, r.WithContext(ctx))
		hw.fire()
	})
}

// GetSession returns the request's session, or an empty one outside the middleware.
func GetSession(r *http.Request) *SessionData {
	if sd, ok := r.Context().Value(ctxKeySession).(*SessionData); ok {
		return sd
	}
	return &SessionData{}
}

func (s *Sessions) read(r *http.Request) (*SessionData, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return &SessionData{}, false
	}
	payloadPart, sigPart, ok := strings.Cut(c.Value, ".")
	if !ok {
		return &SessionData{}, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(payloadPart)
	if err != nil {
		return &SessionData{}, false
	}
	sig, err := base64.RawURLEncoding.DecodeString(sigPart)
	if err != nil || !hmac.Equal(sig, s.sign(payload)) {
		return &SessionData{}, false
	}
	var sd SessionData
	if err := json.Unmarshal(payload, &sd); err != nil {
		return &SessionData{}, false
	}
	if _, err := uuid.Parse(sd.ID); err != nil {
		return &SessionData{}, false
	}
	return &sd, true
}

func (s *Sessions) write(w http.ResponseWriter, sd *SessionData) {
	payload, _ := json.Marshal(sd)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(payload) + "." + base64.RawURLEncoding.EncodeToString(s.sign(payload)),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(sessionLifetime),
	})
}

func (s *Sessions) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(payload)
	return mac.Sum(nil)
}
