package auth

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

const (
	SessionCookieName = "dashboard_session"
	// pendingSessionTTL bounds a session that only carries the login state.
	pendingSessionTTL = 10 * time.Minute
	sessionIssuer     = "orders-dashboard"
)

// Session is the signed cookie payload. A session with both Token and Email
// is authorized; one with only State is waiting for the provider callback.
type Session struct {
	State     string        `json:"state,omitempty"`
	Email     string        `json:"email,omitempty"`
	Token     *oauth2.Token `json:"token,omitempty"`
	Permanent bool          `json:"permanent,omitempty"`
}

func (s *Session) Authenticated() bool {
	return s != nil && s.Token != nil && s.Email != ""
}

type sessionClaims struct {
	Session
	jwt.RegisteredClaims
}

// SessionStore keeps the session in an HS256-signed cookie. Permanent
// sessions get a sliding expiry: every Save pushes it out by ttl.
type SessionStore struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewSessionStore(secret string, ttl time.Duration, secure bool) *SessionStore {
	return &SessionStore{secret: []byte(secret), ttl: ttl, secure: secure, now: time.Now}
}

// Load returns the request's session, or an empty one when the cookie is
// missing, expired or tampered with.
func (s *SessionStore) Load(r *http.Request) *Session {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return &Session{}
	}
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(cookie.Value, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return &Session{}
	}
	session := claims.Session
	return &session
}

func (s *SessionStore) Save(w http.ResponseWriter, session *Session) error {
	ttl := pendingSessionTTL
	if session.Permanent {
		ttl = s.ttl
	}
	now := s.now()
	claims := sessionClaims{
		Session: *session,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}

	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if session.Permanent {
		cookie.Expires = now.Add(ttl)
		cookie.MaxAge = int(ttl.Seconds())
	}
	http.SetCookie(w, cookie)
	return nil
}

func (s *SessionStore) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
