// Package gate decides, per inbound request, whether the caller may drive
// the registry. Policies are evaluated in order: shared secret, trusted
// loopback origin, then signed session cookie — short-circuiting on the
// first success.
package gate

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/bcrypt"
)

// SessionCookie names the signed dashboard session cookie.
const SessionCookie = "executive-session"

// APIKeyHeader carries the shared secret for machine-to-machine callers.
const APIKeyHeader = "X-Api-Key"

const sessionTTL = 7 * 24 * time.Hour

var ErrUnauthorized = errors.New("unauthorized")

type Config struct {
	// APIKey is the shared secret; empty disables the policy.
	APIKey string
	// TrustLoopback authorizes requests originating from the loopback
	// interface without any secret.
	TrustLoopback bool
	// PasswordHash is the bcrypt hash checked by Login; empty disables
	// password sessions.
	PasswordHash string
	// CookieSecret signs the session cookie.
	CookieSecret string
}

// Gate owns the active-session set. Sessions live in memory only: they are
// populated on login, cleared on logout, and gone after a restart.
type Gate struct {
	cfg   Config
	codec *securecookie.SecureCookie

	mu       sync.Mutex
	sessions map[string]struct{}
}

func New(cfg Config) *Gate {
	g := &Gate{cfg: cfg, sessions: make(map[string]struct{})}
	if cfg.SessionsEnabled() {
		g.codec = securecookie.New([]byte(cfg.CookieSecret), nil)
		g.codec.MaxAge(int(sessionTTL / time.Second))
	}
	return g
}

// SessionsEnabled reports whether password login is configured.
func (c Config) SessionsEnabled() bool {
	return c.PasswordHash != "" && c.CookieSecret != ""
}

// SessionsEnabled reports whether this gate accepts session cookies.
func (g *Gate) SessionsEnabled() bool { return g.codec != nil }

// Authorize evaluates the configured policies against the request.
func (g *Gate) Authorize(r *http.Request) bool {
	if g.cfg.APIKey != "" {
		key := r.Header.Get(APIKeyHeader)
		if key != "" && subtle.ConstantTimeCompare([]byte(key), []byte(g.cfg.APIKey)) == 1 {
			return true
		}
	}
	if g.cfg.TrustLoopback && isLoopback(r.RemoteAddr) {
		return true
	}
	if g.codec != nil {
		if tok, ok := g.sessionToken(r); ok {
			g.mu.Lock()
			_, live := g.sessions[tok]
			g.mu.Unlock()
			return live
		}
	}
	return false
}

// Login checks the password against the configured hash and, on success,
// mints a fresh token and admits it to the active-session set.
func (g *Gate) Login(password string) (string, error) {
	if g.codec == nil || password == "" {
		return "", ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(g.cfg.PasswordHash), []byte(password)); err != nil {
		return "", ErrUnauthorized
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)

	g.mu.Lock()
	g.sessions[token] = struct{}{}
	g.mu.Unlock()
	return token, nil
}

// IssueCookie wraps a minted token as the signed session cookie.
func (g *Gate) IssueCookie(token string) (*http.Cookie, error) {
	if g.codec == nil {
		return nil, ErrUnauthorized
	}
	encoded, err := g.codec.Encode(SessionCookie, token)
	if err != nil {
		return nil, err
	}
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(sessionTTL / time.Second),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}, nil
}

// Logout removes the request's session from the active set and returns a
// cleared cookie to send back.
func (g *Gate) Logout(r *http.Request) *http.Cookie {
	if tok, ok := g.sessionToken(r); ok {
		g.mu.Lock()
		delete(g.sessions, tok)
		g.mu.Unlock()
	}
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

// ActiveSessions reports the size of the active-session set.
func (g *Gate) ActiveSessions() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sessions)
}

func (g *Gate) sessionToken(r *http.Request) (string, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return "", false
	}
	var token string
	if err := g.codec.Decode(SessionCookie, c.Value, &token); err != nil {
		return "", false
	}
	return token, true
}

func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
