// internal/httpserver/admin.go
//
// Admin access for axis generation.
//   - checkKey: constant-time comparison against ADMIN_KEY, or bcrypt against
//     ADMIN_KEY_HASH when one is configured.
//   - Sessions: POST /api/admin/session trades a valid key for an HS256 JWT
//     (subject "admin") set as an HttpOnly cookie; DELETE clears it.
//     Disabled when no JWT secret is configured.

package httpserver

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminCookieName = "squares_admin"
	adminSubject    = "admin"
)

// adminAuth verifies the shared admin secret and admin session tokens.
type adminAuth struct {
	key     string
	keyHash string
	secret  []byte
	ttl     time.Duration
	secure  bool
	now     func() time.Time
}

func newAdminAuth(opts Options) *adminAuth {
	return &adminAuth{
		key:     opts.AdminKey,
		keyHash: opts.AdminKeyHash,
		secret:  []byte(opts.JWTSecret),
		ttl:     opts.SessionTTL,
		secure:  opts.SecureCookies,
		now:     time.Now,
	}
}

// configured reports whether any admin secret is set.
func (a *adminAuth) configured() bool { return a.key != "" || a.keyHash != "" }

// sessionsEnabled reports whether session tokens can be minted.
func (a *adminAuth) sessionsEnabled() bool { return a.configured() && len(a.secret) > 0 }

// checkKey compares a presented key with the configured secret.
func (a *adminAuth) checkKey(presented string) bool {
	if presented == "" {
		return false
	}
	if a.keyHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(a.keyHash), []byte(presented)) == nil
	}
	if a.key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(a.key)) == 1
}

// signSession mints an admin session token.
func (a *adminAuth) signSession() (string, time.Time, error) {
	now := a.now()
	exp := now.Add(a.ttl)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   adminSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	ss, err := t.SignedString(a.secret)
	return ss, exp, err
}

// validSession reports whether r carries an unexpired admin session token.
func (a *adminAuth) validSession(r *http.Request) bool {
	if !a.sessionsEnabled() {
		return false
	}
	tok := bearerOrCookie(r)
	if tok == "" {
		return false
	}
	claims := &jwt.RegisteredClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if err != nil || !t.Valid {
		return false
	}
	return claims.Subject == adminSubject
}

// bearerOrCookie extracts a bearer token from Authorization header or admin cookie.
func bearerOrCookie(r *http.Request) string {
	// Authorization: Bearer <token>
	if h := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if c, err := r.Cookie(adminCookieName); err == nil {
		return c.Value
	}
	return ""
}

func (a *adminAuth) setCookie(w http.ResponseWriter, token string, exp time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     adminCookieName,
		Value:    token,
		Path:     "/api",
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  exp,
	})
}

func (a *adminAuth) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     adminCookieName,
		Value:    "",
		Path:     "/api",
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	})
}

// -----------------------------------------------------------------------------
// /api/admin/session

type sessionRes struct {
	OK        bool      `json:"ok"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// handleAdminLogin exchanges the admin key for a session token.
func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if !s.admin.configured() {
		writeError(w, http.StatusInternalServerError, "ADMIN_KEY is not configured")
		return
	}
	if !s.admin.sessionsEnabled() {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	var p generateReq
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if !s.admin.checkKey(stringish(p.AdminKey)) {
		writeError(w, http.StatusUnauthorized, "Invalid admin key")
		return
	}
	tok, exp, err := s.admin.signSession()
	if err != nil {
		log.Error().Err(err).Msg("sign admin session")
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return
	}
	s.admin.setCookie(w, tok, exp)
	log.Info().Time("expiresAt", exp).Msg("admin session issued")
	writeJSON(w, http.StatusOK, sessionRes{OK: true, Token: tok, ExpiresAt: exp})
}

// handleAdminLogout clears the session cookie.
func (s *Server) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	s.admin.clearCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
