package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/wavechat/wavechat/internal/log"
	"github.com/wavechat/wavechat/internal/store"
)

const (
	sessionCookieName = "sid"
	minPasswordLen    = 6
)

// sessionManager issues and verifies the signed session cookie and
// owns the register/login/logout/me handlers.
type sessionManager struct {
	store         Store
	hmacSecret    []byte
	sessionTTL    time.Duration
	messagesLimit int
	isDev         bool
	logger        log.Logger
}

// signSessionID creates a tamper-evident cookie value:
// "<id>.base64url(HMAC-SHA256(secret, id))".
func signSessionID(id string, secret []byte) string {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(id))
	sig := base64.URLEncoding.EncodeToString(h.Sum(nil))
	return id + "." + sig
}

// verifySignedSessionID verifies the HMAC and returns the embedded
// session ID. Any failure yields false.
func verifySignedSessionID(value string, secret []byte) (string, bool) {
	idx := strings.LastIndex(value, ".")
	if idx < 1 {
		return "", false
	}

	id := value[:idx]
	sig, err := base64.URLEncoding.DecodeString(value[idx+1:])
	if err != nil {
		return "", false
	}

	h := hmac.New(sha256.New, secret)
	h.Write([]byte(id))
	expected := h.Sum(nil)

	if subtle.ConstantTimeCompare(sig, expected) != 1 {
		return "", false
	}
	return id, true
}

// sessionID extracts and verifies the session ID from the sid cookie.
func (sm *sessionManager) sessionID(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return "", false
	}
	id, ok := verifySignedSessionID(cookie.Value, sm.hmacSecret)
	if !ok {
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

func (sm *sessionManager) setSessionCookie(w http.ResponseWriter, sessionID string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    signSessionID(sessionID, sm.hmacSecret),
		Path:     "/",
		Secure:   !sm.isDev,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
	})
}

func (sm *sessionManager) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Secure:   !sm.isDev,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

type registerRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     *string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// register handles POST /api/v1/auth/register. A session is opened
// immediately so the client lands logged in.
func (sm *sessionManager) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := readJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", err.Error(), sm.logger)
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_email", "a valid email address is required", sm.logger)
		return
	}
	if len(req.Password) < minPasswordLen {
		WriteError(w, http.StatusBadRequest, "weak_password", "password must be at least 6 characters", sm.logger)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		sm.logger.Error("hashing password", "error", err)
		WriteError(w, http.StatusInternalServerError, "register_failed", "failed to create account", sm.logger)
		return
	}

	user, err := sm.store.CreateUser(r.Context(), email, string(hash), req.Name, sm.messagesLimit)
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			WriteError(w, http.StatusConflict, "email_taken", "email already registered", sm.logger)
			return
		}
		sm.logger.Error("creating user", "error", err)
		WriteError(w, http.StatusInternalServerError, "register_failed", "failed to create account", sm.logger)
		return
	}

	sm.openSession(w, r, user, http.StatusCreated)
}

// login handles POST /api/v1/auth/login. Unknown email and wrong
// password produce the same response so accounts cannot be enumerated.
func (sm *sessionManager) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", err.Error(), sm.logger)
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := sm.store.UserByEmail(r.Context(), email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			sm.logger.Error("loading user for login", "error", err)
		}
		// Burn a bcrypt comparison so the timing matches the wrong
		// password path.
		_ = bcrypt.CompareHashAndPassword(
			[]byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"),
			[]byte(req.Password))
		WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password", sm.logger)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		WriteError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password", sm.logger)
		return
	}

	sm.openSession(w, r, user, http.StatusOK)
}

func (sm *sessionManager) openSession(w http.ResponseWriter, r *http.Request, user *store.User, status int) {
	sess, err := sm.store.CreateSession(r.Context(), user.ID, sm.sessionTTL)
	if err != nil {
		sm.logger.Error("creating session", "error", err, "user_id", user.ID)
		WriteError(w, http.StatusInternalServerError, "session_failed", "failed to create session", sm.logger)
		return
	}

	sm.setSessionCookie(w, sess.ID, sess.ExpiresAt)
	WriteJSON(w, status, map[string]any{"user": user}, sm.logger)
}

// logout handles POST /api/v1/auth/logout.
func (sm *sessionManager) logout(w http.ResponseWriter, r *http.Request) {
	if id, ok := sm.sessionID(r); ok {
		if err := sm.store.DeleteSession(r.Context(), id); err != nil {
			sm.logger.Error("deleting session", "error", err)
		}
	}
	sm.clearSessionCookie(w)
	WriteJSON(w, http.StatusOK, map[string]any{"loggedOut": true}, sm.logger)
}

// me handles GET /api/v1/auth/me.
func (sm *sessionManager) me(w http.ResponseWriter, r *http.Request, user *store.User) {
	WriteJSON(w, http.StatusOK, map[string]any{"user": user}, sm.logger)
}
