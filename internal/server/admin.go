package server

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"
)

const adminTokenTTL = 12 * time.Hour

var errInvalidCredentials = errors.New("invalid credentials")

// Admins issues opaque bearer tokens to whoever knows the admin password.
// Tokens live in memory only; a restart logs everyone out.
type Admins struct {
	hash  []byte
	clock clockwork.Clock

	mu     sync.Mutex
	tokens map[string]time.Time // token -> expiry
}

// NewAdmins takes a bcrypt hash of the admin password. With an empty hash
// every login fails.
func NewAdmins(passwordHash string, clock clockwork.Clock) *Admins {
	return &Admins{
		hash:   []byte(passwordHash),
		clock:  clock,
		tokens: make(map[string]time.Time),
	}
}

func (a *Admins) Login(password string) (string, error) {
	if len(a.hash) == 0 || password == "" {
		return "", errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
		return "", errInvalidCredentials
	}

	token := uuid.NewString()
	now := a.clock.Now()

	a.mu.Lock()
	defer a.mu.Unlock()
	for t, exp := range a.tokens {
		if now.After(exp) {
			delete(a.tokens, t)
		}
	}
	a.tokens[token] = now.Add(adminTokenTTL)
	return token, nil
}

func (a *Admins) Logout(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.tokens, token)
}

func (a *Admins) Valid(token string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	exp, ok := a.tokens[token]
	if !ok {
		return false
	}
	if a.clock.Now().After(exp) {
		delete(a.tokens, token)
		return false
	}
	return true
}

func bearerToken(r *http.Request) string {
	token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return strings.TrimSpace(token)
}

// AdminLoginRequest is the request body for POST /api/admin/login.
type AdminLoginRequest struct {
	Password string `json:"password"`
}

type AdminLoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func handleAdminLogin(admins *Admins) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdminLoginRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		token, err := admins.Login(req.Password)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		writeJSON(w, http.StatusOK, AdminLoginResponse{
			Token:     token,
			ExpiresAt: admins.clock.Now().Add(adminTokenTTL).UTC(),
		})
	}
}

func handleAdminLogout(admins *Admins) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token := bearerToken(r); token != "" {
			admins.Logout(token)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func requireAdmin(admins *Admins) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !admins.Valid(bearerToken(r)) {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
