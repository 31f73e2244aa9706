package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/satheeshds/cdaplus/db"
	"github.com/satheeshds/cdaplus/fields"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

// Response is the standard JSON envelope for all API responses.
type Response struct {
	Data  any    `json:"data"`
	Error string `json:"error,omitempty"`
}

// Repo is the shared repository used by all handlers.
var Repo db.Repository

// Catalog serves the field schemas of every scope. It is built over Repo.
var Catalog *fields.Catalog

// Setup wires the shared repository and the field catalog.
func Setup(repo db.Repository, reg *fields.Registry) {
	Repo = repo
	Catalog = fields.NewCatalog(repo, reg)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Response{Data: data})
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Response{Error: msg})
}

// writeInvalid writes a 422 carrying the offending details as data.
func writeInvalid(w http.ResponseWriter, msg string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnprocessableEntity)
	json.NewEncoder(w).Encode(Response{Data: details, Error: msg})
}

// writeFailure maps a repository or catalog error to its status code.
func writeFailure(w http.ResponseWriter, err error, notFound string) {
	var draftErrs fields.DraftErrors
	switch {
	case errors.As(err, &draftErrs):
		writeInvalid(w, "invalid field definition", draftErrs)
	case errors.Is(err, db.ErrNotFound), errors.Is(err, fields.ErrUnknownField):
		writeError(w, http.StatusNotFound, notFound)
	case errors.Is(err, fields.ErrUnknownFieldType), errors.Is(err, fields.ErrInvalidOrder):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, fields.ErrRemoveNotAllowed):
		writeError(w, http.StatusMethodNotAllowed, err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// BasicAuth is middleware that enforces HTTP Basic Authentication against
// a bcrypt password hash.
func BasicAuth(user, passwordHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		// If no credentials are configured, skip auth
		if user == "" && passwordHash == "" {
			slog.Warn("auth.user and auth.password_hash not set, API is unauthenticated")
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, p, ok := r.BasicAuth()
			if !ok || u != user || bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(p)) != nil {
				w.Header().Set("WWW-Authenticate", `Basic realm="cdaplus"`)
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit rejects requests above rps with a burst allowance. A
// non-positive rps disables limiting.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rps <= 0 {
			return next
		}
		if burst < 1 {
			burst = 1
		}
		limiter := rate.NewLimiter(rate.Limit(rps), burst)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Healthz reports whether the repository is reachable. It is mounted at
// the root, outside the documented /api/v1 base path.
func Healthz(w http.ResponseWriter, r *http.Request) {
	if err := Repo.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
