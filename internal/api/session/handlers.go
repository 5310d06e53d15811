// internal/api/session/handlers.go
package session

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/codr1/dashprefs/internal/api/apiutil"
	"github.com/codr1/dashprefs/internal/profile"
	prefs "github.com/codr1/dashprefs/internal/settings"
)

type sessionRequest struct {
	Token string `json:"token"`
}

type sessionResponse struct {
	SignedIn bool   `json:"signedIn"`
	UserID   string `json:"userId,omitempty"`
}

// Handler lets the dashboard's login flow hand its token to this server.
// Authentication itself happens elsewhere.
type Handler struct {
	auth  *profile.AuthStore
	form  *prefs.Form
	guard apiutil.Guard
}

func NewHandler(auth *profile.AuthStore, form *prefs.Form) *Handler {
	return &Handler{auth: auth, form: form}
}

// WithTokenGuard wraps the route that accepts tokens.
func (h *Handler) WithTokenGuard(guard apiutil.Guard) *Handler {
	h.guard = guard
	return h
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/session", h.HandleGetSession)
	mux.HandleFunc("PUT /api/v1/session", h.guard.Wrap(h.HandlePutSession))
	mux.HandleFunc("DELETE /api/v1/session", h.HandleDeleteSession)
}

// GET /api/v1/session
func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	_, userID, ok := h.auth.Token()
	_ = apiutil.WriteJSON(w, http.StatusOK, sessionResponse{SignedIn: ok, UserID: userID})
}

// PUT /api/v1/session
func (h *Handler) HandlePutSession(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	token, err := tokenFromRequest(r)
	if err != nil {
		apiutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.auth.Save(token); err != nil {
		if errors.Is(err, profile.ErrInvalidToken) {
			logger.Warn().Err(err).Msg("Rejected session token")
			apiutil.WriteError(w, http.StatusBadRequest, "Token is not a valid session token.")
			return
		}
		logger.Error().Err(err).Msg("Failed to store session token")
		apiutil.WriteError(w, http.StatusInternalServerError, "Session could not be stored.")
		return
	}

	_, userID, ok := h.auth.Token()
	logger.Info().Str("user_id", userID).Msg("Session token stored")

	// A new user means a new reconciliation.
	if _, err := h.form.Load(r.Context()); err != nil {
		logger.Warn().Err(err).Str("user_id", userID).Msg("Reconciliation after sign-in finished with errors")
	}
	_ = apiutil.WriteJSON(w, http.StatusOK, sessionResponse{SignedIn: ok, UserID: userID})
}

// DELETE /api/v1/session
func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	h.auth.Clear()
	log.Ctx(r.Context()).Info().Msg("Session token cleared")

	if _, err := h.form.Load(r.Context()); err != nil {
		log.Ctx(r.Context()).Warn().Err(err).Msg("Reload after sign-out finished with errors")
	}
	w.WriteHeader(http.StatusNoContent)
}

// tokenFromRequest accepts a JSON body or an Authorization bearer header.
func tokenFromRequest(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return "", errors.New("authorization header must be a bearer token")
		}
		return strings.TrimSpace(token), nil
	}

	var req sessionRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		return "", errors.New("request body must be {\"token\": \"...\"}")
	}
	if strings.TrimSpace(req.Token) == "" {
		return "", errors.New("token is required")
	}
	return strings.TrimSpace(req.Token), nil
}
