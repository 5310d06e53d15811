// internal/api/theme/handlers.go
package theme

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/codr1/dashprefs/internal/api/apiutil"
	"github.com/codr1/dashprefs/internal/api/htmx"
	"github.com/codr1/dashprefs/internal/broadcast"
	"github.com/codr1/dashprefs/internal/models"
	prefs "github.com/codr1/dashprefs/internal/settings"
	settingstempl "github.com/codr1/dashprefs/internal/templates/components/settings"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// The browser never sends anything but control frames.
	maxMessageSize = 512

	readTimeout = 5 * time.Second
)

type themeResponse struct {
	Theme   models.Theme `json:"theme"`
	Loading bool         `json:"loading"`
}

// Message is what the websocket pushes on every theme change.
type Message struct {
	Type  string       `json:"type"`
	Theme models.Theme `json:"theme"`
}

const messageThemeChanged = "theme_changed"

type subscriber interface {
	Subscribe(fn func(broadcast.Event)) func()
}

type Handler struct {
	svc      *prefs.Service
	toggle   *prefs.Toggle
	events   subscriber
	upgrader websocket.Upgrader
	guard    apiutil.Guard
}

func NewHandler(svc *prefs.Service, toggle *prefs.Toggle, events subscriber) *Handler {
	return &Handler{
		svc:    svc,
		toggle: toggle,
		events: events,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// WithWriteGuard wraps the toggle route.
func (h *Handler) WithWriteGuard(guard apiutil.Guard) *Handler {
	h.guard = guard
	return h
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/theme", h.HandleGetTheme)
	mux.HandleFunc("POST /api/v1/theme/toggle", h.guard.Wrap(h.HandleToggleTheme))
	mux.HandleFunc("GET /api/v1/theme/ws", h.HandleThemeSocket)
}

// GET /api/v1/theme
func (h *Handler) HandleGetTheme(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, http.StatusOK)
}

// POST /api/v1/theme/toggle
func (h *Handler) HandleToggleTheme(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	_, err := h.toggle.Toggle(r.Context())
	switch {
	case err == nil:
		h.respond(w, r, http.StatusOK)
	case htmx.IsRequest(r):
		// The button re-renders with whatever theme is current.
		h.respond(w, r, http.StatusOK)
	case errors.Is(err, prefs.ErrToggleInProgress):
		apiutil.WriteError(w, http.StatusConflict, "A theme change is already in progress.")
	default:
		logger.Error().Err(err).Msg("Failed to toggle theme")
		apiutil.WriteError(w, http.StatusInternalServerError, "Theme could not be changed.")
	}
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, status int) {
	data := themeResponse{Theme: h.toggle.Theme(), Loading: h.toggle.Loading()}
	if htmx.IsRequest(r) {
		component := settingstempl.ThemeToggle(settingstempl.ToggleData{Theme: data.Theme, Loading: data.Loading})
		apiutil.RenderHTMLComponent(r.Context(), w, component, nil, "Failed to render theme toggle", "Failed to render toggle")
		return
	}
	if err := apiutil.WriteJSON(w, status, data); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write theme response")
	}
}

// GET /api/v1/theme/ws
func (h *Handler) HandleThemeSocket(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context()).With().Str("component", "theme_ws").Logger()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to upgrade theme websocket")
		return
	}

	// One pending notification is enough: the writer always sends the
	// current theme, so bursts collapse.
	changed := make(chan struct{}, 1)
	unsubscribe := h.events.Subscribe(func(event broadcast.Event) {
		if event.Kind != broadcast.KindThemeChanged {
			return
		}
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	closed := make(chan struct{})
	go h.readPump(conn, closed, logger)
	h.writePump(conn, changed, closed, logger)

	unsubscribe()
	_ = conn.Close()
	logger.Debug().Msg("Theme websocket closed")
}

// readPump drains control frames and closes closed when the peer goes away.
func (h *Handler) readPump(conn *websocket.Conn, closed chan<- struct{}, logger zerolog.Logger) {
	defer close(closed)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug().Err(err).Msg("Theme websocket read failed")
			}
			return
		}
	}
}

func (h *Handler) writePump(conn *websocket.Conn, changed <-chan struct{}, closed <-chan struct{}, logger zerolog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-changed:
			ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
			current := h.svc.CurrentSettings(ctx)
			cancel()

			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(Message{Type: messageThemeChanged, Theme: current.Theme}); err != nil {
				logger.Debug().Err(err).Msg("Theme websocket write failed")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
