package web

import (
    "net/http"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/go-chi/chi/v5/middleware"
    "github.com/rs/zerolog"
    "github.com/rs/zerolog/log"

    "github.com/jaminalder/tictactoe-solver/internal/app"
)

const defaultHeartbeat = 15 * time.Second

type Option func(h *handlers)

func WithLogger(l zerolog.Logger) Option {
    return func(h *handlers) {
        h.logger = l
    }
}

// WithHeartbeat sets the idle ping interval for SSE and websocket streams.
func WithHeartbeat(d time.Duration) Option {
    return func(h *handlers) {
        if d > 0 {
            h.heartbeat = d
        }
    }
}

// NewServer wires routes and returns an http.Handler. It installs a board
// fragment renderer on s for broadcasts.
func NewServer(s *app.Service, opts ...Option) http.Handler {
    h := &handlers{svc: s, tpl: loadTemplates(), logger: log.Logger, heartbeat: defaultHeartbeat}
    for _, opt := range opts {
        opt(h)
    }
    s.SetRenderer(func(gs app.GameState) []byte { return h.renderBoard(gs, "") })

    r := chi.NewRouter()
    r.Use(middleware.RequestID)
    r.Use(middleware.RealIP)
    r.Use(requestLogger(h.logger))
    r.Use(middleware.Recoverer)

    r.Get("/", h.index)
    r.Post("/game", h.create)
    r.Route("/game/{id}", func(r chi.Router) {
        r.Get("/", h.view)
        r.Post("/join", h.join)
        r.Post("/play", h.play)
        r.Get("/events", h.events)
        r.Get("/ws", h.ws)
    })
    r.Route("/api/games/{id}", func(r chi.Router) {
        r.Get("/", h.apiState)
        r.Get("/hint", h.apiHint)
    })
    return r
}

// requestLogger logs one line per request with the chi request id.
func requestLogger(l zerolog.Logger) func(http.Handler) http.Handler {
    return func(next http.Handler) http.Handler {
        return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
            ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
            start := time.Now()
            defer func() {
                l.Debug().
                    Str("request_id", middleware.GetReqID(r.Context())).
                    Str("method", r.Method).
                    Str("path", r.URL.Path).
                    Int("status", ww.Status()).
                    Int("bytes", ww.BytesWritten()).
                    Dur("elapsed", time.Since(start)).
                    Msg("request")
            }()
            next.ServeHTTP(ww, r)
        })
    }
}
