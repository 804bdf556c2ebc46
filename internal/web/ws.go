package web

import (
    "context"
    "encoding/json"
    "net/http"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/gorilla/websocket"

    "github.com/jaminalder/tictactoe-solver/internal/app"
)

type wsMessage struct {
    Type    string          `json:"type"`
    Payload json.RawMessage `json:"payload,omitempty"`
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// ws streams JSON game state: one "state" message on connect, one after
// every move, and "ping" messages while idle. Clients may send
// {"type":"request_state"} to get the current state again.
func (h *handlers) ws(w http.ResponseWriter, r *http.Request) {
    id := chi.URLParam(r, "id")
    if _, ok := h.svc.Get(id); !ok {
        http.NotFound(w, r)
        return
    }
    conn, err := upgrader.Upgrade(w, r, nil)
    if err != nil {
        h.logger.Debug().Err(err).Str("game_id", id).Msg("websocket upgrade")
        return
    }
    defer conn.Close()

    ctx, cancel := context.WithCancel(r.Context())
    defer cancel()
    updates, unsub, err := h.svc.Subscribe(ctx, id)
    if err != nil {
        h.logger.Debug().Err(err).Str("game_id", id).Msg("websocket subscribe")
        return
    }
    defer unsub()

    requests := make(chan struct{}, 1)
    go func() {
        defer cancel()
        for {
            _, message, err := conn.ReadMessage()
            if err != nil {
                return
            }
            var msg wsMessage
            if err := json.Unmarshal(message, &msg); err != nil {
                continue
            }
            if msg.Type == "request_state" {
                select {
                case requests <- struct{}{}:
                default:
                }
            }
        }
    }()

    if err := h.writeWSState(conn, id); err != nil {
        return
    }
    if err := h.writeWSWithHeartbeat(ctx, conn, id, updates, requests); err != nil {
        h.logger.Debug().Err(err).Str("game_id", id).Msg("websocket closed")
    }
}

func (h *handlers) writeWSState(conn *websocket.Conn, id string) error {
    gs, ok := h.svc.Get(id)
    if !ok {
        return app.ErrNotFound
    }
    return writeWS(conn, wsMessage{Type: "state", Payload: mustMarshal(toStateDTO(*gs))})
}

func (h *handlers) writeWSWithHeartbeat(ctx context.Context, conn *websocket.Conn, id string, updates <-chan []byte, requests <-chan struct{}) error {
    ticker := time.NewTicker(h.heartbeat)
    defer ticker.Stop()
    lastWrite := time.Now()

    for {
        select {
        case <-ctx.Done():
            return nil
        case _, ok := <-updates:
            if !ok {
                return nil
            }
            if err := h.writeWSState(conn, id); err != nil {
                return err
            }
            lastWrite = time.Now()
        case <-requests:
            if err := h.writeWSState(conn, id); err != nil {
                return err
            }
            lastWrite = time.Now()
        case <-ticker.C:
            if time.Since(lastWrite) < h.heartbeat {
                continue
            }
            if err := writeWS(conn, wsMessage{Type: "ping"}); err != nil {
                return err
            }
            lastWrite = time.Now()
        }
    }
}

func writeWS(conn *websocket.Conn, msg wsMessage) error {
    data, err := json.Marshal(msg)
    if err != nil {
        return err
    }
    return conn.WriteMessage(websocket.TextMessage, data)
}
