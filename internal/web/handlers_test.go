package web

import (
    "encoding/json"
    "io"
    "net/http"
    "net/http/httptest"
    "net/url"
    "strings"
    "testing"
    "time"

    "github.com/gorilla/websocket"
    "github.com/rs/zerolog"

    "github.com/jaminalder/tictactoe-solver/internal/app"
    "github.com/jaminalder/tictactoe-solver/internal/search"
)

func newTestServer(t *testing.T) (*app.Service, http.Handler) {
    t.Helper()
    s := app.NewService(
        app.WithLogger(zerolog.Nop()),
        app.WithSearcher(search.New(search.WithLogger(zerolog.Nop()))),
    )
    h := NewServer(s, WithLogger(zerolog.Nop()))
    return s, h
}

var twoPlayers = app.CreateOptions{Mode: app.ModeHumans}

func TestIndexPage(t *testing.T) {
    _, h := newTestServer(t)
    req := httptest.NewRequest("GET", "/", nil)
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rr.Code != http.StatusOK {
        t.Fatalf("expected 200, got %d", rr.Code)
    }
    body := rr.Body.String()
    if !strings.Contains(body, "<form") || !strings.Contains(body, "action=\"/game\"") {
        t.Fatalf("index should contain create form; got body: %q", body)
    }
}

func TestCreateRedirectsToGame(t *testing.T) {
    _, h := newTestServer(t)
    req := httptest.NewRequest("POST", "/game", nil)
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rr.Code != http.StatusSeeOther && rr.Code != http.StatusFound {
        t.Fatalf("expected redirect, got %d", rr.Code)
    }
    loc := rr.Result().Header.Get("Location")
    if !strings.HasPrefix(loc, "/game/") {
        t.Fatalf("expected redirect to /game/{id}, got %q", loc)
    }
}

func TestGamePageSetsCookieAndAutoClaims(t *testing.T) {
    svc, h := newTestServer(t)
    // Create a game via service to know ID
    gs, _ := svc.CreateGame(twoPlayers)

    req := httptest.NewRequest("GET", "/game/"+url.PathEscape(gs.ID), nil)
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rr.Code != http.StatusOK {
        t.Fatalf("expected 200, got %d", rr.Code)
    }
    // Cookie set
    cookies := rr.Result().Cookies()
    var playerID string
    for _, c := range cookies {
        if c.Name == "player_id" {
            playerID = c.Value
            break
        }
    }
    if playerID == "" {
        t.Fatalf("expected player_id cookie to be set")
    }
    // Auto-claimed seat
    latest, ok := svc.Get(gs.ID)
    if !ok || (latest.X != playerID && latest.O != playerID) {
        t.Fatalf("expected auto-claim X or O; have X=%q O=%q pid=%q", latest.X, latest.O, playerID)
    }
    // SSE wiring present
    body := rr.Body.String()
    if !strings.Contains(body, "hx-ext=\"sse\"") || !strings.Contains(body, "/game/"+gs.ID+"/events") {
        t.Fatalf("expected SSE wiring in page; got body: %q", body)
    }
}

func TestJoinEndpointReturnsBoardFragment(t *testing.T) {
    svc, h := newTestServer(t)
    gs, _ := svc.CreateGame(twoPlayers)
    // First GET to auto-claim X for p1
    req1 := httptest.NewRequest("GET", "/game/"+gs.ID, nil)
    rr1 := httptest.NewRecorder()
    h.ServeHTTP(rr1, req1)
    // Extract cookie for second player
    p2 := &http.Cookie{Name: "player_id", Value: "p2"}
    form := url.Values{}
    req := httptest.NewRequest("POST", "/game/"+gs.ID+"/join", strings.NewReader(form.Encode()))
    req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
    req.AddCookie(p2)
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rr.Code != http.StatusOK {
        t.Fatalf("expected 200, got %d", rr.Code)
    }
    if !strings.Contains(rr.Body.String(), "id=\"board\"") {
        t.Fatalf("expected board fragment, got %q", rr.Body.String())
    }
    latest, _ := svc.Get(gs.ID)
    if latest.O != "p2" && latest.X != "p2" { // allow if X was free
        t.Fatalf("expected seat for p2, got X=%q O=%q", latest.X, latest.O)
    }
}

func TestPlayEndpointUpdatesStateAndReturnsFragment(t *testing.T) {
    svc, h := newTestServer(t)
    gs, _ := svc.CreateGame(twoPlayers)
    // Assign X and O
    svc.Join(gs.ID, "p1")
    svc.Join(gs.ID, "p2")

    form := url.Values{"r": {"0"}, "c": {"0"}, "side": {"X"}}
    req := httptest.NewRequest("POST", "/game/"+gs.ID+"/play", strings.NewReader(form.Encode()))
    req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
    req.AddCookie(&http.Cookie{Name: "player_id", Value: "p1"})
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rr.Code != http.StatusOK {
        t.Fatalf("expected 200, got %d", rr.Code)
    }
    if !strings.Contains(rr.Body.String(), "id=\"board\"") {
        t.Fatalf("expected board fragment, got %q", rr.Body.String())
    }
    latest, _ := svc.Get(gs.ID)
    if latest.Game.Moves != 1 {
        t.Fatalf("expected move applied, moves=%d", latest.Game.Moves)
    }
}

func TestEventsEndpointSSEHeaders(t *testing.T) {
    _, h := newTestServer(t)
    // create a game via POST
    reqCreate := httptest.NewRequest("POST", "/game", nil)
    rrCreate := httptest.NewRecorder()
    h.ServeHTTP(rrCreate, reqCreate)
    loc := rrCreate.Result().Header.Get("Location")
    if loc == "" {
        t.Fatalf("missing redirect location")
    }
    // Request SSE
    req := httptest.NewRequest("GET", loc+"/events", nil)
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rr.Code != http.StatusOK {
        t.Fatalf("expected 200, got %d", rr.Code)
    }
    ct := rr.Result().Header.Get("Content-Type")
    if !strings.HasPrefix(ct, "text/event-stream") {
        io.Copy(io.Discard, rr.Result().Body)
        t.Fatalf("expected text/event-stream, got %q", ct)
    }
}

func TestEventsUnknownGameNotFound(t *testing.T) {
    svc, h := newTestServer(t)
    req := httptest.NewRequest("GET", "/game/missing/events", nil)
    req.Header.Set("Accept", "text/event-stream")
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rr.Code != http.StatusNotFound {
        t.Fatalf("expected 404, got %d", rr.Code)
    }
    if _, ok := svc.Get("missing"); ok {
        t.Fatalf("events request must not create a game")
    }
}


func TestPlayFragmentShowsBoardAndStatus(t *testing.T) {
    svc, h := newTestServer(t)
    gs, _ := svc.CreateGame(twoPlayers)
    svc.Join(gs.ID, "p1")
    svc.Join(gs.ID, "p2")

    form := url.Values{"r": {"1"}, "c": {"2"}}
    req := httptest.NewRequest("POST", "/game/"+gs.ID+"/play", strings.NewReader(form.Encode()))
    req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
    req.AddCookie(&http.Cookie{Name: "player_id", Value: "p1"})
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    body := rr.Body.String()
    if strings.Count(body, "<form") != 9 {
        t.Fatalf("expected 9 cell forms, got body: %q", body)
    }
    if !strings.Contains(body, ">X</button>") || !strings.Contains(body, "O to move") {
        t.Fatalf("expected X placed and O to move, got body: %q", body)
    }

    // Same cell again by O reports an occupied cell.
    req = httptest.NewRequest("POST", "/game/"+gs.ID+"/play", strings.NewReader(form.Encode()))
    req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
    req.AddCookie(&http.Cookie{Name: "player_id", Value: "p2"})
    rr = httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if !strings.Contains(rr.Body.String(), "Cell is occupied") {
        t.Fatalf("expected occupied error, got body: %q", rr.Body.String())
    }
}

func TestCreateComputerGameAsO(t *testing.T) {
    svc, h := newTestServer(t)
    form := url.Values{"mode": {"computer"}, "side": {"O"}}
    req := httptest.NewRequest("POST", "/game", strings.NewReader(form.Encode()))
    req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rr.Code != http.StatusSeeOther {
        t.Fatalf("expected redirect, got %d", rr.Code)
    }
    id := strings.TrimPrefix(rr.Result().Header.Get("Location"), "/game/")
    gs, ok := svc.Get(id)
    if !ok {
        t.Fatalf("game %q not found", id)
    }
    if gs.X != app.ComputerID || gs.Game.Moves != 1 {
        t.Fatalf("expected computer to open as X, X=%q moves=%d", gs.X, gs.Game.Moves)
    }
}

func TestCreateRejectsUnknownMode(t *testing.T) {
    _, h := newTestServer(t)
    form := url.Values{"mode": {"tournament"}}
    req := httptest.NewRequest("POST", "/game", strings.NewReader(form.Encode()))
    req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    if rr.Code != http.StatusBadRequest {
        t.Fatalf("expected 400, got %d", rr.Code)
    }
}

func TestAPIStateAndHint(t *testing.T) {
    svc, h := newTestServer(t)
    gs, _ := svc.CreateGame(twoPlayers)
    svc.Join(gs.ID, "p1")
    svc.Join(gs.ID, "p2")
    for i, m := range [][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
        p := "p1"
        if i%2 == 1 {
            p = "p2"
        }
        if _, err := svc.Play(gs.ID, p, m[0], m[1]); err != nil {
            t.Fatalf("play %v: %v", m, err)
        }
    }

    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/games/"+gs.ID, nil))
    if rr.Code != http.StatusOK {
        t.Fatalf("expected 200, got %d", rr.Code)
    }
    var st stateDTO
    if err := json.Unmarshal(rr.Body.Bytes(), &st); err != nil {
        t.Fatalf("decode state: %v", err)
    }
    if st.Moves != 4 || st.Turn != "X" || st.Board[0][1] != "X" || st.Board[1][0] != "O" || len(st.LegalMoves) != 5 {
        t.Fatalf("unexpected state: %+v", st)
    }

    rr = httptest.NewRecorder()
    h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/games/"+gs.ID+"/hint", nil))
    var ev evalDTO
    if err := json.Unmarshal(rr.Body.Bytes(), &ev); err != nil {
        t.Fatalf("decode hint: %v", err)
    }
    if ev.Move != (moveDTO{Row: 0, Col: 2}) || ev.Score != 95 || ev.Outcome != "win" || ev.FinalMove != 5 {
        t.Fatalf("unexpected hint: %+v", ev)
    }

    if _, err := svc.Play(gs.ID, "p1", 0, 2); err != nil {
        t.Fatalf("winning move: %v", err)
    }
    rr = httptest.NewRecorder()
    h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/games/"+gs.ID+"/hint", nil))
    if rr.Code != http.StatusConflict {
        t.Fatalf("expected 409 on finished game, got %d", rr.Code)
    }

    rr = httptest.NewRecorder()
    h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/games/missing", nil))
    if rr.Code != http.StatusNotFound {
        t.Fatalf("expected 404, got %d", rr.Code)
    }
}

func TestWebsocketPushesState(t *testing.T) {
    svc, h := newTestServer(t)
    gs, _ := svc.CreateGame(twoPlayers)
    svc.Join(gs.ID, "p1")
    svc.Join(gs.ID, "p2")

    srv := httptest.NewServer(h)
    defer srv.Close()
    conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/game/"+gs.ID+"/ws", nil)
    if err != nil {
        t.Fatalf("dial: %v", err)
    }
    defer conn.Close()

    readState := func() stateDTO {
        t.Helper()
        _ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
        for {
            var msg wsMessage
            if err := conn.ReadJSON(&msg); err != nil {
                t.Fatalf("read: %v", err)
            }
            if msg.Type != "state" {
                continue
            }
            var st stateDTO
            if err := json.Unmarshal(msg.Payload, &st); err != nil {
                t.Fatalf("decode: %v", err)
            }
            return st
        }
    }

    if st := readState(); st.Moves != 0 || st.ID != gs.ID {
        t.Fatalf("unexpected initial state: %+v", st)
    }
    if _, err := svc.Play(gs.ID, "p1", 1, 1); err != nil {
        t.Fatalf("play: %v", err)
    }
    if st := readState(); st.Moves != 1 || st.Board[1][1] != "X" {
        t.Fatalf("unexpected state after move: %+v", st)
    }
    if err := conn.WriteJSON(wsMessage{Type: "request_state"}); err != nil {
        t.Fatalf("write: %v", err)
    }
    if st := readState(); st.Moves != 1 {
        t.Fatalf("unexpected requested state: %+v", st)
    }
}
