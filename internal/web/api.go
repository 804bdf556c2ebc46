package web

import (
    "encoding/json"
    "errors"
    "net/http"

    "github.com/go-chi/chi/v5"
    "github.com/samber/lo"

    "github.com/jaminalder/tictactoe-solver/internal/app"
    "github.com/jaminalder/tictactoe-solver/internal/domain"
    "github.com/jaminalder/tictactoe-solver/internal/search"
)

type moveDTO struct {
    Row int `json:"row"`
    Col int `json:"col"`
}

type evalDTO struct {
    Move      moveDTO `json:"move"`
    Score     int     `json:"score"`
    Outcome   string  `json:"outcome"`
    FinalMove int     `json:"final_move"`
    Leaves    int     `json:"leaves"`
    ElapsedMs float64 `json:"elapsed_ms"`
}

type stateDTO struct {
    ID         string     `json:"id"`
    Mode       string     `json:"mode"`
    Board      [][]string `json:"board"`
    Turn       string     `json:"turn"`
    Winner     string     `json:"winner"`
    Over       bool       `json:"over"`
    Moves      int        `json:"moves"`
    History    []moveDTO  `json:"history"`
    LegalMoves []moveDTO  `json:"legal_moves"`
    LastEval   *evalDTO   `json:"last_eval,omitempty"`
}

type errorDTO struct {
    Error string `json:"error"`
}

func toMoveDTO(m domain.Move, _ int) moveDTO { return moveDTO{Row: m.Row, Col: m.Col} }

func toEvalDTO(res search.Result) evalDTO {
    return evalDTO{
        Move:      toMoveDTO(res.Move, 0),
        Score:     res.Score,
        Outcome:   search.OutcomeOf(res.Score).String(),
        FinalMove: search.FinalMoveCount(res.Score),
        Leaves:    res.Leaves,
        ElapsedMs: float64(res.Elapsed.Microseconds()) / 1000,
    }
}

func toStateDTO(gs app.GameState) stateDTO {
    b := gs.Game.Board
    cells := b.Cells()
    board := make([][]string, domain.Size)
    for r := range cells {
        board[r] = lo.Map(cells[r][:], func(c domain.Cell, _ int) string { return c.String() })
    }
    dto := stateDTO{
        ID:         gs.ID,
        Mode:       gs.Mode.String(),
        Board:      board,
        Turn:       gs.Game.Turn.String(),
        Winner:     gs.Game.Winner.String(),
        Over:       gs.Game.Over,
        Moves:      gs.Game.Moves,
        History:    lo.Map(b.History(), toMoveDTO),
        LegalMoves: lo.Map(b.LegalMoves(), toMoveDTO),
    }
    if gs.Game.Over {
        dto.LegalMoves = []moveDTO{}
    }
    if gs.LastEval != nil {
        ev := toEvalDTO(*gs.LastEval)
        dto.LastEval = &ev
    }
    return dto
}

func (h *handlers) apiState(w http.ResponseWriter, r *http.Request) {
    gs, ok := h.svc.Get(chi.URLParam(r, "id"))
    if !ok {
        writeJSON(w, http.StatusNotFound, errorDTO{Error: app.ErrNotFound.Error()})
        return
    }
    writeJSON(w, http.StatusOK, toStateDTO(*gs))
}

func (h *handlers) apiHint(w http.ResponseWriter, r *http.Request) {
    res, err := h.svc.Hint(chi.URLParam(r, "id"))
    switch {
    case errors.Is(err, app.ErrNotFound):
        writeJSON(w, http.StatusNotFound, errorDTO{Error: err.Error()})
    case errors.Is(err, domain.ErrGameOver):
        writeJSON(w, http.StatusConflict, errorDTO{Error: err.Error()})
    case err != nil:
        writeJSON(w, http.StatusInternalServerError, errorDTO{Error: err.Error()})
    default:
        writeJSON(w, http.StatusOK, toEvalDTO(res))
    }
}

func mustMarshal(v any) json.RawMessage {
    data, _ := json.Marshal(v)
    return data
}

func writeJSON(w http.ResponseWriter, status int, data any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    _ = json.NewEncoder(w).Encode(data)
}
