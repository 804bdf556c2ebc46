package web

import (
    "bytes"
    "fmt"
    "html/template"
    "net/http"

    "github.com/google/uuid"

    "github.com/jaminalder/tictactoe-solver/internal/app"
    "github.com/jaminalder/tictactoe-solver/internal/domain"
    "github.com/jaminalder/tictactoe-solver/internal/search"
)

type templates struct {
    base  *template.Template
    game  *template.Template
    board *template.Template
    index *template.Template
}

func funcs() template.FuncMap {
    return template.FuncMap{
        "iter": func(n int) []int { a := make([]int, n); for i := range a { a[i] = i }; return a },
        "cellSymbol": func(c domain.Cell) string { return c.String() },
    }
}

func loadTemplates() *templates {
    // Minimal inline templates to satisfy tests; can be replaced by file loading later.
    base := template.Must(template.New("base").Funcs(funcs()).Parse(`<!doctype html><html><head>
<meta charset="utf-8"/>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<script src="https://unpkg.com/htmx.org/dist/ext/sse.js"></script>
</head><body>{{template "content" .}}</body></html>`))
    // Define the board template within the same set so game can include it
    template.Must(base.New("board").Funcs(funcs()).Parse(boardTemplate))
    index := template.Must(template.Must(base.Clone()).New("content").Parse(`<h1>TicTacToe</h1>
<form action="/game" method="post"><input type="hidden" name="mode" value="computer"><input type="hidden" name="side" value="X"><button>Play X vs computer</button></form>
<form action="/game" method="post"><input type="hidden" name="mode" value="computer"><input type="hidden" name="side" value="O"><button>Play O vs computer</button></form>
<form action="/game" method="post"><input type="hidden" name="mode" value="humans"><button>Two players</button></form>`))
    game := template.Must(template.Must(base.Clone()).New("content").Parse(`
<div hx-ext="sse" hx-sse="connect:/game/{{.ID}}/events">
  <div id="board" hx-sse="swap:board">{{template "board" .Board}}</div>
</div>`))
    // Standalone board template used for fragment rendering
    board := template.Must(template.New("board_only").Funcs(funcs()).Parse(boardTemplate))
    return &templates{base: base, game: game, board: board, index: index}
}

func renderTemplate(t *template.Template, name string, data any) []byte {
    var buf bytes.Buffer
    if name == "" {
        _ = t.Execute(&buf, data)
    } else {
        _ = t.ExecuteTemplate(&buf, name, data)
    }
    return buf.Bytes()
}

const boardTemplate = `
<div id="board">
  {{if .Error}}
  <div class="alert">{{.Error}}</div>
  {{end}}
  <div class="status">{{.Status}}</div>
  {{if .Eval}}<div class="eval">{{.Eval}}</div>{{end}}
  {{/* 3x3 grid */}}
  {{range $r := iter 3}}
  <div class="row">
    {{range $c := iter 3}}
      <form hx-post="/game/{{$.ID}}/play" hx-target="#board" hx-swap="outerHTML" method="post">
        <input type="hidden" name="r" value="{{$r}}">
        <input type="hidden" name="c" value="{{$c}}">
        <button type="submit">{{cellSymbol (index $.Cells $r $c)}}</button>
      </form>
    {{end}}
  </div>
  {{end}}
</div>
`

// boardView is the data behind the board fragment.
type boardView struct {
    ID     string
    Cells  [domain.Size][domain.Size]domain.Cell
    Status string
    Eval   string
    Error  string
}

func newBoardView(gs app.GameState, errMsg string) boardView {
    v := boardView{ID: gs.ID, Cells: gs.Game.Board.Cells(), Status: statusText(gs.Game), Error: errMsg}
    if gs.LastEval != nil {
        v.Eval = evalText(*gs.LastEval)
    }
    return v
}

func statusText(g domain.Game) string {
    switch {
    case g.Over && g.Winner != domain.Empty:
        return g.Winner.String() + " wins"
    case g.Over:
        return "Draw"
    default:
        return g.Turn.String() + " to move"
    }
}

func evalText(res search.Result) string {
    outcome := search.OutcomeOf(res.Score)
    if outcome == search.Draw {
        return fmt.Sprintf("Computer played %v: draw with best play (%d leaves)", res.Move, res.Leaves)
    }
    return fmt.Sprintf("Computer played %v: forced %s by move %d (%d leaves)",
        res.Move, outcome, search.FinalMoveCount(res.Score), res.Leaves)
}

// Helper to set cookie
func ensurePlayerCookie(w http.ResponseWriter, r *http.Request) string {
    if c, err := r.Cookie("player_id"); err == nil && c.Value != "" {
        return c.Value
    }
    // Generate UUIDv4 for player ID
    v := uuid.NewString()
    http.SetCookie(w, &http.Cookie{Name: "player_id", Value: v, Path: "/"})
    return v
}
