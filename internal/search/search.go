// Package search finds game-theoretically optimal tic-tac-toe moves by
// exhaustive adversarial search over a shared, undoable domain.Board.
package search

import (
    "fmt"
    "strings"
    "time"

    "github.com/rs/zerolog"
    "github.com/rs/zerolog/log"

    "github.com/jaminalder/tictactoe-solver/internal/domain"
)

// Scores lie in [-WinScore, WinScore]. A forced win ending at move count n
// scores WinScore-n for the side that wins it; a draw scores 0.
const (
    WinScore = 100
    infinity = 1000
)

// Algorithm selects the search formulation. All of them return the same
// score for every position.
type Algorithm int

const (
    NegamaxAlphaBeta Algorithm = iota
    Negamax
    MinimaxAlphaBeta
)

func (a Algorithm) String() string {
    switch a {
    case NegamaxAlphaBeta:
        return "negamax-alphabeta"
    case Negamax:
        return "negamax"
    case MinimaxAlphaBeta:
        return "minimax-alphabeta"
    default:
        return fmt.Sprintf("algorithm(%d)", int(a))
    }
}

// ParseAlgorithm accepts the names produced by Algorithm.String.
func ParseAlgorithm(s string) (Algorithm, error) {
    switch strings.ToLower(strings.TrimSpace(s)) {
    case "", "negamax-alphabeta":
        return NegamaxAlphaBeta, nil
    case "negamax":
        return Negamax, nil
    case "minimax-alphabeta":
        return MinimaxAlphaBeta, nil
    }
    return 0, fmt.Errorf("unknown search algorithm %q", s)
}

// Result is the outcome of a search from the mover's point of view.
type Result struct {
    Move    domain.Move
    Score   int
    Leaves  int
    Elapsed time.Duration
}

// Outcome describes a forced result.
type Outcome int

const (
    Draw Outcome = iota
    Win
    Loss
)

func (o Outcome) String() string {
    switch o {
    case Win:
        return "win"
    case Loss:
        return "loss"
    default:
        return "draw"
    }
}

// OutcomeOf classifies a score from the mover's point of view.
func OutcomeOf(score int) Outcome {
    switch {
    case score > 0:
        return Win
    case score < 0:
        return Loss
    default:
        return Draw
    }
}

// FinalMoveCount returns the move count at which a forced win or loss ends
// the game. It returns domain.Cells for a draw.
func FinalMoveCount(score int) int {
    switch OutcomeOf(score) {
    case Win:
        return WinScore - score
    case Loss:
        return WinScore + score
    default:
        return domain.Cells
    }
}

type Option func(s *Searcher)

func WithAlgorithm(a Algorithm) Option {
    return func(s *Searcher) {
        s.algorithm = a
    }
}

func WithLogger(l zerolog.Logger) Option {
    return func(s *Searcher) {
        s.logger = l
    }
}

// Searcher holds configuration only; every ChooseMove call keeps its own
// accumulators, so one Searcher may serve many boards concurrently.
type Searcher struct {
    algorithm Algorithm
    logger    zerolog.Logger
}

func New(opts ...Option) *Searcher {
    s := &Searcher{algorithm: NegamaxAlphaBeta, logger: log.Logger}
    for _, opt := range opts {
        opt(s)
    }
    return s
}

// Algorithm returns the configured formulation.
func (s *Searcher) Algorithm() Algorithm { return s.algorithm }

// ChooseMove returns the best move for the side to move on b and its score.
// The board is mutated during the search and restored before returning.
// b must not be terminal.
func (s *Searcher) ChooseMove(b *domain.Board) Result {
    if b.IsTerminal() {
        panic(fmt.Sprintf("search: position %s is terminal", b))
    }
    start := time.Now()
    r := &run{board: b}
    var score int
    switch s.algorithm {
    case Negamax:
        score = r.negamax(0)
    case MinimaxAlphaBeta:
        score = r.maximize(-infinity, infinity, 0)
    default:
        score = r.negamaxAlphaBeta(-infinity, infinity, 0)
    }
    res := Result{Move: r.best, Score: score, Leaves: r.leaves, Elapsed: time.Since(start)}
    s.logger.Debug().
        Str("algorithm", s.algorithm.String()).
        Str("board", b.String()).
        Stringer("move", res.Move).
        Int("score", res.Score).
        Int("leaves", res.Leaves).
        Dur("elapsed", res.Elapsed).
        Msg("search complete")
    return res
}

// run carries the accumulators of a single ChooseMove call.
type run struct {
    board  *domain.Board
    best   domain.Move
    leaves int
}

// terminal scores a finished position for the side to move. A winner on
// the board is always the previous mover.
func (r *run) terminal() (int, bool) {
    if r.board.HasWinner() {
        r.leaves++
        // Late losses are better than early ones.
        return -WinScore + r.board.MoveCount(), true
    }
    if r.board.IsFull() {
        r.leaves++
        return 0, true
    }
    return 0, false
}

func (r *run) negamaxAlphaBeta(alpha, beta, depth int) int {
    if v, ok := r.terminal(); ok {
        return v
    }
    maxValue := -infinity
    for _, m := range r.board.LegalMoves() {
        r.board.Apply(m.Row, m.Col)
        value := -r.negamaxAlphaBeta(-beta, -alpha, depth+1)
        r.board.Undo()
        if value > maxValue {
            maxValue = value
            if depth == 0 {
                r.best = m
            }
        }
        if value > alpha {
            alpha = value
        }
        if value >= beta {
            break
        }
    }
    return maxValue
}

func (r *run) negamax(depth int) int {
    if v, ok := r.terminal(); ok {
        return v
    }
    maxValue := -infinity
    for _, m := range r.board.LegalMoves() {
        r.board.Apply(m.Row, m.Col)
        value := -r.negamax(depth + 1)
        r.board.Undo()
        if value > maxValue {
            maxValue = value
            if depth == 0 {
                r.best = m
            }
        }
    }
    return maxValue
}

// maximize and minimize score positions for the root mover.
func (r *run) maximize(alpha, beta, depth int) int {
    if v, ok := r.terminal(); ok {
        return v
    }
    maxValue := -infinity
    for _, m := range r.board.LegalMoves() {
        r.board.Apply(m.Row, m.Col)
        value := r.minimize(alpha, beta, depth+1)
        r.board.Undo()
        if value > maxValue {
            maxValue = value
            if depth == 0 {
                r.best = m
            }
        }
        if value > alpha {
            alpha = value
        }
        if value >= beta {
            break
        }
    }
    return maxValue
}

func (r *run) minimize(alpha, beta, depth int) int {
    if v, ok := r.terminal(); ok {
        // terminal is from the minimizer's side; flip to the root mover.
        return -v
    }
    minValue := infinity
    for _, m := range r.board.LegalMoves() {
        r.board.Apply(m.Row, m.Col)
        value := r.maximize(alpha, beta, depth+1)
        r.board.Undo()
        if value < minValue {
            minValue = value
        }
        if value < beta {
            beta = value
        }
        if value <= alpha {
            break
        }
    }
    return minValue
}
