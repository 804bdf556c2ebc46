package domain

import "errors"

// Game holds the current state of a Tic-Tac-Toe match.
type Game struct {
    Board  *Board
    Turn   Cell
    Winner Cell
    Over   bool
    Moves  int
}

// Errors returned by domain operations.
var (
    ErrOutOfBounds = errors.New("out of bounds")
    ErrOccupied    = errors.New("cell occupied")
    ErrGameOver    = errors.New("game over")
)

// New returns a new game with X to move.
func New() Game {
    return NewWithFirst(X)
}

// NewWithFirst returns a new game where first makes the opening move.
func NewWithFirst(first Cell) Game {
    return Game{Board: NewBoard(first), Turn: first}
}

// Play attempts to play the current turn at row r, column c (0..2).
func (g *Game) Play(r, c int) error {
    if g.Over {
        return ErrGameOver
    }
    if !(Move{Row: r, Col: c}).Valid() {
        return ErrOutOfBounds
    }
    if !g.Board.IsLegal(r, c) {
        return ErrOccupied
    }

    g.Board.Apply(r, c)
    g.sync()
    return nil
}

// Clone returns a copy whose board shares no state with g.
func (g Game) Clone() Game {
    g.Board = g.Board.Clone()
    return g
}

// sync derives the summary fields from the board.
func (g *Game) sync() {
    g.Moves = g.Board.MoveCount()
    g.Winner = g.Board.Winner()
    g.Over = g.Winner != Empty || g.Board.IsFull()
    // Turn stays on the last mover once the game is over.
    if !g.Over {
        g.Turn = g.Board.Mover()
    }
}
