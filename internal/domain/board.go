package domain

import "fmt"

// Cell represents a board cell state.
type Cell uint8

const (
    Empty Cell = iota
    X
    O
)

func (c Cell) String() string {
    switch c {
    case X:
        return "X"
    case O:
        return "O"
    default:
        return ""
    }
}

// Opponent returns the other piece. Empty has no opponent.
func (c Cell) Opponent() Cell {
    switch c {
    case X:
        return O
    case O:
        return X
    default:
        return Empty
    }
}

// Size is the board edge length.
const Size = 3

// Cells is the number of cells on the board.
const Cells = Size * Size

// Move is a board position.
type Move struct {
    Row int
    Col int
}

// Valid reports whether the move lies on the board.
func (m Move) Valid() bool {
    return m.Row >= 0 && m.Row < Size && m.Col >= 0 && m.Col < Size
}

// Index returns the row-major cell index.
func (m Move) Index() int { return m.Row*Size + m.Col }

func (m Move) String() string { return fmt.Sprintf("(%d,%d)", m.Row, m.Col) }

// lines lists the 8 winning lines as row-major indices.
var lines = [8][3]int{
    // rows
    {0, 1, 2}, {3, 4, 5}, {6, 7, 8},
    // cols
    {0, 3, 6}, {1, 4, 7}, {2, 5, 8},
    // diags
    {0, 4, 8}, {2, 4, 6},
}

// Board is a 3x3 grid that supports in-place moves and exact undo.
// A Board must not be used from more than one goroutine at a time.
type Board struct {
    cells   [Size][Size]Cell
    first   Cell
    moves   int
    history []Move
}

// NewBoard returns an empty board on which first makes the opening move.
func NewBoard(first Cell) *Board {
    if first != X && first != O {
        panic(fmt.Sprintf("domain: invalid first player %d", first))
    }
    return &Board{first: first, history: make([]Move, 0, Cells)}
}

// Mover returns the piece to move next. It depends only on move count parity.
func (b *Board) Mover() Cell {
    if b.moves%2 == 0 {
        return b.first
    }
    return b.first.Opponent()
}

// First returns the piece that opened the game.
func (b *Board) First() Cell { return b.first }

// MoveCount returns the number of occupied cells.
func (b *Board) MoveCount() int { return b.moves }

// Cell returns the state of the cell at row r, column c.
func (b *Board) Cell(r, c int) Cell { return b.cells[r][c] }

// Cells returns a copy of the grid.
func (b *Board) Cells() [Size][Size]Cell { return b.cells }

// History returns the applied moves in order.
func (b *Board) History() []Move {
    out := make([]Move, len(b.history))
    copy(out, b.history)
    return out
}

// IsLegal reports whether the cell at r, c is empty.
func (b *Board) IsLegal(r, c int) bool {
    return b.cells[r][c] == Empty
}

// LegalMoves returns every empty cell in row-major order. The order is the
// search tie-break between equally scored moves.
func (b *Board) LegalMoves() []Move {
    out := make([]Move, 0, Cells-b.moves)
    for r := 0; r < Size; r++ {
        for c := 0; c < Size; c++ {
            if b.cells[r][c] == Empty {
                out = append(out, Move{Row: r, Col: c})
            }
        }
    }
    return out
}

// Apply places the mover's piece at r, c. The cell must be empty.
func (b *Board) Apply(r, c int) {
    if b.cells[r][c] != Empty {
        panic(fmt.Sprintf("domain: apply on occupied cell (%d,%d)", r, c))
    }
    b.cells[r][c] = b.Mover()
    b.moves++
    b.history = append(b.history, Move{Row: r, Col: c})
}

// Undo reverts the most recent Apply.
func (b *Board) Undo() {
    n := len(b.history)
    if n == 0 {
        panic("domain: undo with empty history")
    }
    last := b.history[n-1]
    b.history = b.history[:n-1]
    b.cells[last.Row][last.Col] = Empty
    b.moves--
}

// Winner returns the piece that owns a completed line, or Empty.
func (b *Board) Winner() Cell {
    for _, ln := range lines {
        a := b.at(ln[0])
        if a != Empty && a == b.at(ln[1]) && a == b.at(ln[2]) {
            return a
        }
    }
    return Empty
}

func (b *Board) hasLine(p Cell) bool {
    for _, ln := range lines {
        if b.at(ln[0]) == p && b.at(ln[1]) == p && b.at(ln[2]) == p {
            return true
        }
    }
    return false
}

// HasWinner reports whether any row, column or diagonal holds three identical pieces.
func (b *Board) HasWinner() bool { return b.Winner() != Empty }

// IsFull reports whether all nine cells are occupied.
func (b *Board) IsFull() bool { return b.moves == Cells }

// IsTerminal reports whether the game on this board has ended.
func (b *Board) IsTerminal() bool { return b.HasWinner() || b.IsFull() }

// Clone returns a deep copy that shares no state with b.
func (b *Board) Clone() *Board {
    cp := *b
    cp.history = make([]Move, len(b.history), Cells)
    copy(cp.history, b.history)
    return &cp
}

// Equal reports whether both boards have the same cells, mover, move count and history.
func (b *Board) Equal(o *Board) bool {
    if b.cells != o.cells || b.first != o.first || b.moves != o.moves || len(b.history) != len(o.history) {
        return false
    }
    for i := range b.history {
        if b.history[i] != o.history[i] {
            return false
        }
    }
    return true
}

func (b *Board) at(i int) Cell { return b.cells[i/Size][i%Size] }
