package domain

import (
    "errors"
    "strings"
)

// ErrBadLayout is returned by ParseBoard for malformed or unreachable layouts.
var ErrBadLayout = errors.New("bad board layout")

// ParseBoard builds a board from a row-major layout of 'X', 'O' and '.'
// characters; '/' and whitespace are ignored. first is the piece that
// opened the game, so it must own as many cells as its opponent or one more.
// Only the side that moved last may own a completed line.
// Moves are replayed in row-major order alternating between the two sides.
func ParseBoard(first Cell, layout string) (*Board, error) {
    if first != X && first != O {
        return nil, ErrBadLayout
    }
    var own, other []Move
    i := 0
    for _, ch := range layout {
        if ch == '/' || ch == ' ' || ch == '\n' || ch == '\t' {
            continue
        }
        if i >= Cells {
            return nil, ErrBadLayout
        }
        m := Move{Row: i / Size, Col: i % Size}
        switch ch {
        case '.', '_':
        case 'X', 'x':
            if first == X {
                own = append(own, m)
            } else {
                other = append(other, m)
            }
        case 'O', 'o':
            if first == O {
                own = append(own, m)
            } else {
                other = append(other, m)
            }
        default:
            return nil, ErrBadLayout
        }
        i++
    }
    if i != Cells {
        return nil, ErrBadLayout
    }
    if len(own) != len(other) && len(own) != len(other)+1 {
        return nil, ErrBadLayout
    }
    b := NewBoard(first)
    for k := range own {
        b.Apply(own[k].Row, own[k].Col)
        if k < len(other) {
            b.Apply(other[k].Row, other[k].Col)
        }
    }
    last := first
    if len(own) == len(other) {
        last = first.Opponent()
    }
    if b.hasLine(last.Opponent()) {
        return nil, ErrBadLayout
    }
    return b, nil
}

// String renders the grid as three '/'-separated rows, e.g. "XX./OO./...".
func (b *Board) String() string {
    var sb strings.Builder
    for r := 0; r < Size; r++ {
        if r > 0 {
            sb.WriteByte('/')
        }
        for c := 0; c < Size; c++ {
            switch b.cells[r][c] {
            case X:
                sb.WriteByte('X')
            case O:
                sb.WriteByte('O')
            default:
                sb.WriteByte('.')
            }
        }
    }
    return sb.String()
}
