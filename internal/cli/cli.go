// Package cli plays a human against the engine in a terminal.
package cli

import (
    "bufio"
    "context"
    "errors"
    "fmt"
    "io"
    "strconv"
    "strings"

    "github.com/muesli/termenv"
    "github.com/samber/lo"

    "github.com/jaminalder/tictactoe-solver/internal/domain"
    "github.com/jaminalder/tictactoe-solver/internal/search"
)

// Outcome messages printed when the game ends.
const (
    MsgHumanWon    = "You won!"
    MsgComputerWon = "Computer won!"
    MsgDraw        = "Draw!"
)

var (
    errQuit    = errors.New("quit")
    errBadMove = errors.New("bad move")
)

type Options struct {
    // HumanFirst makes the human open the game as X; otherwise the
    // computer opens as X and the human plays O.
    HumanFirst bool
    Searcher   *search.Searcher
    // Profile overrides the detected color profile of out.
    Profile *termenv.Profile
}

type session struct {
    in       *bufio.Scanner
    out      *termenv.Output
    game     domain.Game
    human    domain.Cell
    searcher *search.Searcher
}

// Run plays one game reading "row col" lines (1-based) from in. It returns
// nil when the game ends or the player quits, and ctx.Err() if ctx is
// cancelled between turns.
func Run(ctx context.Context, in io.Reader, out io.Writer, opts Options) error {
    var outOpts []termenv.OutputOption
    if opts.Profile != nil {
        outOpts = append(outOpts, termenv.WithProfile(*opts.Profile))
    }
    s := &session{
        in:       bufio.NewScanner(in),
        out:      termenv.NewOutput(out, outOpts...),
        game:     domain.New(),
        human:    domain.O,
        searcher: opts.Searcher,
    }
    if s.searcher == nil {
        s.searcher = search.New()
    }
    if opts.HumanFirst {
        s.human = domain.X
    }
    return s.loop(ctx)
}

func (s *session) loop(ctx context.Context) error {
    for !s.game.Over {
        if err := ctx.Err(); err != nil {
            return err
        }
        s.printBoard()
        if s.game.Turn == s.human {
            m, err := s.readMove()
            if errors.Is(err, errQuit) {
                s.println("Bye.")
                return nil
            }
            if err != nil {
                return err
            }
            if err := s.game.Play(m.Row, m.Col); err != nil {
                return err
            }
            continue
        }
        res := s.searcher.ChooseMove(s.game.Board)
        if err := s.game.Play(res.Move.Row, res.Move.Col); err != nil {
            return err
        }
        s.println(fmt.Sprintf("Computer plays %d %d (%s).", res.Move.Row+1, res.Move.Col+1, describe(res)))
    }
    s.printBoard()
    switch s.game.Winner {
    case s.human:
        s.println(MsgHumanWon)
    case domain.Empty:
        s.println(MsgDraw)
    default:
        s.println(MsgComputerWon)
    }
    return nil
}

// readMove prompts until the player enters a legal move or quits.
func (s *session) readMove() (domain.Move, error) {
    for {
        s.print(fmt.Sprintf("Your move (%s), row col: ", s.human))
        if !s.in.Scan() {
            if err := s.in.Err(); err != nil {
                return domain.Move{}, err
            }
            return domain.Move{}, errQuit
        }
        m, err := parseMove(s.in.Text())
        if errors.Is(err, errQuit) {
            return m, err
        }
        if err != nil {
            s.println("Enter a row and a column between 1 and 3.")
            continue
        }
        if !s.game.Board.IsLegal(m.Row, m.Col) {
            s.println("That cell is taken.")
            continue
        }
        return m, nil
    }
}

func parseMove(line string) (domain.Move, error) {
    fields := strings.Fields(strings.ReplaceAll(line, ",", " "))
    if len(fields) == 1 && (fields[0] == "q" || fields[0] == "quit") {
        return domain.Move{}, errQuit
    }
    if len(fields) != 2 {
        return domain.Move{}, errBadMove
    }
    r, errR := strconv.Atoi(fields[0])
    c, errC := strconv.Atoi(fields[1])
    m := domain.Move{Row: r - 1, Col: c - 1}
    if errR != nil || errC != nil || !m.Valid() {
        return domain.Move{}, errBadMove
    }
    return m, nil
}

func describe(res search.Result) string {
    switch search.OutcomeOf(res.Score) {
    case search.Win:
        return fmt.Sprintf("wins by move %d", search.FinalMoveCount(res.Score))
    case search.Loss:
        return fmt.Sprintf("loses by move %d", search.FinalMoveCount(res.Score))
    default:
        return "draw with best play"
    }
}

func (s *session) printBoard() {
    rows := lo.Times(domain.Size, func(r int) string {
        cells := lo.Times(domain.Size, func(c int) string { return s.cell(s.game.Board.Cell(r, c)) })
        return " " + strings.Join(cells, " | ")
    })
    s.println("")
    s.println(strings.Join(rows, "\n---+---+---\n"))
    s.println("")
}

// cell renders X in red and O in blue.
func (s *session) cell(c domain.Cell) string {
    switch c {
    case domain.X:
        return s.out.String("X").Foreground(s.out.Color("#ff0000")).Bold().String()
    case domain.O:
        return s.out.String("O").Foreground(s.out.Color("#0000ff")).Bold().String()
    default:
        return " "
    }
}

func (s *session) print(str string) { _, _ = io.WriteString(s.out, str) }

func (s *session) println(str string) { s.print(str + "\n") }
