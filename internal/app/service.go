package app

import (
    "context"
    "errors"
    "sync"
    "time"

    "github.com/google/uuid"
    "github.com/rs/zerolog"
    "github.com/rs/zerolog/log"
    "github.com/samber/lo"

    "github.com/jaminalder/tictactoe-solver/internal/domain"
    "github.com/jaminalder/tictactoe-solver/internal/search"
)

// Errors exposed by the service layer.
var (
    ErrNotFound    = errors.New("game not found")
    ErrNotYourTurn = errors.New("not your turn")
    ErrNotAPlayer  = errors.New("not a player")
)

// ComputerID is the seat holder for the engine in ModeComputer games.
const ComputerID = "computer"

// Mode selects who sits in the two seats.
type Mode int

const (
    ModeComputer Mode = iota
    ModeHumans
)

func (m Mode) String() string {
    if m == ModeHumans {
        return "humans"
    }
    return "computer"
}

// CreateOptions configures a new game. First defaults to X and, in
// ModeComputer, HumanSide defaults to X.
type CreateOptions struct {
    Mode      Mode
    HumanSide domain.Cell
    First     domain.Cell
}

// GameState is the in-memory state tracked per game.
type GameState struct {
    ID       string
    Mode     Mode
    Game     domain.Game
    X        string
    O        string
    LastEval *search.Result
    Created  time.Time
    Updated  time.Time
}

// Seat returns the side held by playerID, or Empty.
func (gs *GameState) Seat(playerID string) domain.Cell {
    switch playerID {
    case "":
        return domain.Empty
    case gs.X:
        return domain.X
    case gs.O:
        return domain.O
    }
    return domain.Empty
}

// snapshot copies gs without sharing the board or the last evaluation.
func (gs *GameState) snapshot() GameState {
    cp := *gs
    cp.Game = gs.Game.Clone()
    if gs.LastEval != nil {
        ev := *gs.LastEval
        cp.LastEval = &ev
    }
    return cp
}

// subscriber guards its channel so a send from Play never races the close
// run by an unsubscribe.
type subscriber struct {
    mu     sync.Mutex
    ch     chan []byte
    closed bool
}

func (s *subscriber) close() {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.closed {
        return
    }
    s.closed = true
    close(s.ch)
}

// trySend delivers payload without blocking. It reports false only when the
// buffer is full; a closed subscriber is skipped.
func (s *subscriber) trySend(payload []byte) bool {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.closed {
        return true
    }
    select {
    case s.ch <- payload:
        return true
    default:
        return false
    }
}

type Option func(s *Service)

// WithSearcher sets the engine used for computer moves and hints.
func WithSearcher(se *search.Searcher) Option {
    return func(s *Service) {
        if se != nil {
            s.searcher = se
        }
    }
}

// WithRenderer sets the broadcast renderer.
func WithRenderer(renderer func(GameState) []byte) Option {
    return func(s *Service) {
        if renderer != nil {
            s.render = renderer
        }
    }
}

func WithLogger(l zerolog.Logger) Option {
    return func(s *Service) {
        s.logger = l
    }
}

// Service manages games and subscribers. It owns every game board; the
// searcher borrows a board only while the service lock is held.
type Service struct {
    mu       sync.Mutex
    games    map[string]*GameState
    subs     map[string]map[*subscriber]struct{}
    render   func(GameState) []byte
    searcher *search.Searcher
    logger   zerolog.Logger
}

// NewService creates a service with a default renderer (encodes nothing useful).
func NewService(opts ...Option) *Service {
    s := &Service{
        games:    make(map[string]*GameState),
        subs:     make(map[string]map[*subscriber]struct{}),
        render:   func(gs GameState) []byte { return nil },
        searcher: search.New(),
        logger:   log.Logger,
    }
    for _, opt := range opts {
        opt(s)
    }
    return s
}

// NewServiceWithRenderer allows injecting a renderer for broadcast payloads.
func NewServiceWithRenderer(renderer func(GameState) []byte, opts ...Option) *Service {
    return NewService(append([]Option{WithRenderer(renderer)}, opts...)...)
}

// SetRenderer replaces the broadcast renderer function.
func (s *Service) SetRenderer(renderer func(GameState) []byte) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if renderer == nil {
        s.render = func(gs GameState) []byte { return nil }
        return
    }
    s.render = renderer
}

// CreateGame creates and registers a new game. In ModeComputer the engine
// takes the seat opposite HumanSide and moves at once if it opens.
func (s *Service) CreateGame(opts CreateOptions) (*GameState, error) {
    first := opts.First
    if first == domain.Empty {
        first = domain.X
    }
    s.mu.Lock()
    defer s.mu.Unlock()
    id := uuid.NewString()
    now := time.Now()
    gs := &GameState{ID: id, Mode: opts.Mode, Game: domain.NewWithFirst(first), Created: now, Updated: now}
    if opts.Mode == ModeComputer {
        human := opts.HumanSide
        if human == domain.Empty {
            human = domain.X
        }
        if human == domain.X {
            gs.O = ComputerID
        } else {
            gs.X = ComputerID
        }
        if gs.Seat(ComputerID) == gs.Game.Turn {
            s.computerMoveLocked(gs)
        }
    }
    s.games[id] = gs
    s.logger.Info().Str("game_id", id).Stringer("mode", opts.Mode).Stringer("first", first).Msg("game created")
    cp := gs.snapshot()
    return &cp, nil
}

// Get returns a copy of the game state if present.
func (s *Service) Get(id string) (*GameState, bool) {
    s.mu.Lock()
    defer s.mu.Unlock()
    gs, ok := s.games[id]
    if !ok {
        return nil, false
    }
    cp := gs.snapshot()
    return &cp, true
}

// Join assigns a seat to the player if available; returns Empty for spectators.
func (s *Service) Join(id, playerID string) (domain.Cell, *GameState, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    gs, ok := s.games[id]
    if !ok {
        return domain.Empty, nil, ErrNotFound
    }
    side := domain.Empty
    if gs.X == "" || gs.X == playerID {
        gs.X = playerID
        side = domain.X
    } else if gs.O == "" || gs.O == playerID {
        gs.O = playerID
        side = domain.O
    }
    gs.Updated = time.Now()
    cp := gs.snapshot()
    return side, &cp, nil
}

// Play validates seat and turn, applies a move, lets the computer reply,
// updates timestamps, and broadcasts.
func (s *Service) Play(id, playerID string, r, c int) (*GameState, error) {
    var payload []byte
    var cp GameState
    var toDrop []*subscriber

    s.mu.Lock()
    gs, ok := s.games[id]
    if !ok {
        s.mu.Unlock()
        return nil, ErrNotFound
    }
    // Validate player is seated
    seat := gs.Seat(playerID)
    if seat == domain.Empty || playerID == ComputerID {
        s.mu.Unlock()
        return nil, ErrNotAPlayer
    }
    if gs.Game.Over {
        s.mu.Unlock()
        return nil, domain.ErrGameOver
    }
    // Validate turn
    if seat != gs.Game.Turn {
        s.mu.Unlock()
        return nil, ErrNotYourTurn
    }
    // Apply move
    if err := gs.Game.Play(r, c); err != nil {
        s.mu.Unlock()
        return nil, err
    }
    s.logger.Debug().Str("game_id", id).Stringer("side", seat).Int("row", r).Int("col", c).Msg("move played")
    if !gs.Game.Over && gs.Seat(ComputerID) == gs.Game.Turn {
        s.computerMoveLocked(gs)
    }
    gs.Updated = time.Now()
    if gs.Game.Over {
        s.logger.Info().Str("game_id", id).Stringer("winner", gs.Game.Winner).Int("moves", gs.Game.Moves).Msg("game over")
    }

    // Snapshot state and subscribers
    cp = gs.snapshot()
    subs := s.copySubsLocked(id)
    payload = s.render(cp)
    s.mu.Unlock()

    // Fan-out; drop slow subscribers by closing and marking for deletion
    for _, sub := range subs {
        if !sub.trySend(payload) {
            sub.close()
            toDrop = append(toDrop, sub)
        }
    }
    if len(toDrop) > 0 {
        s.mu.Lock()
        for _, sub := range toDrop {
            if set, ok := s.subs[id]; ok {
                delete(set, sub)
            }
        }
        s.mu.Unlock()
    }
    return &cp, nil
}

// Hint runs the engine for the side to move without changing the game.
func (s *Service) Hint(id string) (search.Result, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    gs, ok := s.games[id]
    if !ok {
        return search.Result{}, ErrNotFound
    }
    if gs.Game.Over {
        return search.Result{}, domain.ErrGameOver
    }
    return s.searcher.ChooseMove(gs.Game.Board), nil
}

// computerMoveLocked searches the live board and plays the best move.
// Callers hold s.mu and have checked the game is not over.
func (s *Service) computerMoveLocked(gs *GameState) {
    res := s.searcher.ChooseMove(gs.Game.Board)
    if err := gs.Game.Play(res.Move.Row, res.Move.Col); err != nil {
        // The engine only returns legal moves on a live board.
        panic(err)
    }
    gs.LastEval = &res
    s.logger.Debug().
        Str("game_id", gs.ID).
        Stringer("move", res.Move).
        Int("score", res.Score).
        Int("leaves", res.Leaves).
        Msg("computer moved")
}

// Subscribe registers a subscriber for an existing game. Returns a channel,
// an unsubscribe func, and ErrNotFound for unknown ids.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan []byte, func(), error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if _, ok := s.games[id]; !ok {
        return nil, func() {}, ErrNotFound
    }
    set := s.subs[id]
    if set == nil {
        set = make(map[*subscriber]struct{})
        s.subs[id] = set
    }
    sub := &subscriber{ch: make(chan []byte, 1)}
    set[sub] = struct{}{}

    unsubOnce := &sync.Once{}
    unsub := func() {
        unsubOnce.Do(func() {
            s.mu.Lock()
            if set, ok := s.subs[id]; ok {
                delete(set, sub)
            }
            s.mu.Unlock()
            sub.close()
        })
    }
    go func() {
        <-ctx.Done()
        unsub()
    }()
    return sub.ch, unsub, nil
}

func (s *Service) copySubsLocked(id string) []*subscriber {
    return lo.Keys(s.subs[id])
}
