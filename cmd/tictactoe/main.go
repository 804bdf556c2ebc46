package main

import (
    "context"
    "errors"
    "flag"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/rs/zerolog"
    "github.com/rs/zerolog/log"
    "golang.org/x/sync/errgroup"

    "github.com/jaminalder/tictactoe-solver/internal/app"
    "github.com/jaminalder/tictactoe-solver/internal/cli"
    "github.com/jaminalder/tictactoe-solver/internal/config"
    "github.com/jaminalder/tictactoe-solver/internal/search"
    "github.com/jaminalder/tictactoe-solver/internal/web"
)

func main() {
    configPath := flag.String("config", "", "path to a YAML config file")
    addr := flag.String("addr", "", "listen address (overrides config)")
    terminal := flag.Bool("cli", false, "play in the terminal instead of serving HTTP")
    humanFirst := flag.Bool("human-first", true, "in terminal mode, open the game as X")
    flag.Parse()

    cfg, err := config.Load(*configPath)
    if err != nil {
        log.Fatal().Err(err).Msg("load config")
    }
    if *addr != "" {
        cfg.Addr = *addr
    }
    setupLogging(cfg)

    alg, _ := cfg.Algorithm()
    searcher := search.New(search.WithAlgorithm(alg), search.WithLogger(log.Logger))

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    if *terminal {
        err = cli.Run(ctx, os.Stdin, os.Stdout, cli.Options{HumanFirst: *humanFirst, Searcher: searcher})
    } else {
        err = serve(ctx, cfg, searcher)
    }
    if err != nil && !errors.Is(err, context.Canceled) {
        log.Fatal().Err(err).Msg("exiting")
    }
}

func setupLogging(cfg config.Config) {
    lvl, _ := cfg.Level()
    zerolog.SetGlobalLevel(lvl)
    if cfg.Log.Format == "console" {
        log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
    }
}

func serve(ctx context.Context, cfg config.Config, searcher *search.Searcher) error {
    svc := app.NewService(app.WithSearcher(searcher), app.WithLogger(log.Logger))
    srv := &http.Server{
        Addr:              cfg.Addr,
        Handler:           web.NewServer(svc, web.WithLogger(log.Logger), web.WithHeartbeat(cfg.Web.Heartbeat)),
        ReadHeaderTimeout: 5 * time.Second,
    }

    g, ctx := errgroup.WithContext(ctx)
    g.Go(func() error {
        log.Info().Str("addr", cfg.Addr).Stringer("algorithm", searcher.Algorithm()).Msg("listening")
        if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
            return err
        }
        return nil
    })
    g.Go(func() error {
        <-ctx.Done()
        log.Info().Msg("shutting down")
        shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        defer cancel()
        return srv.Shutdown(shutdownCtx)
    })
    return g.Wait()
}
