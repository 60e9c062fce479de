package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"strobeguard/internal/analysis"
	"strobeguard/internal/auth"
	"strobeguard/internal/config"
	"strobeguard/internal/database"
	"strobeguard/internal/monitor"
	"strobeguard/internal/notify"
	"strobeguard/internal/source"
	"strobeguard/internal/stats"
	"strobeguard/internal/ws"
)

func main() {
	var (
		httpAddrF = flag.String("http-addr", ":8080", "HTTP listen address")
		dbPathF   = flag.String("db", "strobeguard.db", "Path to the SQLite database")
		demoF     = flag.Bool("demo", false, "Attach a synthetic strobing source for demonstration")
		debugF    = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *debugF {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	db, err := database.New(*dbPathF)
	if err != nil {
		logger.Error("failed to open database", "error", err, "path", *dbPathF)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	global, err := config.LoadFromStore(db)
	if err != nil {
		logger.Error("failed to load detection config", "error", err)
		os.Exit(1)
	}

	bus := notify.NewWarningBus()
	defer bus.Close()

	aggregator := stats.NewAggregator(db, logger)
	bus.Subscribe(aggregator)

	hub := ws.NewWarningHub(logger)
	bus.Subscribe(hub)

	mon := monitor.New(global, bus, aggregator, logger)
	defer mon.StopAll()

	authenticator := auth.NewAuthenticator(logger)
	if authenticator.IsEnabled() {
		logger.Info("API authentication enabled")
	}

	srv := &http.Server{
		Addr:    *httpAddrF,
		Handler: newHandler(mon, db, hub, authenticator, logger),
	}

	// Channel used by both the signal handler and the server goroutine to
	// notify the main goroutine when to stop.
	errc := make(chan error)

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("HTTP server listening", "addr", *httpAddrF)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	if *demoF {
		if err := mon.Attach("demo", "synthetic strobing source", nil); err != nil {
			logger.Error("failed to attach demo source", "error", err)
		} else {
			// 30 fps with a luminance flip every 125ms: enough qualifying
			// transitions per second to trip the default threshold.
			gen := source.NewAlternator(320, 180, 1000.0/30, 125, 0xe6, 0x1a)
			wg.Add(1)
			go func() {
				defer wg.Done()
				source.Play(ctx, gen, time.Second/30, func(f *analysis.Frame) {
					if err := mon.Feed("demo", f); err != nil {
						logger.Debug("demo feed stopped", "error", err)
					}
				})
			}()
		}
	}

	logger.Info("exiting", "reason", <-errc)

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown", "error", err)
	}

	wg.Wait()
	logger.Info("exited")
}
