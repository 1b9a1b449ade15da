package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"matchreplay.ai/internal/app"
	"matchreplay.ai/internal/persistence/snapshot"
	"matchreplay.ai/internal/sim/gameworld"
	"matchreplay.ai/internal/sim/player"
	"matchreplay.ai/internal/transport/viewer"
)

func main() {
	var (
		configPath = flag.String("config", app.ConfigPath(), "path to replay.toml (or set REPLAY_CONFIG)")
		matchPath  = flag.String("match", "", "path to .match.zst")
		addr       = flag.String("addr", "", "http listen address (default: viewer.addr from config)")
		snapPaths  = flagList{}
	)
	flag.Var(&snapPaths, "snapshot", "snapshot to preload into the seek cache (repeatable)")
	flag.Parse()

	if *matchPath == "" {
		fmt.Fprintln(os.Stderr, "missing -match")
		os.Exit(2)
	}

	cfg, logger, err := app.Setup(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	defer logger.Sync()
	if *addr != "" {
		cfg.Viewer.Addr = *addr
	}

	meta, tun, err := app.Static(cfg, logger)
	if err != nil {
		logger.Fatal("load static data", zap.Error(err))
	}
	m, base, err := app.OpenMatch(*matchPath, meta, tun, logger)
	if err != nil {
		logger.Fatal("read match", zap.Error(err))
	}
	matchID := app.MatchID(*matchPath)

	p, err := player.New(m, base, player.Options{Logger: logger})
	if err != nil {
		logger.Fatal("player", zap.Error(err))
	}
	for _, path := range snapPaths {
		snap, err := snapshot.ReadSnapshot(path)
		if err != nil {
			logger.Fatal("read snapshot", zap.String("path", path), zap.Error(err))
		}
		w := gameworld.New(meta, tun, logger)
		if err := w.ImportSnapshot(snap); err != nil {
			logger.Fatal("import snapshot", zap.String("path", path), zap.Error(err))
		}
		if err := p.AddSnapshot(w); err != nil {
			logger.Fatal("preload snapshot", zap.String("path", path), zap.Error(err))
		}
	}

	ctx, cancel := app.SignalContext()
	defer cancel()

	vs := viewer.NewServer(matchID, p, cfg.Viewer, logger)
	go vs.Run(ctx)

	mux := http.NewServeMux()
	mux.Handle("/v1/", vs.Handler())
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok\n"))
	})

	srv := &http.Server{
		Addr:              cfg.Viewer.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Info("listening",
		zap.String("addr", cfg.Viewer.Addr),
		zap.String("match", matchID),
		zap.Int32("rounds", m.MaxRound()))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("ListenAndServe", zap.Error(err))
	}
	logger.Info("stopped", zap.Uint64("dropped_frames", vs.Dropped()))
}

type flagList []string

func (f *flagList) String() string { return fmt.Sprint([]string(*f)) }

func (f *flagList) Set(v string) error {
	*f = append(*f, v)
	return nil
}
