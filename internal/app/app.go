// Package app wires config, logging and static game data for the cmd
// entrypoints.
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"matchreplay.ai/internal/config"
	"matchreplay.ai/internal/logging"
	"matchreplay.ai/internal/sim/gameworld"
	"matchreplay.ai/internal/sim/metadata"
	"matchreplay.ai/internal/sim/tuning"
	"matchreplay.ai/internal/wire"
)

const DefaultConfigPath = "configs/replay.toml"

// ConfigPath returns REPLAY_CONFIG after loading .env, or the default path.
// A missing .env is not an error.
func ConfigPath() string {
	_ = godotenv.Load()
	if v := strings.TrimSpace(os.Getenv("REPLAY_CONFIG")); v != "" {
		return v
	}
	return DefaultConfigPath
}

// Setup loads the config at path, applies environment overrides and builds
// the logger. A missing file at the default path falls back to defaults.
func Setup(path string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if path != DefaultConfigPath || !errors.Is(err, fs.ErrNotExist) {
			return nil, nil, err
		}
		cfg = config.Default()
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	log, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, log, nil
}

// Static loads metadata and tuning. Missing files fall back to the built-in
// defaults; malformed files are errors.
func Static(cfg *config.Config, log *zap.Logger) (*metadata.Metadata, tuning.Tuning, error) {
	meta := metadata.Default()
	if p := cfg.Data.MetadataPath; p != "" {
		m, err := metadata.Load(p)
		switch {
		case err == nil:
			meta = m
		case errors.Is(err, fs.ErrNotExist):
			log.Info("metadata not found; using defaults", zap.String("path", p))
		default:
			return nil, tuning.Tuning{}, fmt.Errorf("load metadata: %w", err)
		}
	}

	tun := tuning.Default()
	if p := cfg.Data.TuningPath; p != "" {
		t, err := tuning.Load(p)
		switch {
		case err == nil:
			tun = t
		case errors.Is(err, fs.ErrNotExist):
			log.Info("tuning not found; using defaults", zap.String("path", p))
		default:
			return nil, tuning.Tuning{}, fmt.Errorf("load tuning: %w", err)
		}
	}
	if cfg.Player.SnapshotStride > 0 {
		tun.SnapshotStride = cfg.Player.SnapshotStride
	}
	return meta, tun, nil
}

// OpenMatch reads a match file and builds its round 0 World.
func OpenMatch(path string, meta *metadata.Metadata, tun tuning.Tuning, log *zap.Logger) (*wire.Match, *gameworld.World, error) {
	m, err := wire.ReadMatch(path)
	if err != nil {
		return nil, nil, err
	}
	w := gameworld.New(meta, tun, log)
	if err := w.LoadInitialState(m.Header); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return m, w, nil
}

// MatchID derives an id from a match file name.
func MatchID(path string) string {
	base := filepath.Base(path)
	for _, ext := range []string{".match.zst", ".zst"} {
		if strings.HasSuffix(base, ext) {
			return strings.TrimSuffix(base, ext)
		}
	}
	return base
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(ch)
	}()
	return ctx, cancel
}
