package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"matchreplay.ai/internal/app"
	"matchreplay.ai/internal/persistence/indexdb"
	persistlog "matchreplay.ai/internal/persistence/log"
	"matchreplay.ai/internal/persistence/snapshot"
	"matchreplay.ai/internal/sim/gameworld"
	"matchreplay.ai/internal/sim/player"
	"matchreplay.ai/internal/wire"
)

func main() {
	var (
		configPath = flag.String("config", app.ConfigPath(), "path to replay.toml (or set REPLAY_CONFIG)")
		matchPath  = flag.String("match", "", "path to .match.zst")
		toRound    = flag.Int("to", -1, "stop at round (default: last round)")
		verify     = flag.Bool("verify", false, "cross-check against a linear replay, and against -roundlog digests when set")
		roundLog   = flag.String("roundlog", "", "round log dir (written, or read with -verify)")
		indexPath  = flag.String("index", "", "sqlite index path (optional)")
		saveSnap   = flag.String("save_snapshot", "", "write a snapshot of the final round to this path")
		snapPath   = flag.String("snapshot", "", "resume from this snapshot")
	)
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

	meta, tun, err := app.Static(cfg, logger)
	if err != nil {
		logger.Fatal("load static data", zap.Error(err))
	}
	m, base, err := app.OpenMatch(*matchPath, meta, tun, logger)
	if err != nil {
		logger.Fatal("read match", zap.Error(err))
	}
	matchID := app.MatchID(*matchPath)

	var idx *indexdb.SQLiteIndex
	if *indexPath != "" {
		idx, err = indexdb.OpenSQLite(*indexPath)
		if err != nil {
			logger.Fatal("open index", zap.Error(err))
		}
		defer idx.Close()
		idx.RecordMatch(matchID, m)
	}

	var (
		rl       *persistlog.RoundLogger
		want     map[int32]string
		firstErr error
		checked  int
	)
	if *roundLog != "" {
		if *verify {
			entries, err := persistlog.ReadRounds(*roundLog)
			if err != nil {
				logger.Fatal("read round log", zap.Error(err))
			}
			want = make(map[int32]string, len(entries))
			for _, e := range entries {
				want[e.Round] = e.Digest
			}
		} else {
			rl = persistlog.NewRoundLogger(*roundLog)
			defer rl.Close()
		}
	}

	onRound := func(w *gameworld.World, r *wire.Round) {
		if rl == nil && idx == nil && want == nil {
			return
		}
		e := persistlog.EntryFor(matchID, w, r)
		if rl != nil {
			if err := rl.WriteRound(e); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("round log: %w", err)
			}
		}
		idx.RecordRound(e)
		if d, ok := want[e.Round]; ok {
			checked++
			if d != e.Digest && firstErr == nil {
				firstErr = fmt.Errorf("digest mismatch at round %d: got=%s want=%s", e.Round, e.Digest, d)
			}
		}
	}

	p, err := player.New(m, base, player.Options{OnRound: onRound, Logger: logger})
	if err != nil {
		logger.Fatal("player", zap.Error(err))
	}

	if *snapPath != "" {
		snap, err := snapshot.ReadSnapshot(*snapPath)
		if err != nil {
			logger.Fatal("read snapshot", zap.Error(err))
		}
		resumed := gameworld.New(meta, tun, logger)
		if err := resumed.ImportSnapshot(snap); err != nil {
			logger.Fatal("import snapshot", zap.Error(err))
		}
		if err := p.AddSnapshot(resumed); err != nil {
			logger.Fatal("resume", zap.Error(err))
		}
		logger.Info("resumed from snapshot", zap.String("path", *snapPath), zap.Int32("round", snap.Header.Round))
	}

	target := m.MaxRound()
	if *toRound >= 0 {
		target = int32(*toRound)
	}
	ctx, cancel := app.SignalContext()
	defer cancel()
	w, err := p.Seek(ctx, target)
	if err != nil {
		logger.Fatal("replay", zap.Int32("round", p.Turn()), zap.Error(err))
	}
	if firstErr != nil {
		logger.Fatal("replay", zap.Error(firstErr))
	}

	if *verify {
		if err := verifyLinear(ctx, m, base, w); err != nil {
			logger.Fatal("verify", zap.Error(err))
		}
		logger.Info("verify ok", zap.Int32("round", w.Turn()), zap.Int("log_rounds_checked", checked))
	}

	if *saveSnap != "" {
		snap := w.ExportSnapshot(matchID)
		if err := snapshot.WriteSnapshot(*saveSnap, snap); err != nil {
			logger.Fatal("write snapshot", zap.Error(err))
		}
		idx.RecordSnapshot(*saveSnap, snap.Header)
		logger.Info("snapshot written", zap.String("path", *saveSnap), zap.Int32("round", snap.Header.Round))
	}

	printSummary(matchID, w)
	if idx != nil {
		st := idx.Stats()
		if st.DropRoundTotal > 0 {
			logger.Warn("index dropped rounds", zap.Uint64("dropped", st.DropRoundTotal))
		}
	}
}

// verifyLinear replays m from round 0 with no snapshots and compares the
// final digest with got.
func verifyLinear(ctx context.Context, m *wire.Match, base, got *gameworld.World) error {
	w := base.Copy()
	for id := int32(1); id <= got.Turn(); id++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.ApplyRound(m.Round(id)); err != nil {
			return err
		}
	}
	if id := got.Turn(); id == m.MaxRound() && m.Footer != nil {
		w.SetWinner(m.Footer.Winner)
	}
	if a, b := w.Digest(), got.Digest(); a != b {
		return fmt.Errorf("round %d: linear digest %s, player digest %s", got.Turn(), a, b)
	}
	return nil
}

func printSummary(matchID string, w *gameworld.World) {
	s := w.Summary()
	fmt.Printf("match=%s round=%d winner=%d bodies=%d died=%d effects=%d digest=%s\n",
		matchID, s.Round, w.Winner(), s.Bodies, s.Died, s.Effects, w.Digest())
	for _, t := range s.Teams {
		fmt.Printf("  team=%d robots=%d hp=%d adamantium=%d mana=%d elixir=%d islands=%d\n",
			t.ID, t.Robots, t.TotalHP, t.Adamantium, t.Mana, t.Elixir, t.Islands)
	}
}
