package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"alphacore/internal/corr"
	"alphacore/internal/dashboard"
	"alphacore/internal/env"
	"alphacore/internal/logx"
	"alphacore/internal/metrics"
	"alphacore/internal/policy"
	"alphacore/internal/pool"
	"alphacore/internal/store"
	"alphacore/internal/tui"
)

type sampleFlags struct {
	seed      int64
	episodes  int
	workers   int
	tui       bool
	dashboard bool
	interval  time.Duration
}

func newSampleCmd(a *app) *cobra.Command {
	var f sampleFlags
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Run random-policy construction episodes",
		Long: `Runs episodes with a policy that picks uniformly among the legal tokens.
Finished expressions go through the pool, which deduplicates them and
records them in the store. Episode i is seeded with --seed + i, so a run
is reproducible for any worker count.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runSample(ctx, f, cmd.OutOrStdout())
		},
	}
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "base seed")
	cmd.Flags().IntVarP(&f.episodes, "episodes", "n", 1000, "number of episodes")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", runtime.NumCPU(), "concurrent environments")
	cmd.Flags().BoolVar(&f.tui, "tui", false, "show the terminal dashboard")
	cmd.Flags().BoolVar(&f.dashboard, "dashboard", false, "serve the web dashboard on dashboard.addr")
	cmd.Flags().DurationVar(&f.interval, "progress", 2*time.Second, "status line interval")
	return cmd
}

// sampleStats counts finished episodes by outcome. Safe for concurrent use.
type sampleStats struct {
	episodes atomic.Int64
	outcomes [int(env.OutcomeIncomplete) + 1]atomic.Int64

	mu   sync.Mutex
	last tui.LastEpisode
}

func (s *sampleStats) observe(sum env.Summary) {
	s.episodes.Add(1)
	if int(sum.Outcome) < len(s.outcomes) {
		s.outcomes[sum.Outcome].Add(1)
	}
	s.mu.Lock()
	s.last = tui.LastEpisode{Expr: sum.Expr, Reward: sum.Reward, Outcome: sum.Outcome.String(), At: time.Now()}
	s.mu.Unlock()
}

func (s *sampleStats) count(o env.Outcome) int64 { return s.outcomes[o].Load() }

// completed counts episodes that ended on a complete expression.
func (s *sampleStats) completed() int64 {
	return s.count(env.OutcomeScored) + s.count(env.OutcomeUndefined) +
		s.count(env.OutcomeOutOfRange) + s.count(env.OutcomeScoreFailed)
}

func (s *sampleStats) lastEpisode() tui.LastEpisode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (a *app) runSample(ctx context.Context, f sampleFlags, out io.Writer) error {
	if f.episodes <= 0 {
		return errors.New("--episodes must be positive")
	}
	if f.workers <= 0 {
		f.workers = 1
	}
	if f.interval <= 0 {
		f.interval = 2 * time.Second
	}
	cfg, logger := a.cfg, a.logger
	prevOut := logx.SetOutput(out)
	defer logx.SetOutput(prevOut)

	var (
		recorder pool.Recorder
		st       *store.Store
	)
	if cfg.Store.Path != "" {
		var err error
		st, err = store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()
		recorder = st
	}

	m := metrics.New()
	var hub *dashboard.Hub
	var dashDone chan struct{}
	if f.dashboard {
		hub = dashboard.NewHub(logger)
		dashDone = make(chan struct{})
		dashCtx, cancelDash := context.WithCancel(ctx)
		defer func() {
			cancelDash()
			<-dashDone
		}()
		go func() {
			defer close(dashDone)
			if err := hub.Serve(dashCtx, cfg.Dashboard.Addr, m.Handler()); err != nil {
				logger.Warn("dashboard stopped", zap.Error(err))
			}
		}()
		fmt.Fprintf(out, "%s dashboard at http://%s (metrics on /metrics)\n", logx.Info("i"), cfg.Dashboard.Addr)
	}

	tuiOn := false
	bestIC := math.NaN()
	var bestMu sync.Mutex
	p := pool.New(nil, corr.Matrix{}, pool.Options{
		Capacity:       cfg.Pool.Capacity,
		MaxPerSkeleton: cfg.Pool.MaxPerSkeleton,
		RankIC:         cfg.Pool.RankIC,
		Store:          recorder,
		Logger:         logger,
		OnAdmit: func(e pool.Entry, elites int) {
			if tuiOn {
				logx.LogEliteAdded(e.Expr, e.Score, elites)
			}
		},
		OnNewBest: func(e pool.Entry) {
			bestMu.Lock()
			old := bestIC
			bestIC = e.Score
			bestMu.Unlock()
			logx.LogNewBestLine(e.Expr, e.Score)
			logx.LogNewBest(old, e.Score, e.Expr)
			if hub != nil {
				hub.SendNewBest(e.Expr, e.Score)
			}
		},
	})

	if path := cfg.Store.Checkpoint; path != "" {
		cp, err := pool.LoadCheckpoint(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return err
		default:
			p.Restore(cp)
			logx.LogCheckpointLoad(path, p.HallOfFame().Len(), p.SeenCount())
		}
	}

	if f.tui {
		err := tui.Start(ctx, tui.Config{Title: "alphacore", Mode: "sample", TargetEpisodes: int64(f.episodes)})
		if err != nil {
			logger.Warn("tui disabled", zap.Error(err))
		} else {
			tuiOn = true
			defer tui.Stop()
		}
	}

	stats := &sampleStats{}
	observers := []env.Observer{stats.observe, m.ObserveEpisode}
	if hub != nil {
		observers = append(observers, hub.ObserveEpisode)
	}
	observers = append(observers, func(s env.Summary) {
		switch {
		case tuiOn && s.Outcome == env.OutcomePenalty:
			logx.LogPenalty(s.Expr)
		case tuiOn && s.Outcome == env.OutcomeScoreFailed:
			logx.LogScoreFailure(s.Expr)
		case !tuiOn && cfg.Env.PrintExpr:
			logx.LogEpisode(s.ID, s.Expr, s.Reward, s.Outcome.String())
		}
	})

	catalog := cfg.TokenCatalog()
	pol := policy.NewRandom(catalog)
	start := time.Now()

	report := func() {
		bestMu.Lock()
		best := bestIC
		bestMu.Unlock()
		episodes := stats.episodes.Load()
		elapsed := time.Since(start)
		rate := float64(episodes) / math.Max(elapsed.Seconds(), 1e-9)
		elites := p.HallOfFame().Len()

		m.SetPool(best, elites)
		if hub != nil {
			hub.SendProgress(episodes, elites, best, rate)
		}
		if tuiOn {
			tui.PushState(tui.StateSnapshot{
				Title:          "alphacore",
				Mode:           "sample",
				StartTime:      start,
				Episodes:       episodes,
				TargetEpisodes: int64(f.episodes),
				RatePerSec:     rate,
				Completed:      stats.completed(),
				Penalties:      stats.count(env.OutcomePenalty),
				Undefined:      stats.count(env.OutcomeUndefined),
				ScoreFailed:    stats.count(env.OutcomeScoreFailed),
				BestIC:         best,
				Elites:         elites,
				Last:           stats.lastEpisode(),
			})
			return
		}
		logx.LogProgress(logx.Progress{
			Episodes:  episodes,
			Completed: stats.completed(),
			Rate:      rate,
			BestIC:    best,
			Elites:    elites,
			Elapsed:   elapsed,
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	var next atomic.Int64
	for w := 0; w < f.workers; w++ {
		g.Go(func() error {
			e := env.New(p, env.Options{
				MaxExprLength: cfg.Env.MaxExprLength,
				Grammar:       cfg.ExprGrammar(),
				Logger:        logger,
				PrintExpr:     cfg.Env.PrintExpr && cfg.Logging.JSON,
				Observers:     observers,
			})
			for {
				i := next.Add(1) - 1
				if i >= int64(f.episodes) {
					return nil
				}
				seed := f.seed + i
				if _, err := policy.RunEpisode(gctx, e, pol, &seed); err != nil {
					return err
				}
			}
		})
	}

	tickerDone := make(chan struct{})
	go func() {
		defer close(tickerDone)
		t := time.NewTicker(f.interval)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return
			case <-t.C:
				report()
			}
		}
	}()

	err := g.Wait()
	<-tickerDone
	report()

	if path := cfg.Store.Checkpoint; path != "" {
		if cerr := pool.SaveCheckpoint(path, p.Snapshot()); cerr != nil {
			logger.Error("save checkpoint", zap.Error(cerr))
		} else {
			logx.LogCheckpoint(path, p.HallOfFame().Len(), p.SeenCount())
		}
	}

	if tuiOn {
		tui.Stop()
	}
	a.printSummary(ctx, out, stats, p, st, time.Since(start))

	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(out, logx.Warn("interrupted"))
		return nil
	}
	return err
}

func (a *app) printSummary(ctx context.Context, out io.Writer, stats *sampleStats, p *pool.Pool, st *store.Store, elapsed time.Duration) {
	const width = 60
	fmt.Fprintln(out, logx.BoxHeader("sample summary", width))
	fmt.Fprintf(out, "  episodes   %d in %s\n", stats.episodes.Load(), logx.FormatDuration(elapsed))
	for _, o := range env.Outcomes {
		fmt.Fprintf(out, "  %-12s %d\n", o.String(), stats.count(o))
	}
	fmt.Fprintf(out, "  distinct   %d\n", p.SeenCount())
	if st != nil {
		// ctx is canceled after an interrupt.
		if n, err := st.Count(context.WithoutCancel(ctx)); err == nil {
			fmt.Fprintf(out, "  stored     %d (%s)\n", n, st.Path())
		} else {
			a.logger.Warn("count stored expressions", zap.Error(err))
		}
	}
	if best, ok := p.HallOfFame().Best(); ok {
		fmt.Fprintf(out, "  best       %s  %s\n", logx.ICColor(best.Score), best.Expr)
	}
	fmt.Fprintln(out, logx.BoxFooter(width))
}
