package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/renameio/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/comalice/tesmx"
	"github.com/comalice/tesmx/actor"
	"github.com/comalice/tesmx/examples/trafficlight"
	"github.com/comalice/tesmx/internal/extensibility"
	xlog "github.com/comalice/tesmx/internal/log"
	"github.com/comalice/tesmx/internal/production"
)

type lightRuntime = tesmx.Runtime[trafficlight.State, trafficlight.Msg, trafficlight.Cmd]

func newRunCmd(cfg *config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Cycle the traffic light for a while",
		Long: "Run the traffic light machine inside an actor with real timers. Delays are " +
			"multiplied by --scale so a full cycle fits in a few seconds.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return runLight(cmd.Context(), *cfg)
		},
	}
	f := cmd.Flags()
	f.Float64Var(&cfg.Scale, "scale", cfg.Scale, "delay multiplier")
	f.DurationVar(&cfg.Duration, "duration", cfg.Duration, "how long to run")
	f.DurationVar(&cfg.TickRate, "tick-rate", cfg.TickRate, "batch messages at this rate (0 applies immediately)")
	f.DurationVar(&cfg.ResetEvery, "reset-every", cfg.ResetEvery, "send a reset message at this interval (0 disables)")
	f.IntVar(&cfg.History, "history", cfg.History, "history bound (0 disables, negative is unbounded)")
	f.StringVar(&cfg.OutDir, "out", cfg.OutDir, "directory for the snapshot and DOT graph")
	f.StringVar(&cfg.Format, "format", cfg.Format, "snapshot format (json or yaml)")
	f.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address")
	return cmd
}

func runLight(parent context.Context, cfg config) error {
	log := xlog.WithComponent("run")

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	reg := prometheus.NewRegistry()
	commits := make(chan production.Published, 64)
	pub := production.NewChannelPublisher(commits)

	m, err := trafficlight.New(time.Now().UnixMilli())
	if err != nil {
		return err
	}
	rt, err := tesmx.New(m,
		tesmx.WithHistory(cfg.History),
		tesmx.WithLogger(xlog.WithComponent("runtime")),
		tesmx.WithMetrics(reg),
		tesmx.WithObserver(pub.Observe),
	)
	if err != nil {
		return err
	}

	actorLog := xlog.WithComponent("actor")
	a := actor.New(rt, actor.Config[trafficlight.Msg]{
		TickRate:   cfg.TickRate,
		Logger:     &actorLog,
		Registerer: reg,
	})
	if err := a.Start(ctx); err != nil {
		return err
	}

	fx := trafficlight.NewEffects(a.Send, xlog.WithComponent("effects"), cfg.Scale)
	handler := extensibility.LoggingHandler(
		extensibility.RecoveringHandler(fx.Handler()),
		xlog.WithComponent("commands"),
	)
	if err := a.Do(ctx, func(rt *lightRuntime) { rt.AddHandler(handler) }); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for c := range commits {
			log.Info().
				Uint64("seq", c.Seq).
				Str("from", c.From).
				Str("msg", c.Msg).
				Str("to", c.To).
				Strs("commands", c.Commands).
				Msg("commit")
		}
		return nil
	})
	if cfg.ResetEvery > 0 {
		g.Go(func() error {
			src := extensibility.NewTimerSource(cfg.ResetEvery, func(t time.Time) trafficlight.Msg {
				return trafficlight.Reset{Now: t.UnixMilli()}
			})
			defer src.Stop()
			return ignoreDone(extensibility.Pump(gctx, src, a.Send, func(msg trafficlight.Msg, err error) {
				log.Warn().Err(err).Str("msg", msg.Tag()).Msg("reset rejected")
			}))
		})
	}
	if cfg.MetricsAddr != "" {
		g.Go(func() error { return serveMetrics(gctx, cfg.MetricsAddr, reg, log) })
	}

	<-ctx.Done()
	fx.Stop()
	if err := a.Stop(); err != nil {
		log.Warn().Err(err).Msg("stopping actor")
	}
	_ = pub.Close()
	if err := g.Wait(); err != nil {
		return err
	}

	final := rt.State()
	log.Info().
		Str("state", final.Tag()).
		Int("cycles", final.Payload.CycleCount).
		Uint64("dropped_commits", pub.Dropped()).
		Msg("stopped")

	if cfg.OutDir == "" {
		return nil
	}
	return export(rt, cfg, log)
}

func export(rt *lightRuntime, cfg config, log zerolog.Logger) error {
	newExporter := production.NewJSONExporter
	if cfg.Format == "yaml" {
		newExporter = production.NewYAMLExporter
	}
	x, err := newExporter(cfg.OutDir)
	if err != nil {
		return err
	}
	path, err := x.Save(context.Background(), production.SnapshotOf(rt, time.Now()))
	if err != nil {
		return err
	}
	log.Info().Str("path", path).Msg("snapshot written")

	var v production.Visualizer
	dot := v.ExportDOT(rt.Machine().Table(), tesmx.EdgesFromHistory(rt.History()), rt.State().Tag())
	dotPath := filepath.Join(cfg.OutDir, fmt.Sprintf("%s-%s.dot", rt.Name(), rt.ID()))
	if err := renameio.WriteFile(dotPath, []byte(dot), 0o644); err != nil {
		return fmt.Errorf("write graph: %w", err)
	}
	log.Info().Str("path", dotPath).Msg("graph written")
	return nil
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, log zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Info().Str("addr", addr).Msg("serving metrics")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func ignoreDone(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}
