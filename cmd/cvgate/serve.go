package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmarinova/cvgate/pkg/ask"
	"github.com/dmarinova/cvgate/pkg/audit"
	"github.com/dmarinova/cvgate/pkg/cache"
	"github.com/dmarinova/cvgate/pkg/config"
	"github.com/dmarinova/cvgate/pkg/document"
	"github.com/dmarinova/cvgate/pkg/llm"
	"github.com/dmarinova/cvgate/pkg/ratelimit"
	"github.com/dmarinova/cvgate/pkg/server"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the CV question-answering server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			doc := document.Load(cfg.CVPath, cfg.Limits.MaxContextChars)
			if doc.Empty() {
				log.Printf("warning: no CV text at %s; ask requests will fail until one is provided", cfg.CVPath)
			}

			limiter := ratelimit.New(cfg.Limits.Cooldown.Std(), cfg.Limits.MaxPerDay)
			answers := cache.New(cfg.Cache.TTL.Std())
			client := llm.New(cfg.LLM)
			if !client.Configured() {
				log.Printf("warning: no completion API key configured; ask requests will fail")
			}

			var auditor *audit.Logger
			if cfg.Audit.Enabled {
				auditor, err = audit.New(cfg.Audit)
				if err != nil {
					return fmt.Errorf("init audit log: %w", err)
				}
				defer func() { _ = auditor.Close() }()
			}

			svc := ask.New(doc, limiter, answers, client, cfg.Subject, cfg.Limits.MaxQuestionChars)
			srv := server.New(cfg, svc, answers, auditor)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			go sweepLoop(ctx, limiter, answers, cfg.Limits.SweepInterval.Std(), cfg.Cache.SweepInterval.Std())

			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "cvgate.yaml", "path to config file")
	return cmd
}

// sweepLoop periodically prunes expired limiter and cache entries so the
// in-memory maps stay bounded over long process lifetimes. Pruning never
// changes admission or cache semantics within the window/TTL.
func sweepLoop(ctx context.Context, limiter *ratelimit.Limiter, answers *cache.AnswerCache, limitEvery, cacheEvery time.Duration) {
	if limitEvery <= 0 {
		limitEvery = time.Hour
	}
	if cacheEvery <= 0 {
		cacheEvery = time.Hour
	}

	limitTick := time.NewTicker(limitEvery)
	cacheTick := time.NewTicker(cacheEvery)
	defer limitTick.Stop()
	defer cacheTick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-limitTick.C:
			if n := limiter.Sweep(time.Now()); n > 0 {
				log.Printf("swept %d stale rate-limit entries", n)
			}
		case <-cacheTick.C:
			if n := answers.Sweep(time.Now()); n > 0 {
				log.Printf("swept %d expired cache entries", n)
			}
		}
	}
}
