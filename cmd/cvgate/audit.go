package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmarinova/cvgate/pkg/audit"
	"github.com/dmarinova/cvgate/pkg/config"
	"github.com/dmarinova/cvgate/pkg/models"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query and manage the ask audit log",
	}

	cmd.AddCommand(
		newAuditSearchCmd(),
		newAuditStatsCmd(),
		newAuditCleanupCmd(),
	)
	return cmd
}

func openAuditLogger(configPath string) (*audit.Logger, func(), error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	l, err := audit.New(cfg.Audit)
	if err != nil {
		return nil, nil, fmt.Errorf("open audit log: %w", err)
	}
	return l, func() { _ = l.Close() }, nil
}

func newAuditSearchCmd() *cobra.Command {
	var (
		configPath string
		prefix     string
		since      string
		status     int
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search ask log records",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openAuditLogger(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			opts := models.AuditQueryOpts{
				IdentityPrefix: prefix,
				StatusCode:     status,
				Limit:          limit,
			}
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date (use YYYY-MM-DD): %w", err)
				}
				opts.Since = t
			}

			records, err := l.Query(context.Background(), opts)
			if err != nil {
				return err
			}
			fmt.Print(formatAskRecords(records))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "cvgate.yaml", "path to config file")
	cmd.Flags().StringVar(&prefix, "identity-prefix", "", "filter by client identity prefix")
	cmd.Flags().StringVar(&since, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&status, "status", 0, "filter by HTTP status code")
	cmd.Flags().IntVar(&limit, "limit", 50, "max records to return")

	return cmd
}

func newAuditStatsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show per-day ask counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openAuditLogger(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := l.Stats(context.Background())
			if err != nil {
				return err
			}
			if len(stats) == 0 {
				fmt.Println("No ask records.")
				return nil
			}

			fmt.Printf("%-12s %8s %8s %9s\n", "DAY", "TOTAL", "CACHED", "REJECTED")
			for _, s := range stats {
				fmt.Printf("%-12s %8d %8d %9d\n", s.Day, s.Total, s.Cached, s.Rejected)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "cvgate.yaml", "path to config file")
	return cmd
}

func newAuditCleanupCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete records older than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openAuditLogger(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			n, err := l.Cleanup(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d records.\n", n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "cvgate.yaml", "path to config file")
	return cmd
}

func formatAskRecords(records []models.AskRecord) string {
	if len(records) == 0 {
		return "No records found.\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-36s %-10s %-20s %6s %6s %8s\n",
		"REQUEST ID", "IDENTITY", "CREATED", "STATUS", "CACHED", "LATENCY")
	for _, r := range records {
		cached := "no"
		if r.Cached {
			cached = "yes"
		}
		fmt.Fprintf(&b, "%-36s %-10s %-20s %6d %6s %6dms\n",
			r.RequestID, r.IdentityPrefix,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.StatusCode, cached, r.LatencyMs)
		if r.Question != "" {
			fmt.Fprintf(&b, "  Q: %s\n", r.Question)
		}
	}
	return b.String()
}
