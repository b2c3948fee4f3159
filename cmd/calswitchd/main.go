package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/truittchris/hubitat-calendar-switch-ical/internal/config"
	"github.com/truittchris/hubitat-calendar-switch-ical/internal/ics"
	applog "github.com/truittchris/hubitat-calendar-switch-ical/internal/log"
	"github.com/truittchris/hubitat-calendar-switch-ical/internal/metrics"
	"github.com/truittchris/hubitat-calendar-switch-ical/internal/schedule"
	"github.com/truittchris/hubitat-calendar-switch-ical/internal/web"
)

var (
	configPath     string
	listenOverride string

	evalFeedPath string
	evalFeedURL  string
	evalAt       string
)

var rootCmd = &cobra.Command{
	Use:   "calswitchd",
	Short: "Turn a calendar feed into a busy-now switch",
	Long: "calswitchd polls an ICS calendar feed, decides whether an eligible\n" +
		"event is happening right now, and exposes the result over HTTP for\n" +
		"home automation to act on.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon()
	},
}

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate a feed once and print the result as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEval(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "/etc/calswitch/config.yaml", "Path to config file")
	rootCmd.Flags().StringVar(&listenOverride, "listen", "", "HTTP listen address (overrides config if set)")

	evalCmd.Flags().StringVar(&evalFeedPath, "feed", "", "Read the feed from a local file")
	evalCmd.Flags().StringVar(&evalFeedURL, "url", "", "Fetch the feed from a URL (defaults to feed_url in the config)")
	evalCmd.Flags().StringVar(&evalAt, "at", "", "Evaluate at this RFC3339 instant instead of now")

	rootCmd.AddCommand(evalCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func runDaemon() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if listenOverride != "" {
		cfg.Listen = listenOverride
	}

	logger := applog.New(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	if cfg.FeedURL == "" {
		logger.Error("feed_url is not configured", zap.String("config", configPath))
		return errors.New("feed_url is not configured")
	}

	opts, err := cfg.EngineOptions()
	if err != nil {
		return err
	}

	logger.Info("calswitchd starting",
		zap.String("feed", ics.RedactURL(cfg.FeedURL)),
		zap.String("listen", cfg.Listen),
		zap.String("timezone", cfg.Timezone),
		zap.Duration("poll_interval", cfg.PollInterval()),
		zap.Int("horizon_days", cfg.HorizonDays),
		zap.Int("include_past_hours", cfg.IncludePastHours),
	)

	fetcher := ics.NewFetcher(cfg.FeedURL, 0)
	m := metrics.New()
	state := web.NewState()

	eval := func(ctx context.Context, trigger schedule.Trigger) time.Time {
		started := time.Now()

		feed, err := fetcher.Fetch(ctx)
		if err != nil {
			m.IncFetchFailure()
			state.Publish(nil, err)
			logger.Warn("feed fetch failed",
				zap.String("trigger", string(trigger)),
				zap.Error(err),
			)
			return time.Time{}
		}

		res, err := ics.Evaluate(feed, opts, time.Now())
		if err != nil {
			state.Publish(nil, err)
			logger.Warn("feed evaluation failed",
				zap.String("trigger", string(trigger)),
				zap.Error(err),
			)
			return time.Time{}
		}

		state.Publish(res, nil)
		m.RecordResult(res)
		m.ObserveEvaluation(string(trigger), time.Since(started))

		logger.Info("feed evaluated",
			zap.String("trigger", string(trigger)),
			zap.Bool("active", res.Active),
			zap.String("active_summary", res.ActiveSummary),
			zap.Int("eligible", len(res.Eligible)),
			zap.Int("diagnostics", len(res.Diagnostics)),
			zap.String("transition_reason", res.TransitionReason),
			zap.Time("next_transition", res.NextTransition),
		)
		return res.NextTransition
	}

	runner := schedule.New(eval, cfg.PollInterval(), logger)
	srv := web.NewServer(logger, state, runner.Trigger)

	var metricsSrv *http.Server
	if cfg.MetricsListen != "" {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", m.Handler())
		metricsSrv = &http.Server{
			Addr:         cfg.MetricsListen,
			Handler:      metricsMux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("metrics listening", zap.String("addr", cfg.MetricsListen))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	webErr := make(chan error, 1)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.Listen))
		webErr <- srv.Listen(cfg.Listen)
	}()

	runnerDone := make(chan error, 1)
	go func() {
		runnerDone <- runner.Run(ctx)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("signal received, shutting down")
	case runErr = <-webErr:
		logger.Error("http server failed", zap.Error(runErr))
		stop()
	}

	<-runnerDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics shutdown", zap.Error(err))
		}
	}

	logger.Info("calswitchd exiting")
	return runErr
}

// runEval evaluates one feed snapshot and prints the Result as JSON.
// Unlike the daemon it never writes a config file: an existing config is
// honored, otherwise the defaults apply.
func runEval(ctx context.Context) error {
	cfg := config.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	opts, err := cfg.EngineOptions()
	if err != nil {
		return err
	}

	now := time.Now()
	if evalAt != "" {
		now, err = time.Parse(time.RFC3339, evalAt)
		if err != nil {
			return fmt.Errorf("parse --at: %w", err)
		}
	}

	var feed string
	switch {
	case evalFeedPath != "":
		data, err := os.ReadFile(evalFeedPath)
		if err != nil {
			return err
		}
		feed = string(data)
	case evalFeedURL != "" || cfg.FeedURL != "":
		url := evalFeedURL
		if url == "" {
			url = cfg.FeedURL
		}
		fetcher := ics.NewFetcher(url, 0)
		feed, err = fetcher.Fetch(ctx)
		if err != nil {
			return err
		}
	default:
		return errors.New("no feed: pass --feed or --url, or set feed_url in the config")
	}

	res, err := ics.Evaluate(feed, opts, now)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
