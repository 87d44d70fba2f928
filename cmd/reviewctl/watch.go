package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jonesrussell/north-cloud/draft-review/internal/filter"
	"github.com/jonesrussell/north-cloud/draft-review/internal/logger"
	"github.com/jonesrussell/north-cloud/draft-review/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const defaultWatchInterval = 30 * time.Second

var errSessionExpired = errors.New("session expired")

type watchOptions struct {
	interval       time.Duration
	status         string
	redisAddr      string
	sessionChannel string
}

func newWatchCommand(newApp appFactory) *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the queue loaded and refresh it on an interval",
		Long: "Keep the queue loaded and refresh it on an interval. Lines typed on stdin " +
			"become the search filter once typing pauses. With --redis the session ends " +
			"as soon as an expiry is published on the session channel.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, a, opts, cmd.InOrStdin())
		},
	}

	f := cmd.Flags()
	f.DurationVar(&opts.interval, "interval", defaultWatchInterval, "refresh interval")
	f.StringVar(&opts.status, "status", "pending", "status filter")
	f.StringVar(&opts.redisAddr, "redis", os.Getenv("REDIS_ADDRESS"), "Redis address for session expiry notices")
	f.StringVar(&opts.sessionChannel, "session-channel", envOr("REDIS_SESSION_CHANNEL", session.DefaultExpiryChannel),
		"Redis channel carrying session expiry notices")
	return cmd
}

func runWatch(ctx context.Context, a *app, opts *watchOptions, in io.Reader) error {
	if opts.redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: opts.redisAddr})
		defer func() { _ = rdb.Close() }()

		bridge := session.NewRedisBridge(rdb, opts.sessionChannel, a.guard, a.log)
		if err := bridge.Start(ctx); err != nil {
			return fmt.Errorf("session bridge: %w", err)
		}
		defer func() { _ = bridge.Close() }()
	}

	stopSession := a.console.WatchSession(ctx, a.guard)
	defer stopSession()

	expired, cancelExpired := a.guard.Subscribe()
	defer cancelExpired()

	snaps, unsubscribe := a.console.Subscribe()
	defer unsubscribe()

	if _, err := a.console.UpdateFilters(ctx, filter.Patch{Status: filter.Str(opts.status)}); err != nil {
		a.log.Warn("Initial list failed", logger.Error(err))
	}
	if err := a.console.Load(ctx); err != nil {
		a.log.Warn("Initial load failed", logger.Error(err))
	}

	debouncer := filter.NewSearchDebouncer(filter.DefaultSearchDelay, func(search string) {
		if _, err := a.console.UpdateFilters(ctx, filter.Patch{Search: filter.Str(search)}); err != nil {
			a.log.Warn("Search failed", logger.String("search", search), logger.Error(err))
		}
	})
	go readSearches(ctx, in, debouncer)

	ticker := time.NewTicker(opts.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-expired:
			if !ok {
				return nil
			}
			fmt.Fprintf(a.out, "session ended: %s\n", sig.Reason)
			return errSessionExpired
		case snap := <-snaps:
			renderSummary(a.out, snap)
		case <-ticker.C:
			if err := a.console.RefreshAfterStatusChange(ctx); err != nil {
				a.log.Warn("Refresh failed", logger.Error(err))
			}
		}
	}
}

func readSearches(ctx context.Context, in io.Reader, debouncer *filter.SearchDebouncer) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		debouncer.Push(strings.TrimSpace(scanner.Text()))
	}
}
