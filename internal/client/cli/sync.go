package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/iudanet/matsync/internal/client/events"
	"github.com/iudanet/matsync/internal/client/scheduler"
	clientsync "github.com/iudanet/matsync/internal/client/sync"
)

func (c *Cli) newSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay queued changes against the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSync(cmd.Context())
		},
	}
}

func (c *Cli) runSync(ctx context.Context) error {
	if c.backend == nil {
		return errNoServer
	}

	pending, err := c.engine.Queue.Size(ctx)
	if err != nil {
		return err
	}
	if !c.engine.Monitor.IsOnline() {
		return fmt.Errorf("server %s is unreachable, %d change(s) remain queued", c.cfg.ServerURL, pending)
	}

	c.io.Println("=== Synchronization ===")
	c.io.Printf("Queued changes: %d\n", pending)

	result, err := c.engine.Drain(ctx)
	if err != nil {
		return fmt.Errorf("synchronization failed: %w", err)
	}
	if result.Skipped {
		c.io.Println("Another sync pass is already running.")
		return nil
	}

	c.io.Println()
	c.io.Printf("Processed: %d\n", result.Processed)
	c.io.Printf("Succeeded: %d\n", result.Succeeded)
	if result.Retried > 0 {
		c.io.Printf("Will retry: %d\n", result.Retried)
	}
	if result.Dropped > 0 {
		c.io.Printf("Dropped after %d failures: %d\n", clientsync.MaxRetries+1, result.Dropped)
	}
	return nil
}

func (c *Cli) newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connectivity and local data statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := c.engine.Transfer.Stats(cmd.Context())
			if err != nil {
				return err
			}

			c.io.Println("=== Status ===")
			c.io.Println()
			switch {
			case c.backend == nil:
				c.io.Println("Server:    not configured")
			case c.engine.Monitor.IsOnline():
				c.io.Printf("Server:    %s (online)\n", c.cfg.ServerURL)
			default:
				c.io.Printf("Server:    %s (offline)\n", c.cfg.ServerURL)
			}
			c.io.Printf("Database:  %s (%s)\n", c.cfg.DBPath, c.cfg.StoreDriver)
			c.io.Println()
			c.io.Printf("Materials: %d (%d unsynced)\n", stats.TotalMaterials, stats.UnsyncedMaterials)
			c.io.Printf("Folders:   %d (%d unsynced)\n", stats.TotalFolders, stats.UnsyncedFolders)
			c.io.Printf("Queue:     %d\n", stats.QueueSize)
			c.io.Printf("Cache:     %d\n", stats.CacheSize)
			return nil
		},
	}
}

func (c *Cli) newWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run connectivity monitoring, periodic sync and cache sweeps until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.runWatch(ctx)
		},
	}
}

func (c *Cli) runWatch(ctx context.Context) error {
	unsubscribe := c.engine.Bus.Subscribe(c.printEvent)
	defer unsubscribe()

	var drainer scheduler.Drainer
	if c.engine.Sync != nil {
		drainer = c.engine.Sync
	}
	sched := scheduler.New(scheduler.Config{
		SweepInterval: c.cfg.CacheSweepInterval,
		SyncInterval:  c.cfg.SyncInterval,
	}, c.engine.Cache, drainer, c.engine.Monitor, c.logger)

	c.io.Println("Watching... press Ctrl+C to stop.")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Run(ctx)
	})
	if c.backend != nil && c.cfg.OnlineCheckInterval > 0 {
		g.Go(func() error {
			return c.engine.Monitor.Run(ctx, c.cfg.OnlineCheckInterval)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	c.io.Println("Stopped.")
	return nil
}

func (c *Cli) printEvent(e events.Event) {
	switch ev := e.(type) {
	case events.Online:
		c.io.Println("● online")
	case events.Offline:
		c.io.Println("○ offline")
	case events.SyncCompleted:
		if ev.Processed > 0 {
			c.io.Printf("✓ sync: %d processed, %d succeeded, %d retried, %d dropped\n",
				ev.Processed, ev.Succeeded, ev.Retried, ev.Dropped)
		}
	case events.SyncFailed:
		c.io.Printf("✗ dropped %s %s: %v\n", ev.Item.Action, ev.Item.Table, ev.Err)
	case events.SyncError:
		c.io.Printf("✗ sync aborted: %v\n", ev.Err)
	}
}
