package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/issuelens/internal/cache"
	"github.com/dshills/issuelens/internal/config"
)

func openCache(ctx context.Context, cfg config.Config) (*cache.Cache, error) {
	c, err := cache.Open(ctx, cfg.Cache.Path, cache.Options{
		MaxMemoryItems:  cfg.Cache.MaxMemoryItems,
		CleanupInterval: cfg.Cache.CleanupInterval(),
		DefaultTTL:      cfg.Cache.DefaultTTL(),
		Logger:          slog.Default(),
	})
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return c, nil
}

// withCache runs fn against the configured cache and closes it afterwards.
func withCache(cmd *cobra.Command, fn func(ctx context.Context, c *cache.Cache) error) error {
	cfg, err := config.Load(nil)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	c, err := openCache(ctx, cfg)
	if err != nil {
		fail(err)
		return nil
	}
	defer c.Close()
	if err := fn(ctx, c); err != nil {
		fail(err)
	}
	return nil
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the issue and summary cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached issue list and summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(cmd, func(ctx context.Context, c *cache.Cache) error {
			if err := c.Clear(ctx); err != nil {
				return fmt.Errorf("clearing cache: %w", err)
			}
			fmt.Fprintln(os.Stdout, "Cache cleared.")
			return nil
		})
	},
}

var cacheShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(cmd, func(ctx context.Context, c *cache.Cache) error {
			stats, err := c.Stats(ctx)
			if err != nil {
				return fmt.Errorf("reading cache stats: %w", err)
			}
			data, err := json.MarshalIndent(stats, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, string(data))
			return nil
		})
	},
}

var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove expired entries now",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(cmd, func(ctx context.Context, c *cache.Cache) error {
			res, err := c.Sweep(ctx)
			if err != nil {
				return fmt.Errorf("sweeping cache: %w", err)
			}
			fmt.Fprintf(os.Stdout, "Removed %d expired rows (%d in memory).\n", res.Durable, res.Memory)
			return nil
		})
	},
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Remove a single cache entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCache(cmd, func(ctx context.Context, c *cache.Cache) error {
			if err := c.Delete(ctx, args[0]); err != nil {
				return fmt.Errorf("deleting %s: %w", args[0], err)
			}
			fmt.Fprintf(os.Stdout, "Deleted %s\n", args[0])
			return nil
		})
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheShowCmd)
	cacheCmd.AddCommand(cacheSweepCmd)
	cacheCmd.AddCommand(cacheDeleteCmd)
}
