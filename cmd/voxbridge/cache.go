package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leonardotrapani/voxbridge/internal/cache"
	"github.com/leonardotrapani/voxbridge/internal/cacheserver"
	"github.com/leonardotrapani/voxbridge/internal/config"
	"github.com/leonardotrapani/voxbridge/internal/tui"
)

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect, clear or share saved translations",
	}

	cmd.AddCommand(cacheStatsCmd())
	cmd.AddCommand(cacheClearCmd())
	cmd.AddCommand(cacheServeCmd())

	return cmd
}

// openPersistent opens the on-disk tier the daemon uses. SQLite in WAL mode
// lets this run next to a live daemon.
func openPersistent(cfg *config.Config) (*cache.SQLite, string, error) {
	path, err := cfg.CacheDBPath()
	if err != nil {
		return nil, "", err
	}
	db, err := cache.OpenSQLite(path, cfg.ToSQLiteOptions())
	if err != nil {
		return nil, "", fmt.Errorf("failed to open cache: %w", err)
	}
	return db, path, nil
}

func cacheStatsCmd() *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show how many translations are saved and the most used ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			db, path, err := openPersistent(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			report, err := cacheReport(cmd, cfg, db, path, top)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tui.RenderCacheReport(report))
			return nil
		},
	}

	cmd.Flags().IntVar(&top, "top", 5, "number of most used translations to list")

	return cmd
}

func cacheReport(cmd *cobra.Command, cfg *config.Config, db *cache.SQLite, path string, top int) (tui.CacheReport, error) {
	ctx := cmd.Context()
	n, err := db.Count(ctx)
	if err != nil {
		return tui.CacheReport{}, fmt.Errorf("failed to count entries: %w", err)
	}
	report := tui.CacheReport{
		DBPath:   path,
		Saved:    n,
		Capacity: cfg.Cache.PersistentMaxEntries,
	}
	if top > 0 {
		report.MostUsed, err = db.Top(ctx, top)
		if err != nil {
			return tui.CacheReport{}, fmt.Errorf("failed to list entries: %w", err)
		}
	}
	if cfg.Cache.Remote.Enabled {
		report.RemoteURL = cfg.Cache.Remote.URL
	}
	return report, nil
}

func cacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every saved translation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			db, path, err := openPersistent(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			return clearCache(cmd, db, path)
		},
	}
}

func clearCache(cmd *cobra.Command, db *cache.SQLite, path string) error {
	n, err := db.Count(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to count entries: %w", err)
	}
	if err := db.Clear(cmd.Context()); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d saved translations from %s\n", n, path)
	return nil
}

func cacheServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Share this machine's saved translations over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if listen == "" {
				listen = cfg.Cache.Server.Listen
			}
			db, _, err := openPersistent(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			warnOpenServer(cmd.ErrOrStderr(), cfg.Cache.Server.Token)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := cacheserver.New(db, cfg.Cache.Server.Token)
			if err := cacheserver.ListenAndServe(ctx, listen, srv); err != nil {
				return err
			}
			log.Printf("Cache server: stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on (default from config)")

	return cmd
}

func warnOpenServer(w io.Writer, token string) {
	if token != "" {
		return
	}
	fmt.Fprintln(w, tui.StyleWarning.Render("cache.server.token is empty, anyone who can reach this address can read and write translations"))
}
