// PageWatch — web page change monitor
//
// Usage:
//
//	pagewatch add URL        # start tracking a page
//	pagewatch list           # list tracked pages
//	pagewatch check          # run one scan over all enabled pages
//	pagewatch serve          # scan on an interval, optionally with the API
//	pagewatch show ID        # write the before/after comparison page
//	pagewatch badge ID       # render a status badge PNG
//	pagewatch version        # print version
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mchen/pagewatch/internal/api"
	"github.com/mchen/pagewatch/internal/tracker"
	"github.com/mchen/pagewatch/pkg/badge"
	"github.com/mchen/pagewatch/pkg/config"
	"github.com/mchen/pagewatch/pkg/notify"
	"github.com/mchen/pagewatch/pkg/scraper"
	"github.com/mchen/pagewatch/pkg/storage"
)

var version = "dev"

const defaultConfigPath = "pagewatch.yaml"

// appConfig is the on-disk configuration, loaded from pagewatch.yaml with
// env overrides.
type appConfig struct {
	Database storage.Config `yaml:"database"`
	Scan     scanConfig     `yaml:"scan"`
	Notify   notifyConfig   `yaml:"notify"`
	API      apiConfig      `yaml:"api"`
}

type scanConfig struct {
	Interval config.Duration `yaml:"interval" env:"PAGEWATCH_INTERVAL"`
}

type notifyConfig struct {
	Telegram notify.TelegramConfig `yaml:"telegram"`
	Email    notify.EmailConfig    `yaml:"email"`
	Webhook  notify.WebhookConfig  `yaml:"webhook"`
}

type apiConfig struct {
	Listen    string `yaml:"listen" env:"PAGEWATCH_LISTEN"`
	JWTSecret string `yaml:"jwt_secret" env:"PAGEWATCH_JWT_SECRET"`
}

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "pagewatch",
		Short: "Web page change monitor",
		Long:  "PageWatch tracks web pages, detects content changes against an adaptive distance threshold, and renders highlighted before/after views.",
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "config file path")

	rootCmd.AddCommand(addCmd(&configPath))
	rootCmd.AddCommand(listCmd(&configPath))
	rootCmd.AddCommand(removeCmd(&configPath))
	rootCmd.AddCommand(checkCmd(&configPath))
	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(showCmd(&configPath))
	rootCmd.AddCommand(badgeCmd(&configPath))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(path string) (appConfig, error) {
	var cfg appConfig
	if err := config.LoadOrDefault(path, &cfg); err != nil {
		return cfg, err
	}
	if cfg.Scan.Interval == 0 {
		cfg.Scan.Interval = config.Duration(6 * time.Hour)
	}
	return cfg, nil
}

func openStore(cfg appConfig) (*storage.DB, *tracker.Store, error) {
	db, err := storage.Open(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	store := tracker.NewStore(db)
	if err := store.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, store, nil
}

func buildDispatcher(cfg appConfig) (*notify.Dispatcher, []notify.Channel) {
	dispatcher := notify.NewDispatcher()
	var channels []notify.Channel
	if cfg.Notify.Telegram.BotToken != "" {
		dispatcher.Register(notify.NewTelegramNotifier(cfg.Notify.Telegram))
		channels = append(channels, notify.ChannelTelegram)
	}
	if cfg.Notify.Email.SMTPHost != "" {
		dispatcher.Register(notify.NewEmailNotifier(cfg.Notify.Email))
		channels = append(channels, notify.ChannelEmail)
	}
	if cfg.Notify.Webhook.URL != "" {
		dispatcher.Register(notify.NewWebhookNotifier(cfg.Notify.Webhook))
		channels = append(channels, notify.ChannelWebhook)
	}
	return dispatcher, channels
}

func addCmd(configPath *string) *cobra.Command {
	var name, color string
	var threshold int
	var every time.Duration

	cmd := &cobra.Command{
		Use:   "add URL",
		Short: "Start tracking a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			db, store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			vr := tracker.ValidateURL(ctx, args[0])
			if !vr.Valid {
				return fmt.Errorf("❌ %s", vr.Error)
			}
			if vr.Error != "" {
				fmt.Printf("⚠️  %s\n", vr.Error)
			}

			id, err := store.AddTarget(ctx, tracker.Target{
				Name:         name,
				URL:          vr.URL,
				Threshold:    threshold,
				Color:        color,
				IntervalSecs: int(every.Seconds()),
			})
			if err != nil {
				return fmt.Errorf("add target: %w", err)
			}
			fmt.Printf("✅ Tracking %s (id %d)\n", vr.URL, id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "display name (defaults to the host)")
	cmd.Flags().IntVarP(&threshold, "threshold", "t", 0, "change distance threshold (default 100)")
	cmd.Flags().StringVar(&color, "color", "", "highlight color (default #ffff66)")
	cmd.Flags().DurationVar(&every, "every", 0, "per-target scan interval (default: every scan round)")
	return cmd
}

func listCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tracked pages",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			db, store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			targets, err := store.ListTargets(context.Background())
			if err != nil {
				return err
			}
			if len(targets) == 0 {
				fmt.Println("No tracked pages yet. Add one with `pagewatch add URL`.")
				return nil
			}

			fmt.Printf("Tracked pages (%d):\n\n", len(targets))
			for _, t := range targets {
				state := "enabled"
				if !t.Enabled {
					state = "paused"
				}
				fmt.Printf("  %d. %s [%s, threshold %d]\n     %s\n", t.ID, t.Name, state, t.Threshold, t.URL)
				if t.LastChangedAt != nil {
					fmt.Printf("     last change: %s\n", t.LastChangedAt.Format(time.RFC3339))
				}
				fmt.Println()
			}
			return nil
		},
	}
}

func removeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "remove ID",
		Short: "Stop tracking a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid id: %s", args[0])
			}
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			db, store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := store.RemoveTarget(context.Background(), id); err != nil {
				return err
			}
			fmt.Printf("✅ Removed target %d\n", id)
			return nil
		},
	}
}

func checkCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run one scan over all enabled pages",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			db, store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			return runScan(context.Background(), cfg, store)
		},
	}
}

func runScan(ctx context.Context, cfg appConfig, store *tracker.Store) error {
	dispatcher, channels := buildDispatcher(cfg)
	scanner := tracker.NewScanner(store, scraper.NewHTTPFetcher(), dispatcher, channels)

	events, err := scanner.ScanAll(ctx)
	if err != nil {
		return err
	}
	for _, ev := range events {
		fmt.Printf("🔔 %s changed (distance %d)\n   %s\n", ev.Target.Name, ev.Distance, ev.Target.URL)
	}
	if len(events) == 0 {
		fmt.Println("✅ No changes detected.")
	}
	return nil
}

func serveCmd(configPath *string) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Scan on an interval, optionally serving the REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if interval > 0 {
				cfg.Scan.Interval = config.Duration(interval)
			}
			db, store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			return serve(cfg, db, store)
		},
	}

	cmd.Flags().DurationVarP(&interval, "interval", "i", 0, "scan interval (overrides config)")
	return cmd
}

func serve(cfg appConfig, db *storage.DB, store *tracker.Store) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutdown signal received")
		cancel()
	}()

	var srv *http.Server
	if cfg.API.Listen != "" {
		users := api.NewUserStore(db)
		if err := users.Migrate(ctx); err != nil {
			return err
		}
		dispatcher, channels := buildDispatcher(cfg)
		scanner := tracker.NewScanner(store, scraper.NewHTTPFetcher(), dispatcher, channels)
		srv = &http.Server{
			Addr:    cfg.API.Listen,
			Handler: api.NewServer(users, store, scanner, cfg.API.JWTSecret).Routes(),
		}
		go func() {
			slog.Info("API listening", "addr", cfg.API.Listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("API server failed", "error", err)
				cancel()
			}
		}()
	}

	slog.Info("PageWatch serving", "interval", cfg.Scan.Interval.Std())

	// Run once immediately, then on the ticker.
	if err := runScan(ctx, cfg, store); err != nil {
		slog.Error("scan failed", "error", err)
	}

	ticker := time.NewTicker(cfg.Scan.Interval.Std())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if srv != nil {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				srv.Shutdown(shutdownCtx)
			}
			return nil
		case <-ticker.C:
			if err := runScan(ctx, cfg, store); err != nil {
				slog.Error("scan failed", "error", err)
			}
		}
	}
}

func showCmd(configPath *string) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Write the before/after comparison page for a target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid id: %s", args[0])
			}
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			db, store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := context.Background()
			target, err := store.GetTarget(ctx, id)
			if err != nil {
				return err
			}
			if target == nil {
				return fmt.Errorf("unknown target %d", id)
			}
			cur, err := store.GetSnapshot(ctx, id, tracker.SnapCurrent)
			if err != nil {
				return err
			}
			if cur == nil {
				return fmt.Errorf("no snapshot captured yet, run `pagewatch check` first")
			}
			var oldHTML string
			if prev, _ := store.GetSnapshot(ctx, id, tracker.SnapPrevious); prev != nil {
				oldHTML = prev.HTML
			}

			page := tracker.ComparisonPage(target.Name, tracker.RenderComparison(oldHTML, cur.HTML, target.Color, ""))
			if outPath == "" {
				fmt.Println(page)
				return nil
			}
			if err := os.WriteFile(outPath, []byte(page), 0o644); err != nil {
				return err
			}
			fmt.Printf("✅ Wrote %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (stdout when omitted)")
	return cmd
}

func badgeCmd(configPath *string) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "badge ID",
		Short: "Render a status badge PNG for a target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid id: %s", args[0])
			}
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			db, store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := context.Background()
			target, err := store.GetTarget(ctx, id)
			if err != nil {
				return err
			}
			if target == nil {
				return fmt.Errorf("unknown target %d", id)
			}

			status := badge.StatusUnchanged
			distance := 0
			if timeline, err := store.ChangeTimeline(ctx, id); err == nil && len(timeline) > 0 {
				status = badge.StatusChanged
				distance = timeline[0].Distance
			}
			if target.LastError != "" {
				status = badge.StatusError
			}

			if outPath == "" {
				outPath = fmt.Sprintf("pagewatch-badge-%d.png", id)
			}
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer f.Close()

			if err := badge.NewRenderer().Render(f, target.Name, status, distance); err != nil {
				return err
			}
			fmt.Printf("✅ Wrote %s\n", outPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("pagewatch %s\n", version)
		},
	}
}
