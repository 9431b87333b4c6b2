package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/problemradar/problem-radar/internal/analysis"
	"github.com/problemradar/problem-radar/internal/config"
	"github.com/problemradar/problem-radar/internal/discovery"
	"github.com/problemradar/problem-radar/internal/models"
	"github.com/problemradar/problem-radar/internal/problems"
	"github.com/problemradar/problem-radar/internal/query"
	"github.com/problemradar/problem-radar/internal/sources"
	"github.com/problemradar/problem-radar/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var cfg *config.Config

func main() {
	var keywords []string
	var window time.Duration

	rootCmd := &cobra.Command{
		Use:   "probe-sources",
		Short: "Check connectivity of every configured community source",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil {
				logrus.Info("No .env file found, using system environment variables")
			}
			var err error
			if cfg, err = config.Load(); err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if cfg.Debug {
				logrus.SetLevel(logrus.DebugLevel)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(keywords) == 0 {
				keywords = cfg.Keywords
			}

			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			fmt.Println("Problem Radar - source connectivity check")
			fmt.Println(strings.Repeat("-", 44))

			failed := 0
			for _, source := range sources.FromConfig(cfg) {
				if !probe(ctx, source, keywords, window) {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d sources failed", failed)
			}
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.Flags().StringSliceVar(&keywords, "keywords", nil, "Keywords to search for (default: KEYWORDS)")
	rootCmd.Flags().DurationVar(&window, "window", 24*time.Hour, "How far back to look")
	rootCmd.AddCommand(discoverCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func probe(ctx context.Context, source sources.Source, keywords []string, window time.Duration) bool {
	fmt.Printf("%-28s ", source.GetName())

	if !source.IsEnabled() {
		fmt.Println("DISABLED (missing credentials)")
		return true
	}

	posts, err := source.FetchPosts(ctx, keywords, window)
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		return false
	}

	fmt.Printf("OK (%d posts)\n", len(posts))
	if len(posts) > 0 {
		fmt.Printf("    Sample: %q\n", posts[0].Title)
	}
	return true
}

// consoleNotifier prints notifications and digests to the terminal
type consoleNotifier struct{}

func (consoleNotifier) Notify(n *models.Notification) error {
	fmt.Printf("\n[%s] %s: %s\n", n.Severity, n.Title, n.Message)
	return nil
}

func (consoleNotifier) SendDigest(digest *models.Digest) error {
	fmt.Printf("\nDigest for %q: %d problems\n", digest.Alert.Name, len(digest.Problems))
	return nil
}

func discoverCmd() *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Run one discovery pass and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			var store storage.StorageInterface
			var err error
			if cfg.StorageBackend == "azure" {
				store, err = storage.NewAzureStorage(cfg.StorageAccount, cfg.StorageContainer)
			} else {
				store, err = storage.NewLocalStorage(cfg.LocalStorageDir)
			}
			if err != nil {
				return fmt.Errorf("failed to initialize storage: %w", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			catalog := problems.NewCatalog(problems.Bootstrap(ctx, store, nil, ""))
			service := discovery.NewService(cfg, store, catalog, analysis.New(cfg), consoleNotifier{})

			newCount, err := service.Run(ctx)
			if err != nil {
				return err
			}

			fmt.Println("\n" + strings.Repeat("=", 60))
			fmt.Println("DISCOVERY RUN")
			fmt.Println(strings.Repeat("=", 60))
			fmt.Println(service.GetMetrics())

			if newCount == 0 {
				return nil
			}

			urgent := query.Engine{Thresholds: cfg.FilterThresholds()}.
				Run(catalog.GetAll(), query.FilterSpec{}, query.SortUrgency)
			fmt.Printf("\nMost urgent problems:\n")
			for i, p := range urgent {
				if i >= top {
					break
				}
				fmt.Printf("  %d. [%d] %s (%s, %s)\n", i+1, p.UrgencyScore, p.Title, p.SourceName, p.Category)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&top, "top", 5, "How many of the most urgent problems to print")
	return cmd
}
