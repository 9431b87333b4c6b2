package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/joho/godotenv"
	"github.com/problemradar/problem-radar/internal/config"
	"github.com/problemradar/problem-radar/internal/models"
	"github.com/problemradar/problem-radar/internal/problems"
	"github.com/problemradar/problem-radar/internal/query"
	"github.com/problemradar/problem-radar/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfg        *config.Config
	repo       problems.Repository
	engine     query.Engine
	classifier query.Classifier
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "search",
		Short: "Search the discovered problem dataset",
		Long: `Filter, sort and inspect the problems Problem Radar has discovered,
using the same dataset the server loads.`,
		PersistentPreRunE: initializeApp,
		SilenceUsage:      true,
	}

	rootCmd.AddCommand(findCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(relatedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initializeApp(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logrus.SetOutput(os.Stderr)
	logrus.SetLevel(logrus.WarnLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	var store storage.StorageInterface
	if cfg.StorageBackend == "azure" {
		store, err = storage.NewAzureStorage(cfg.StorageAccount, cfg.StorageContainer)
	} else {
		store, err = storage.NewLocalStorage(cfg.LocalStorageDir)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	repo = problems.Bootstrap(ctx, store, resty.New().SetTimeout(20*time.Second), cfg.SnapshotURL)

	engine = query.Engine{Thresholds: cfg.FilterThresholds()}
	classifier = query.Classifier{Thresholds: cfg.BadgeThresholds()}
	return nil
}

func findCmd() *cobra.Command {
	var category, platform, urgency, sortKey string
	var limit int

	cmd := &cobra.Command{
		Use:   "find [text]",
		Short: "List problems matching the filters",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := query.FilterSpec{Text: strings.Join(args, " ")}

			var err error
			if spec.Category, err = query.ParseCategoryFilter(category); err != nil {
				return err
			}
			if spec.Platform, err = query.ParsePlatformFilter(platform); err != nil {
				return err
			}
			if spec.Urgency, err = query.ParseUrgencyBand(urgency); err != nil {
				return err
			}
			key, err := query.ParseSortKey(sortKey)
			if err != nil {
				return err
			}

			results := engine.Run(repo.GetAll(), spec, key)

			fmt.Printf("\n=== Problems (%d) ===\n\n", len(results))
			for i, p := range results {
				if limit > 0 && i >= limit {
					fmt.Printf("... %d more\n", len(results)-limit)
					break
				}
				printSummary(p)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Filter by category (Business, Technical, Marketing, Financial, Productivity)")
	cmd.Flags().StringVar(&platform, "platform", "", "Filter by platform (Reddit, HackerNews, Forums)")
	cmd.Flags().StringVar(&urgency, "urgency", "", "Filter by urgency band (high, medium, low)")
	cmd.Flags().StringVar(&sortKey, "sort", "newest", "Sort by newest, urgency, engagement or potential")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum problems to show")

	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show a problem in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ok := repo.GetByID(args[0])
			if !ok {
				return fmt.Errorf("problem %s not found", args[0])
			}

			fmt.Printf("\n=== %s ===\n\n", p.Title)
			fmt.Printf("ID:        %s\n", p.ID)
			fmt.Printf("Source:    %s (%s)\n", p.SourceName, p.SourcePlatform)
			fmt.Printf("Category:  %s\n", p.Category)
			fmt.Printf("Urgency:   %d (%s)\n", p.UrgencyScore, classifier.UrgencyBadge(p.UrgencyScore))
			fmt.Printf("Potential: %d%%\n", p.BusinessPotential)
			fmt.Printf("Sentiment: %s\n", query.SentimentTone(p.Sentiment))
			fmt.Printf("Engagement: %d upvotes, %d comments, %d shares, %d views\n",
				p.Upvotes, p.Engagement.Comments, p.Engagement.Shares, p.Engagement.Views)
			fmt.Printf("Discovered: %s\n", p.DateDiscovered.Format(time.RFC1123))
			if p.PostedAt != nil {
				fmt.Printf("Posted:    %s\n", p.PostedAt.Format(time.RFC1123))
			}
			fmt.Printf("URL:       %s\n", p.SourceURL)
			fmt.Printf("Keywords:  %s\n", strings.Join(p.Keywords, ", "))
			fmt.Printf("\n%s\n", p.Description)

			a := p.AIAnalysis
			fmt.Printf("\n--- Analysis ---\n")
			fmt.Printf("Urgency:     %s\n", a.UrgencyReasoning)
			fmt.Printf("Opportunity: %s\n", a.MarketOpportunity)
			fmt.Printf("Audience:    %s\n", a.TargetAudience)
			for _, solution := range a.PotentialSolutions {
				fmt.Printf("  - %s\n", solution)
			}
			return nil
		},
	}
}

func relatedCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "related [id]",
		Short: "List problems in the same category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ok := repo.GetByID(args[0])
			if !ok {
				return fmt.Errorf("problem %s not found", args[0])
			}

			related := repo.GetRelated(p, limit)
			fmt.Printf("\n=== Related to %q (%d) ===\n\n", p.Title, len(related))
			for _, r := range related {
				printSummary(r)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 3, "Maximum related problems to show")
	return cmd
}

func printSummary(p models.Problem) {
	shown, more := query.SplitKeywords(p.Keywords, query.MaxShownKeywords)
	keywords := strings.Join(shown, ", ")
	if more > 0 {
		keywords += fmt.Sprintf(" +%d more", more)
	}

	fmt.Printf("[%s] %s | %s\n", p.ID, strings.ToUpper(string(classifier.UrgencyBadge(p.UrgencyScore))), p.Title)
	fmt.Printf("    %s | %s | urgency %d | potential %d%% | %d upvotes\n",
		p.SourceName, p.Category, p.UrgencyScore, p.BusinessPotential, p.Upvotes)
	fmt.Printf("    Keywords: %s\n\n", keywords)
}
