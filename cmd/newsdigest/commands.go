package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kalambet/newsdigest/internal/analyze"
	"github.com/kalambet/newsdigest/internal/classify"
	"github.com/kalambet/newsdigest/internal/config"
	"github.com/kalambet/newsdigest/internal/extract"
	"github.com/kalambet/newsdigest/internal/feed"
	"github.com/kalambet/newsdigest/internal/llm"
	"github.com/kalambet/newsdigest/internal/pipeline"
	"github.com/kalambet/newsdigest/internal/report"
	"github.com/kalambet/newsdigest/internal/storage"
)

var (
	dryRun       bool
	historyDays  int
	historyLimit int
	initForce    bool
	topicDesc    string
	topicKeys    []string
	topicPrio    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch all sources, classify new items and write the daily report",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		var (
			matcher   pipeline.Matcher
			analyzer  pipeline.ItemAnalyzer
			extractor pipeline.ContentExtractor
		)
		if dryRun {
			printStep("Dry run: keyword matching only, no network calls to the classifier")
			matcher = classify.NewKeywordMatcher()
			analyzer = analyze.Offline{}
		} else {
			// Credential check happens before anything is fetched so a
			// misconfigured environment never burns a partial run.
			client, err := llm.NewFromEnv(cfg.Classifier.Provider)
			if err != nil {
				return err
			}
			matcher = classify.NewClassifier(client, cfg.Classifier.Model, cfg.Classifier.RelevanceThreshold)
			analyzer = analyze.NewAnalyzer(client, cfg.Classifier.Model)
			extractor = extract.NewExtractor(0)
		}

		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer store.Close()

		reporter := &runReporter{
			terminal: cfg.Output.Terminal,
			writer:   report.NewWriter(cfg.Output.ReportsDir),
		}

		printStep("Fetching %d sources", len(cfg.Sources))
		p := pipeline.New(cfg, feed.NewFetcher(0), store, matcher, extractor, analyzer, reporter)
		stats, err := p.Run(cmd.Context())
		if err != nil {
			return err
		}
		printSuccess("Run complete: %s", summaryLine(stats))
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently processed items",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer store.Close()

		articles, err := store.RecentHistory(historyDays, historyLimit)
		if err != nil {
			return err
		}
		if len(articles) == 0 {
			printWarning("No items processed in the last %d days", historyDays)
			return nil
		}
		for _, a := range articles {
			topic := a.MatchedTopic
			if topic == "" {
				topic = colorize(colorDim, "unmatched")
			} else {
				topic = colorize(colorCyan, topic)
			}
			fmt.Printf("%s  %s  %s\n  %s\n",
				a.CreatedAt.Local().Format("2006-01-02 15:04"), topic, a.Title,
				colorize(colorDim, a.URL))
		}
		total, err := store.CountProcessed()
		if err != nil {
			return err
		}
		fmt.Printf("\n%d shown, %d in ledger total\n", len(articles), total)

		runs, err := store.RecentRuns(5)
		if err != nil {
			return err
		}
		if len(runs) > 0 {
			fmt.Println(colorize(colorBold, "\nRecent runs"))
			for _, r := range runs {
				fmt.Printf("%s  %d fetched, %d new, %d matched\n",
					r.StartedAt.Local().Format("2006-01-02 15:04"),
					r.TotalFetched, r.NewCount, r.MatchedCount)
			}
		}
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if config.Exists() && !initForce {
			printWarning("Config already exists at %s (use --force to overwrite)", config.Path())
			return nil
		}
		if err := config.Save(config.Default()); err != nil {
			return err
		}
		printSuccess("Wrote %s", config.Path())
		printStep("Add feeds with `newsdigest feeds add <name> <url>` and topics with `newsdigest topics add <name>`")
		return nil
	},
}

var feedsCmd = &cobra.Command{
	Use:   "feeds",
	Short: "Manage feed subscriptions",
}

var feedsAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Subscribe to a feed",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.AddSource(args[0], args[1]); err != nil {
			return err
		}
		printSuccess("Added feed %q", args[0])
		return nil
	},
}

var feedsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List subscribed feeds",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if len(cfg.Sources) == 0 {
			printWarning("No feeds configured")
			return nil
		}
		for _, s := range cfg.Sources {
			fmt.Printf("%s\n  %s\n", colorize(colorBold, s.Name), colorize(colorDim, s.URL))
		}
		return nil
	},
}

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Manage classification topics",
}

var topicsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a topic of interest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t := config.Topic{
			Name:        args[0],
			Description: topicDesc,
			Keywords:    topicKeys,
			Priority:    topicPrio,
		}
		if err := config.AddTopic(t); err != nil {
			return err
		}
		printSuccess("Added topic %q", args[0])
		return nil
	},
}

var topicsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured topics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if len(cfg.Topics) == 0 {
			printWarning("No topics configured")
			return nil
		}
		for _, t := range cfg.Topics {
			fmt.Printf("%s %s\n", priorityTag(t.Priority), colorize(colorBold, t.Name))
			if t.Description != "" {
				fmt.Printf("  %s\n", t.Description)
			}
			if len(t.Keywords) > 0 {
				fmt.Printf("  keywords: %s\n", colorize(colorDim, strings.Join(t.Keywords, ", ")))
			}
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		fmt.Printf("# %s\n%s", config.Path(), out)
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "keyword matching only, skip the classification service")

	historyCmd.Flags().IntVar(&historyDays, "days", 7, "look-back window in days")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "maximum items to show")

	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config")

	topicsAddCmd.Flags().StringVar(&topicDesc, "description", "", "what this topic covers, used as classification context")
	topicsAddCmd.Flags().StringSliceVar(&topicKeys, "keywords", nil, "keywords used by --dry-run matching")
	topicsAddCmd.Flags().StringVar(&topicPrio, "priority", config.PriorityMedium, "high, medium or low")

	feedsCmd.AddCommand(feedsAddCmd, feedsListCmd)
	topicsCmd.AddCommand(topicsAddCmd, topicsListCmd)
	configCmd.AddCommand(configShowCmd)
}
