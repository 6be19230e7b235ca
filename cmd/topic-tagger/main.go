package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kevinmichaelchen/topic-tagger/internal/clone"
	"github.com/kevinmichaelchen/topic-tagger/internal/config"
	"github.com/kevinmichaelchen/topic-tagger/internal/github"
	"github.com/kevinmichaelchen/topic-tagger/internal/llm"
	"github.com/kevinmichaelchen/topic-tagger/internal/logging"
	"github.com/kevinmichaelchen/topic-tagger/internal/pipeline"
	"github.com/kevinmichaelchen/topic-tagger/internal/sampler"
)

type rootFlags struct {
	onlyPublic   bool
	onlyUntagged bool
	dryRun       bool
	concurrency  int
	logLevel     string
	logFormat    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	// Restore default signal handling so a second Ctrl-C kills the process
	// while clones are being cleaned up.
	go func() {
		<-ctx.Done()
		stop()
	}()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "topic-tagger",
		Short:         "Infer GitHub topics for your repositories with an LLM and apply them",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTag(cmd.Context(), flags)
		},
	}

	pf := root.PersistentFlags()
	pf.BoolVar(&flags.onlyPublic, "only-public", false, "Only process public repositories")
	pf.BoolVar(&flags.onlyUntagged, "only-untagged", false, "Only process repositories with no topics")
	pf.StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&flags.logFormat, "log-format", string(logging.FormatConsole), "Log format (console, structured)")

	root.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Suggest topics without updating GitHub")
	root.Flags().IntVar(&flags.concurrency, "concurrency", 1, "Number of repositories processed at once")

	root.AddCommand(listCmd(flags))
	return root
}

func listCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show which repositories would be processed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger, cfg, err := setup(flags)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			gh, err := github.NewClient(ctx, cfg.GitHubToken, cfg.GitHubUsername, cfg.GitHubAPIURL, logger)
			if err != nil {
				return err
			}
			repos, err := gh.ListRepos(ctx, github.ListOptions{
				OnlyPublic:   flags.onlyPublic,
				OnlyUntagged: flags.onlyUntagged,
			})
			if err != nil {
				logger.Error("listing repositories failed", zap.Error(err))
				return err
			}

			out := cmd.OutOrStdout()
			for _, r := range repos {
				topics := "-"
				if len(r.Topics) > 0 {
					topics = strings.Join(r.Topics, ", ")
				}
				_, _ = fmt.Fprintf(out, "%-40s %-8s %s\n", r.FullName, r.Visibility, topics)
			}
			return nil
		},
	}
}

func runTag(ctx context.Context, flags *rootFlags) error {
	logger, cfg, err := setup(flags)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	gh, err := github.NewClient(ctx, cfg.GitHubToken, cfg.GitHubUsername, cfg.GitHubAPIURL, logger)
	if err != nil {
		return err
	}

	p := &pipeline.Pipeline{
		Lister:  gh,
		Fetcher: clone.NewFetcher(cfg.GitHubUsername, cfg.GitHubToken, logger),
		Sampler: sampler.New(sampler.Limits{
			MaxFiles:      cfg.SampleMaxFiles,
			MaxFileBytes:  cfg.SampleMaxFileBytes,
			MaxTotalBytes: cfg.SampleMaxTotalBytes,
		}),
		Inferencer: llm.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel),
		Publisher:  gh,
		Logger:     logger,
	}

	report, err := p.Run(ctx, pipeline.Options{
		OnlyPublic:   flags.onlyPublic,
		OnlyUntagged: flags.onlyUntagged,
		DryRun:       flags.dryRun,
		Concurrency:  flags.concurrency,
	})
	if report != nil {
		report.Log(logger)
	}
	if err != nil {
		logger.Error("run aborted", zap.Error(err))
		return err
	}
	return nil
}

// setup builds the logger and loads configuration. Configuration errors are
// reported through the logger before any repository is touched.
func setup(flags *rootFlags) (*zap.Logger, *config.Config, error) {
	logger, err := logging.New(flags.logLevel, logging.Format(flags.logFormat))
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		return nil, nil, err
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		_ = logger.Sync()
		return nil, nil, err
	}
	return logger, cfg, nil
}
