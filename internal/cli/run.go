package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/issuelens/internal/collect"
	"github.com/dshills/issuelens/internal/config"
	"github.com/dshills/issuelens/internal/github"
	"github.com/dshills/issuelens/internal/output"
	"github.com/dshills/issuelens/internal/providers"
	"github.com/dshills/issuelens/internal/report"
	"github.com/dshills/issuelens/internal/retry"
	"github.com/dshills/issuelens/internal/summarize"
	"github.com/dshills/issuelens/internal/triage"
)

// Run flags
var (
	flagToken       string
	flagProvider    string
	flagModel       string
	flagFormat      string
	flagOut         string
	flagOutDir      string
	flagLimit       int
	flagConcurrency int
	flagRules       string
	flagRefresh     bool
	flagOffline     bool
	flagNoFiles     bool
)

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagToken, "token", "", "GitHub token (default: GH_TOKEN or GITHUB_TOKEN)")
	cmd.Flags().StringVar(&flagProvider, "provider", "", "LLM provider (deepseek, openai, ollama)")
	cmd.Flags().StringVar(&flagModel, "model", "", "Model name")
	cmd.Flags().StringVar(&flagFormat, "format", "", "Console format (text, json, markdown)")
	cmd.Flags().StringVar(&flagOut, "out", "", "Write the console report to a file instead of stdout")
	cmd.Flags().StringVar(&flagOutDir, "out-dir", "", "Directory for summary.md and filtered_issues.json")
	cmd.Flags().IntVar(&flagLimit, "limit", 0, "Maximum number of issues to summarize")
	cmd.Flags().IntVar(&flagConcurrency, "concurrency", 0, "Maximum concurrent LLM calls")
	cmd.Flags().StringVar(&flagRules, "rules", "", "Triage rules file (JSON)")
	cmd.Flags().BoolVar(&flagRefresh, "refresh", false, "Ignore cached issues and summaries")
	cmd.Flags().BoolVar(&flagOffline, "offline", false, "Skip the LLM; use cached or excerpt summaries")
	cmd.Flags().BoolVar(&flagNoFiles, "no-files", false, "Do not write report files")
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagToken != "" {
		m["github.token"] = flagToken
	}
	if flagProvider != "" {
		m["llm.provider"] = flagProvider
	}
	if flagModel != "" {
		m["llm.model"] = flagModel
	}
	if flagFormat != "" {
		m["output.format"] = flagFormat
	}
	if flagOutDir != "" {
		m["output.dir"] = flagOutDir
	}
	if flagLimit > 0 {
		m["output.summaryLimit"] = strconv.Itoa(flagLimit)
	}
	if flagConcurrency > 0 {
		m["llm.concurrency"] = strconv.Itoa(flagConcurrency)
	}
	if flagRules != "" {
		m["triage.rulesFile"] = flagRules
	}
	if flagLogLevel != "" {
		m["logLevel"] = flagLogLevel
	}
	return m
}

// resolveRepo takes owner/repo from the argument or from the git remote.
func resolveRepo(args []string) (owner, repo string, err error) {
	if len(args) > 0 {
		return github.ParseRepo(args[0])
	}
	return github.DetectRepo()
}

// loadClassifier layers the rules file and the keyword settings over the
// built-in rules.
func loadClassifier(cfg config.Config) (*triage.Classifier, error) {
	fileRules, err := triage.LoadRules(cfg.Triage.RulesFile)
	if err != nil {
		return nil, err
	}
	rules := triage.DefaultRules().Merge(fileRules).Merge(&triage.Rules{
		DoneKeywords: cfg.Triage.DoneKeywords,
		NoiseLabels:  cfg.Triage.NoiseLabels,
	})
	return triage.Compile(rules)
}

func loadPrompt(cfg config.Config) (string, error) {
	if cfg.LLM.PromptFile == "" {
		return summarize.DefaultPromptTemplate, nil
	}
	data, err := os.ReadFile(cfg.LLM.PromptFile)
	if err != nil {
		return "", fmt.Errorf("reading prompt file: %w", err)
	}
	return string(data), nil
}

type pipelineOptions struct {
	Refresh bool
	Offline bool
}

// runPipeline fetches, triages and summarizes the open issues of owner/repo.
func runPipeline(ctx context.Context, cfg config.Config, owner, repo string, opts pipelineOptions) (*report.Report, error) {
	start := time.Now()
	log := slog.Default().With("repo", owner+"/"+repo)

	classifier, err := loadClassifier(cfg)
	if err != nil {
		return nil, err
	}
	prompt, err := loadPrompt(cfg)
	if err != nil {
		return nil, err
	}

	var completer providers.Completer
	if !opts.Offline {
		completer, err = newCompleter(cfg)
		if err != nil {
			return nil, retry.New(retry.KindAuth, fmt.Errorf("%w (use --offline to skip summaries)", err))
		}
	}

	c, err := openCache(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	client := github.NewClient(github.Options{
		Token:             cfg.GitHub.Token,
		APIURL:            cfg.GitHub.APIURL,
		MaxItems:          cfg.GitHub.MaxItems,
		RequestsPerSecond: cfg.GitHub.RequestsPerSecond,
		Logger:            log,
	})
	collector := collect.New(client, c, collect.Options{
		Token:        cfg.GitHub.Token,
		IssuesTTL:    cfg.Cache.IssuesTTL(),
		ForceRefresh: opts.Refresh,
		Logger:       log,
	})
	fetched, err := collector.Issues(ctx, owner, repo)
	if err != nil {
		return nil, err
	}
	fetchDone := time.Now()

	filtered := classifier.Apply(fetched.Issues)
	log.Info("triaged issues", "open", len(fetched.Issues), "kept", len(filtered))

	policy := retry.DefaultPolicy()
	policy.MaxAttempts = cfg.LLM.MaxRetries
	summarizer := summarize.New(c, completer, summarize.Options{
		Model:          cfg.LLM.Model,
		PromptTemplate: prompt,
		TTL:            cfg.Cache.DefaultTTL(),
		Concurrency:    cfg.LLM.Concurrency,
		BatchSize:      cfg.LLM.BatchSize,
		ForceRefresh:   opts.Refresh,
		Policy:         policy,
		Logger:         log,
	})
	head := filtered[:min(cfg.Output.SummaryLimit, len(filtered))]
	summaries, err := summarizer.SummarizeBatch(ctx, head)
	if err != nil {
		return nil, err
	}
	if n := summarizer.Degradations.Total(); n > 0 {
		log.Warn("some summaries fell back to excerpts", "count", n, "reasons", summarizer.Degradations.Snapshot())
	}

	stats, err := c.Stats(ctx)
	if err != nil {
		return nil, err
	}

	end := time.Now()
	return report.Build(report.Input{
		Version:      version,
		Repo:         owner + "/" + repo,
		Now:          end,
		Offline:      opts.Offline,
		FromCache:    fetched.Cached,
		Issues:       filtered,
		Summaries:    summaries,
		SummaryLimit: cfg.Output.SummaryLimit,
		Degradations: summarizer.Degradations.Snapshot(),
		Cache:        &stats,
		Timing: report.Timing{
			FetchMs:     fetchDone.Sub(start).Milliseconds(),
			SummarizeMs: end.Sub(fetchDone).Milliseconds(),
			TotalMs:     end.Sub(start).Milliseconds(),
		},
	}), nil
}

var runCmd = &cobra.Command{
	Use:   "run [owner/repo]",
	Short: "Summarize the open issues of a repository",
	Long: "Fetch the open issues of owner/repo (or of the origin remote), drop the ones " +
		"that need no attention, summarize the rest, and write the report.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(buildOverrides())
		if err != nil {
			return err
		}
		owner, repo, err := resolveRepo(args)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\nPass the repository as owner/repo.\n", err)
			exitCode = ExitUsageError
			return nil
		}

		rep, err := runPipeline(cmd.Context(), cfg, owner, repo, pipelineOptions{
			Refresh: flagRefresh,
			Offline: flagOffline,
		})
		if err != nil {
			fail(err)
			return nil
		}

		if err := output.WriteReport(rep, cfg.Output.Format, flagOut); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		if !flagNoFiles {
			paths, err := output.WriteFiles(rep, cfg.Output.Dir)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error writing report files: %v\n", err)
				exitCode = ExitRuntimeError
				return nil
			}
			slog.Info("report written", "files", paths, "run_id", rep.RunID)
		}
		return nil
	},
}

func init() {
	addRunFlags(runCmd)
}
