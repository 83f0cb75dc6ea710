package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"labelord/pkg/fuzzy"
	"labelord/pkg/github"
	"labelord/pkg/labels"
)

type runOptions struct {
	templateRepo string
	pickTemplate bool
	dryRun       bool
	verbose      bool
	quiet        bool
	allRepos     bool
	concurrency  int
}

func newRunCmd(o *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run [update|replace]",
		Short: "Run labels processing",
		Long: `Reconcile the labels of the configured repositories against a specification.

The specification comes from --template-repo, then template-repo in the
configuration file, then its [labels] section.

MODES:
  update   create missing labels and fix names and colours (default)
  replace  like update, and delete labels missing from the specification

Examples:
  labelord run
  labelord run replace --dry-run --verbose
  labelord run update --template-repo octocat/labels --all-repos`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(labels.ModeUpdate), string(labels.ModeReplace)},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLabels(cmd, o, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.templateRepo, "template-repo", "r", "", "Repository which serves as labels template")
	flags.BoolVar(&opts.pickTemplate, "pick-template", false, "Pick the template repository interactively")
	flags.BoolVarP(&opts.dryRun, "dry-run", "d", false, "Proceed with just dry run")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Really exhaustive output")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "No output at all")
	flags.BoolVarP(&opts.allRepos, "all-repos", "a", false, "Run for all repositories available")
	flags.IntVar(&opts.concurrency, "concurrency", 0, "Repositories processed in parallel (default from config, else 1)")
	return cmd
}

func runLabels(cmd *cobra.Command, o *rootOptions, opts *runOptions, args []string) error {
	mode := labels.ModeUpdate
	if len(args) == 1 {
		parsed, err := labels.ParseMode(args[0])
		if err != nil {
			return err
		}
		mode = parsed
	}

	store, err := o.labelStore()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	desired, err := resolveLabels(ctx, o, store, opts)
	if err != nil {
		return err
	}
	repos, err := resolveRepos(ctx, o, store, opts)
	if err != nil {
		return err
	}

	strategy := labels.StrategyLive
	if opts.dryRun {
		strategy = labels.StrategyDryRun
	}
	concurrency := opts.concurrency
	if concurrency == 0 {
		concurrency = o.cfg.Concurrency
	}

	printer := labels.NewPrinter(cmd.OutOrStdout(), labels.PickVerbosity(opts.verbose, opts.quiet))
	sink := labels.EventSinkFunc(func(event labels.Event) {
		o.logger.Debug("label event",
			"operation", string(event.Operation),
			"outcome", string(event.Outcome),
			"repo", event.Repo,
			"label", event.Name,
		)
		printer.Record(event)
	})
	reconciler := labels.NewReconciler(store,
		labels.WithStrategy(strategy),
		labels.WithSink(sink),
		labels.WithConcurrency(concurrency),
		labels.WithLogger(o.logger),
	)

	summary, status := reconciler.Run(ctx, repos, desired, mode)
	printer.Summary(summary)
	logRateStats(o, store)

	if status != labels.ExitSuccess {
		return &ExitError{Code: int(status)}
	}
	return nil
}

// rateReporter is implemented by stores that pace their API calls
type rateReporter interface {
	RateStats() github.RateLimiterStats
}

func logRateStats(o *rootOptions, store labels.LabelStore) {
	reporter, ok := store.(rateReporter)
	if !ok {
		return
	}
	stats := reporter.RateStats()
	o.logger.Debug("github rate limit",
		"remaining", stats.RemainingRequests,
		"reset", stats.ResetTime,
		"waits", stats.TotalWaits,
		"delay", stats.TotalDelayTime,
	)
}

// resolveLabels picks the desired specification: the template repository
// from the flag or the picker, then the configured template repository,
// then the static [labels] section.
func resolveLabels(ctx context.Context, o *rootOptions, store labels.LabelStore, opts *runOptions) (labels.LabelSet, error) {
	template := opts.templateRepo
	if template == "" && opts.pickTemplate {
		picked, err := pickTemplate(ctx, o, store)
		if err != nil {
			return nil, err
		}
		template = picked
	}
	if template == "" {
		template = o.cfg.TemplateRepo
	}

	if template != "" {
		o.logger.Debug("using template repository", "repo", template)
		return store.ListLabels(ctx, template)
	}
	return o.cfg.StaticLabels()
}

var errPickTemplateNoTerminal = errors.New("--pick-template requires an interactive terminal")

func pickTemplate(ctx context.Context, o *rootOptions, store labels.LabelStore) (string, error) {
	if o.interactive == nil || !o.interactive() {
		return "", errPickTemplateNoTerminal
	}
	repos, err := store.ListRepositories(ctx)
	if err != nil {
		return "", err
	}
	if len(repos) == 0 {
		return "", fmt.Errorf("no repositories available to pick a template from")
	}
	return fuzzy.PickRepository(o.newPicker(""), "Template repository:", repos)
}

// resolveRepos returns every accessible repository for --all-repos, else
// the enabled repositories of the configuration.
func resolveRepos(ctx context.Context, o *rootOptions, store labels.LabelStore, opts *runOptions) ([]string, error) {
	if opts.allRepos {
		return store.ListRepositories(ctx)
	}
	return o.cfg.WatchedRepos()
}
