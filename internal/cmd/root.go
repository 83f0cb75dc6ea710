package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"labelord/pkg/config"
	"labelord/pkg/fuzzy"
	"labelord/pkg/github"
	"labelord/pkg/labels"
)

// Version is the labelord release reported by --version
const Version = "0.2"

// storeFactory builds the LabelStore used by every command
type storeFactory func(token, apiURL string, timeout time.Duration) (labels.LabelStore, error)

// rootOptions holds the state shared by all subcommands
type rootOptions struct {
	configPath string
	token      string
	apiURL     string

	cfg    *config.Config
	logger *slog.Logger

	newStore    storeFactory
	newPicker   func(prompt string) fuzzy.Selector
	interactive func() bool
}

func newGitHubStore(token, apiURL string, timeout time.Duration) (labels.LabelStore, error) {
	client := github.NewClient(token, github.WithTimeout(timeout))
	if apiURL != "" {
		if err := client.SetBaseURL(apiURL); err != nil {
			return nil, err
		}
	}
	return client, nil
}

func newFzfPicker(prompt string) fuzzy.Selector {
	return fuzzy.NewFzf(prompt)
}

// NewRootCommand builds the labelord command tree
func NewRootCommand() *cobra.Command {
	return newRootCmd(&rootOptions{
		newStore:    newGitHubStore,
		newPicker:   newFzfPicker,
		interactive: fuzzy.IsInteractive,
	})
}

func newRootCmd(o *rootOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "labelord",
		Short: "Global multi-project management of GitHub labels",
		Long: `Labelord keeps GitHub issue labels consistent across many repositories.

It can reconcile repositories against a label specification in one batch run,
or run a replication server that receives label webhooks and mirrors every
label change to the other configured repositories.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return o.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&o.configPath, "config", "c", "", "Path of the auth config file (default $LABELORD_CONFIG or ./config.cfg)")
	flags.StringVarP(&o.token, "token", "t", "", "GitHub API token (default $GITHUB_TOKEN)")
	flags.StringVar(&o.apiURL, "api-url", "", "GitHub API root, for GitHub Enterprise")
	registerLoggingFlags(flags)

	rootCmd.SetVersionTemplate("{{.Name}}, version {{.Version}}\n")

	rootCmd.AddCommand(newListReposCmd(o))
	rootCmd.AddCommand(newListLabelsCmd(o))
	rootCmd.AddCommand(newRunCmd(o))
	rootCmd.AddCommand(newRunServerCmd(o))
	return rootCmd
}

// setup loads configuration and builds the logger before any subcommand runs
func (o *rootOptions) setup(cmd *cobra.Command) error {
	logger, err := newLogger(cmd, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	o.logger = logger

	if o.configPath != "" {
		if _, err := os.Stat(o.configPath); err != nil {
			return fmt.Errorf("invalid value for --config: %w", err)
		}
	}

	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return err
	}
	if o.token != "" {
		cfg.GitHub.Token = o.token
	}
	o.cfg = cfg

	o.logger.Debug("configuration loaded", "path", cfg.Path())
	return nil
}

// labelStore returns a store authenticated with the configured token
func (o *rootOptions) labelStore() (labels.LabelStore, error) {
	token, err := o.cfg.RequireToken()
	if err != nil {
		return nil, err
	}
	return o.newStore(token, o.apiURL, o.cfg.Timeout)
}

// Execute runs the root command and exits with its status
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, NewRootCommand(), os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs root with args and returns the process exit status
func execute(ctx context.Context, root *cobra.Command, args []string, stdout, stderr io.Writer) int {
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}
	if msg := errorMessage(err); msg != "" {
		fmt.Fprintln(stderr, msg)
	}
	return exitCode(err)
}
