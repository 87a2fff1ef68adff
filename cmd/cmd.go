package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/thiagokokada/pushhooks/internal/buildinfo"
	"github.com/thiagokokada/pushhooks/internal/config"
	"github.com/thiagokokada/pushhooks/internal/git"
)

type options struct {
	configFile string
	repo       string
	backend    string
	verbose    bool
	color      string
}

type app struct {
	opts   options
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	cfg    config.Config
}

func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	root := newRootCommand(&app{stdin: stdin, stdout: stdout, stderr: stderr})
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "pushhooks",
		Short:         "Server-side git hooks for package repositories",
		Long:          "pushhooks triggers package builds on version bumps, rejects pushes with conflict markers and keeps the commit RSS feeds.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.opts.configFile, "config", "", "configuration file (default: pushhooks.yaml in the repository, $HOME/.pushhooks or /etc/pushhooks)")
	flags.StringVar(&a.opts.repo, "repo", ".", "path to the repository receiving the push")
	flags.StringVar(&a.opts.backend, "backend", "cli", "revision data source: cli or native")
	flags.BoolVar(&a.opts.verbose, "verbose", false, "enable verbose logging")
	flags.StringVar(&a.opts.color, "color", "auto", "colorize conflict excerpts: auto, always or never")

	root.AddCommand(
		newBuildCommand(a),
		newCheckMarkersCommand(a),
		newFeedCommand(a),
		newPreReceiveCommand(a),
		newPostReceiveCommand(a),
		newPublishCommand(a),
		newVersionCommand(a),
	)
	return root
}

func (a *app) setup() error {
	level := slog.LevelInfo
	if a.opts.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level})))

	switch a.opts.color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("invalid --color %q: want auto, always or never", a.opts.color)
	}
	cfg, err := config.Load(config.Options{File: a.opts.configFile, RepoDir: a.opts.repo})
	if err != nil {
		return err
	}
	a.cfg = cfg
	slog.Debug("configuration loaded",
		slog.String("endpoint", cfg.Build.Endpoint),
		slog.String("feed_dir", cfg.Feed.Dir),
	)
	return nil
}

func (a *app) source(ctx context.Context) (git.Source, error) {
	switch a.opts.backend {
	case "cli":
		return git.OpenCLI(ctx, a.opts.repo)
	case "native":
		return git.OpenNative(a.opts.repo)
	default:
		return nil, fmt.Errorf("invalid --backend %q: want cli or native", a.opts.backend)
	}
}

func (a *app) colorEnabled() bool {
	switch a.opts.color {
	case "always":
		return true
	case "never":
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := a.stderr.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func newVersionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// Printing the version must not depend on a readable configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(a.stdout, buildinfo.String())
			fmt.Fprintf(a.stdout, "cli backend requires git >= %s\n", git.MinGitVersion())
			return nil
		},
	}
}
