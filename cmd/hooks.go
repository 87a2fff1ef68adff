package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/pushhooks/internal/dispatch"
	"github.com/thiagokokada/pushhooks/internal/feed"
	"github.com/thiagokokada/pushhooks/internal/git"
	"github.com/thiagokokada/pushhooks/internal/hook"
)

func eventFromArgs(args []string) hook.PushEvent {
	return hook.PushEvent{Old: args[0], New: args[1], Ref: args[2]}
}

func (a *app) buildPipeline(src git.Source) *hook.Build {
	return &hook.Build{
		Source:       src,
		Dispatcher:   dispatch.New(a.cfg.Build.Endpoint, a.cfg.Build.Timeout),
		MetadataFile: a.cfg.Build.MetadataFile,
		VersionLabel: a.cfg.Build.VersionLabel,
		Out:          a.stderr,
	}
}

func (a *app) integrityPipeline(src git.Source) *hook.Integrity {
	return &hook.Integrity{Source: src, Out: a.stderr, Color: a.colorEnabled()}
}

func (a *app) feedStore(branch feed.Branch) *feed.Store {
	s := &feed.Store{
		Path:        a.cfg.FeedPath(branch),
		Header:      a.cfg.Header(),
		Length:      a.cfg.Feed.Length,
		LockTimeout: a.cfg.Feed.LockTimeout,
	}
	if len(a.cfg.Publish.Command) > 0 {
		s.Publisher = a.publisher()
	}
	return s
}

func (a *app) publisher() feed.CommandPublisher {
	return feed.CommandPublisher{
		Command: a.cfg.Publish.Command,
		Dir:     a.cfg.Feed.Dir,
		Files:   a.cfg.FeedFiles(),
	}
}

func (a *app) feedPipeline(src git.Source) *hook.Feed {
	return &hook.Feed{
		Source:   src,
		Devel:    a.feedStore(feed.Devel),
		Release:  a.feedStore(feed.Release),
		LinkBase: a.cfg.Feed.LinkBase,
		Out:      a.stderr,
	}
}

func newBuildCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "build OLD NEW REF",
		Short: "Trigger a package build when the push bumps the patch version",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := a.source(cmd.Context())
			if err != nil {
				return err
			}
			return a.buildPipeline(src).Run(cmd.Context(), eventFromArgs(args))
		},
	}
}

func newCheckMarkersCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check-markers OLD NEW REF",
		Short: "Reject the push if its diff contains conflict markers",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := a.source(cmd.Context())
			if err != nil {
				return err
			}
			return a.integrityPipeline(src).Run(cmd.Context(), eventFromArgs(args))
		},
	}
}

func newFeedCommand(a *app) *cobra.Command {
	var length int
	cmd := &cobra.Command{
		Use:   "feed OLD NEW REF",
		Short: "Record the pushed commits in the RSS feed",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("length") {
				if length <= 0 {
					return fmt.Errorf("invalid --length %d: must be positive", length)
				}
				a.cfg.Feed.Length = length
			}
			src, err := a.source(cmd.Context())
			if err != nil {
				return err
			}
			return a.feedPipeline(src).Run(cmd.Context(), eventFromArgs(args))
		},
	}
	cmd.Flags().IntVar(&length, "length", feed.DefaultLength, "number of entries the feed keeps")
	return cmd
}

func newPreReceiveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pre-receive",
		Short: "Run the integrity check for every ref read from standard input",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			events, err := a.readEvents()
			if err != nil {
				return err
			}
			src, err := a.source(ctx)
			if err != nil {
				return err
			}
			integrity := a.integrityPipeline(src)
			for _, ev := range events {
				if err := integrity.Run(ctx, ev); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newPostReceiveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "post-receive",
		Short: "Run the build and feed pipelines for every ref read from standard input",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			events, err := a.readEvents()
			if err != nil {
				return err
			}
			src, err := a.source(ctx)
			if err != nil {
				return err
			}
			return a.postReceive(ctx, src, events)
		},
	}
}

// postReceive runs every pipeline for every event. The refs are already
// updated, so one failing pipeline does not stop the others.
func (a *app) postReceive(ctx context.Context, src git.Source, events []hook.PushEvent) error {
	build := a.buildPipeline(src)
	feedHook := a.feedPipeline(src)
	var errs []error
	for _, ev := range events {
		if err := build.Run(ctx, ev); err != nil {
			slog.Error("build pipeline failed", slog.String("ref", ev.Ref), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("%s: %w", ev.Ref, err))
		}
		if err := feedHook.Run(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ev.Ref, err))
		}
	}
	return errors.Join(errs...)
}

func (a *app) readEvents() ([]hook.PushEvent, error) {
	var events []hook.PushEvent
	scanner := bufio.NewScanner(a.stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ev, err := hook.ParseEvent(line)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read hook input: %w", err)
	}
	return events, nil
}
