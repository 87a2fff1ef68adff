package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/pushhooks/internal/feed"
)

func newPublishCommand(a *app) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Copy the feed documents with the configured publish command",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(a.cfg.Publish.Command) == 0 {
				return errors.New("publish.command is not configured")
			}
			if !watch {
				return a.publisher().Publish(cmd.Context())
			}
			w := &feed.Watcher{
				Dir:       a.cfg.Feed.Dir,
				Files:     a.cfg.FeedFiles(),
				Publisher: a.publisher(),
				Delay:     a.cfg.Publish.Delay,
			}
			return w.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "keep running and publish whenever a feed document changes")
	return cmd
}
