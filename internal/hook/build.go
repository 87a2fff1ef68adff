package hook

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"

	"github.com/thiagokokada/pushhooks/internal/git"
	"github.com/thiagokokada/pushhooks/internal/version"
)

// BuildErrorMessage is shown to the pusher when the build service refused or
// never received the request. The push itself still succeeds.
const BuildErrorMessage = `Error: Please bump the version again and push.

The build did not start as expected. If the issue persists,
please reach out at bioc-devel@r-project.org or post on the
Github issue where your package is being reviewed.

%s
`

// Build starts a package build when a push bumps the patch version in the
// metadata file.
type Build struct {
	Source       git.Source
	Dispatcher   Dispatcher
	MetadataFile string
	VersionLabel string
	Out          io.Writer
}

func (b *Build) Run(ctx context.Context, ev PushEvent) error {
	if ev.Deletion() {
		return nil
	}
	ev = ev.Normalize()
	files, err := b.Source.FilesModified(ctx, ev.Old, ev.New)
	if err != nil {
		return err
	}
	for _, f := range files {
		if path.Base(f) != b.MetadataFile {
			continue
		}
		diff, err := b.Source.Diff(ctx, ev.Old, ev.New, f)
		if err != nil {
			return err
		}
		change, err := version.ParseDiff(diff, b.VersionLabel)
		if err != nil {
			return fmt.Errorf("%s: %w", f, err)
		}
		if change.Empty() {
			continue
		}
		trigger, err := change.Decide()
		if err != nil {
			return fmt.Errorf("%s: %w", f, err)
		}
		slog.Debug("version change",
			slog.String("file", f),
			slog.String("previous", change.Previous),
			slog.String("current", change.Current),
			slog.Bool("trigger", trigger),
		)
		if !trigger {
			continue
		}
		b.dispatch(ctx, git.PackageName(b.Source.RepoPath()), ev.New)
		return nil
	}
	return nil
}

func (b *Build) dispatch(ctx context.Context, pkg, commit string) {
	err := b.Dispatcher.Dispatch(ctx, pkg, commit)
	if err == nil {
		return
	}
	slog.Error("build dispatch failed",
		slog.String("package", pkg),
		slog.String("commit", commit),
		slog.Any("error", err),
	)
	if b.Out != nil {
		fmt.Fprintf(b.Out, BuildErrorMessage, err)
	}
}
