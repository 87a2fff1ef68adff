package hook

import (
	"context"
	"io"
	"log/slog"

	"github.com/thiagokokada/pushhooks/internal/feed"
	"github.com/thiagokokada/pushhooks/internal/git"
)

// FeedNote is shown to the pusher when the feed could not be updated.
const FeedNote = "Note: failed to update RSS feed; git repository updated successfully.\n"

// Feed records every pushed commit in the release or devel feed.
type Feed struct {
	Source   git.Source
	Devel    FeedWriter
	Release  FeedWriter
	LinkBase string
	Out      io.Writer
}

// Run never fails: the push has already been accepted when it runs.
func (f *Feed) Run(ctx context.Context, ev PushEvent) error {
	if ev.Deletion() {
		return nil
	}
	ev = ev.Normalize()
	commits, err := f.Source.CommitLog(ctx, ev.Old, ev.New)
	if err != nil {
		f.fail(ev, err)
		return nil
	}
	pkg := git.PackageName(f.Source.RepoPath())
	entries := feed.Synthesize(pkg, ev.Ref, f.LinkBase, commits)
	if len(entries) == 0 {
		return nil
	}
	branch := feed.ClassifyRef(ev.Ref)
	w := f.Devel
	if branch == feed.Release {
		w = f.Release
	}
	if err := w.Write(ctx, entries); err != nil {
		f.fail(ev, err)
		return nil
	}
	slog.Info("feed updated",
		slog.String("package", pkg),
		slog.String("branch", branch.String()),
		slog.Int("entries", len(entries)),
	)
	return nil
}

func (f *Feed) fail(ev PushEvent, err error) {
	slog.Error("feed update failed", slog.String("ref", ev.Ref), slog.Any("error", err))
	if f.Out != nil {
		io.WriteString(f.Out, FeedNote)
	}
}
