package hook

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/thiagokokada/pushhooks/internal/git"
	"github.com/thiagokokada/pushhooks/internal/markers"
)

// ConflictMessage is shown to the pusher when a push is rejected.
const ConflictMessage = `Error: You cannot push without resolving merge conflicts.

Please check the files in the commit pushed to the git-server
for merge conflict markers like '<<<<<<<', '========', '>>>>>>>'.
`

// ErrConflictMarker rejects a push whose diff contains a conflict marker.
var ErrConflictMarker = errors.New("push contains unresolved merge conflict markers")

const excerptContext = 3

// Integrity rejects pushes carrying unresolved conflict markers.
type Integrity struct {
	Source git.Source
	// Out receives ConflictMessage and the offending lines.
	Out   io.Writer
	Color bool
}

func (i *Integrity) Run(ctx context.Context, ev PushEvent) error {
	if ev.Deletion() {
		return nil
	}
	ev = ev.Normalize()
	diff, err := i.Source.Diff(ctx, ev.Old, ev.New, "")
	if err != nil {
		return err
	}
	if !markers.HasConflictMarker(diff) {
		return nil
	}
	slog.Info("rejecting push with conflict markers",
		slog.String("ref", ev.Ref),
		slog.String("new", ev.New),
	)
	if i.Out != nil {
		io.WriteString(i.Out, ConflictMessage)
		if excerpt := markers.Excerpt(diff, excerptContext); excerpt != "" {
			io.WriteString(i.Out, "\n")
			if err := markers.Highlight(i.Out, excerpt, i.Color); err != nil {
				slog.Debug("highlight excerpt", slog.Any("error", err))
			}
		}
	}
	return ErrConflictMarker
}
