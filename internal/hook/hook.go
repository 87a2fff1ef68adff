// Package hook runs the push pipelines for one updated ref.
package hook

import (
	"context"
	"fmt"
	"strings"

	"github.com/thiagokokada/pushhooks/internal/feed"
	"github.com/thiagokokada/pushhooks/internal/git"
)

// PushEvent is one "old new ref" line of a pre- or post-receive hook.
type PushEvent struct {
	Old string
	New string
	Ref string
}

// ParseEvent reads a hook stdin line.
func ParseEvent(line string) (PushEvent, error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return PushEvent{}, fmt.Errorf("malformed hook input %q: want \"old new ref\"", line)
	}
	return PushEvent{Old: fields[0], New: fields[1], Ref: fields[2]}, nil
}

// Normalize replaces the all-zero old revision of a ref creation with the
// empty tree.
func (e PushEvent) Normalize() PushEvent {
	e.Old = git.NormalizeOld(e.Old)
	return e
}

// Deletion reports whether the push deletes Ref.
func (e PushEvent) Deletion() bool {
	return strings.TrimSpace(e.New) == git.ZeroCommit
}

type Dispatcher interface {
	Dispatch(ctx context.Context, pkg, commitID string) error
}

type FeedWriter interface {
	Write(ctx context.Context, entries []feed.Entry) error
}
