package git

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const (
	// ZeroCommit is the old revision git passes to hooks when a ref is created.
	ZeroCommit = "0000000000000000000000000000000000000000"
	// EmptyTree is the id of the empty tree, present in every repository.
	EmptyTree = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"
	// PubDateLayout matches git's %ai placeholder.
	PubDateLayout = "2006-01-02 15:04:05 -0700"
)

// ErrRevisionQuery is matched by every error a Source returns.
var ErrRevisionQuery = errors.New("revision query failed")

type Signature struct {
	Name  string
	Email string
	When  time.Time
}

type Commit struct {
	Hash    string
	Author  Signature
	Message string
}

// QueryError reports a failed repository query: an unknown revision, a git
// subprocess exiting non-zero or an unreadable object.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

func (e *QueryError) Is(target error) bool { return target == ErrRevisionQuery }

func queryError(op string, err error) error {
	if err == nil {
		return nil
	}
	var qe *QueryError
	if errors.As(err, &qe) {
		return err
	}
	return &QueryError{Op: op, Err: err}
}

// NormalizeOld maps the all-zero revision of a branch creation to the empty
// tree so diffs against it list every file of the new revision.
func NormalizeOld(rev string) string {
	rev = strings.TrimSpace(rev)
	if rev == ZeroCommit {
		return EmptyTree
	}
	return rev
}

// PackageName derives the package name from a repository path: the
// directory name without its ".git" suffix.
func PackageName(repoPath string) string {
	clean := filepath.Clean(repoPath)
	base := filepath.Base(clean)
	if base == ".git" {
		base = filepath.Base(filepath.Dir(clean))
	}
	return strings.TrimSuffix(base, ".git")
}

// Reversed returns the commits oldest first, given CommitLog's newest-first order.
func Reversed(commits []Commit) []Commit {
	out := make([]Commit, len(commits))
	for i, c := range commits {
		out[len(commits)-1-i] = c
	}
	return out
}
