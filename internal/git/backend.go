package git

import "context"

// Source abstracts read-only queries against the repository receiving a push.
//
// The default implementation shells out to the git executable; OpenNative
// reads the object store with go-git and Memory serves scripted answers.
type Source interface {
	RepoPath() string

	// Diff returns the unified diff between two revisions, limited to path
	// when it is not empty.
	Diff(ctx context.Context, oldRev, newRev, path string) ([]byte, error)
	// FilesModified lists the paths that differ between two revisions.
	FilesModified(ctx context.Context, oldRev, newRev string) ([]string, error)
	// CommitLog lists the commits in oldRev..newRev newest first, the way git
	// log prints them. When oldRev is EmptyTree only newRev itself is listed.
	CommitLog(ctx context.Context, oldRev, newRev string) ([]Commit, error)
}
