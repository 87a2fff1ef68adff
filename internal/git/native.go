package git

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/pmezard/go-difflib/difflib"
)

type nativeRepo struct {
	path string
	repo *gitlib.Repository
}

// OpenNative opens the repository at repoPath with go-git, without needing a
// git executable on the host.
func OpenNative(repoPath string) (Source, error) {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, queryError("open repository", err)
	}
	repo, err := gitlib.PlainOpenWithOptions(abs, &gitlib.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, queryError("open repository", err)
	}
	return &nativeRepo{path: abs, repo: repo}, nil
}

func (n *nativeRepo) RepoPath() string {
	return n.path
}

func (n *nativeRepo) Diff(ctx context.Context, oldRev, newRev, path string) ([]byte, error) {
	changes, err := n.changes(ctx, oldRev, newRev)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	for _, change := range changes {
		if path != "" && change.From.Name != path && change.To.Name != path {
			continue
		}
		if err := writeChangeDiff(&b, change); err != nil {
			return nil, queryError("diff "+changeName(change), err)
		}
	}
	return []byte(b.String()), nil
}

func (n *nativeRepo) FilesModified(ctx context.Context, oldRev, newRev string) ([]string, error) {
	changes, err := n.changes(ctx, oldRev, newRev)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(changes))
	for _, change := range changes {
		files = append(files, changeName(change))
	}
	return files, nil
}

func (n *nativeRepo) CommitLog(ctx context.Context, oldRev, newRev string) ([]Commit, error) {
	oldRev, newRev, err := checkRange(oldRev, newRev)
	if err != nil {
		return nil, err
	}
	head, err := n.commitAt(newRev)
	if err != nil {
		return nil, queryError("log", err)
	}
	if oldRev == EmptyTree {
		return []Commit{toCommit(head)}, nil
	}
	base, err := n.commitAt(oldRev)
	if err != nil {
		return nil, queryError("log", err)
	}

	excluded := map[plumbing.Hash]struct{}{}
	baseIter, err := n.repo.Log(&gitlib.LogOptions{From: base.Hash})
	if err != nil {
		return nil, queryError("log", err)
	}
	err = baseIter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		excluded[c.Hash] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, queryError("log", err)
	}

	iter, err := n.repo.Log(&gitlib.LogOptions{From: head.Hash, Order: gitlib.LogOrderCommitterTime})
	if err != nil {
		return nil, queryError("log", err)
	}
	var commits []Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, ok := excluded[c.Hash]; ok {
			return nil
		}
		commits = append(commits, toCommit(c))
		return nil
	})
	if err != nil {
		return nil, queryError("log", err)
	}
	return commits, nil
}

func (n *nativeRepo) changes(ctx context.Context, oldRev, newRev string) (object.Changes, error) {
	oldRev, newRev, err := checkRange(oldRev, newRev)
	if err != nil {
		return nil, err
	}
	oldTree, err := n.treeAt(oldRev)
	if err != nil {
		return nil, queryError("diff", err)
	}
	newTree, err := n.treeAt(newRev)
	if err != nil {
		return nil, queryError("diff", err)
	}
	changes, err := object.DiffTreeWithOptions(ctx, oldTree, newTree, object.DefaultDiffTreeOptions)
	if err != nil {
		return nil, queryError("diff", err)
	}
	return changes, nil
}

// treeAt returns nil for the empty tree, which go-git diffs as "no files".
func (n *nativeRepo) treeAt(rev string) (*object.Tree, error) {
	if rev == EmptyTree {
		return nil, nil
	}
	commit, err := n.commitAt(rev)
	if err != nil {
		return nil, err
	}
	return commit.Tree()
}

func (n *nativeRepo) commitAt(rev string) (*object.Commit, error) {
	hash, err := n.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", rev, err)
	}
	return n.repo.CommitObject(*hash)
}

func toCommit(c *object.Commit) Commit {
	return Commit{
		Hash: c.Hash.String(),
		Author: Signature{
			Name:  c.Author.Name,
			Email: c.Author.Email,
			When:  c.Author.When,
		},
		Message: strings.TrimRight(c.Message, "\n"),
	}
}

func changeName(change *object.Change) string {
	if change.To.Name != "" {
		return change.To.Name
	}
	return change.From.Name
}

func writeChangeDiff(b *strings.Builder, change *object.Change) error {
	from, to, err := change.Files()
	if err != nil {
		return err
	}
	fromName, toName := change.From.Name, change.To.Name
	if fromName == "" {
		fromName = toName
	}
	if toName == "" {
		toName = fromName
	}
	fmt.Fprintf(b, "diff --git a/%s b/%s\n", fromName, toName)

	binary, err := isBinary(from, to)
	if err != nil {
		return err
	}
	if binary {
		b.WriteString("Binary files differ\n")
		return nil
	}
	fromLines, err := fileLines(from)
	if err != nil {
		return err
	}
	toLines, err := fileLines(to)
	if err != nil {
		return err
	}
	fromFile, toFile := "a/"+fromName, "b/"+toName
	if from == nil {
		fromFile = "/dev/null"
	}
	if to == nil {
		toFile = "/dev/null"
	}
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        fromLines,
		B:        toLines,
		FromFile: fromFile,
		ToFile:   toFile,
		Context:  3,
	})
	if err != nil {
		return err
	}
	b.WriteString(text)
	return nil
}

func isBinary(files ...*object.File) (bool, error) {
	for _, f := range files {
		if f == nil {
			continue
		}
		bin, err := f.IsBinary()
		if err != nil {
			return false, err
		}
		if bin {
			return true, nil
		}
	}
	return false, nil
}

func fileLines(f *object.File) ([]string, error) {
	if f == nil {
		return nil, nil
	}
	content, err := f.Contents()
	if err != nil {
		return nil, err
	}
	if content == "" {
		return nil, nil
	}
	return difflib.SplitLines(content), nil
}
