package git

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

type gitCLI struct {
	path string
}

// OpenCLI opens the repository at repoPath, bare or not, for queries through
// the git executable.
func OpenCLI(ctx context.Context, repoPath string) (Source, error) {
	if err := ensureMinGitVersion(ctx); err != nil {
		return nil, queryError("open repository", err)
	}
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, queryError("open repository", err)
	}
	tmp := &gitCLI{path: abs}
	out, err := tmp.runGitCommand(ctx, []string{"rev-parse", "--absolute-git-dir"}, "git rev-parse")
	if err != nil {
		return nil, queryError("open repository", err)
	}
	gitDir := strings.TrimSpace(string(out))
	if gitDir == "" {
		return nil, queryError("open repository", fmt.Errorf("git rev-parse returned empty git dir"))
	}
	return &gitCLI{path: gitDir}, nil
}

func (g *gitCLI) RepoPath() string {
	if g == nil {
		return ""
	}
	return g.path
}

func (g *gitCLI) runGitCommand(ctx context.Context, args []string, op string) ([]byte, error) {
	if g == nil || g.path == "" {
		return nil, &QueryError{Op: op, Err: fmt.Errorf("repository root not set")}
	}
	cmdArgs := append([]string{"--no-pager", "-C", g.path}, args...)
	cmd := exec.CommandContext(ctx, "git", cmdArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	start := time.Now()
	err := cmd.Run()
	slog.Debug("git command",
		slog.String("args", strings.Join(args, " ")),
		slog.Duration("took", time.Since(start)),
	)
	if err != nil {
		if stderr.Len() > 0 {
			return nil, &QueryError{Op: op, Err: fmt.Errorf("%v: %s", err, strings.TrimSpace(stderr.String()))}
		}
		return nil, &QueryError{Op: op, Err: err}
	}
	return stdout.Bytes(), nil
}

func (g *gitCLI) Diff(ctx context.Context, oldRev, newRev, path string) ([]byte, error) {
	oldRev, newRev, err := checkRange(oldRev, newRev)
	if err != nil {
		return nil, err
	}
	args := []string{"diff", "--no-color", "--no-ext-diff", oldRev, newRev}
	if path != "" {
		args = append(args, "--", path)
	}
	return g.runGitCommand(ctx, args, "git diff")
}

func (g *gitCLI) FilesModified(ctx context.Context, oldRev, newRev string) ([]string, error) {
	oldRev, newRev, err := checkRange(oldRev, newRev)
	if err != nil {
		return nil, err
	}
	// -z keeps paths with spaces or quotes unescaped.
	out, err := g.runGitCommand(ctx, []string{"diff", "--name-only", "-z", oldRev, newRev}, "git diff --name-only")
	if err != nil {
		return nil, err
	}
	var files []string
	for _, name := range strings.Split(string(out), "\x00") {
		if name != "" {
			files = append(files, name)
		}
	}
	return files, nil
}

func (g *gitCLI) CommitLog(ctx context.Context, oldRev, newRev string) ([]Commit, error) {
	oldRev, newRev, err := checkRange(oldRev, newRev)
	if err != nil {
		return nil, err
	}
	// NUL-delimited records; commit message cannot contain NUL.
	const format = "%H%n%an%n%ae%n%ai%n%B%x00"
	args := []string{"log", "--no-color", "--no-decorate", "--no-patch", "--pretty=tformat:" + format}
	if oldRev == EmptyTree {
		args = append(args, "-1", newRev)
	} else {
		args = append(args, oldRev+".."+newRev)
	}
	out, err := g.runGitCommand(ctx, args, "git log")
	if err != nil {
		return nil, err
	}
	return parseGitLog(out)
}

func parseGitLog(out []byte) ([]Commit, error) {
	var commits []Commit
	for _, rec := range bytes.Split(out, []byte{0}) {
		// tformat adds a newline after each record, so records after the
		// first start with one.
		rec = bytes.TrimLeft(rec, "\r\n")
		if len(rec) == 0 {
			continue
		}
		commit, err := parseGitLogRecord(rec)
		if err != nil {
			return nil, queryError("parse git log", err)
		}
		commits = append(commits, commit)
	}
	return commits, nil
}

func parseGitLogRecord(rec []byte) (Commit, error) {
	parts := strings.SplitN(string(rec), "\n", 5)
	if len(parts) < 4 {
		return Commit{}, fmt.Errorf("unexpected git log record: got %d lines", len(parts))
	}
	hash := strings.TrimSpace(parts[0])
	if hash == "" {
		return Commit{}, fmt.Errorf("missing commit hash")
	}
	when, err := time.Parse(PubDateLayout, strings.TrimSpace(parts[3]))
	if err != nil {
		return Commit{}, fmt.Errorf("commit %s: author date: %w", hash, err)
	}
	message := ""
	if len(parts) == 5 {
		message = strings.TrimRight(parts[4], "\n")
	}
	return Commit{
		Hash:    hash,
		Author:  Signature{Name: parts[1], Email: parts[2], When: when},
		Message: message,
	}, nil
}

func checkRange(oldRev, newRev string) (string, string, error) {
	oldRev = NormalizeOld(oldRev)
	newRev = strings.TrimSpace(newRev)
	if oldRev == "" || newRev == "" {
		return "", "", &QueryError{Op: "check revisions", Err: fmt.Errorf("revision not specified (old %q, new %q)", oldRev, newRev)}
	}
	if strings.HasPrefix(oldRev, "-") || strings.HasPrefix(newRev, "-") {
		return "", "", &QueryError{Op: "check revisions", Err: fmt.Errorf("invalid revision (old %q, new %q)", oldRev, newRev)}
	}
	return oldRev, newRev, nil
}
