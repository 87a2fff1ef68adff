package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thiagokokada/pushhooks/internal/dispatch"
	"github.com/thiagokokada/pushhooks/internal/feed"
	"github.com/thiagokokada/pushhooks/internal/git"
	"github.com/thiagokokada/pushhooks/internal/hook"
)

// These tests share the default slog logger and are not run in parallel.

type testRepo struct {
	dir     string
	commits []string
}

func newTestRepo(t *testing.T, steps ...map[string]string) testRepo {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "Foo")
	repo, err := gitlib.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	r := testRepo{dir: dir}
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, files := range steps {
		for name, content := range files {
			full := filepath.Join(dir, name)
			require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
			require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
			_, err := wt.Add(name)
			require.NoError(t, err)
		}
		hash, err := wt.Commit(fmt.Sprintf("commit %d", i), &gitlib.CommitOptions{
			Author: &object.Signature{Name: "Alice", Email: "alice@example.com", When: base.Add(time.Duration(i) * time.Hour)},
		})
		require.NoError(t, err)
		r.commits = append(r.commits, hash.String())
	}
	return r
}

func writeTestConfig(t *testing.T, endpoint string) (configPath, feedDir string) {
	t.Helper()
	dir := t.TempDir()
	feedDir = filepath.Join(dir, "rss")
	require.NoError(t, os.Mkdir(feedDir, 0o755))
	configPath = filepath.Join(dir, "pushhooks.yaml")
	body := fmt.Sprintf("build:\n  endpoint: %s\n  timeout: 2s\nfeed:\n  dir: %s\n  length: 10\n", endpoint, feedDir)
	require.NoError(t, os.WriteFile(configPath, []byte(body), 0o644))
	return configPath, feedDir
}

func execute(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err = run(context.Background(), args, strings.NewReader(stdin), &out, &errOut)
	return out.String(), errOut.String(), err
}

func TestVersion(t *testing.T) {
	stdout, _, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "pushhooks "), stdout)
	assert.Contains(t, stdout, "requires git >= "+git.MinGitVersion())
}

func TestInvalidFlags(t *testing.T) {
	repo := newTestRepo(t, map[string]string{"R/a.R": "a <- 1\n"})
	configPath, _ := writeTestConfig(t, "http://127.0.0.1:1/")
	ref := []string{git.ZeroCommit, repo.commits[0], "refs/heads/devel"}

	tests := []struct {
		name string
		args []string
	}{
		{name: "backend", args: append([]string{"--backend", "svn", "--config", configPath, "--repo", repo.dir, "check-markers"}, ref...)},
		{name: "color", args: append([]string{"--color", "rainbow", "--config", configPath, "--repo", repo.dir, "check-markers"}, ref...)},
		{name: "arg count", args: []string{"--config", configPath, "build", "only-one"}},
		{name: "feed length", args: append([]string{"--config", configPath, "--backend", "native", "--repo", repo.dir, "feed", "--length", "0"}, ref...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, "", tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestCheckMarkersRejectsConflict(t *testing.T) {
	repo := newTestRepo(t,
		map[string]string{"R/a.R": "a <- 1\n"},
		map[string]string{"R/a.R": "<<<<<<< HEAD\na <- 1\n=======\na <- 2\n>>>>>>> topic\n"},
	)
	configPath, _ := writeTestConfig(t, "http://127.0.0.1:1/")

	_, stderr, err := execute(t, "",
		"--config", configPath, "--repo", repo.dir, "--backend", "native", "--color", "never",
		"check-markers", repo.commits[0], repo.commits[1], "refs/heads/devel")
	assert.ErrorIs(t, err, hook.ErrConflictMarker)
	assert.Contains(t, stderr, hook.ConflictMessage)
	assert.Contains(t, stderr, "+<<<<<<< HEAD")
}

func TestPreReceiveReadsStdin(t *testing.T) {
	repo := newTestRepo(t,
		map[string]string{"R/a.R": "a <- 1\n"},
		map[string]string{"R/a.R": "a <- 2\n"},
	)
	configPath, _ := writeTestConfig(t, "http://127.0.0.1:1/")
	stdin := fmt.Sprintf("%s %s refs/heads/devel\n\n%s %s refs/heads/topic\n",
		repo.commits[0], repo.commits[1], git.ZeroCommit, repo.commits[1])

	_, _, err := execute(t, stdin,
		"--config", configPath, "--repo", repo.dir, "--backend", "native", "pre-receive")
	assert.NoError(t, err)

	_, _, err = execute(t, "not a hook line\n",
		"--config", configPath, "--repo", repo.dir, "--backend", "native", "pre-receive")
	assert.Error(t, err)
}

func TestPostReceiveBuildsAndRecordsFeed(t *testing.T) {
	requests := make(chan dispatch.Request, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req dispatch.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		requests <- req
	}))
	t.Cleanup(srv.Close)

	repo := newTestRepo(t,
		map[string]string{"DESCRIPTION": "Package: Foo\nVersion: 1.2.3\n"},
		map[string]string{"DESCRIPTION": "Package: Foo\nVersion: 1.2.4\n"},
		map[string]string{"R/foo.R": "foo <- function() 1\n"},
	)
	configPath, feedDir := writeTestConfig(t, srv.URL)
	stdin := fmt.Sprintf("%s %s refs/heads/RELEASE_3_18\n", repo.commits[0], repo.commits[2])

	_, stderr, err := execute(t, stdin,
		"--config", configPath, "--repo", repo.dir, "--backend", "native", "post-receive")
	require.NoError(t, err, stderr)

	close(requests)
	var got []dispatch.Request
	for r := range requests {
		got = append(got, r)
	}
	assert.Equal(t, []dispatch.Request{{Package: "Foo", CommitID: repo.commits[2]}}, got)

	b, err := os.ReadFile(filepath.Join(feedDir, "gitlog.release.xml"))
	require.NoError(t, err)
	doc, err := feed.ParseDocument(b, feed.Header{})
	require.NoError(t, err)
	var guids []string
	for _, e := range doc.Entries() {
		guids = append(guids, e.GUID)
		assert.Equal(t, "https://bioconductor.org/packages/Foo/", e.Link)
	}
	assert.Equal(t, []string{repo.commits[2], repo.commits[1]}, guids)

	_, err = os.Stat(filepath.Join(feedDir, "gitlog.xml"))
	assert.True(t, os.IsNotExist(err), "devel feed untouched")
}

func TestFeedFailureStillSucceeds(t *testing.T) {
	repo := newTestRepo(t, map[string]string{"R/a.R": "a <- 1\n"})
	configPath, feedDir := writeTestConfig(t, "http://127.0.0.1:1/")
	require.NoError(t, os.Remove(feedDir))

	_, stderr, err := execute(t, "",
		"--config", configPath, "--repo", repo.dir, "--backend", "native",
		"feed", git.ZeroCommit, repo.commits[0], "refs/heads/devel")
	require.NoError(t, err)
	assert.Contains(t, stderr, hook.FeedNote)
}

func TestPublishRequiresCommand(t *testing.T) {
	configPath, _ := writeTestConfig(t, "http://127.0.0.1:1/")
	_, _, err := execute(t, "", "--config", configPath, "publish")
	assert.Error(t, err)
}
