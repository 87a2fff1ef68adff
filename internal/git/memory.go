package git

import (
	"context"
	"fmt"
	"sync"
)

// Memory is a Source serving scripted answers. Diffs are keyed by path, ""
// being the diff of the whole range. A non-nil Err fails every query.
type Memory struct {
	Path  string
	Files []string
	Diffs map[string][]byte
	Log   []Commit
	Err   error

	mu    sync.Mutex
	calls []string
}

func (m *Memory) RepoPath() string { return m.Path }

func (m *Memory) Diff(_ context.Context, oldRev, newRev, path string) ([]byte, error) {
	if err := m.record("diff", oldRev, newRev, path); err != nil {
		return nil, err
	}
	return m.Diffs[path], nil
}

func (m *Memory) FilesModified(_ context.Context, oldRev, newRev string) ([]string, error) {
	if err := m.record("files", oldRev, newRev, ""); err != nil {
		return nil, err
	}
	return append([]string(nil), m.Files...), nil
}

func (m *Memory) CommitLog(_ context.Context, oldRev, newRev string) ([]Commit, error) {
	if err := m.record("log", oldRev, newRev, ""); err != nil {
		return nil, err
	}
	return append([]Commit(nil), m.Log...), nil
}

// Calls returns the queries made so far as "op old new [path]".
func (m *Memory) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *Memory) record(op, oldRev, newRev, path string) error {
	m.mu.Lock()
	call := fmt.Sprintf("%s %s %s", op, oldRev, newRev)
	if path != "" {
		call += " " + path
	}
	m.calls = append(m.calls, call)
	m.mu.Unlock()
	if m.Err != nil {
		return queryError(op, m.Err)
	}
	if _, _, err := checkRange(oldRev, newRev); err != nil {
		return err
	}
	return nil
}
