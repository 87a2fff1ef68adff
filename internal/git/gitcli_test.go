package git

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGitLogRecord(t *testing.T) {
	t.Parallel()

	rec := bytes.Join([][]byte{
		[]byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
		[]byte("Alice"),
		[]byte("alice@example.com"),
		[]byte("2024-01-02 03:04:05 -0500"),
		[]byte("Subject line\n\nBody with <tags> & ]]> inside\n"),
	}, []byte("\n"))

	commit, err := parseGitLogRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", commit.Hash)
	assert.Equal(t, "Alice", commit.Author.Name)
	assert.Equal(t, "alice@example.com", commit.Author.Email)
	assert.True(t, commit.Author.When.Equal(time.Date(2024, 1, 2, 8, 4, 5, 0, time.UTC)), commit.Author.When)
	assert.Equal(t, "Subject line\n\nBody with <tags> & ]]> inside", commit.Message)
}

func TestParseGitLogRecord_EmptyMessage(t *testing.T) {
	t.Parallel()

	commit, err := parseGitLogRecord([]byte("h\nan\nae\n2024-01-02 03:04:05 +0000\n"))
	require.NoError(t, err)
	assert.Empty(t, commit.Message)
}

func TestParseGitLogRecord_Invalid(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"short":    "only\ntwo",
		"bad_date": "h\nan\nae\nyesterday\nmsg",
		"no_hash":  " \nan\nae\n2024-01-02 03:04:05 +0000\nmsg",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := parseGitLogRecord([]byte(in))
			assert.Error(t, err)
		})
	}
}

func TestParseGitLog_MultipleRecords(t *testing.T) {
	t.Parallel()

	out := []byte("c2\nBob\nbob@example.com\n2024-01-03 00:00:00 +0000\nsecond\n\x00\n" +
		"c1\nAlice\nalice@example.com\n2024-01-02 00:00:00 +0000\nfirst\n\x00\n")
	commits, err := parseGitLog(out)
	require.NoError(t, err)
	require.Len(t, commits, 2)
	assert.Equal(t, "c2", commits[0].Hash)
	assert.Equal(t, "c1", commits[1].Hash)
	assert.Equal(t, "second", commits[0].Message)
}

func TestParseGitLog_ErrorIsQueryError(t *testing.T) {
	t.Parallel()

	_, err := parseGitLog([]byte("broken\x00"))
	assert.ErrorIs(t, err, ErrRevisionQuery)
}

func TestCheckRange(t *testing.T) {
	t.Parallel()

	oldRev, newRev, err := checkRange(ZeroCommit, " abc \n")
	require.NoError(t, err)
	assert.Equal(t, EmptyTree, oldRev)
	assert.Equal(t, "abc", newRev)

	_, _, err = checkRange("abc", "")
	assert.ErrorIs(t, err, ErrRevisionQuery)
	_, _, err = checkRange("--output=/tmp/x", "abc")
	assert.Error(t, err, "option-like revision")
}
