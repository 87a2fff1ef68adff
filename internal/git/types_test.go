package git

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeOld(t *testing.T) {
	t.Parallel()

	assert.Equal(t, EmptyTree, NormalizeOld(ZeroCommit))
	assert.Equal(t, "abc", NormalizeOld(" abc\n"))
}

func TestPackageName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"/home/git/repositories/packages/BiocGenerics.git":  "BiocGenerics",
		"/home/git/repositories/packages/BiocGenerics.git/": "BiocGenerics",
		"/src/limma/.git": "limma",
		"/src/limma":      "limma",
	}
	for in, want := range tests {
		assert.Equal(t, want, PackageName(in), in)
	}
}

func TestReversed(t *testing.T) {
	t.Parallel()

	in := []Commit{{Hash: "c3"}, {Hash: "c2"}, {Hash: "c1"}}
	got := Reversed(in)
	assert.Equal(t, []Commit{{Hash: "c1"}, {Hash: "c2"}, {Hash: "c3"}}, got)
	assert.Equal(t, "c3", in[0].Hash, "input left unmodified")
}

func TestQueryErrorWrapping(t *testing.T) {
	t.Parallel()

	cause := errors.New("exit status 128")
	err := fmt.Errorf("hook: %w", queryError("git diff", cause))
	assert.ErrorIs(t, err, ErrRevisionQuery)
	assert.ErrorIs(t, err, cause)

	var qe *QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "git diff", qe.Op)
	assert.Same(t, qe, queryError("other", qe), "no double wrap")
}
