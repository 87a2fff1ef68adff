package version

import (
	"fmt"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const descriptionDiff = `diff --git a/DESCRIPTION b/DESCRIPTION
index 3f1c2a1..9b2e0d4 100644
--- a/DESCRIPTION
+++ b/DESCRIPTION
@@ -1,4 +1,4 @@
 Package: Foo
 Title: Foo things
-Version: 1.2.3
+Version: 1.2.4
 Depends: R (>= 4.3)
`

func TestParseDiff(t *testing.T) {
	t.Parallel()

	change, err := ParseDiff([]byte(descriptionDiff), DefaultLabel)
	require.NoError(t, err)
	assert.Equal(t, Change{Previous: "1.2.3", Current: "1.2.4"}, change)
}

func TestParseDiff_NoVersionLine(t *testing.T) {
	t.Parallel()

	diff := `--- a/DESCRIPTION
+++ b/DESCRIPTION
@@ -2,2 +2,2 @@
-Title: Foo things
+Title: Foo and bar things
 Version: 1.2.3
`
	change, err := ParseDiff([]byte(diff), "")
	require.NoError(t, err)
	assert.True(t, change.Empty())

	bump, err := change.Decide()
	require.NoError(t, err)
	assert.False(t, bump)
}

func TestParseDiff_Malformed(t *testing.T) {
	t.Parallel()

	for _, value := range []string{"1.2", "1.2.3.4", "1.x.3", "1.2.3-beta", "1.2.3+build", "v1.2.3", "-1.2.3", "1..3", "99999999999999999999.0.0"} {
		t.Run(value, func(t *testing.T) {
			t.Parallel()

			diff := fmt.Sprintf("-Version: 1.2.3\n+Version: %s\n", value)
			_, err := ParseDiff([]byte(diff), DefaultLabel)
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, value, perr.Value)
		})
	}
}

func TestParse_LeadingZeros(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in                  string
		major, minor, patch uint64
	}{
		{in: "1.2.03", major: 1, minor: 2, patch: 3},
		{in: "1.02.3", major: 1, minor: 2, patch: 3},
		{in: "01.2.3", major: 1, minor: 2, patch: 3},
		{in: "1.10.09", major: 1, minor: 10, patch: 9},
		{in: "0.0.0", major: 0, minor: 0, patch: 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			v := mustParse(t, tt.in)
			assert.Equal(t, tt.major, v.Major())
			assert.Equal(t, tt.minor, v.Minor())
			assert.Equal(t, tt.patch, v.Patch())
		})
	}
}

func TestParseDiff_LeadingZeroBump(t *testing.T) {
	t.Parallel()

	change, err := ParseDiff([]byte("-Version: 1.10.09\n+Version: 1.10.10\n"), DefaultLabel)
	require.NoError(t, err)
	assert.Equal(t, Change{Previous: "1.10.09", Current: "1.10.10"}, change)

	bump, err := change.Decide()
	require.NoError(t, err)
	assert.True(t, bump)
}

func TestParseDiff_CustomLabel(t *testing.T) {
	t.Parallel()

	diff := "-version:   0.99.1  \n+version:\t0.99.2\n-Version: 9.9.9\n"
	change, err := ParseDiff([]byte(diff), "version")
	require.NoError(t, err)
	assert.Equal(t, Change{Previous: "0.99.1", Current: "0.99.2"}, change)
}

func TestShouldTriggerBuild_PatchChanged(t *testing.T) {
	t.Parallel()

	tests := []struct{ previous, current string }{
		{"1.2.3", "1.2.4"},
		{"1.2.4", "1.2.3"}, // a decrease triggers too
		{"0.99.0", "0.99.10"},
		{"1.2.3", "2.0.0"},
		{"3.18.9", "3.19.0"},
	}
	for _, tt := range tests {
		t.Run(tt.previous+"->"+tt.current, func(t *testing.T) {
			t.Parallel()
			assert.True(t, ShouldTriggerBuild(mustParse(t, tt.previous), mustParse(t, tt.current)))
		})
	}
}

func TestShouldTriggerBuild_PatchUnchanged(t *testing.T) {
	t.Parallel()

	tests := []struct{ previous, current string }{
		{"1.2.3", "1.3.3"},
		{"1.2.3", "2.2.3"},
		{"1.2.3", "0.0.3"},
		{"1.2.3", "1.2.3"},
	}
	for _, tt := range tests {
		t.Run(tt.previous+"->"+tt.current, func(t *testing.T) {
			t.Parallel()
			assert.False(t, ShouldTriggerBuild(mustParse(t, tt.previous), mustParse(t, tt.current)))
		})
	}
}

func TestChangeDecide(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		change  Change
		want    bool
		wantErr bool
	}{
		{name: "patch bump", change: Change{"1.2.3", "1.2.4"}, want: true},
		{name: "minor bump", change: Change{"1.2.3", "1.3.3"}, want: false},
		{name: "untouched", change: Change{}, want: false},
		{name: "new metadata file", change: Change{Current: "0.99.0"}, want: true},
		{name: "field removed", change: Change{Previous: "1.2.3"}, want: false},
		{name: "bad previous", change: Change{"1.2", "1.2.4"}, wantErr: true},
		{name: "bad current", change: Change{Current: "one.two.three"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.change.Decide()
			if tt.wantErr {
				var perr *ParseError
				require.ErrorAs(t, err, &perr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func mustParse(t *testing.T, s string) *semver.Version {
	t.Helper()
	v, err := Parse(s)
	require.NoError(t, err)
	return v
}
