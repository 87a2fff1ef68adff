package git

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
)

// Minimum git for the CLI source. Keep this aligned with the flags we use
// (rev-parse --absolute-git-dir arrived in 2.13).
var minGitVersion = semver.New(2, 13, 0, "", "")

func MinGitVersion() string {
	return minGitVersion.String()
}

// parseGitVersionOutput reads the leading numeric part of `git --version`,
// tolerating vendor suffixes such as "2.39.3 (Apple Git-146)" or
// "2.39.3.windows.1".
func parseGitVersionOutput(out string) (*semver.Version, bool) {
	s := strings.TrimSpace(out)
	if idx := strings.Index(s, "git version"); idx >= 0 {
		s = strings.TrimSpace(s[idx+len("git version"):])
	}
	start := strings.IndexAny(s, "0123456789")
	if start < 0 {
		return nil, false
	}
	s = s[start:]
	end := 0
	for end < len(s) && (s[end] == '.' || (s[end] >= '0' && s[end] <= '9')) {
		end++
	}
	parts := strings.Split(strings.Trim(s[:end], "."), ".")
	if len(parts) < 2 {
		return nil, false
	}
	var nums [3]uint64
	for i := 0; i < len(parts) && i < 3; i++ {
		n, err := strconv.ParseUint(parts[i], 10, 64)
		if err != nil {
			return nil, false
		}
		nums[i] = n
	}
	return semver.New(nums[0], nums[1], nums[2], "", ""), true
}

func validateGitVersionOutput(out string) error {
	got, ok := parseGitVersionOutput(out)
	if !ok {
		return fmt.Errorf("unable to parse git version output: %q", strings.TrimSpace(out))
	}
	if got.LessThan(minGitVersion) {
		return fmt.Errorf("git %s is too old; pushhooks requires git >= %s", got, minGitVersion)
	}
	return nil
}

var (
	minGitVersionOnce sync.Once
	minGitVersionErr  error
)

func ensureMinGitVersion(ctx context.Context) error {
	minGitVersionOnce.Do(func() {
		outBytes, err := exec.CommandContext(ctx, "git", "--version").CombinedOutput()
		out := strings.TrimSpace(string(outBytes))
		if err != nil {
			if out != "" {
				minGitVersionErr = fmt.Errorf("git --version: %v: %s", err, out)
				return
			}
			minGitVersionErr = fmt.Errorf("git --version: %w", err)
			return
		}
		minGitVersionErr = validateGitVersionOutput(out)
	})
	return minGitVersionErr
}
