// Package version decides whether a metadata file change is a release-worthy
// version bump.
//
// Versions follow the package repository's numbering guidelines: the patch
// component is the one bumped for every build-worthy change, so a build is
// triggered only when it differs. Major or minor changes alone never trigger.
package version

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// DefaultLabel is the metadata field holding the version.
const DefaultLabel = "Version"

// ParseError reports a version field whose value is not MAJOR.MINOR.PATCH.
type ParseError struct {
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid version %q: %v", e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Change holds the raw previous and current values of the version field.
// An empty side means the diff has no such line.
type Change struct {
	Previous string
	Current  string
}

// Empty reports whether the diff did not touch the version field.
func (c Change) Empty() bool {
	return c.Previous == "" && c.Current == ""
}

// ParseDiff extracts the removed and added values of the label field from the
// unified diff of a single metadata file.
func ParseDiff(diff []byte, label string) (Change, error) {
	if label == "" {
		label = DefaultLabel
	}
	field := regexp.MustCompile(`^([-+])` + regexp.QuoteMeta(label) + `:[ \t]*(.*?)\s*$`)

	var change Change
	scanner := bufio.NewScanner(bytes.NewReader(diff))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "--- ") || strings.HasPrefix(line, "+++ ") {
			continue
		}
		m := field.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		value := m[2]
		if value == "" {
			return Change{}, &ParseError{Value: value, Err: fmt.Errorf("empty %s field", label)}
		}
		if _, err := Parse(value); err != nil {
			return Change{}, err
		}
		if m[1] == "-" {
			change.Previous = value
		} else {
			change.Current = value
		}
	}
	if err := scanner.Err(); err != nil {
		return Change{}, fmt.Errorf("read diff: %w", err)
	}
	return change, nil
}

var triple = regexp.MustCompile(`^([0-9]+)\.([0-9]+)\.([0-9]+)$`)

// Parse accepts exactly three dot-separated non-negative integers. Leading
// zeros are allowed: "1.10.09" is 1.10.9.
func Parse(s string) (*semver.Version, error) {
	m := triple.FindStringSubmatch(s)
	if m == nil {
		return nil, &ParseError{Value: s, Err: errors.New("want MAJOR.MINOR.PATCH")}
	}
	var nums [3]uint64
	for i, part := range m[1:] {
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, &ParseError{Value: s, Err: err}
		}
		nums[i] = n
	}
	return semver.New(nums[0], nums[1], nums[2], "", ""), nil
}

// ShouldTriggerBuild reports whether the patch component changed. A decrease
// triggers as well; only equality is checked.
func ShouldTriggerBuild(previous, current *semver.Version) bool {
	return previous.Patch() != current.Patch()
}

// Decide applies ShouldTriggerBuild to a change. A version field that only
// appears on the added side (a new metadata file) triggers; one that was
// removed does not.
func (c Change) Decide() (bool, error) {
	switch {
	case c.Empty():
		return false, nil
	case c.Previous == "":
		if _, err := Parse(c.Current); err != nil {
			return false, err
		}
		return true, nil
	case c.Current == "":
		return false, nil
	}
	previous, err := Parse(c.Previous)
	if err != nil {
		return false, err
	}
	current, err := Parse(c.Current)
	if err != nil {
		return false, err
	}
	return ShouldTriggerBuild(previous, current), nil
}
