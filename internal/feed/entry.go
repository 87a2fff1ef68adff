// Package feed maintains the bounded RSS documents listing pushed commits.
package feed

import (
	"strings"

	"github.com/thiagokokada/pushhooks/internal/git"
)

// DefaultLinkBase prefixes every entry link.
const DefaultLinkBase = "https://bioconductor.org/packages/"

// Branch selects the feed document a push is recorded in.
type Branch int

const (
	Devel Branch = iota
	Release
)

func (b Branch) String() string {
	if b == Release {
		return "release"
	}
	return "devel"
}

// ClassifyRef returns Release for refs naming a release branch
// (RELEASE_3_18 and the like) and Devel for everything else.
func ClassifyRef(ref string) Branch {
	if strings.Contains(ref, "RELEASE") {
		return Release
	}
	return Devel
}

// Entry is one feed item.
type Entry struct {
	Title       string
	Link        string
	Description string
	Author      string
	PubDate     string
	GUID        string
}

// Link returns the package page for pkg on branch.
func Link(linkBase, pkg string, branch Branch) string {
	if branch == Devel {
		return linkBase + "devel/" + pkg + "/"
	}
	return linkBase + pkg + "/"
}

// Synthesize turns a push's commits, in the newest-first order returned by
// git.Source.CommitLog, into entries ordered oldest first.
func Synthesize(pkg, ref, linkBase string, commits []git.Commit) []Entry {
	link := Link(linkBase, pkg, ClassifyRef(ref))
	entries := make([]Entry, 0, len(commits))
	for _, c := range git.Reversed(commits) {
		entries = append(entries, Entry{
			Title:       pkg,
			Link:        link,
			Description: c.Message,
			Author:      c.Author.Name + " <" + c.Author.Email + ">",
			PubDate:     c.Author.When.Format(git.PubDateLayout),
			GUID:        c.Hash,
		})
	}
	return entries
}
