package feed

import (
	"bytes"
	"errors"
	"strings"

	"github.com/beevik/etree"
)

// DefaultLength is the number of items a feed keeps.
const DefaultLength = 499

var errNoChannel = errors.New("document has no rss/channel element")

// Header is the static channel metadata written to a new document.
type Header struct {
	Title       string
	Link        string
	Description string
	Language    string
}

// Document is an RSS 2.0 document: a channel header followed by items,
// newest first.
type Document struct {
	doc     *etree.Document
	channel *etree.Element
}

// NewDocument returns an empty feed with h as its channel header.
func NewDocument(h Header) *Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	rss := doc.CreateElement("rss")
	rss.CreateAttr("version", "2.0")
	channel := rss.CreateElement("channel")
	channel.CreateElement("title").SetText(h.Title)
	channel.CreateElement("link").SetText(h.Link)
	channel.CreateElement("description").SetText(h.Description)
	if h.Language != "" {
		channel.CreateElement("language").SetText(h.Language)
	}
	return &Document{doc: doc, channel: channel}
}

// ParseDocument reads a feed. Blank input yields NewDocument(h).
func ParseDocument(b []byte, h Header) (*Document, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return NewDocument(h), nil
	}
	doc := etree.NewDocument()
	doc.ReadSettings.PreserveCData = true
	if err := doc.ReadFromBytes(b); err != nil {
		return nil, err
	}
	channel := doc.FindElement("rss/channel")
	if channel == nil {
		return nil, errNoChannel
	}
	return &Document{doc: doc, channel: channel}, nil
}

// InsertAfterHeader adds e as the first item, right after the channel
// header.
func (d *Document) InsertAfterHeader(e Entry) {
	item := newItem(e)
	for i, tok := range d.channel.Child {
		if el, ok := tok.(*etree.Element); ok && el.Tag == "item" {
			d.channel.InsertChildAt(i, item)
			return
		}
	}
	d.channel.AddChild(item)
}

// Len returns the number of items.
func (d *Document) Len() int {
	return len(d.channel.SelectElements("item"))
}

// Truncate removes items past the first n and returns how many it dropped.
func (d *Document) Truncate(n int) int {
	items := d.channel.SelectElements("item")
	if len(items) <= n {
		return 0
	}
	for _, item := range items[n:] {
		d.channel.RemoveChild(item)
	}
	return len(items) - n
}

// Entries returns the items in document order.
func (d *Document) Entries() []Entry {
	items := d.channel.SelectElements("item")
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		entries = append(entries, Entry{
			Title:       childText(item, "title"),
			Link:        childText(item, "link"),
			Description: strings.TrimSuffix(strings.TrimPrefix(childText(item, "description"), " "), " "),
			Author:      strings.TrimSuffix(strings.TrimPrefix(childText(item, "author"), " "), " "),
			PubDate:     childText(item, "pubDate"),
			GUID:        childText(item, "guid"),
		})
	}
	return entries
}

// Bytes indents the document with two spaces and serializes it with a
// trailing newline.
func (d *Document) Bytes() ([]byte, error) {
	d.doc.Indent(2)
	b, err := d.doc.WriteToBytes()
	if err != nil {
		return nil, err
	}
	if !bytes.HasSuffix(b, []byte("\n")) {
		b = append(b, '\n')
	}
	return b, nil
}

func newItem(e Entry) *etree.Element {
	item := etree.NewElement("item")
	item.CreateElement("title").SetText(e.Title)
	item.CreateElement("link").SetText(e.Link)
	addCData(item.CreateElement("description"), " "+e.Description+" ")
	addCData(item.CreateElement("author"), " "+e.Author+" ")
	item.CreateElement("pubDate").SetText(e.PubDate)
	item.CreateElement("guid").SetText(e.GUID)
	return item
}

// addCData writes s as CDATA, splitting sections around "]]>" so any
// message survives.
func addCData(el *etree.Element, s string) {
	parts := strings.Split(s, "]]>")
	for i, p := range parts {
		if i > 0 {
			p = ">" + p
		}
		if i < len(parts)-1 {
			p += "]]"
		}
		el.CreateCData(p)
	}
}

func childText(el *etree.Element, tag string) string {
	child := el.SelectElement(tag)
	if child == nil {
		return ""
	}
	var b strings.Builder
	for _, tok := range child.Child {
		if cd, ok := tok.(*etree.CharData); ok {
			b.WriteString(cd.Data)
		}
	}
	return b.String()
}
