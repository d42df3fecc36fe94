// Package atomdoc implements the Atom (RFC 4287) entry and feed document
// model used by the store and index, including the app:edited extension
// from RFC 5023.
package atomdoc

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// XML namespaces.
const (
	AtomNS = "http://www.w3.org/2005/Atom"
	AppNS  = "http://www.w3.org/2007/app"
)

// Person is an Atom author/contributor construct.
type Person struct {
	Name  string `xml:"http://www.w3.org/2005/Atom name"`
	Email string `xml:"http://www.w3.org/2005/Atom email,omitempty"`
	URI   string `xml:"http://www.w3.org/2005/Atom uri,omitempty"`
}

// Full returns the concatenated text of the person's fields, used for
// author substring queries.
func (p *Person) Full() string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(strings.Join([]string{p.Name, p.Email, p.URI}, " "))
}

// Category is an atom:category element.
type Category struct {
	Term   string `xml:"term,attr"`
	Scheme string `xml:"scheme,attr,omitempty"`
	Label  string `xml:"label,attr,omitempty"`
}

// Link is an atom:link element. An empty Rel is read as "alternate".
type Link struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr,omitempty"`
	Type  string `xml:"type,attr,omitempty"`
	Title string `xml:"title,attr,omitempty"`
}

// Content is an atom:content element, either inline (Body) or out of
// line (Src, for media link entries).
type Content struct {
	Type string `xml:"type,attr,omitempty"`
	Src  string `xml:"src,attr,omitempty"`
	Body string `xml:",chardata"`
}

// Document is a single Atom entry. Zero time values mean the element is
// absent.
type Document struct {
	ID         string
	Title      string
	Published  time.Time
	Updated    time.Time
	Edited     time.Time // app:edited, refreshed on every mutating save
	Author     *Person
	Categories []Category
	Links      []Link
	Content    *Content
}

// xmlEntry is the wire shape of a Document.
type xmlEntry struct {
	XMLName    xml.Name   `xml:"http://www.w3.org/2005/Atom entry"`
	ID         string     `xml:"http://www.w3.org/2005/Atom id,omitempty"`
	Title      string     `xml:"http://www.w3.org/2005/Atom title,omitempty"`
	Published  string     `xml:"http://www.w3.org/2005/Atom published,omitempty"`
	Updated    string     `xml:"http://www.w3.org/2005/Atom updated,omitempty"`
	Edited     string     `xml:"http://www.w3.org/2007/app edited,omitempty"`
	Author     *Person    `xml:"http://www.w3.org/2005/Atom author"`
	Categories []Category `xml:"http://www.w3.org/2005/Atom category"`
	Links      []Link     `xml:"http://www.w3.org/2005/Atom link"`
	Content    *Content   `xml:"http://www.w3.org/2005/Atom content"`
}

// Parse decodes an Atom entry document.
func Parse(data []byte) (*Document, error) {
	var e xmlEntry
	if err := xml.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("atomdoc: parse entry: %w", err)
	}
	d := &Document{
		ID:         e.ID,
		Title:      e.Title,
		Author:     e.Author,
		Categories: e.Categories,
		Links:      e.Links,
		Content:    e.Content,
	}
	var err error
	if d.Published, err = parseTime(e.Published); err != nil {
		return nil, err
	}
	if d.Updated, err = parseTime(e.Updated); err != nil {
		return nil, err
	}
	if d.Edited, err = parseTime(e.Edited); err != nil {
		return nil, err
	}
	return d, nil
}

// Bytes serializes the document as an Atom entry.
func (d *Document) Bytes() ([]byte, error) {
	e := xmlEntry{
		ID:         d.ID,
		Title:      d.Title,
		Published:  formatTime(d.Published),
		Updated:    formatTime(d.Updated),
		Edited:     formatTime(d.Edited),
		Author:     d.Author,
		Categories: d.Categories,
		Links:      d.Links,
		Content:    d.Content,
	}
	out, err := xml.MarshalIndent(&e, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("atomdoc: serialize entry: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	out := *d
	if d.Author != nil {
		a := *d.Author
		out.Author = &a
	}
	if d.Content != nil {
		c := *d.Content
		out.Content = &c
	}
	out.Categories = append([]Category(nil), d.Categories...)
	out.Links = append([]Link(nil), d.Links...)
	return &out
}

// LinksByRel returns all links whose relation matches rel. An absent rel
// attribute counts as "alternate".
func (d *Document) LinksByRel(rel string) []Link {
	var out []Link
	for _, l := range d.Links {
		r := l.Rel
		if r == "" {
			r = "alternate"
		}
		if r == rel {
			out = append(out, l)
		}
	}
	return out
}

// SetEditLink removes every rel=edit link whose href differs from href and
// ensures exactly one rel=edit link pointing at href remains.
func (d *Document) SetEditLink(href string) {
	kept := d.Links[:0]
	found := false
	for _, l := range d.Links {
		if l.Rel == "edit" {
			if l.Href != href {
				continue
			}
			found = true
		}
		kept = append(kept, l)
	}
	d.Links = kept
	if !found {
		d.Links = append(d.Links, Link{Rel: "edit", Href: href})
	}
}

// TouchEdited refreshes the app:edited timestamp.
func (d *Document) TouchEdited(now time.Time) {
	d.Edited = now.UTC()
}

// MakeID assigns a urn:uuid identifier when the entry has none.
func (d *Document) MakeID() {
	if d.ID == "" {
		d.ID = "urn:uuid:" + uuid.NewString()
	}
}

// FullText returns a flattened text projection of the whole entry, used
// for free-text matching.
func (d *Document) FullText() string {
	parts := []string{d.ID, d.Title}
	if d.Content != nil {
		parts = append(parts, d.Content.Body)
	}
	parts = append(parts, d.Author.Full())
	for _, c := range d.Categories {
		parts = append(parts, c.Term, c.Label)
	}
	for _, l := range d.Links {
		parts = append(parts, l.Title)
	}
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p)
	}
	return b.String()
}

// ContentText returns the inline content body, or empty when the content
// is out of line.
func (d *Document) ContentText() string {
	if d.Content == nil {
		return ""
	}
	return d.Content.Body
}

const secondsFormat = "2006-01-02T15:04:05"

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(secondsFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("atomdoc: bad timestamp %q: %w", s, err)
	}
	return t, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
