package atomdoc

import (
	"encoding/xml"
	"fmt"
	"time"
)

// Feed is an Atom feed wrapping a page of entries.
type Feed struct {
	ID      string
	Title   string
	Updated time.Time
	Links   []Link
	Entries []*Document
}

type xmlFeed struct {
	XMLName xml.Name   `xml:"http://www.w3.org/2005/Atom feed"`
	ID      string     `xml:"http://www.w3.org/2005/Atom id,omitempty"`
	Title   string     `xml:"http://www.w3.org/2005/Atom title,omitempty"`
	Updated string     `xml:"http://www.w3.org/2005/Atom updated,omitempty"`
	Links   []Link     `xml:"http://www.w3.org/2005/Atom link"`
	Entries []xmlEntry `xml:"http://www.w3.org/2005/Atom entry"`
}

// Bytes serializes the feed document.
func (f *Feed) Bytes() ([]byte, error) {
	out := xmlFeed{
		ID:      f.ID,
		Title:   f.Title,
		Updated: formatTime(f.Updated),
		Links:   f.Links,
	}
	for _, d := range f.Entries {
		out.Entries = append(out.Entries, xmlEntry{
			ID:         d.ID,
			Title:      d.Title,
			Published:  formatTime(d.Published),
			Updated:    formatTime(d.Updated),
			Edited:     formatTime(d.Edited),
			Author:     d.Author,
			Categories: d.Categories,
			Links:      d.Links,
			Content:    d.Content,
		})
	}
	data, err := xml.MarshalIndent(&out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("atomdoc: serialize feed: %w", err)
	}
	return append([]byte(xml.Header), data...), nil
}

// ParseFeed decodes an Atom feed document.
func ParseFeed(data []byte) (*Feed, error) {
	var raw xmlFeed
	if err := xml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("atomdoc: parse feed: %w", err)
	}
	f := &Feed{
		ID:    raw.ID,
		Title: raw.Title,
		Links: raw.Links,
	}
	var err error
	if f.Updated, err = parseTime(raw.Updated); err != nil {
		return nil, err
	}
	for _, e := range raw.Entries {
		d := &Document{
			ID:         e.ID,
			Title:      e.Title,
			Author:     e.Author,
			Categories: e.Categories,
			Links:      e.Links,
			Content:    e.Content,
		}
		if d.Published, err = parseTime(e.Published); err != nil {
			return nil, err
		}
		if d.Updated, err = parseTime(e.Updated); err != nil {
			return nil, err
		}
		if d.Edited, err = parseTime(e.Edited); err != nil {
			return nil, err
		}
		f.Entries = append(f.Entries, d)
	}
	return f, nil
}
