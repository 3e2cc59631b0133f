package prismic

import (
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Ref is a content revision advertised by the API root.
type Ref struct {
	ID          string `json:"id"`
	Ref         string `json:"ref"`
	Label       string `json:"label"`
	IsMasterRef bool   `json:"isMasterRef"`
}

type apiRoot struct {
	Refs []Ref `json:"refs"`
}

// Document is a single search result. Data is left raw so callers decode
// only the custom type fields they asked for.
type Document struct {
	ID                   string          `json:"id"`
	UID                  string          `json:"uid"`
	Type                 string          `json:"type"`
	Href                 string          `json:"href"`
	Tags                 []string        `json:"tags"`
	Lang                 string          `json:"lang"`
	FirstPublicationDate string          `json:"first_publication_date"`
	LastPublicationDate  string          `json:"last_publication_date"`
	Data                 json.RawMessage `json:"data"`
}

// FirstPublished returns the first publication time, or nil for drafts.
func (d Document) FirstPublished() *time.Time {
	return ParseTime(d.FirstPublicationDate)
}

// LastPublished returns the last publication time, or nil for drafts.
func (d Document) LastPublished() *time.Time {
	return ParseTime(d.LastPublicationDate)
}

// DecodeData unmarshals the document's custom fields into v.
func (d Document) DecodeData(v any) error {
	if len(d.Data) == 0 {
		return nil
	}
	return json.Unmarshal(d.Data, v)
}

// Response is one page of search results. NextPage is the opaque cursor for
// the following page and is empty on the last page.
type Response struct {
	Page             int        `json:"page"`
	ResultsPerPage   int        `json:"results_per_page"`
	ResultsSize      int        `json:"results_size"`
	TotalResultsSize int        `json:"total_results_size"`
	TotalPages       int        `json:"total_pages"`
	NextPage         string     `json:"next_page"`
	PrevPage         string     `json:"prev_page"`
	Results          []Document `json:"results"`
}

// Query describes a documents/search call.
type Query struct {
	Predicates []string
	Fetch      []string
	Orderings  string
	PageSize   int
	Page       int
	Ref        string // empty selects the master ref
}

// Text is a text field that may be stored either as a plain string (key text)
// or as a rich-text array; the latter is flattened to its joined text.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		*t = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var blocks []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(b, &blocks); err != nil {
		return err
	}
	parts := make([]string, 0, len(blocks))
	for _, bl := range blocks {
		parts = append(parts, bl.Text)
	}
	*t = Text(strings.Join(parts, " "))
	return nil
}

func (t Text) String() string { return string(t) }

var timeLayouts = []string{
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
	"2006-01-02",
}

// ParseTime parses a Prismic timestamp. Empty or malformed values yield nil.
func ParseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
