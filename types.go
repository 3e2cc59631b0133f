package spacetravelling

import (
	"time"

	"github.com/eringen/spacetravelling/richtext"
)

// PostSummary is the listing view of a post: identity, publication date and
// the metadata fields fetched for the home page.
type PostSummary struct {
	UID                  string
	FirstPublicationDate *time.Time // nil for unpublished drafts
	Data                 PostMeta
}

// PostMeta is the metadata record shared by summaries and full posts.
type PostMeta struct {
	Title    string
	Subtitle string
	Author   string
}

// Link returns the site path of the post.
func (p PostSummary) Link() string {
	return "/post/" + p.UID
}

// PostDetail is a full post document. Content keeps document order.
type PostDetail struct {
	UID                  string
	FirstPublicationDate *time.Time
	LastPublicationDate  *time.Time
	Data                 PostMeta
	BannerURL            string
	Content              []ContentBlock
}

// Summary returns the listing view of the post.
func (p PostDetail) Summary() PostSummary {
	return PostSummary{UID: p.UID, FirstPublicationDate: p.FirstPublicationDate, Data: p.Data}
}

// ContentBlock is one section of a post body: a heading and its rich text.
type ContentBlock struct {
	Heading string
	Body    []richtext.Block
}

// Page is one page of listing results. An empty Cursor means there are no
// more pages.
type Page struct {
	Items  []PostSummary
	Cursor string
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string
}

// HomePage is everything the listing template needs.
type HomePage struct {
	Site     SiteConfig
	Meta     PageMeta
	Posts    []PostSummary
	NextPage string
	Preview  bool
}

// PostPage is everything the post template needs.
type PostPage struct {
	Site           SiteConfig
	Meta           PageMeta
	Post           PostDetail
	ReadingMinutes int
	BannerSrc      string
	JSONLD         string
	Preview        bool
}
