package spacetravelling

import (
	"context"
	"errors"

	"github.com/eringen/spacetravelling/prismic"
)

// ErrNoMorePages is returned by FetchNextPage once the cursor is exhausted.
var ErrNoMorePages = errors.New("no more pages")

// Paginator accumulates listing pages for one view. Items are appended in the
// order the API returns them and are never reordered or deduplicated. A
// Paginator is owned by a single caller and is not safe for concurrent use.
type Paginator struct {
	src      ContentSource
	docType  string
	pageSize int

	items  []PostSummary
	cursor string
}

// NewPaginator returns a Paginator listing docType documents pageSize at a time.
func NewPaginator(src ContentSource, docType string, pageSize int) *Paginator {
	return &Paginator{src: src, docType: docType, pageSize: pageSize}
}

// ResumePaginator continues a listing from a cursor returned by an earlier page.
func ResumePaginator(src ContentSource, cursor string) *Paginator {
	return &Paginator{src: src, cursor: cursor}
}

// FetchInitialPage loads the first page of the listing. ref selects a preview
// revision; empty means the published content.
func (p *Paginator) FetchInitialPage(ctx context.Context, ref string) (Page, error) {
	resp, err := p.src.QueryByType(ctx, p.docType, prismic.Query{
		Fetch: []string{
			p.docType + ".title",
			p.docType + ".subtitle",
			p.docType + ".author",
		},
		PageSize: p.pageSize,
		Ref:      ref,
	})
	if err != nil {
		return Page{}, err
	}
	p.items = nil
	return p.accept(resp)
}

// FetchNextPage follows the current cursor. On failure the accumulated items
// and the cursor are left untouched, so the call can be retried.
func (p *Paginator) FetchNextPage(ctx context.Context) (Page, error) {
	if p.cursor == "" {
		return Page{}, ErrNoMorePages
	}
	resp, err := p.src.FetchPage(ctx, p.cursor)
	if err != nil {
		return Page{}, err
	}
	return p.accept(resp)
}

func (p *Paginator) accept(resp prismic.Response) (Page, error) {
	items, err := summariesFromResponse(resp)
	if err != nil {
		return Page{}, err
	}
	p.items = append(p.items, items...)
	p.cursor = resp.NextPage
	return Page{Items: items, Cursor: resp.NextPage}, nil
}

// Items returns everything fetched so far, in fetch order.
func (p *Paginator) Items() []PostSummary {
	return p.items
}

// Cursor returns the cursor of the next page, or "" when the listing is done.
func (p *Paginator) Cursor() string {
	return p.cursor
}

// Done reports whether the listing has no further pages.
func (p *Paginator) Done() bool {
	return p.cursor == ""
}

// Drain follows cursors until the listing ends or maxPages pages have been
// fetched in total, returning everything accumulated.
func (p *Paginator) Drain(ctx context.Context, ref string, maxPages int) ([]PostSummary, error) {
	if _, err := p.FetchInitialPage(ctx, ref); err != nil {
		return nil, err
	}
	for n := 1; n < maxPages && !p.Done(); n++ {
		if _, err := p.FetchNextPage(ctx); err != nil {
			return p.items, err
		}
	}
	return p.items, nil
}
