package spacetravelling

import (
	"context"
	"errors"

	"github.com/eringen/spacetravelling/prismic"
	"github.com/eringen/spacetravelling/richtext"
)

// ErrNotFound is returned when a requested post does not exist.
var ErrNotFound = prismic.ErrNotFound

const (
	wordsPerMinute = 200
	pathsPageSize  = 100
)

// PostResolver loads post documents of one custom type.
type PostResolver struct {
	src     ContentSource
	docType string
}

// NewPostResolver returns a resolver for docType documents.
func NewPostResolver(src ContentSource, docType string) *PostResolver {
	return &PostResolver{src: src, docType: docType}
}

// ResolvePostPaths lists the slugs of the first page of published posts,
// used to pre-render detail pages.
func (r *PostResolver) ResolvePostPaths(ctx context.Context) ([]string, error) {
	resp, err := r.src.QueryByType(ctx, r.docType, prismic.Query{PageSize: pathsPageSize})
	if err != nil {
		return nil, err
	}
	slugs := make([]string, 0, len(resp.Results))
	for _, doc := range resp.Results {
		if doc.UID != "" {
			slugs = append(slugs, doc.UID)
		}
	}
	return slugs, nil
}

// FetchPostBySlug loads the post with the given slug from the revision named
// by ref ("" for published content). A missing post yields ErrNotFound.
func (r *PostResolver) FetchPostBySlug(ctx context.Context, slug, ref string) (PostDetail, error) {
	doc, err := r.src.GetByUID(ctx, r.docType, slug, ref)
	if err != nil {
		if errors.Is(err, prismic.ErrNotFound) {
			return PostDetail{}, ErrNotFound
		}
		return PostDetail{}, err
	}
	return detailFromDocument(doc)
}

// WordCount sums whitespace-delimited words of every heading and body span.
func WordCount(post PostDetail) int {
	total := 0
	for _, block := range post.Content {
		total += richtext.Words([]richtext.Block{{Text: block.Heading}})
		total += richtext.Words(block.Body)
	}
	return total
}

// ReadingTime estimates minutes to read post at 200 words per minute, rounded up.
func ReadingTime(post PostDetail) int {
	w := WordCount(post)
	return (w + wordsPerMinute - 1) / wordsPerMinute
}
