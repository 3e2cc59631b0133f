package spacetravelling

import (
	"context"
	"fmt"

	"github.com/eringen/spacetravelling/prismic"
	"github.com/eringen/spacetravelling/richtext"
)

// ContentSource is the slice of the content API the site depends on.
// *prismic.Client satisfies it; tests substitute an in-memory fake.
type ContentSource interface {
	QueryByType(ctx context.Context, docType string, q prismic.Query) (prismic.Response, error)
	GetByUID(ctx context.Context, docType, uid, ref string) (prismic.Document, error)
	ResolvePreview(ctx context.Context, token, documentID string) (prismic.Document, error)
	// FetchPage replays an opaque next_page cursor.
	FetchPage(ctx context.Context, cursor string) (prismic.Response, error)
}

type summaryFields struct {
	Title    prismic.Text `json:"title"`
	Subtitle prismic.Text `json:"subtitle"`
	Author   prismic.Text `json:"author"`
}

type postFields struct {
	summaryFields
	Banner struct {
		URL string `json:"url"`
	} `json:"banner"`
	Content []struct {
		Heading prismic.Text     `json:"heading"`
		Body    []richtext.Block `json:"body"`
	} `json:"content"`
}

func summaryFromDocument(doc prismic.Document) (PostSummary, error) {
	var f summaryFields
	if err := doc.DecodeData(&f); err != nil {
		return PostSummary{}, fmt.Errorf("decode post %q: %w", doc.UID, err)
	}
	return PostSummary{
		UID:                  doc.UID,
		FirstPublicationDate: doc.FirstPublished(),
		Data: PostMeta{
			Title:    f.Title.String(),
			Subtitle: f.Subtitle.String(),
			Author:   f.Author.String(),
		},
	}, nil
}

func summariesFromResponse(resp prismic.Response) ([]PostSummary, error) {
	items := make([]PostSummary, 0, len(resp.Results))
	for _, doc := range resp.Results {
		s, err := summaryFromDocument(doc)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, nil
}

func detailFromDocument(doc prismic.Document) (PostDetail, error) {
	var f postFields
	if err := doc.DecodeData(&f); err != nil {
		return PostDetail{}, fmt.Errorf("decode post %q: %w", doc.UID, err)
	}
	blocks := make([]ContentBlock, 0, len(f.Content))
	for _, c := range f.Content {
		blocks = append(blocks, ContentBlock{Heading: c.Heading.String(), Body: c.Body})
	}
	return PostDetail{
		UID:                  doc.UID,
		FirstPublicationDate: doc.FirstPublished(),
		LastPublicationDate:  doc.LastPublished(),
		Data: PostMeta{
			Title:    f.Title.String(),
			Subtitle: f.Subtitle.String(),
			Author:   f.Author.String(),
		},
		BannerURL: f.Banner.URL,
		Content:   blocks,
	}, nil
}
