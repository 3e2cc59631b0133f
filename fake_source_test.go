package spacetravelling

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"github.com/eringen/spacetravelling/prismic"
)

// fakeSource is an in-memory ContentSource. Listing pages are addressed by
// cursors of the form "cursor:<ref>:<page>".
type fakeSource struct {
	mu       sync.Mutex
	pages    map[string][][]prismic.Document // ref -> pages
	posts    map[string]map[string]prismic.Document
	previews map[string]prismic.Document // token+"|"+docID
	failNext error

	queryRefs []string
	uidRefs   []string
	fetched   []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		pages:    map[string][][]prismic.Document{},
		posts:    map[string]map[string]prismic.Document{},
		previews: map[string]prismic.Document{},
	}
}

func summaryDoc(uid, title string) prismic.Document {
	data, _ := json.Marshal(map[string]string{"title": title, "subtitle": title + " sub", "author": "Ana"})
	return prismic.Document{UID: uid, Type: "posts", FirstPublicationDate: "2021-03-25T19:25:28+0000", Data: data}
}

func postDoc(uid string, content []map[string]any) prismic.Document {
	data, _ := json.Marshal(map[string]any{
		"title":   "Title " + uid,
		"author":  "Ana",
		"banner":  map[string]string{"url": "https://images.prismic.io/banner.png"},
		"content": content,
	})
	return prismic.Document{
		UID:                  uid,
		Type:                 "posts",
		FirstPublicationDate: "2021-03-25T19:25:28+0000",
		LastPublicationDate:  "2021-03-26T10:00:00+0000",
		Data:                 data,
	}
}

func (f *fakeSource) addPages(ref string, pages ...[]prismic.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[ref] = pages
}

func (f *fakeSource) addPost(ref string, doc prismic.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.posts[ref] == nil {
		f.posts[ref] = map[string]prismic.Document{}
	}
	f.posts[ref][doc.UID] = doc
}

func (f *fakeSource) failOnce(err error) {
	f.mu.Lock()
	f.failNext = err
	f.mu.Unlock()
}

func (f *fakeSource) takeFailure() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeSource) response(ref string, page int) prismic.Response {
	pages := f.pages[ref]
	if page >= len(pages) {
		return prismic.Response{Page: page + 1}
	}
	resp := prismic.Response{Page: page + 1, Results: pages[page]}
	if page+1 < len(pages) {
		resp.NextPage = fmt.Sprintf("cursor:%s:%d", ref, page+1)
	}
	return resp
}

func (f *fakeSource) QueryByType(ctx context.Context, docType string, q prismic.Query) (prismic.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryRefs = append(f.queryRefs, q.Ref)
	if err := f.takeFailure(); err != nil {
		return prismic.Response{}, err
	}
	return f.response(q.Ref, 0), nil
}

func (f *fakeSource) GetByUID(ctx context.Context, docType, uid, ref string) (prismic.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uidRefs = append(f.uidRefs, ref)
	if err := f.takeFailure(); err != nil {
		return prismic.Document{}, err
	}
	doc, ok := f.posts[ref][uid]
	if !ok {
		return prismic.Document{}, prismic.ErrNotFound
	}
	return doc, nil
}

func (f *fakeSource) ResolvePreview(ctx context.Context, token, documentID string) (prismic.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.previews[token+"|"+documentID]
	if !ok {
		return prismic.Document{}, prismic.ErrNotFound
	}
	return doc, nil
}

func (f *fakeSource) FetchPage(ctx context.Context, cursor string) (prismic.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, cursor)
	if err := f.takeFailure(); err != nil {
		return prismic.Response{}, err
	}
	parts := strings.Split(cursor, ":")
	if len(parts) != 3 || parts[0] != "cursor" {
		return prismic.Response{}, prismic.ErrForeignCursor
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil {
		return prismic.Response{}, errors.New("bad cursor")
	}
	return f.response(parts[1], n), nil
}
