package spacetravelling

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"

	"github.com/eringen/spacetravelling/prismic"
)

func textComponent(s string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	})
}

func summaryUIDs(posts []PostSummary) string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.UID
	}
	return strings.Join(out, ",")
}

func stubViews() ViewFuncs {
	return ViewFuncs{
		Home: func(p HomePage) templ.Component {
			return textComponent("home:" + summaryUIDs(p.Posts) + "|next=" + p.NextPage + "|preview=" + strconv.FormatBool(p.Preview))
		},
		PostList: func(posts []PostSummary) templ.Component {
			return textComponent("list:" + summaryUIDs(posts))
		},
		Post: func(p PostPage) templ.Component {
			return textComponent("post:" + p.Post.UID + "|min=" + strconv.Itoa(p.ReadingMinutes) + "|banner=" + p.BannerSrc + "|preview=" + strconv.FormatBool(p.Preview))
		},
		PostLoading:     func(SiteConfig) templ.Component { return textComponent("loading") },
		PreviewRedirect: func(target string) templ.Component { return textComponent("redirect:" + target) },
		NotFound:        func() templ.Component { return textComponent("not found") },
		ServerError:     func() templ.Component { return textComponent("server error") },
	}
}

func newTestApp(t *testing.T, src *fakeSource) *App {
	t.Helper()
	a := New(SiteConfig{
		Name:          "Blog",
		URL:           "https://blog.example",
		DatabasePath:  filepath.Join(t.TempDir(), "pages.db"),
		APIEndpoint:   "https://repo.cdn.prismic.io/api/v2",
		SessionSecret: "test-secret",
		LogLevel:      "off",
		BannerProxy:   true,
	}, stubViews(), WithContentSource(src), WithStaticDir(t.TempDir()))
	if err := a.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func serve(a *App, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

func get(a *App, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return serve(a, req)
}

func previewCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == previewSession {
			return c
		}
	}
	t.Fatalf("no %s cookie in response, headers: %v", previewSession, rec.Header())
	return nil
}

func waitForPage(t *testing.T, a *App, path string) GeneratedPage {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if p, ok := a.Pages.Lookup(path); ok {
			return p
		}
		if time.Now().After(deadline) {
			t.Fatalf("page %s was never generated", path)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func paragraphContent(heading, text string) []map[string]any {
	return []map[string]any{{
		"heading": heading,
		"body":    []map[string]any{{"type": "paragraph", "text": text, "spans": []any{}}},
	}}
}

func TestInitRequiresSessionSecret(t *testing.T) {
	a := New(SiteConfig{DatabasePath: filepath.Join(t.TempDir(), "pages.db")}, stubViews(), WithContentSource(newFakeSource()))
	if err := a.Init(); err == nil {
		t.Fatal("expected error without a session secret")
	}
}

func TestPreviewSetsCookieAndRedirects(t *testing.T) {
	src := newFakeSource()
	src.previews["tok|doc1"] = summaryDoc("my-slug", "Mine")
	a := newTestApp(t, src)

	rec := get(a, "/api/preview?token=tok&documentId=doc1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), "redirect:/post/my-slug") {
		t.Errorf("body = %q", rec.Body)
	}
	c := previewCookie(t, rec)
	if !c.HttpOnly {
		t.Error("preview cookie should be HttpOnly")
	}
}

func TestPreviewTargetFallsBackToHome(t *testing.T) {
	src := newFakeSource()
	doc := summaryDoc("about", "About")
	doc.Type = "page"
	src.previews["tok|doc2"] = doc
	a := newTestApp(t, src)

	rec := get(a, "/api/preview?token=tok&documentId=doc2")
	if got := rec.Body.String(); got != "redirect:/" {
		t.Errorf("body = %q, want redirect:/", got)
	}
}

func TestPreviewRejectsInvalidToken(t *testing.T) {
	a := newTestApp(t, newFakeSource())

	rec := get(a, "/api/preview?token=bogus&documentId=doc1")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"message":"Invalid token"}` {
		t.Errorf("body = %s", got)
	}
	if h := rec.Header().Get("Set-Cookie"); h != "" {
		t.Errorf("unexpected Set-Cookie %q", h)
	}
}

func TestPreviewFailuresAreRateLimited(t *testing.T) {
	a := newTestApp(t, newFakeSource())
	for i := 0; i < 10; i++ {
		if rec := get(a, "/api/preview?token=bogus&documentId=x"); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status = %d", i, rec.Code)
		}
	}
	if rec := get(a, "/api/preview?token=bogus&documentId=x"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
}

func TestPreviewModeUsesRefAndBypassesCache(t *testing.T) {
	src := newFakeSource()
	src.previews["tok|doc1"] = summaryDoc("draft", "Draft")
	src.addPages("", []prismic.Document{summaryDoc("published", "Published")})
	src.addPages("tok", []prismic.Document{summaryDoc("draft", "Draft"), summaryDoc("published", "Published")})
	src.addPost("tok", postDoc("draft", paragraphContent("Intro", "one two")))
	a := newTestApp(t, src)

	cookie := previewCookie(t, get(a, "/api/preview?token=tok&documentId=doc1"))

	rec := get(a, "/", cookie)
	if got := rec.Body.String(); got != "home:draft,published|next=|preview=true" {
		t.Errorf("home body = %q", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "private, no-store" {
		t.Errorf("Cache-Control = %q", got)
	}
	if _, ok := a.Pages.Lookup("/"); ok {
		t.Error("preview render was stored in the page cache")
	}

	rec = get(a, "/post/draft", cookie)
	if !strings.HasPrefix(rec.Body.String(), "post:draft|") || !strings.HasSuffix(rec.Body.String(), "|preview=true") {
		t.Errorf("post body = %q", rec.Body)
	}
	if _, ok := a.Pages.Lookup("/post/draft"); ok {
		t.Error("preview post was stored in the page cache")
	}

	src.mu.Lock()
	defer src.mu.Unlock()
	if len(src.queryRefs) == 0 || src.queryRefs[len(src.queryRefs)-1] != "tok" {
		t.Errorf("query refs = %q", src.queryRefs)
	}
	if len(src.uidRefs) == 0 || src.uidRefs[len(src.uidRefs)-1] != "tok" {
		t.Errorf("uid refs = %q", src.uidRefs)
	}
}

func TestExitPreviewClearsCookie(t *testing.T) {
	src := newFakeSource()
	src.previews["tok|doc1"] = summaryDoc("a", "A")
	src.addPages("", []prismic.Document{summaryDoc("a", "A")})
	a := newTestApp(t, src)

	cookie := previewCookie(t, get(a, "/api/preview?token=tok&documentId=doc1"))

	rec := get(a, "/api/exit-preview", cookie)
	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("Location = %q", loc)
	}
	if cleared := previewCookie(t, rec); cleared.MaxAge >= 0 {
		t.Errorf("cookie MaxAge = %d, want expired", cleared.MaxAge)
	}

	rec = get(a, "/")
	if got := rec.Body.String(); got != "home:a|next=|preview=false" {
		t.Errorf("home body = %q", got)
	}
	src.mu.Lock()
	defer src.mu.Unlock()
	if last := src.queryRefs[len(src.queryRefs)-1]; last != "" {
		t.Errorf("query ref after exit = %q, want master", last)
	}
}

func TestHomeCarriesCursor(t *testing.T) {
	src := newFakeSource()
	src.addPages("", []prismic.Document{summaryDoc("a", "A")}, []prismic.Document{summaryDoc("b", "B")})
	a := newTestApp(t, src)

	rec := get(a, "/")
	if got := rec.Body.String(); got != "home:a|next=cursor::1|preview=false" {
		t.Errorf("home body = %q", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "public, max-age=0, must-revalidate" {
		t.Errorf("Cache-Control = %q", got)
	}
}

func TestUnknownPostFallsBackThenRedirects(t *testing.T) {
	a := newTestApp(t, newFakeSource())

	rec := get(a, "/post/missing")
	if rec.Code != http.StatusOK || rec.Body.String() != "loading" {
		t.Fatalf("first request: %d %q", rec.Code, rec.Body)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("fallback Cache-Control = %q", got)
	}

	p := waitForPage(t, a, "/post/missing")
	if p.Status != http.StatusTemporaryRedirect || p.Location != "/" {
		t.Fatalf("stored page = %+v", p)
	}
	rec = get(a, "/post/missing")
	if rec.Code != http.StatusTemporaryRedirect || rec.Header().Get("Location") != "/" {
		t.Errorf("second request: %d Location %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestPostFallbackThenGeneratedPage(t *testing.T) {
	src := newFakeSource()
	src.addPost("", postDoc("hello", paragraphContent("Intro", "one two three")))
	a := newTestApp(t, src)

	if rec := get(a, "/post/hello"); rec.Body.String() != "loading" {
		t.Fatalf("first request body = %q", rec.Body)
	}
	waitForPage(t, a, "/post/hello")

	rec := get(a, "/post/hello")
	want := "post:hello|min=1|banner=/banner?src=https%3A%2F%2Fimages.prismic.io%2Fbanner.png|preview=false"
	if rec.Code != http.StatusOK || rec.Body.String() != want {
		t.Errorf("got %d %q, want %q", rec.Code, rec.Body, want)
	}
}

func TestBuildPrerendersEveryPath(t *testing.T) {
	src := newFakeSource()
	src.addPages("", []prismic.Document{summaryDoc("a", "A"), summaryDoc("b", "B")})
	src.addPost("", postDoc("a", paragraphContent("A", "a")))
	src.addPost("", postDoc("b", paragraphContent("B", "b")))
	a := newTestApp(t, src)

	if err := a.Build(context.Background()); err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, path := range []string{"/", "/post/a", "/post/b"} {
		if _, ok := a.Pages.Lookup(path); !ok {
			t.Errorf("%s not pre-rendered", path)
		}
	}
	if rec := get(a, "/post/a"); !strings.HasPrefix(rec.Body.String(), "post:a|") {
		t.Errorf("pre-rendered post body = %q", rec.Body)
	}
}

func TestBuildFailsOnUpstreamError(t *testing.T) {
	src := newFakeSource()
	src.failOnce(errors.New("upstream down"))
	a := newTestApp(t, src)

	if err := a.Build(context.Background()); err == nil {
		t.Fatal("expected build error")
	}
	if a.Pages.Len() != 0 {
		t.Errorf("cache has %d pages after failed build", a.Pages.Len())
	}
}

func TestMorePosts(t *testing.T) {
	src := newFakeSource()
	src.addPages("",
		[]prismic.Document{summaryDoc("a", "A")},
		[]prismic.Document{summaryDoc("b", "B")},
		[]prismic.Document{summaryDoc("c", "C")},
	)
	a := newTestApp(t, src)

	rec := get(a, "/api/posts?cursor=cursor::1")
	if rec.Code != http.StatusOK || rec.Body.String() != "list:b" {
		t.Fatalf("got %d %q", rec.Code, rec.Body)
	}
	if got := rec.Header().Get(HeaderNextPage); got != "cursor::2" {
		t.Errorf("%s = %q", HeaderNextPage, got)
	}

	rec = get(a, "/api/posts?cursor=cursor::2")
	if rec.Body.String() != "list:c" || rec.Header().Get(HeaderNextPage) != "" {
		t.Errorf("last page: %q next %q", rec.Body, rec.Header().Get(HeaderNextPage))
	}
}

func TestMorePostsErrors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		fail   error
		want   int
	}{
		{"missing cursor", "/api/posts", nil, http.StatusBadRequest},
		{"foreign cursor", "/api/posts?cursor=https%3A%2F%2Fevil.example%2Fsearch", nil, http.StatusBadRequest},
		{"upstream failure", "/api/posts?cursor=cursor::1", errors.New("boom"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newFakeSource()
			src.addPages("", []prismic.Document{summaryDoc("a", "A")}, []prismic.Document{summaryDoc("b", "B")})
			if tt.fail != nil {
				src.failOnce(tt.fail)
			}
			a := newTestApp(t, src)
			if rec := get(a, tt.target); rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestFeeds(t *testing.T) {
	src := newFakeSource()
	src.addPages("", []prismic.Document{summaryDoc("a", "A")}, []prismic.Document{summaryDoc("b", "B")})
	a := newTestApp(t, src)

	rec := get(a, "/feed.xml")
	if rec.Code != http.StatusOK {
		t.Fatalf("feed status = %d", rec.Code)
	}
	for _, want := range []string{"<title>Blog</title>", "https://blog.example/post/a", "https://blog.example/post/b"} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("feed missing %q", want)
		}
	}

	rec = get(a, "/sitemap.xml")
	if !strings.Contains(rec.Body.String(), "<loc>https://blog.example/post/a</loc>") {
		t.Errorf("sitemap = %s", rec.Body)
	}
	if got := rec.Header().Get("Cache-Control"); got != "public, max-age=86400" {
		t.Errorf("sitemap Cache-Control = %q", got)
	}
}

func TestBannerRejectsForeignHost(t *testing.T) {
	a := newTestApp(t, newFakeSource())
	if rec := get(a, "/banner?src=https%3A%2F%2Fevil.example%2Fa.png"); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUnknownRouteRendersNotFound(t *testing.T) {
	a := newTestApp(t, newFakeSource())
	rec := get(a, "/nope/nothing")
	if rec.Code != http.StatusNotFound || rec.Body.String() != "not found" {
		t.Errorf("got %d %q", rec.Code, rec.Body)
	}
}

func TestLoadMoreScriptIsServed(t *testing.T) {
	a := newTestApp(t, newFakeSource())
	rec := get(a, "/public/loadmore.js")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "X-Next-Page") {
		t.Errorf("got %d, body %q", rec.Code, rec.Body)
	}
}

func TestPreviewOverwritesUnreadableCookie(t *testing.T) {
	src := newFakeSource()
	src.previews["tok|doc1"] = summaryDoc("my-slug", "Mine")
	a := newTestApp(t, src)
	stale := &http.Cookie{Name: previewSession, Value: "signed-with-old-secret"}

	rec := get(a, "/api/preview?token=tok&documentId=doc1", stale)
	if rec.Code != http.StatusOK || rec.Body.String() != "redirect:/post/my-slug" {
		t.Fatalf("enter preview: %d %q", rec.Code, rec.Body)
	}
	fresh := previewCookie(t, rec)
	if rec := get(a, "/", fresh); rec.Header().Get("Cache-Control") != "private, no-store" {
		t.Error("new cookie does not enable preview")
	}

	rec = get(a, "/api/exit-preview", stale)
	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("exit preview: %d %q", rec.Code, rec.Body)
	}
	if cleared := previewCookie(t, rec); cleared.MaxAge >= 0 {
		t.Errorf("cookie MaxAge = %d, want expired", cleared.MaxAge)
	}
}

func TestPostFallbackSurfacesRepeatedFailure(t *testing.T) {
	src := newFakeSource()
	src.addPost("", postDoc("hello", paragraphContent("Intro", "one two three")))
	a := newTestApp(t, src)

	src.failOnce(errors.New("upstream down"))
	if rec := get(a, "/post/hello"); rec.Body.String() != "loading" {
		t.Fatalf("first request body = %q", rec.Body)
	}
	deadline := time.Now().Add(2 * time.Second)
	for a.Pages.Failure("/post/hello") == nil {
		if time.Now().After(deadline) {
			t.Fatal("background failure was never recorded")
		}
		time.Sleep(5 * time.Millisecond)
	}

	src.failOnce(errors.New("upstream down"))
	rec := get(a, "/post/hello")
	if rec.Code != http.StatusInternalServerError || rec.Body.String() != "server error" {
		t.Fatalf("retry while failing: %d %q", rec.Code, rec.Body)
	}

	rec = get(a, "/post/hello")
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Body.String(), "post:hello|") {
		t.Errorf("after recovery: %d %q", rec.Code, rec.Body)
	}
}
