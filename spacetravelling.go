// Package spacetravelling is a blog front-end for a Prismic repository built
// with Go, Echo, and templ. It renders a paginated listing and post pages,
// regenerates them on a fixed interval, and supports Prismic preview mode.
//
// Users provide templ templates via the ViewFuncs struct; the views package
// ships a default set.
package spacetravelling

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/spacetravelling/prismic"
)

// ViewFuncs holds the templ components the App renders pages with.
type ViewFuncs struct {
	Home            func(page HomePage) templ.Component
	PostList        func(posts []PostSummary) templ.Component
	Post            func(page PostPage) templ.Component
	PostLoading     func(site SiteConfig) templ.Component
	PreviewRedirect func(target string) templ.Component
	NotFound        func() templ.Component
	ServerError     func() templ.Component
}

// App is the central application. It wires together the content source,
// regeneration cache, handlers, middleware, and templates.
type App struct {
	Config   SiteConfig
	Echo     *echo.Echo
	Source   ContentSource
	Store    *Store
	Pages    *PageCache
	Resolver *PostResolver
	Views    ViewFuncs

	previewLimiter *AttemptLimiter
	bannerClient   *http.Client
	customRoutes   []func(*App)
	staticDir      string
}

// New creates an App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:       cfg,
		Echo:         echo.New(),
		Views:        views,
		bannerClient: &http.Client{Timeout: 20 * time.Second},
		staticDir:    "public",
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Init opens the store, builds the content client, and registers middleware
// and routes. Start calls it; tests call it directly.
func (a *App) Init() error {
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("spacetravelling: SessionSecret is required")
	}

	if a.Source == nil {
		if a.Config.APIEndpoint == "" {
			return fmt.Errorf("spacetravelling: APIEndpoint is required")
		}
		client, err := prismic.New(a.Config.APIEndpoint, prismic.WithAccessToken(a.Config.AccessToken))
		if err != nil {
			return fmt.Errorf("spacetravelling: init content client: %w", err)
		}
		a.Source = client
	}
	a.Resolver = NewPostResolver(a.Source, a.Config.DocumentType)

	store, err := NewStore(a.Config.DatabasePath)
	if err != nil {
		return fmt.Errorf("spacetravelling: init store: %w", err)
	}
	a.Store = store

	pages, err := NewPageCache(a.Store, a.Config.Revalidate)
	if err != nil {
		return fmt.Errorf("spacetravelling: load pages: %w", err)
	}
	pages.OnError = func(path string, err error) {
		a.Echo.Logger.Errorf("regenerate %s: %v", path, err)
	}
	a.Pages = pages

	a.previewLimiter = NewAttemptLimiter(10, time.Minute)

	a.setupLogger()
	a.Echo.Logger.Infof("loaded %d generated pages from %s", a.Pages.Len(), a.Config.DatabasePath)
	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start initializes the app, pre-renders the known pages, and serves HTTP.
func (a *App) Start() error {
	if err := a.Init(); err != nil {
		return err
	}
	defer a.Close()

	// A failed build is not fatal: pages are generated on first request.
	if err := a.Build(context.Background()); err != nil {
		a.Echo.Logger.Errorf("initial build: %v", err)
	}

	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Build pre-renders the listing and every post returned by ResolvePostPaths
// into the regeneration cache.
func (a *App) Build(ctx context.Context) error {
	start := time.Now()
	if _, err := a.Pages.Regenerate(ctx, "/", a.homeGenerator("")); err != nil {
		return fmt.Errorf("build /: %w", err)
	}
	slugs, err := a.Resolver.ResolvePostPaths(ctx)
	if err != nil {
		return fmt.Errorf("resolve post paths: %w", err)
	}
	for _, slug := range slugs {
		if _, err := a.Pages.Regenerate(ctx, postPath(slug), a.postGenerator(slug, "")); err != nil {
			return fmt.Errorf("build %s: %w", postPath(slug), err)
		}
	}
	a.Echo.Logger.Infof("built %d pages in %s", len(slugs)+1, time.Since(start).Round(time.Millisecond))
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	embeddedHandler := http.FileServer(http.FS(embeddedFS))
	e.GET("/public/loadmore.js", echo.WrapHandler(http.StripPrefix("/public/", embeddedHandler)))

	e.Static("/public", a.staticDir)
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)

	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/", a.handleHome)
	e.GET("/post/:slug", a.handlePost)
	if a.Config.BannerProxy {
		e.GET("/banner", a.handleBanner)
	}

	e.GET("/api/posts", a.handleMorePosts)
	e.GET("/api/preview", a.handlePreview)
	e.GET("/api/exit-preview", handleExitPreview)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.previewLimiter != nil {
		a.previewLimiter.Stop()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
