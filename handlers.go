package spacetravelling

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/spacetravelling/prismic"
)

// HeaderNextPage carries the listing cursor on load-more responses.
const HeaderNextPage = "X-Next-Page"

func postPath(slug string) string {
	return "/post/" + slug
}

func (a *App) homeGenerator(ref string) Generator {
	return func(ctx context.Context) (GeneratedPage, error) {
		page, err := NewPaginator(a.Source, a.Config.DocumentType, a.Config.PageSize).FetchInitialPage(ctx, ref)
		if err != nil {
			return GeneratedPage{}, err
		}
		cmp := a.Views.Home(HomePage{
			Site: a.Config,
			Meta: PageMeta{
				Title:       a.Config.Name,
				Description: a.Config.Description,
				URL:         BuildURL(a.Config.URL),
				OGType:      "website",
			},
			Posts:    page.Items,
			NextPage: page.Cursor,
			Preview:  ref != "",
		})
		return renderPage(ctx, http.StatusOK, cmp)
	}
}

func (a *App) postGenerator(slug, rev string) Generator {
	return func(ctx context.Context) (GeneratedPage, error) {
		post, err := a.Resolver.FetchPostBySlug(ctx, slug, rev)
		if errors.Is(err, ErrNotFound) {
			return GeneratedPage{Status: http.StatusTemporaryRedirect, Location: "/"}, nil
		}
		if err != nil {
			return GeneratedPage{}, err
		}
		cmp := a.Views.Post(PostPage{
			Site: a.Config,
			Meta: PageMeta{
				Title:       post.Data.Title + " | " + a.Config.Name,
				Description: post.Data.Subtitle,
				URL:         BuildURL(a.Config.URL, "post", post.UID),
				OGType:      "article",
				Image:       post.BannerURL,
			},
			Post:           post,
			ReadingMinutes: ReadingTime(post),
			BannerSrc:      a.bannerSrc(post.BannerURL),
			JSONLD:         BlogPostingJsonLD(post, a.Config),
			Preview:        rev != "",
		})
		return renderPage(ctx, http.StatusOK, cmp)
	}
}

func (a *App) handleHome(c echo.Context) error {
	ctx := c.Request().Context()
	if ref := PreviewRef(c); ref != "" {
		page, err := a.homeGenerator(ref)(ctx)
		if err != nil {
			return err
		}
		return writePage(c, page)
	}
	page, err := a.Pages.Get(ctx, "/", a.homeGenerator(""))
	if err != nil {
		return err
	}
	return writePage(c, page)
}

func (a *App) handlePost(c echo.Context) error {
	slug := c.Param("slug")
	ctx := c.Request().Context()
	if ref := PreviewRef(c); ref != "" {
		page, err := a.postGenerator(slug, ref)(ctx)
		if err != nil {
			return err
		}
		return writePage(c, page)
	}

	path := postPath(slug)
	if _, ok := a.Pages.Lookup(path); !ok {
		if a.Pages.Failure(path) != nil {
			// The last background attempt failed; retry in the request so a
			// persistent failure reaches the error page.
			page, err := a.Pages.Regenerate(ctx, path, a.postGenerator(slug, ""))
			if err != nil {
				return err
			}
			return writePage(c, page)
		}
		// Not built yet: answer with the placeholder while the page is generated.
		a.Pages.GenerateInBackground(path, a.postGenerator(slug, ""))
		c.Response().Header().Set("Cache-Control", "no-store")
		return Render(c, a.Views.PostLoading(a.Config))
	}
	page, err := a.Pages.Get(ctx, path, a.postGenerator(slug, ""))
	if err != nil {
		return err
	}
	return writePage(c, page)
}

// handleMorePosts serves the next listing page as an HTML fragment for the
// load-more button. The cursor is replayed exactly as it was rendered.
func (a *App) handleMorePosts(c echo.Context) error {
	cursor := c.QueryParam("cursor")
	if cursor == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "cursor is required")
	}
	page, err := ResumePaginator(a.Source, cursor).FetchNextPage(c.Request().Context())
	if err != nil {
		if errors.Is(err, prismic.ErrForeignCursor) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid cursor")
		}
		c.Logger().Errorf("load more: %v", err)
		return echo.NewHTTPError(http.StatusBadGateway, "could not load posts")
	}
	c.Response().Header().Set(HeaderNextPage, page.Cursor)
	return Render(c, a.Views.PostList(page.Items))
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.File(a.staticDir + "/favicon.svg")
}

func (a *App) handleRobots(c echo.Context) error {
	return c.File(a.staticDir + "/robots.txt")
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he, ok := err.(*echo.HTTPError)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 && c.Request().URL.Path != "/api/posts" {
		c.Logger().Errorf("server error: %v", err)
		_ = RenderStatus(c, code, a.Views.ServerError())
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
