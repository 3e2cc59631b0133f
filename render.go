package spacetravelling

import (
	"bytes"
	"context"
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}

// renderPage renders cmp into a GeneratedPage for the regeneration cache.
func renderPage(ctx context.Context, status int, cmp templ.Component) (GeneratedPage, error) {
	var buf bytes.Buffer
	if err := cmp.Render(ctx, &buf); err != nil {
		return GeneratedPage{}, err
	}
	return GeneratedPage{Status: status, Body: buf.Bytes()}, nil
}

// writePage replays a generated page, either as HTML or as its redirect.
func writePage(c echo.Context, p GeneratedPage) error {
	if p.Location != "" {
		return c.Redirect(p.Status, p.Location)
	}
	return c.HTMLBlob(p.Status, p.Body)
}
