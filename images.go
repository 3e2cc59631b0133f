package spacetravelling

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"
)

const (
	maxBannerWidth = 1200
	jpegQuality    = 80
	maxBannerSize  = 10 << 20 // 10MB
)

// Banner is a downsized banner image kept in the store.
type Banner struct {
	Src       string
	Width     int
	Height    int
	Body      []byte
	FetchedAt time.Time
}

// processImage decodes an image from src, resizes it to maxBannerWidth if it
// is wider, and encodes it as JPEG.
func processImage(src io.Reader) (width, height int, data []byte, err error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w > maxBannerWidth {
		newH := h * maxBannerWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxBannerWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w = maxBannerWidth
		h = newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return 0, 0, nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return w, h, buf.Bytes(), nil
}

// bannerSrc returns the URL templates should use for a banner.
func (a *App) bannerSrc(raw string) string {
	if raw == "" || !a.Config.BannerProxy || !hostAllowed(raw, a.Config.BannerHosts) {
		return raw
	}
	return "/banner?src=" + url.QueryEscape(raw)
}

func (a *App) fetchBanner(c echo.Context, src string) (Banner, error) {
	req, err := http.NewRequestWithContext(c.Request().Context(), http.MethodGet, src, nil)
	if err != nil {
		return Banner{}, err
	}
	res, err := a.bannerClient.Do(req)
	if err != nil {
		return Banner{}, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return Banner{}, fmt.Errorf("fetch banner: status %d", res.StatusCode)
	}
	w, h, data, err := processImage(io.LimitReader(res.Body, maxBannerSize))
	if err != nil {
		return Banner{}, err
	}
	b := Banner{Src: src, Width: w, Height: h, Body: data, FetchedAt: time.Now().UTC()}
	if err := a.Store.SaveBanner(b); err != nil {
		return Banner{}, err
	}
	return b, nil
}

func (a *App) handleBanner(c echo.Context) error {
	src := c.QueryParam("src")
	if !hostAllowed(src, a.Config.BannerHosts) {
		return c.String(http.StatusBadRequest, "Banner host not allowed")
	}

	b, err := a.Store.GetBanner(src)
	if errors.Is(err, ErrNotFound) {
		b, err = a.fetchBanner(c, src)
		if err != nil {
			c.Logger().Warnf("banner %s: %v", src, err)
			// Fall back to the original image rather than a broken one.
			return c.Redirect(http.StatusFound, src)
		}
	} else if err != nil {
		return err
	}

	c.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	return c.Blob(http.StatusOK, "image/jpeg", b.Body)
}
