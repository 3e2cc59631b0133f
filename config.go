package spacetravelling

import (
	"strings"
	"time"
)

// SiteConfig holds all configuration for a site.
type SiteConfig struct {
	Name        string // Site name (default "Space Travelling")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Site description for RSS and meta tags

	Addr         string // Listen address (default ":3000")
	DatabasePath string // SQLite path for generated pages (default "data/pages.db")
	LogLevel     string // debug, info, warn, error (default "info")

	APIEndpoint  string // Required: Prismic API endpoint, e.g. https://repo.cdn.prismic.io/api/v2
	AccessToken  string // Prismic access token for private repositories
	DocumentType string // Custom type of posts (default "posts")
	PageSize     int    // Posts per listing page (default 1)

	Revalidate time.Duration // Age after which a generated page is regenerated (default 5min)

	SessionSecret string // Required: signing secret of the preview cookie
	CookieSecure  bool   // Set true for HTTPS

	BannerProxy bool     // Serve banners resized through /banner
	BannerHosts []string // Hosts /banner may fetch from (default images.prismic.io)
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Space Travelling"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/pages.db"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.DocumentType == "" {
		c.DocumentType = "posts"
	}
	if c.PageSize <= 0 {
		c.PageSize = 1
	}
	if c.Revalidate <= 0 {
		c.Revalidate = 5 * time.Minute
	}
	if len(c.BannerHosts) == 0 {
		c.BannerHosts = []string{"images.prismic.io"}
	}
	c.URL = strings.TrimRight(c.URL, "/")
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithContentSource replaces the Prismic client built from the config.
func WithContentSource(src ContentSource) Option {
	return func(a *App) {
		a.Source = src
	}
}
