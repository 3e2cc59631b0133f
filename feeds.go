package spacetravelling

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// maxFeedPages bounds how many listing pages the RSS feed drains.
const maxFeedPages = 10

type urlSet struct {
	XMLName xml.Name   `xml:"http://www.sitemaps.org/schemas/sitemap/0.9 urlset"`
	URLs    []urlEntry `xml:"url"`
}

type urlEntry struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
}

type rssFeed struct {
	XMLName xml.Name    `xml:"rss"`
	Version string      `xml:"version,attr"`
	DC      string      `xml:"xmlns:dc,attr"`
	Channel feedChannel `xml:"channel"`
}

type feedChannel struct {
	Title         string     `xml:"title"`
	Link          string     `xml:"link"`
	Description   string     `xml:"description"`
	Language      string     `xml:"language"`
	LastBuildDate string     `xml:"lastBuildDate,omitempty"`
	Items         []feedItem `xml:"item"`
}

type feedItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description,omitempty"`
	Creator     string   `xml:"dc:creator,omitempty"`
	PubDate     string   `xml:"pubDate,omitempty"`
	GUID        feedGUID `xml:"guid"`
}

type feedGUID struct {
	Value       string `xml:",chardata"`
	IsPermaLink bool   `xml:"isPermaLink,attr"`
}

func (a *App) handleSitemap(c echo.Context) error {
	slugs, err := a.Resolver.ResolvePostPaths(c.Request().Context())
	if err != nil {
		return err
	}
	set := urlSet{URLs: []urlEntry{{Loc: BuildURL(a.Config.URL), ChangeFreq: "hourly"}}}
	for _, slug := range slugs {
		e := urlEntry{Loc: BuildURL(a.Config.URL, "post", slug)}
		// Pages already generated know when they last changed.
		if p, ok := a.Pages.Lookup(postPath(slug)); ok {
			e.LastMod = p.GeneratedAt.UTC().Format("2006-01-02")
		}
		set.URLs = append(set.URLs, e)
	}
	return writeXML(c, "application/xml; charset=utf-8", set)
}

// handleFeed serves RSS 2.0 for published posts, newest pages first as the
// API orders them.
func (a *App) handleFeed(c echo.Context) error {
	posts, err := NewPaginator(a.Source, a.Config.DocumentType, pathsPageSize).
		Drain(c.Request().Context(), "", maxFeedPages)
	if err != nil {
		return err
	}

	ch := feedChannel{
		Title:       a.Config.Name,
		Link:        BuildURL(a.Config.URL),
		Description: a.Config.Description,
		Language:    "pt-BR",
		Items:       make([]feedItem, 0, len(posts)),
	}
	var newest time.Time
	for _, p := range posts {
		link := BuildURL(a.Config.URL, "post", p.UID)
		item := feedItem{
			Title:       p.Data.Title,
			Link:        link,
			Description: p.Data.Subtitle,
			Creator:     p.Data.Author,
			GUID:        feedGUID{Value: link, IsPermaLink: true},
		}
		if d := p.FirstPublicationDate; d != nil {
			item.PubDate = d.Format(time.RFC1123Z)
			if d.After(newest) {
				newest = *d
			}
		}
		ch.Items = append(ch.Items, item)
	}
	if !newest.IsZero() {
		ch.LastBuildDate = newest.Format(time.RFC1123Z)
	}

	feed := rssFeed{Version: "2.0", DC: "http://purl.org/dc/elements/1.1/", Channel: ch}
	return writeXML(c, "application/rss+xml; charset=utf-8", feed)
}

func writeXML(c echo.Context, contentType string, v any) error {
	out, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentType, contentType)
	return c.Blob(http.StatusOK, contentType, append([]byte(xml.Header), out...))
}
