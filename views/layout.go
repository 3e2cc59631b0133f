package views

import (
	"context"
	"io"

	"github.com/a-h/templ"

	st "github.com/eringen/spacetravelling"
)

// layoutProps configures the document shell shared by every full page.
type layoutProps struct {
	Site    st.SiteConfig
	Meta    st.PageMeta
	JSONLD  string
	Preview bool
	Scripts []string
	Head    string // extra trusted markup for <head>
}

// layout wraps body in the site's <html> shell.
func layout(p layoutProps, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := newHTMLWriter(ctx, w)
		title := p.Meta.Title
		if title == "" {
			title = p.Site.Name
		}
		description := p.Meta.Description
		if description == "" {
			description = p.Site.Description
		}
		ogType := p.Meta.OGType
		if ogType == "" {
			ogType = "website"
		}

		hw.raw(`<!doctype html><html lang="pt-BR"><head><meta charset="utf-8">`)
		hw.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		hw.raw(`<title>`)
		hw.text(title)
		hw.raw(`</title>`)
		if description != "" {
			hw.raw(`<meta name="description"`)
			hw.attr("content", description)
			hw.raw(`>`)
		}
		if p.Meta.URL != "" {
			hw.raw(`<link rel="canonical"`)
			hw.attr("href", p.Meta.URL)
			hw.raw(`><meta property="og:url"`)
			hw.attr("content", p.Meta.URL)
			hw.raw(`>`)
		}
		hw.raw(`<meta property="og:title"`)
		hw.attr("content", title)
		hw.raw(`><meta property="og:type"`)
		hw.attr("content", ogType)
		hw.raw(`><meta property="og:site_name"`)
		hw.attr("content", p.Site.Name)
		hw.raw(`>`)
		if p.Meta.Image != "" {
			hw.raw(`<meta property="og:image"`)
			hw.attr("content", p.Meta.Image)
			hw.raw(`>`)
		}
		hw.raw(`<link rel="icon" href="/favicon.svg" type="image/svg+xml">`)
		hw.raw(`<link rel="alternate" type="application/rss+xml" href="/feed.xml"`)
		hw.attr("title", p.Site.Name)
		hw.raw(`><link rel="stylesheet" href="/public/styles.css">`)
		if p.JSONLD != "" {
			hw.raw(`<script type="application/ld+json">`, p.JSONLD, `</script>`)
		}
		for _, src := range p.Scripts {
			hw.raw(`<script defer`)
			hw.attr("src", src)
			hw.raw(`></script>`)
		}
		hw.raw(p.Head)
		hw.raw(`</head><body>`)
		hw.component(header(p.Site))
		hw.component(body)
		if p.Preview {
			hw.component(ExitPreviewButton())
		}
		hw.raw(`</body></html>`)
		return hw.err
	})
}

func header(site st.SiteConfig) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := newHTMLWriter(ctx, w)
		hw.raw(`<header class="header"><a href="/" class="logo">`)
		hw.text(site.Name)
		hw.raw(`</a></header>`)
		return hw.err
	})
}

// ExitPreviewButton links to the endpoint that leaves preview mode.
func ExitPreviewButton() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<aside class="exit-preview"><a href="/api/exit-preview">Sair do modo Preview</a></aside>`)
		return err
	})
}
