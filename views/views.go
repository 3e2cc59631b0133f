// Package views holds the default templates for the spacetravelling blog.
// Components are plain templ.Components so they can be swapped for
// generated templ code without touching the handlers.
package views

import (
	"context"
	"io"

	"github.com/a-h/templ"

	st "github.com/eringen/spacetravelling"
	"github.com/eringen/spacetravelling/richtext"
)

// Default returns the view set used by the spacetravelling command.
func Default() st.ViewFuncs {
	return st.ViewFuncs{
		Home:            Home,
		PostList:        PostList,
		Post:            Post,
		PostLoading:     PostLoading,
		PreviewRedirect: PreviewRedirect,
		NotFound:        NotFound,
		ServerError:     ServerError,
	}
}

// Home renders the listing page with its first page of posts and, while
// more pages exist, the load-more button carrying the cursor.
func Home(page st.HomePage) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := newHTMLWriter(ctx, w)
		hw.raw(`<main class="container"><div id="posts" class="posts">`)
		hw.component(PostList(page.Posts))
		hw.raw(`</div>`)
		hw.component(LoadMoreButton(page.NextPage))
		hw.raw(`</main>`)
		return hw.err
	})
	return layout(layoutProps{
		Site:    page.Site,
		Meta:    page.Meta,
		JSONLD:  WebsiteJsonLD(page.Site),
		Preview: page.Preview,
		Scripts: []string{"/public/loadmore.js"},
	}, body)
}

// LoadMoreButton renders nothing when cursor is empty.
func LoadMoreButton(cursor string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if cursor == "" {
			return nil
		}
		hw := newHTMLWriter(ctx, w)
		hw.raw(`<button type="button" id="load-more" class="load-more"`)
		hw.attr("data-cursor", cursor)
		hw.raw(`>Carregar mais posts</button>`)
		return hw.err
	})
}

// PostList renders post summaries. It is the whole response body of the
// load-more endpoint.
func PostList(posts []st.PostSummary) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := newHTMLWriter(ctx, w)
		for _, p := range posts {
			hw.raw(`<a class="post"`)
			hw.attr("href", p.Link())
			hw.attr("title", "Post: "+p.Data.Title)
			hw.raw(`><strong class="title">`)
			hw.text(p.Data.Title)
			hw.raw(`</strong><p>`)
			hw.text(p.Data.Subtitle)
			hw.raw(`</p><div class="info">`)
			if p.FirstPublicationDate != nil {
				hw.raw(`<time`)
				hw.attr("datetime", p.FirstPublicationDate.Format("2006-01-02"))
				hw.raw(`>`)
				hw.text(st.FormatDate(p.FirstPublicationDate))
				hw.raw(`</time>`)
			}
			hw.raw(`<span class="author">`)
			hw.text(p.Data.Author)
			hw.raw(`</span></div></a>`)
		}
		return hw.err
	})
}

// Post renders a full post: banner, title, info line and content blocks in
// document order.
func Post(page st.PostPage) templ.Component {
	post := page.Post
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := newHTMLWriter(ctx, w)
		if page.BannerSrc != "" {
			hw.raw(`<img class="banner" alt="Banner" fetchpriority="high"`)
			hw.attr("src", page.BannerSrc)
			hw.raw(`>`)
		}
		hw.raw(`<main class="container"><article><h1>`)
		hw.text(post.Data.Title)
		hw.raw(`</h1><div class="info">`)
		if post.FirstPublicationDate != nil {
			hw.raw(`<time`)
			hw.attr("datetime", post.FirstPublicationDate.Format("2006-01-02"))
			hw.raw(`>`)
			hw.text(st.FormatDate(post.FirstPublicationDate))
			hw.raw(`</time>`)
		}
		hw.raw(`<span class="author">`)
		hw.text(post.Data.Author)
		hw.raw(`</span><span class="reading-time">`)
		hw.text(ReadingTime(page.ReadingMinutes))
		hw.raw(`</span></div>`)

		edited := post.LastPublicationDate
		if edited == nil {
			edited = post.FirstPublicationDate
		}
		if edited != nil {
			hw.raw(`<p class="info-update">`)
			hw.text(st.FormatEdited(edited))
			hw.raw(`</p>`)
		}

		hw.raw(`<div class="content">`)
		for _, block := range post.Content {
			hw.raw(`<section class="content-item"><h2>`)
			hw.text(block.Heading)
			hw.raw(`</h2><div class="body">`)
			hw.component(richtext.Render(block.Body))
			hw.raw(`</div></section>`)
		}
		hw.raw(`</div></article></main>`)
		return hw.err
	})
	return layout(layoutProps{
		Site:    page.Site,
		Meta:    page.Meta,
		JSONLD:  page.JSONLD,
		Preview: page.Preview,
	}, body)
}

// PostLoading is served for a post that has not been generated yet. The page
// reloads itself until the generated version replaces it.
func PostLoading(site st.SiteConfig) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<main class="container"><span class="loading">Carregando...</span></main>`)
		return err
	})
	return layout(layoutProps{
		Site: site,
		Head: `<meta name="robots" content="noindex"><meta http-equiv="refresh" content="1">`,
	}, body)
}

// PreviewRedirect sends the browser to target once the preview cookie is set.
func PreviewRedirect(target string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := newHTMLWriter(ctx, w)
		hw.raw(`<!doctype html><html><head><meta charset="utf-8"><meta name="robots" content="noindex">`)
		hw.raw(`<meta http-equiv="refresh"`)
		hw.attr("content", "0;url="+target)
		hw.raw(`><script>window.location.replace(`, jsString(target), `)</script></head><body><a`)
		hw.attr("href", target)
		hw.raw(`>Continuar</a></body></html>`)
		return hw.err
	})
}

// NotFound renders the 404 page.
func NotFound() templ.Component {
	return errorPage("Página não encontrada", "O conteúdo que você procura não existe.")
}

// ServerError renders the 5xx page.
func ServerError() templ.Component {
	return errorPage("Erro no servidor", "Algo deu errado. Tente novamente em instantes.")
}

func errorPage(title, message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := newHTMLWriter(ctx, w)
		hw.raw(`<!doctype html><html lang="pt-BR"><head><meta charset="utf-8"><title>`)
		hw.text(title)
		hw.raw(`</title><link rel="stylesheet" href="/public/styles.css"></head><body><main class="container error"><h1>`)
		hw.text(title)
		hw.raw(`</h1><p>`)
		hw.text(message)
		hw.raw(`</p><a href="/">Voltar para o início</a></main></body></html>`)
		return hw.err
	})
}
