// Package richtext renders Prismic structured text as HTML through a templ component.
package richtext

import (
	"bytes"
	"context"
	"html"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/a-h/templ"
)

// Block is one structured text node: a paragraph, heading, list item, image or embed.
type Block struct {
	Type       string      `json:"type"`
	Text       string      `json:"text"`
	Spans      []Span      `json:"spans,omitempty"`
	URL        string      `json:"url,omitempty"`
	Alt        string      `json:"alt,omitempty"`
	Dimensions *Dimensions `json:"dimensions,omitempty"`
	OEmbed     *OEmbed     `json:"oembed,omitempty"`
}

// Span marks a range of a block's text. Start and End are UTF-16 offsets.
type Span struct {
	Start int       `json:"start"`
	End   int       `json:"end"`
	Type  string    `json:"type"`
	Data  *SpanData `json:"data,omitempty"`
}

type SpanData struct {
	URL    string `json:"url,omitempty"`
	Target string `json:"target,omitempty"`
	Label  string `json:"label,omitempty"`
}

type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type OEmbed struct {
	HTML string `json:"html"`
}

// Render returns a templ.Component that writes blocks as HTML.
func Render(blocks []Block) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		RenderHTML(&buf, blocks)
		_, err := w.Write(buf.Bytes())
		return err
	})
}

// AsHTML is RenderHTML into a string.
func AsHTML(blocks []Block) string {
	var buf bytes.Buffer
	RenderHTML(&buf, blocks)
	return buf.String()
}

// RenderHTML writes the HTML for blocks to buf. Consecutive list items are
// grouped into a single <ul> or <ol>.
func RenderHTML(buf *bytes.Buffer, blocks []Block) {
	imageCount := 0
	list := ""
	flushList := func() {
		if list != "" {
			buf.WriteString("</" + list + ">")
			list = ""
		}
	}
	openList := func(tag string) {
		if list == tag {
			return
		}
		flushList()
		buf.WriteString("<" + tag + ">")
		list = tag
	}

	for _, b := range blocks {
		switch b.Type {
		case "list-item":
			openList("ul")
			buf.WriteString("<li>" + FormatSpans(b.Text, b.Spans) + "</li>")
			continue
		case "o-list-item":
			openList("ol")
			buf.WriteString("<li>" + FormatSpans(b.Text, b.Spans) + "</li>")
			continue
		}
		flushList()

		switch b.Type {
		case "heading1", "heading2", "heading3", "heading4", "heading5", "heading6":
			tag := "h" + b.Type[len(b.Type)-1:]
			buf.WriteString("<" + tag + ">" + FormatSpans(b.Text, b.Spans) + "</" + tag + ">")
		case "preformatted":
			buf.WriteString("<pre>" + html.EscapeString(b.Text) + "</pre>")
		case "image":
			src := SafeURL(b.URL)
			if src == "" {
				continue
			}
			imageCount++
			loadAttr := `loading="lazy"`
			if imageCount == 1 {
				loadAttr = `fetchpriority="high"`
			}
			buf.WriteString(`<p class="block-img"><img ` + loadAttr + ` src="` + src + `" alt="` + html.EscapeString(b.Alt) + `"`)
			if b.Dimensions != nil && b.Dimensions.Width > 0 && b.Dimensions.Height > 0 {
				buf.WriteString(` width="` + strconv.Itoa(b.Dimensions.Width) + `" height="` + strconv.Itoa(b.Dimensions.Height) + `"`)
			}
			buf.WriteString(` decoding="async"/></p>`)
		case "embed":
			if b.OEmbed == nil || b.OEmbed.HTML == "" {
				continue
			}
			// oEmbed markup comes from the CMS and is trusted like the rest of the document.
			buf.WriteString(`<div class="block-embed">` + b.OEmbed.HTML + `</div>`)
		default:
			buf.WriteString("<p>" + FormatSpans(b.Text, b.Spans) + "</p>")
		}
	}
	flushList()
}

// FormatSpans escapes text and wraps the span ranges in their tags. Spans
// that cross each other are closed and reopened so the output nests cleanly.
func FormatSpans(text string, spans []Span) string {
	units := utf16.Encode([]rune(text))
	n := len(units)

	valid := make([]Span, 0, len(spans))
	for _, s := range spans {
		if s.Start < 0 {
			s.Start = 0
		}
		if s.End > n {
			s.End = n
		}
		if s.Start >= s.End {
			continue
		}
		valid = append(valid, s)
	}
	if len(valid) == 0 {
		return escapeText(text)
	}
	sort.SliceStable(valid, func(i, j int) bool {
		if valid[i].Start != valid[j].Start {
			return valid[i].Start < valid[j].Start
		}
		return valid[i].End > valid[j].End
	})

	cuts := []int{0, n}
	for _, s := range valid {
		cuts = append(cuts, s.Start, s.End)
	}
	sort.Ints(cuts)

	var b strings.Builder
	var open []int // indexes into valid
	for i := 0; i+1 < len(cuts); i++ {
		from, to := cuts[i], cuts[i+1]
		if from == to {
			continue
		}
		var want []int
		for idx, s := range valid {
			if s.Start <= from && s.End >= to {
				want = append(want, idx)
			}
		}
		common := 0
		for common < len(open) && common < len(want) && open[common] == want[common] {
			common++
		}
		for k := len(open) - 1; k >= common; k-- {
			b.WriteString(closeTag(valid[open[k]]))
		}
		for _, idx := range want[common:] {
			b.WriteString(openTag(valid[idx]))
		}
		open = want
		b.WriteString(escapeText(string(utf16.Decode(units[from:to]))))
	}
	for k := len(open) - 1; k >= 0; k-- {
		b.WriteString(closeTag(valid[open[k]]))
	}
	return b.String()
}

func openTag(s Span) string {
	switch s.Type {
	case "strong":
		return "<strong>"
	case "em":
		return "<em>"
	case "hyperlink":
		href := ""
		if s.Data != nil {
			href = SafeURL(s.Data.URL)
		}
		if href == "" {
			return "<span>"
		}
		attrs := ""
		if s.Data.Target == "_blank" {
			attrs = ` target="_blank" rel="noopener noreferrer"`
		}
		return `<a href="` + href + `"` + attrs + `>`
	case "label":
		label := ""
		if s.Data != nil {
			label = s.Data.Label
		}
		return `<span class="` + html.EscapeString(label) + `">`
	default:
		return "<span>"
	}
}

func closeTag(s Span) string {
	switch s.Type {
	case "strong":
		return "</strong>"
	case "em":
		return "</em>"
	case "hyperlink":
		if s.Data != nil && SafeURL(s.Data.URL) != "" {
			return "</a>"
		}
		return "</span>"
	default:
		return "</span>"
	}
}

func escapeText(s string) string {
	return strings.ReplaceAll(html.EscapeString(s), "\n", "<br/>")
}

// Words counts whitespace-delimited words across the text of blocks.
func Words(blocks []Block) int {
	total := 0
	for _, b := range blocks {
		total += len(strings.Fields(b.Text))
	}
	return total
}

// SafeURL validates and sanitizes a URL for use in HTML attributes.
func SafeURL(raw string) string {
	val := strings.TrimSpace(raw)
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return html.EscapeString(val)
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return html.EscapeString(val)
	default:
		return ""
	}
}
