package views

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
	"github.com/goccy/go-json"

	st "github.com/eringen/spacetravelling"
)

// htmlWriter writes markup to w and remembers the first error, so templates
// can be written as a flat sequence of calls.
type htmlWriter struct {
	ctx context.Context
	w   io.Writer
	err error
}

func newHTMLWriter(ctx context.Context, w io.Writer) *htmlWriter {
	return &htmlWriter{ctx: ctx, w: w}
}

func (hw *htmlWriter) raw(s ...string) {
	for _, part := range s {
		if hw.err != nil {
			return
		}
		_, hw.err = io.WriteString(hw.w, part)
	}
}

func (hw *htmlWriter) text(s string) {
	hw.raw(templ.EscapeString(s))
}

// attr writes ` name="value"` with value escaped.
func (hw *htmlWriter) attr(name, value string) {
	hw.raw(" ", name, `="`, templ.EscapeString(value), `"`)
}

func (hw *htmlWriter) component(cmp templ.Component) {
	if hw.err != nil || cmp == nil {
		return
	}
	hw.err = cmp.Render(hw.ctx, hw.w)
}

// WebsiteJsonLD produces a Schema.org WebSite JSON-LD block using cfg values.
func WebsiteJsonLD(cfg st.SiteConfig) string {
	data := map[string]interface{}{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     cfg.Name,
		"url":      st.BuildURL(cfg.URL),
	}
	if cfg.Description != "" {
		data["description"] = cfg.Description
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// ReadingTime formats a reading time in minutes, e.g. "4 min".
func ReadingTime(minutes int) string {
	return strconv.Itoa(minutes) + " min"
}

// jsString returns s as a JavaScript string literal safe to embed in a
// <script> element. Marshal escapes <, > and & by default.
func jsString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}
