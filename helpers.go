package spacetravelling

import (
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// BuildURL joins a base URL with path segments.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join("/", u.Path, path.Join(pathSegments...))
	return u.String()
}

var ptMonths = [...]string{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"}

// FormatDate formats t as "02 jan 2006" with Portuguese month abbreviations.
// Drafts have no date and format as "".
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("02") + " " + ptMonths[t.Month()-1] + " " + t.Format("2006")
}

// FormatEdited formats the "edited at" line shown under a post title.
func FormatEdited(t *time.Time) string {
	if t == nil {
		return ""
	}
	return "* editado em " + FormatDate(t) + ", às " + t.Format("15:04")
}

// BlogPostingJsonLD returns a JSON-LD string for a BlogPosting schema.
func BlogPostingJsonLD(post PostDetail, cfg SiteConfig) string {
	postURL := BuildURL(cfg.URL, "post", post.UID)
	data := map[string]interface{}{
		"@context":    "https://schema.org",
		"@type":       "BlogPosting",
		"headline":    post.Data.Title,
		"description": post.Data.Subtitle,
		"url":         postURL,
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	if post.FirstPublicationDate != nil {
		data["datePublished"] = post.FirstPublicationDate.Format(time.RFC3339)
	}
	if post.LastPublicationDate != nil {
		data["dateModified"] = post.LastPublicationDate.Format(time.RFC3339)
	}
	if post.BannerURL != "" {
		data["image"] = post.BannerURL
	}
	if post.Data.Author != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  post.Data.Author,
		}
	}
	if cfg.Name != "" {
		data["publisher"] = map[string]string{
			"@type": "Organization",
			"name":  cfg.Name,
		}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// hostAllowed reports whether rawURL is an http(s) URL on one of hosts.
func hostAllowed(rawURL string, hosts []string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return false
	}
	for _, h := range hosts {
		if strings.EqualFold(u.Host, h) {
			return true
		}
	}
	return false
}
