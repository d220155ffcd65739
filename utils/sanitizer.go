package utils

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

var (
	// StrictPolicy strips all markup
	StrictPolicy *bluemonday.Policy
	// EmailPolicy keeps the markup email bodies legitimately use
	EmailPolicy *bluemonday.Policy
)

func init() {
	StrictPolicy = bluemonday.StrictPolicy()

	EmailPolicy = bluemonday.UGCPolicy()

	// Allow additional safe elements common in email content
	EmailPolicy.AllowElements("p", "br", "div", "span", "h1", "h2", "h3", "h4", "h5", "h6")
	EmailPolicy.AllowElements("strong", "em", "u", "s", "code", "pre")
	EmailPolicy.AllowElements("ul", "ol", "li", "blockquote")
	EmailPolicy.AllowElements("a", "img")
	EmailPolicy.AllowElements("table", "thead", "tbody", "tr", "th", "td")

	EmailPolicy.AllowAttrs("href").OnElements("a")
	EmailPolicy.AllowAttrs("src", "alt", "title", "width", "height").OnElements("img")
	EmailPolicy.AllowAttrs("class", "id").Globally()
	EmailPolicy.AllowAttrs("style").OnElements("span", "div", "p", "td")

	EmailPolicy.RequireParseableURLs(true)
	EmailPolicy.AllowURLSchemes("http", "https", "mailto")
}

// SanitizeHTML produces the render-ready form of a message body.
func SanitizeHTML(raw string) string {
	return EmailPolicy.Sanitize(raw)
}

// StripHTML removes all markup from content
func StripHTML(raw string) string {
	return StrictPolicy.Sanitize(raw)
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// HTMLToText flattens an HTML body into plain text for previews.
func HTMLToText(raw string) string {
	text := strings.NewReplacer(
		"<br>", "\n",
		"<br/>", "\n",
		"<br />", "\n",
		"<p>", "\n",
		"</p>", "\n",
		"&nbsp;", " ",
	).Replace(raw)

	text = StripHTML(text)
	text = html.UnescapeString(text)
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(text), " ")
}

// CreatePreview trims text to a short single-line snippet, breaking at
// a word boundary when possible.
func CreatePreview(text string) string {
	text = strings.Join(strings.Fields(text), " ")

	if len(text) > 150 {
		if idx := strings.LastIndex(text[:150], " "); idx > 0 {
			return text[:idx] + "..."
		}
		return text[:150] + "..."
	}
	return text
}
