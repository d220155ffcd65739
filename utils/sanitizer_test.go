package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeHTMLDropsScripts(t *testing.T) {
	out := SanitizeHTML(`<p>hello</p><script>alert("xss")</script>`)

	assert.Contains(t, out, "<p>hello</p>")
	assert.NotContains(t, out, "script")
	assert.NotContains(t, out, "alert")
}

func TestSanitizeHTMLDropsEventHandlers(t *testing.T) {
	out := SanitizeHTML(`<img src="https://example.com/a.png" onerror="steal()">`)

	assert.Contains(t, out, "example.com/a.png")
	assert.NotContains(t, out, "onerror")
}

func TestSanitizeHTMLKeepsEmailMarkup(t *testing.T) {
	in := `<div><h2>Newsletter</h2><table><tr><td style="color:red">cell</td></tr></table><a href="https://example.com">link</a></div>`
	out := SanitizeHTML(in)

	assert.Contains(t, out, "<h2>Newsletter</h2>")
	assert.Contains(t, out, "<td")
	assert.Contains(t, out, `href="https://example.com"`)
}

func TestSanitizeHTMLRejectsJavascriptURLs(t *testing.T) {
	out := SanitizeHTML(`<a href="javascript:alert(1)">click</a>`)

	assert.NotContains(t, out, "javascript")
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "plain words", StripHTML("<b>plain</b> <i>words</i>"))
}

func TestHTMLToText(t *testing.T) {
	in := "<p>First line</p><p>Second &amp; third</p><br>tail"
	out := HTMLToText(in)

	assert.Equal(t, "First line Second & third tail", out)
}

func TestHTMLToTextCollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", HTMLToText("  a\n\n  b\t\tc  "))
}

func TestCreatePreviewShortTextUnchanged(t *testing.T) {
	assert.Equal(t, "short body", CreatePreview("short  body"))
}

func TestCreatePreviewBreaksAtWordBoundary(t *testing.T) {
	long := strings.Repeat("word ", 50)
	out := CreatePreview(long)

	assert.True(t, strings.HasSuffix(out, "..."))
	assert.LessOrEqual(t, len(out), 153)
	assert.False(t, strings.HasSuffix(strings.TrimSuffix(out, "..."), "wor"))
}

func TestCreatePreviewUnbreakableText(t *testing.T) {
	out := CreatePreview(strings.Repeat("x", 300))

	assert.Equal(t, 153, len(out))
	assert.True(t, strings.HasSuffix(out, "..."))
}
