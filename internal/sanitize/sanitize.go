// Package sanitize turns model output written in markdown into plain text that
// Telegram shows as-is.
package sanitize

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	blockBreaks = regexp.MustCompile(`<br\s*/?>|</?p>|</?div>|</?pre>|</?h[1-6]>|</?[ou]l>|</?blockquote>`)
	listItems   = regexp.MustCompile(`<li>\s*`)
	listEnds    = regexp.MustCompile(`</li>`)
	blankLines  = regexp.MustCompile(`\n\s*\n+`)
	trailing    = regexp.MustCompile(`[ \t]+\n`)
)

// Policy strips markdown and HTML. It is safe for concurrent use.
type Policy struct {
	policy   *bluemonday.Policy
	markdown goldmark.Markdown
}

// NewTelegramPolicy creates a Policy for plain-text Telegram messages.
func NewTelegramPolicy() *Policy {
	return &Policy{
		policy:   bluemonday.StrictPolicy(),
		markdown: goldmark.New(),
	}
}

// Text renders markdown, drops every tag and keeps line structure. List items
// become "• " lines. When rendering leaves nothing, as for a raw HTML block, the
// input is stripped of tags directly.
func (p *Policy) Text(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := p.markdown.Convert([]byte(text), &buf); err != nil {
		return text
	}

	out := listItems.ReplaceAllString(buf.String(), "• ")
	out = listEnds.ReplaceAllString(out, "")
	out = blockBreaks.ReplaceAllString(out, "\n")
	out = p.policy.Sanitize(out)
	out = html.UnescapeString(out)
	out = trailing.ReplaceAllString(out, "\n")
	out = blankLines.ReplaceAllString(out, "\n\n")
	out = strings.TrimSpace(out)
	if out == "" {
		return strings.TrimSpace(html.UnescapeString(p.policy.Sanitize(text)))
	}
	return out
}
