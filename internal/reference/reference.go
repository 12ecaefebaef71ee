// Package reference builds the link inserted for a chosen documentation page.
package reference

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown/html"
	"github.com/jcdickinson/doclink/internal/session"
)

// ErrUnknownPage is returned when a page is not in the project catalog.
var ErrUnknownPage = errors.New("not a documentation file of the project")

// HTMLDir is the directory of rendered pages under a project root.
const HTMLDir = "html/"

const linkStyle = "background: none repeat scroll 0% 0% rgb(245, 245, 245); border: 1px solid rgb(221, 221, 221); padding: 0px 2px; border-radius: 3px 3px 3px 3px; text-decoration: none;"

// Reference is a resolved link to one page.
type Reference struct {
	Page string `json:"page"`
	Name string `json:"name"`
	Href string `json:"href"`
	Text string `json:"text"`
}

// Build resolves page in p's catalog. An empty text defaults to the page's
// definition.
func Build(p *session.Project, page, text string) (Reference, error) {
	e, ok := p.Index.FindByURL(page)
	if !ok {
		return Reference{}, fmt.Errorf("%q: %w", page, ErrUnknownPage)
	}
	if text == "" {
		text = e.Name()
	}
	return Reference{
		Page: page,
		Name: e.Name(),
		Href: p.Root + HTMLDir + page,
		Text: text,
	}, nil
}

// HTML renders the reference as an inline-styled anchor.
func (r Reference) HTML() string {
	return fmt.Sprintf(`<a class="classLink" page="%s" name="%s" href="%s" style='%s'>%s</a>`,
		escape(r.Page), escape(r.Name), escape(r.Href), linkStyle, escape(r.Text))
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, `[`, `\[`, `]`, `\]`, `*`, `\*`, `_`, `\_`, "`", "\\`", `<`, `\<`, `>`, `\>`,
)

// Markdown renders the reference as an inline markdown link.
func (r Reference) Markdown() string {
	dest := strings.NewReplacer(" ", "%20", "(", "%28", ")", "%29").Replace(r.Href)
	return fmt.Sprintf("[%s](%s)", markdownEscaper.Replace(r.Text), dest)
}

// Format renders the reference as "html" or "markdown".
func (r Reference) Format(format string) (string, error) {
	switch format {
	case "", "html":
		return r.HTML(), nil
	case "markdown", "md":
		return r.Markdown(), nil
	default:
		return "", fmt.Errorf("unknown link format %q", format)
	}
}

func escape(s string) string {
	var buf bytes.Buffer
	html.EscapeHTML(&buf, []byte(s))
	return buf.String()
}
