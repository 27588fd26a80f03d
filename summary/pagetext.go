package summary

import (
	"fmt"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// sanitizer drops scripts, styles, event handlers, and anything else a
// page could use to pollute the model prompt, while keeping the
// content-bearing markup for the markdown conversion.
var sanitizer = bluemonday.UGCPolicy()

// ExtractText flattens a page's HTML into model-ready text: sanitize,
// convert to markdown, normalise blank runs. The markdown layer keeps
// headings and list structure visible to the model, which summarises
// structured input noticeably better than a flat text blob.
func ExtractText(pageHTML string) (string, error) {
	clean := sanitizer.Sanitize(pageHTML)

	md, err := htmltomarkdown.ConvertString(clean)
	if err != nil {
		return "", fmt.Errorf("summary: convert page html: %w", err)
	}

	md = strings.ReplaceAll(md, "\r\n", "\n")
	for strings.Contains(md, "\n\n\n") {
		md = strings.ReplaceAll(md, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(md), nil
}

// PageTitle pulls the <title> text out of raw HTML. Used as a fallback
// when the browser target reports no title.
func PageTitle(pageHTML string) string {
	doc, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return ""
	}
	return findTitle(doc)
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title {
		if n.FirstChild != nil {
			return strings.TrimSpace(n.FirstChild.Data)
		}
		return ""
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}
