package genius

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

const (
	containerAttr = "data-lyrics-container"
	excludeAttr   = "data-exclude-from-selection"
)

// extractLyrics pulls the transcript out of a Genius song page.
// Each lyrics container contributes its text; <br> becomes a newline and
// annotation chrome marked for exclusion is skipped.
func extractLyrics(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var blocks []string
	var find func(*html.Node)
	find = func(n *html.Node) {
		if n.Type == html.ElementNode && attr(n, containerAttr) == "true" {
			var b strings.Builder
			collectText(n, &b)
			if text := strings.TrimSpace(b.String()); text != "" {
				blocks = append(blocks, text)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(doc)

	return strings.Join(blocks, "\n"), nil
}

func collectText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		if attr(n, excludeAttr) == "true" {
			return
		}
		if n.Data == "br" {
			b.WriteString("\n")
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
