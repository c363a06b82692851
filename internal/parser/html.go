package parser

import (
	"strings"

	"github.com/dgallion1/qbank/internal/record"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"
)

// CleanHTML strips markup from a rich-text cell. Each <img> with a src is
// replaced by its own [IMAGE:k] line, k counting from zero, and its source is
// returned in order of appearance. Empty input yields ("", nil).
func CleanHTML(s string) (string, []string) {
	return CleanHTMLFrom(s, 0)
}

// CleanHTMLFrom is CleanHTML with placeholders numbered from offset, so that
// several fields of one record share a single image sequence.
func CleanHTMLFrom(s string, offset int) (string, []string) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(s), body)
	if err != nil {
		// The tokenizer only fails on reader errors; keep the cell as plain text.
		return collapseLines(s), nil
	}

	c := &cleaner{offset: offset}
	for _, n := range nodes {
		c.walk(n)
	}
	c.flush()
	return norm.NFC.String(strings.Join(c.lines, "\n")), c.images
}

// ImageSources returns the <img> sources of a rich-text cell in order.
func ImageSources(s string) []string {
	_, images := CleanHTML(s)
	return images
}

type cleaner struct {
	lines  []string
	cur    strings.Builder
	images []string
	offset int
}

func (c *cleaner) flush() {
	if line := collapseSpace(c.cur.String()); line != "" {
		c.lines = append(c.lines, line)
	}
	c.cur.Reset()
}

// text keeps newlines that appear inside text nodes; plain-text cells rely on them.
func (c *cleaner) text(s string) {
	for i, part := range strings.Split(s, "\n") {
		if i > 0 {
			c.flush()
		}
		c.cur.WriteString(part)
	}
}

func (c *cleaner) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		c.text(n.Data)
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "head", "title":
			return
		case "img":
			src := strings.TrimSpace(attr(n, "src"))
			if src == "" {
				return
			}
			c.flush()
			c.lines = append(c.lines, record.Placeholder(c.offset+len(c.images)))
			c.images = append(c.images, src)
			return
		case "br", "hr":
			c.flush()
			return
		case "sup":
			if textContent(n) != "" {
				c.cur.WriteString("^")
			}
		case "sub":
			if textContent(n) != "" {
				c.cur.WriteString("_")
			}
		}
		if isBlock(n.Data) {
			c.flush()
			defer c.flush()
		}
	}

	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.walk(ch)
	}
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "div", "li", "ul", "ol", "dl", "dt", "dd", "tr", "td", "th", "table",
		"blockquote", "pre", "section", "article", "header", "footer",
		"h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func collapseLines(s string) string {
	var lines []string
	for _, l := range strings.Split(s, "\n") {
		if l = collapseSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return strings.Join(lines, "\n")
}
