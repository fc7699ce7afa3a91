package parser

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// HTMLParser handles HTML files. It reads the first <table>: the row of
// <th> cells (or the first row when there is none) is the header.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*Dataset, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	source := strings.TrimSuffix(strings.TrimSuffix(filename, ".html"), ".htm")
	if title := findTitle(doc); title != "" {
		source = title
	}

	table := findElement(doc, "table")
	if table == nil {
		return nil, fmt.Errorf("parse html: no <table> found")
	}

	var header []string
	var rows [][]string
	for _, tr := range collectRows(table) {
		cells, isHeader := rowCells(tr)
		if header == nil && (isHeader || len(rows) == 0) {
			header = cells
			continue
		}
		rows = append(rows, cells)
	}
	if header == nil {
		return &Dataset{Source: source}, nil
	}
	return fromRows(source, header, rows), nil
}

// collectRows returns the <tr> elements of table, skipping nested tables.
func collectRows(table *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "tr":
				out = append(out, c)
			case "table":
				// nested table, not part of this one
			default:
				walk(c)
			}
		}
	}
	walk(table)
	return out
}

// rowCells returns the text of each cell in tr and whether every cell is a
// <th>.
func rowCells(tr *html.Node) ([]string, bool) {
	var cells []string
	allTH := true
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || (c.Data != "td" && c.Data != "th") {
			continue
		}
		if c.Data == "td" {
			allTH = false
		}
		cells = append(cells, textContent(c))
	}
	return cells, allTH && len(cells) > 0
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
	return strings.Join(strings.Fields(buf.String()), " ")
}

func findTitle(n *html.Node) string {
	if t := findElement(n, "title"); t != nil {
		return textContent(t)
	}
	return ""
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}
