package upstream

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// TableScraper turns an HTML page into table rows. Each row maps header text to
// cell text, and always carries positional keys "col0", "col1", ... as well.
type TableScraper interface {
	ScrapeRows(page string) ([]map[string]string, error)
}

// htmlTableScraper reads the table with the most data rows, so layout tables are skipped.
type htmlTableScraper struct{}

func (htmlTableScraper) ScrapeRows(page string) ([]map[string]string, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var best []map[string]string
	for table := range doc.Descendants() {
		if table.Type != html.ElementNode || table.DataAtom != atom.Table {
			continue
		}
		if rows := tableRows(table); len(rows) > len(best) {
			best = rows
		}
	}
	return best, nil
}

func tableRows(table *html.Node) []map[string]string {
	var headers []string
	var rows []map[string]string

	for tr := range table.Descendants() {
		if tr.Type != html.ElementNode || tr.DataAtom != atom.Tr || nearestTable(tr) != table {
			continue
		}

		var cells []string
		allHeaders := true
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode || (c.DataAtom != atom.Td && c.DataAtom != atom.Th) {
				continue
			}
			if c.DataAtom == atom.Td {
				allHeaders = false
			}
			cells = append(cells, nodeText(c))
		}
		if len(cells) == 0 {
			continue
		}
		if allHeaders && headers == nil {
			headers = cells
			continue
		}

		row := make(map[string]string, len(cells)*2)
		for i, cell := range cells {
			row[fmt.Sprintf("col%d", i)] = cell
			if i < len(headers) && headers[i] != "" {
				row[headers[i]] = cell
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// nearestTable is the closest enclosing table, so nested tables are not merged.
func nearestTable(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.DataAtom == atom.Table {
			return p
		}
	}
	return nil
}

// nodeText concatenates the text under n with whitespace collapsed.
func nodeText(n *html.Node) string {
	var b strings.Builder
	for d := range n.Descendants() {
		if d.Type == html.TextNode {
			b.WriteString(d.Data)
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
