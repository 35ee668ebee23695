package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// labelFinder is one step of the label discovery chain. It reports whether
// the step matched structurally and, if so, the label text.
type labelFinder func(d *Document, field *goquery.Selection) (string, bool)

// labelChain is evaluated in order; the first structural match wins.
var labelChain = []labelFinder{
	labelByFor,
	labelByAncestor,
	labelByPrecedingSibling,
	labelByAriaLabelledBy,
}

// FindLabel returns the text of the label associated with field.
func (d *Document) FindLabel(field *goquery.Selection) (string, bool) {
	if field == nil || field.Length() == 0 {
		return "", false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.findLabel(field)
}

func (d *Document) findLabel(field *goquery.Selection) (string, bool) {
	for _, find := range labelChain {
		if text, ok := find(d, field); ok {
			return text, true
		}
	}
	return "", false
}

func labelByFor(d *Document, field *goquery.Selection) (string, bool) {
	id := field.AttrOr("id", "")
	if id == "" {
		return "", false
	}
	for _, n := range htmlquery.Find(d.doc.Get(0), "//label[@for]") {
		if htmlquery.SelectAttr(n, "for") == id {
			return normalizeWhitespace(htmlquery.InnerText(n)), true
		}
	}
	return "", false
}

func labelByAncestor(_ *Document, field *goquery.Selection) (string, bool) {
	label := field.ParentsFiltered("label").First()
	if label.Length() == 0 {
		return "", false
	}
	return normalizeWhitespace(textExcluding(label.Get(0), field.Get(0))), true
}

func labelByPrecedingSibling(_ *Document, field *goquery.Selection) (string, bool) {
	prev := field.Prev()
	if TagName(prev) != "LABEL" {
		return "", false
	}
	return normalizeWhitespace(prev.Text()), true
}

func labelByAriaLabelledBy(d *Document, field *goquery.Selection) (string, bool) {
	ids := strings.Fields(field.AttrOr("aria-labelledby", ""))
	var parts []string
	for _, id := range ids {
		if ref := d.elementByID(id); ref != nil {
			parts = append(parts, normalizeWhitespace(ref.Text()))
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, " "), true
}

// textExcluding returns the text content of root without the subtree at skip.
func textExcluding(root, skip *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n == skip {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return sb.String()
}
