// Package extract reduces release pages to comparable text using an ordered
// list of selector strategies.
package extract

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/theresaanna/san-x-monitor/internal/monitor"
)

// DefaultSelectors lists listing containers first and generic containers last.
var DefaultSelectors = []string{
	".feature-products",
	".product-list",
	".new-items",
	".items-grid",
	".products",
	".main-content",
	"#main",
	".container",
	"main",
}

// noiseSelector matches nodes whose text never belongs to page content.
const noiseSelector = "script, style, noscript, template"

// Strategy tries to locate the content root of a document.
type Strategy interface {
	Name() string
	Match(doc *goquery.Document) (*goquery.Selection, bool)
}

// SelectorStrategy matches the first element for a CSS selector.
type SelectorStrategy struct {
	Selector string
}

// Name returns the selector.
func (s SelectorStrategy) Name() string { return s.Selector }

// Match returns the first element matching the selector.
func (s SelectorStrategy) Match(doc *goquery.Document) (*goquery.Selection, bool) {
	sel := doc.Find(s.Selector).First()
	return sel, sel.Length() > 0
}

// BodyStrategy matches the document body.
type BodyStrategy struct{}

// Name returns "body".
func (BodyStrategy) Name() string { return "body" }

// Match returns the <body> element.
func (BodyStrategy) Match(doc *goquery.Document) (*goquery.Selection, bool) {
	sel := doc.Find("body").First()
	return sel, sel.Length() > 0
}

// Extractor implements monitor.Extractor.
type Extractor struct {
	strategies []Strategy
}

// New builds an Extractor trying selectors in order and falling back to the
// body. Blank selectors are ignored; nil selectors use DefaultSelectors.
func New(selectors []string) *Extractor {
	if selectors == nil {
		selectors = DefaultSelectors
	}
	strategies := make([]Strategy, 0, len(selectors)+1)
	for _, sel := range selectors {
		sel = strings.TrimSpace(sel)
		if sel == "" {
			continue
		}
		strategies = append(strategies, SelectorStrategy{Selector: sel})
	}
	strategies = append(strategies, BodyStrategy{})
	return &Extractor{strategies: strategies}
}

// Strategies returns the ordered strategy names.
func (e *Extractor) Strategies() []string {
	names := make([]string, 0, len(e.strategies))
	for _, s := range e.strategies {
		names = append(names, s.Name())
	}
	return names
}

// Extract parses body, drops the nodes matched by noiseSelector and
// serializes the text of the first matching strategy. The strategy name is
// "" when nothing matched, which only happens for documents without a body.
func (e *Extractor) Extract(body []byte) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", "", &monitor.ParseError{Err: err}
	}
	doc.Find(noiseSelector).Remove()

	for _, strategy := range e.strategies {
		if sel, ok := strategy.Match(doc); ok {
			return Text(sel), strategy.Name(), nil
		}
	}
	return "", "", nil
}

// Text joins the trimmed, non-empty text nodes under sel with single spaces.
// Comments are skipped.
func Text(sel *goquery.Selection) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(parts, " ")
}
