package markup

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// selfClosingRawTextPattern matches XHTML self-closing forms of elements an
// HTML parser treats as raw text or RCDATA. Left alone, "<title/>" would
// swallow the rest of the document.
var selfClosingRawTextPattern = regexp.MustCompile(`(?is)<(script|style|title|textarea|iframe|noscript|noembed|noframes|xmp)\b([^>]*?)\s*/>`)

// skipTextTags hold no readable text.
var skipTextTags = map[string]bool{
	"script": true, "style": true, "iframe": true, "noembed": true,
	"noframes": true, "xmp": true, "plaintext": true, "template": true,
}

// blockTags separate lines when extracting text.
var blockTags = map[string]bool{
	"p": true, "br": true, "div": true, "li": true, "tr": true, "hr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "section": true, "article": true, "td": true, "th": true,
	"title": true, "pre": true, "dt": true, "dd": true, "figcaption": true,
}

// Goquery implements Parser on top of goquery and golang.org/x/net/html.
type Goquery struct{}

// NewGoquery returns the default Parser.
func NewGoquery() Goquery {
	return Goquery{}
}

// ParseHTML parses data as HTML with scripting disabled, so noscript content
// is parsed as elements. A leading BOM is stripped, XHTML self-closing raw
// text elements are expanded, and input that is not valid UTF-8 is decoded
// using the charset declared in the document.
func (Goquery) ParseHTML(data []byte) (Document, error) {
	data = expandSelfClosing(bytes.TrimPrefix(data, utf8BOM))

	var r io.Reader = bytes.NewReader(data)
	if !utf8.Valid(data) {
		decoded, err := charset.NewReader(r, "")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		r = decoded
	}

	root, err := html.ParseWithOptions(r, html.ParseOptionEnableScripting(false))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &goqueryDocument{doc: goquery.NewDocumentFromNode(root)}, nil
}

func expandSelfClosing(data []byte) []byte {
	if !selfClosingRawTextPattern.Match(data) {
		return data
	}
	return selfClosingRawTextPattern.ReplaceAll(data, []byte(`<$1$2></$1>`))
}

// ParseXML parses data as XML into a node tree queryable with the same
// selectors as HTML. Namespace prefixes are dropped from element names and
// attribute keys; HTML named entities are accepted.
func (Goquery) ParseXML(data []byte) (Document, error) {
	dec := xml.NewDecoder(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	dec.CharsetReader = charset.NewReaderLabel
	dec.Entity = xml.HTMLEntity

	root := &html.Node{Type: html.DocumentNode}
	cur := root
	sawElement := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &html.Node{
				Type: html.ElementNode,
				Data: strings.ToLower(t.Name.Local),
			}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
					continue
				}
				n.Attr = append(n.Attr, html.Attribute{
					Key: strings.ToLower(a.Name.Local),
					Val: a.Value,
				})
			}
			cur.AppendChild(n)
			cur = n
			sawElement = true
		case xml.EndElement:
			if cur.Parent != nil {
				cur = cur.Parent
			}
		case xml.CharData:
			cur.AppendChild(&html.Node{Type: html.TextNode, Data: string(t)})
		}
	}

	if !sawElement {
		return nil, fmt.Errorf("%w: no root element", ErrMalformed)
	}
	return &goqueryDocument{doc: goquery.NewDocumentFromNode(root)}, nil
}

type goqueryDocument struct {
	doc *goquery.Document
}

func (d *goqueryDocument) find(selector string) *goquery.Selection {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return d.doc.Slice(0, 0)
	}
	return d.doc.FindMatcher(m)
}

func (d *goqueryDocument) First(selector string) (Node, bool) {
	s := d.find(selector).First()
	if s.Length() == 0 {
		return nil, false
	}
	return goqueryNode{sel: s}, true
}

func (d *goqueryDocument) All(selector string) []Node {
	s := d.find(selector)
	nodes := make([]Node, 0, s.Length())
	s.Each(func(_ int, item *goquery.Selection) {
		nodes = append(nodes, goqueryNode{sel: item})
	})
	return nodes
}

func (d *goqueryDocument) Remove(selector string) int {
	s := d.find(selector)
	n := s.Length()
	s.Remove()
	return n
}

func (d *goqueryDocument) StripAttrs(match func(key, val string) bool) int {
	removed := 0
	d.doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)
		kept := node.Attr[:0]
		for _, attr := range node.Attr {
			key := attr.Key
			if attr.Namespace != "" {
				key = attr.Namespace + ":" + key
			}
			if match(key, attr.Val) {
				removed++
				continue
			}
			kept = append(kept, attr)
		}
		node.Attr = kept
	})
	return removed
}

func (d *goqueryDocument) BodyHTML() (string, error) {
	body := d.find("body").First()
	if body.Length() == 0 {
		return "", nil
	}
	return body.Html()
}

func (d *goqueryDocument) Text() string {
	var b strings.Builder
	for _, n := range d.doc.Nodes {
		writeText(&b, n)
	}
	return normalizeLines(b.String())
}

// writeText appends the text below n, surrounding block elements with
// newlines. Script, style and other raw text bodies are skipped.
func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(strings.Map(flattenNewline, n.Data))
		return
	case html.ElementNode:
		if skipTextTags[n.Data] {
			return
		}
	}

	block := n.Type == html.ElementNode && blockTags[n.Data]
	if block {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if block {
		b.WriteByte('\n')
	}
}

func flattenNewline(r rune) rune {
	if r == '\n' || r == '\r' {
		return ' '
	}
	return r
}

// normalizeLines collapses whitespace within each line and drops blank lines.
func normalizeLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if collapsed := strings.Join(strings.Fields(line), " "); collapsed != "" {
			out = append(out, collapsed)
		}
	}
	return strings.Join(out, "\n")
}

type goqueryNode struct {
	sel *goquery.Selection
}

func (n goqueryNode) Attr(name string) (string, bool) {
	return n.sel.Attr(name)
}

func (n goqueryNode) Text() string {
	return n.sel.Text()
}

func (n goqueryNode) DirectText(inline map[string]bool) string {
	var b strings.Builder
	for c := n.sel.Get(0).FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			b.WriteString(c.Data)
		case html.ElementNode:
			if inline[c.Data] {
				writeRawText(&b, c)
			}
		}
	}
	return b.String()
}

func writeRawText(b *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeRawText(b, c)
	}
}
