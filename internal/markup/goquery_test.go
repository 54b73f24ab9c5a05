package markup

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseXML_NamespacePrefixTolerated(t *testing.T) {
	data := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:opf="http://www.idpf.org/2007/opf">
    <dc:title>Namespaced Title</dc:title>
    <dc:creator opf:role="aut">Jane Doe</dc:creator>
  </metadata>
</package>`)

	doc, err := NewGoquery().ParseXML(data)
	if err != nil {
		t.Fatalf("ParseXML() error = %v", err)
	}

	title, ok := doc.First("metadata title")
	if !ok {
		t.Fatal("First(metadata title) not found")
	}
	if got := title.Text(); got != "Namespaced Title" {
		t.Errorf("title = %q, want %q", got, "Namespaced Title")
	}

	creator, ok := doc.First("metadata creator")
	if !ok {
		t.Fatal("First(metadata creator) not found")
	}
	if role, _ := creator.Attr("role"); role != "aut" {
		t.Errorf("role = %q, want %q", role, "aut")
	}
}

func TestParseXML_AttributeSelectorsAndOrder(t *testing.T) {
	data := []byte(`<manifest>
  <item id="c3" href="c3.xhtml" media-type="application/xhtml+xml"/>
  <item id="c1" href="c1.xhtml" media-type="application/xhtml+xml"/>
  <item href="orphan.xhtml"/>
</manifest>`)

	doc, err := NewGoquery().ParseXML(data)
	if err != nil {
		t.Fatalf("ParseXML() error = %v", err)
	}

	var ids []string
	for _, n := range doc.All("item[id]") {
		id, _ := n.Attr("id")
		ids = append(ids, id)
	}
	if diff := cmp.Diff([]string{"c3", "c1"}, ids); diff != "" {
		t.Errorf("item ids mismatch (-want +got):\n%s", diff)
	}
}

func TestParseXML_HTMLEntities(t *testing.T) {
	doc, err := NewGoquery().ParseXML([]byte(`<metadata><title>Caf&eacute; &amp; Bar&nbsp;</title></metadata>`))
	if err != nil {
		t.Fatalf("ParseXML() error = %v", err)
	}
	title, _ := doc.First("title")
	if got := title.Text(); got != "Café & Bar\u00a0" {
		t.Errorf("title = %q", got)
	}
}

func TestParseXML_Malformed(t *testing.T) {
	tests := map[string]string{
		"unclosed": `<package><metadata>`,
		"empty":    ``,
		"garbage":  `<<not xml>>`,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewGoquery().ParseXML([]byte(data))
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("ParseXML() error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestParseHTML_RemoveAndBodyHTML(t *testing.T) {
	data := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>Head</title><link rel="stylesheet" href="a.css"/><style>p{}</style></head>
<body><div><script>alert(1)</script><p onclick="x()">Hello</p></div></body>
</html>`)

	doc, err := NewGoquery().ParseHTML(data)
	if err != nil {
		t.Fatalf("ParseHTML() error = %v", err)
	}

	if n := doc.Remove("script, style, link"); n != 3 {
		t.Errorf("Remove() = %d, want 3", n)
	}
	if n := doc.StripAttrs(func(key, _ string) bool { return strings.HasPrefix(key, "on") }); n != 1 {
		t.Errorf("StripAttrs() = %d, want 1", n)
	}

	body, err := doc.BodyHTML()
	if err != nil {
		t.Fatalf("BodyHTML() error = %v", err)
	}
	if strings.TrimSpace(body) != "<div><p>Hello</p></div>" {
		t.Errorf("BodyHTML() = %q", body)
	}
}

func TestParseHTML_FirstUsesDocumentOrder(t *testing.T) {
	doc, err := NewGoquery().ParseHTML([]byte(`<body><h3>Third level first</h3><h1>Top</h1></body>`))
	if err != nil {
		t.Fatalf("ParseHTML() error = %v", err)
	}
	n, ok := doc.First("h1, h2, h3, title")
	if !ok {
		t.Fatal("First() not found")
	}
	if got := n.Text(); got != "Third level first" {
		t.Errorf("First() text = %q, want %q", got, "Third level first")
	}
}

func TestParseHTML_InvalidSelectorMatchesNothing(t *testing.T) {
	doc, err := NewGoquery().ParseHTML([]byte(`<p>x</p>`))
	if err != nil {
		t.Fatalf("ParseHTML() error = %v", err)
	}
	if _, ok := doc.First("p[["); ok {
		t.Error("First() with invalid selector should not match")
	}
	if n := doc.Remove("p[["); n != 0 {
		t.Errorf("Remove() = %d, want 0", n)
	}
}

func TestDocumentText(t *testing.T) {
	doc, err := NewGoquery().ParseHTML([]byte(`<body>
<h1>  Title </h1>
<p>First   <em>line</em>
 continues.</p><p>Second &amp; last.</p>
<script>var hidden = 1;</script>
</body>`))
	if err != nil {
		t.Fatalf("ParseHTML() error = %v", err)
	}

	want := "Title\nFirst line continues.\nSecond & last."
	if got := doc.Text(); got != want {
		t.Errorf("Text() = %q, want %q", got, want)
	}
}

func TestDirectText(t *testing.T) {
	doc, err := NewGoquery().ParseHTML([]byte(`<div>Lead <b>bold</b> <p>nested block</p> tail</div>`))
	if err != nil {
		t.Fatalf("ParseHTML() error = %v", err)
	}
	n, ok := doc.First("div")
	if !ok {
		t.Fatal("div not found")
	}
	got := n.DirectText(map[string]bool{"b": true})
	if got != "Lead bold  tail" {
		t.Errorf("DirectText() = %q", got)
	}
}

func TestParseHTML_Latin1Declared(t *testing.T) {
	// "café" in ISO-8859-1
	data := append([]byte(`<html><head><meta charset="iso-8859-1"></head><body><p>caf`), 0xE9)
	data = append(data, []byte(`</p></body></html>`)...)

	doc, err := NewGoquery().ParseHTML(data)
	if err != nil {
		t.Fatalf("ParseHTML() error = %v", err)
	}
	if got := doc.Text(); got != "café" {
		t.Errorf("Text() = %q, want %q", got, "café")
	}
}

func TestParseHTML_SelfClosingRawTextElements(t *testing.T) {
	tests := []struct {
		name string
		head string
	}{
		{"title", `<title/>`},
		{"title with space", `<title />`},
		{"script with src", `<script type="text/javascript" src="../js/a.js"/>`},
		{"style", `<style type="text/css"/>`},
		{"upper case", `<TITLE/>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head>` + tt.head + `</head>
<body><h1>Kept</h1><p>Body text.</p></body></html>`)

			doc, err := NewGoquery().ParseHTML(data)
			if err != nil {
				t.Fatalf("ParseHTML() error = %v", err)
			}
			h1, ok := doc.First("h1")
			if !ok || h1.Text() != "Kept" {
				t.Fatalf("h1 missing after self-closing %s", tt.head)
			}
			if got := doc.Text(); got != "Kept\nBody text." {
				t.Errorf("Text() = %q, want %q", got, "Kept\nBody text.")
			}
		})
	}
}

func TestParseHTML_NoscriptChildrenAreElements(t *testing.T) {
	doc, err := NewGoquery().ParseHTML([]byte(`<body><noscript><script>alert(1)</script><p>Fallback</p></noscript></body>`))
	if err != nil {
		t.Fatalf("ParseHTML() error = %v", err)
	}
	if n := doc.Remove("script"); n != 1 {
		t.Errorf("Remove(script) = %d, want 1", n)
	}
	if _, ok := doc.First("noscript p"); !ok {
		t.Error("noscript p should be an element")
	}
}

func TestDocumentText_SkipsRawTextContainers(t *testing.T) {
	doc, err := NewGoquery().ParseHTML([]byte(`<body><p>Before</p><iframe><script>x()</script></iframe><xmp><b>raw</b></xmp><p>After</p></body>`))
	if err != nil {
		t.Fatalf("ParseHTML() error = %v", err)
	}
	if got := doc.Text(); got != "Before\nAfter" {
		t.Errorf("Text() = %q, want %q", got, "Before\nAfter")
	}
}

func TestStripAttrs_ValuesAndNamespaces(t *testing.T) {
	doc, err := NewGoquery().ParseHTML([]byte(`<body><a href="javascript:x()">a</a><a href="b.html">b</a>` +
		`<svg><image xlink:href="javascript:y()"></image></svg></body>`))
	if err != nil {
		t.Fatalf("ParseHTML() error = %v", err)
	}

	var keys []string
	n := doc.StripAttrs(func(key, val string) bool {
		if strings.HasPrefix(val, "javascript:") {
			keys = append(keys, key)
			return true
		}
		return false
	})
	if n != 2 {
		t.Errorf("StripAttrs() = %d, want 2", n)
	}
	if diff := cmp.Diff([]string{"href", "xlink:href"}, keys); diff != "" {
		t.Errorf("stripped keys mismatch (-want +got):\n%s", diff)
	}

	body, err := doc.BodyHTML()
	if err != nil {
		t.Fatalf("BodyHTML() error = %v", err)
	}
	if strings.Contains(body, "javascript:") || !strings.Contains(body, `href="b.html"`) {
		t.Errorf("BodyHTML() = %q", body)
	}
}
