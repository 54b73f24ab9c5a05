// Package markup parses XML and HTML buffers into trees that can be queried
// by tag and attribute. Callers depend on the Parser, Document and Node
// interfaces only, so the underlying parsing library can be replaced without
// touching reader logic.
package markup

import "errors"

// ErrMalformed is returned when a buffer cannot be parsed as markup.
var ErrMalformed = errors.New("malformed markup")

// Parser turns raw bytes into a queryable Document.
type Parser interface {
	// ParseXML parses an XML document. Element names and attribute keys are
	// reduced to their lower-cased local names, so "dc:title" matches the
	// selector "title".
	ParseXML(data []byte) (Document, error)

	// ParseHTML parses an HTML or XHTML document leniently.
	ParseHTML(data []byte) (Document, error)
}

// Document is a parsed markup tree. Selectors use CSS syntax.
// An invalid selector matches nothing.
type Document interface {
	// First returns the first node in document order matching selector.
	First(selector string) (Node, bool)

	// All returns every node matching selector in document order.
	All(selector string) []Node

	// Remove detaches every node matching selector, including its subtree,
	// and reports how many were removed.
	Remove(selector string) int

	// StripAttrs removes every attribute for which match reports true and
	// reports how many were removed. Namespaced keys are passed as
	// "prefix:key", for example "xlink:href".
	StripAttrs(match func(key, val string) bool) int

	// BodyHTML serialises the inner markup of the body element.
	// It returns an empty string when the document has no body.
	BodyHTML() (string, error)

	// Text returns the document's text with all markup removed. Block-level
	// elements are separated by newlines and runs of whitespace inside a
	// block collapse to a single space.
	Text() string
}

// Node is a single element of a Document.
type Node interface {
	// Attr returns the value of the named attribute.
	Attr(name string) (string, bool)

	// Text returns the concatenated text of the node and its descendants.
	Text() string

	// DirectText returns the node's own text children plus the full text of
	// child elements whose tag is listed in inline.
	DirectText(inline map[string]bool) string
}
