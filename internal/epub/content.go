package epub

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/yuanying/epubreader/internal/markup"
)

// MaxTitleLength bounds heading text accepted as a chapter title. Longer
// text usually means a heading wraps the whole chapter.
const MaxTitleLength = 100

const (
	// Raw text containers are removed whole; their bodies are never parsed
	// into elements and would otherwise be written back out verbatim.
	unsafeElements = "script, style, link, noscript, iframe, noembed, noframes, xmp, plaintext"
	titleElements  = "h1, h2, h3, title"
)

// loadChapterContent reads the chapter at path and returns the inner HTML of
// its body with script, style, link and raw text elements, event handler
// attributes and unsafe URLs removed.
func loadChapterContent(a *archive, p markup.Parser, path string) (string, error) {
	data, err := a.ReadFile(path)
	if err != nil {
		return "", err
	}
	return sanitizeChapter(p, data)
}

// sanitizeChapter strips unsafe markup from an XHTML document and returns
// the serialized body.
func sanitizeChapter(p markup.Parser, data []byte) (string, error) {
	doc, err := p.ParseHTML(data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedMarkup, err)
	}

	doc.Remove(unsafeElements)
	doc.StripAttrs(isUnsafeAttr)

	body, err := doc.BodyHTML()
	if err != nil {
		return "", fmt.Errorf("failed to render body: %w", err)
	}
	return strings.TrimSpace(body), nil
}

// extractChapterTitle returns the first h1, h2, h3 or title text of the
// sanitized content when it is non-empty and shorter than MaxTitleLength,
// otherwise "Chapter {index}".
func extractChapterTitle(p markup.Parser, content string, index int) string {
	fallback := "Chapter " + strconv.Itoa(index)

	doc, err := p.ParseHTML([]byte(content))
	if err != nil {
		return fallback
	}
	heading, ok := doc.First(titleElements)
	if !ok {
		return fallback
	}

	text := collapseSpace(heading.Text())
	if text == "" || utf8.RuneCountInString(text) >= MaxTitleLength {
		return fallback
	}
	return text
}

// chapterText re-parses stored chapter HTML and returns its text only.
func chapterText(p markup.Parser, content string) (string, error) {
	doc, err := p.ParseHTML([]byte(content))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedMarkup, err)
	}
	return doc.Text(), nil
}

// isUnsafeAttr matches event handler attributes and URL attributes whose
// scheme could run code, such as javascript: links.
func isUnsafeAttr(key, val string) bool {
	key = strings.ToLower(key)
	if len(key) > 2 && strings.HasPrefix(key, "on") {
		return true
	}
	switch key {
	case "href", "src", "xlink:href", "action", "formaction":
		return !isSafeURI(val)
	}
	return false
}

// isSafeURI accepts relative references, fragments, http, https, mailto and
// data:image URIs.
func isSafeURI(raw string) bool {
	v := strings.TrimSpace(raw)
	if v == "" || strings.HasPrefix(v, "#") || strings.HasPrefix(v, "./") || strings.HasPrefix(v, "../") {
		return true
	}

	u, err := url.Parse(v)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https", "mailto":
		return true
	case "data":
		return strings.HasPrefix(strings.ToLower(v), "data:image/")
	}
	return false
}
