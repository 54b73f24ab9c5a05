package epub

import (
	"fmt"
	"path"
	"strings"

	"github.com/yuanying/epubreader/internal/markup"
	"golang.org/x/text/unicode/norm"
)

// DefaultAuthor is used when the package document names no creator.
const DefaultAuthor = "Unknown Author"

// UntitledTitle is used when neither the package document nor the book's
// name provides a title.
const UntitledTitle = "Untitled"

// packageDefaults are applied when metadata elements are missing.
type packageDefaults struct {
	Title  string
	Author string
}

// resolvePackage reads and parses the package document named by c.
func resolvePackage(a *archive, p markup.Parser, c container, defaults packageDefaults) (*packageDocument, error) {
	data, err := a.ReadFile(c.PackagePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPackageDocumentMissing, err)
	}

	doc, err := p.ParseXML(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedMarkup, c.PackagePath, err)
	}

	return parsePackage(doc, c.BaseDir, defaults), nil
}

// parsePackage extracts metadata, manifest and spine from a parsed package
// document.
func parsePackage(doc markup.Document, base string, defaults packageDefaults) *packageDocument {
	pkg := &packageDocument{
		Metadata: Metadata{
			Title:  firstText(doc, "metadata title", defaults.Title),
			Author: firstText(doc, "metadata creator", defaults.Author),
		},
	}

	var order []manifestItem
	pkg.Manifest, order = buildManifest(doc)
	pkg.Metadata.CoverPath = detectCover(doc, pkg.Manifest, order, base)

	for _, ref := range doc.All("spine itemref") {
		idref, _ := ref.Attr("idref")
		pkg.Spine = append(pkg.Spine, strings.TrimSpace(idref))
	}

	return pkg
}

// buildManifest records every manifest item by id. Items are also returned
// in declaration order for the cover heuristic.
func buildManifest(doc markup.Document) (map[string]manifestItem, []manifestItem) {
	manifest := make(map[string]manifestItem)
	var order []manifestItem

	for _, n := range doc.All("manifest item") {
		id, _ := n.Attr("id")
		href, _ := n.Attr("href")
		mediaType, _ := n.Attr("media-type")
		properties, _ := n.Attr("properties")

		id = strings.TrimSpace(id)
		href = strings.TrimSpace(href)
		if id == "" || href == "" {
			continue
		}

		item := manifestItem{
			ID:         id,
			Href:       href,
			MediaType:  strings.ToLower(strings.TrimSpace(mediaType)),
			Properties: strings.Fields(properties),
		}
		manifest[id] = item
		order = append(order, item)
	}

	return manifest, order
}

// firstText returns the collapsed, NFC-normalized text of the first node
// matching selector, or fallback when there is none or it is blank.
func firstText(doc markup.Document, selector, fallback string) string {
	n, ok := doc.First(selector)
	if !ok {
		return fallback
	}
	if text := collapseSpace(n.Text()); text != "" {
		return text
	}
	return fallback
}

// collapseSpace trims s, collapses internal whitespace runs to one space and
// normalizes to NFC.
func collapseSpace(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

// resolveHref joins a manifest href onto the package base directory.
func resolveHref(base, href string) string {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		href = href[:i]
	}
	joined := base + href
	if strings.Contains(joined, "./") {
		joined = path.Clean(joined)
	}
	return normalizePath(joined)
}
