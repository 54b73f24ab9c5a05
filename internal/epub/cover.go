package epub

import (
	"strings"

	"github.com/yuanying/epubreader/internal/markup"
)

// detectCover resolves the cover image path in two passes over the manifest:
//  1. heuristic: an image item declared with properties="cover-image", or
//     failing that the last image item whose id or href contains "cover"
//     (case-insensitive)
//  2. explicit: <meta name="cover" content="ID"> naming a manifest item
//
// The explicit declaration is applied last so it always wins when present.
// Returns an empty string when no cover is found.
func detectCover(doc markup.Document, manifest map[string]manifestItem, order []manifestItem, base string) string {
	var candidate string
	declared := false

	for _, item := range order {
		if !isImageMediaType(item.MediaType) {
			continue
		}
		if hasProperty(item, "cover-image") {
			candidate = resolveHref(base, item.Href)
			declared = true
			continue
		}
		if !declared && looksLikeCover(item) {
			candidate = resolveHref(base, item.Href)
		}
	}

	if meta, ok := doc.First("meta[name=cover]"); ok {
		id, _ := meta.Attr("content")
		if item, ok := manifest[strings.TrimSpace(id)]; ok {
			candidate = resolveHref(base, item.Href)
		}
	}

	return candidate
}

func looksLikeCover(item manifestItem) bool {
	return strings.Contains(strings.ToLower(item.ID), "cover") ||
		strings.Contains(strings.ToLower(item.Href), "cover")
}

func hasProperty(item manifestItem, prop string) bool {
	for _, p := range item.Properties {
		if strings.EqualFold(p, prop) {
			return true
		}
	}
	return false
}

// isImageMediaType checks if a media type is an image.
func isImageMediaType(mediaType string) bool {
	return strings.HasPrefix(mediaType, "image/")
}
