package epub

// Metadata holds the book-level fields read from the package document.
type Metadata struct {
	Title     string
	Author    string
	CoverPath string // absolute in-archive path; empty when no cover was resolved
}

// Chapter is one spine-resolved, sanitized content unit.
type Chapter struct {
	ID      string // manifest item ID
	Href    string // absolute path within the archive
	Title   string
	Content string // sanitized inner HTML of <body>
}

// manifestItem is an entry of the package manifest. It only lives while the
// package document is being resolved.
type manifestItem struct {
	ID         string
	Href       string // relative to the package document
	MediaType  string
	Properties []string
}

// packageDocument is the resolved result of the package document before
// chapter content is loaded.
type packageDocument struct {
	Metadata Metadata
	Manifest map[string]manifestItem // id -> item
	Spine    []string                // idrefs in reading order
}

// State is the lifecycle stage of a Reader.
type State int

const (
	StateUnopened State = iota
	StateParsing
	StateReady
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateParsing:
		return "parsing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
