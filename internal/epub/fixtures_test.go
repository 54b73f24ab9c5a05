package epub

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

const testContainerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

// testItem is a manifest entry for buildOPF.
type testItem struct {
	ID, Href, MediaType string
}

// buildOPF renders a package document. metadata is inserted verbatim.
func buildOPF(metadata string, items []testItem, spine []string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0" unique-identifier="bookid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:opf="http://www.idpf.org/2007/opf">
`)
	b.WriteString(metadata)
	b.WriteString("\n  </metadata>\n  <manifest>\n")
	for _, it := range items {
		mediaType := it.MediaType
		if mediaType == "" {
			mediaType = "application/xhtml+xml"
		}
		fmt.Fprintf(&b, "    <item id=%q href=%q media-type=%q/>\n", it.ID, it.Href, mediaType)
	}
	b.WriteString("  </manifest>\n  <spine toc=\"ncx\">\n")
	for _, idref := range spine {
		fmt.Fprintf(&b, "    <itemref idref=%q/>\n", idref)
	}
	b.WriteString("  </spine>\n</package>")
	return b.String()
}

// xhtml wraps body markup in a minimal XHTML document.
func xhtml(title, body string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>` + title + `</title><link rel="stylesheet" href="style.css"/></head>
<body>` + body + `</body>
</html>`
}

// zipBytes builds an EPUB archive in memory. The mimetype entry is written
// first and stored uncompressed unless files overrides it.
func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	if _, ok := files["mimetype"]; !ok {
		mw, err := w.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
		if err != nil {
			t.Fatalf("failed to create mimetype: %v", err)
		}
		if _, err := mw.Write([]byte("application/epub+zip")); err != nil {
			t.Fatalf("failed to write mimetype: %v", err)
		}
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
		if _, err := fw.Write([]byte(files[name])); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}

	if err := w.Close(); err != nil {
		t.Fatalf("failed to close zip writer: %v", err)
	}
	return buf.Bytes()
}

// writeEPUB writes an archive to dir/name and returns its path.
func writeEPUB(t *testing.T, dir, name string, files map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, zipBytes(t, files), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// sampleFiles returns a three-chapter book whose spine order differs from
// its manifest order.
func sampleFiles() map[string]string {
	return map[string]string{
		"META-INF/container.xml": testContainerXML,
		"OEBPS/content.opf": buildOPF(
			`    <dc:title>Sample Book</dc:title>
    <dc:creator opf:role="aut">Jane Doe</dc:creator>
    <meta name="cover" content="front"/>`,
			[]testItem{
				{ID: "c1", Href: "text/c1.xhtml"},
				{ID: "c2", Href: "text/c2.xhtml"},
				{ID: "c3", Href: "text/c3.xhtml"},
				{ID: "front", Href: "images/front.jpg", MediaType: "image/jpeg"},
			},
			[]string{"c3", "c1", "c2"},
		),
		"OEBPS/text/c1.xhtml": xhtml("One", `<h1>The Beginning</h1><p>First chapter.</p>`),
		"OEBPS/text/c2.xhtml": xhtml("Two", `<h2>Middle</h2><p>Second chapter.</p>`),
		"OEBPS/text/c3.xhtml": xhtml("Three", `<h1>Foreword</h1><p>Before everything.</p>`),
		"OEBPS/images/front.jpg": "jpeg-bytes",
	}
}

// openSample parses sampleFiles and registers cleanup.
func openSample(t *testing.T, files map[string]string) *Reader {
	t.Helper()
	path := writeEPUB(t, t.TempDir(), "sample.epub", files)
	r := New(path)
	t.Cleanup(func() { r.Close() })
	return r
}
