package epub

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
)

const (
	// ContainerPath is the fixed location of the container descriptor.
	ContainerPath = "META-INF/container.xml"

	expectedMimetype = "application/epub+zip"
)

var (
	ErrArchiveOpen        = errors.New("failed to open archive")
	ErrFileNotFound       = errors.New("file not found in archive")
	ErrClosed             = errors.New("archive is closed")
	ErrMimetypeNotFound   = errors.New("mimetype file not found")
	ErrMimetypeCompressed = errors.New("mimetype must not be compressed")
	ErrInvalidMimetype    = errors.New("invalid mimetype: must be 'application/epub+zip'")
)

// archive is an exclusively owned handle on a zip container.
type archive struct {
	zr     *zip.Reader
	closer io.Closer // nil when the caller owns the underlying reader
	files  map[string]*zip.File
	closed bool
}

// openArchive opens the zip file at path.
func openArchive(path string) (*archive, error) {
	zrc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArchiveOpen, err)
	}
	return newArchive(&zrc.Reader, zrc), nil
}

// openArchiveReaderAt opens a zip container held in r.
func openArchiveReaderAt(r io.ReaderAt, size int64) (*archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArchiveOpen, err)
	}
	return newArchive(zr, nil), nil
}

func newArchive(zr *zip.Reader, closer io.Closer) *archive {
	a := &archive{
		zr:     zr,
		closer: closer,
		files:  make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		name := normalizePath(f.Name)
		if _, dup := a.files[name]; !dup {
			a.files[name] = f
		}
	}
	return a
}

// lookup finds an entry by exact name, falling back to the percent-decoded
// form used by some manifests.
func (a *archive) lookup(name string) (*zip.File, bool) {
	name = normalizePath(name)
	if f, ok := a.files[name]; ok {
		return f, true
	}
	if decoded, err := url.PathUnescape(name); err == nil && decoded != name {
		f, ok := a.files[decoded]
		return f, ok
	}
	return nil, false
}

// Open returns a reader for the named entry. The caller must close it.
func (a *archive) Open(name string) (io.ReadCloser, error) {
	if a == nil || a.closed {
		return nil, ErrClosed
	}
	f, ok := a.lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", name, err)
	}
	return rc, nil
}

// ReadFile reads the full contents of the named entry.
func (a *archive) ReadFile(name string) ([]byte, error) {
	rc, err := a.Open(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", name, err)
	}
	return data, nil
}

// Size reports the uncompressed size of the named entry.
func (a *archive) Size(name string) (uint64, bool) {
	if a == nil || a.closed {
		return 0, false
	}
	f, ok := a.lookup(name)
	if !ok {
		return 0, false
	}
	return f.UncompressedSize64, true
}

// checkMimetype validates the mimetype entry. Readers treat a failure as a
// warning only; many archives in the wild get this wrong and are otherwise
// readable.
func (a *archive) checkMimetype() error {
	f, ok := a.files["mimetype"]
	if !ok {
		return ErrMimetypeNotFound
	}
	if f.Method != zip.Store {
		return ErrMimetypeCompressed
	}
	content, err := a.ReadFile("mimetype")
	if err != nil {
		return fmt.Errorf("failed to read mimetype: %w", err)
	}
	if strings.TrimSpace(string(content)) != expectedMimetype {
		return ErrInvalidMimetype
	}
	return nil
}

// Close releases the handle. It is safe to call more than once.
func (a *archive) Close() error {
	if a == nil || a.closed {
		return nil
	}
	a.closed = true
	a.files = nil
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

// normalizePath removes a leading "./" or "/" from an in-archive path.
func normalizePath(path string) string {
	path = strings.TrimPrefix(path, "./")
	return strings.TrimPrefix(path, "/")
}
