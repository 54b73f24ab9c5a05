package epub

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/yuanying/epubreader/internal/markup"
)

// Reader extracts metadata and reading-order chapters from an EPUB file.
//
// A Reader is inert until Parse is called and stays readable until Close.
// Accessors return empty or absent values in any state other than
// StateReady. A Reader is not safe for concurrent use; separate Readers over
// the same file are independent.
type Reader struct {
	name   string
	open   func() (*archive, error)
	logger *slog.Logger
	parser markup.Parser

	defaultAuthor string

	archive  *archive
	state    State
	err      error
	metadata Metadata
	chapters []Chapter
}

// Option configures a Reader.
type Option func(*Reader)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithParser replaces the markup parser.
func WithParser(p markup.Parser) Option {
	return func(r *Reader) {
		if p != nil {
			r.parser = p
		}
	}
}

// WithDefaultAuthor sets the author reported when the package document
// names no creator.
func WithDefaultAuthor(author string) Option {
	return func(r *Reader) {
		if author = strings.TrimSpace(author); author != "" {
			r.defaultAuthor = author
		}
	}
}

// New returns a Reader for the EPUB file at path. Nothing is read until
// Parse is called.
func New(path string, opts ...Option) *Reader {
	return newReader(path, func() (*archive, error) { return openArchive(path) }, opts)
}

// NewFromReaderAt returns a Reader over an EPUB held in r. name is used as
// the title fallback; an empty name falls back to UntitledTitle. The caller
// owns r; Close only releases internal state.
func NewFromReaderAt(name string, r io.ReaderAt, size int64, opts ...Option) *Reader {
	return newReader(name, func() (*archive, error) { return openArchiveReaderAt(r, size) }, opts)
}

func newReader(name string, open func() (*archive, error), opts []Option) *Reader {
	r := &Reader{
		name:          name,
		open:          open,
		logger:        slog.Default(),
		parser:        markup.NewGoquery(),
		defaultAuthor: DefaultAuthor,
		state:         StateUnopened,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("epub", name)
	return r
}

// Parse opens the archive and extracts metadata and chapters. It reports
// whether at least one chapter was produced; the cause of a failure is
// available from Err. Parse never panics. Calling Parse again after the
// first call does not re-read the archive.
func (r *Reader) Parse() (ok bool) {
	if r.state != StateUnopened {
		return r.state == StateReady
	}
	r.state = StateParsing

	defer func() {
		if p := recover(); p != nil {
			r.fail("parse", fmt.Errorf("%w: unexpected failure: %v", ErrMalformedMarkup, p))
			ok = false
		}
	}()

	if stage, err := r.parse(); err != nil {
		r.fail(stage, err)
		return false
	}

	r.state = StateReady
	r.logger.Debug("parsed epub",
		"title", r.metadata.Title,
		"author", r.metadata.Author,
		"chapters", len(r.chapters),
	)
	return true
}

// parse runs the two extraction stages. The stage name is returned with any
// error for diagnostics.
func (r *Reader) parse() (string, error) {
	a, err := r.open()
	if err != nil {
		return "open", err
	}
	r.archive = a

	if err := a.checkMimetype(); err != nil {
		r.logger.Warn("mimetype check failed", "error", err)
	}

	c, err := resolveContainer(a, r.parser)
	if err != nil {
		return "container", err
	}
	r.logger.Debug("resolved container", "package", c.PackagePath, "base", c.BaseDir)

	pkg, err := resolvePackage(a, r.parser, c, packageDefaults{
		Title:  titleFromName(r.name),
		Author: r.defaultAuthor,
	})
	if err != nil {
		return "package", err
	}

	chapters := r.loadChapters(a, pkg, c.BaseDir)
	if len(chapters) == 0 {
		return "spine", fmt.Errorf("%w: %d spine entries", ErrNoChapters, len(pkg.Spine))
	}

	r.metadata = pkg.Metadata
	r.chapters = chapters
	return "", nil
}

// loadChapters walks the spine in order. Entries missing from the manifest
// or whose content cannot be loaded are skipped; the title index counts only
// loaded chapters.
func (r *Reader) loadChapters(a *archive, pkg *packageDocument, base string) []Chapter {
	var chapters []Chapter
	index := 1

	for _, idref := range pkg.Spine {
		item, ok := pkg.Manifest[idref]
		if !ok {
			r.logger.Debug("spine item not in manifest, skipping", "idref", idref)
			continue
		}

		href := resolveHref(base, item.Href)
		content, err := loadChapterContent(a, r.parser, href)
		if err != nil {
			r.logger.Warn("failed to load chapter, skipping", "entry", href, "error", err)
			continue
		}

		chapters = append(chapters, Chapter{
			ID:      idref,
			Href:    href,
			Title:   extractChapterTitle(r.parser, content, index),
			Content: content,
		})
		index++
	}

	return chapters
}

// fail records err, drops any partial state and releases the archive.
func (r *Reader) fail(stage string, err error) {
	r.state = StateFailed
	r.err = err
	r.metadata = Metadata{}
	r.chapters = nil
	r.logger.Error("failed to parse epub", "stage", stage, "error", err)

	if cerr := r.archive.Close(); cerr != nil {
		r.logger.Warn("failed to close archive", "error", cerr)
	}
}

// Err returns the cause of the last failed Parse, or nil. Use errors.Is with
// ErrContainerMissing, ErrPackageDocumentMissing, ErrMalformedMarkup,
// ErrNoChapters or ErrArchiveOpen to tell failures apart.
func (r *Reader) Err() error {
	return r.err
}

// State returns the lifecycle stage of the reader.
func (r *Reader) State() State {
	return r.state
}

func (r *Reader) ready() bool {
	return r.state == StateReady
}

// Metadata returns the book metadata.
func (r *Reader) Metadata() Metadata {
	if !r.ready() {
		return Metadata{}
	}
	return r.metadata
}

// Title returns the book title.
func (r *Reader) Title() string {
	return r.Metadata().Title
}

// Author returns the book author.
func (r *Reader) Author() string {
	return r.Metadata().Author
}

// CoverPath returns the resolved in-archive cover path, or "".
func (r *Reader) CoverPath() string {
	return r.Metadata().CoverPath
}

// ChapterCount returns the number of chapters.
func (r *Reader) ChapterCount() int {
	if !r.ready() {
		return 0
	}
	return len(r.chapters)
}

// Chapter returns the chapter at index. Out-of-range indexes report false.
func (r *Reader) Chapter(index int) (Chapter, bool) {
	if !r.ready() || index < 0 || index >= len(r.chapters) {
		return Chapter{}, false
	}
	return r.chapters[index], true
}

// Chapters returns all chapters in reading order.
func (r *Reader) Chapters() []Chapter {
	if !r.ready() {
		return nil
	}
	out := make([]Chapter, len(r.chapters))
	copy(out, r.chapters)
	return out
}

// ChapterTitles returns the chapter titles in reading order.
func (r *Reader) ChapterTitles() []string {
	if !r.ready() {
		return nil
	}
	titles := make([]string, len(r.chapters))
	for i, c := range r.chapters {
		titles[i] = c.Title
	}
	return titles
}

// ChapterText returns the chapter at index as plain text, with block
// elements on separate lines. It is meant for text-to-speech and search.
func (r *Reader) ChapterText(index int) (string, bool) {
	c, ok := r.Chapter(index)
	if !ok {
		return "", false
	}
	text, err := chapterText(r.parser, c.Content)
	if err != nil {
		r.logger.Warn("failed to extract chapter text", "entry", c.Href, "error", err)
		return "", false
	}
	return text, true
}

// ChapterSize returns the uncompressed size of the chapter's source entry.
func (r *Reader) ChapterSize(index int) (uint64, bool) {
	c, ok := r.Chapter(index)
	if !ok {
		return 0, false
	}
	return r.archive.Size(c.Href)
}

// CoverImage opens the cover image. It reports false when no cover was
// resolved, the reader is not ready, or the declared entry does not exist.
// The caller must close the returned reader.
func (r *Reader) CoverImage() (io.ReadCloser, bool) {
	path := r.CoverPath()
	if path == "" {
		return nil, false
	}
	rc, err := r.archive.Open(path)
	if err != nil {
		if !errors.Is(err, ErrFileNotFound) {
			r.logger.Warn("failed to open cover", "entry", path, "error", err)
		}
		return nil, false
	}
	return rc, true
}

// Close releases the archive handle. It is idempotent and safe to call
// before Parse or after a failed Parse.
func (r *Reader) Close() error {
	if r.state == StateClosed {
		return nil
	}
	r.state = StateClosed
	r.chapters = nil
	r.metadata = Metadata{}

	err := r.archive.Close()
	if err != nil {
		r.logger.Warn("error closing epub", "error", err)
	}
	return err
}

// titleFromName returns the file name without directory or extension, or
// UntitledTitle when that leaves nothing.
func titleFromName(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == string(filepath.Separator) {
		return UntitledTitle
	}
	if title := strings.TrimSuffix(base, filepath.Ext(base)); title != "" {
		return title
	}
	return UntitledTitle
}
