package epub

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yuanying/epubreader/internal/markup"
)

var (
	ErrContainerMissing       = errors.New("container descriptor not found")
	ErrPackageDocumentMissing = errors.New("package document not found")
	ErrMalformedMarkup        = errors.New("malformed markup")
	ErrNoChapters             = errors.New("no chapters resolved from spine")
)

// container is the resolved container descriptor.
type container struct {
	PackagePath string // in-archive path of the package document
	BaseDir     string // directory of PackagePath including the trailing "/", or ""
}

// resolveContainer reads META-INF/container.xml and extracts the first
// rootfile with a full-path attribute.
func resolveContainer(a *archive, p markup.Parser) (container, error) {
	data, err := a.ReadFile(ContainerPath)
	if err != nil {
		return container{}, fmt.Errorf("%w: %w", ErrContainerMissing, err)
	}

	doc, err := p.ParseXML(data)
	if err != nil {
		return container{}, fmt.Errorf("%w: %s: %w", ErrMalformedMarkup, ContainerPath, err)
	}

	rootfile, ok := doc.First("rootfile[full-path]")
	if !ok {
		return container{}, fmt.Errorf("%w: no rootfile in %s", ErrContainerMissing, ContainerPath)
	}
	fullPath, _ := rootfile.Attr("full-path")
	fullPath = normalizePath(strings.TrimSpace(fullPath))
	if fullPath == "" {
		return container{}, fmt.Errorf("%w: empty rootfile full-path", ErrContainerMissing)
	}

	return container{
		PackagePath: fullPath,
		BaseDir:     baseDir(fullPath),
	}, nil
}

// baseDir returns path up to and including its last "/".
func baseDir(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[:i+1]
	}
	return ""
}
