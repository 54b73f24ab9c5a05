// Package cover turns an EPUB cover image into a bounded thumbnail for
// library views and media notifications.
package cover

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register GIF decoding
	"image/jpeg"
	"image/png"
	"io"

	"github.com/disintegration/imaging"
)

const (
	DefaultMaxWidth    = 600
	DefaultJPEGQuality = 85
	DefaultMaxPixels   = 100 * 1000 * 1000
	minJPEGQuality     = 60
)

var (
	ErrDecode   = errors.New("cover image decode failed")
	ErrTooLarge = errors.New("cover image too large")
)

// Thumbnailer scales cover images down to a maximum width.
type Thumbnailer struct {
	MaxWidth    int
	JPEGQuality int
	MaxPixels   int // Total pixel count limit for decode (width * height)
}

// Image is an encoded thumbnail.
type Image struct {
	Data   []byte
	Width  int
	Height int
	Format string
}

// Options configures NewThumbnailer. Zero values select defaults.
type Options struct {
	MaxWidth    int
	JPEGQuality int
}

// NewThumbnailer creates a thumbnailer with defaults applied.
func NewThumbnailer(opts Options) *Thumbnailer {
	maxWidth := opts.MaxWidth
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}

	quality := opts.JPEGQuality
	if quality <= 0 {
		quality = DefaultJPEGQuality
	}
	quality = min(max(quality, minJPEGQuality), 100)

	return &Thumbnailer{
		MaxWidth:    maxWidth,
		JPEGQuality: quality,
		MaxPixels:   DefaultMaxPixels,
	}
}

// Thumbnail decodes a JPEG, PNG or GIF image and re-encodes it no wider than
// MaxWidth. Images with transparency are encoded as PNG, everything else as
// JPEG. Images whose pixel count exceeds MaxPixels are refused before decode.
func (t *Thumbnailer) Thumbnail(r io.Reader) (Image, error) {
	input, err := io.ReadAll(r)
	if err != nil {
		return Image{}, fmt.Errorf("failed to read cover: %w", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(input))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	pixels := uint64(cfg.Width) * uint64(cfg.Height)
	if t.MaxPixels > 0 && pixels > uint64(t.MaxPixels) {
		return Image{}, fmt.Errorf("%w: %dx%d (%d pixels)", ErrTooLarge, cfg.Width, cfg.Height, pixels)
	}

	src, _, err := image.Decode(bytes.NewReader(input))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	processed := src
	if t.MaxWidth > 0 && src.Bounds().Dx() > t.MaxWidth {
		processed = imaging.Resize(src, t.MaxWidth, 0, imaging.Lanczos)
	}

	out := Image{
		Width:  processed.Bounds().Dx(),
		Height: processed.Bounds().Dy(),
	}
	if hasAlpha(processed) {
		out.Format = "png"
		out.Data, err = encodePNG(processed)
		if err != nil {
			return Image{}, fmt.Errorf("png encode failed: %w", err)
		}
		return out, nil
	}

	out.Format = "jpeg"
	out.Data, err = encodeJPEG(processed, t.JPEGQuality)
	if err != nil {
		return Image{}, fmt.Errorf("jpeg encode failed: %w", err)
	}
	return out, nil
}

// Extension returns the file extension for the image format.
func (i Image) Extension() string {
	if i.Format == "png" {
		return ".png"
	}
	return ".jpg"
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	encoder := png.Encoder{CompressionLevel: png.BestCompression}
	if err := encoder.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func hasAlpha(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			if a < 0xFFFF {
				return true
			}
		}
	}
	return false
}
