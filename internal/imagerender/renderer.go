package imagerender

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog/log"

	"github.com/ProTeamWorkforce/ImageAi-APp/internal/filetype"
)

var (
	// ErrUnsupportedType is returned for uploads that are neither a
	// supported image nor a PDF.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrTooManyPages is returned for PDFs over the configured page limit.
	ErrTooManyPages = errors.New("pdf has too many pages")
	// ErrPageOutOfRange is returned when the requested page does not exist.
	ErrPageOutOfRange = errors.New("page out of range")
)

// Options controls PDF rasterization.
type Options struct {
	DPI      int
	Quality  int
	MaxPages int
}

func (o Options) withDefaults() Options {
	if o.DPI <= 0 {
		o.DPI = 150
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = 85
	}
	return o
}

// Image is what gets sent to the vision provider.
type Image struct {
	Bytes []byte
	MIME  string
	// Page is the rendered PDF page, 0 for plain images.
	Page int
}

// Prepare returns images unchanged and rasterizes one page of a PDF.
// page is 1-based; 0 means the first page.
func Prepare(data []byte, info filetype.Info, page int, opts Options) (Image, error) {
	if !info.Supported {
		return Image{}, fmt.Errorf("%w: %s", ErrUnsupportedType, info.MIMEType)
	}
	if info.IsImage {
		return Image{Bytes: data, MIME: info.MIMEType}, nil
	}

	opts = opts.withDefaults()
	if page <= 0 {
		page = 1
	}
	n, err := PageCount(data)
	if err != nil {
		return Image{}, err
	}
	if opts.MaxPages > 0 && n > opts.MaxPages {
		return Image{}, fmt.Errorf("%w: %d > %d", ErrTooManyPages, n, opts.MaxPages)
	}
	if page > n {
		return Image{}, fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, page, n)
	}

	jpg, err := RenderPDFPage(data, page, opts.DPI, opts.Quality)
	if err != nil {
		return Image{}, err
	}
	return Image{Bytes: jpg, MIME: "image/jpeg", Page: page}, nil
}

// PageCount returns the number of pages in an in-memory PDF.
func PageCount(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return 0, fmt.Errorf("pdf page count failed: %w", err)
	}
	return n, nil
}

// RenderPDFPage renders a PDF page as JPEG image (in-memory).
// pageNum is 1-based.
func RenderPDFPage(data []byte, pageNum, dpi, quality int) ([]byte, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	// go-fitz uses 0-based indexing
	if pageNum < 1 || pageNum > doc.NumPage() {
		return nil, fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, pageNum, doc.NumPage())
	}
	img, err := doc.ImageDPI(pageNum-1, float64(dpi))
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", pageNum, err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}

	bounds := img.Bounds()
	log.Debug().
		Int("page", pageNum).
		Int("width", bounds.Dx()).
		Int("height", bounds.Dy()).
		Int("jpeg_size", buf.Len()).
		Int("dpi", dpi).
		Msg("rendered pdf page")

	return buf.Bytes(), nil
}
