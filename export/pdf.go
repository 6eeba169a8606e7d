package export

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"htmlsnap/common"
	"htmlsnap/utils/datauri"
)

// Paginator is a paginated document images are placed onto.
type Paginator interface {
	// PageSize returns size of the current page in document units.
	PageSize() (width, height float64)
	// AddImage places image given as data URI onto current page.
	AddImage(uri string, x, y, width, height float64) error
	io.WriterTo
}

// PaginatorFactory creates document with a single page able to hold
// width x height image.
type PaginatorFactory func(orientation common.Orientation, width, height float64) (Paginator, error)

// PDFOptions are document level properties of produced PDF.
type PDFOptions struct {
	Title   string
	Creator string
	// CreationDate fixes document creation date, zero means now.
	CreationDate time.Time
}

// NewPDFFactory returns factory producing PDF documents with given
// properties.
func NewPDFFactory(opts PDFOptions) PaginatorFactory {
	return func(orientation common.Orientation, width, height float64) (Paginator, error) {
		return NewPDF(orientation, width, height, opts)
	}
}

// PDF is a Paginator writing PDF documents, units are points. Page has no
// margins.
type PDF struct {
	doc    *gofpdf.Fpdf
	images int
}

// NewPDF creates PDF document with one page. Page long side follows
// orientation, with auto it is landscape when width >= height.
func NewPDF(orientation common.Orientation, width, height float64, opts PDFOptions) (*PDF, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("unable to create pdf: bad page size %gx%g", width, height)
	}

	orient := "P"
	if orientation.Landscape(width, height) {
		orient = "L"
	}
	doc := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: orient,
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: math.Min(width, height), Ht: math.Max(width, height)},
	})
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)
	if opts.Title != "" {
		doc.SetTitle(opts.Title, true)
	}
	if opts.Creator != "" {
		doc.SetCreator(opts.Creator, true)
		doc.SetProducer(opts.Creator, true)
	}
	if !opts.CreationDate.IsZero() {
		doc.SetCreationDate(opts.CreationDate)
	}
	doc.AddPage()
	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("unable to create pdf: %w", err)
	}
	return &PDF{doc: doc}, nil
}

func (p *PDF) PageSize() (float64, float64) {
	return p.doc.GetPageSize()
}

func (p *PDF) AddImage(uri string, x, y, width, height float64) error {
	mime, data, err := datauri.Decode(uri)
	if err != nil {
		return fmt.Errorf("unable to add image: %w", err)
	}

	var kind string
	switch strings.ToLower(mime) {
	case "image/png":
		kind = "PNG"
	case "image/jpeg", "image/jpg":
		kind = "JPG"
	case "image/gif":
		kind = "GIF"
	default:
		return fmt.Errorf("unable to add image: unsupported type %q", mime)
	}

	p.images++
	name := "raster-" + strconv.Itoa(p.images)
	opts := gofpdf.ImageOptions{ImageType: kind}
	p.doc.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	p.doc.ImageOptions(name, x, y, width, height, false, opts, 0, "")
	if err := p.doc.Error(); err != nil {
		return fmt.Errorf("unable to add image: %w", err)
	}
	return nil
}

func (p *PDF) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	if err := p.doc.Output(&buf); err != nil {
		return 0, fmt.Errorf("unable to produce pdf: %w", err)
	}
	return buf.WriteTo(w)
}

// PlaceFullPage adds raster to the current page of p at origin scaled to
// the page size truncated to whole units.
func PlaceFullPage(p Paginator, uri string) error {
	w, h := p.PageSize()
	return p.AddImage(uri, 0, 0, math.Floor(w), math.Floor(h))
}
