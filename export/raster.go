package export

import (
	"context"
	"fmt"
	"image"

	"go.uber.org/zap"

	"htmlsnap/utils/datauri"
	"htmlsnap/utils/images"
)

// Rasterizer decodes envelope into an image of its native size.
type Rasterizer interface {
	Rasterize(ctx context.Context, envelope []byte, width, height int) (image.Image, error)
}

// SVGRasterizer draws envelope with pure Go SVG renderer. Only native SVG
// content is painted, foreignObject markup needs a browser.
type SVGRasterizer struct{}

func (SVGRasterizer) Rasterize(ctx context.Context, envelope []byte, width, height int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := images.RasterizeSVGToImage(envelope, width, height)
	if err != nil {
		return nil, fmt.Errorf("unable to rasterize envelope: %w", err)
	}
	return img, nil
}

// Raster is encoded result of rasterization.
type Raster struct {
	Width  int
	Height int
	PNG    []byte

	img image.Image
}

// rasterDPI is pixel density declared for JPEG rasters, CSS pixel size.
const rasterDPI = 96

// URI returns raster as PNG data URI.
func (r *Raster) URI() string {
	return datauri.Encode(MimePNG, r.PNG)
}

// JPEGURI re-encodes raster as JPEG of given quality and returns it as data
// URI.
func (r *Raster) JPEGURI(quality int) (string, error) {
	if r.img == nil {
		return "", fmt.Errorf("unable to encode raster: no image")
	}
	data, err := images.EncodeJPEG(r.img, quality, rasterDPI)
	if err != nil {
		return "", err
	}
	return datauri.Encode(MimeJPEG, data), nil
}

// Rasterize decodes envelope with r, composites result onto an opaque white
// surface, applies scale factor and encodes it as PNG.
func Rasterize(ctx context.Context, r Rasterizer, envelope []byte, width, height int, scale float64, log *zap.Logger) (*Raster, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("unable to rasterize envelope: bad dimensions %dx%d", width, height)
	}

	img, err := r.Rasterize(ctx, envelope, width, height)
	if err != nil {
		return nil, err
	}

	out := images.Scale(images.Flatten(img), scale)
	data, err := images.EncodePNG(out)
	if err != nil {
		return nil, err
	}

	b := out.Bounds()
	log.Debug("Envelope rasterized",
		zap.Int("width", b.Dx()),
		zap.Int("height", b.Dy()),
		zap.Float64("scale", scale),
		zap.Int("bytes", len(data)))
	return &Raster{Width: b.Dx(), Height: b.Dy(), PNG: data, img: out}, nil
}
