package browser

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"htmlsnap/export"
)

// Rasterize implements export.Rasterizer: envelope is shown as an image in
// scratch page sized to it and the page is captured. Scratch page gets its
// viewport and blank document back afterwards, so later default styles are
// resolved the same way as before.
func (h *Host) Rasterize(ctx context.Context, envelope []byte, width, height int) (_ image.Image, err error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("bad raster size %dx%d", width, height)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.scratch == nil {
		return nil, fmt.Errorf("host is closed")
	}
	page := h.scratch.Context(ctx)
	defer func() {
		if rerr := h.resetScratch(); rerr != nil {
			err = multierr.Append(err, rerr)
		}
	}()

	if err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{Width: width, Height: height, DeviceScaleFactor: 1}); err != nil {
		return nil, fmt.Errorf("unable to set viewport: %w", err)
	}
	markup := fmt.Sprintf(`<!DOCTYPE html><html><body style="margin:0;background:transparent"><img width="%d" height="%d" src="%s"></body></html>`,
		width, height, export.EnvelopeURI(envelope))
	if err = page.SetDocumentContent(markup); err != nil {
		return nil, fmt.Errorf("unable to load envelope: %w", err)
	}
	if _, err = page.Eval(jsWaitImages); err != nil {
		return nil, fmt.Errorf("unable to decode envelope: %w", err)
	}

	data, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
		Clip:   &proto.PageViewport{X: 0, Y: 0, Width: float64(width), Height: float64(height), Scale: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("unable to capture envelope: %w", err)
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unable to decode screenshot: %w", err)
	}
	h.log.Debug("Envelope rasterized", zap.Int("width", width), zap.Int("height", height))
	return img, nil
}

// resetScratch restores scratch page to the state New left it in. It does not
// use request context, cancelled run must not leave page resized.
func (h *Host) resetScratch() error {
	if err := h.scratch.SetViewport(h.viewport()); err != nil {
		return fmt.Errorf("unable to restore viewport: %w", err)
	}
	if err := h.scratch.SetDocumentContent(scratchDocument); err != nil {
		return fmt.Errorf("unable to restore scratch page: %w", err)
	}
	return nil
}
