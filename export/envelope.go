// Package export turns captured markup into a vector envelope, rasterizes it
// and places the raster onto a paginated document.
package export

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"

	"htmlsnap/dom"
	"htmlsnap/utils/datauri"
)

const (
	MimeSVG  = "image/svg+xml"
	MimePNG  = "image/png"
	MimeJPEG = "image/jpeg"
)

// EnvelopeSize returns dimensions of the envelope for element with client box
// of clientWidth x clientHeight and resolved style st. Margins are added with
// leading integer semantics, unparsable margins count as 0.
func EnvelopeSize(clientWidth, clientHeight int, st dom.Style) (width, height int) {
	width = clientWidth + dom.ParseInt(st.Value("margin-left")) + dom.ParseInt(st.Value("margin-right"))
	height = clientHeight + dom.ParseInt(st.Value("margin-top")) + dom.ParseInt(st.Value("margin-bottom"))
	return width, height
}

// Envelope wraps XHTML document into an SVG foreignObject of the given size.
// Markup document is not modified.
func Envelope(markup *etree.Document, width, height int) ([]byte, error) {
	if markup == nil || markup.Root() == nil {
		return nil, fmt.Errorf("unable to build envelope: markup has no root element")
	}

	doc := etree.NewDocument()
	doc.WriteSettings.CanonicalEndTags = true

	w, h := strconv.Itoa(width), strconv.Itoa(height)
	svg := doc.CreateElement("svg")
	svg.CreateAttr("xmlns", dom.NamespaceSVG)
	svg.CreateAttr("width", w)
	svg.CreateAttr("height", h)
	svg.CreateAttr("viewBox", "0 0 "+w+" "+h)

	fo := svg.CreateElement("foreignObject")
	fo.CreateAttr("width", "100%")
	fo.CreateAttr("height", "100%")
	fo.AddChild(markup.Root().Copy())

	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("unable to serialize envelope: %w", err)
	}
	return out, nil
}

// EnvelopeURI returns envelope as data URI.
func EnvelopeURI(envelope []byte) string {
	return datauri.Encode(MimeSVG, envelope)
}
