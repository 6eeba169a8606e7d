package images

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
)

// DensityUnit is JFIF density unit.
type DensityUnit uint8

const (
	DensityNone DensityUnit = iota
	DensityPerInch
	DensityPerCm
)

var (
	markerAPP0 = []byte{0xFF, 0xE0}
	jfifID     = []byte{'J', 'F', 'I', 'F', 0x00, 0x01, 0x02}
)

// withJFIF inserts JFIF APP0 segment carrying pixel density right after SOI
// unless stream already starts with APP0. image/jpeg never writes one, PDF
// readers use it to guess physical size of embedded rasters.
func withJFIF(data []byte, unit DensityUnit, density uint16) ([]byte, error) {
	if len(data) < 4 {
		return nil, errors.New("jpeg too small")
	}
	if data[0] != 0xFF || data[1] != 0xD8 {
		return nil, errors.New("not a jpeg")
	}
	if bytes.Equal(data[2:4], markerAPP0) {
		return data, nil
	}

	buf := bytes.NewBuffer(make([]byte, 0, len(data)+18))
	buf.Write(data[:2])
	buf.Write(markerAPP0)
	_ = binary.Write(buf, binary.BigEndian, uint16(16))
	buf.Write(jfifID)
	buf.WriteByte(byte(unit))
	_ = binary.Write(buf, binary.BigEndian, density)   // x
	_ = binary.Write(buf, binary.BigEndian, density)   // y
	_ = binary.Write(buf, binary.BigEndian, uint16(0)) // no thumbnail
	buf.Write(data[2:])
	return buf.Bytes(), nil
}

// EncodeJPEG encodes image as baseline JPEG with JFIF header declaring dpi
// pixels per inch. Quality is clamped to [1, 100].
func EncodeJPEG(img image.Image, quality int, dpi uint16) ([]byte, error) {
	quality = min(max(quality, 1), 100)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("unable to encode jpeg: %w", err)
	}
	out, err := withJFIF(buf.Bytes(), DensityPerInch, dpi)
	if err != nil {
		return nil, fmt.Errorf("unable to encode jpeg: %w", err)
	}
	return out, nil
}
