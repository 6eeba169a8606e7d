// Package datauri encodes and decodes base64 "data:" URLs.
package datauri

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const scheme = "data:"

var ErrNotDataURI = errors.New("not a data URI")

// Encode returns base64 data URI for payload. Empty payload produces a valid
// URI with empty data part.
func Encode(mime string, data []byte) string {
	var sb strings.Builder
	sb.Grow(len(scheme) + len(mime) + len(";base64,") + base64.StdEncoding.EncodedLen(len(data)))
	sb.WriteString(scheme)
	sb.WriteString(mime)
	sb.WriteString(";base64,")
	sb.WriteString(base64.StdEncoding.EncodeToString(data))
	return sb.String()
}

// Is reports whether reference is a data URI.
func Is(ref string) bool {
	return len(ref) >= len(scheme) && strings.EqualFold(ref[:len(scheme)], scheme)
}

// Decode splits data URI into media type and payload. Both base64 and
// percent-encoded forms are accepted.
func Decode(uri string) (mime string, data []byte, err error) {
	if !Is(uri) {
		return "", nil, ErrNotDataURI
	}
	header, payload, ok := strings.Cut(uri[len(scheme):], ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data URI: no payload separator")
	}

	params := strings.Split(header, ";")
	mime = strings.TrimSpace(params[0])
	if mime == "" {
		mime = "text/plain"
	}
	encoded := false
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			encoded = true
		}
	}

	if encoded {
		data, err = base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
		if err != nil {
			return "", nil, fmt.Errorf("malformed data URI payload: %w", err)
		}
		return mime, data, nil
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return "", nil, fmt.Errorf("malformed data URI payload: %w", err)
	}
	return mime, []byte(text), nil
}
