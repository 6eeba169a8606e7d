package fonts

import (
	"net/url"
	"path"
	"strings"
)

const mimeFallback = "application/octet-stream"

// extToMime is the fixed extension to MIME type table used for inlined
// payloads. Anything not listed gets mimeFallback.
var extToMime = map[string]string{
	"woff":  "application/font-woff",
	"woff2": "application/font-woff",
	"eot":   "application/vnd.ms-fontobject",
	"ttf":   "application/font-sfnt",
	"svg":   "image/svg+xml",
}

// Extension returns lower case extension (without dot) of the URL path,
// query and fragment are not considered.
func Extension(ref string) string {
	p := ref
	if u, err := url.Parse(ref); err == nil {
		p = u.Path
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
}

// MimeType returns MIME type of the payload referenced by URL.
func MimeType(ref string) string {
	if m, ok := extToMime[Extension(ref)]; ok {
		return m
	}
	return mimeFallback
}
