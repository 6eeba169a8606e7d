package capture

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"htmlsnap/archive"
	"htmlsnap/dom"
	"htmlsnap/fonts"
)

// Source is a loaded document.
type Source struct {
	// Name is base name of the document used for output naming, without
	// extension.
	Name    string
	BaseURL string
	Doc     *html.Node
}

func isURL(src string) bool {
	u, err := url.Parse(src)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "file":
		return true
	}
	return false
}

// loadSource reads document from local path, path into zip bundle or URL.
// Remote documents are retrieved with the same fetcher fonts and stylesheets
// use.
func loadSource(ctx context.Context, src string, fetcher fonts.Fetcher) (*Source, error) {
	if isURL(src) {
		data, status, err := fetcher.Fetch(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve document: %w", err)
		}
		if status < 200 || status > 299 {
			return nil, fmt.Errorf("unable to retrieve document: status %d", status)
		}
		doc, err := dom.ParseDocument(bytes.NewReader(data), "")
		if err != nil {
			return nil, err
		}
		u, _ := url.Parse(src)
		return &Source{Name: baseName(path.Base(u.Path)), BaseURL: src, Doc: doc}, nil
	}

	abs, err := filepath.Abs(src)
	if err != nil {
		return nil, err
	}
	if bundle, name, ok := archive.Split(abs); ok {
		return loadBundled(bundle, name)
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("unable to open document: %w", err)
	}
	defer f.Close()

	doc, err := dom.ParseDocument(f, "")
	if err != nil {
		return nil, err
	}
	return &Source{Name: baseName(filepath.Base(abs)), BaseURL: fileURL(abs), Doc: doc}, nil
}

// loadBundled reads document from zip bundle. When name does not point to
// a document inside bundle, main document of the named directory is used.
func loadBundled(bundle, name string) (*Source, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".html", ".htm", ".xhtml":
	default:
		found, err := archive.FindDocument(bundle, name)
		if err != nil {
			return nil, fmt.Errorf("unable to find document: %w", err)
		}
		name = found
	}
	data, err := archive.ReadFile(bundle, name)
	if err != nil {
		return nil, fmt.Errorf("unable to open document: %w", err)
	}
	doc, err := dom.ParseDocument(bytes.NewReader(data), "")
	if err != nil {
		return nil, err
	}
	return &Source{
		Name:    baseName(path.Base(name)),
		BaseURL: fileURL(bundle) + "/" + (&url.URL{Path: name}).EscapedPath(),
		Doc:     doc,
	}, nil
}

func fileURL(abs string) string {
	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		// drive letter paths
		p = "/" + p
	}
	return (&url.URL{Scheme: "file", Path: p}).String()
}

func baseName(name string) string {
	name = strings.TrimSuffix(name, filepath.Ext(name))
	switch name {
	case "", ".", "/":
		return "index"
	}
	return name
}
