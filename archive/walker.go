// Package archive reads documents packed into zip bundles. Paths into
// bundles look like "/dir/site.zip/pages/index.html".
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const bundleExt = ".zip"

// WalkFunc is called for each file in bundle visited by Walk. If an error is
// returned, processing stops.
type WalkFunc func(bundle string, file *zip.File) error

// errStop ends walk early without error.
var errStop = errors.New("stop walking")

// Walk calls walkFn for every file of bundle whose name starts with prefix,
// in archive order. Entries escaping bundle root (absolute or containing
// "..") fail the walk.
func Walk(bundle, prefix string, walkFn WalkFunc) error {
	r, err := zip.OpenReader(bundle)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		name := f.Name
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if f.FileInfo().IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		if err := walkFn(bundle, f); err != nil {
			if errors.Is(err, errStop) {
				return nil
			}
			return err
		}
	}
	return nil
}

func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for part := range strings.SplitSeq(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}

// Split breaks path into bundle file and slash separated name inside of it.
// The first existing regular file with ".zip" extension along the path is
// the bundle. When there is none ok is false.
func Split(p string) (bundle, name string, ok bool) {
	p = filepath.Clean(p)
	parts := strings.Split(filepath.ToSlash(p), "/")
	for i, part := range parts {
		if !strings.EqualFold(path.Ext(part), bundleExt) {
			continue
		}
		candidate := filepath.FromSlash(strings.Join(parts[:i+1], "/"))
		if candidate == "" {
			continue
		}
		if fi, err := os.Stat(candidate); err != nil || !fi.Mode().IsRegular() {
			continue
		}
		return candidate, strings.Join(parts[i+1:], "/"), true
	}
	return "", "", false
}

// ReadFile returns content of named file in bundle. Missing entries are
// reported with fs.ErrNotExist.
func ReadFile(bundle, name string) (data []byte, err error) {
	found := false
	err = Walk(bundle, name, func(_ string, f *zip.File) error {
		if f.Name != name {
			return nil
		}
		found = true
		rc, err := f.Open()
		if err != nil {
			return err
		}
		defer rc.Close()
		if data, err = io.ReadAll(rc); err != nil {
			return err
		}
		return errStop
	})
	if err != nil {
		return nil, fmt.Errorf("unable to read %q from %s: %w", name, bundle, err)
	}
	if !found {
		return nil, fmt.Errorf("unable to read %q from %s: %w", name, bundle, fs.ErrNotExist)
	}
	return data, nil
}

// FindDocument returns name of the main document of bundle under dir
// prefix: "index.html" when present, otherwise the first HTML file in
// archive order.
func FindDocument(bundle, dir string) (string, error) {
	if dir != "" && !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	var first string
	err := Walk(bundle, dir, func(_ string, f *zip.File) error {
		switch strings.ToLower(path.Ext(f.Name)) {
		case ".html", ".htm", ".xhtml":
		default:
			return nil
		}
		if first == "" {
			first = f.Name
		}
		if strings.EqualFold(f.Name, dir+"index.html") {
			first = f.Name
			return errStop
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if first == "" {
		return "", fmt.Errorf("no html documents in %s", bundle)
	}
	return first, nil
}
