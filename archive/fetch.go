package archive

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/url"
	"path/filepath"

	"htmlsnap/fonts"
)

// Fetcher serves file URLs pointing into bundles, everything else is passed
// to Next. Documents loaded from a bundle use such URLs as their base, so
// stylesheets and fonts they reference resolve to bundle entries.
type Fetcher struct {
	Next fonts.Fetcher
}

func (f *Fetcher) Fetch(ctx context.Context, ref string) ([]byte, int, error) {
	if u, err := url.Parse(ref); err == nil && u.Scheme == "file" {
		if bundle, name, ok := Split(filepath.FromSlash(u.Path)); ok {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}
			data, err := ReadFile(bundle, name)
			switch {
			case errors.Is(err, fs.ErrNotExist):
				return nil, http.StatusNotFound, nil
			case err != nil:
				return nil, 0, err
			}
			return data, http.StatusOK, nil
		}
	}
	if f.Next == nil {
		return nil, http.StatusNotFound, nil
	}
	return f.Next.Fetch(ctx, ref)
}
