package fonts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// Fetcher retrieves binary payload by absolute URL. Status is HTTP status
// code (or its equivalent for other schemes), payloads with status outside
// of 2xx are treated as failures.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (data []byte, status int, err error)
}

// FetcherFunc adapts ordinary function to Fetcher.
type FetcherFunc func(ctx context.Context, ref string) ([]byte, int, error)

func (f FetcherFunc) Fetch(ctx context.Context, ref string) ([]byte, int, error) {
	return f(ctx, ref)
}

// HTTPFetcher fetches http(s) and file URLs.
type HTTPFetcher struct {
	Client    *http.Client
	UserAgent string
	// Timeout limits single fetch, zero means no limit.
	Timeout time.Duration
}

func (f *HTTPFetcher) Fetch(ctx context.Context, ref string) ([]byte, int, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, 0, fmt.Errorf("bad url: %w", err)
	}

	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	switch u.Scheme {
	case "http", "https":
		return f.fetchHTTP(ctx, u)
	case "file":
		return fetchFile(ctx, u)
	default:
		return nil, 0, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
}

func (f *HTTPFetcher) fetchHTTP(ctx context.Context, u *url.URL) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, 0, err
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so connection could be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("unable to read response body: %w", err)
	}
	return data, resp.StatusCode, nil
}

func fetchFile(ctx context.Context, u *url.URL) ([]byte, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	name := filepath.FromSlash(u.Path)
	if name == "" {
		return nil, http.StatusNotFound, nil
	}

	// os.DirFS refuses names escaping its root, so the file is read relative
	// to its own directory.
	data, err := fs.ReadFile(os.DirFS(filepath.Dir(name)), filepath.Base(name))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, http.StatusNotFound, nil
	case errors.Is(err, fs.ErrPermission):
		return nil, http.StatusForbidden, nil
	case err != nil:
		return nil, 0, err
	}
	return data, http.StatusOK, nil
}
