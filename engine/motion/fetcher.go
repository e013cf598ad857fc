package motion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrPathTraversal is returned when a requested motion file name escapes its directory.
var ErrPathTraversal = errors.New("motion: path traversal detected")

// maxDocumentSize caps how much of a motion document is read.
const maxDocumentSize int64 = 512 << 20

// Fetcher resolves a motion file name to a decoded Source.
// Implementations must be safe for concurrent use; the registry fetches slots in parallel.
type Fetcher interface {
	// Fetch loads and decodes the named motion file.
	//
	// Parameters:
	//   - ctx: cancels the fetch
	//   - name: the motion file name, relative to the fetcher's root
	//
	// Returns:
	//   - *Source: the decoded source
	//   - error: error if the file cannot be read or decoded
	Fetch(ctx context.Context, name string) (*Source, error)
}

// SafePath joins a user-supplied file name onto base and rejects names that escape it.
//
// Parameters:
//   - base: the root directory
//   - name: the requested file name
//
// Returns:
//   - string: the cleaned path under base
//   - error: ErrPathTraversal if name escapes base
func SafePath(base, name string) (string, error) {
	if name == "" || strings.Contains(name, "..") {
		return "", ErrPathTraversal
	}
	cleaned := filepath.Join(base, filepath.Clean("/"+name))
	root := filepath.Clean(base)
	if !strings.HasPrefix(cleaned, root+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}
	return cleaned, nil
}

// ListFiles returns the sorted names of the *.json files directly inside dir.
// These are the file options a slot can be bound to.
//
// Parameters:
//   - dir: the directory to scan
//
// Returns:
//   - []string: the file names
//   - error: error if the directory cannot be read
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("motion: list %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

type fileFetcher struct {
	dir string
}

var _ Fetcher = &fileFetcher{}

// NewFileFetcher creates a Fetcher that reads motion files from a local directory.
//
// Parameters:
//   - dir: the directory motion file names are resolved against
//
// Returns:
//   - Fetcher: the file fetcher
func NewFileFetcher(dir string) Fetcher {
	return &fileFetcher{dir: dir}
}

func (f *fileFetcher) Fetch(ctx context.Context, name string) (*Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := SafePath(f.dir, name)
	if err != nil {
		return nil, fmt.Errorf("motion: fetch %q: %w", name, err)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("motion: fetch %q: %w", name, err)
	}
	defer file.Close()
	return Decode(io.LimitReader(file, maxDocumentSize), name)
}

type httpFetcher struct {
	baseURL string
	client  *http.Client
}

var _ Fetcher = &httpFetcher{}

// HTTPFetcherOption is a functional option for configuring an HTTP Fetcher.
type HTTPFetcherOption func(*httpFetcher)

// WithHTTPClient replaces the default HTTP client.
//
// Parameters:
//   - c: the client to use
//
// Returns:
//   - HTTPFetcherOption: functional option to set the client
func WithHTTPClient(c *http.Client) HTTPFetcherOption {
	return func(f *httpFetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client.
//
// Parameters:
//   - d: the request timeout
//
// Returns:
//   - HTTPFetcherOption: functional option to set the timeout
func WithTimeout(d time.Duration) HTTPFetcherOption {
	return func(f *httpFetcher) {
		f.client = &http.Client{Timeout: d}
	}
}

// NewHTTPFetcher creates a Fetcher that downloads motion files relative to a base URL,
// such as the motion server's /motions/ endpoint.
//
// Parameters:
//   - baseURL: the URL file names are appended to
//   - options: functional options to configure the fetcher
//
// Returns:
//   - Fetcher: the HTTP fetcher
func NewHTTPFetcher(baseURL string, options ...HTTPFetcherOption) Fetcher {
	f := &httpFetcher{
		baseURL: strings.TrimSuffix(baseURL, "/") + "/",
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, option := range options {
		option(f)
	}
	return f
}

func (f *httpFetcher) Fetch(ctx context.Context, name string) (*Source, error) {
	if name == "" || strings.Contains(name, "..") {
		return nil, fmt.Errorf("motion: fetch %q: %w", name, ErrPathTraversal)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+url.PathEscape(name), nil)
	if err != nil {
		return nil, fmt.Errorf("motion: fetch %q: %w", name, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("motion: fetch %q: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("motion: fetch %q: unexpected status %s", name, resp.Status)
	}
	return Decode(io.LimitReader(resp.Body, maxDocumentSize), name)
}
