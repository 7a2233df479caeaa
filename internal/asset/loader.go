package asset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrLoadFailed marks an opaque load failure: missing file, bad status or
// content that does not decode as an image.
var ErrLoadFailed = errors.New("asset: load failed")

// Loader is the display surface a source is loaded from. A non-nil error is
// the failure notification; callers do not inspect it beyond that.
type Loader interface {
	Load(ctx context.Context, location string) error
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, location string) error

func (f LoaderFunc) Load(ctx context.Context, location string) error { return f(ctx, location) }

// sniffLen matches what http.DetectContentType and mimetype need for images.
const sniffLen = 3072

// FSLoader loads sources from a filesystem mounted at Prefix, e.g. the
// ./images directory served under "/images".
type FSLoader struct {
	FS     fs.FS
	Prefix string
}

func (l FSLoader) Load(ctx context.Context, location string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, ok := l.name(location)
	if !ok {
		return fmt.Errorf("%w: %s outside %q", ErrLoadFailed, location, l.Prefix)
	}
	f, err := l.FS.Open(name)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: read %s: %v", ErrLoadFailed, name, err)
	}
	return checkImage(name, mimetype.Detect(head[:n]))
}

func (l FSLoader) name(location string) (string, bool) {
	if i := strings.IndexAny(location, "?#"); i >= 0 {
		location = location[:i]
	}
	rest, ok := strings.CutPrefix(location, l.Prefix)
	if !ok {
		return "", false
	}
	rest = strings.TrimPrefix(rest, "/")
	if !fs.ValidPath(rest) || rest == "." {
		return "", false
	}
	return rest, true
}

// HTTPLoader loads sources from a remote origin. A non-2xx status or a
// non-image body is a failure.
type HTTPLoader struct {
	Client  *http.Client
	BaseURL string
}

func (l HTTPLoader) Load(ctx context.Context, location string) error {
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(l.BaseURL, "/")+location, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s: status %d", ErrLoadFailed, location, resp.StatusCode)
	}
	mt, err := mimetype.DetectReader(io.LimitReader(resp.Body, sniffLen))
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrLoadFailed, location, err)
	}
	return checkImage(location, mt)
}

func checkImage(name string, mt *mimetype.MIME) error {
	for m := mt; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "image/") {
			return nil
		}
	}
	return fmt.Errorf("%w: %s is %s, not an image", ErrLoadFailed, name, mt.String())
}
