package asset

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var (
	pngBytes = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52}
	svgBytes = []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="1" height="1"></svg>`)
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"logo.png":          {Data: pngBytes},
		"skill-0.svg":       {Data: svgBytes},
		"broken.png":        {Data: []byte("not really a png, just text")},
		"broken.jpg":        {Data: pngBytes},
		"nested/photo.webp": {Data: pngBytes},
	}
}

type recordingReporter struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingReporter) RecordTerminalFailure(_ context.Context, ref string, _ []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, ref)
	return nil
}

func TestFSLoader(t *testing.T) {
	l := FSLoader{FS: testFS(), Prefix: "/images"}
	ctx := context.Background()

	assert.NoError(t, l.Load(ctx, "/images/logo.png"))
	assert.NoError(t, l.Load(ctx, "/images/skill-0.svg"))
	assert.NoError(t, l.Load(ctx, "/images/nested/photo.webp?v=2"))
	assert.ErrorIs(t, l.Load(ctx, "/images/missing.png"), ErrLoadFailed)
	assert.ErrorIs(t, l.Load(ctx, "/images/broken.png"), ErrLoadFailed)
	assert.ErrorIs(t, l.Load(ctx, "/other/logo.png"), ErrLoadFailed)
	assert.ErrorIs(t, l.Load(ctx, "/images/../secret.png"), ErrLoadFailed)
}

func TestHTTPLoader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/logo.png":
			_, _ = w.Write(pngBytes)
		case "/page.png":
			_, _ = w.Write([]byte("<html><body>soft 404</body></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	l := HTTPLoader{Client: srv.Client(), BaseURL: srv.URL}
	ctx := context.Background()
	assert.NoError(t, l.Load(ctx, "/logo.png"))
	assert.ErrorIs(t, l.Load(ctx, "/logo.svg"), ErrLoadFailed)
	assert.ErrorIs(t, l.Load(ctx, "/page.png"), ErrLoadFailed)
}

func TestResolver_FallsBackToExistingExtension(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := MustNewMetrics(reg)
	r, err := NewResolver(FSLoader{FS: testFS(), Prefix: "/images"}, 0,
		WithResolverPublicURL("/images"), WithMetrics(metrics))
	require.NoError(t, err)

	img := r.NewImage("/skill-0", []string{"png", "svg"})
	res, err := r.Resolve(context.Background(), img)
	require.NoError(t, err)

	assert.Equal(t, "/images/skill-0.svg", res.Source)
	assert.Equal(t, []string{"png"}, res.Tried)
	assert.False(t, res.Exhausted)
	assert.Equal(t, "/images/skill-0.svg", img.Source())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.probeFailures.WithLabelValues("png")))
}

func TestResolver_DecodeFailureAdvances(t *testing.T) {
	r, err := NewResolver(FSLoader{FS: testFS(), Prefix: "/images"}, 0, WithResolverPublicURL("/images"))
	require.NoError(t, err)

	res, err := r.RenderImage(context.Background(), "/broken", nil)
	require.NoError(t, err)
	assert.Equal(t, "/images/broken.jpg", res.Source)
	assert.Equal(t, []string{"png", "svg"}, res.Tried)
}

func TestResolver_TerminalFailureIsQuiet(t *testing.T) {
	rep := &recordingReporter{}
	reg := prometheus.NewRegistry()
	metrics := MustNewMetrics(reg)
	r, err := NewResolver(FSLoader{FS: testFS(), Prefix: "/images"}, 0,
		WithResolverPublicURL("/images"), WithReporter(rep), WithMetrics(metrics))
	require.NoError(t, err)

	res, err := r.RenderImage(context.Background(), "/nothing-here", []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.True(t, res.Exhausted)
	assert.Equal(t, "/images/nothing-here.c", res.Source)
	assert.Equal(t, []string{"/nothing-here"}, rep.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.terminalFailures))
}

func TestResolver_InvalidReferenceNeverLoads(t *testing.T) {
	calls := 0
	r, err := NewResolver(LoaderFunc(func(context.Context, string) error {
		calls++
		return nil
	}), 0)
	require.NoError(t, err)

	res, err := r.RenderImage(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	assert.Zero(t, calls)
}

func TestResolver_CacheReplaysProbeState(t *testing.T) {
	calls := 0
	loader := LoaderFunc(func(_ context.Context, loc string) error {
		calls++
		if loc == "/p.c" {
			return nil
		}
		return ErrLoadFailed
	})
	reg := prometheus.NewRegistry()
	metrics := MustNewMetrics(reg)
	r, err := NewResolver(loader, 4, WithMetrics(metrics))
	require.NoError(t, err)
	ctx := context.Background()

	first, err := r.RenderImage(ctx, "/p", []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Equal(t, 3, calls)

	img := r.NewImage("/p", []string{"a", "b", "c"})
	second, err := r.Resolve(ctx, img)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"a", "b"}, img.Tried())
	assert.Equal(t, "/p.c", img.Source())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheLookups.WithLabelValues("hit")))

	r.Purge()
	_, err = r.RenderImage(ctx, "/p", []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, 6, calls)
}

func TestResolver_CacheKeyedOnImagePrefix(t *testing.T) {
	r, err := NewResolver(FSLoader{FS: testFS(), Prefix: "/images"}, 0, WithResolverPublicURL("/images"))
	require.NoError(t, err)
	ctx := context.Background()

	bare, err := r.Resolve(ctx, NewImage("/logo", nil))
	require.NoError(t, err)
	assert.True(t, bare.Exhausted)
	assert.Equal(t, "/logo.webp", bare.Source)

	res, err := r.RenderImage(ctx, "/logo", nil)
	require.NoError(t, err)
	assert.False(t, res.Exhausted)
	assert.Equal(t, "/images/logo.png", res.Source)
}

func TestResolver_CacheHitReturnsCopy(t *testing.T) {
	loader := LoaderFunc(func(_ context.Context, loc string) error {
		if loc == "/p.c" {
			return nil
		}
		return ErrLoadFailed
	})
	r, err := NewResolver(loader, 4)
	require.NoError(t, err)
	ctx := context.Background()
	exts := []string{"a", "b", "c"}

	_, err = r.RenderImage(ctx, "/p", exts)
	require.NoError(t, err)
	hit, err := r.RenderImage(ctx, "/p", exts)
	require.NoError(t, err)
	hit.Tried[0] = "zzz"

	again, err := r.RenderImage(ctx, "/p", exts)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, again.Tried)
}

func TestResolver_ContextCancelled(t *testing.T) {
	r, err := NewResolver(FSLoader{FS: testFS(), Prefix: "/images"}, 0, WithResolverPublicURL("/images"))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = r.RenderImage(ctx, "/logo", nil)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestResolver_ResolveAll(t *testing.T) {
	defer goleak.VerifyNone(t)

	r, err := NewResolver(FSLoader{FS: testFS(), Prefix: "/images"}, 0, WithResolverPublicURL("/images"))
	require.NoError(t, err)

	refs := []string{"/logo", "/skill-0", "/nested/photo", "/missing", ""}
	imgs := make([]*Image, len(refs))
	for i, ref := range refs {
		imgs[i] = r.NewImage(ref, nil)
	}
	results, err := r.ResolveAll(context.Background(), imgs)
	require.NoError(t, err)
	require.Len(t, results, len(refs))

	assert.Equal(t, "/images/logo.png", results[0].Source)
	assert.Equal(t, "/images/skill-0.svg", results[1].Source)
	assert.Equal(t, "/images/nested/photo.webp", results[2].Source)
	assert.True(t, results[3].Exhausted)
	assert.Equal(t, "/images/missing.webp", results[3].Source)
	assert.Empty(t, results[4].Source)
}
