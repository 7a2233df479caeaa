package asset

import (
	"context"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultCacheSize = 256

// Result is the outcome of resolving one reference.
type Result struct {
	Reference string
	Source    string
	Extension string
	Tried     []string
	Exhausted bool
}

// FailureReporter receives references whose candidates were all exhausted.
type FailureReporter interface {
	RecordTerminalFailure(ctx context.Context, reference string, tried []string) error
}

// Resolver drives images through their probe order against a Loader and
// caches the outcome per prefix, reference and candidate order.
type Resolver struct {
	loader    Loader
	publicURL string
	cache     *lru.Cache[string, Result]
	metrics   *Metrics
	reporter  FailureReporter
	logger    *zap.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

func WithResolverPublicURL(prefix string) ResolverOption {
	return func(r *Resolver) { r.publicURL = prefix }
}

func WithMetrics(m *Metrics) ResolverOption {
	return func(r *Resolver) { r.metrics = m }
}

func WithReporter(rep FailureReporter) ResolverOption {
	return func(r *Resolver) { r.reporter = rep }
}

func WithLogger(l *zap.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver creates a resolver. cacheSize <= 0 uses the default size.
func NewResolver(loader Loader, cacheSize int, opts ...ResolverOption) (*Resolver, error) {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New[string, Result](cacheSize)
	if err != nil {
		return nil, err
	}
	r := &Resolver{
		loader: loader,
		cache:  cache,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// NewImage creates an image carrying the resolver's public URL.
func (r *Resolver) NewImage(ref string, extensions []string) *Image {
	return NewImage(ref, extensions, WithPublicURL(r.publicURL))
}

// RenderImage resolves a single reference. An invalid reference yields a
// zero Result, which renders as nothing.
func (r *Resolver) RenderImage(ctx context.Context, ref string, extensions []string) (Result, error) {
	return r.Resolve(ctx, r.NewImage(ref, extensions))
}

// Resolve loads img's current source and advances through its candidates on
// each failure. Load failures are never returned; only context errors are.
func (r *Resolver) Resolve(ctx context.Context, img *Image) (Result, error) {
	if !img.Valid() {
		return Result{}, nil
	}
	key := r.key(img)
	if res, ok := r.cache.Get(key); ok {
		r.metrics.lookup(true)
		replay(img, res)
		return resultOf(img), nil
	}
	r.metrics.lookup(false)

	for !img.Exhausted() {
		src := img.Source()
		err := r.loader.Load(ctx, src)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		r.metrics.probeFailed(img.Extension())
		r.logger.Debug("asset probe failed",
			zap.String("reference", img.Input()),
			zap.String("source", src),
			zap.Error(err))
		if !img.FailSource(src) {
			r.metrics.terminal()
			r.report(ctx, img)
		}
	}

	res := resultOf(img)
	r.cache.Add(key, res)
	return res, nil
}

// ResolveAll resolves independent images concurrently.
func (r *Resolver) ResolveAll(ctx context.Context, imgs []*Image) ([]Result, error) {
	out := make([]Result, len(imgs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, img := range imgs {
		g.Go(func() error {
			res, err := r.Resolve(gctx, img)
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Purge drops every cached result.
func (r *Resolver) Purge() {
	r.cache.Purge()
}

func (r *Resolver) report(ctx context.Context, img *Image) {
	r.logger.Info("asset unresolved",
		zap.String("reference", img.Input()),
		zap.Strings("tried", img.Order()))
	if r.reporter == nil {
		return
	}
	if err := r.reporter.RecordTerminalFailure(ctx, img.Input(), img.Order()); err != nil {
		r.logger.Warn("record terminal failure", zap.Error(err))
	}
}

// key covers everything that shapes an image's sources, so images built
// with different prefixes never share an entry.
func (r *Resolver) key(img *Image) string {
	return img.PublicURL() + "\x00" + img.Input() + "\x00" + strings.Join(img.Order(), ",")
}

func resultOf(img *Image) Result {
	return Result{
		Reference: img.Input(),
		Source:    img.Source(),
		Extension: img.Extension(),
		Tried:     img.Tried(),
		Exhausted: img.Exhausted(),
	}
}

// replay brings a fresh image to the probe state of a cached result.
func replay(img *Image, res Result) {
	for img.Extension() != res.Extension && img.Fail() {
	}
	if res.Exhausted {
		img.Fail()
	}
}
