package asset

import "slices"

// Image is one resolvable image instance. It owns the probe state for its
// current reference: the extensions that already failed to load.
//
// An Image is not safe for concurrent use; failure notifications are expected
// to be delivered one at a time, as a UI event loop would.
type Image struct {
	publicURL  string
	input      string
	candidates []string

	ref     Reference
	err     error
	order   []string
	current int
	tried   []string
	done    bool
}

// Option configures an Image.
type Option func(*Image)

// WithPublicURL prefixes every produced source, like a deployment base path.
func WithPublicURL(prefix string) Option {
	return func(img *Image) { img.publicURL = prefix }
}

// NewImage creates an image for ref. A nil extension list means
// DefaultExtensions.
func NewImage(ref string, extensions []string, opts ...Option) *Image {
	img := &Image{}
	for _, opt := range opts {
		opt(img)
	}
	img.reset(ref, extensions)
	return img
}

func (img *Image) reset(ref string, extensions []string) {
	if extensions == nil {
		extensions = DefaultExtensions
	}
	img.input = ref
	img.candidates = slices.Clone(extensions)
	img.ref, img.err = ParseReference(ref)
	img.order = nil
	if img.err == nil {
		img.order = Order(img.ref.Embedded, extensions)
	}
	img.current = 0
	img.tried = nil
	img.done = false
}

// SetReference points the image at ref. Probe state is kept when neither the
// reference nor the candidate list changed, and started over otherwise.
func (img *Image) SetReference(ref string, extensions []string) {
	if extensions == nil {
		extensions = DefaultExtensions
	}
	if ref == img.input && slices.Equal(extensions, img.candidates) {
		return
	}
	img.reset(ref, extensions)
}

// Valid reports whether the reference can be rendered at all. Invalid
// images render nothing and never issue a request.
func (img *Image) Valid() bool {
	return img.err == nil && len(img.order) > 0
}

// Err returns the parse error of an invalid reference.
func (img *Image) Err() error { return img.err }

// Reference returns the parsed reference.
func (img *Image) Reference() Reference { return img.ref }

// PublicURL returns the prefix applied to every source.
func (img *Image) PublicURL() string { return img.publicURL }

// Input returns the reference string as given.
func (img *Image) Input() string { return img.input }

// Order returns the effective probe order.
func (img *Image) Order() []string { return slices.Clone(img.order) }

// Extension returns the extension of the current source.
func (img *Image) Extension() string {
	if !img.Valid() {
		return ""
	}
	return img.order[img.current]
}

// Source returns the location to display, or "" for an invalid reference.
func (img *Image) Source() string {
	if !img.Valid() {
		return ""
	}
	return Location(img.publicURL, img.ref.Base, img.order[img.current])
}

// Tried returns the extensions recorded as failed, in failure order.
func (img *Image) Tried() []string { return slices.Clone(img.tried) }

// Exhausted reports whether a failure arrived with no candidate left.
func (img *Image) Exhausted() bool { return img.done }

// Fail handles a load failure of the current source. The failed extension is
// recorded and the source moves to the first candidate not yet tried. When no
// candidate remains the source is left as is and Fail returns false.
func (img *Image) Fail() bool {
	if !img.Valid() || img.done {
		return false
	}
	failed := img.order[img.current]
	for i, ext := range img.order {
		if ext == failed || slices.Contains(img.tried, ext) {
			continue
		}
		if !slices.Contains(img.tried, failed) {
			img.tried = append(img.tried, failed)
		}
		img.current = i
		return true
	}
	img.done = true
	return false
}

// FailSource is Fail for a notification that names the source that failed.
// Notifications for a source that is no longer current are ignored.
func (img *Image) FailSource(src string) bool {
	if src != img.Source() {
		return false
	}
	return img.Fail()
}
