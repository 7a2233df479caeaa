// Package carousel presents an ordered set of images as an infinitely
// wrapping, center-focused carousel.
package carousel

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Zachkp/folio/internal/asset"
)

var (
	ErrIndexOutOfRange = errors.New("carousel: index out of range")
	ErrNotVisible      = errors.New("carousel: item not visible")
)

// ImageFactory builds the image for one slot.
type ImageFactory func(ref string, extensions []string) *asset.Image

// Carousel owns the focus index and one image per item. Images are kept in
// an arena indexed by absolute item index, so an item's probe progress
// survives focus changes.
type Carousel struct {
	label      string
	class      string
	items      []string
	extensions []string
	focus      int
	slots      []*asset.Image
	newImage   ImageFactory
}

// Option configures a Carousel.
type Option func(*Carousel)

// WithExtensions sets the candidate extensions used by every slot.
func WithExtensions(exts []string) Option {
	return func(c *Carousel) { c.extensions = slices.Clone(exts) }
}

// WithImageFactory replaces asset.NewImage, e.g. with a resolver's NewImage
// so slots carry its public URL.
func WithImageFactory(f ImageFactory) Option {
	return func(c *Carousel) { c.newImage = f }
}

// WithClass attaches an opaque style class passed through to the view.
func WithClass(class string) Option {
	return func(c *Carousel) { c.class = class }
}

// New creates a carousel focused on the first item.
func New(items []string, label string, opts ...Option) *Carousel {
	c := &Carousel{
		label: label,
		newImage: func(ref string, exts []string) *asset.Image {
			return asset.NewImage(ref, exts)
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.SetItems(items)
	return c
}

func (c *Carousel) Len() int { return len(c.items) }
func (c *Carousel) Label() string { return c.label }
func (c *Carousel) Focus() int { return c.focus }
func (c *Carousel) Items() []string { return slices.Clone(c.items) }

// Degenerate reports whether the carousel has at most one item and renders
// as a single image without controls.
func (c *Carousel) Degenerate() bool { return len(c.items) <= 1 }

// Slot returns the image of the item at absolute index i.
func (c *Carousel) Slot(i int) *asset.Image {
	if i < 0 || i >= len(c.slots) {
		return nil
	}
	return c.slots[i]
}

// Slots returns every slot image in item order.
func (c *Carousel) Slots() []*asset.Image { return slices.Clone(c.slots) }

// SetItems replaces the item sequence. Slots whose reference is unchanged
// keep their probe state; the focus is clamped into the new range.
func (c *Carousel) SetItems(items []string) {
	slots := make([]*asset.Image, len(items))
	for i, ref := range items {
		if i < len(c.slots) && c.slots[i] != nil {
			c.slots[i].SetReference(ref, c.exts())
			slots[i] = c.slots[i]
			continue
		}
		slots[i] = c.newImage(ref, c.exts())
	}
	c.items = slices.Clone(items)
	c.slots = slots
	c.clamp()
}

// SetFocus restores a focus index carried outside the carousel, e.g. in a
// request. Out-of-range values are clamped.
func (c *Carousel) SetFocus(k int) {
	c.focus = k
	if k < 0 {
		c.focus = 0
	}
	c.clamp()
}

// Offset returns the signed wraparound distance of item i from the focus:
// 0 is the center, -1 and 1 its neighbours. For even lengths the item
// opposite the focus keeps the sign of its raw index difference.
func (c *Carousel) Offset(i int) int {
	n := len(c.items)
	diff := i - c.focus
	half := n / 2
	if diff > half {
		diff -= n
	}
	if diff < -half {
		diff += n
	}
	return diff
}

// Offsets returns Offset for every item, or nil for a degenerate carousel.
func (c *Carousel) Offsets() []int {
	if c.Degenerate() {
		return nil
	}
	out := make([]int, len(c.items))
	for i := range c.items {
		out[i] = c.Offset(i)
	}
	return out
}

// Previous moves the focus one item left, wrapping to the last item.
func (c *Carousel) Previous() {
	c.clamp()
	if c.Degenerate() {
		return
	}
	n := len(c.items)
	c.focus = (c.focus - 1 + n) % n
}

// Next moves the focus one item right, wrapping to the first item.
func (c *Carousel) Next() {
	c.clamp()
	if c.Degenerate() {
		return
	}
	c.focus = (c.focus + 1) % len(c.items)
}

// Select focuses item k directly, as an indicator click does.
func (c *Carousel) Select(k int) error {
	if k < 0 || k >= len(c.items) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, k, len(c.items))
	}
	c.focus = k
	return nil
}

// Click focuses item k if it is currently visible (center or a neighbour).
func (c *Carousel) Click(k int) error {
	if k < 0 || k >= len(c.items) {
		return fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, k, len(c.items))
	}
	if !c.Degenerate() && RoleOf(c.Offset(k)) == Hidden {
		return fmt.Errorf("%w: %d", ErrNotVisible, k)
	}
	c.focus = k
	return nil
}

func (c *Carousel) exts() []string {
	if c.extensions == nil {
		return asset.DefaultExtensions
	}
	return c.extensions
}

func (c *Carousel) clamp() {
	if n := len(c.items); c.focus >= n {
		c.focus = max(n-1, 0)
	}
}
