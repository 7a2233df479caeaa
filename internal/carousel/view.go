package carousel

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Zachkp/folio/internal/asset"
)

// Item is one rendered carousel slot.
type Item struct {
	Index     int
	Reference string
	Source    string
	Alt       string
	Offset    int
	Role      Role
	Placement Placement
}

// Indicator is one positional dot.
type Indicator struct {
	Index  int
	Active bool
	Label  string
}

// View is the discrete render model of a carousel. A degenerate carousel
// has Single set and no items, controls or indicators.
type View struct {
	Label      string
	Class      string
	Focus      int
	Single     *Item
	Items      []Item
	Controls   bool
	Indicators []Indicator
	Prev, Next int
}

// View builds the render model for the current focus. It does not mutate
// the carousel, so equal state gives an equal view.
func (c *Carousel) View() View {
	v := View{Label: c.label, Class: c.class, Focus: c.focus}
	if c.Degenerate() {
		if len(c.items) == 1 {
			v.Single = &Item{
				Reference: c.items[0],
				Source:    c.slots[0].Source(),
				Alt:       c.label,
				Role:      Center,
				Placement: PlacementFor(0),
			}
		}
		return v
	}

	n := len(c.items)
	v.Controls = true
	v.Prev = (c.focus - 1 + n) % n
	v.Next = (c.focus + 1) % n
	v.Items = make([]Item, n)
	v.Indicators = make([]Indicator, n)
	for i, ref := range c.items {
		off := c.Offset(i)
		v.Items[i] = Item{
			Index:     i,
			Reference: ref,
			Source:    c.slots[i].Source(),
			Alt:       c.label + " " + strconv.Itoa(i+1),
			Offset:    off,
			Role:      RoleOf(off),
			Placement: PlacementFor(off),
		}
		v.Indicators[i] = Indicator{
			Index:  i,
			Active: i == c.focus,
			Label:  fmt.Sprintf("Go to image %d", i+1),
		}
	}
	return v
}

// Resolver resolves a batch of images in place.
type Resolver interface {
	ResolveAll(ctx context.Context, imgs []*asset.Image) ([]asset.Result, error)
}

// Resolve advances every slot through its candidates until it loads or
// runs out. Slots that already failed terminally are left alone.
func (c *Carousel) Resolve(ctx context.Context, r Resolver) error {
	_, err := r.ResolveAll(ctx, c.slots)
	return err
}
