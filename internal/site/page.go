package site

import (
	"context"
	"fmt"
	"html/template"

	"github.com/Zachkp/folio/internal/asset"
	"github.com/Zachkp/folio/internal/carousel"
	"github.com/Zachkp/folio/internal/content"
)

// Img is a resolved image ready for a template. An empty Src renders nothing.
type Img struct {
	Src   string
	Alt   string
	Class string
}

type LinkView struct {
	Href  string
	Label string
	Icon  Img
}

type CardView struct {
	ID        string
	Title     string
	Lead      string
	Detail    string
	Date      string
	Items     []string
	Image     Img
	Link      string
	Carousel  *CarouselView
	Reversed  bool
	FadeRight bool
}

type SkillView struct {
	Name string
	Icon Img
}

type NavView struct {
	ID    string
	Title string
}

// Page is the render model of the home page.
type Page struct {
	Name     string
	Greeting []string
	Hero     Img
	Nav      []NavView
	Links    []LinkView
	Cards    []CardView
	Skills   []SkillView
}

// CarouselView is a carousel fragment plus the gallery it came from.
type CarouselView struct {
	Gallery string
	carousel.View
}

// DOMID is the element id the fragment swaps into.
func (v CarouselView) DOMID() string { return "carousel-" + content.NavID(v.Gallery) }

// pending pairs an image with the template slot waiting for its source.
type pending struct {
	img *asset.Image
	dst *Img
}

type pageBuilder struct {
	resolver  *asset.Resolver
	imgs      []*asset.Image
	slots     []pending
	carousels []*carousel.Carousel
	views     []**CarouselView
	names     []string
}

func (b *pageBuilder) image(ref string, exts []string, alt, class string, dst *Img) {
	*dst = Img{Alt: alt, Class: class}
	img := b.resolver.NewImage(ref, exts)
	b.imgs = append(b.imgs, img)
	b.slots = append(b.slots, pending{img: img, dst: dst})
}

func (b *pageBuilder) gallery(name string, g content.Gallery, dst **CarouselView) {
	c := newCarousel(b.resolver, g)
	b.imgs = append(b.imgs, c.Slots()...)
	b.carousels = append(b.carousels, c)
	b.views = append(b.views, dst)
	b.names = append(b.names, name)
}

func (b *pageBuilder) resolve(ctx context.Context) error {
	if _, err := b.resolver.ResolveAll(ctx, b.imgs); err != nil {
		return err
	}
	for _, p := range b.slots {
		p.dst.Src = p.img.Source()
	}
	for i, c := range b.carousels {
		*b.views[i] = &CarouselView{Gallery: b.names[i], View: c.View()}
	}
	return nil
}

func newCarousel(r *asset.Resolver, g content.Gallery) *carousel.Carousel {
	return carousel.New(g.Items, g.Label,
		carousel.WithExtensions(g.Extensions),
		carousel.WithImageFactory(r.NewImage),
		carousel.WithClass("h-full w-full object-contain"))
}

const cardImageClass = "h-32 max-w-80 object-contain transform hover:scale-105 transition duration-300"

func buildPage(ctx context.Context, r *asset.Resolver, c *content.Content) (*Page, error) {
	b := &pageBuilder{resolver: r}
	p := &Page{
		Name:     c.Name,
		Greeting: c.Greeting,
		Links:    make([]LinkView, len(c.Links)),
		Cards:    make([]CardView, len(c.Cards)),
		Skills:   make([]SkillView, len(c.Skills)),
	}
	b.image(c.Hero, nil, c.HeroAlt, "w-full h-full object-cover rounded hero-image-reveal", &p.Hero)

	for _, card := range c.Sections() {
		p.Nav = append(p.Nav, NavView{ID: content.NavID(card.Title), Title: card.Title})
	}
	for i, l := range c.Links {
		p.Links[i] = LinkView{Href: l.Href, Label: l.Label}
		b.image(l.Image, nil, "profile link", "w-8 h-8 md:w-12 md:h-12 transition duration-200 hover:brightness-75", &p.Links[i].Icon)
	}
	for i, card := range c.Cards {
		lead, detail, _ := content.SplitSummary(card.Summary)
		cv := &p.Cards[i]
		*cv = CardView{
			ID:        content.NavID(card.Title),
			Title:     card.Title,
			Lead:      lead,
			Detail:    detail,
			Date:      card.Date,
			Items:     card.Items,
			Link:      card.Link,
			Reversed:  i%2 != 0,
			FadeRight: i%2 == 0,
		}
		switch {
		case card.Gallery != "":
			g, err := c.Gallery(card.Gallery)
			if err != nil {
				return nil, err
			}
			b.gallery(card.Gallery, g, &cv.Carousel)
		case card.Image != "":
			b.image(card.Image, nil, "Icon", cardImageClass, &cv.Image)
		}
	}
	for i, name := range c.Skills {
		p.Skills[i] = SkillView{Name: name}
		b.image(content.SkillIcon(i), content.SkillExtensions, name, "w-8 h-8 object-contain", &p.Skills[i].Icon)
	}

	if err := b.resolve(ctx); err != nil {
		return nil, fmt.Errorf("resolve page images: %w", err)
	}
	return p, nil
}

// placementStyle renders a placement as inline CSS.
func placementStyle(p carousel.Placement) template.CSS {
	return template.CSS(fmt.Sprintf(
		"width:%dpx;height:%dpx;transform:translateX(%dpx) scale(%g);opacity:%g;z-index:%d",
		p.Width, p.Height, p.TranslateX, p.Scale, p.Opacity, p.ZIndex))
}
