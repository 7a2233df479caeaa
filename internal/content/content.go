// Package content loads the portfolio copy: header, hero, resume cards,
// skills and image galleries.
package content

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

var ErrUnknownGallery = errors.New("content: unknown gallery")

// SkillExtensions is the probe order for skill icons.
var SkillExtensions = []string{"svg", "png"}

type Link struct {
	Href  string `yaml:"href"`
	Label string `yaml:"label"`
	Image string `yaml:"image"`
}

type Card struct {
	Title   string   `yaml:"title"`
	Summary string   `yaml:"summary"`
	Date    string   `yaml:"date"`
	Items   []string `yaml:"items"`
	Image   string   `yaml:"image"`
	Link    string   `yaml:"link"`
	Gallery string   `yaml:"gallery"`
}

type Gallery struct {
	Label      string   `yaml:"label"`
	Items      []string `yaml:"items"`
	Extensions []string `yaml:"extensions"`
}

type Content struct {
	Name      string             `yaml:"name"`
	Greeting  []string           `yaml:"greeting"`
	Hero      string             `yaml:"hero"`
	HeroAlt   string             `yaml:"hero_alt"`
	Links     []Link             `yaml:"links"`
	Cards     []Card             `yaml:"cards"`
	Skills    []string           `yaml:"skills"`
	Galleries map[string]Gallery `yaml:"galleries"`
}

// Default returns the bundled content.
func Default() (*Content, error) {
	return Parse(defaultYAML)
}

// Load reads content from path, or the bundled content when path is empty.
func Load(path string) (*Content, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates YAML content.
func Parse(data []byte) (*Content, error) {
	var c Content
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse content: %w", err)
	}
	for _, card := range c.Cards {
		if card.Gallery == "" {
			continue
		}
		if _, ok := c.Galleries[card.Gallery]; !ok {
			return nil, fmt.Errorf("%w %q in card %q", ErrUnknownGallery, card.Gallery, card.Title)
		}
	}
	return &c, nil
}

// Gallery looks a gallery up by name.
func (c *Content) Gallery(name string) (Gallery, error) {
	g, ok := c.Galleries[name]
	if !ok {
		return Gallery{}, fmt.Errorf("%w %q", ErrUnknownGallery, name)
	}
	return g, nil
}

// Sections returns the titled cards, which are the header's nav targets.
func (c *Content) Sections() []Card {
	var out []Card
	for _, card := range c.Cards {
		if card.Title != "" {
			out = append(out, card)
		}
	}
	return out
}

// NavID turns a card title into its anchor id.
func NavID(title string) string {
	return strings.ReplaceAll(strings.ToLower(title), " ", "-")
}

// SplitSummary splits "lead - detail" at its first dash. ok is false when
// the summary has no dash.
func SplitSummary(summary string) (lead, detail string, ok bool) {
	lead, detail, ok = strings.Cut(summary, "-")
	if !ok {
		return summary, "", false
	}
	return strings.TrimSpace(lead), strings.TrimSpace(detail), true
}

// SkillIcon is the logical reference of the i-th skill icon.
func SkillIcon(i int) string {
	return fmt.Sprintf("/skill-%d", i)
}
