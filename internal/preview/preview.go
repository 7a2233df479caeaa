// Package preview shows a carousel in the terminal, resolving its images
// against the same loader the site uses.
package preview

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Zachkp/folio/internal/carousel"
)

type keyMap struct {
	Prev   key.Binding
	Next   key.Binding
	Jump   key.Binding
	Cancel key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Prev:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "previous")),
	Next:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next")),
	Jump:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("0-9 enter", "jump")),
	Cancel: key.NewBinding(key.WithKeys("backspace"), key.WithHelp("backspace", "clear")),
	Quit:   key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#C7E0BD"))
	centerStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#4D7C0F")).Padding(1, 2).Width(28)
	sideStyle   = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240")).Foreground(lipgloss.Color("245")).Padding(0, 1).Width(18)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626"))
	dotStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	activeDot   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C7E0BD"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type resolvedMsg struct{ err error }

// Model is the bubbletea model of the previewer.
type Model struct {
	car      *carousel.Carousel
	resolver carousel.Resolver
	ctx      context.Context
	resolved bool
	err      error
	// pending holds digits typed toward a 1-based item number.
	pending  string
	notice   string
}

func New(ctx context.Context, c *carousel.Carousel, r carousel.Resolver) Model {
	return Model{car: c, resolver: r, ctx: ctx}
}

// Focus returns the carousel focus index.
func (m Model) Focus() int { return m.car.Focus() }

func (m Model) Init() tea.Cmd {
	return func() tea.Msg {
		return resolvedMsg{err: m.car.Resolve(m.ctx, m.resolver)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case resolvedMsg:
		m.resolved = true
		m.err = msg.err
	case tea.KeyMsg:
		m.notice = ""
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Prev):
			m.pending = ""
			m.car.Previous()
		case key.Matches(msg, keys.Next):
			m.pending = ""
			m.car.Next()
		case key.Matches(msg, keys.Jump):
			if m.pending != "" {
				m = m.jump()
			}
		case key.Matches(msg, keys.Cancel):
			if m.pending != "" {
				m.pending = m.pending[:len(m.pending)-1]
			}
		default:
			s := msg.String()
			if len(s) != 1 || s[0] < '0' || s[0] > '9' || (s[0] == '0' && m.pending == "") {
				break
			}
			m.pending += s
			// Jump as soon as no further digit could name an item.
			if n, _ := strconv.Atoi(m.pending); n*10 > m.car.Len() {
				m = m.jump()
			}
		}
	}
	return m, nil
}

// jump selects the pending 1-based item number.
func (m Model) jump() Model {
	n, _ := strconv.Atoi(m.pending)
	m.pending = ""
	if err := m.car.Select(n - 1); err != nil {
		m.notice = fmt.Sprintf("no item %d", n)
	}
	return m
}

func (m Model) View() string {
	v := m.car.View()
	var b strings.Builder
	b.WriteString(titleStyle.Render(v.Label))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(failStyle.Render("resolve: " + m.err.Error()))
		b.WriteString("\n")
	}

	switch {
	case v.Single != nil:
		b.WriteString(centerStyle.Render(m.describe(v.Single.Source, 0)))
		b.WriteString("\n")
	case v.Controls:
		cols := make([]string, 3)
		for _, it := range v.Items {
			if !it.Role.Visible() {
				continue
			}
			style := sideStyle
			if it.Role == carousel.Center {
				style = centerStyle
			}
			cols[it.Offset+1] = style.Render(m.describe(it.Source, it.Index))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center, cols...))
		b.WriteString("\n\n")
		for _, ind := range v.Indicators {
			if ind.Active {
				b.WriteString(activeDot.Render("●"))
			} else {
				b.WriteString(dotStyle.Render("○"))
			}
			b.WriteString(" ")
		}
		b.WriteString("\n\n")
		switch {
		case m.pending != "":
			b.WriteString(helpStyle.Render("go to " + m.pending + "_"))
			b.WriteString("\n")
		case m.notice != "":
			b.WriteString(failStyle.Render(m.notice))
			b.WriteString("\n")
		}
		help := make([]string, 0, 4)
		for _, k := range []key.Binding{keys.Prev, keys.Next, keys.Jump, keys.Quit} {
			help = append(help, k.Help().Key+" "+k.Help().Desc)
		}
		b.WriteString(helpStyle.Render(strings.Join(help, " • ")))
	default:
		b.WriteString(helpStyle.Render("(empty gallery)"))
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) describe(src string, index int) string {
	if src == "" {
		return "(no image)"
	}
	name := path.Base(src)
	if !m.resolved {
		return name + "\nresolving…"
	}
	if img := m.car.Slot(index); img != nil && img.Exhausted() {
		return failStyle.Render(name + "\nunresolved")
	}
	return name
}
