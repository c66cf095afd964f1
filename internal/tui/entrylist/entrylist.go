//go:build !notui

package entrylist

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/BakeLens/galley/internal/allowlist"
	"github.com/BakeLens/galley/internal/tui"
)

// entryItem implements list.Item for a single allowlist entry.
type entryItem struct {
	entry allowlist.Entry
}

func (i entryItem) FilterValue() string { return i.entry.Pattern.String() }

// Title returns plain text — styling is done in the custom delegate to avoid
// ANSI escape corruption when bubbles/list applies filter highlighting.
func (i entryItem) Title() string {
	return i.entry.Pattern.String()
}

func (i entryItem) Description() string {
	e := i.entry

	desc := e.Description
	if len(desc) > 35 {
		desc = desc[:32] + "..."
	}

	return fmt.Sprintf("%-7s  %s  %s  %s",
		e.Pattern.Kind(),
		tui.StyleMuted.Render(argsSummary(e)),
		tui.StyleMuted.Render(desc),
		tui.StyleMuted.Render(tui.IconBolt+" "+strconv.FormatInt(e.HitCount, 10)+" hits"))
}

// headerItem is a non-selectable separator for source group headers.
type headerItem struct {
	title string
}

func (h headerItem) FilterValue() string { return "" }
func (h headerItem) Title() string       { return tui.Separator(h.title) }
func (h headerItem) Description() string { return "" }

// entryDelegate renders entry items with proper styling that won't leak
// ANSI escapes into the filter highlight overlay.
type entryDelegate struct {
	styles list.DefaultItemStyles
}

func newEntryDelegate() entryDelegate {
	styles := list.NewDefaultItemStyles()
	styles.SelectedTitle = styles.SelectedTitle.
		Foreground(tui.ColorAccent).
		BorderLeftForeground(tui.ColorAccent)
	styles.SelectedDesc = styles.SelectedDesc.
		Foreground(tui.ColorMuted).
		BorderLeftForeground(tui.ColorAccent)
	return entryDelegate{styles: styles}
}

// sourceIcon colors the entry marker by origin so mixed groups stay
// readable while filtering (filtering flattens the section headers away).
func sourceIcon(source string) string {
	switch source {
	case allowlist.SourceBuiltin:
		return tui.StyleMuted.Render(tui.IconDot)
	case allowlist.SourceConfig:
		return tui.StyleAccent.Render(tui.IconDot)
	case allowlist.SourceCLI:
		return tui.StyleInfo.Render(tui.IconDot)
	default:
		return tui.StyleRunning.Render(tui.IconDot)
	}
}

func (d entryDelegate) Height() int                         { return 2 }
func (d entryDelegate) Spacing() int                        { return 1 }
func (d entryDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }
func (d entryDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ei, ok := item.(entryItem)
	if !ok {
		// headerItem — render as separator
		if h, ok := item.(headerItem); ok {
			fmt.Fprint(w, tui.Separator(h.title))
		}
		return
	}

	selected := index == m.Index()

	icon := sourceIcon(ei.entry.Source)
	name := tui.StyleBold.Render(ei.entry.Pattern.String())
	title := icon + " " + name
	desc := ei.Description()

	if selected {
		title = d.styles.SelectedTitle.Render("> " + ei.entry.Pattern.String())
		desc = d.styles.SelectedDesc.Render("  " + desc)
	} else {
		title = "  " + title
		desc = "  " + desc
	}

	fmt.Fprintf(w, "%s\n%s", title, desc)
}

// model is the bubbletea model for the interactive entry list.
type model struct {
	list   list.Model
	width  int
	height int
}

// Render displays allowlist entries in an interactive list.
// Supports scroll navigation, filtering by pattern.
// Falls back to static display in plain mode.
func Render(entries []allowlist.Entry, total int) error {
	if tui.IsPlainMode() {
		return RenderPlain(entries, total)
	}

	items := buildListItems(entries)

	// Use custom delegate to avoid ANSI escape leak in filter mode
	delegate := newEntryDelegate()

	l := list.New(items, delegate, 80, 24)
	l.Title = fmt.Sprintf("Galley Allowlist (%d entries)", total)
	l.Styles.Title = tui.StyleTitle
	l.Styles.FilterPrompt = lipgloss.NewStyle().Foreground(tui.ColorAccent)
	l.Styles.FilterCursor = lipgloss.NewStyle().Foreground(tui.ColorSuccess)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)

	m := model{list: l}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height)

	case tea.KeyMsg:
		if msg.String() == "q" && !m.list.SettingFilter() {
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) View() string {
	return m.list.View()
}

// buildListItems converts entries into list items grouped by source,
// in match precedence order.
func buildListItems(entries []allowlist.Entry) []list.Item {
	var items []list.Item

	groups := groupBySource(entries)

	for _, src := range sourceOrder {
		group := groups[src]
		if len(group) == 0 {
			continue
		}
		items = append(items, headerItem{title: sourceTitle(src)})
		for _, e := range group {
			items = append(items, entryItem{entry: e})
		}
	}

	return items
}
