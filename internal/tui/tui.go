// Package tui is the terminal chat list.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/strrl/chat-history/internal/chats"
	"github.com/strrl/chat-history/internal/events"
	"github.com/strrl/chat-history/internal/hydrate"
	"github.com/strrl/chat-history/internal/logging"
	"github.com/strrl/chat-history/internal/pager"
	"github.com/strrl/chat-history/pkg/models"
)

// linesPerRow is how many viewport lines one chat takes.
const linesPerRow = 2

// Options wires the list to its engine.
type Options struct {
	Controller         *chats.Controller
	Preview            *hydrate.PreviewCache
	Creation           *hydrate.CreationCache
	Bus                *events.Bus
	Title              string
	Sort               chats.SortOrder
	CurrentChatID      string
	AutoPageMultiplier int
	// Poll finds the end of the list with a timed visibility check instead
	// of the pane observer.
	Poll               bool
	PollInterval       time.Duration
}

type model struct {
	ctx   context.Context
	ctrl  *chats.Controller
	pager *pager.AutoPager
	pane  *listPane
	bus   *events.Bus

	title         string
	sort          chats.SortOrder
	query         string
	currentChatID string
	multiplier    int

	search    textinput.Model
	searching bool

	result   *chats.LoadResult
	cursor   int
	selected *models.ChatRecord
	loadErr  error
	waiting  []chan struct{}

	indicator *LoadingIndicator
	viewport  viewport.Model
	ready     bool
	width     int
	height    int

	more    chan MoreRequestedMsg
	facets  chan struct{}
	reloads chan struct{}
}

func newModel(ctx context.Context, opts Options) model {
	pane := newListPane()
	search := textinput.New()
	search.Placeholder = "search chats"
	search.Prompt = "/ "

	sort := opts.Sort
	if sort == "" {
		sort = chats.DefaultSort
	}
	multiplier := opts.AutoPageMultiplier
	if multiplier < 1 {
		multiplier = 1
	}

	m := model{
		ctx:           ctx,
		ctrl:          opts.Controller,
		pager:         newPager(pane, opts),
		pane:          pane,
		bus:           opts.Bus,
		title:         opts.Title,
		sort:          sort,
		currentChatID: opts.CurrentChatID,
		multiplier:    multiplier,
		search:        search,
		indicator:     NewLoadingIndicator(),
		more:          make(chan MoreRequestedMsg, 1),
		facets:        make(chan struct{}, 1),
		reloads:       make(chan struct{}, 1),
	}

	if opts.Preview != nil {
		opts.Preview.OnResolved(func(*models.ChatRecord, *models.PreviewEntry) { notify(m.facets) })
	}
	if opts.Creation != nil {
		opts.Creation.OnResolved(func(*models.ChatRecord, *models.CreationEntry) { notify(m.facets) })
	}
	if opts.Bus != nil {
		reloads := m.reloads
		if err := events.WireList(opts.Bus, "tui", opts.Controller, func(context.Context) { notify(reloads) }); err != nil {
			log := logging.Component("tui")
			log.Warn().Err(err).Msg("host events not wired")
		}
	}
	return m
}

func newPager(pane *listPane, opts Options) *pager.AutoPager {
	popts := []pager.Option{pager.WithPollInterval(opts.PollInterval)}
	if !opts.Poll {
		popts = append(popts, pager.WithObserverFactory(pane.observerFactory()))
	}
	return pager.New(pane, popts...)
}

// requestMore is the pager callback. It runs on the update goroutine, so it
// must never block.
func (m model) requestMore() <-chan struct{} {
	done := make(chan struct{})
	select {
	case m.more <- MoreRequestedMsg{Done: done}:
		return done
	default:
		return nil
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.load(),
		waitForMore(m.more),
		waitForFacet(m.facets),
		waitForReload(m.reloads),
		tickCmd(),
	)
}

func (m model) load() tea.Cmd {
	m.indicator.Start("Loading chats")
	return loadCmd(m.ctx, m.ctrl, chats.LoadRequest{
		Query:         m.query,
		Sort:          m.sort,
		CurrentChatID: m.currentChatID,
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	recheck := false

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		height := msg.Height - 4
		if height < 1 {
			height = 1
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.search.Width = msg.Width - 4
		m.refresh()
		recheck = true

	case TickMsg:
		m.indicator.Tick()
		recheck = true
		cmds = append(cmds, tickCmd())

	case ListLoadedMsg:
		m = m.applyOutcome(msg.Outcome)
		recheck = true

	case MoreRequestedMsg:
		if m.result != nil && m.ctrl.AutoLoadNextChunk(m.multiplier) {
			m.waiting = append(m.waiting, msg.Done)
			cmds = append(cmds, m.load())
		} else {
			close(msg.Done)
		}
		cmds = append(cmds, waitForMore(m.more))

	case FacetResolvedMsg:
		m.refresh()
		cmds = append(cmds, waitForFacet(m.facets))

	case ReloadMsg:
		cmds = append(cmds, m.load(), waitForReload(m.reloads))

	case tea.KeyMsg:
		var cmd tea.Cmd
		if m.searching {
			m, cmd = m.handleSearchKey(msg)
		} else {
			m, cmd = m.handleKey(msg)
		}
		cmds = append(cmds, cmd)
		if m.selected != nil {
			m.pager.Teardown()
			return m, tea.Quit
		}

	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	if m.ready {
		m.pane.update(m.viewport.AtBottom(), recheck)
	}
	return m, batch(cmds...)
}

// batch is tea.Batch without the BatchMsg wrapper when at most one command
// is left.
func batch(cmds ...tea.Cmd) tea.Cmd {
	var valid []tea.Cmd
	for _, c := range cmds {
		if c != nil {
			valid = append(valid, c)
		}
	}
	switch len(valid) {
	case 0:
		return nil
	case 1:
		return valid[0]
	}
	return tea.Batch(valid...)
}

func (m model) applyOutcome(o chats.LoadOutcome) model {
	if errors.Is(o.Err, chats.ErrSuperseded) || errors.Is(o.Err, context.Canceled) {
		return m
	}
	m.indicator.Stop()
	for _, done := range m.waiting {
		close(done)
	}
	m.waiting = nil

	if o.Err != nil {
		m.loadErr = o.Err
		m.pager.Teardown()
		m.refresh()
		return m
	}
	if o.Result == nil || !m.ctrl.IsCurrent(o.Result.Generation) {
		return m
	}

	m.loadErr = nil
	m.result = o.Result
	if m.cursor >= len(m.result.ToRender) {
		m.cursor = max(0, len(m.result.ToRender)-1)
	}
	m.pager.Ensure(pager.EnsureOptions{
		Enabled:       m.result.IsAutoPaging,
		HasMore:       m.result.HasMore,
		OnRequestMore: m.requestMore,
	})
	m.refresh()
	return m
}

func (m model) handleSearchKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searching = false
		m.search.Blur()
		m.query = strings.TrimSpace(m.search.Value())
		m.cursor = 0
		m.ctrl.Reset()
		return m, m.load()
	case "esc":
		m.searching = false
		m.search.Blur()
		if m.query == "" {
			m.search.SetValue("")
			return m, nil
		}
		return m.clearQuery()
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.pager.Teardown()
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.refresh()
			m.followCursor()
		}

	case "down", "j":
		if m.result != nil && m.cursor < len(m.result.ToRender)-1 {
			m.cursor++
			m.refresh()
			m.followCursor()
		}

	case "/":
		m.searching = true
		m.search.SetValue(m.query)
		cmd := m.search.Focus()
		return m, cmd

	case "esc":
		if m.query != "" {
			return m.clearQuery()
		}

	case "s":
		m.sort = m.sort.Next()
		return m, m.load()

	case "m":
		if m.result != nil && m.result.HasMore {
			m.ctrl.ShowMore()
			return m, m.load()
		}

	case "a":
		if m.result != nil && !m.result.IsSearchMode {
			m.ctrl.ShowAll()
			return m, m.load()
		}

	case "r":
		m.ctrl.ClearCaches()
		return m, m.load()

	case "enter":
		if m.result != nil && m.cursor < len(m.result.ToRender) {
			m.selected = m.result.ToRender[m.cursor]
			m.currentChatID = m.selected.FileName
		}

	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) clearQuery() (model, tea.Cmd) {
	m.query = ""
	m.search.SetValue("")
	m.cursor = 0
	m.ctrl.Reset()
	return m, m.load()
}

// refresh re-renders the list into the viewport.
func (m *model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderList())
}

// followCursor scrolls the viewport so the cursor row is visible.
func (m *model) followCursor() {
	top := m.cursor * linesPerRow
	bottom := top + linesPerRow
	switch {
	case top < m.viewport.YOffset:
		m.viewport.SetYOffset(top)
	case bottom > m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(bottom - m.viewport.Height)
	}
}

var (
	nameStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	detailStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func (m model) renderList() string {
	if m.loadErr != nil {
		return errorStyle.Render(fmt.Sprintf("Could not load chats: %v", m.loadErr))
	}
	if m.result == nil {
		return ""
	}
	if len(m.result.ToRender) == 0 {
		if m.result.IsSearchMode {
			return hintStyle.Render("No chats match the search")
		}
		return hintStyle.Render("No chats found")
	}

	var s strings.Builder
	for i, rec := range m.result.ToRender {
		s.WriteString(m.renderRow(rec, i == m.cursor))
		s.WriteString("\n")
	}
	switch {
	case m.pane.hasSentinel():
		s.WriteString(hintStyle.Render("  ⋯ loading more"))
	case m.result.HasMore:
		s.WriteString(hintStyle.Render(fmt.Sprintf("  %d more · m: show more · a: show all",
			len(m.result.SortedItems)-len(m.result.ToRender))))
	}
	return s.String()
}

func (m model) renderRow(rec *models.ChatRecord, selected bool) string {
	cursor := "  "
	style := nameStyle
	if selected {
		cursor = "> "
		style = selectedStyle
	}
	current := ""
	if m.currentChatID != "" && rec.Key() == models.ChatKey(m.currentChatID) {
		current = " ●"
	}

	title := fmt.Sprintf("%s%s%s  %d msgs · %s", cursor, rec.FileName, current, rec.MessageCount, formatTime(rec.LastMessageAt, rec.LastMessageRaw))
	if rec.FileSizeLabel != "" {
		title += " · " + rec.FileSizeLabel
	}

	var details []string
	if at, raw := rec.CreatedAt(); at != nil {
		details = append(details, "created "+at.Local().Format("2006-01-02"))
	} else if raw != "" {
		details = append(details, "created "+raw)
	}
	if p := rec.Preview(); p != nil {
		details = append(details, "bg "+truncate(p.OriginalURL, 40))
	}
	if rec.LastMessagePreview != "" {
		details = append(details, truncate(strings.Join(strings.Fields(rec.LastMessagePreview), " "), 60))
	}

	return style.Render(title) + "\n" + detailStyle.Render("    "+strings.Join(details, " · "))
}

func formatTime(t *time.Time, raw string) string {
	if t != nil {
		return t.Local().Format("2006-01-02 15:04")
	}
	if raw != "" {
		return raw
	}
	return "-"
}

func (m model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}
	return fmt.Sprintf("%s\n%s\n%s\n%s\n%s",
		m.renderHeader(),
		m.renderSearch(),
		m.viewport.View(),
		m.renderStatus(),
		m.renderFooter())
}

func (m model) renderHeader() string {
	title := "Chat History"
	if m.title != "" {
		title += " - " + m.title
	}
	mode := chats.ModePaged
	if m.result != nil {
		mode = m.result.Mode()
	}
	title += fmt.Sprintf("  [%s · %s]", m.sort, mode)

	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("63"))
	return style.Render(title)
}

func (m model) renderSearch() string {
	if m.searching {
		return m.search.View()
	}
	if m.query != "" {
		return detailStyle.Render("search: " + m.query + "  (esc to clear)")
	}
	return ""
}

func (m model) renderStatus() string {
	if m.indicator.Active() {
		return m.indicator.View()
	}
	if m.result == nil {
		return ""
	}
	return detailStyle.Render(fmt.Sprintf("%d of %d chats", len(m.result.ToRender), len(m.result.SortedItems)))
}

func (m model) renderFooter() string {
	info := "↑/↓: navigate • enter: select • /: search • s: sort • m: more • a: all • r: refresh • q: quit"
	if m.searching {
		info = "enter: search • esc: cancel"
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(info)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

// Run shows the chat list and returns the chosen chat, nil when the user
// quit without choosing.
func Run(ctx context.Context, opts Options) (*models.ChatRecord, error) {
	m := newModel(ctx, opts)
	defer m.pager.Teardown()
	if opts.Bus != nil {
		defer opts.Bus.Unsubscribe("tui")
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return nil, err
	}
	return finalModel.(model).selected, nil
}
