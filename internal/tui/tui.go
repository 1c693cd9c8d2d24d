// Package tui provides a terminal user interface for browsing and
// editing records. All gateway callbacks are marshaled into the
// bubbletea update loop through the model's delivery queue, so the
// Dataset is only ever touched from the UI loop.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"staffdesk/backend"
	"staffdesk/internal/dataset"
	"staffdesk/internal/gateway"
	"staffdesk/internal/search"
)

// Focus indicates which pane has focus
type Focus int

const (
	FocusEntities Focus = iota
	FocusRecords
)

// Mode indicates the current input mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeSearch
	ModeHelp
	ModeConfirmDelete
)

// callbackMsg carries a gateway callback into the update loop.
type callbackMsg struct {
	fn func()
}

// Model represents the TUI state
type Model struct {
	gw    *gateway.Gateway
	queue chan func()

	// Data
	entities  []backend.Entity
	datasets  map[backend.Entity]*dataset.Dataset
	stats     backend.Statistics
	haveStats bool

	// Selection
	entityCursor int
	recordCursor int
	focus        Focus

	// Mode and input
	mode      Mode
	textInput textinput.Model
	quick     string

	// Status
	connected bool
	loading   bool
	lastErr   error

	// UI dimensions
	width  int
	height int

	// Styles
	entityPaneStyle lipgloss.Style
	recordPaneStyle lipgloss.Style
	selectedStyle   lipgloss.Style
	dimStyle        lipgloss.Style
	helpStyle       lipgloss.Style
	dialogStyle     lipgloss.Style
	statusBarStyle  lipgloss.Style
	errorStyle      lipgloss.Style
}

// New creates a new TUI model. Wire the dispatcher's deliver function
// to Deliver, then attach the gateway with SetGateway before running.
func New(pageSize int) *Model {
	ti := textinput.New()
	ti.Placeholder = "Search..."
	ti.CharLimit = 256

	datasets := make(map[backend.Entity]*dataset.Dataset, len(backend.Entities))
	for _, e := range backend.Entities {
		datasets[e] = dataset.New(e, pageSize)
	}

	return &Model{
		queue:     make(chan func(), 64),
		entities:  backend.Entities,
		datasets:  datasets,
		textInput: ti,
		focus:     FocusEntities,
		mode:      ModeNormal,
		connected: true,
		entityPaneStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		recordPaneStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		selectedStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		dimStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),
		helpStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		dialogStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2),
		statusBarStyle: lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1),
		errorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")),
	}
}

// SetGateway attaches the gateway. Must be called before the program runs.
func (m *Model) SetGateway(gw *gateway.Gateway) {
	m.gw = gw
	gw.OnConnectionChange(func(connected bool) {
		m.queue <- func() { m.connected = connected }
	})
}

// Deliver enqueues a dispatcher callback for execution on the UI loop.
// Pass this to dispatch.New.
func (m *Model) Deliver(fn func()) {
	m.queue <- fn
}

// Init starts callback pumping and the initial loads.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.pumpCallbacks(), m.loadRecords(), m.loadStatistics())
}

// pumpCallbacks waits for the next queued gateway callback.
func (m *Model) pumpCallbacks() tea.Cmd {
	return func() tea.Msg {
		return callbackMsg{fn: <-m.queue}
	}
}

// current returns the dataset for the selected entity.
func (m *Model) current() *dataset.Dataset {
	return m.datasets[m.entities[m.entityCursor]]
}

// loadRecords fetches the selected entity's listing through the gateway.
// Cache hits deliver synchronously; misses arrive via the queue.
func (m *Model) loadRecords() tea.Cmd {
	entity := m.entities[m.entityCursor]
	ds := m.datasets[entity]

	m.loading = true
	m.gw.List(entity, nil, func(records []backend.Record) {
		m.loading = false
		m.lastErr = nil
		ds.Load(records)
		m.applyQuickSearch()
	}, func(err error) {
		m.loading = false
		m.lastErr = err
	})
	return nil
}

// loadStatistics fetches the aggregate counts for the status bar.
func (m *Model) loadStatistics() tea.Cmd {
	m.gw.Statistics(func(stats backend.Statistics) {
		m.stats = stats
		m.haveStats = true
	}, func(err error) {
		m.lastErr = err
	})
	return nil
}

// deleteSelected issues the delete for the record under the cursor.
func (m *Model) deleteSelected() tea.Cmd {
	visible := m.current().Visible()
	if m.recordCursor >= len(visible) {
		return nil
	}
	entity := m.entities[m.entityCursor]
	id := visible[m.recordCursor].ID()

	m.gw.Delete(entity, id, func() {
		m.lastErr = nil
		m.loadRecords()
	}, func(err error) {
		m.lastErr = err
	})
	return nil
}

// applyQuickSearch refreshes the dataset filter from the quick query.
func (m *Model) applyQuickSearch() {
	ds := m.current()
	if m.quick == "" {
		ds.ClearFilters()
	} else {
		ds.SetFilters([]search.Filter{{Field: search.QuickSearchField, Value: m.quick}})
	}
	if m.recordCursor >= len(ds.Visible()) {
		m.recordCursor = 0
	}
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case callbackMsg:
		msg.fn()
		if m.recordCursor >= len(m.current().Visible()) {
			m.recordCursor = 0
		}
		return m, m.pumpCallbacks()

	case tea.KeyMsg:
		switch m.mode {
		case ModeSearch:
			return m.handleSearchMode(msg)
		case ModeHelp:
			return m.handleHelpMode(msg)
		case ModeConfirmDelete:
			return m.handleConfirmDeleteMode(msg)
		}
		return m.handleNormalMode(msg)
	}

	if m.mode == ModeSearch {
		m.textInput, cmd = m.textInput.Update(msg)
	}
	return m, cmd
}

func (m *Model) handleNormalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "tab":
		if m.focus == FocusEntities {
			m.focus = FocusRecords
		} else {
			m.focus = FocusEntities
		}
		return m, nil

	case "up", "k":
		if m.focus == FocusEntities {
			if m.entityCursor > 0 {
				m.entityCursor--
				m.recordCursor = 0
				m.applyQuickSearch()
				return m, m.loadRecords()
			}
		} else if m.recordCursor > 0 {
			m.recordCursor--
		}
		return m, nil

	case "down", "j":
		if m.focus == FocusEntities {
			if m.entityCursor < len(m.entities)-1 {
				m.entityCursor++
				m.recordCursor = 0
				m.applyQuickSearch()
				return m, m.loadRecords()
			}
		} else if m.recordCursor < len(m.current().Visible())-1 {
			m.recordCursor++
		}
		return m, nil

	case "right", "l":
		if m.current().SetPage(m.current().Page() + 1) {
			m.recordCursor = 0
		}
		return m, nil

	case "left", "h":
		if m.current().SetPage(m.current().Page() - 1) {
			m.recordCursor = 0
		}
		return m, nil

	case "r":
		return m, tea.Batch(m.loadRecords(), m.loadStatistics())

	case "d":
		if len(m.current().Visible()) > 0 {
			m.mode = ModeConfirmDelete
		}
		return m, nil

	case "/":
		m.mode = ModeSearch
		m.textInput.Reset()
		m.textInput.SetValue(m.quick)
		m.textInput.Focus()
		return m, textinput.Blink

	case "?":
		m.mode = ModeHelp
		return m, nil
	}
	return m, nil
}

func (m *Model) handleSearchMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg.Type {
	case tea.KeyEnter:
		m.quick = m.textInput.Value()
		m.applyQuickSearch()
		m.mode = ModeNormal
		return m, nil

	case tea.KeyEsc:
		m.quick = ""
		m.applyQuickSearch()
		m.mode = ModeNormal
		return m, nil
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m *Model) handleHelpMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyEnter:
		m.mode = ModeNormal
		return m, nil
	}
	if msg.String() == "q" {
		m.mode = ModeNormal
	}
	return m, nil
}

func (m *Model) handleConfirmDeleteMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.mode = ModeNormal
		return m, m.deleteSelected()
	case "n", "N", "esc":
		m.mode = ModeNormal
		return m, nil
	}
	if msg.Type == tea.KeyEsc {
		m.mode = ModeNormal
	}
	return m, nil
}

// View renders the TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		m.width = 80
		m.height = 24
	}

	switch m.mode {
	case ModeSearch:
		return m.renderSearchDialog()
	case ModeHelp:
		return m.renderHelpDialog()
	case ModeConfirmDelete:
		return m.renderConfirmDeleteDialog()
	}

	entityWidth := m.width / 4
	recordWidth := m.width - entityWidth - 4

	entityPane := m.entityPaneStyle.Width(entityWidth).Height(m.height - 4).
		Render(m.renderEntityPane(entityWidth - 4))
	recordPane := m.recordPaneStyle.Width(recordWidth).Height(m.height - 4).
		Render(m.renderRecordPane(recordWidth - 4))

	var b strings.Builder
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, entityPane, recordPane))
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m *Model) renderEntityPane(width int) string {
	var b strings.Builder
	b.WriteString("Records\n")
	b.WriteString(strings.Repeat("─", max(width, 1)))
	b.WriteString("\n")

	for i, entity := range m.entities {
		cursor := " "
		name := string(entity)
		if i == m.entityCursor {
			cursor = ">"
			if m.focus == FocusEntities {
				name = m.selectedStyle.Render(name)
			}
		}
		b.WriteString(cursor + " " + name + "\n")
	}
	return b.String()
}

func (m *Model) renderRecordPane(width int) string {
	ds := m.current()
	entity := m.entities[m.entityCursor]

	var b strings.Builder
	title := fmt.Sprintf("%s — page %d/%d (%d records)",
		entity, ds.Page(), ds.PageCount(), ds.FilteredCount())
	if m.quick != "" {
		title += "  [search: " + m.quick + "]"
	}
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("─", max(width, 1)))
	b.WriteString("\n")

	if m.loading {
		b.WriteString(m.dimStyle.Render("Loading...") + "\n")
		return b.String()
	}

	visible := ds.Visible()
	if len(visible) == 0 {
		b.WriteString("No records\n")
		return b.String()
	}

	for i, record := range visible {
		cursor := " "
		line := recordLine(entity, record)
		if i == m.recordCursor && m.focus == FocusRecords {
			cursor = ">"
			line = m.selectedStyle.Render(line)
		}
		b.WriteString(cursor + " " + line + "\n")
	}
	return b.String()
}

// recordLine formats a record as a single row using the entity's
// quick-search fields.
func recordLine(entity backend.Entity, record backend.Record) string {
	var parts []string
	for _, field := range entity.QuickSearchFields() {
		if v := record.String(field); v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return record.ID()
	}
	return strings.Join(parts, "  ")
}

func (m *Model) renderStatusBar() string {
	left := "online"
	if !m.connected {
		left = "OFFLINE"
	}
	if m.haveStats {
		left += fmt.Sprintf("  people:%d depts:%d positions:%d employments:%d",
			m.stats.People, m.stats.Departments, m.stats.Positions, m.stats.Employments)
	}
	if m.lastErr != nil {
		left = m.errorStyle.Render(m.lastErr.Error())
	}

	right := "/:search  r:reload  d:delete  ?:help  q:quit"

	padding := m.width - lipgloss.Width(left) - len(right) - 2
	if padding < 1 {
		padding = 1
	}
	return m.statusBarStyle.Width(m.width).Render(left + strings.Repeat(" ", padding) + right)
}

func (m *Model) renderSearchDialog() string {
	dialog := m.dialogStyle.Render(
		"Quick Search\n\n" +
			m.textInput.View() + "\n\n" +
			m.helpStyle.Render("Enter: apply  Esc: clear"),
	)
	return m.centerDialog(dialog)
}

func (m *Model) renderHelpDialog() string {
	help := `Help - Key Bindings

Navigation:
  j/↓    Move down
  k/↑    Move up
  h/←    Previous page
  l/→    Next page
  Tab    Switch focus between entities/records

Actions:
  /      Quick search in current records
  r      Reload records and statistics
  d      Delete record (with confirm)

General:
  ?      Show this help
  q      Quit

Press any key to close`

	return m.centerDialog(m.dialogStyle.Render(help))
}

func (m *Model) renderConfirmDeleteDialog() string {
	label := "Delete selected record?"
	visible := m.current().Visible()
	if m.recordCursor < len(visible) {
		label = "Delete " + recordLine(m.entities[m.entityCursor], visible[m.recordCursor]) + "?"
	}
	dialog := m.dialogStyle.Render(
		label + "\n\n" +
			m.helpStyle.Render("y: yes  n: no"),
	)
	return m.centerDialog(dialog)
}

func (m *Model) centerDialog(dialog string) string {
	lines := strings.Split(dialog, "\n")
	topPad := (m.height - len(lines)) / 2
	leftPad := (m.width - lipgloss.Width(dialog)) / 2
	if topPad < 0 {
		topPad = 0
	}
	if leftPad < 0 {
		leftPad = 0
	}

	var b strings.Builder
	b.WriteString(strings.Repeat("\n", topPad))
	for _, line := range lines {
		b.WriteString(strings.Repeat(" ", leftPad))
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}
