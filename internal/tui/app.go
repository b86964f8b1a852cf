package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/sadopc/goaltrack/internal/estimator"
	"github.com/sadopc/goaltrack/internal/export"
	"github.com/sadopc/goaltrack/internal/identity"
	"github.com/sadopc/goaltrack/internal/store"
	"github.com/sadopc/goaltrack/internal/tracker"
)

// repaintInterval drives the centisecond display. Logic runs on the
// one-second tick.
const repaintInterval = 50 * time.Millisecond

// Options wires the app to its services.
type Options struct {
	Store     *store.Store
	Session   *tracker.Session
	Estimator *estimator.Estimator
	Identity  *identity.Service
	Notifier  *Notifier
	Logger    *zap.Logger
	// ExportDir defaults to the home directory.
	ExportDir string
}

// App is the root Bubble Tea model.
type App struct {
	store     *store.Store
	session   *tracker.Session
	identity  *identity.Service
	notifier  *Notifier
	log       *zap.Logger
	exportDir string

	events       <-chan identity.Event
	cancelEvents func()

	width  int
	height int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	signin   signinModel
	tracker  trackerModel
	stats    statsModel
	history  historyModel
	settings settingsModel

	help      help.Model
	status    string
	statusErr bool
}

func NewApp(opts Options) App {
	h := help.New()
	h.ShowAll = false

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Notifier == nil {
		opts.Notifier = NewNotifier()
	}
	if opts.ExportDir == "" {
		opts.ExportDir, _ = os.UserHomeDir()
	}
	events, cancel := opts.Identity.Subscribe()

	a := App{
		store:        opts.Store,
		session:      opts.Session,
		identity:     opts.Identity,
		notifier:     opts.Notifier,
		log:          opts.Logger,
		exportDir:    opts.ExportDir,
		events:       events,
		cancelEvents: cancel,
		activeView:   viewTracker,
		signin:       newSigninModel(opts.Identity),
		tracker:      newTrackerModel(opts.Session, opts.Estimator, opts.Store, opts.Identity),
		stats:        newStatsModel(opts.Estimator, opts.Identity),
		history:      newHistoryModel(opts.Store, opts.Identity),
		settings:     newSettingsModel(opts.Store, opts.Identity),
		help:         h,
	}
	if !a.signedIn() {
		a.signin, _ = a.signin.reset()
	}
	return a
}

// Close releases the identity subscription.
func (a App) Close() {
	if a.cancelEvents != nil {
		a.cancelEvents()
	}
}

func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tickCmd(),
		repaintCmd(),
		waitForNotify(a.notifier),
		waitForIdentity(a.events),
	}
	if a.signin.form != nil {
		cmds = append(cmds, a.signin.form.Init())
	}
	return tea.Batch(cmds...)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func repaintCmd() tea.Cmd {
	return tea.Tick(repaintInterval, func(t time.Time) tea.Msg {
		return repaintMsg(t)
	})
}

func waitForNotify(n *Notifier) tea.Cmd {
	return func() tea.Msg {
		return <-n.ch
	}
}

func waitForIdentity(events <-chan identity.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return nil
		}
		return identityMsg(e)
	}
}

func (a App) signedIn() bool {
	return a.identity.CurrentUser() != nil
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.signin.setSize(a.width, contentHeight)
		a.tracker.setSize(a.width, contentHeight)
		a.stats.setSize(a.width, contentHeight)
		a.history.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tickMsg:
		// CurrentUser notices an expired token and publishes Expired.
		a.identity.CurrentUser()
		a.tracker, cmd = a.tracker.update(msg)
		return a, tea.Batch(tickCmd(), cmd)

	case repaintMsg:
		a.tracker, cmd = a.tracker.update(msg)
		return a, tea.Batch(repaintCmd(), cmd)

	case notifyMsg:
		a.status = msg.title
		if msg.body != "" {
			a.status += ": " + msg.body
		}
		a.statusErr = false
		return a, waitForNotify(a.notifier)

	case identityMsg:
		return a.handleIdentity(identity.Event(msg))

	case signedInMsg:
		a.signin, cmd = a.signin.update(msg)
		a.status = "Signed in as " + msg.user.Email
		a.statusErr = false
		a.activeView = viewTracker
		return a, tea.Batch(cmd, a.refreshCurrentView())

	case signinFailedMsg:
		a.signin, cmd = a.signin.update(msg)
		return a, cmd

	case statusMsg:
		a.status = msg.text
		a.statusErr = msg.isError
		return a, nil

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.statusErr = false
		a.exportPicking = false
		return a, nil

	case suggestionMsg, configuredMsg, unitMsg:
		a.tracker, cmd = a.tracker.update(msg)
		return a, cmd

	case statsDataMsg:
		a.stats, cmd = a.stats.update(msg)
		return a, cmd

	case tasksDataMsg, recordsDataMsg, snapshotsDataMsg:
		a.history, cmd = a.history.update(msg)
		return a, cmd

	case settingsDataMsg:
		a.settings, cmd = a.settings.update(msg)
		return a, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if !a.signedIn() {
			a.signin, cmd = a.signin.update(msg)
			return a, cmd
		}

		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.SignOut):
			return a, a.signOut()
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewTracker
			return a, nil
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewStats
			return a, a.stats.refresh()
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewHistory
			return a, a.history.refresh()
		case key.Matches(msg, keys.Tab4):
			a.activeView = viewSettings
			return a, a.settings.refresh()
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % viewState(len(viewNames))
			return a, a.refreshCurrentView()
		}
	}

	if !a.signedIn() {
		a.signin, cmd = a.signin.update(msg)
		return a, cmd
	}
	return a.updateActiveView(msg)
}

func (a App) handleIdentity(e identity.Event) (tea.Model, tea.Cmd) {
	next := waitForIdentity(a.events)
	switch e.Kind {
	case identity.SignedOut, identity.Expired:
		a.session.Reset()
		a.tracker.refresh()
		a.status = "Signed out"
		if e.Kind == identity.Expired {
			a.status = "Session expired, please sign in again"
		}
		a.statusErr = e.Kind == identity.Expired
		var cmd tea.Cmd
		a.signin, cmd = a.signin.reset()
		return a, tea.Batch(next, cmd)
	}
	a.log.Debug("identity event", zap.Stringer("kind", e.Kind))
	return a, next
}

func (a App) signOut() tea.Cmd {
	id := a.identity
	return func() tea.Msg {
		if err := id.SignOut(context.Background()); err != nil {
			return errStatus(err)
		}
		return nil
	}
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewTracker:
		a.tracker, cmd = a.tracker.update(msg)
	case viewStats:
		a.stats, cmd = a.stats.update(msg)
	case viewHistory:
		a.history, cmd = a.history.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewTracker:
		return a.tracker.formActive
	case viewHistory:
		return a.history.formActive
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewStats:
		return a.stats.refresh()
	case viewHistory:
		return a.history.refresh()
	case viewSettings:
		return a.settings.refresh()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	if !a.signedIn() {
		content = a.signin.view()
	} else {
		switch a.activeView {
		case viewTracker:
			content = a.tracker.view()
		case viewStats:
			content = a.stats.view()
		case viewHistory:
			content = a.history.view()
		case viewSettings:
			content = a.settings.view()
		}
	}

	// Calculate available height for content
	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("goaltrack")
	if !a.signedIn() {
		return headerStyle.Render(title)
	}

	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}
	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		style := mutedStyle
		if a.statusErr {
			style = errorStyle
		}
		status = style.Render(" " + a.status)
	}

	// Clock indicator in footer
	timerInfo := ""
	st := a.tracker.status
	switch st.State {
	case tracker.Running:
		timerInfo = successStyle.Render(fmt.Sprintf(" ● %s %d/%d", formatSeconds(st.ElapsedSeconds), st.Completed, st.TotalUnits))
	case tracker.Paused:
		timerInfo = warningStyle.Render(fmt.Sprintf(" ⏸ %s %d/%d", formatSeconds(st.ElapsedSeconds), st.Completed, st.TotalUnits))
	}

	left := footerStyle.Render(helpView)
	right := timerInfo + status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export Format")
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, f := range export.Formats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+strings.ToUpper(f)))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(export.Formats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(export.Formats[a.exportCursor])
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func exportPath(dir, format string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("goaltrack-export-%s.%s", now.Format("2006-01-02"), format))
}

func (a App) doExport(format string) tea.Cmd {
	st, id, dir, log := a.store, a.identity, a.exportDir, a.log
	return func() tea.Msg {
		user := id.CurrentUser()
		if user == nil {
			return statusMsg{text: "Sign in to export", isError: true}
		}
		records, err := export.Collect(context.Background(), st, store.RecordFilter{UserID: user.ID})
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}

		path := exportPath(dir, format, time.Now())
		if err := export.Write(format, records, path); err != nil {
			log.Error("export", zap.String("format", format), zap.Error(err))
			return statusMsg{text: fmt.Sprintf("%s error: %v", strings.ToUpper(format), err), isError: true}
		}
		log.Info("export written", zap.String("path", path), zap.Int("records", len(records)))
		return exportDoneMsg{path: path}
	}
}
