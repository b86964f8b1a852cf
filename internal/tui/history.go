package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/goaltrack/internal/identity"
	"github.com/sadopc/goaltrack/internal/pacing"
	"github.com/sadopc/goaltrack/internal/store"
)

type historyLevel int

const (
	levelTasks historyLevel = iota
	levelRecords
	levelSnapshots
)

type historyModel struct {
	store    *store.Store
	identity *identity.Service
	width    int
	height   int

	level        historyLevel
	tasks        []store.Task
	records      []store.RecordSummary
	snapshots    []store.TaskSnapshot
	cursor       int
	recordCursor int

	formActive bool
	form       *huh.Form
	confirm    *bool
}

func newHistoryModel(s *store.Store, id *identity.Service) historyModel {
	confirm := false
	return historyModel{
		store:    s,
		identity: id,
		confirm:  &confirm,
	}
}

func (h *historyModel) setSize(w, hgt int) {
	h.width = w
	h.height = hgt
}

type tasksDataMsg struct {
	tasks []store.Task
}

type recordsDataMsg struct {
	records []store.RecordSummary
}

type snapshotsDataMsg struct {
	snapshots []store.TaskSnapshot
}

func (h historyModel) refresh() tea.Cmd {
	s, id := h.store, h.identity
	return func() tea.Msg {
		user := id.CurrentUser()
		if user == nil {
			return tasksDataMsg{}
		}
		tasks, err := s.ListTasks(context.Background(), user.ID)
		if err != nil {
			return errStatus(err)
		}
		return tasksDataMsg{tasks: tasks}
	}
}

func (h historyModel) refreshRecords() tea.Cmd {
	if h.cursor >= len(h.tasks) {
		return nil
	}
	s, id := h.store, h.identity
	name := h.tasks[h.cursor].Name
	return func() tea.Msg {
		user := id.CurrentUser()
		if user == nil {
			return recordsDataMsg{}
		}
		recs, err := s.ListRecordsWithSnapshots(context.Background(), store.RecordFilter{UserID: user.ID, TaskName: name})
		if err != nil {
			return errStatus(err)
		}
		return recordsDataMsg{records: recs}
	}
}

func (h historyModel) refreshSnapshots() tea.Cmd {
	if h.recordCursor >= len(h.records) {
		return nil
	}
	s := h.store
	id := h.records[h.recordCursor].ID
	return func() tea.Msg {
		snaps, err := s.ListSnapshots(context.Background(), id)
		if err != nil {
			return errStatus(err)
		}
		return snapshotsDataMsg{snapshots: snaps}
	}
}

func (h historyModel) update(msg tea.Msg) (historyModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tasksDataMsg:
		h.tasks = msg.tasks
		if h.cursor >= len(h.tasks) {
			h.cursor = max(0, len(h.tasks)-1)
		}
		return h, nil

	case recordsDataMsg:
		h.records = msg.records
		if h.recordCursor >= len(h.records) {
			h.recordCursor = max(0, len(h.records)-1)
		}
		return h, nil

	case snapshotsDataMsg:
		h.snapshots = msg.snapshots
		return h, nil
	}

	if h.formActive && h.form != nil {
		return h.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch h.level {
		case levelTasks:
			return h.updateTaskList(msg)
		case levelRecords:
			return h.updateRecordList(msg)
		case levelSnapshots:
			if key.Matches(msg, keys.Back) {
				h.level = levelRecords
			}
		}
	}
	return h, nil
}

func (h historyModel) updateTaskList(msg tea.KeyMsg) (historyModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if h.cursor > 0 {
			h.cursor--
		}
	case key.Matches(msg, keys.Down):
		if h.cursor < len(h.tasks)-1 {
			h.cursor++
		}
	case key.Matches(msg, keys.Enter):
		if len(h.tasks) > 0 {
			h.level = levelRecords
			h.recordCursor = 0
			h.records = nil
			return h, h.refreshRecords()
		}
	case key.Matches(msg, keys.Delete):
		if len(h.tasks) > 0 {
			return h.showConfirm(fmt.Sprintf("Delete %q and all its records?", h.tasks[h.cursor].Name))
		}
	}
	return h, nil
}

func (h historyModel) updateRecordList(msg tea.KeyMsg) (historyModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back):
		h.level = levelTasks
		return h, h.refresh()
	case key.Matches(msg, keys.Up):
		if h.recordCursor > 0 {
			h.recordCursor--
		}
	case key.Matches(msg, keys.Down):
		if h.recordCursor < len(h.records)-1 {
			h.recordCursor++
		}
	case key.Matches(msg, keys.Enter):
		if len(h.records) > 0 {
			h.level = levelSnapshots
			h.snapshots = nil
			return h, h.refreshSnapshots()
		}
	case key.Matches(msg, keys.Delete):
		if len(h.records) > 0 {
			r := h.records[h.recordCursor]
			return h.showConfirm(fmt.Sprintf("Delete the run from %s?", r.CreatedAt.Local().Format("Jan 02 15:04")))
		}
	}
	return h, nil
}

func (h historyModel) showConfirm(title string) (historyModel, tea.Cmd) {
	*h.confirm = false
	h.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().Title(title).Affirmative("Delete").Negative("Keep").Value(h.confirm),
		),
	).WithShowHelp(true)

	h.formActive = true
	return h, h.form.Init()
}

func (h historyModel) updateForm(msg tea.Msg) (historyModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			h.formActive = false
			h.form = nil
			return h, nil
		}
	}

	form, cmd := h.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		h.form = f
	}

	if h.form.State == huh.StateCompleted {
		h.formActive = false
		h.form = nil
		if !*h.confirm {
			return h, nil
		}
		return h, h.deleteSelected()
	}
	return h, cmd
}

// deleteSelected removes the selected task or run and reloads the list it
// came from.
func (h historyModel) deleteSelected() tea.Cmd {
	s, id := h.store, h.identity
	ctx := context.Background()

	switch h.level {
	case levelTasks:
		if h.cursor >= len(h.tasks) {
			return nil
		}
		name := h.tasks[h.cursor].Name
		reload := h.refresh()
		return func() tea.Msg {
			user := id.CurrentUser()
			if user == nil {
				return nil
			}
			if err := s.DeleteTask(ctx, user.ID, name); err != nil {
				return errStatus(err)
			}
			return reload()
		}

	case levelRecords:
		if h.recordCursor >= len(h.records) {
			return nil
		}
		recordID := h.records[h.recordCursor].ID
		reload := h.refreshRecords()
		return func() tea.Msg {
			if err := s.DeleteRecord(ctx, recordID); err != nil {
				return errStatus(err)
			}
			return reload()
		}
	}
	return nil
}

func (h historyModel) view() string {
	w := h.width - 4
	if h.formActive && h.form != nil {
		return activePanelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Confirm"), "", h.form.View()),
		)
	}

	switch h.level {
	case levelRecords:
		return h.renderRecords(w)
	case levelSnapshots:
		return h.renderSnapshots(w)
	}
	return h.renderTasks(w)
}

func (h historyModel) renderTasks(w int) string {
	title := titleStyle.Render("History")
	if len(h.tasks) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, "", mutedStyle.Render("No tasks yet. Set a goal on the Tracker tab."),
		))
	}

	rows := []string{title, ""}
	for i, t := range h.tasks {
		cursor := "  "
		style := normalItemStyle
		if i == h.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s%-28s", cursor, t.Name))+
			mutedStyle.Render(t.CreatedAt.Local().Format("  Jan 02, 2006")))
	}
	rows = append(rows, "", mutedStyle.Render("  enter: runs  d: delete"))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (h historyModel) renderRecords(w int) string {
	name := ""
	if h.cursor < len(h.tasks) {
		name = h.tasks[h.cursor].Name
	}
	title := titleStyle.Render(name + " · runs")
	if len(h.records) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, "", mutedStyle.Render("No runs recorded."),
		))
	}

	rows := []string{title, ""}
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-18s %10s %10s %10s", "Started", "Done", "Budget", "Avg")))
	for i, r := range h.records {
		cursor := "  "
		style := normalItemStyle
		if i == h.recordCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s%-18s %10s %10s %10s",
			cursor,
			r.CreatedAt.Local().Format("Jan 02 15:04"),
			fmt.Sprintf("%d/%d %s", r.CompletedCount, r.TotalUnits, r.UnitLabel),
			formatSeconds(r.TotalBudgetSeconds),
			formatAllowance(r.AverageUnitSeconds()),
		)))
	}
	rows = append(rows, "", mutedStyle.Render("  enter: units  d: delete  esc: back"))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (h historyModel) renderSnapshots(w int) string {
	title := titleStyle.Render("Units")
	if len(h.snapshots) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, "", mutedStyle.Render("No units in this run."),
		))
	}
	var plan pacing.Plan
	if h.recordCursor < len(h.records) {
		r := h.records[h.recordCursor]
		plan = pacing.Plan{TotalUnits: r.TotalUnits, BudgetSeconds: r.TotalBudgetSeconds}
	}
	perUnit := plan.PerUnitAllowance()

	rows := []string{title, ""}
	for _, s := range h.snapshots {
		g := pacing.GradeUnit(perUnit, s.Sequence, s.UnitSeconds, s.CumulativeSeconds)
		rows = append(rows, fmt.Sprintf("  #%-4d %s  %s",
			s.Sequence,
			paceStyle(g.UnitOver).Render(formatSeconds(s.UnitSeconds)),
			paceStyle(g.CumulativeOver).Render(formatSeconds(s.CumulativeSeconds)),
		))
	}
	rows = append(rows, "", mutedStyle.Render("  esc: back"))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
