package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/goaltrack/internal/estimator"
	"github.com/sadopc/goaltrack/internal/identity"
	"github.com/sadopc/goaltrack/internal/store"
)

// taskPrefs pairs a task with its saved suggestion preferences.
type taskPrefs struct {
	name  string
	prefs estimator.Prefs
}

type settingsModel struct {
	store    *store.Store
	identity *identity.Service
	width    int
	height   int

	tasks  []taskPrefs
	cursor int

	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	bias   *int
	sample *int
}

func newSettingsModel(s *store.Store, id *identity.Service) settingsModel {
	bias, sample := 0, 0
	return settingsModel{
		store:    s,
		identity: id,
		bias:     &bias,
		sample:   &sample,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	tasks []taskPrefs
}

func (s settingsModel) refresh() tea.Cmd {
	st, id := s.store, s.identity
	return func() tea.Msg {
		user := id.CurrentUser()
		if user == nil {
			return settingsDataMsg{}
		}
		ctx := context.Background()
		tasks, err := st.ListTasks(ctx, user.ID)
		if err != nil {
			return errStatus(err)
		}
		out := make([]taskPrefs, 0, len(tasks))
		for _, t := range tasks {
			p, err := estimator.LoadPrefs(ctx, st, user.ID, t.Name)
			if err != nil {
				return errStatus(err)
			}
			out = append(out, taskPrefs{name: t.Name, prefs: p})
		}
		return settingsDataMsg{tasks: out}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(settingsDataMsg); ok {
		s.tasks = msg.tasks
		if s.cursor >= len(s.tasks) {
			s.cursor = max(0, len(s.tasks)-1)
		}
		return s, nil
	}

	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, keys.Up):
			if s.cursor > 0 {
				s.cursor--
			}
		case key.Matches(msg, keys.Down):
			if s.cursor < len(s.tasks)-1 {
				s.cursor++
			}
		case key.Matches(msg, keys.Enter):
			if len(s.tasks) > 0 {
				return s.showForm()
			}
		}
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	tp := s.tasks[s.cursor]
	*s.bias = tp.prefs.SpeedBiasPercent
	*s.sample = tp.prefs.SampleSize

	biasOptions := make([]huh.Option[int], len(estimator.BiasOptions))
	for i, b := range estimator.BiasOptions {
		biasOptions[i] = huh.NewOption(formatBias(b), b)
	}
	sampleOptions := make([]huh.Option[int], len(estimator.SampleOptions))
	for i, n := range estimator.SampleOptions {
		sampleOptions[i] = huh.NewOption(formatSample(n), n)
	}

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().Title("Speed bias").
				Description("Negative asks for a faster pace than your history").
				Options(biasOptions...).Value(s.bias),
			huh.NewSelect[int]().Title("Runs to average").
				Options(sampleOptions...).Value(s.sample),
		).Title("Suggestions for " + tp.name),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		s.form = nil
		return s, s.savePrefs()
	}

	return s, cmd
}

// savePrefs stores the form values for the selected task and reloads the
// list.
func (s settingsModel) savePrefs() tea.Cmd {
	if s.cursor >= len(s.tasks) {
		return nil
	}
	name := s.tasks[s.cursor].name
	p := estimator.Prefs{SpeedBiasPercent: *s.bias, SampleSize: *s.sample}
	st, id := s.store, s.identity
	reload := s.refresh()
	return func() tea.Msg {
		user := id.CurrentUser()
		if user == nil {
			return nil
		}
		if err := estimator.SavePrefs(context.Background(), st, user.ID, name, p); err != nil {
			return errStatus(err)
		}
		return reload()
	}
}

func (s settingsModel) view() string {
	w := s.width - 4
	title := titleStyle.Render("Settings")

	if s.formActive && s.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	rows := []string{title, ""}
	if user := s.identity.CurrentUser(); user != nil {
		rows = append(rows, fmt.Sprintf("  %s %s", lipgloss.NewStyle().Width(24).Render("Signed in as"), highlightStyle.Render(user.Email)), "")
	}

	if len(s.tasks) == 0 {
		rows = append(rows, mutedStyle.Render("  Suggestion settings appear once you have a task."))
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	rows = append(rows, subtitleStyle.Render("  Suggestions"))
	for i, tp := range s.tasks {
		cursor := "  "
		style := normalItemStyle
		if i == s.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		label := style.Width(26).Render(cursor + tp.name)
		value := highlightStyle.Render(fmt.Sprintf("bias %s, %s", formatBias(tp.prefs.SpeedBiasPercent), formatSample(tp.prefs.SampleSize)))
		rows = append(rows, label+" "+value)
	}

	rows = append(rows, "", mutedStyle.Render("  enter: edit  L: sign out"))
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func formatBias(b int) string {
	if b == 0 {
		return "none"
	}
	return fmt.Sprintf("%+d%%", b)
}

func formatSample(n int) string {
	if n <= 0 {
		return "all runs"
	}
	return fmt.Sprintf("last %d runs", n)
}
