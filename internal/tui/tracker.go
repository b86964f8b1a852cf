package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/goaltrack/internal/domain"
	"github.com/sadopc/goaltrack/internal/estimator"
	"github.com/sadopc/goaltrack/internal/identity"
	"github.com/sadopc/goaltrack/internal/store"
	"github.com/sadopc/goaltrack/internal/tracker"
)

type trackerForm int

const (
	formNone trackerForm = iota
	formGoal
	formPace
	formBudget
)

// nudgePercent is how much faster the "push" pace preset is.
const nudgePercent = -10

const defaultBudget = "25m"

// pendingGoal carries the goal form's answers into the pace form.
type pendingGoal struct {
	task  string
	units int
	label string
	// suggested is nil without history.
	suggested *estimator.Suggestion
	last      *estimator.Suggestion
}

type trackerModel struct {
	session  *tracker.Session
	est      *estimator.Estimator
	store    *store.Store
	identity *identity.Service
	width    int
	height   int

	status  tracker.Status
	pending pendingGoal

	formActive bool
	form       *huh.Form
	formKind   trackerForm

	// Form field pointers (survive value copies)
	formTask   *string
	formUnits  *string
	formLabel  *string
	formBudget *string
	formPace   *int64
}

func newTrackerModel(s *tracker.Session, est *estimator.Estimator, st *store.Store, id *identity.Service) trackerModel {
	task, units, label, budget := "", "", "", ""
	var pace int64
	return trackerModel{
		session:    s,
		est:        est,
		store:      st,
		identity:   id,
		status:     s.Status(),
		formTask:   &task,
		formUnits:  &units,
		formLabel:  &label,
		formBudget: &budget,
		formPace:   &pace,
	}
}

func (t *trackerModel) setSize(w, h int) {
	t.width = w
	t.height = h
}

type suggestionMsg struct {
	goal pendingGoal
	err  error
}

type configuredMsg struct {
	err error
}

type unitMsg struct {
	outcome tracker.Outcome
	err     error
}

// refresh re-reads the session. It is cheap enough to run on every repaint.
func (t *trackerModel) refresh() {
	t.status = t.session.Status()
}

func (t trackerModel) update(msg tea.Msg) (trackerModel, tea.Cmd) {
	switch msg := msg.(type) {
	case repaintMsg, tickMsg:
		t.refresh()
		return t, nil

	case suggestionMsg:
		if msg.err != nil {
			// Without history the pace form offers a manual budget only.
			msg.goal.suggested, msg.goal.last = nil, nil
		}
		t.pending = msg.goal
		return t.showPaceForm()

	case configuredMsg:
		t.refresh()
		if msg.err != nil {
			return t, func() tea.Msg { return errStatus(msg.err) }
		}
		return t, func() tea.Msg {
			return statusMsg{text: fmt.Sprintf("Goal set: %d %s of %s", t.status.TotalUnits, t.status.UnitLabel, t.status.TaskName)}
		}

	case unitMsg:
		t.refresh()
		if msg.err != nil {
			return t, func() tea.Msg { return errStatus(msg.err) }
		}
		if msg.outcome.Snapshot != nil && !msg.outcome.Completed {
			snap := msg.outcome.Snapshot
			return t, func() tea.Msg {
				return statusMsg{text: fmt.Sprintf("Recorded %s #%d in %s", t.status.UnitLabel, snap.Sequence, formatSeconds(snap.UnitSeconds))}
			}
		}
		return t, nil
	}

	if t.formActive && t.form != nil {
		return t.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		return t.updateKeys(msg)
	}
	return t, nil
}

func (t trackerModel) updateKeys(msg tea.KeyMsg) (trackerModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.New):
		return t.showGoalForm()

	case key.Matches(msg, keys.Start):
		err := t.session.Start()
		t.refresh()
		return t, statusCmd(err)

	case key.Matches(msg, keys.Pause):
		err := t.session.Toggle()
		t.refresh()
		return t, statusCmd(err)

	case key.Matches(msg, keys.Record):
		s := t.session
		return t, func() tea.Msg {
			out, err := s.RecordUnit(context.Background())
			return unitMsg{outcome: out, err: err}
		}

	case key.Matches(msg, keys.Reset):
		t.session.Reset()
		t.refresh()
		return t, func() tea.Msg { return statusMsg{text: "Session reset"} }

	case key.Matches(msg, keys.UnitsUp), key.Matches(msg, keys.UnitsDown):
		if !t.status.State.Configured() {
			return t, nil
		}
		n := t.status.TotalUnits + 1
		if key.Matches(msg, keys.UnitsDown) {
			n = t.status.TotalUnits - 1
		}
		s := t.session
		return t, func() tea.Msg {
			if err := s.ChangeTotalUnits(context.Background(), n); err != nil {
				return errStatus(err)
			}
			return statusMsg{text: fmt.Sprintf("Goal is now %d units", n)}
		}

	case key.Matches(msg, keys.EditBudget):
		if err := t.session.BeginBudgetEdit(); err != nil {
			return t, statusCmd(err)
		}
		t.refresh()
		return t.showBudgetForm()
	}
	return t, nil
}

func statusCmd(err error) tea.Cmd {
	if err == nil {
		return nil
	}
	return func() tea.Msg { return errStatus(err) }
}

func (t trackerModel) showGoalForm() (trackerModel, tea.Cmd) {
	if t.status.State == tracker.Running || t.status.State == tracker.Paused {
		return t, func() tea.Msg {
			return statusMsg{text: "Reset the current run (x) before setting a new goal", isError: true}
		}
	}
	*t.formTask = t.status.TaskName
	*t.formUnits = ""
	*t.formLabel = t.status.UnitLabel
	t.formKind = formGoal

	t.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Task").Value(t.formTask).Validate(validateRequired),
			huh.NewInput().Title("Units").Placeholder("10").Value(t.formUnits).Validate(validateUnits),
			huh.NewInput().Title("Unit label").Placeholder(store.DefaultUnitLabel).Value(t.formLabel),
		).Title("New goal"),
	).WithShowHelp(true).WithShowErrors(true)

	t.formActive = true
	return t, t.form.Init()
}

func (t trackerModel) showPaceForm() (trackerModel, tea.Cmd) {
	g := t.pending
	var options []huh.Option[int64]
	if g.suggested != nil {
		per := g.suggested.PerUnitSeconds
		options = append(options, huh.NewOption(
			fmt.Sprintf("Suggested  %s per %s (%d runs, bias %+d%%)", formatAllowance(float64(per)), g.label, g.suggested.RecordsUsed, g.suggested.SpeedBiasPercent), per))
		if g.last != nil {
			blended := estimator.Blend(g.last.PerUnitSeconds, per)
			options = append(options, huh.NewOption(
				fmt.Sprintf("Blend with last run  %s", formatAllowance(float64(blended))), blended))
		}
		pushed := estimator.Nudge(per, nudgePercent)
		options = append(options, huh.NewOption(
			fmt.Sprintf("Push %d%% faster  %s", -nudgePercent, formatAllowance(float64(pushed))), pushed))
		*t.formPace = per
		*t.formBudget = budgetString(g.suggested.TotalSeconds(g.units))
	} else {
		*t.formPace = 0
		*t.formBudget = defaultBudget
	}
	options = append(options, huh.NewOption("Custom budget", int64(0)))
	t.formKind = formPace

	t.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int64]().Title("Pace").Options(options...).Value(t.formPace),
			huh.NewInput().Title("Total budget (custom)").
				Description("e.g. 25m, 1h30m or minutes").
				Value(t.formBudget).Validate(validateBudget),
		).Title(fmt.Sprintf("%d %s of %s", g.units, g.label, g.task)),
	).WithShowHelp(true).WithShowErrors(true)

	t.formActive = true
	return t, t.form.Init()
}

func (t trackerModel) showBudgetForm() (trackerModel, tea.Cmd) {
	*t.formBudget = budgetString(t.status.BudgetSeconds)
	t.formKind = formBudget

	t.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Total budget").
				Description("e.g. 25m, 1h30m or minutes").
				Value(t.formBudget).Validate(validateBudget),
		).Title("Edit budget"),
	).WithShowHelp(true).WithShowErrors(true)

	t.formActive = true
	return t, t.form.Init()
}

func (t trackerModel) closeForm() trackerModel {
	t.formActive = false
	t.form = nil
	t.formKind = formNone
	return t
}

func (t trackerModel) updateForm(msg tea.Msg) (trackerModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			if t.formKind == formBudget {
				t.session.CancelBudgetEdit()
			}
			t = t.closeForm()
			t.refresh()
			return t, nil
		}
	}

	form, cmd := t.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		t.form = f
	}

	if t.form.State != huh.StateCompleted {
		return t, cmd
	}

	kind := t.formKind
	t = t.closeForm()
	switch kind {
	case formGoal:
		return t, t.loadSuggestion()
	case formPace:
		return t, t.configure()
	case formBudget:
		secs, err := parseBudget(*t.formBudget)
		if err == nil {
			err = t.session.CommitBudgetEdit(secs)
		}
		t.refresh()
		return t, statusCmd(err)
	}
	return t, nil
}

// loadSuggestion reads the saved preferences for the task and estimates a
// pace from history, plus the most recent run on its own for blending.
func (t trackerModel) loadSuggestion() tea.Cmd {
	units, _ := strconv.Atoi(strings.TrimSpace(*t.formUnits))
	label := strings.TrimSpace(*t.formLabel)
	if label == "" {
		label = store.DefaultUnitLabel
	}
	g := pendingGoal{task: strings.TrimSpace(*t.formTask), units: units, label: label}
	est, st, id := t.est, t.store, t.identity

	return func() tea.Msg {
		user := id.CurrentUser()
		if user == nil {
			return suggestionMsg{goal: g, err: domain.ErrNotSignedIn}
		}
		ctx := context.Background()
		prefs, err := estimator.LoadPrefs(ctx, st, user.ID, g.task)
		if err != nil {
			return suggestionMsg{goal: g, err: err}
		}
		g.suggested, err = est.Estimate(ctx, user.ID, g.task, prefs.Options())
		if err != nil {
			return suggestionMsg{goal: g, err: err}
		}
		one := 1
		g.last, err = est.Estimate(ctx, user.ID, g.task, estimator.Options{SampleSize: &one})
		return suggestionMsg{goal: g, err: err}
	}
}

func (t trackerModel) configure() tea.Cmd {
	g := t.pending
	var goal tracker.Goal
	if pace := *t.formPace; pace > 0 && g.suggested != nil {
		s := *g.suggested
		s.PerUnitSeconds = pace
		goal = tracker.GoalFromSuggestion(g.task, g.units, g.label, &s, 0)
	} else {
		secs, err := parseBudget(*t.formBudget)
		if err != nil {
			return statusCmd(err)
		}
		goal = tracker.GoalFromSuggestion(g.task, g.units, g.label, nil, secs)
	}
	s := t.session
	return func() tea.Msg {
		return configuredMsg{err: s.Configure(context.Background(), goal)}
	}
}

func (t trackerModel) view() string {
	if t.width < 20 {
		return "Terminal too small"
	}
	w := t.width - 4

	if t.formActive && t.form != nil {
		title := titleStyle.Render("Tracker")
		return activePanelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", t.form.View()),
		)
	}

	st := t.status
	if !st.State.Configured() {
		content := lipgloss.JoinVertical(lipgloss.Center,
			timerStyle.Width(w-6).Render(formatClock(0, 0)),
			mutedStyle.Render("■  NO GOAL"),
			mutedStyle.Render("Press n to set a goal"),
		)
		return panelStyle.Width(w).Render(content)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		t.renderClockPanel(w),
		t.renderTargetPanel(w),
		t.renderSnapshotPanel(w),
	)
}

func (t trackerModel) renderClockPanel(w int) string {
	st := t.status
	p := st.Pacing

	clockStyle := timerStyle
	var indicator string
	switch st.State {
	case tracker.Running:
		clockStyle = timerRunningStyle
		indicator = successStyle.Render("●  RUNNING")
	case tracker.Paused:
		clockStyle = timerPausedStyle
		indicator = warningStyle.Render("⏸  PAUSED")
	case tracker.Completed:
		indicator = successStyle.Render("✓  GOAL REACHED")
	default:
		indicator = mutedStyle.Render("■  READY  press s to start")
	}
	if st.EditingBudget {
		indicator = warningStyle.Render("✎  EDITING BUDGET")
	}

	totalStyle, unitStyle := clockStyle, clockStyle
	if p.OverTotal {
		totalStyle = timerOverStyle
	}
	if p.OverUnit {
		unitStyle = timerOverStyle
	}

	half := (w - 6) / 2
	clocks := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.JoinVertical(lipgloss.Center,
			totalStyle.Width(half).Render(formatClock(st.ElapsedSeconds, st.ElapsedTicks)),
			mutedStyle.Width(half).Align(lipgloss.Center).Render("total"),
		),
		lipgloss.JoinVertical(lipgloss.Center,
			unitStyle.Width(half).Render(formatClock(st.UnitSeconds, st.UnitTicks)),
			mutedStyle.Width(half).Align(lipgloss.Center).Render("this "+st.UnitLabel),
		),
	)

	progress := highlightStyle.Render(st.TaskName) +
		mutedStyle.Render(fmt.Sprintf("  %d / %d %s", st.Completed, st.TotalUnits, st.UnitLabel))

	style := activePanelStyle
	if p.OverTotal {
		style = overPanelStyle
	}
	return style.Width(w).Render(lipgloss.JoinVertical(lipgloss.Center, clocks, indicator, progress))
}

func (t trackerModel) renderTargetPanel(w int) string {
	st := t.status
	p := st.Pacing

	remaining := formatSeconds(p.RemainingSeconds)
	if p.RemainingSeconds < 0 {
		remaining = "-" + formatSeconds(-p.RemainingSeconds)
	}

	rows := []string{
		titleStyle.Render("Pace"),
		fmt.Sprintf("  %-20s %s   %s",
			"Budget", formatSeconds(st.BudgetSeconds),
			paceStyle(p.RemainingSeconds < 0).Render(remaining+" left")),
		fmt.Sprintf("  %-20s %s",
			"Per "+st.UnitLabel, paceStyle(p.OverUnit).Render(formatAllowance(p.PerUnitAllowance))),
		fmt.Sprintf("  %-20s %s",
			"Target so far", paceStyle(p.OverTotal).Render(formatAllowance(p.CumulativeTarget))),
		fmt.Sprintf("  %-20s %d",
			"Remaining "+st.UnitLabel, p.RemainingUnits),
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (t trackerModel) renderSnapshotPanel(w int) string {
	st := t.status
	title := titleStyle.Render("Units")
	if len(st.Snapshots) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title,
			mutedStyle.Render("Press r after each "+st.UnitLabel),
		))
	}

	limit := len(st.Snapshots)
	if t.height > 0 {
		limit = min(limit, max(3, t.height-22))
	}

	rows := []string{title}
	for _, s := range st.Snapshots[:limit] {
		rows = append(rows, fmt.Sprintf("  #%-4d %s  %s  %s",
			s.Sequence,
			paceStyle(s.UnitOver).Render(formatSeconds(s.UnitSeconds)),
			paceStyle(s.CumulativeOver).Render(formatSeconds(s.CumulativeSeconds)),
			mutedStyle.Render(s.RecordedAt.Local().Format("15:04:05")),
		))
	}
	if limit < len(st.Snapshots) {
		rows = append(rows, mutedStyle.Render(fmt.Sprintf("  … %d more", len(st.Snapshots)-limit)))
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
