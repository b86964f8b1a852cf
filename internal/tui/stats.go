package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/goaltrack/internal/estimator"
	"github.com/sadopc/goaltrack/internal/identity"
)

// maxBars caps the chart at the most recent records.
const maxBars = 12

type statsModel struct {
	est      *estimator.Estimator
	identity *identity.Service
	width    int
	height   int

	stats  []estimator.TaskStats
	cursor int // selected task
	err    error

	chart barchart.Model
}

func newStatsModel(est *estimator.Estimator, id *identity.Service) statsModel {
	return statsModel{
		est:      est,
		identity: id,
		chart:    barchart.New(60, 12),
	}
}

func (s *statsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type statsDataMsg struct {
	stats []estimator.TaskStats
	err   error
}

func (s statsModel) refresh() tea.Cmd {
	est, id := s.est, s.identity
	return func() tea.Msg {
		user := id.CurrentUser()
		if user == nil {
			return statsDataMsg{}
		}
		stats, err := est.Stats(context.Background(), user.ID)
		return statsDataMsg{stats: stats, err: err}
	}
}

func (s statsModel) update(msg tea.Msg) (statsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case statsDataMsg:
		s.stats = msg.stats
		s.err = msg.err
		if s.cursor >= len(s.stats) {
			s.cursor = max(0, len(s.stats)-1)
		}
		s.buildChart()
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left), key.Matches(msg, keys.Up):
			if s.cursor > 0 {
				s.cursor--
				s.buildChart()
			}
		case key.Matches(msg, keys.Right), key.Matches(msg, keys.Down):
			if s.cursor < len(s.stats)-1 {
				s.cursor++
				s.buildChart()
			}
		}
	}
	return s, nil
}

func (s statsModel) selected() *estimator.TaskStats {
	if s.cursor < 0 || s.cursor >= len(s.stats) {
		return nil
	}
	return &s.stats[s.cursor]
}

// buildChart draws one bar per record of the selected task, oldest on the
// left. Bars above the task average are highlighted.
func (s *statsModel) buildChart() {
	chartWidth := s.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 10
	if s.height > 30 {
		chartHeight = 14
	}
	s.chart = barchart.New(chartWidth, chartHeight)

	ts := s.selected()
	if ts == nil {
		return
	}

	per := ts.PerRecord
	if len(per) > maxBars {
		per = per[:maxBars]
	}

	bars := make([]barchart.BarData, 0, len(per))
	for i := len(per) - 1; i >= 0; i-- {
		r := per[i]
		color := colorPrimary
		if r.AverageSeconds > ts.AverageSeconds {
			color = colorWarning
		}
		bars = append(bars, barchart.BarData{
			Label: fmt.Sprintf("%d/%d", r.CompletedCount, r.TotalUnits),
			Values: []barchart.BarValue{{
				Name:  r.RecordID,
				Value: r.AverageSeconds,
				Style: lipgloss.NewStyle().Foreground(color),
			}},
		})
	}

	s.chart.PushAll(bars)
	s.chart.Draw()
}

func (s statsModel) view() string {
	w := s.width - 4
	title := titleStyle.Render("Stats")

	if s.err != nil {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, "", errorStyle.Render("  "+s.err.Error())))
	}
	if len(s.stats) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, "", mutedStyle.Render("  No finished units yet")))
	}

	ts := s.selected()
	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		title, "  ",
		highlightStyle.Render(ts.TaskName), "  ",
		mutedStyle.Render(fmt.Sprintf("avg %s per %s", formatAllowance(ts.AverageSeconds), ts.UnitLabel)),
	)
	chartLabel := mutedStyle.Render(fmt.Sprintf("  seconds per %s, last %d runs", ts.UnitLabel, min(len(ts.PerRecord), maxBars)))

	nav := mutedStyle.Render("  ←/→: switch task")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", s.chart.View(), chartLabel, "", s.renderTable(w), "", nav,
		),
	)
}

func (s statsModel) renderTable(w int) string {
	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-24s %8s %12s %10s", "Task", "Runs", "Done/Target", "Avg")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 58))))

	for i, ts := range s.stats {
		cursor := "  "
		style := normalItemStyle
		if i == s.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s%-24s %8d %12s %10s",
			cursor, ts.TaskName, ts.Records,
			fmt.Sprintf("%d/%d", ts.TotalCompleted, ts.TotalTarget),
			formatAllowance(ts.AverageSeconds),
		)))
	}
	return strings.Join(rows, "\n")
}
