package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sadopc/goaltrack/internal/domain"
	"github.com/sadopc/goaltrack/internal/identity"
)

// viewState represents the currently active view.
type viewState int

const (
	viewTracker viewState = iota
	viewStats
	viewHistory
	viewSettings
)

var viewNames = []string{"Tracker", "Stats", "History", "Settings"}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

// tickMsg drives the once-per-second logic refresh.
type tickMsg time.Time

// repaintMsg drives the sub-second clock display only.
type repaintMsg time.Time

type notifyMsg struct {
	title string
	body  string
}

type identityMsg identity.Event

type signedInMsg struct {
	user *domain.User
}

type exportDoneMsg struct {
	path string
}

// errStatus turns an error into a status bar message.
func errStatus(err error) statusMsg {
	return statusMsg{text: "Error: " + err.Error(), isError: true}
}

// --- Helpers ---

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func formatSeconds(secs int64) string {
	return formatDuration(time.Duration(secs) * time.Second)
}

// formatClock renders whole seconds plus the centisecond phase.
func formatClock(secs int64, ticks int) string {
	return fmt.Sprintf("%s.%02d", formatSeconds(secs), ticks)
}

// formatAllowance renders a fractional second count as m:ss.
func formatAllowance(secs float64) string {
	if secs < 0 {
		secs = 0
	}
	whole := int64(secs)
	return fmt.Sprintf("%d:%02d", whole/60, whole%60)
}

// parseBudget accepts a Go duration ("25m", "1h30m", "90s") or a bare number
// of minutes.
func parseBudget(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("budget is required")
	}
	if mins, err := strconv.ParseFloat(s, 64); err == nil {
		if mins <= 0 {
			return 0, fmt.Errorf("budget must be positive")
		}
		return int64(mins * 60), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid budget %q", s)
	}
	if d < time.Second {
		return 0, fmt.Errorf("budget must be at least 1s")
	}
	return int64(d / time.Second), nil
}

// budgetString is the inverse of parseBudget for prefilling inputs.
func budgetString(secs int64) string {
	if secs <= 0 {
		return ""
	}
	return (time.Duration(secs) * time.Second).String()
}

func validateBudget(s string) error {
	_, err := parseBudget(s)
	return err
}

func validateUnits(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fmt.Errorf("enter a whole number above zero")
	}
	return nil
}

func validateRequired(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("required")
	}
	return nil
}
