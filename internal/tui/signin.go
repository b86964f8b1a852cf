package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/goaltrack/internal/domain"
	"github.com/sadopc/goaltrack/internal/identity"
)

const (
	modeSignIn = "in"
	modeSignUp = "up"
)

// signinModel gates the app until a user is signed in.
type signinModel struct {
	identity *identity.Service
	width    int
	height   int

	form *huh.Form
	err  error

	// Form values as pointers (survive value copies)
	mode     *string
	email    *string
	password *string
	username *string
}

func newSigninModel(id *identity.Service) signinModel {
	mode, email, password, username := modeSignIn, "", "", ""
	return signinModel{
		identity: id,
		mode:     &mode,
		email:    &email,
		password: &password,
		username: &username,
	}
}

func (m *signinModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

type signinFailedMsg struct {
	err error
}

// reset builds a fresh form, keeping the email and mode.
func (m signinModel) reset() (signinModel, tea.Cmd) {
	*m.password = ""
	mode := m.mode

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Account").
				Options(
					huh.NewOption("Sign in", modeSignIn),
					huh.NewOption("Create an account", modeSignUp),
				).Value(m.mode),
		),
		huh.NewGroup(
			huh.NewInput().Title("Email").Value(m.email).Validate(validateRequired),
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(m.password).Validate(validateRequired),
		),
		huh.NewGroup(
			huh.NewInput().Title("Username").Description("Optional").Value(m.username),
		).WithHideFunc(func() bool { return *mode != modeSignUp }),
	).WithShowHelp(true).WithShowErrors(true)

	return m, m.form.Init()
}

func (m signinModel) update(msg tea.Msg) (signinModel, tea.Cmd) {
	switch msg := msg.(type) {
	case signinFailedMsg:
		m.err = msg.err
		return m.reset()
	case signedInMsg:
		m.err = nil
		m.form = nil
		return m, nil
	}

	if m.form == nil {
		return m.reset()
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m, m.submit()
	}
	return m, cmd
}

func (m signinModel) submit() tea.Cmd {
	creds := domain.Credentials{
		Email:    strings.TrimSpace(*m.email),
		Password: *m.password,
		Username: strings.TrimSpace(*m.username),
	}
	signUp := *m.mode == modeSignUp
	id := m.identity
	return func() tea.Msg {
		var (
			u   *domain.User
			err error
		)
		if signUp {
			u, err = id.SignUp(context.Background(), creds)
		} else {
			u, err = id.SignIn(context.Background(), creds)
		}
		if err != nil {
			return signinFailedMsg{err: err}
		}
		return signedInMsg{user: u}
	}
}

func (m signinModel) view() string {
	w := min(m.width-4, 64)
	rows := []string{
		titleStyle.Render("goaltrack"),
		mutedStyle.Render("Sign in to track your goals"),
		"",
	}
	if m.err != nil {
		rows = append(rows, errorStyle.Render(m.err.Error()), "")
	}
	if m.form != nil {
		rows = append(rows, m.form.View())
	}
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
