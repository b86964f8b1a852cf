package tui

import "context"

// Notifier surfaces notifications in the status bar. It is safe to call from
// any goroutine; messages arriving faster than the UI drains them are dropped.
type Notifier struct {
	ch chan notifyMsg
}

func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan notifyMsg, 16)}
}

func (n *Notifier) Notify(_ context.Context, title, body string) error {
	select {
	case n.ch <- notifyMsg{title: title, body: body}:
	default:
	}
	return nil
}
