// Package notify delivers user-facing messages such as "goal reached".
package notify

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"
)

type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, title, body string) error

func (f Func) Notify(ctx context.Context, title, body string) error {
	return f(ctx, title, body)
}

// Nop discards every message.
type Nop struct{}

func (Nop) Notify(context.Context, string, string) error { return nil }

// Log writes messages to a zap logger.
type Log struct {
	Logger *zap.Logger
}

func (l Log) Notify(_ context.Context, title, body string) error {
	if l.Logger != nil {
		l.Logger.Info("notification", zap.String("title", title), zap.String("body", body))
	}
	return nil
}

// Bell rings the terminal bell.
type Bell struct {
	W io.Writer
}

func (b Bell) Notify(context.Context, string, string) error {
	if b.W == nil {
		return nil
	}
	_, err := b.W.Write([]byte{'\a'})
	return err
}

// Multi fans a message out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, title, body string) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, title, body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
