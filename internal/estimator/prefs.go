package estimator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sadopc/goaltrack/internal/domain"
	"github.com/sadopc/goaltrack/internal/store"
)

// SettingsStore is the key/value store suggestion preferences live in.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Prefs is the bias and sample window a user picked for a task.
type Prefs struct {
	SpeedBiasPercent int `json:"speed_bias_percent" validate:"gte=-20,lte=20"`
	SampleSize       int `json:"sample_size" validate:"gte=0"`
}

// Options converts stored preferences into estimate options.
func (p Prefs) Options() Options {
	opts := Options{SpeedBiasPercent: p.SpeedBiasPercent}
	if p.SampleSize > 0 {
		n := p.SampleSize
		opts.SampleSize = &n
	}
	return opts
}

func prefsKey(userID, taskName string) string {
	return fmt.Sprintf("suggest:%s:%s", userID, taskName)
}

// LoadPrefs returns the saved preferences, or the zero value when none were
// saved.
func LoadPrefs(ctx context.Context, s SettingsStore, userID, taskName string) (Prefs, error) {
	raw, err := s.GetSetting(ctx, prefsKey(userID, taskName))
	if errors.Is(err, store.ErrNotFound) {
		return Prefs{}, nil
	}
	if err != nil {
		return Prefs{}, domain.WrapError(domain.ErrCodePersistence, "load suggestion prefs", err)
	}
	var p Prefs
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Prefs{}, nil
	}
	return p, nil
}

func SavePrefs(ctx context.Context, s SettingsStore, userID, taskName string, p Prefs) error {
	if err := validate.Struct(p); err != nil {
		return domain.Validation(err)
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := s.SetSetting(ctx, prefsKey(userID, taskName), string(raw)); err != nil {
		return domain.WrapError(domain.ErrCodePersistence, "save suggestion prefs", err)
	}
	return nil
}
