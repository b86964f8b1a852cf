// Package estimator turns a task's history into a suggested pace for the
// next run.
package estimator

import (
	"context"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sadopc/goaltrack/internal/domain"
	"github.com/sadopc/goaltrack/internal/store"
)

var validate = validator.New()

// BiasOptions are the speed bias percentages offered to the user.
var BiasOptions = []int{-20, -10, -5, 0, 5, 10, 20}

// SampleOptions are the sample windows offered to the user. Zero means all
// records.
var SampleOptions = []int{0, 3, 5, 10}

// History is the read side of the store the estimator needs.
type History interface {
	ListRecordsWithSnapshots(ctx context.Context, f store.RecordFilter) ([]store.RecordSummary, error)
}

// Options selects the history window and the bias applied to it.
type Options struct {
	// SampleSize limits the baseline to the N most recent records with at
	// least one completed unit. Nil means every record.
	SampleSize       *int `validate:"omitempty,gt=0"`
	SpeedBiasPercent int  `validate:"gte=-20,lte=20"`
}

// Suggestion is a per-unit pace derived from history.
type Suggestion struct {
	TaskName         string
	Baseline         float64
	PerUnitSeconds   int64
	SampleSize       *int
	SpeedBiasPercent int
	RecordsUsed      int
}

// TotalSeconds scales the suggestion to a planned unit count.
func (s *Suggestion) TotalSeconds(units int) int64 {
	if s == nil || units <= 0 {
		return 0
	}
	return s.PerUnitSeconds * int64(units)
}

type Estimator struct {
	history History
	log     *zap.Logger
}

func New(h History, log *zap.Logger) *Estimator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Estimator{history: h, log: log}
}

// Estimate returns a suggestion for taskName, or nil when the task has no
// completed units on record.
func (e *Estimator) Estimate(ctx context.Context, userID, taskName string, opts Options) (*Suggestion, error) {
	taskName = strings.TrimSpace(taskName)
	if taskName == "" {
		return nil, domain.NewError(domain.ErrCodeValidation, "task name is required")
	}
	if err := validate.Struct(opts); err != nil {
		return nil, domain.Validation(err)
	}

	records, err := e.history.ListRecordsWithSnapshots(ctx, store.RecordFilter{UserID: userID, TaskName: taskName})
	if err != nil {
		e.log.Error("load history", zap.String("task", taskName), zap.Error(err))
		return nil, domain.WrapError(domain.ErrCodePersistence, "load history", err)
	}

	baseline, used, ok := Baseline(records, opts.SampleSize)
	if !ok {
		return nil, nil
	}
	return &Suggestion{
		TaskName:         taskName,
		Baseline:         baseline,
		PerUnitSeconds:   ApplyBias(baseline, opts.SpeedBiasPercent),
		SampleSize:       opts.SampleSize,
		SpeedBiasPercent: opts.SpeedBiasPercent,
		RecordsUsed:      used,
	}, nil
}

// Baseline computes the completed-count weighted average unit duration over
// records, which must be ordered newest first. Records without completed
// units are skipped before the sample window is applied. It reports false
// when nothing qualifies.
func Baseline(records []store.RecordSummary, sample *int) (float64, int, bool) {
	var sum float64
	var weight, used int
	for _, r := range records {
		if r.CompletedCount <= 0 {
			continue
		}
		if sample != nil && used >= *sample {
			break
		}
		sum += r.AverageUnitSeconds() * float64(r.CompletedCount)
		weight += r.CompletedCount
		used++
	}
	if weight == 0 {
		return 0, 0, false
	}
	return sum / float64(weight), used, true
}

// ApplyBias scales baseline by (1 + bias/100) and rounds to whole seconds.
func ApplyBias(baseline float64, biasPercent int) int64 {
	return int64(math.Round(baseline * (1 + float64(biasPercent)/100)))
}

// Blend averages the current per-unit target with a suggestion.
func Blend(current, suggested int64) int64 {
	return (current + suggested) / 2
}

// Nudge moves avg by percent, rounding to whole seconds. Results below one
// second are clamped to one.
func Nudge(avg int64, percent int) int64 {
	v := int64(math.Round(float64(avg) * (1 + float64(percent)/100)))
	if v < 1 {
		return 1
	}
	return v
}
