package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/sadopc/goaltrack/internal/store"
)

// Target is where replayed writes go.
type Target interface {
	CreateSnapshot(ctx context.Context, s store.NewSnapshot) error
	UpdateRecord(ctx context.Context, id string, p store.RecordPatch) error
}

type Config struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
}

// Processor drains the outbox into the target on a schedule.
type Processor struct {
	store  *Store
	target Target
	log    *zap.Logger
	cron   *cron.Cron
	cfg    Config
}

func NewProcessor(s *Store, target Target, log *zap.Logger, cfg Config) *Processor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if log == nil {
		log = zap.NewNop()
	}

	p := &Processor{
		store:  s,
		target: target,
		log:    log,
		cfg:    cfg,
		cron:   cron.New(),
	}

	_, _ = p.cron.AddFunc("@every "+cfg.Interval.String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := p.Drain(ctx); err != nil {
			p.log.Error("outbox drain failed", zap.Error(err))
		}
	})
	return p
}

// Enqueue stores a failed write for later replay.
func (p *Processor) Enqueue(item Item) error {
	if p == nil || p.store == nil {
		return fmt.Errorf("outbox not configured")
	}
	return p.store.Enqueue(item)
}

func (p *Processor) Start() {
	if p == nil || p.cron == nil {
		return
	}
	p.cron.Start()
	p.log.Info("outbox processor started", zap.Duration("interval", p.cfg.Interval))
}

// Stop waits for a running drain to finish or ctx to expire.
func (p *Processor) Stop(ctx context.Context) {
	if p == nil || p.cron == nil {
		return
	}
	stopCtx := p.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	p.log.Info("outbox processor stopped")
}

// Drain replays one batch synchronously.
func (p *Processor) Drain(ctx context.Context) error {
	if p == nil || p.store == nil {
		return nil
	}
	items, err := p.store.Batch(p.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, item := range items {
		if err := p.apply(ctx, item); err != nil {
			p.log.Error("replay outbox item",
				zap.String("item_id", item.ID),
				zap.String("kind", item.Kind),
				zap.Error(err))

			item.Retries++
			if item.Retries >= p.cfg.MaxRetries {
				p.log.Warn("dropping outbox item (max retries reached)", zap.String("item_id", item.ID))
				_ = p.store.Remove(item)
				continue
			}
			if err := p.store.Requeue(item); err != nil {
				p.log.Error("requeue outbox item", zap.Error(err))
			}
			continue
		}

		if err := p.store.Remove(item); err != nil {
			p.log.Warn("purge outbox item", zap.Error(err))
		}
	}
	return nil
}

func (p *Processor) Size() int {
	if p == nil || p.store == nil {
		return 0
	}
	n, err := p.store.Size()
	if err != nil {
		return 0
	}
	return n
}

func (p *Processor) apply(ctx context.Context, item Item) error {
	switch item.Kind {
	case KindSnapshotCreate:
		var s store.NewSnapshot
		if err := json.Unmarshal(item.Payload, &s); err != nil {
			return err
		}
		return p.target.CreateSnapshot(ctx, s)
	case KindRecordUpdate:
		var u recordUpdate
		if err := json.Unmarshal(item.Payload, &u); err != nil {
			return err
		}
		return p.target.UpdateRecord(ctx, u.RecordID, u.Patch)
	default:
		return fmt.Errorf("unsupported outbox kind %q", item.Kind)
	}
}
