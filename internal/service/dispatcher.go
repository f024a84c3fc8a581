package service

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/victor-igor/wacrm-backend/internal/model"
	"github.com/victor-igor/wacrm-backend/internal/repository"
)

// SendJob is one queued send attempt for one recipient.
type SendJob struct {
	CampaignID uuid.UUID  `json:"campaign_id"`
	ContactID  *uuid.UUID `json:"contact_id,omitempty"`
	Phone      string     `json:"phone"`
	Variation  string     `json:"variation"`
}

// JobPublisher pushes serialized send jobs onto the broker.
type JobPublisher interface {
	Publish(queue string, body []byte) error
}

// Dispatcher drives the delivery loop: on every pass it finds due campaigns,
// resolves their next audience batch and enqueues one send job per recipient.
type Dispatcher struct {
	Campaigns repository.CampaignRepositoryInterface
	Resolver  *AudienceResolver
	Evaluator *ScheduleEvaluator
	Publisher JobPublisher

	Queue     string
	BatchSize int
	Logger    *zap.Logger
	Now       func() time.Time
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Start runs the dispatch loop until the context is cancelled, evaluating
// once immediately and then on every tick. Returns a stop function.
func (d *Dispatcher) Start(parent context.Context, interval time.Duration) func() {
	if interval <= 0 {
		interval = time.Minute
	}
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		d.RunOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.RunOnce(ctx)
			}
		}
	}()

	return cancel
}

// RunOnce evaluates every sendable campaign exactly once.
func (d *Dispatcher) RunOnce(ctx context.Context) {
	campaigns, err := d.Campaigns.ListSendable()
	if err != nil {
		d.Logger.Error("dispatch: listing campaigns failed", zap.Error(err))
		return
	}
	now := d.now()
	for _, c := range campaigns {
		if !d.shouldDispatch(c, now) {
			continue
		}
		d.dispatchCampaign(ctx, c, now)
	}
}

// shouldDispatch is the evaluator's verdict plus the drain rule: a one-shot
// campaign that already ran but still has audience left (daily_limit cut it
// short) gets another batch on the next calendar day.
func (d *Dispatcher) shouldDispatch(c *model.Campaign, now time.Time) bool {
	if d.Evaluator.IsDue(c, now) {
		return true
	}
	if c.Type == model.CampaignTypeRecurring {
		return false
	}
	return c.Status == model.CampaignStatusActive && c.HasRun() && !sameDay(*c.LastRunAt, now)
}

func (d *Dispatcher) dispatchCampaign(ctx context.Context, c *model.Campaign, now time.Time) {
	audience, err := d.Resolver.Resolve(ctx, c.ID, d.BatchSize)
	if err != nil {
		d.Logger.Error("dispatch: audience resolution failed",
			zap.String("campaign_id", c.ID.String()), zap.Error(err))
		return
	}

	if len(audience) == 0 {
		// Recurring campaigns just wait for new contacts. A one-shot
		// campaign with nobody to reach is done, even on its first pass;
		// leaving it pending would re-resolve it forever.
		if c.Type == model.CampaignTypeRecurring {
			return
		}
		if !c.HasRun() {
			if err := d.Campaigns.MarkRun(c.ID, now); err != nil {
				d.Logger.Error("dispatch: marking run failed",
					zap.String("campaign_id", c.ID.String()), zap.Error(err))
			}
		}
		if err := d.Campaigns.UpdateStatus(c.ID, model.CampaignStatusCompleted); err != nil {
			d.Logger.Error("dispatch: completing campaign failed",
				zap.String("campaign_id", c.ID.String()), zap.Error(err))
		}
		return
	}

	if c.Status == model.CampaignStatusPending {
		if err := d.Campaigns.UpdateStatus(c.ID, model.CampaignStatusActive); err != nil {
			d.Logger.Error("dispatch: activating campaign failed",
				zap.String("campaign_id", c.ID.String()), zap.Error(err))
			return
		}
	}

	enqueued := 0
	for _, contact := range audience {
		id := contact.ID
		job := SendJob{
			CampaignID: c.ID,
			ContactID:  &id,
			Phone:      contact.Phone,
			Variation:  PickVariation(c, contact.Phone),
		}
		body, err := json.Marshal(job)
		if err != nil {
			continue
		}
		if err := d.Publisher.Publish(d.Queue, body); err != nil {
			d.Logger.Error("dispatch: enqueue failed",
				zap.String("campaign_id", c.ID.String()),
				zap.String("phone", contact.Phone), zap.Error(err))
			continue
		}
		enqueued++
	}

	if err := d.Campaigns.MarkRun(c.ID, now); err != nil {
		d.Logger.Error("dispatch: marking run failed",
			zap.String("campaign_id", c.ID.String()), zap.Error(err))
	}
	d.Logger.Info("dispatch: batch enqueued",
		zap.String("campaign_id", c.ID.String()),
		zap.Int("recipients", enqueued))
}

// PickVariation deterministically assigns a message variation to a recipient
// by hashing phone and campaign id, so a recipient always sees the same copy.
func PickVariation(c *model.Campaign, phone string) string {
	if len(c.MessageVariations) == 0 {
		return model.DefaultMessageContent
	}
	hash := sha256.Sum256([]byte(phone + c.ID.String()))
	idx := int(binary.BigEndian.Uint64(hash[:8]) % uint64(len(c.MessageVariations)))
	if idx < 0 {
		idx = -idx
	}
	return c.MessageVariations[idx]
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
