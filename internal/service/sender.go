package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/victor-igor/wacrm-backend/internal/gateway"
	"github.com/victor-igor/wacrm-backend/internal/model"
	"github.com/victor-igor/wacrm-backend/internal/repository"
)

// MessageSender is the slice of the WhatsApp gateway the send worker needs.
type MessageSender interface {
	SendText(ctx context.Context, instanceToken, phone, body string) (*gateway.Receipt, error)
	SendMedia(ctx context.Context, instanceToken, phone, mediaURL, caption string, kind model.MessageType) (*gateway.Receipt, error)
	SendTemplate(ctx context.Context, instanceToken, phone, templateName, language string) (*gateway.Receipt, error)
}

// SendWorker consumes send jobs: it pushes one message through the gateway
// and records exactly one log row per attempt, success or failure. A failed
// send is never ambiguous: it lands in the log with status failed and the
// error captured.
type SendWorker struct {
	Campaigns     repository.CampaignRepositoryInterface
	Logs          repository.CampaignLogRepositoryInterface
	Gateway       MessageSender
	InstanceToken string
	Logger        *zap.Logger
}

// Process handles a single job. The returned error covers infrastructure
// faults only (campaign lookup, log insert); a gateway failure is normal
// operation and is absorbed into a failed log row.
func (w *SendWorker) Process(ctx context.Context, job SendJob) error {
	campaign, err := w.Campaigns.GetByID(job.CampaignID)
	if err != nil {
		return err
	}

	entry := model.CampaignLogEntry{
		CampaignID:     campaign.ID,
		ContactID:      job.ContactID,
		Phone:          job.Phone,
		MessageContent: job.Variation,
	}

	_, sendErr := w.send(ctx, campaign, job)
	if sendErr != nil {
		entry.Status = model.LogStatusFailed
		entry.Details = model.LogDetails{Error: sendErr.Error()}
		w.Logger.Warn("send failed",
			zap.String("campaign_id", campaign.ID.String()),
			zap.String("phone", job.Phone),
			zap.Error(sendErr))
	} else {
		entry.Status = model.LogStatusSent
	}

	return w.Logs.Insert(&entry)
}

func (w *SendWorker) send(ctx context.Context, c *model.Campaign, job SendJob) (*gateway.Receipt, error) {
	if c.Provider == model.ProviderOfficial {
		return w.Gateway.SendTemplate(ctx, w.InstanceToken, job.Phone, c.TemplateName, c.TemplateLanguage)
	}
	if c.MessageType.HasMedia() && c.MediaURL != nil {
		return w.Gateway.SendMedia(ctx, w.InstanceToken, job.Phone, *c.MediaURL, job.Variation, c.MessageType)
	}
	return w.Gateway.SendText(ctx, w.InstanceToken, job.Phone, job.Variation)
}
