package service

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/victor-igor/wacrm-backend/internal/errors"
	"github.com/victor-igor/wacrm-backend/internal/model"
	"github.com/victor-igor/wacrm-backend/internal/repository"
)

// CampaignInput is the create payload. Basic presence rules live in the
// validator tags; cross-field rules are checked in validateCampaign.
type CampaignInput struct {
	Name              string                `json:"name" validate:"required"`
	Type              model.CampaignType    `json:"type" validate:"required"`
	ScheduleTime      *time.Time            `json:"schedule_time"`
	Recurrence        *model.RecurrenceRule `json:"recurrence"`
	Audience          model.AudienceFilter  `json:"audience"`
	MessageType       model.MessageType     `json:"message_type" validate:"required"`
	MediaURL          *string               `json:"media_url"`
	MessageVariations []string              `json:"message_variations"`
	TemplateName      string                `json:"template_name"`
	TemplateLanguage  string                `json:"template_language"`
	DailyLimit        *int                  `json:"daily_limit" validate:"omitempty,gt=0"`
	Provider          model.Provider        `json:"provider" validate:"required"`
	Draft             bool                  `json:"draft"`
}

// UpdateInput patches a campaign. Nil fields are left untouched; an absent
// media_url never erases existing media, RemoveMedia clears it explicitly.
type UpdateInput struct {
	Name              *string               `json:"name"`
	Type              *model.CampaignType   `json:"type"`
	ScheduleTime      *time.Time            `json:"schedule_time"`
	Recurrence        *model.RecurrenceRule `json:"recurrence"`
	Audience          *model.AudienceFilter `json:"audience"`
	MessageType       *model.MessageType    `json:"message_type"`
	MediaURL          *string               `json:"media_url"`
	RemoveMedia       bool                  `json:"remove_media"`
	MessageVariations []string              `json:"message_variations"`
	TemplateName      *string               `json:"template_name"`
	TemplateLanguage  *string               `json:"template_language"`
	DailyLimit        *int                  `json:"daily_limit"`
	Provider          *model.Provider       `json:"provider"`
}

// CampaignService owns campaign CRUD and status transitions. Every call takes
// the acting user explicitly; there is no ambient session state.
type CampaignService struct {
	Repo     repository.CampaignRepositoryInterface
	Validate *validator.Validate
	Logger   *zap.Logger
	Now      func() time.Time
}

func NewCampaignService(repo repository.CampaignRepositoryInterface, log *zap.Logger) *CampaignService {
	return &CampaignService{
		Repo:     repo,
		Validate: validator.New(),
		Logger:   log,
		Now:      time.Now,
	}
}

func (s *CampaignService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create validates the input and persists a new campaign owned by actor.
// Nothing is written when validation fails.
func (s *CampaignService) Create(actor string, in CampaignInput) (*model.Campaign, error) {
	if strings.TrimSpace(actor) == "" {
		return nil, apperrors.NewValidation("actor", "required")
	}
	if err := s.structErrors(in); err != nil {
		return nil, err
	}

	status := model.CampaignStatusPending
	if in.Draft {
		status = model.CampaignStatusDraft
	}
	campaign := &model.Campaign{
		ID:                uuid.New(),
		Name:              in.Name,
		Type:              in.Type,
		Status:            status,
		ScheduleTime:      in.ScheduleTime,
		Recurrence:        in.Recurrence,
		Audience:          in.Audience,
		MessageType:       in.MessageType,
		MediaURL:          in.MediaURL,
		MessageVariations: in.MessageVariations,
		TemplateName:      in.TemplateName,
		TemplateLanguage:  in.TemplateLanguage,
		DailyLimit:        in.DailyLimit,
		Provider:          in.Provider,
		CreatedBy:         actor,
		CreatedAt:         s.now(),
	}
	if err := validateCampaign(campaign); err != nil {
		return nil, err
	}

	if err := s.Repo.Create(campaign); err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("campaign created",
			zap.String("campaign_id", campaign.ID.String()),
			zap.String("actor", actor),
			zap.String("type", campaign.Type.String()))
	}
	return campaign, nil
}

// Update merges the patch onto the stored campaign, re-validates the merged
// result and persists it. created_by and created_at cannot change.
func (s *CampaignService) Update(actor string, id uuid.UUID, in UpdateInput) (*model.Campaign, error) {
	if strings.TrimSpace(actor) == "" {
		return nil, apperrors.NewValidation("actor", "required")
	}
	campaign, err := s.Repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	applyUpdate(campaign, in)
	if err := validateCampaign(campaign); err != nil {
		return nil, err
	}

	if err := s.Repo.Update(campaign); err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("campaign updated",
			zap.String("campaign_id", id.String()),
			zap.String("actor", actor))
	}
	return campaign, nil
}

func applyUpdate(c *model.Campaign, in UpdateInput) {
	if in.Name != nil {
		c.Name = *in.Name
	}
	if in.Type != nil {
		c.Type = *in.Type
	}
	if in.ScheduleTime != nil {
		c.ScheduleTime = in.ScheduleTime
	}
	if in.Recurrence != nil {
		c.Recurrence = in.Recurrence
	}
	if in.Audience != nil {
		c.Audience = *in.Audience
	}
	if in.MessageType != nil {
		c.MessageType = *in.MessageType
	}
	switch {
	case in.RemoveMedia:
		c.MediaURL = nil
	case in.MediaURL != nil:
		c.MediaURL = in.MediaURL
	}
	if in.MessageVariations != nil {
		c.MessageVariations = in.MessageVariations
	}
	if in.TemplateName != nil {
		c.TemplateName = *in.TemplateName
	}
	if in.TemplateLanguage != nil {
		c.TemplateLanguage = *in.TemplateLanguage
	}
	if in.DailyLimit != nil {
		c.DailyLimit = in.DailyLimit
	}
	if in.Provider != nil {
		c.Provider = *in.Provider
	}
}

// ToggleStatus applies a manual pause/resume. Legal moves: pending or active
// to paused, and paused back to active or pending. A paused scheduled
// campaign whose schedule_time is still in the future resumes to pending
// regardless of the requested target; one already past due resumes to active.
func (s *CampaignService) ToggleStatus(actor string, id uuid.UUID, target model.CampaignStatus) error {
	if strings.TrimSpace(actor) == "" {
		return apperrors.NewValidation("actor", "required")
	}
	if !target.Valid() {
		return apperrors.NewValidation("status", "unknown status "+target.String())
	}
	campaign, err := s.Repo.GetByID(id)
	if err != nil {
		return err
	}

	from := campaign.Status
	var next model.CampaignStatus
	switch {
	case (from == model.CampaignStatusPending || from == model.CampaignStatusActive) &&
		target == model.CampaignStatusPaused:
		next = model.CampaignStatusPaused
	case from == model.CampaignStatusPaused &&
		(target == model.CampaignStatusActive || target == model.CampaignStatusPending):
		next = s.resumeStatus(campaign)
	default:
		return apperrors.NewInvalidTransition(from.String(), target.String())
	}

	if err := s.Repo.UpdateStatus(id, next); err != nil {
		return err
	}
	if s.Logger != nil {
		s.Logger.Info("campaign status changed",
			zap.String("campaign_id", id.String()),
			zap.String("from", from.String()),
			zap.String("to", next.String()),
			zap.String("actor", actor))
	}
	return nil
}

func (s *CampaignService) resumeStatus(c *model.Campaign) model.CampaignStatus {
	if c.Type == model.CampaignTypeScheduled && !c.HasRun() &&
		c.ScheduleTime != nil && c.ScheduleTime.After(s.now()) {
		return model.CampaignStatusPending
	}
	return model.CampaignStatusActive
}

// Delete removes the campaign; log rows cascade at the storage layer.
// Deleting an unknown id surfaces NotFound instead of succeeding silently.
func (s *CampaignService) Delete(actor string, id uuid.UUID) error {
	if strings.TrimSpace(actor) == "" {
		return apperrors.NewValidation("actor", "required")
	}
	if err := s.Repo.Delete(id); err != nil {
		return err
	}
	if s.Logger != nil {
		s.Logger.Info("campaign deleted",
			zap.String("campaign_id", id.String()),
			zap.String("actor", actor))
	}
	return nil
}

func (s *CampaignService) Get(id uuid.UUID) (*model.Campaign, error) {
	return s.Repo.GetByID(id)
}

// List returns campaigns newest first, optionally bounded by creation time.
func (s *CampaignService) List(filter repository.ListFilter) ([]*model.Campaign, error) {
	return s.Repo.List(filter)
}

func (s *CampaignService) structErrors(in CampaignInput) error {
	err := s.Validate.Struct(in)
	if err == nil {
		return nil
	}
	if fields, ok := err.(validator.ValidationErrors); ok && len(fields) > 0 {
		f := fields[0]
		return apperrors.NewValidation(strings.ToLower(f.Field()), "failed "+f.Tag()+" check")
	}
	return apperrors.NewValidation("input", err.Error())
}

// validateCampaign enforces the cross-field configuration rules on a fully
// merged campaign, before any write.
func validateCampaign(c *model.Campaign) error {
	if strings.TrimSpace(c.Name) == "" {
		return apperrors.NewValidation("name", "required")
	}
	if !c.Type.Valid() {
		return apperrors.NewValidation("type", "unknown type "+c.Type.String())
	}
	if !c.MessageType.Valid() {
		return apperrors.NewValidation("message_type", "unknown message type")
	}
	if !c.Provider.Valid() {
		return apperrors.NewValidation("provider", "unknown provider")
	}
	if !c.Audience.Type.Valid() {
		return apperrors.NewValidation("audience.type", "unknown audience type")
	}
	if c.Audience.Type == model.AudienceTag && strings.TrimSpace(c.Audience.Value) == "" {
		return apperrors.NewValidation("audience.value", "required for tag audiences")
	}

	switch c.Type {
	case model.CampaignTypeScheduled:
		if c.ScheduleTime == nil {
			return apperrors.NewValidation("schedule_time", "required for scheduled campaigns")
		}
	case model.CampaignTypeRecurring:
		if c.Recurrence == nil || len(c.Recurrence.Days) == 0 {
			return apperrors.NewValidation("recurrence.days", "required for recurring campaigns")
		}
		for _, d := range c.Recurrence.Days {
			if d < 0 || d > 6 {
				return apperrors.NewValidation("recurrence.days", "weekday out of range 0-6")
			}
		}
		if len(c.Recurrence.Times) == 0 {
			return apperrors.NewValidation("recurrence.times", "required for recurring campaigns")
		}
		for _, t := range c.Recurrence.Times {
			if _, _, err := ParseClock(t); err != nil {
				return apperrors.NewValidation("recurrence.times", err.Error())
			}
		}
	}

	if c.MediaURL != nil && !c.MessageType.HasMedia() {
		return apperrors.NewValidation("media_url", "only image and video messages carry media")
	}

	switch c.Provider {
	case model.ProviderOfficial:
		if strings.TrimSpace(c.TemplateName) == "" || strings.TrimSpace(c.TemplateLanguage) == "" {
			return apperrors.NewValidation("template_name", "official provider requires a template name and language")
		}
	case model.ProviderUnofficial:
		hasText := len(c.MessageVariations) > 0 && strings.TrimSpace(c.MessageVariations[0]) != ""
		hasMedia := c.MediaURL != nil && *c.MediaURL != ""
		if !hasText && !hasMedia {
			return apperrors.NewValidation("message_variations", "unofficial provider requires message text or media")
		}
	}

	if c.DailyLimit != nil && *c.DailyLimit <= 0 {
		return apperrors.NewValidation("daily_limit", "must be positive")
	}
	return nil
}
