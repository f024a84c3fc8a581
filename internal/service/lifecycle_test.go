package service_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/victor-igor/wacrm-backend/internal/errors"
	"github.com/victor-igor/wacrm-backend/internal/model"
	"github.com/victor-igor/wacrm-backend/internal/service"
)

func validInput() service.CampaignInput {
	return service.CampaignInput{
		Name:              "spring sale",
		Type:              model.CampaignTypeInstant,
		Audience:          model.AudienceFilter{Type: model.AudienceAll},
		MessageType:       model.MessageTypeText,
		MessageVariations: []string{"hello {{name}}"},
		Provider:          model.ProviderUnofficial,
	}
}

func newLifecycleService(repo *memCampaignRepo) *service.CampaignService {
	svc := service.NewCampaignService(repo, zap.NewNop())
	svc.Now = func() time.Time {
		return time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	}
	return svc
}

func TestCreateCampaign(t *testing.T) {
	repo := newMemCampaignRepo()
	svc := newLifecycleService(repo)

	campaign, err := svc.Create("user-1", validInput())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, campaign.ID)
	assert.Equal(t, model.CampaignStatusPending, campaign.Status)
	assert.Equal(t, "user-1", campaign.CreatedBy)
	assert.False(t, campaign.CreatedAt.IsZero())
	assert.Equal(t, 1, repo.creates)
}

func TestCreateDraft(t *testing.T) {
	repo := newMemCampaignRepo()
	svc := newLifecycleService(repo)

	in := validInput()
	in.Draft = true
	campaign, err := svc.Create("user-1", in)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignStatusDraft, campaign.Status)
}

func TestCreateValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*service.CampaignInput)
	}{
		{"empty name", func(in *service.CampaignInput) { in.Name = "" }},
		{"unknown type", func(in *service.CampaignInput) { in.Type = "yearly" }},
		{"unknown message type", func(in *service.CampaignInput) { in.MessageType = "audio" }},
		{"unknown provider", func(in *service.CampaignInput) { in.Provider = "fax" }},
		{"tag audience without value", func(in *service.CampaignInput) {
			in.Audience = model.AudienceFilter{Type: model.AudienceTag}
		}},
		{"scheduled without schedule_time", func(in *service.CampaignInput) {
			in.Type = model.CampaignTypeScheduled
		}},
		{"recurring without days", func(in *service.CampaignInput) {
			in.Type = model.CampaignTypeRecurring
			in.Recurrence = &model.RecurrenceRule{Times: []string{"09:00"}}
		}},
		{"recurring weekday out of range", func(in *service.CampaignInput) {
			in.Type = model.CampaignTypeRecurring
			in.Recurrence = &model.RecurrenceRule{Days: []int{7}, Times: []string{"09:00"}}
		}},
		{"recurring bad clock", func(in *service.CampaignInput) {
			in.Type = model.CampaignTypeRecurring
			in.Recurrence = &model.RecurrenceRule{Days: []int{1}, Times: []string{"24:00"}}
		}},
		{"media on text message", func(in *service.CampaignInput) {
			in.MediaURL = ptrStr("https://cdn.example.com/a.png")
		}},
		{"official without template", func(in *service.CampaignInput) {
			in.Provider = model.ProviderOfficial
		}},
		{"unofficial without content", func(in *service.CampaignInput) {
			in.MessageVariations = nil
		}},
		{"non-positive daily_limit", func(in *service.CampaignInput) {
			in.DailyLimit = ptrInt(0)
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMemCampaignRepo()
			svc := newLifecycleService(repo)
			in := validInput()
			tc.mutate(&in)

			_, err := svc.Create("user-1", in)
			assert.True(t, apperrors.IsValidation(err), "want ValidationError, got %v", err)
			assert.Equal(t, 0, repo.creates, "rejected input must not be persisted")
		})
	}
}

func TestCreateRequiresActor(t *testing.T) {
	svc := newLifecycleService(newMemCampaignRepo())
	_, err := svc.Create("  ", validInput())
	assert.True(t, apperrors.IsValidation(err))
}

func TestUpdatePatchSemantics(t *testing.T) {
	repo := newMemCampaignRepo()
	svc := newLifecycleService(repo)

	in := validInput()
	in.MessageType = model.MessageTypeImage
	in.MediaURL = ptrStr("https://cdn.example.com/banner.png")
	created, err := svc.Create("user-1", in)
	require.NoError(t, err)

	// absent media_url leaves existing media alone
	updated, err := svc.Update("user-2", created.ID, service.UpdateInput{Name: ptrStr("summer sale")})
	require.NoError(t, err)
	assert.Equal(t, "summer sale", updated.Name)
	require.NotNil(t, updated.MediaURL)
	assert.Equal(t, *in.MediaURL, *updated.MediaURL)
	assert.Equal(t, "user-1", updated.CreatedBy, "ownership never changes on update")
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	// explicit removal clears it
	updated, err = svc.Update("user-2", created.ID, service.UpdateInput{
		MessageType: func() *model.MessageType { mt := model.MessageTypeText; return &mt }(),
		RemoveMedia: true,
	})
	require.NoError(t, err)
	assert.Nil(t, updated.MediaURL)
}

func TestUpdateRevalidatesMergedResult(t *testing.T) {
	repo := newMemCampaignRepo()
	svc := newLifecycleService(repo)
	created, err := svc.Create("user-1", validInput())
	require.NoError(t, err)

	// switching to scheduled without supplying a schedule_time must fail
	typ := model.CampaignTypeScheduled
	_, err = svc.Update("user-1", created.ID, service.UpdateInput{Type: &typ})
	assert.True(t, apperrors.IsValidation(err))

	stored, err := svc.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CampaignTypeInstant, stored.Type, "failed update leaves the row untouched")
}

func TestUpdateUnknownCampaign(t *testing.T) {
	svc := newLifecycleService(newMemCampaignRepo())
	_, err := svc.Update("user-1", uuid.New(), service.UpdateInput{Name: ptrStr("x")})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestToggleStatus(t *testing.T) {
	cases := []struct {
		name   string
		from   model.CampaignStatus
		target model.CampaignStatus
		want   model.CampaignStatus
		ok     bool
	}{
		{"pending pauses", model.CampaignStatusPending, model.CampaignStatusPaused, model.CampaignStatusPaused, true},
		{"active pauses", model.CampaignStatusActive, model.CampaignStatusPaused, model.CampaignStatusPaused, true},
		{"paused resumes", model.CampaignStatusPaused, model.CampaignStatusActive, model.CampaignStatusActive, true},
		{"draft cannot pause", model.CampaignStatusDraft, model.CampaignStatusPaused, "", false},
		{"completed cannot resume", model.CampaignStatusCompleted, model.CampaignStatusActive, "", false},
		{"cancelled cannot pause", model.CampaignStatusCancelled, model.CampaignStatusPaused, "", false},
		{"pending cannot complete", model.CampaignStatusPending, model.CampaignStatusCompleted, "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			campaign := &model.Campaign{
				ID:                uuid.New(),
				Name:              "toggle",
				Type:              model.CampaignTypeInstant,
				Status:            tc.from,
				Audience:          model.AudienceFilter{Type: model.AudienceAll},
				MessageType:       model.MessageTypeText,
				MessageVariations: model.StringList{"hi"},
				Provider:          model.ProviderUnofficial,
			}
			repo := newMemCampaignRepo(campaign)
			svc := newLifecycleService(repo)

			err := svc.ToggleStatus("user-1", campaign.ID, tc.target)
			if !tc.ok {
				assert.True(t, apperrors.IsInvalidTransition(err), "want InvalidTransitionError, got %v", err)
				stored, gerr := svc.Get(campaign.ID)
				require.NoError(t, gerr)
				assert.Equal(t, tc.from, stored.Status)
				return
			}
			require.NoError(t, err)
			stored, err := svc.Get(campaign.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, stored.Status)
		})
	}
}

func TestToggleResumeScheduledCampaign(t *testing.T) {
	now := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

	build := func(schedule time.Time, ran bool) (*memCampaignRepo, *model.Campaign) {
		campaign := &model.Campaign{
			ID:                uuid.New(),
			Name:              "launch",
			Type:              model.CampaignTypeScheduled,
			Status:            model.CampaignStatusPaused,
			ScheduleTime:      ptrTime(schedule),
			Audience:          model.AudienceFilter{Type: model.AudienceAll},
			MessageType:       model.MessageTypeText,
			MessageVariations: model.StringList{"hi"},
			Provider:          model.ProviderUnofficial,
		}
		if ran {
			campaign.LastRunAt = ptrTime(schedule)
		}
		return newMemCampaignRepo(campaign), campaign
	}

	t.Run("future schedule resumes to pending", func(t *testing.T) {
		repo, campaign := build(now.Add(2*time.Hour), false)
		svc := newLifecycleService(repo)
		require.NoError(t, svc.ToggleStatus("user-1", campaign.ID, model.CampaignStatusActive))
		stored, err := svc.Get(campaign.ID)
		require.NoError(t, err)
		assert.Equal(t, model.CampaignStatusPending, stored.Status)
	})

	t.Run("past schedule resumes to active", func(t *testing.T) {
		repo, campaign := build(now.Add(-2*time.Hour), true)
		svc := newLifecycleService(repo)
		require.NoError(t, svc.ToggleStatus("user-1", campaign.ID, model.CampaignStatusActive))
		stored, err := svc.Get(campaign.ID)
		require.NoError(t, err)
		assert.Equal(t, model.CampaignStatusActive, stored.Status)
	})
}

func TestDeleteUnknownCampaign(t *testing.T) {
	svc := newLifecycleService(newMemCampaignRepo())
	err := svc.Delete("user-1", uuid.New())
	assert.True(t, apperrors.IsNotFound(err))
}
