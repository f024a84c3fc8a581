package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/victor-igor/wacrm-backend/internal/model"
	"github.com/victor-igor/wacrm-backend/internal/repository"
)

// DefaultExclusionTTL bounds how stale a cached exclusion set may get before
// the resolver re-reads the log table.
const DefaultExclusionTTL = 30 * time.Second

// AudienceResolver computes the set of contacts eligible for a campaign's
// next send batch: the audience filter, minus everyone already served, capped
// by the batch and daily limits.
type AudienceResolver struct {
	Campaigns repository.CampaignRepositoryInterface
	Contacts  repository.ContactRepositoryInterface
	Logs      repository.CampaignLogRepositoryInterface

	// Cache is optional. When set, exclusion sets are cached per campaign
	// with ExclusionTTL so a busy dispatcher does not hammer the log table.
	Cache        *redis.Client
	ExclusionTTL time.Duration

	Logger *zap.Logger
}

// Resolve returns up to min(batchLimit, daily_limit) contacts that match the
// campaign's audience filter and have never been served by it. batchLimit <= 0
// means no batch cap. Exclusion is applied before the cap, so capped batches
// never under-count the remaining audience.
func (r *AudienceResolver) Resolve(ctx context.Context, campaignID uuid.UUID, batchLimit int) ([]model.Contact, error) {
	campaign, err := r.Campaigns.GetByID(campaignID)
	if err != nil {
		return nil, err
	}

	excluded, err := r.exclusionSet(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	candidates, err := r.candidates(campaign.Audience)
	if err != nil {
		return nil, err
	}

	eligible := make([]model.Contact, 0, len(candidates))
	for _, c := range candidates {
		if _, served := excluded[c.ID]; served {
			continue
		}
		eligible = append(eligible, c)
	}

	limit := effectiveCap(batchLimit, campaign.DailyLimit)
	if limit > 0 && len(eligible) > limit {
		eligible = eligible[:limit]
	}
	return eligible, nil
}

func (r *AudienceResolver) candidates(filter model.AudienceFilter) ([]model.Contact, error) {
	switch filter.Type {
	case model.AudienceTag:
		return r.Contacts.ListByTag(filter.Value)
	case model.AudienceCSV:
		ids := make([]uuid.UUID, 0, len(filter.ContactIDs))
		for _, raw := range filter.ContactIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				continue
			}
			ids = append(ids, id)
		}
		return r.Contacts.ListByIDs(ids)
	default:
		return r.Contacts.ListAll()
	}
}

func (r *AudienceResolver) exclusionSet(ctx context.Context, campaignID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	if r.Cache != nil {
		if set, ok := r.cachedExclusions(ctx, campaignID); ok {
			return set, nil
		}
	}

	ids, err := r.Logs.ServedContactIDs(campaignID)
	if err != nil {
		return nil, err
	}
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}

	if r.Cache != nil {
		r.storeExclusions(ctx, campaignID, ids)
	}
	return set, nil
}

func exclusionKey(campaignID uuid.UUID) string {
	return "audience:served:" + campaignID.String()
}

func (r *AudienceResolver) cachedExclusions(ctx context.Context, campaignID uuid.UUID) (map[uuid.UUID]struct{}, bool) {
	raw, err := r.Cache.Get(ctx, exclusionKey(campaignID)).Bytes()
	if err != nil {
		if err != redis.Nil && r.Logger != nil {
			r.Logger.Warn("exclusion cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var ids []uuid.UUID
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, false
	}
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, true
}

func (r *AudienceResolver) storeExclusions(ctx context.Context, campaignID uuid.UUID, ids []uuid.UUID) {
	ttl := r.ExclusionTTL
	if ttl <= 0 {
		ttl = DefaultExclusionTTL
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, exclusionKey(campaignID), raw, ttl).Err(); err != nil && r.Logger != nil {
		r.Logger.Warn("exclusion cache write failed", zap.Error(err))
	}
}

func effectiveCap(batchLimit int, dailyLimit *int) int {
	switch {
	case batchLimit > 0 && dailyLimit != nil:
		if *dailyLimit < batchLimit {
			return *dailyLimit
		}
		return batchLimit
	case batchLimit > 0:
		return batchLimit
	case dailyLimit != nil:
		return *dailyLimit
	default:
		return 0
	}
}
