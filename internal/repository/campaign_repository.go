package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/victor-igor/wacrm-backend/internal/errors"
	"github.com/victor-igor/wacrm-backend/internal/model"
)

// ListFilter narrows List to a creation-time window. Nil bounds are open.
type ListFilter struct {
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

type CampaignRepositoryInterface interface {
	Create(c *model.Campaign) error
	GetByID(id uuid.UUID) (*model.Campaign, error)
	Update(c *model.Campaign) error
	UpdateStatus(id uuid.UUID, status model.CampaignStatus) error
	MarkRun(id uuid.UUID, at time.Time) error
	Delete(id uuid.UUID) error
	List(filter ListFilter) ([]*model.Campaign, error)
	ListSendable() ([]*model.Campaign, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, name, type, status, schedule_time, recurrence, audience,
	message_type, media_url, message_variations, template_name, template_language,
	daily_limit, provider, created_by, created_at, last_run_at`

func (r *CampaignRepository) Create(c *model.Campaign) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO campaigns
		(id, name, type, status, schedule_time, recurrence, audience, message_type,
		 media_url, message_variations, template_name, template_language, daily_limit,
		 provider, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.DB.Exec(query,
		c.ID, c.Name, string(c.Type), c.Status, c.ScheduleTime, recurrenceArg(c.Recurrence),
		audienceArg(c.Audience), string(c.MessageType), c.MediaURL, c.MessageVariations,
		c.TemplateName, c.TemplateLanguage, c.DailyLimit, string(c.Provider),
		c.CreatedBy, c.CreatedAt,
	)
	if err != nil {
		return apperrors.NewDataAccess("campaign insert", err)
	}
	return nil
}

func (r *CampaignRepository) GetByID(id uuid.UUID) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
	c, err := scanCampaign(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NewNotFound("campaign", id.String())
		}
		return nil, apperrors.NewDataAccess("campaign select", err)
	}
	return c, nil
}

// Update rewrites every mutable column. created_by and created_at are never
// touched here.
func (r *CampaignRepository) Update(c *model.Campaign) error {
	query := `
		UPDATE campaigns
		SET name=$1, type=$2, status=$3, schedule_time=$4, recurrence=$5, audience=$6,
		    message_type=$7, media_url=$8, message_variations=$9, template_name=$10,
		    template_language=$11, daily_limit=$12, provider=$13
		WHERE id=$14
	`
	res, err := r.DB.Exec(query,
		c.Name, string(c.Type), c.Status, c.ScheduleTime, recurrenceArg(c.Recurrence),
		audienceArg(c.Audience), string(c.MessageType), c.MediaURL, c.MessageVariations,
		c.TemplateName, c.TemplateLanguage, c.DailyLimit, string(c.Provider), c.ID,
	)
	if err != nil {
		return apperrors.NewDataAccess("campaign update", err)
	}
	return requireRow(res, "campaign", c.ID)
}

func (r *CampaignRepository) UpdateStatus(id uuid.UUID, status model.CampaignStatus) error {
	res, err := r.DB.Exec(`UPDATE campaigns SET status=$1 WHERE id=$2`, status, id)
	if err != nil {
		return apperrors.NewDataAccess("campaign status update", err)
	}
	return requireRow(res, "campaign", id)
}

func (r *CampaignRepository) MarkRun(id uuid.UUID, at time.Time) error {
	res, err := r.DB.Exec(`UPDATE campaigns SET last_run_at=$1 WHERE id=$2`, at, id)
	if err != nil {
		return apperrors.NewDataAccess("campaign mark run", err)
	}
	return requireRow(res, "campaign", id)
}

// Delete removes the campaign; its log rows go with it via the FK cascade.
func (r *CampaignRepository) Delete(id uuid.UUID) error {
	res, err := r.DB.Exec(`DELETE FROM campaigns WHERE id=$1`, id)
	if err != nil {
		return apperrors.NewDataAccess("campaign delete", err)
	}
	return requireRow(res, "campaign", id)
}

func (r *CampaignRepository) List(filter ListFilter) ([]*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE 1=1`
	args := []any{}
	if filter.CreatedAfter != nil {
		args = append(args, *filter.CreatedAfter)
		query += ` AND created_at >= $1`
	}
	if filter.CreatedBefore != nil {
		args = append(args, *filter.CreatedBefore)
		if len(args) == 2 {
			query += ` AND created_at <= $2`
		} else {
			query += ` AND created_at <= $1`
		}
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, apperrors.NewDataAccess("campaign list", err)
	}
	defer rows.Close()
	return collectCampaigns(rows)
}

// ListSendable returns campaigns the dispatcher should evaluate.
func (r *CampaignRepository) ListSendable() ([]*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns
		WHERE status IN ('pending', 'active') ORDER BY created_at DESC`
	rows, err := r.DB.Query(query)
	if err != nil {
		return nil, apperrors.NewDataAccess("campaign list sendable", err)
	}
	defer rows.Close()
	return collectCampaigns(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (*model.Campaign, error) {
	var (
		c          model.Campaign
		recurrence model.RecurrenceRule
		hasRule    bool
		mediaURL   sql.NullString
		rawRule    []byte
	)
	err := row.Scan(
		&c.ID, &c.Name, (*string)(&c.Type), &c.Status, &c.ScheduleTime, &rawRule,
		&c.Audience, (*string)(&c.MessageType), &mediaURL, &c.MessageVariations,
		&c.TemplateName, &c.TemplateLanguage, &c.DailyLimit, (*string)(&c.Provider),
		&c.CreatedBy, &c.CreatedAt, &c.LastRunAt,
	)
	if err != nil {
		return nil, err
	}
	if len(rawRule) > 0 {
		if err := recurrence.Scan(rawRule); err != nil {
			return nil, err
		}
		hasRule = true
	}
	if hasRule {
		c.Recurrence = &recurrence
	}
	if mediaURL.Valid {
		c.MediaURL = &mediaURL.String
	}
	return &c, nil
}

func collectCampaigns(rows *sql.Rows) ([]*model.Campaign, error) {
	campaigns := []*model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, apperrors.NewDataAccess("campaign scan", err)
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDataAccess("campaign rows", err)
	}
	return campaigns, nil
}

// recurrenceArg keeps NULL in the column when no rule is set, instead of a
// jsonb null literal.
func recurrenceArg(r *model.RecurrenceRule) any {
	if r == nil {
		return nil
	}
	return *r
}

// audienceArg marshals the filter for its jsonb column. The filter carries a
// Value field, so it cannot implement driver.Valuer itself.
func audienceArg(f model.AudienceFilter) any {
	raw, err := json.Marshal(f)
	if err != nil {
		return nil
	}
	return raw
}

func requireRow(res sql.Result, entity string, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewDataAccess(entity+" rows affected", err)
	}
	if n == 0 {
		return apperrors.NewNotFound(entity, id.String())
	}
	return nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
