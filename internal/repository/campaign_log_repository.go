package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/victor-igor/wacrm-backend/internal/errors"
	"github.com/victor-igor/wacrm-backend/internal/model"
)

type CampaignLogRepositoryInterface interface {
	Insert(e *model.CampaignLogEntry) error
	ListByCampaign(campaignID uuid.UUID) ([]model.CampaignLogEntry, error)
	ServedContactIDs(campaignID uuid.UUID) ([]uuid.UUID, error)
	SetReplied(id uuid.UUID, at time.Time) error
}

type CampaignLogRepository struct {
	DB *sql.DB
}

const logColumns = `id, campaign_id, contact_id, phone, status, message_content, details, replied_at, created_at`

func (r *CampaignLogRepository) Insert(e *model.CampaignLogEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO campaign_logs
		(id, campaign_id, contact_id, phone, status, message_content, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.DB.Exec(query,
		e.ID, e.CampaignID, e.ContactID, e.Phone, string(e.Status),
		e.MessageContent, e.Details, e.CreatedAt,
	)
	if err != nil {
		return apperrors.NewDataAccess("campaign log insert", err)
	}
	return nil
}

func (r *CampaignLogRepository) ListByCampaign(campaignID uuid.UUID) ([]model.CampaignLogEntry, error) {
	query := `SELECT ` + logColumns + ` FROM campaign_logs WHERE campaign_id=$1 ORDER BY created_at ASC`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, apperrors.NewDataAccess("campaign log list", err)
	}
	defer rows.Close()

	entries := []model.CampaignLogEntry{}
	for rows.Next() {
		var e model.CampaignLogEntry
		if err := rows.Scan(
			&e.ID, &e.CampaignID, &e.ContactID, &e.Phone, (*string)(&e.Status),
			&e.MessageContent, &e.Details, &e.RepliedAt, &e.CreatedAt,
		); err != nil {
			return nil, apperrors.NewDataAccess("campaign log scan", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDataAccess("campaign log rows", err)
	}
	return entries, nil
}

// ServedContactIDs returns the distinct contacts already served by the
// campaign: any log row with a non-null contact and a status in
// sent/delivered/success.
func (r *CampaignLogRepository) ServedContactIDs(campaignID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT contact_id FROM campaign_logs
		WHERE campaign_id=$1 AND contact_id IS NOT NULL
		  AND status IN ('sent', 'delivered', 'success')
	`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, apperrors.NewDataAccess("served contacts", err)
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.NewDataAccess("served contacts scan", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDataAccess("served contacts rows", err)
	}
	return ids, nil
}

// SetReplied marks an inbound reply correlated to a send. The only mutation
// log rows ever receive.
func (r *CampaignLogRepository) SetReplied(id uuid.UUID, at time.Time) error {
	res, err := r.DB.Exec(`UPDATE campaign_logs SET replied_at=$1 WHERE id=$2`, at, id)
	if err != nil {
		return apperrors.NewDataAccess("campaign log reply", err)
	}
	return requireRow(res, "campaign log", id)
}

var _ CampaignLogRepositoryInterface = (*CampaignLogRepository)(nil)
