package repository

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"

	apperrors "github.com/victor-igor/wacrm-backend/internal/errors"
	"github.com/victor-igor/wacrm-backend/internal/model"
)

type ContactRepositoryInterface interface {
	GetByID(id uuid.UUID) (*model.Contact, error)
	ListAll() ([]model.Contact, error)
	ListByTag(tag string) ([]model.Contact, error)
	ListByIDs(ids []uuid.UUID) ([]model.Contact, error)
}

type ContactRepository struct {
	DB *sql.DB
}

const contactColumns = `id, phone, name, tags, created_at`

func (r *ContactRepository) GetByID(id uuid.UUID) (*model.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id=$1`
	var c model.Contact
	err := r.DB.QueryRow(query, id).Scan(&c.ID, &c.Phone, &c.Name, pq.Array(&c.Tags), &c.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NewNotFound("contact", id.String())
		}
		return nil, apperrors.NewDataAccess("contact select", err)
	}
	return &c, nil
}

func (r *ContactRepository) ListAll() ([]model.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts ORDER BY created_at ASC`
	rows, err := r.DB.Query(query)
	if err != nil {
		return nil, apperrors.NewDataAccess("contact list", err)
	}
	defer rows.Close()
	return collectContacts(rows)
}

// ListByTag matches contacts whose tags array contains the given tag.
func (r *ContactRepository) ListByTag(tag string) ([]model.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE tags @> $1 ORDER BY created_at ASC`
	rows, err := r.DB.Query(query, pq.Array([]string{tag}))
	if err != nil {
		return nil, apperrors.NewDataAccess("contact list by tag", err)
	}
	defer rows.Close()
	return collectContacts(rows)
}

func (r *ContactRepository) ListByIDs(ids []uuid.UUID) ([]model.Contact, error) {
	if len(ids) == 0 {
		return []model.Contact{}, nil
	}
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id = ANY($1) ORDER BY created_at ASC`
	rows, err := r.DB.Query(query, pq.Array(ids))
	if err != nil {
		return nil, apperrors.NewDataAccess("contact list by ids", err)
	}
	defer rows.Close()
	return collectContacts(rows)
}

func collectContacts(rows *sql.Rows) ([]model.Contact, error) {
	contacts := []model.Contact{}
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(&c.ID, &c.Phone, &c.Name, pq.Array(&c.Tags), &c.CreatedAt); err != nil {
			return nil, apperrors.NewDataAccess("contact scan", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDataAccess("contact rows", err)
	}
	return contacts, nil
}

var _ ContactRepositoryInterface = (*ContactRepository)(nil)
