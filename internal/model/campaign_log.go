package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// LogStatus is the outcome recorded for one send attempt.
type LogStatus string

const (
	LogStatusSent      LogStatus = "sent"
	LogStatusDelivered LogStatus = "delivered"
	LogStatusSuccess   LogStatus = "success"
	LogStatusRead      LogStatus = "read"
	LogStatusFailed    LogStatus = "failed"
)

func (s LogStatus) Valid() bool {
	switch s {
	case LogStatusSent, LogStatusDelivered, LogStatusSuccess, LogStatusRead, LogStatusFailed:
		return true
	default:
		return false
	}
}

// IsDelivered treats "success" and "delivered" as the same outcome.
func (s LogStatus) IsDelivered() bool {
	return s == LogStatusDelivered || s == LogStatusSuccess
}

// Served reports whether this status marks the recipient as already contacted
// for the owning campaign.
func (s LogStatus) Served() bool {
	return s == LogStatusSent || s.IsDelivered()
}

// LogDetails is the structured error payload attached to failed attempts.
type LogDetails struct {
	Error string `json:"error,omitempty"`
}

func (d LogDetails) Value() (driver.Value, error) {
	return json.Marshal(d)
}

func (d *LogDetails) Scan(value any) error {
	return scanJSON(value, d, "LogDetails")
}

// DefaultMessageContent is the sentinel grouping key written when no specific
// variation text was recorded for a send.
const DefaultMessageContent = "default"

// CampaignLogEntry records exactly one send attempt for one recipient.
// Rows are immutable after insert except for replied_at, which is set
// asynchronously when an inbound reply is correlated to the send.
type CampaignLogEntry struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	CampaignID     uuid.UUID  `db:"campaign_id" json:"campaign_id"`
	ContactID      *uuid.UUID `db:"contact_id" json:"contact_id,omitempty"`
	Phone          string     `db:"phone" json:"phone"`
	Status         LogStatus  `db:"status" json:"status"`
	MessageContent string     `db:"message_content" json:"message_content"`
	Details        LogDetails `db:"details" json:"details,omitempty"`
	RepliedAt      *time.Time `db:"replied_at" json:"replied_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// VariationKey is the A/B grouping key for this entry.
func (e *CampaignLogEntry) VariationKey() string {
	if e.MessageContent == "" {
		return DefaultMessageContent
	}
	return e.MessageContent
}
