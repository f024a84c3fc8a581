package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CampaignType says how a campaign is triggered.
type CampaignType string

const (
	CampaignTypeInstant   CampaignType = "instant"
	CampaignTypeScheduled CampaignType = "scheduled"
	CampaignTypeRecurring CampaignType = "recurring"
)

func (t CampaignType) String() string { return string(t) }

func (t CampaignType) Valid() bool {
	switch t {
	case CampaignTypeInstant, CampaignTypeScheduled, CampaignTypeRecurring:
		return true
	default:
		return false
	}
}

// CampaignStatus represents the lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusPending   CampaignStatus = "pending"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusCancelled CampaignStatus = "cancelled"
)

func (s CampaignStatus) String() string { return string(s) }

func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusPending, CampaignStatusActive,
		CampaignStatusPaused, CampaignStatusCompleted, CampaignStatusCancelled:
		return true
	default:
		return false
	}
}

func (s *CampaignStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}
	switch v := value.(type) {
	case string:
		*s = CampaignStatus(v)
	case []byte:
		*s = CampaignStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CampaignStatus", value)
	}
	return nil
}

func (s CampaignStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid CampaignStatus: %s", s)
	}
	return string(s), nil
}

// MessageType is the payload kind sent to recipients.
type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeImage    MessageType = "image"
	MessageTypeVideo    MessageType = "video"
	MessageTypeTemplate MessageType = "template"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeVideo, MessageTypeTemplate:
		return true
	default:
		return false
	}
}

// HasMedia reports whether this message type carries a media attachment.
func (t MessageType) HasMedia() bool {
	return t == MessageTypeImage || t == MessageTypeVideo
}

// Provider selects between the official template-based WhatsApp API and the
// unofficial free-text/media gateway.
type Provider string

const (
	ProviderOfficial   Provider = "official"
	ProviderUnofficial Provider = "unofficial"
)

func (p Provider) Valid() bool {
	return p == ProviderOfficial || p == ProviderUnofficial
}

// AudienceType says where the campaign's recipients come from.
type AudienceType string

const (
	AudienceAll AudienceType = "all"
	AudienceTag AudienceType = "tag"
	AudienceCSV AudienceType = "csv"
)

func (t AudienceType) Valid() bool {
	return t == AudienceAll || t == AudienceTag || t == AudienceCSV
}

// AudienceFilter describes the campaign audience. Value carries the tag name
// for tag audiences; ContactIDs carries the pre-resolved id list for csv
// audiences (file parsing happens upstream of this service).
type AudienceFilter struct {
	Type       AudienceType `json:"type"`
	Value      string       `json:"value,omitempty"`
	ContactIDs []string     `json:"contact_ids,omitempty"`
}

func (f *AudienceFilter) Scan(value any) error {
	return scanJSON(value, f, "AudienceFilter")
}

// RecurrenceRule expresses a recurring schedule: weekdays (0=Sunday) crossed
// with a list of "HH:MM" wall-clock times.
type RecurrenceRule struct {
	Days  []int    `json:"days"`
	Times []string `json:"times"`
}

func (r RecurrenceRule) Value() (driver.Value, error) {
	return json.Marshal(r)
}

func (r *RecurrenceRule) Scan(value any) error {
	return scanJSON(value, r, "RecurrenceRule")
}

// StringList is a jsonb-backed []string column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(value any) error {
	return scanJSON(value, l, "StringList")
}

func scanJSON(value, target any, what string) error {
	if value == nil {
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into %s", value, what)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, target)
}

// Campaign is a WhatsApp broadcast campaign.
type Campaign struct {
	ID                uuid.UUID       `db:"id" json:"id"`
	Name              string          `db:"name" json:"name"`
	Type              CampaignType    `db:"type" json:"type"`
	Status            CampaignStatus  `db:"status" json:"status"`
	ScheduleTime      *time.Time      `db:"schedule_time" json:"schedule_time,omitempty"`
	Recurrence        *RecurrenceRule `db:"recurrence" json:"recurrence,omitempty"`
	Audience          AudienceFilter  `db:"audience" json:"audience"`
	MessageType       MessageType     `db:"message_type" json:"message_type"`
	MediaURL          *string         `db:"media_url" json:"media_url,omitempty"`
	MessageVariations StringList      `db:"message_variations" json:"message_variations"`
	TemplateName      string          `db:"template_name" json:"template_name,omitempty"`
	TemplateLanguage  string          `db:"template_language" json:"template_language,omitempty"`
	DailyLimit        *int            `db:"daily_limit" json:"daily_limit,omitempty"`
	Provider          Provider        `db:"provider" json:"provider"`
	CreatedBy         string          `db:"created_by" json:"created_by"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	LastRunAt         *time.Time      `db:"last_run_at" json:"last_run_at,omitempty"`
}

// HasRun reports whether the dispatcher has fired this campaign at least once.
func (c *Campaign) HasRun() bool {
	return c.LastRunAt != nil
}

// Sendable reports whether the dispatcher may consider this campaign at all.
func (c *Campaign) Sendable() bool {
	return c.Status == CampaignStatusPending || c.Status == CampaignStatusActive
}
