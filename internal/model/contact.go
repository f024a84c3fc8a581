package model

import (
	"time"

	"github.com/google/uuid"
)

// Contact is an addressable recipient. Tags drive tag-based audiences.
type Contact struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Phone     string    `db:"phone" json:"phone"`
	Name      string    `db:"name" json:"name"`
	Tags      []string  `db:"tags" json:"tags"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// HasTag reports whether the contact carries the given tag.
func (c *Contact) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
