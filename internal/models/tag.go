package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tag groups guests within one couple. (name, couple) is unique.
type Tag struct {
	TagID    uuid.UUID `gorm:"column:tag_id;type:uuid;primaryKey" json:"tag_id"`
	CoupleID uuid.UUID `gorm:"column:couple_id;type:uuid;not null;uniqueIndex:idx_tags_couple_name,priority:1" json:"couple_id"`
	Name     string    `gorm:"column:name;not null;uniqueIndex:idx_tags_couple_name,priority:2" json:"name"`
	Color    string    `gorm:"column:color;not null;default:#64748b" json:"color"`

	Guests []Guest `gorm:"many2many:guest_tags" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName overrides the default pluralized lowercase name.
func (Tag) TableName() string {
	return "Tags"
}

// BeforeCreate sets UUID if not set (for DBs without gen_random_uuid).
func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	if t.TagID == uuid.Nil {
		t.TagID = uuid.New()
	}
	return nil
}
