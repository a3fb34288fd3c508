package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Couple is the tenant boundary: every guest, tag and derived resource
// belongs to exactly one couple.
type Couple struct {
	CoupleID     uuid.UUID      `gorm:"column:couple_id;type:uuid;primaryKey" json:"couple_id"`
	DisplayName  string         `gorm:"column:display_name;not null" json:"display_name"`
	Username     string         `gorm:"column:username;not null;uniqueIndex" json:"username"`
	PasswordHash string         `gorm:"column:password_hash;not null" json:"-"`
	Email        *string        `gorm:"column:email" json:"email"`
	Settings     datatypes.JSON `gorm:"column:settings" json:"settings"`
	Guests       []Guest        `gorm:"foreignKey:CoupleID;constraint:OnDelete:CASCADE" json:"-"`
	Tags         []Tag          `gorm:"foreignKey:CoupleID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// TableName overrides the default pluralized lowercase name.
func (Couple) TableName() string {
	return "Couples"
}

// BeforeCreate sets UUID if not set (for DBs without gen_random_uuid).
func (c *Couple) BeforeCreate(tx *gorm.DB) error {
	if c.CoupleID == uuid.Nil {
		c.CoupleID = uuid.New()
	}
	return nil
}
