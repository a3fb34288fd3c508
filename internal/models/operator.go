package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Operator is a privileged account that may act on any couple.
type Operator struct {
	OperatorID   uuid.UUID `gorm:"column:operator_id;type:uuid;primaryKey" json:"operator_id"`
	Username     string    `gorm:"column:username;not null;uniqueIndex" json:"username"`
	PasswordHash string    `gorm:"column:password_hash;not null" json:"-"`
	DisplayName  string    `gorm:"column:display_name;not null" json:"display_name"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName overrides the default pluralized lowercase name.
func (Operator) TableName() string {
	return "Operators"
}

// BeforeCreate sets UUID if not set (for DBs without gen_random_uuid).
func (o *Operator) BeforeCreate(tx *gorm.DB) error {
	if o.OperatorID == uuid.Nil {
		o.OperatorID = uuid.New()
	}
	return nil
}
