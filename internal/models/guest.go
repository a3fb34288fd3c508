package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Guest belongs to exactly one Couple.
//
// Identifier is globally unique (it is the capability embedded in the
// self-service link and QR payload). Code and PhoneNumber are unique only
// within the owning couple, enforced by composite unique indexes so that a
// race between two concurrent inserts resolves to one success and one
// conflict at the store.
type Guest struct {
	GuestID     uuid.UUID `gorm:"column:guest_id;type:uuid;primaryKey" json:"guest_id"`
	CoupleID    uuid.UUID `gorm:"column:couple_id;type:uuid;not null;uniqueIndex:idx_guests_couple_phone,priority:1;uniqueIndex:idx_guests_couple_code,priority:1" json:"couple_id"`
	Identifier  string    `gorm:"column:identifier;not null;uniqueIndex" json:"identifier"`
	Code        string    `gorm:"column:code;not null;uniqueIndex:idx_guests_couple_code,priority:2" json:"code"`
	Name        string    `gorm:"column:name;not null" json:"name"`
	PhoneNumber string    `gorm:"column:phone_number;not null;uniqueIndex:idx_guests_couple_phone,priority:2" json:"phone_number"`

	RSVPConfirmed bool       `gorm:"column:rsvp_confirmed;not null;default:false" json:"rsvp_confirmed"`
	Verified      bool       `gorm:"column:verified;not null;default:false" json:"verified"`
	VerifiedAt    *time.Time `gorm:"column:verified_at" json:"verified_at"`

	CompanionAllowed bool    `gorm:"column:companion_allowed;not null;default:false" json:"companion_allowed"`
	CompanionName    *string `gorm:"column:companion_name" json:"companion_name"`
	CompanionPhone   *string `gorm:"column:companion_phone" json:"companion_phone"`
	CompanionRSVP    *bool   `gorm:"column:companion_rsvp" json:"companion_rsvp"`

	Tags []Tag `gorm:"many2many:guest_tags;constraint:OnDelete:CASCADE" json:"tags"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName overrides the default pluralized lowercase name.
func (Guest) TableName() string {
	return "Guests"
}

// BeforeCreate sets UUID if not set (for DBs without gen_random_uuid).
func (g *Guest) BeforeCreate(tx *gorm.DB) error {
	if g.GuestID == uuid.Nil {
		g.GuestID = uuid.New()
	}
	return nil
}
