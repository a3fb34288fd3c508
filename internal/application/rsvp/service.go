// Package rsvp records guest-submitted attendance responses. The identifier
// from the invite link is the capability: no session or couple credential is
// involved, and resubmission simply overwrites the previous answer.
package rsvp

import (
	"context"
	"errors"

	"gatelist-backend/internal/events"
	"gatelist-backend/internal/models"
	"gatelist-backend/internal/pkg/validation"

	"gorm.io/gorm"
)

var ErrGuestNotFound = errors.New("Guest not found")

type Service struct {
	DB     *gorm.DB
	Events *events.Publisher
}

// Response is a guest's attendance answer. Companion fields are honored only
// when the guest is allowed a plus-one.
type Response struct {
	Attending          bool    `json:"attending"`
	CompanionName      *string `json:"companion_name"`
	CompanionPhone     *string `json:"companion_phone"`
	CompanionAttending *bool   `json:"companion_attending"`
}

// Submit records (or overwrites) the guest's response. It mutates
// rsvp_confirmed and the companion fields and never touches verified.
func (s *Service) Submit(ctx context.Context, identifier string, in Response) (*models.Guest, error) {
	if identifier == "" {
		return nil, ErrGuestNotFound
	}
	var g models.Guest
	err := s.DB.WithContext(ctx).Where("identifier = ?", identifier).First(&g).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGuestNotFound
		}
		return nil, err
	}

	updates := map[string]interface{}{
		"rsvp_confirmed": in.Attending,
	}
	if g.CompanionAllowed && in.Attending {
		if in.CompanionName != nil {
			updates["companion_name"] = *in.CompanionName
		}
		if in.CompanionPhone != nil {
			updates["companion_phone"] = validation.NormalizePhone(*in.CompanionPhone)
		}
		if in.CompanionAttending != nil {
			updates["companion_rsvp"] = *in.CompanionAttending
		}
	}
	if !in.Attending {
		// A declined guest brings nobody.
		updates["companion_rsvp"] = nil
	}

	if err := s.DB.WithContext(ctx).Model(&models.Guest{}).
		Where("guest_id = ?", g.GuestID).
		Updates(updates).Error; err != nil {
		return nil, err
	}

	if err := s.DB.WithContext(ctx).Preload("Tags").
		Where("guest_id = ?", g.GuestID).
		First(&g).Error; err != nil {
		return nil, err
	}

	s.Events.Publish(ctx, events.Event{
		Type:     events.GuestRSVP,
		CoupleID: g.CoupleID.String(),
		GuestID:  g.GuestID.String(),
	})
	return &g, nil
}

// Lookup returns the guest snapshot for the public RSVP page.
func (s *Service) Lookup(ctx context.Context, identifier string) (*models.Guest, error) {
	if identifier == "" {
		return nil, ErrGuestNotFound
	}
	var g models.Guest
	err := s.DB.WithContext(ctx).Where("identifier = ?", identifier).First(&g).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGuestNotFound
		}
		return nil, err
	}
	return &g, nil
}
