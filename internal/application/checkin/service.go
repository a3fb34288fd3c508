// Package checkin performs door check-in: it resolves a scanned or typed
// token to exactly one guest and applies the idempotent unverified→verified
// transition.
package checkin

import (
	"context"
	"errors"
	"time"

	"gatelist-backend/internal/events"
	"gatelist-backend/internal/models"
	"gatelist-backend/internal/tenantauth"

	"gorm.io/gorm"
)

// TokenKind is declared by the caller: a 4-digit code and a hex identifier
// come from different spaces and the verifier never guesses which one it got.
type TokenKind string

const (
	// KindIdentifier is the QR payload / link token, globally unique.
	KindIdentifier TokenKind = "identifier"
	// KindCode is the short numeric string typed at the door, unique only
	// within a couple — verifying by code always needs a concrete couple.
	KindCode TokenKind = "code"
)

var (
	ErrGuestNotFound    = errors.New("Guest not found")
	ErrInvalidTokenKind = errors.New("Token kind must be identifier or code")
)

// Result of a verify call. FirstScan is true only for the scan that actually
// flipped the guest to verified; repeated scans succeed with FirstScan false.
type Result struct {
	FirstScan bool          `json:"first_scan"`
	Guest     *models.Guest `json:"guest"`
}

type Service struct {
	DB     *gorm.DB
	Events *events.Publisher
}

// Verify resolves token within scope and marks the guest verified exactly
// once. A successful check-in is an implicit attendance confirmation, so the
// first scan also sets rsvp_confirmed. The transition is a single conditional
// UPDATE keyed on (guest_id, verified = false): two simultaneous scans race
// on the same row and the store serializes them, so exactly one reports
// FirstScan.
func (s *Service) Verify(ctx context.Context, scope tenantauth.Scope, kind TokenKind, token string) (*Result, error) {
	if token == "" {
		return nil, ErrGuestNotFound
	}

	q := s.DB.WithContext(ctx)
	switch kind {
	case KindIdentifier:
		// Globally unique, so the all-tenants scope is fine here.
		q = q.Where("identifier = ?", token)
		if !scope.AllTenants {
			q = q.Where("couple_id = ?", scope.CoupleID)
		}
	case KindCode:
		if scope.AllTenants {
			return nil, tenantauth.ErrTenantRequired
		}
		q = q.Where("couple_id = ? AND code = ?", scope.CoupleID, token)
	default:
		return nil, ErrInvalidTokenKind
	}

	var g models.Guest
	if err := q.First(&g).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGuestNotFound
		}
		return nil, err
	}

	now := time.Now().UTC()
	res := s.DB.WithContext(ctx).Model(&models.Guest{}).
		Where("guest_id = ? AND verified = ?", g.GuestID, false).
		Updates(map[string]interface{}{
			"verified":       true,
			"rsvp_confirmed": true,
			"verified_at":    now,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	firstScan := res.RowsAffected == 1

	if err := s.DB.WithContext(ctx).Preload("Tags").
		Where("guest_id = ?", g.GuestID).
		First(&g).Error; err != nil {
		return nil, err
	}

	if firstScan {
		s.Events.Publish(ctx, events.Event{
			Type:     events.GuestVerified,
			CoupleID: g.CoupleID.String(),
			GuestID:  g.GuestID.String(),
		})
	}
	return &Result{FirstScan: firstScan, Guest: &g}, nil
}
