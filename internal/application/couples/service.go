// Package couples manages the tenants themselves: operator-created accounts
// that own guests, tags and settings. Deleting a couple is a hard delete that
// cascades to everything it owns.
package couples

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"gatelist-backend/internal/events"
	"gatelist-backend/internal/models"
	"gatelist-backend/internal/pkg/validation"
	"gatelist-backend/internal/tenantauth"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	DB     *gorm.DB
	Events *events.Publisher
}

type CreateCoupleInput struct {
	DisplayName string  `json:"display_name"`
	Username    string  `json:"username"`
	Password    string  `json:"password"`
	Email       *string `json:"email"`
}

// Create registers a new couple account (operator-only at the boundary).
func (s *Service) Create(ctx context.Context, in CreateCoupleInput) (*models.Couple, error) {
	if strings.TrimSpace(in.DisplayName) == "" || strings.TrimSpace(in.Username) == "" {
		return nil, ErrInvalidInput
	}
	if !validation.IsValidPassword(in.Password) {
		return nil, ErrInvalidInput
	}
	if in.Email != nil && *in.Email != "" && !validation.IsValidEmail(*in.Email) {
		return nil, ErrInvalidInput
	}

	username := strings.ToLower(strings.TrimSpace(in.Username))
	var existing models.Couple
	err := s.DB.WithContext(ctx).Where("username = ?", username).First(&existing).Error
	if err == nil {
		return nil, ErrDuplicateUsername
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), 10)
	if err != nil {
		return nil, err
	}

	c := &models.Couple{
		DisplayName:  strings.TrimSpace(in.DisplayName),
		Username:     username,
		PasswordHash: string(hash),
		Email:        in.Email,
		Settings:     datatypes.JSON([]byte("{}")),
	}
	if err := s.DB.WithContext(ctx).Create(c).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate key value") ||
			strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrDuplicateUsername
		}
		return nil, err
	}
	s.Events.Publish(ctx, events.Event{Type: events.CoupleCreated, CoupleID: c.CoupleID.String()})
	return c, nil
}

// List returns all couples (operator read-all).
func (s *Service) List(ctx context.Context) ([]models.Couple, error) {
	var list []models.Couple
	if err := s.DB.WithContext(ctx).Order("created_at ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Get returns one couple visible in scope. Cross-couple access comes back as
// the same ErrCoupleNotFound as true absence.
func (s *Service) Get(ctx context.Context, scope tenantauth.Scope, coupleID uuid.UUID) (*models.Couple, error) {
	if !scope.Covers(coupleID) {
		return nil, ErrCoupleNotFound
	}
	var c models.Couple
	if err := s.DB.WithContext(ctx).Where("couple_id = ?", coupleID).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCoupleNotFound
		}
		return nil, err
	}
	return &c, nil
}

// UpdateCoupleInput is the allow-listed field set for couple updates.
type UpdateCoupleInput struct {
	DisplayName *string        `json:"display_name"`
	Email       *string        `json:"email"`
	Password    *string        `json:"password"`
	Settings    map[string]any `json:"settings"`
}

// Allow-listed settings keys; anything else in the payload is dropped.
var allowedSettings = map[string]bool{
	"event_date":     true,
	"event_venue":    true,
	"welcome_note":   true,
	"theme_color":    true,
	"companion_note": true,
}

// Update mutates the allow-listed fields of a couple within scope.
func (s *Service) Update(ctx context.Context, scope tenantauth.Scope, coupleID uuid.UUID, in UpdateCoupleInput) (*models.Couple, error) {
	c, err := s.Get(ctx, scope, coupleID)
	if err != nil {
		return nil, err
	}

	if in.DisplayName != nil {
		if strings.TrimSpace(*in.DisplayName) == "" {
			return nil, ErrInvalidInput
		}
		c.DisplayName = strings.TrimSpace(*in.DisplayName)
	}
	if in.Email != nil {
		if *in.Email != "" && !validation.IsValidEmail(*in.Email) {
			return nil, ErrInvalidInput
		}
		c.Email = in.Email
	}
	if in.Password != nil {
		if !validation.IsValidPassword(*in.Password) {
			return nil, ErrInvalidInput
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), 10)
		if err != nil {
			return nil, err
		}
		c.PasswordHash = string(hash)
	}
	if in.Settings != nil {
		merged, err := mergeSettings(c.Settings, in.Settings)
		if err != nil {
			return nil, err
		}
		c.Settings = merged
	}

	if err := s.DB.WithContext(ctx).Save(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// Delete hard-deletes a couple and everything it owns: tag links, guests and
// tags go first so no orphan rows survive on stores without FK cascade.
func (s *Service) Delete(ctx context.Context, coupleID uuid.UUID) error {
	var c models.Couple
	if err := s.DB.WithContext(ctx).Where("couple_id = ?", coupleID).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCoupleNotFound
		}
		return err
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Join rows first; the association API resolves the join table so the
		// cleanup stays correct whatever name the store ended up with.
		var guests []models.Guest
		if err := tx.Where("couple_id = ?", coupleID).Find(&guests).Error; err != nil {
			return err
		}
		for i := range guests {
			if err := tx.Model(&guests[i]).Association("Tags").Clear(); err != nil {
				return err
			}
		}
		if err := tx.Where("couple_id = ?", coupleID).Delete(&models.Guest{}).Error; err != nil {
			return err
		}
		if err := tx.Where("couple_id = ?", coupleID).Delete(&models.Tag{}).Error; err != nil {
			return err
		}
		return tx.Delete(&c).Error
	})
	if err != nil {
		return err
	}

	s.Events.Publish(ctx, events.Event{Type: events.CoupleDeleted, CoupleID: coupleID.String()})
	return nil
}

func mergeSettings(current datatypes.JSON, patch map[string]any) (datatypes.JSON, error) {
	base := map[string]any{}
	if len(current) > 0 {
		if err := json.Unmarshal(current, &base); err != nil {
			base = map[string]any{}
		}
	}
	for k, v := range patch {
		if !allowedSettings[k] {
			continue
		}
		base[k] = v
	}
	b, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
