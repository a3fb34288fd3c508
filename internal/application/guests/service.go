// Package guests is the authoritative directory of guest records per couple.
// It owns creation (identifier and code allocation), lookup, mutation and tag
// association, and is the only writer for the per-couple uniqueness
// invariants on phone numbers, entry codes and tag names.
package guests

import (
	"context"
	"errors"
	"strings"

	"gatelist-backend/internal/events"
	"gatelist-backend/internal/identity"
	"gatelist-backend/internal/models"
	"gatelist-backend/internal/pkg/validation"
	"gatelist-backend/internal/tenantauth"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// maxCodeAttempts bounds the re-roll loop for entry codes. The 4-digit space
// makes exhaustion operationally near-impossible at guest-list scale, but the
// contract still needs a terminal error instead of looping forever.
const maxCodeAttempts = 30

type Service struct {
	DB     *gorm.DB
	Events *events.Publisher

	// CodeFn overrides entry-code generation (tests). Nil means identity.NewCode.
	CodeFn func() string
}

func (s *Service) newCode() string {
	if s.CodeFn != nil {
		return s.CodeFn()
	}
	return identity.NewCode()
}

// CreateGuestInput for a single guest insert.
type CreateGuestInput struct {
	Name             string  `json:"name"`
	PhoneNumber      string  `json:"phone_number"`
	CompanionAllowed bool    `json:"companion_allowed"`
	CompanionName    *string `json:"companion_name"`
	CompanionPhone   *string `json:"companion_phone"`
}

// Create inserts a guest for the couple in scope. The identifier is allocated
// once and is globally unique; the code is re-rolled until it is free within
// the couple. A phone number already present in the couple fails with
// ErrDuplicatePhone; the pre-check gives the friendly path and the composite
// unique index settles the race between two concurrent inserts.
func (s *Service) Create(ctx context.Context, scope tenantauth.Scope, in CreateGuestInput) (*models.Guest, error) {
	if scope.AllTenants {
		return nil, tenantauth.ErrTenantRequired
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, ErrInvalidInput
	}
	phone := validation.NormalizePhone(in.PhoneNumber)
	if !validation.IsValidPhone(phone) {
		return nil, ErrInvalidInput
	}

	var existing models.Guest
	err := s.DB.WithContext(ctx).
		Where("couple_id = ? AND phone_number = ?", scope.CoupleID, phone).
		First(&existing).Error
	if err == nil {
		return nil, ErrDuplicatePhone
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	g := &models.Guest{
		CoupleID:         scope.CoupleID,
		Identifier:       identity.NewIdentifier(),
		Name:             strings.TrimSpace(in.Name),
		PhoneNumber:      phone,
		CompanionAllowed: in.CompanionAllowed,
	}
	if in.CompanionAllowed {
		g.CompanionName = in.CompanionName
		if in.CompanionPhone != nil {
			p := validation.NormalizePhone(*in.CompanionPhone)
			if p != "" {
				if !validation.IsValidPhone(p) {
					return nil, ErrInvalidInput
				}
				g.CompanionPhone = &p
			}
		}
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		g.Code = s.newCode()
		var taken int64
		if err := s.DB.WithContext(ctx).Model(&models.Guest{}).
			Where("couple_id = ? AND code = ?", scope.CoupleID, g.Code).
			Count(&taken).Error; err != nil {
			return nil, err
		}
		if taken > 0 {
			continue
		}

		err := s.DB.WithContext(ctx).Create(g).Error
		if err == nil {
			s.Events.Publish(ctx, events.Event{
				Type:     events.GuestCreated,
				CoupleID: g.CoupleID.String(),
				GuestID:  g.GuestID.String(),
			})
			return g, nil
		}
		if isUniqueViolation(err) {
			// Lost a race. If the phone slot is what filled up, this is a
			// conflict for the caller; a code collision just re-rolls.
			var dup int64
			if cErr := s.DB.WithContext(ctx).Model(&models.Guest{}).
				Where("couple_id = ? AND phone_number = ?", scope.CoupleID, phone).
				Count(&dup).Error; cErr == nil && dup > 0 {
				return nil, ErrDuplicatePhone
			}
			g.GuestID = uuid.Nil
			continue
		}
		return nil, err
	}
	return nil, ErrCodeSpaceExhausted
}

// BulkFailure reports one rejected row of a bulk import.
type BulkFailure struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// BulkResult is the outcome of a bulk import: inserted guests plus per-row
// failures. A failed row never aborts the rest.
type BulkResult struct {
	Created  []models.Guest `json:"created"`
	Failures []BulkFailure  `json:"failures"`
}

// BulkCreate imports many guests at once (CSV import lands here).
func (s *Service) BulkCreate(ctx context.Context, scope tenantauth.Scope, inputs []CreateGuestInput) (*BulkResult, error) {
	if scope.AllTenants {
		return nil, tenantauth.ErrTenantRequired
	}
	out := &BulkResult{Created: []models.Guest{}, Failures: []BulkFailure{}}
	for i, in := range inputs {
		g, err := s.Create(ctx, scope, in)
		if err != nil {
			out.Failures = append(out.Failures, BulkFailure{Index: i, Reason: err.Error()})
			continue
		}
		out.Created = append(out.Created, *g)
	}
	return out, nil
}

// List returns the guests visible in scope, tags preloaded.
func (s *Service) List(ctx context.Context, scope tenantauth.Scope) ([]models.Guest, error) {
	q := s.DB.WithContext(ctx).Preload("Tags").Order("created_at ASC")
	if !scope.AllTenants {
		q = q.Where("couple_id = ?", scope.CoupleID)
	}
	var list []models.Guest
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Get returns one guest by id within scope. Absent and cross-couple both
// come back as ErrGuestNotFound so existence never leaks across couples.
func (s *Service) Get(ctx context.Context, scope tenantauth.Scope, guestID uuid.UUID) (*models.Guest, error) {
	q := s.DB.WithContext(ctx).Preload("Tags").Where("guest_id = ?", guestID)
	if !scope.AllTenants {
		q = q.Where("couple_id = ?", scope.CoupleID)
	}
	var g models.Guest
	if err := q.First(&g).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGuestNotFound
		}
		return nil, err
	}
	return &g, nil
}

// FindByPhone looks a guest up by normalized phone within a concrete couple.
func (s *Service) FindByPhone(ctx context.Context, scope tenantauth.Scope, phone string) (*models.Guest, error) {
	if scope.AllTenants {
		return nil, tenantauth.ErrTenantRequired
	}
	var g models.Guest
	err := s.DB.WithContext(ctx).
		Where("couple_id = ? AND phone_number = ?", scope.CoupleID, validation.NormalizePhone(phone)).
		First(&g).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGuestNotFound
		}
		return nil, err
	}
	return &g, nil
}

// FindByIdentifier resolves a guest by its globally unique identifier. The
// lookup itself is cross-couple; callers exposing the result to a couple
// session must still authorize the owning couple first.
func (s *Service) FindByIdentifier(ctx context.Context, identifier string) (*models.Guest, error) {
	if identifier == "" {
		return nil, ErrGuestNotFound
	}
	var g models.Guest
	err := s.DB.WithContext(ctx).Preload("Tags").
		Where("identifier = ?", identifier).
		First(&g).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGuestNotFound
		}
		return nil, err
	}
	return &g, nil
}

// UpdateGuestInput is the allow-listed field set for guest updates. Nil means
// "leave unchanged". Identifier, code and verified are deliberately absent.
type UpdateGuestInput struct {
	Name             *string `json:"name"`
	PhoneNumber      *string `json:"phone_number"`
	CompanionAllowed *bool   `json:"companion_allowed"`
	CompanionName    *string `json:"companion_name"`
	CompanionPhone   *string `json:"companion_phone"`
}

// Update mutates the allow-listed fields. A phone change re-validates the
// (phone, couple) uniqueness excluding the guest's own row. The write is a
// column-limited update of exactly the changed fields: verified and
// rsvp_confirmed are never part of the statement, so an update racing with a
// door scan cannot carry a stale snapshot of either back into the store.
func (s *Service) Update(ctx context.Context, scope tenantauth.Scope, guestID uuid.UUID, in UpdateGuestInput) (*models.Guest, error) {
	g, err := s.Get(ctx, scope, guestID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, ErrInvalidInput
		}
		updates["name"] = strings.TrimSpace(*in.Name)
	}
	if in.PhoneNumber != nil {
		phone := validation.NormalizePhone(*in.PhoneNumber)
		if !validation.IsValidPhone(phone) {
			return nil, ErrInvalidInput
		}
		if phone != g.PhoneNumber {
			var taken int64
			if err := s.DB.WithContext(ctx).Model(&models.Guest{}).
				Where("couple_id = ? AND phone_number = ? AND guest_id <> ?", g.CoupleID, phone, g.GuestID).
				Count(&taken).Error; err != nil {
				return nil, err
			}
			if taken > 0 {
				return nil, ErrDuplicatePhone
			}
			updates["phone_number"] = phone
		}
	}

	companionAllowed := g.CompanionAllowed
	if in.CompanionAllowed != nil {
		companionAllowed = *in.CompanionAllowed
		updates["companion_allowed"] = companionAllowed
		if !companionAllowed {
			updates["companion_name"] = nil
			updates["companion_phone"] = nil
			updates["companion_rsvp"] = nil
		}
	}
	if companionAllowed {
		if in.CompanionName != nil {
			updates["companion_name"] = *in.CompanionName
		}
		if in.CompanionPhone != nil {
			p := validation.NormalizePhone(*in.CompanionPhone)
			if p != "" && !validation.IsValidPhone(p) {
				return nil, ErrInvalidInput
			}
			if p == "" {
				updates["companion_phone"] = nil
			} else {
				updates["companion_phone"] = p
			}
		}
	}

	if len(updates) > 0 {
		if err := s.DB.WithContext(ctx).Model(&models.Guest{}).
			Where("guest_id = ?", g.GuestID).
			Updates(updates).Error; err != nil {
			if isUniqueViolation(err) {
				return nil, ErrDuplicatePhone
			}
			return nil, err
		}
	}

	if err := s.DB.WithContext(ctx).Preload("Tags").
		Where("guest_id = ?", g.GuestID).
		First(g).Error; err != nil {
		return nil, err
	}
	s.Events.Publish(ctx, events.Event{
		Type:     events.GuestUpdated,
		CoupleID: g.CoupleID.String(),
		GuestID:  g.GuestID.String(),
	})
	return g, nil
}

// Delete removes a guest and its tag links within scope.
func (s *Service) Delete(ctx context.Context, scope tenantauth.Scope, guestID uuid.UUID) error {
	g, err := s.Get(ctx, scope, guestID)
	if err != nil {
		return err
	}
	if err := s.DB.WithContext(ctx).Model(g).Association("Tags").Clear(); err != nil {
		return err
	}
	if err := s.DB.WithContext(ctx).Delete(g).Error; err != nil {
		return err
	}
	s.Events.Publish(ctx, events.Event{
		Type:     events.GuestDeleted,
		CoupleID: g.CoupleID.String(),
		GuestID:  g.GuestID.String(),
	})
	return nil
}

// AssignTags replaces the guest's tag set. Every tag id must resolve to a tag
// owned by the guest's couple; any unknown or foreign id rejects the whole
// operation so no tag membership is lost silently.
func (s *Service) AssignTags(ctx context.Context, scope tenantauth.Scope, guestID uuid.UUID, tagIDs []uuid.UUID) (*models.Guest, error) {
	g, err := s.Get(ctx, scope, guestID)
	if err != nil {
		return nil, err
	}

	unique := make(map[uuid.UUID]bool, len(tagIDs))
	for _, id := range tagIDs {
		unique[id] = true
	}
	ids := make([]uuid.UUID, 0, len(unique))
	for id := range unique {
		ids = append(ids, id)
	}

	var tags []models.Tag
	if len(ids) > 0 {
		if err := s.DB.WithContext(ctx).
			Where("tag_id IN ? AND couple_id = ?", ids, g.CoupleID).
			Find(&tags).Error; err != nil {
			return nil, err
		}
	}
	if len(tags) != len(ids) {
		return nil, ErrInvalidTag
	}

	if err := s.DB.WithContext(ctx).Model(g).Association("Tags").Replace(tags); err != nil {
		return nil, err
	}
	g.Tags = tags
	s.Events.Publish(ctx, events.Event{
		Type:     events.GuestUpdated,
		CoupleID: g.CoupleID.String(),
		GuestID:  g.GuestID.String(),
	})
	return g, nil
}

// CreateTag creates a tag for the couple in scope. (name, couple) is unique.
func (s *Service) CreateTag(ctx context.Context, scope tenantauth.Scope, name, color string) (*models.Tag, error) {
	if scope.AllTenants {
		return nil, tenantauth.ErrTenantRequired
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidInput
	}
	if color == "" {
		color = "#64748b"
	}
	if !validation.IsValidHexColor(color) {
		return nil, ErrInvalidInput
	}

	var existing models.Tag
	err := s.DB.WithContext(ctx).
		Where("couple_id = ? AND name = ?", scope.CoupleID, name).
		First(&existing).Error
	if err == nil {
		return nil, ErrDuplicateTagName
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	t := &models.Tag{CoupleID: scope.CoupleID, Name: name, Color: color}
	if err := s.DB.WithContext(ctx).Create(t).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateTagName
		}
		return nil, err
	}
	s.Events.Publish(ctx, events.Event{
		Type:     events.TagCreated,
		CoupleID: t.CoupleID.String(),
		TagID:    t.TagID.String(),
	})
	return t, nil
}

// ListTags returns the tags visible in scope.
func (s *Service) ListTags(ctx context.Context, scope tenantauth.Scope) ([]models.Tag, error) {
	q := s.DB.WithContext(ctx).Order("name ASC")
	if !scope.AllTenants {
		q = q.Where("couple_id = ?", scope.CoupleID)
	}
	var tags []models.Tag
	if err := q.Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

// DeleteTag removes a tag and its guest links within scope.
func (s *Service) DeleteTag(ctx context.Context, scope tenantauth.Scope, tagID uuid.UUID) error {
	q := s.DB.WithContext(ctx).Where("tag_id = ?", tagID)
	if !scope.AllTenants {
		q = q.Where("couple_id = ?", scope.CoupleID)
	}
	var t models.Tag
	if err := q.First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTagNotFound
		}
		return err
	}
	if err := s.DB.WithContext(ctx).Model(&t).Association("Guests").Clear(); err != nil {
		return err
	}
	if err := s.DB.WithContext(ctx).Delete(&t).Error; err != nil {
		return err
	}
	s.Events.Publish(ctx, events.Event{
		Type:     events.TagDeleted,
		CoupleID: t.CoupleID.String(),
		TagID:    t.TagID.String(),
	})
	return nil
}

// isUniqueViolation matches the unique-index errors of both backing stores
// (Postgres in production, SQLite in tests).
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
