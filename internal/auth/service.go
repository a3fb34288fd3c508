package auth

import (
	"context"
	"errors"
	"strings"

	"gatelist-backend/internal/models"
	"gatelist-backend/internal/tenantauth"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// LoginInput for login request body. One form serves both roles: operators
// and couples are distinguished by which credentials table matches.
type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SessionShape is the object stored in the session and returned by /me.
type SessionShape struct {
	Role        string  `json:"role"`
	Username    string  `json:"username"`
	DisplayName string  `json:"display_name"`
	CoupleID    *string `json:"couple_id"`
}

type Service struct {
	DB *gorm.DB
}

// Login verifies credentials against the Operators table first, then
// Couples. Both misses and bad passwords collapse into the same error.
func (s *Service) Login(ctx context.Context, in LoginInput) (*SessionShape, error) {
	if in.Username == "" || in.Password == "" {
		return nil, ErrUsernamePasswordRequired
	}
	username := strings.ToLower(strings.TrimSpace(in.Username))

	var op models.Operator
	err := s.DB.WithContext(ctx).Where("username = ?", username).First(&op).Error
	if err == nil {
		if bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(in.Password)) != nil {
			return nil, ErrInvalidCredentials
		}
		return &SessionShape{
			Role:        string(tenantauth.RoleOperator),
			Username:    op.Username,
			DisplayName: op.DisplayName,
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var c models.Couple
	err = s.DB.WithContext(ctx).Where("username = ?", username).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(in.Password)) != nil {
		return nil, ErrInvalidCredentials
	}
	id := c.CoupleID.String()
	return &SessionShape{
		Role:        string(tenantauth.RoleCouple),
		Username:    c.Username,
		DisplayName: c.DisplayName,
		CoupleID:    &id,
	}, nil
}

// SessionMap renders the shape for session storage (Locals map form).
func (s *SessionShape) SessionMap() map[string]interface{} {
	m := map[string]interface{}{
		"role":         s.Role,
		"username":     s.Username,
		"display_name": s.DisplayName,
	}
	if s.CoupleID != nil {
		m["couple_id"] = *s.CoupleID
	}
	return m
}

// VerifySession validates the session user map and returns the /me shape.
func VerifySession(sessionUser interface{}) (*SessionShape, error) {
	if sessionUser == nil {
		return nil, ErrNotAuthenticated
	}
	m, ok := sessionUser.(map[string]interface{})
	if !ok {
		return nil, ErrNotAuthenticated
	}
	role, _ := m["role"].(string)
	if role == "" {
		return nil, ErrNotAuthenticated
	}
	out := &SessionShape{
		Role:        role,
		Username:    str(m["username"]),
		DisplayName: str(m["display_name"]),
	}
	if v, ok := m["couple_id"].(string); ok && v != "" {
		out.CoupleID = &v
	}
	return out, nil
}

// SeedOperator ensures a bootstrap operator exists with the given
// credentials (hash computed here, nothing stored in source). No-op when the
// username is already present or when either value is empty.
func SeedOperator(ctx context.Context, db *gorm.DB, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	username = strings.ToLower(strings.TrimSpace(username))
	var existing models.Operator
	err := db.WithContext(ctx).Where("username = ?", username).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 10)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Create(&models.Operator{
		Username:     username,
		PasswordHash: string(hash),
		DisplayName:  "Operator",
	}).Error
}

func str(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
