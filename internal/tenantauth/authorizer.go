// Package tenantauth resolves a caller's role and the couple scope it may
// act within. Every service operation takes a resolved Scope, never raw role
// strings, so the operator-vs-couple branch lives in exactly one place.
package tenantauth

import (
	"github.com/google/uuid"
)

// Role of an authenticated caller.
type Role string

const (
	// RoleOperator may act on any couple but must name one explicitly for
	// couple-scoped operations.
	RoleOperator Role = "operator"
	// RoleCouple is bound to exactly one couple; any requested target is
	// overridden with its own.
	RoleCouple Role = "couple"
)

// Caller is the parsed credential claim from the request boundary.
type Caller struct {
	Role     Role
	CoupleID string // tenant claim; only meaningful for RoleCouple
}

// Scope is the resolved tenant filter for one operation. Either a concrete
// couple id, or the explicit all-tenants marker for operator read-all —
// never ambiguous.
type Scope struct {
	CoupleID   uuid.UUID
	AllTenants bool
}

// Covers reports whether a record owned by coupleID is visible in this scope.
func (s Scope) Covers(coupleID uuid.UUID) bool {
	return s.AllTenants || s.CoupleID == coupleID
}

// Authorize resolves the scope a caller may act within.
//
// A couple caller is always pinned to its own couple; a malformed tenant
// claim is rejected outright so a stale or forged token can never widen into
// a wildcard. An operator with no requested couple gets the all-tenants
// marker; with one, the concrete scope (malformed → rejected).
func Authorize(caller Caller, requestedCoupleID string) (Scope, error) {
	switch caller.Role {
	case RoleCouple:
		id, err := uuid.Parse(caller.CoupleID)
		if err != nil {
			return Scope{}, ErrUnauthorized
		}
		return Scope{CoupleID: id}, nil
	case RoleOperator:
		if requestedCoupleID == "" {
			return Scope{AllTenants: true}, nil
		}
		id, err := uuid.Parse(requestedCoupleID)
		if err != nil {
			return Scope{}, ErrUnauthorized
		}
		return Scope{CoupleID: id}, nil
	default:
		return Scope{}, ErrUnauthorized
	}
}

// CallerFromSession extracts a Caller from the session user stored in Locals
// (map shape written at login).
func CallerFromSession(sessionUser interface{}) (Caller, error) {
	m, ok := sessionUser.(map[string]interface{})
	if !ok {
		return Caller{}, ErrUnauthorized
	}
	role, _ := m["role"].(string)
	switch Role(role) {
	case RoleOperator:
		return Caller{Role: RoleOperator}, nil
	case RoleCouple:
		coupleID, _ := m["couple_id"].(string)
		return Caller{Role: RoleCouple, CoupleID: coupleID}, nil
	default:
		return Caller{}, ErrUnauthorized
	}
}
