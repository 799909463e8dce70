package api

import (
	"context"
	"errors"
	"time"
)

// QueryTimeout is the default timeout for database queries
const QueryTimeout = 10 * time.Second

// User types carried by an authenticated principal
const (
	UserTypePatient = "patient"
	UserTypeDoctor  = "doctor"
)

// ErrForbidden is returned when a principal asks for data it may not see
var ErrForbidden = errors.New("forbidden")

// Principal is the authenticated caller
type Principal struct {
	ID       string
	Email    string
	UserType string
}

// IsDoctor reports whether the principal is a doctor
func (p Principal) IsDoctor() bool {
	return p.UserType == UserTypeDoctor
}

// IsPatient reports whether the principal is a patient
func (p Principal) IsPatient() bool {
	return p.UserType == UserTypePatient
}

// CanAccessPatient enforces that patients only read their own data while
// doctors may read any patient
func (p Principal) CanAccessPatient(patientID string) error {
	switch {
	case p.IsDoctor():
		return nil
	case p.IsPatient() && p.ID == patientID:
		return nil
	}
	return ErrForbidden
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by the auth middleware
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// WithQueryTimeout creates a context with query timeout
func WithQueryTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, QueryTimeout)
}
