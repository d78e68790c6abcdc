package domain

import (
	"errors"
	"strings"
)

// ErrProfileName is returned when a profile is saved without a name.
var ErrProfileName = errors.New("profile name is required")

// UserProfile is the self-declared profile of a signed-in principal.
type UserProfile struct {
	Name  string  `json:"name"`
	Email *string `json:"email,omitempty"`
}

// Normalize trims the fields and drops an empty email. A profile without a
// name is rejected.
func (p UserProfile) Normalize() (UserProfile, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return UserProfile{}, ErrProfileName
	}
	if p.Email != nil {
		email := strings.TrimSpace(*p.Email)
		p.Email = nil
		if email != "" {
			p.Email = &email
		}
	}
	return p, nil
}

func (p UserProfile) Clone() UserProfile {
	if p.Email != nil {
		email := *p.Email
		p.Email = &email
	}
	return p
}
