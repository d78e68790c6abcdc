package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorKind is the wire discriminant of a DomainError.
type ErrorKind string

const (
	KindDuplicateAlley          ErrorKind = "duplicateAlley"
	KindAlleyNotFound           ErrorKind = "alleyNotFound"
	KindAlleyNotEmpty           ErrorKind = "alleyNotEmpty"
	KindGraveNotFound           ErrorKind = "graveNotFound"
	KindInvariantViolation      ErrorKind = "invariantViolation"
	KindInconsistentAlleyGraves ErrorKind = "inconsistentAlleyGraves"
	KindUnauthorized            ErrorKind = "unauthorized"

	// Client-side kinds for boolean manager operations.
	KindManagerExists   ErrorKind = "managerExists"
	KindManagerNotFound ErrorKind = "managerNotFound"
)

// DomainError is a deterministic business-rule rejection. It is never retried.
type DomainError struct {
	Kind    ErrorKind
	Alley   string
	GraveID uint64
	Field   string
	// Principal is set for manager errors.
	Principal string
}

func DuplicateAlley(alley string) *DomainError {
	return &DomainError{Kind: KindDuplicateAlley, Alley: alley}
}

func AlleyNotFound(alley string) *DomainError {
	return &DomainError{Kind: KindAlleyNotFound, Alley: alley}
}

func AlleyNotEmpty(alley string) *DomainError {
	return &DomainError{Kind: KindAlleyNotEmpty, Alley: alley}
}

func GraveNotFound(id uint64) *DomainError {
	return &DomainError{Kind: KindGraveNotFound, GraveID: id}
}

func InvariantViolation(field string) *DomainError {
	return &DomainError{Kind: KindInvariantViolation, Field: field}
}

func InconsistentAlleyGraves(alley string, id uint64) *DomainError {
	return &DomainError{Kind: KindInconsistentAlleyGraves, Alley: alley, GraveID: id}
}

func Unauthorized() *DomainError {
	return &DomainError{Kind: KindUnauthorized}
}

func (e *DomainError) Error() string {
	switch e.Kind {
	case KindDuplicateAlley:
		return fmt.Sprintf("alley %s already exists", e.Alley)
	case KindAlleyNotFound:
		return fmt.Sprintf("alley %s does not exist", e.Alley)
	case KindAlleyNotEmpty:
		return fmt.Sprintf("alley %s is not empty", e.Alley)
	case KindGraveNotFound:
		return fmt.Sprintf("grave %d not found", e.GraveID)
	case KindInvariantViolation:
		return fmt.Sprintf("field %s is immutable", e.Field)
	case KindInconsistentAlleyGraves:
		return fmt.Sprintf("alley %s and grave %d are inconsistent", e.Alley, e.GraveID)
	case KindManagerExists:
		return fmt.Sprintf("manager %s already exists", e.Principal)
	case KindManagerNotFound:
		return fmt.Sprintf("manager %s not found", e.Principal)
	case KindUnauthorized:
		return "unauthorized"
	default:
		return fmt.Sprintf("domain error %s", e.Kind)
	}
}

// Message is the user-facing sentence naming the violated rule.
func (e *DomainError) Message() string {
	return e.Error() + "."
}

// Is matches on kind so errors.Is(err, AlleyNotEmpty("")) style checks work
// without comparing payloads.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// AsDomainError extracts a DomainError from an error chain.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

type domainErrorPayload struct {
	Alley   string `json:"alley,omitempty"`
	GraveID uint64 `json:"graveId,omitempty"`
	Field   string `json:"field,omitempty"`
}

// MarshalJSON encodes {"__kind__": kind, kind: payload} as on the wire.
func (e *DomainError) MarshalJSON() ([]byte, error) {
	var payload any
	switch e.Kind {
	case KindUnauthorized:
		payload = nil
	default:
		payload = domainErrorPayload{Alley: e.Alley, GraveID: e.GraveID, Field: e.Field}
	}
	return json.Marshal(map[string]any{
		"__kind__":     string(e.Kind),
		string(e.Kind): payload,
	})
}

func (e *DomainError) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode domain error: %w", err)
	}
	var kind string
	if err := json.Unmarshal(raw["__kind__"], &kind); err != nil {
		return fmt.Errorf("decode domain error kind: %w", err)
	}
	out := DomainError{Kind: ErrorKind(kind)}
	if body, ok := raw[kind]; ok && string(body) != "null" {
		var p domainErrorPayload
		if err := json.Unmarshal(body, &p); err != nil {
			return fmt.Errorf("decode %s payload: %w", kind, err)
		}
		out.Alley, out.GraveID, out.Field = p.Alley, p.GraveID, p.Field
	}
	*e = out
	return nil
}
