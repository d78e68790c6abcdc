package domain

import (
	"encoding/json"
	"fmt"
)

// Wire discriminants of the tagged result union.
const (
	resultKindOK  = "ok"
	resultKindErr = "err"
)

// Unit is the value carried by results that only signal success.
type Unit struct{}

// Result is the sum type Ok(T) | Err(DomainError) returned by mutating
// registry operations. The zero value is an Ok carrying the zero T.
type Result[T any] struct {
	value T
	err   *DomainError
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Err wraps a domain failure. A nil error is converted to an unauthorized
// failure rather than silently becoming an Ok.
func Err[T any](e *DomainError) Result[T] {
	if e == nil {
		e = &DomainError{Kind: KindUnauthorized}
	}
	return Result[T]{err: e}
}

// IsOk reports whether the result carries a value.
func (r Result[T]) IsOk() bool {
	return r.err == nil
}

// Get returns the value, or the domain error as an error.
func (r Result[T]) Get() (T, error) {
	if r.err != nil {
		var zero T
		return zero, r.err
	}
	return r.value, nil
}

// DomainErr returns the failure, or nil for an Ok result.
func (r Result[T]) DomainErr() *DomainError {
	return r.err
}

// Match applies exactly one of the two branches.
func Match[T, R any](r Result[T], ok func(T) R, failed func(*DomainError) R) R {
	if r.err != nil {
		return failed(r.err)
	}
	return ok(r.value)
}

type resultWire struct {
	Kind string          `json:"__kind__"`
	OK   json.RawMessage `json:"ok,omitempty"`
	Err  *DomainError    `json:"err,omitempty"`
}

func (r Result[T]) MarshalJSON() ([]byte, error) {
	if r.err != nil {
		return json.Marshal(resultWire{Kind: resultKindErr, Err: r.err})
	}
	raw, err := json.Marshal(r.value)
	if err != nil {
		return nil, err
	}
	if _, isUnit := any(r.value).(Unit); isUnit {
		raw = json.RawMessage("null")
	}
	return json.Marshal(resultWire{Kind: resultKindOK, OK: raw})
}

func (r *Result[T]) UnmarshalJSON(data []byte) error {
	var w resultWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	switch w.Kind {
	case resultKindOK:
		var v T
		if len(w.OK) > 0 && string(w.OK) != "null" {
			if err := json.Unmarshal(w.OK, &v); err != nil {
				return fmt.Errorf("decode ok value: %w", err)
			}
		}
		*r = Ok(v)
	case resultKindErr:
		if w.Err == nil {
			return fmt.Errorf("decode result: err variant without payload")
		}
		*r = Err[T](w.Err)
	default:
		return fmt.Errorf("decode result: unknown kind %q", w.Kind)
	}
	return nil
}
