package domain

import (
	"slices"
	"time"
)

// Clone returns a deep copy of g. Cached records are shared, so values handed
// to callers are copies.
func (g Grave) Clone() Grave {
	if g.Deceased != nil {
		deceased := make([]DeceasedPerson, len(g.Deceased))
		for i, d := range g.Deceased {
			d.DateOfDeath = cloneTime(d.DateOfDeath)
			deceased[i] = d
		}
		g.Deceased = deceased
	}
	if g.Owner != nil {
		owner := *g.Owner
		g.Owner = &owner
	}
	g.PaymentValidUntil = cloneTime(g.PaymentValidUntil)
	return g
}

func (g PublicGrave) Clone() PublicGrave {
	if g.YearOfDeath != nil {
		y := *g.YearOfDeath
		g.YearOfDeath = &y
	}
	return g
}

func (t PublicTile) Clone() PublicTile {
	t.Deceased = slices.Clone(t.Deceased)
	return t
}

func (l CemeteryLayout) Clone() CemeteryLayout {
	if l.Alleys != nil {
		alleys := make([]Alley, len(l.Alleys))
		for i, a := range l.Alleys {
			a.GraveIDs = slices.Clone(a.GraveIDs)
			alleys[i] = a
		}
		l.Alleys = alleys
	}
	return l
}

// CloneAll deep-copies every element of s with clone.
func CloneAll[T any](s []T, clone func(T) T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	for i, v := range s {
		out[i] = clone(v)
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
