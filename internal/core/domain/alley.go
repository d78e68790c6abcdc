package domain

// Alley is a named row of the cemetery with its ordered grave ids.
type Alley struct {
	Name     string   `json:"name"`
	GraveIDs []uint64 `json:"graveIds"`
}

// Empty reports whether the alley may be removed.
func (a Alley) Empty() bool {
	return len(a.GraveIDs) == 0
}

// CemeteryLayout is the alley layout returned by get-cemetery-layout.
type CemeteryLayout struct {
	Name        string  `json:"cemeteryName"`
	LastGraveID uint64  `json:"lastGraveId"`
	Alleys      []Alley `json:"alleys"`
}

// Alley looks up an alley by name.
func (l CemeteryLayout) Alley(name string) (Alley, bool) {
	for _, a := range l.Alleys {
		if a.Name == name {
			return a, true
		}
	}
	return Alley{}, false
}
