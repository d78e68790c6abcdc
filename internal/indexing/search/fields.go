package search

import (
	"fmt"
	"strconv"

	"github.com/vietddude/cemetery/internal/core/domain"
)

// PublicGraveFields is the anonymous search surface: occupant name, year of
// death, alley and plot. Owner, phone, address and place of death are never indexed.
var PublicGraveFields = FieldSet[domain.PublicGrave]{
	Surface: "public-search",
	Key:     PublicGraveKey,
	Fields: func(g domain.PublicGrave) []string {
		fields := []string{g.FirstName, g.LastName, g.Alley, strconv.FormatUint(g.PlotNumber, 10)}
		if g.YearOfDeath != nil {
			fields = append(fields, strconv.Itoa(*g.YearOfDeath))
		}
		return fields
	},
}

// PublicTileFields indexes the public tile projection.
var PublicTileFields = FieldSet[domain.PublicTile]{
	Surface: "public-tiles",
	Key: func(t domain.PublicTile) string {
		return strconv.FormatUint(t.ID, 10)
	},
	Fields: func(t domain.PublicTile) []string {
		fields := []string{t.Alley, strconv.FormatUint(t.PlotNumber, 10)}
		for _, d := range t.Deceased {
			fields = append(fields, d.FirstName, d.LastName, strconv.Itoa(d.YearOfDeath))
		}
		return fields
	},
}

// PrivilegedGraveFields is the operator surface. It adds owner name, address,
// phone and place of death to the public fields.
var PrivilegedGraveFields = FieldSet[domain.Grave]{
	Surface: "privileged-graves",
	Key:     GraveKey,
	Fields: func(g domain.Grave) []string {
		fields := []string{g.Alley, strconv.FormatUint(g.PlotNumber, 10)}
		for _, d := range g.Deceased {
			fields = append(fields, d.FirstName, d.LastName, strconv.Itoa(d.YearOfDeath), d.PlaceOfDeath)
		}
		if g.Owner != nil {
			fields = append(fields, g.Owner.FirstName, g.Owner.LastName, g.Owner.Address, g.Owner.Phone)
		}
		return fields
	},
}

// GraveKey is the identity of an operator grave record.
func GraveKey(g domain.Grave) string {
	return strconv.FormatUint(g.ID, 10)
}

// PublicGraveKey identifies a public search row. One grave yields a row per
// occupant, so the plot alone is not unique.
func PublicGraveKey(g domain.PublicGrave) string {
	return fmt.Sprintf("%s/%d/%s/%s", g.Alley, g.PlotNumber, g.FirstName, g.LastName)
}
