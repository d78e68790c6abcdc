package domain

import (
	"fmt"
	"time"
)

type GraveStatus string

const (
	GraveStatusFree     GraveStatus = "free"
	GraveStatusReserved GraveStatus = "reserved"
	GraveStatusUnpaid   GraveStatus = "unpaid"
	GraveStatusPaid     GraveStatus = "paid"
)

// ParseGraveStatus validates a status string against the closed set.
func ParseGraveStatus(s string) (GraveStatus, error) {
	switch st := GraveStatus(s); st {
	case GraveStatusFree, GraveStatusReserved, GraveStatusUnpaid, GraveStatusPaid:
		return st, nil
	default:
		return "", fmt.Errorf("unknown grave status %q", s)
	}
}

// Grave is a single plot record as seen by an operator.
type Grave struct {
	ID                uint64           `json:"id"`
	Alley             string           `json:"alley"`
	PlotNumber        uint64           `json:"plotNumber"`
	Status            GraveStatus      `json:"status"`
	Deceased          []DeceasedPerson `json:"deceasedPersons"`
	Owner             *GraveOwner      `json:"owner,omitempty"`
	PaymentValidUntil *time.Time       `json:"paymentValidUntil,omitempty"`
}

// Removable reports whether the registry accepts removal of the grave.
func (g Grave) Removable() bool {
	return g.Status == GraveStatusFree
}

// CheckImmutable returns the name of the first identity field that differs
// between the stored grave and an update, or "" when the update is allowed.
func (g Grave) CheckImmutable(update Grave) string {
	switch {
	case g.ID != update.ID:
		return "id"
	case g.Alley != update.Alley:
		return "alley"
	case g.PlotNumber != update.PlotNumber:
		return "plotNumber"
	}
	return ""
}

type DeceasedPerson struct {
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	YearOfDeath  int        `json:"yearOfDeath"`
	DateOfDeath  *time.Time `json:"dateOfDeath,omitempty"`
	PlaceOfDeath string     `json:"placeOfDeath"`
}

type GraveOwner struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Address   string `json:"address"`
	Phone     string `json:"phone,omitempty"`
}

// PublicGrave is the anonymous search row. Owner and payment data are not part
// of the projection at all.
type PublicGrave struct {
	Status      GraveStatus `json:"status"`
	Alley       string      `json:"alley"`
	PlotNumber  uint64      `json:"plotNumber"`
	FirstName   string      `json:"firstName"`
	LastName    string      `json:"lastName"`
	YearOfDeath *int        `json:"yearOfDeath,omitempty"`
}

// PublicOccupant is the occupant shape exposed on public tiles.
type PublicOccupant struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	YearOfDeath int    `json:"yearOfDeath"`
}

// PublicTile is the public tile map projection of a grave.
type PublicTile struct {
	ID         uint64           `json:"id"`
	Status     GraveStatus      `json:"status"`
	Alley      string           `json:"alley"`
	PlotNumber uint64           `json:"plotNumber"`
	Deceased   []PublicOccupant `json:"deceasedPersons"`
}

// GraveFilter holds the optional predicates of search-graves.
type GraveFilter struct {
	Surname     *string      `json:"surname"`
	YearOfDeath *int         `json:"yearOfDeath"`
	Owner       *string      `json:"owner"`
	Status      *GraveStatus `json:"status"`
	Locality    *string      `json:"locality"`
}

// Key returns a stable cache key for the filter.
func (f GraveFilter) Key() string {
	return fmt.Sprintf("s=%s|y=%s|o=%s|st=%s|l=%s",
		strOrNil(f.Surname), intOrNil(f.YearOfDeath), strOrNil(f.Owner),
		statusOrNil(f.Status), strOrNil(f.Locality))
}

// Statistics is the per-status grave count.
type Statistics struct {
	Total    int `json:"total"`
	Free     int `json:"free"`
	Paid     int `json:"paid"`
	Reserved int `json:"reserved"`
	Unpaid   int `json:"unpaid"`
}

func strOrNil(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func intOrNil(i *int) string {
	if i == nil {
		return "-"
	}
	return fmt.Sprint(*i)
}

func statusOrNil(s *GraveStatus) string {
	if s == nil {
		return "-"
	}
	return string(*s)
}
