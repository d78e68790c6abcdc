package search

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/cemetery/internal/core/domain"
)

func year(y int) *int { return &y }

func sampleGraves() []domain.Grave {
	return []domain.Grave{
		{
			ID: 1, Alley: "A", PlotNumber: 1, Status: domain.GraveStatusPaid,
			Deceased: []domain.DeceasedPerson{{FirstName: "Jan", LastName: "Kowalski", YearOfDeath: 1950, PlaceOfDeath: "Krakow"}},
			Owner:    &domain.GraveOwner{FirstName: "Anna", LastName: "Nowak", Address: "Lipowa 3", Phone: "555-0101"},
		},
		{
			ID: 2, Alley: "A", PlotNumber: 2, Status: domain.GraveStatusFree,
		},
		{
			ID: 3, Alley: "B", PlotNumber: 1, Status: domain.GraveStatusUnpaid,
			Deceased: []domain.DeceasedPerson{{FirstName: "Maria", LastName: "Wisniewska", YearOfDeath: 1987, PlaceOfDeath: "Gdansk"}},
			Owner:    &domain.GraveOwner{FirstName: "Piotr", LastName: "Zielinski", Address: "Dluga 7"},
		},
	}
}

func samplePublic() []domain.PublicGrave {
	return []domain.PublicGrave{
		{Status: domain.GraveStatusPaid, Alley: "A", PlotNumber: 1, FirstName: "Jan", LastName: "Kowalski", YearOfDeath: year(1950)},
		{Status: domain.GraveStatusUnpaid, Alley: "B", PlotNumber: 1, FirstName: "Maria", LastName: "Wisniewska", YearOfDeath: year(1987)},
		{Status: domain.GraveStatusReserved, Alley: "C", PlotNumber: 4, FirstName: "Ewa", LastName: "Kowalska"},
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "kowalski", Normalize("  KowALSKI \t"))
	assert.Equal(t, "", Normalize("   "))
}

func TestIndexer_BuildIdentity(t *testing.T) {
	graves := sampleGraves()
	ix := NewIndexer(PrivilegedGraveFields)
	index := ix.Build(graves)

	require.Len(t, index, len(graves))
	for _, g := range graves {
		assert.Equal(t, PrivilegedGraveFields.Entry(g), index[GraveKey(g)])
	}
}

func TestIndexer_IncrementalMatchesFresh(t *testing.T) {
	graves := sampleGraves()
	extra := domain.Grave{
		ID: 4, Alley: "C", PlotNumber: 9,
		Deceased: []domain.DeceasedPerson{{FirstName: "Olga", LastName: "Lis", YearOfDeath: 2001}},
	}

	ix := NewIndexer(PrivilegedGraveFields)
	ix.Build(graves[:2])
	ix.Build(graves[:2])
	incremental := ix.Build(append(append([]domain.Grave{}, graves...), extra))

	fresh := NewIndexer(PrivilegedGraveFields).Build(append(append([]domain.Grave{}, graves...), extra))
	assert.Equal(t, fresh, incremental)
}

func TestIndexer_FullRebuildWhenBoundaryChanges(t *testing.T) {
	graves := sampleGraves()
	ix := NewIndexer(PrivilegedGraveFields)
	ix.Build(graves)

	reordered := []domain.Grave{graves[2], graves[0]}
	index := ix.Build(reordered)
	assert.Len(t, index, 2)
	_, stale := index[GraveKey(graves[1])]
	assert.False(t, stale, "dropped record must not survive a full rebuild")
}

func TestIndexer_FilterEmptyQuery(t *testing.T) {
	graves := sampleGraves()
	ix := NewIndexer(PrivilegedGraveFields)
	assert.Equal(t, graves, ix.Filter(graves, ""))
	assert.Equal(t, graves, ix.Filter(graves, "   "))
}

func TestIndexer_FilterPreservesOrder(t *testing.T) {
	public := samplePublic()
	ix := NewIndexer(PublicGraveFields)

	got := ix.Filter(public, "KOWALSK")
	require.Len(t, got, 2)
	assert.Equal(t, "Jan", got[0].FirstName)
	assert.Equal(t, "Ewa", got[1].FirstName)
}

func TestIndexer_FilterMonotonic(t *testing.T) {
	graves := sampleGraves()
	ix := NewIndexer(PrivilegedGraveFields)

	queries := []string{"a", "an", "ann", "anna", "anna n"}
	prev := len(graves)
	for _, q := range queries {
		got := ix.Filter(graves, q)
		assert.LessOrEqual(t, len(got), prev, "query %q widened the result", q)
		prev = len(got)
	}

	for i := 1; i < len(queries); i++ {
		narrow := ix.Filter(graves, queries[i])
		wide := ix.Filter(graves, queries[i-1])
		for _, g := range narrow {
			assert.Contains(t, wide, g)
		}
	}
}

func TestIndexer_NoCrossFieldMatch(t *testing.T) {
	ix := NewIndexer(PublicGraveFields)
	public := []domain.PublicGrave{{Alley: "A", PlotNumber: 1, FirstName: "Jan", LastName: "Kowalski"}}

	assert.Empty(t, ix.Filter(public, "jankowalski"))
	assert.Len(t, ix.Filter(public, "kowalski"), 1)
}

func TestFieldVisibility(t *testing.T) {
	graves := sampleGraves()

	privileged := NewIndexer(PrivilegedGraveFields)
	for _, q := range []string{"Nowak", "Lipowa", "555-0101", "Krakow"} {
		assert.Len(t, privileged.Filter(graves, q), 1, "privileged surface should match %q", q)
	}

	public := samplePublic()
	pub := NewIndexer(PublicGraveFields)
	for _, q := range []string{"Nowak", "Lipowa", "555-0101", "Krakow", "Gdansk", "Zielinski"} {
		assert.Empty(t, pub.Filter(public, q), "public surface must not match %q", q)
	}

	for _, g := range public {
		entry := PublicGraveFields.Entry(g)
		assert.False(t, strings.Contains(entry, "lipowa"))
	}
}

func TestPublicTileFields(t *testing.T) {
	tiles := []domain.PublicTile{
		{ID: 1, Alley: "A", PlotNumber: 1, Deceased: []domain.PublicOccupant{{FirstName: "Jan", LastName: "Kowalski", YearOfDeath: 1950}}},
		{ID: 2, Alley: "A", PlotNumber: 2},
	}
	ix := NewIndexer(PublicTileFields)
	got := ix.Filter(tiles, "1950")
	require.Len(t, got, 1)
	assert.Equal(t, uint64(1), got[0].ID)
}

func TestIndexer_Reset(t *testing.T) {
	graves := sampleGraves()
	ix := NewIndexer(PrivilegedGraveFields)
	ix.Build(graves)

	// Same fingerprint, changed middle record.
	changed := append([]domain.Grave{}, graves...)
	changed[1].Owner = &domain.GraveOwner{FirstName: "Adam", LastName: "Mazur"}
	assert.Empty(t, ix.Filter(changed, "mazur"))

	ix.Reset()
	assert.Len(t, ix.Filter(changed, "mazur"), 1)
	assert.Equal(t, len(changed), ix.Len())
}

func TestIndexer_FilterIndexesUnknownKeys(t *testing.T) {
	ix := NewIndexer(PublicGraveFields)
	rows := samplePublic()
	require.Len(t, ix.Filter(rows, "kowal"), 2)

	// Same count and boundary keys, middle row renamed: its key is new.
	renamed := samplePublic()
	renamed[1].LastName = "Zielinski"
	got := ix.Filter(renamed, "zielinski")
	require.Len(t, got, 1)
	assert.Equal(t, "Maria", got[0].FirstName)
}

func TestIndexer_FilterSourceReindexesReload(t *testing.T) {
	ix := NewIndexer(PrivilegedGraveFields)
	graves := sampleGraves()
	assert.Len(t, ix.FilterSource(graves, 1, "nowak"), 1)

	// Owner changed elsewhere; ids and count are unchanged.
	edited := sampleGraves()
	edited[0].Owner.LastName = "Lewandowska"

	assert.Len(t, ix.FilterSource(edited, 2, "lewandowska"), 1)
	assert.Empty(t, ix.FilterSource(edited, 2, "nowak"))
	assert.Equal(t, NewIndexer(PrivilegedGraveFields).Filter(edited, "lewandowska"), ix.FilterSource(edited, 2, "lewandowska"))
}

func BenchmarkIndexer_Filter(b *testing.B) {
	graves := make([]domain.Grave, 0, 5000)
	for i := 0; i < 5000; i++ {
		graves = append(graves, domain.Grave{
			ID: uint64(i + 1), Alley: fmt.Sprintf("A%d", i%20), PlotNumber: uint64(i),
			Deceased: []domain.DeceasedPerson{{FirstName: "Jan", LastName: fmt.Sprintf("Name%d", i), YearOfDeath: 1900 + i%120}},
		})
	}
	ix := NewIndexer(PrivilegedGraveFields)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ix.Filter(graves, "name42")
	}
}
