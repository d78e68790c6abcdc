package domain

// Cursor is the offset pagination position sent to the registry.
type Cursor struct {
	Offset   int `json:"offset"`
	PageSize int `json:"pageSize"`
}

// Valid reports whether the cursor can be sent to the registry.
func (c Cursor) Valid() bool {
	return c.Offset >= 0 && c.PageSize > 0
}

// Page is one round trip worth of records.
// Pages are produced once and never mutated after they are returned.
type Page[T any] struct {
	Items      []T
	NextCursor *Cursor
	Total      int
}

// HasNext reports whether the registry announced another page.
func (p Page[T]) HasNext() bool {
	return p.NextCursor != nil
}

// GravePage is the wire shape of get-paginated-graves.
type GravePage struct {
	Graves      []Grave `json:"graves"`
	NextOffset  *int    `json:"nextOffset,omitempty"`
	PageSize    int     `json:"pageSize"`
	TotalGraves int     `json:"totalGraves"`
}

// ToPage converts the wire shape into a Page.
func (g GravePage) ToPage() Page[Grave] {
	p := Page[Grave]{
		Items: g.Graves,
		Total: g.TotalGraves,
	}
	if g.NextOffset != nil {
		p.NextCursor = &Cursor{Offset: *g.NextOffset, PageSize: g.PageSize}
	}
	return p
}
