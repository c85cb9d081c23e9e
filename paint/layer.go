package paint

import (
	"cmp"
	"time"
)

// Layer is one named color transformation.  Index is its position in the
// Catalog it belongs to; Name orders layers for the sequence special rule.
type Layer struct {
	Index int
	Name  string
	Fn    ApplyFunc
}

// Apply runs the layer's transform.  A layer without a transform is the
// identity.
func (l *Layer) Apply(c Color, ts time.Duration, x, y int) Color {
	if l == nil || l.Fn == nil {
		return c
	}
	return l.Fn(c, ts, x, y)
}

// compareNames orders layers by name, then by index.
func compareNames(a, b *Layer) int {
	if c := cmp.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return cmp.Compare(a.Index, b.Index)
}

// Catalog is the read-only, index-ordered list of layers available to a
// grid.  Catalog[i].Index == i.
type Catalog []*Layer

// NewCatalog builds a catalog from names and transforms, assigning indices
// in argument order.
func NewCatalog(layers ...Layer) Catalog {
	c := make(Catalog, len(layers))
	for i := range layers {
		l := layers[i]
		l.Index = i
		c[i] = &l
	}
	return c
}

// Layer returns the layer at index i, or nil.
func (c Catalog) Layer(i int) *Layer {
	if i < 0 || i >= len(c) {
		return nil
	}
	return c[i]
}

// Find returns the layer named name, or nil.
func (c Catalog) Find(name string) *Layer {
	for _, l := range c {
		if l.Name == name {
			return l
		}
	}
	return nil
}
