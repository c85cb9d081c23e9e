package paint

import (
	"slices"
	"time"
)

// SequenceStore enables or disables each catalog layer independently and
// applies the enabled ones in index order.
type SequenceStore struct {
	catalog Catalog
	enabled []bool // by layer index
}

func NewSequenceStore(catalog Catalog) *SequenceStore {
	return &SequenceStore{
		catalog: catalog,
		enabled: make([]bool, len(catalog)),
	}
}

// Add enables l if it is currently disabled.
func (s *SequenceStore) Add(l *Layer) bool {
	if !s.known(l) || s.enabled[l.Index] {
		return false
	}
	s.enabled[l.Index] = true
	return true
}

// Erase disables l if it is currently enabled.
func (s *SequenceStore) Erase(l *Layer) bool {
	if !s.known(l) || !s.enabled[l.Index] {
		return false
	}
	s.enabled[l.Index] = false
	return true
}

func (s *SequenceStore) known(l *Layer) bool {
	return l != nil && l.Index >= 0 && l.Index < len(s.enabled)
}

// Special disables the enabled layer with the median name.  With an even
// number of enabled layers the lexicographically largest is set aside
// first, so the lower of the two middle names is chosen.
func (s *SequenceStore) Special() {
	s.specialLayer()
}

func (s *SequenceStore) specialLayer() *Layer {
	var on []*Layer
	for i, ok := range s.enabled {
		if ok {
			on = append(on, s.catalog[i])
		}
	}
	if len(on) == 0 {
		return nil
	}
	slices.SortFunc(on, compareNames)
	if len(on)%2 == 0 {
		on = on[:len(on)-1]
	}
	l := on[len(on)/2]
	s.enabled[l.Index] = false
	return l
}

func (s *SequenceStore) Color(start Color, ts time.Duration, x, y int) Color {
	for i, ok := range s.enabled {
		if ok {
			start = s.catalog[i].Apply(start, ts, x, y)
		}
	}
	return start
}

// Enabled returns the enabled layers in index order.
func (s *SequenceStore) Enabled() []*Layer {
	var out []*Layer
	for i, ok := range s.enabled {
		if ok {
			out = append(out, s.catalog[i])
		}
	}
	return out
}
