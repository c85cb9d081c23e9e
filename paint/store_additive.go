package paint

import (
	"slices"
	"time"
)

// additivePerLayer is the additive capacity per catalog entry.
const additivePerLayer = 100

// AdditiveStore applies every added layer, oldest first.  Erase drops the
// oldest layer; the special effect reverses the order.
type AdditiveStore struct {
	layers []*Layer // head (oldest) first
	limit  int
}

// NewAdditiveStore returns a store that holds up to
// len(catalog)*100 layers.
func NewAdditiveStore(catalog Catalog) *AdditiveStore {
	return &AdditiveStore{limit: len(catalog) * additivePerLayer}
}

// Add appends l unless the store is full.
func (s *AdditiveStore) Add(l *Layer) bool {
	if len(s.layers) >= s.limit {
		return false
	}
	s.layers = append(s.layers, l)
	return true
}

// Erase removes the oldest layer.  The argument is ignored.
func (s *AdditiveStore) Erase(*Layer) bool {
	if len(s.layers) == 0 {
		return false
	}
	s.layers[0] = nil
	s.layers = s.layers[1:]
	return true
}

// Special reverses the application order.
func (s *AdditiveStore) Special() {
	slices.Reverse(s.layers)
}

func (s *AdditiveStore) Color(start Color, ts time.Duration, x, y int) Color {
	for _, l := range s.layers {
		start = l.Apply(start, ts, x, y)
	}
	return start
}

// Len returns the number of stored layers.
func (s *AdditiveStore) Len() int { return len(s.layers) }

// Cap returns the store's capacity.
func (s *AdditiveStore) Cap() int { return s.limit }
