package paint

import "time"

// SetStore holds at most one layer.  Its special effect inverts the output
// (or blacks out an empty cell).
type SetStore struct {
	layer   *Layer
	special bool
}

func NewSetStore() *SetStore {
	return &SetStore{}
}

// Add replaces the active layer unless l is already active.
func (s *SetStore) Add(l *Layer) bool {
	if s.layer != nil && l != nil && s.layer.Index == l.Index {
		return false
	}
	if s.layer == nil && l == nil {
		return false
	}
	s.layer = l
	return true
}

// Erase clears the active layer, whatever it is.
func (s *SetStore) Erase(*Layer) bool {
	if s.layer == nil {
		return false
	}
	s.layer = nil
	return true
}

func (s *SetStore) Special() {
	s.special = !s.special
}

func (s *SetStore) Color(start Color, ts time.Duration, x, y int) Color {
	if s.layer == nil {
		if s.special {
			return Black(start, ts, x, y)
		}
		return start
	}
	c := s.layer.Apply(start, ts, x, y)
	if s.special {
		c = Invert(c, ts, x, y)
	}
	return c
}

// Active returns the active layer, or nil.
func (s *SetStore) Active() *Layer { return s.layer }
