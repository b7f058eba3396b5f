package core

// RowSet is the tagged-variant output of a row-producing transform. A
// transform yields either one flat list of rows or several lists keyed
// by field name; RowSet gives both shapes a single canonical iteration
// contract so downstream consumers never need runtime type inspection.
type RowSet struct {
	keyed bool
	flat  []Row
	sets  map[string][]Row
	order []string
}

// NewRowSet wraps a flat list of rows.
func NewRowSet(rows []Row) *RowSet {
	return &RowSet{flat: rows}
}

// NewKeyedRowSet creates an empty keyed row set. Keys iterate in
// first-registration order.
func NewKeyedRowSet() *RowSet {
	return &RowSet{keyed: true, sets: make(map[string][]Row)}
}

// Add registers rows under a key. Registering a key with an empty list
// is meaningful: it records "field present but empty". Adding to an
// existing key appends.
func (s *RowSet) Add(key string, rows []Row) {
	if !s.keyed {
		s.keyed = true
		s.sets = make(map[string][]Row)
	}
	if _, seen := s.sets[key]; !seen {
		s.order = append(s.order, key)
		if rows == nil {
			rows = []Row{}
		}
		s.sets[key] = rows
		return
	}
	s.sets[key] = append(s.sets[key], rows...)
}

// Keyed reports which variant this set holds.
func (s *RowSet) Keyed() bool { return s.keyed }

// Keys returns the registered keys in first-registration order. A flat
// set has no keys.
func (s *RowSet) Keys() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Rows returns the rows under a key. For the flat variant the empty key
// returns the whole list.
func (s *RowSet) Rows(key string) []Row {
	if !s.keyed {
		if key == "" {
			return s.flat
		}
		return nil
	}
	return s.sets[key]
}

// Each invokes fn once per keyed list, or once with the empty key for
// the flat variant. This is the canonical iteration contract.
func (s *RowSet) Each(fn func(key string, rows []Row)) {
	if s == nil {
		return
	}
	if !s.keyed {
		fn("", s.flat)
		return
	}
	for _, k := range s.order {
		fn(k, s.sets[k])
	}
}

// Empty reports whether nothing was ever registered. A keyed set whose
// lists are all empty is not Empty; it found fields with no rows.
func (s *RowSet) Empty() bool {
	if s == nil {
		return true
	}
	if s.keyed {
		return len(s.order) == 0
	}
	return len(s.flat) == 0
}

// Map exposes the keyed variant as a plain map. The flat variant maps
// its rows under the empty key.
func (s *RowSet) Map() map[string][]Row {
	if s == nil {
		return nil
	}
	if !s.keyed {
		return map[string][]Row{"": s.flat}
	}
	out := make(map[string][]Row, len(s.sets))
	for k, v := range s.sets {
		out[k] = v
	}
	return out
}
