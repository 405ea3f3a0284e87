package entity

// Set is a flat entity map that preserves insertion order. It is the
// arena-by-key output of extraction: entities are addressed only by
// identity key, never by pointer.
type Set struct {
	order []Key
	items map[Key]Entity
}

// NewSet returns an empty ordered entity set.
func NewSet() *Set {
	return &Set{items: map[Key]Entity{}}
}

// Put inserts or replaces the entity under key. Replacing keeps the
// original insertion position.
func (s *Set) Put(key Key, e Entity) {
	if _, ok := s.items[key]; !ok {
		s.order = append(s.order, key)
	}
	s.items[key] = e
}

// Get returns the entity stored under key.
func (s *Set) Get(key Key) (Entity, bool) {
	e, ok := s.items[key]
	return e, ok
}

// Len returns the number of entities in the set.
func (s *Set) Len() int {
	return len(s.order)
}

// Keys returns the identity keys in insertion order.
func (s *Set) Keys() []Key {
	keys := make([]Key, len(s.order))
	copy(keys, s.order)
	return keys
}

// KeysOfType returns insertion-ordered keys whose entity carries the
// given type discriminator.
func (s *Set) KeysOfType(typeName string) []Key {
	var keys []Key
	for _, key := range s.order {
		if s.items[key].TypeName() == typeName {
			keys = append(keys, key)
		}
	}
	return keys
}

// CountByType tallies entities per type discriminator.
func (s *Set) CountByType() map[string]int {
	counts := map[string]int{}
	for _, key := range s.order {
		counts[s.items[key].TypeName()]++
	}
	return counts
}

// Each visits entities in insertion order.
func (s *Set) Each(fn func(key Key, e Entity)) {
	for _, key := range s.order {
		fn(key, s.items[key])
	}
}
