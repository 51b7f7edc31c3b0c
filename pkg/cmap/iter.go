package cmap

// Range calls fn for each key-value pair until fn returns false.
// fn must not modify the map.
func (m *Map[K, V]) Range(fn func(key K, value V) bool) {
	for _, s := range m.shards {
		s.mu.RLock()
		for k, v := range s.items {
			if !fn(k, v) {
				s.mu.RUnlock()
				return
			}
		}
		s.mu.RUnlock()
	}
}

// Upsert atomically updates or inserts a value.
// fn receives the existing value, or value when the key is absent, and
// whether the key existed. Its result is stored and returned.
func (m *Map[K, V]) Upsert(key K, value V, fn func(existing V, exists bool) V) V {
	s := m.getShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.items[key]
	if exists {
		value = fn(existing, true)
	} else {
		value = fn(value, false)
	}
	s.items[key] = value
	return value
}

// DeleteFunc removes every pair for which fn returns true and reports how
// many were removed.
func (m *Map[K, V]) DeleteFunc(fn func(key K, value V) bool) int {
	removed := 0
	for _, s := range m.shards {
		s.mu.Lock()
		for k, v := range s.items {
			if fn(k, v) {
				delete(s.items, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}
