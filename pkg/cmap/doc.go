// Package cmap provides a sharded concurrent map.
//
// Each shard has its own RWMutex, so writers on different keys rarely
// contend. Keys are spread over shards with hash/maphash.
//
// Usage:
//
//	m := cmap.New[string, time.Time]()
//	m.Set("3EB0C431C26A1916", time.Now())
//	_, ok := m.Get("3EB0C431C26A1916")
//
// Range and DeleteFunc visit one shard at a time; they do not observe a
// consistent snapshot of the whole map.
package cmap
