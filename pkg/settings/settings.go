// Package settings reads the flat key/value runtime-configuration store that
// gates optional behavior of the propagation core: audit recording for read
// and write operations, and debug display of developer messages.
//
// Values are free text. A value is interpreted as true when it passes
// [Truthy]: a case-insensitive prefix test accepting values that start with
// "y", "t" or "1". Everything else, including absence, is false, which makes
// every gated feature strictly additive and disabled by default.
//
// The store is read-mostly. Load it into an immutable [Snapshot] and thread
// the snapshot explicitly through the API; refresh cadence is the
// integrator's decision. [Cache] adds a Redis read-through layer for
// deployments where many frames share one settings table.
package settings

import "strings"

// Keys consumed by the propagation core.
const (
	// KeyAuditReads gates audit-entry creation for read-only operations.
	KeyAuditReads = "AuditReadOperations"

	// KeyAuditWrites gates audit-entry creation for write operations.
	KeyAuditWrites = "AuditWriteOperations"

	// KeyDebugDisplay gates inclusion of developer messages in rendered
	// failure text.
	KeyDebugDisplay = "DebugDisplay"
)

// Truthy reports whether a free-text setting value is enabled: true when the
// value starts with "y", "t" or "1", case-insensitively. Empty values are
// false.
func Truthy(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	switch value[0] {
	case 'y', 'Y', 't', 'T', '1':
		return true
	}
	return false
}

// Setting is one configuration row.
type Setting struct {
	Key         string
	Value       string
	Description string
}

// Snapshot is an immutable view of the settings table, ordered by key
// insertion. Safe for concurrent use.
type Snapshot struct {
	keys   []string
	values map[string]string
}

// NewSnapshot builds a snapshot from rows. Later duplicates of a key
// overwrite earlier values, keeping the key's original position.
func NewSnapshot(rows []Setting) *Snapshot {
	s := &Snapshot{values: make(map[string]string, len(rows))}
	for _, r := range rows {
		if _, exists := s.values[r.Key]; !exists {
			s.keys = append(s.keys, r.Key)
		}
		s.values[r.Key] = r.Value
	}
	return s
}

// Get returns the raw value for key and whether it is present.
func (s *Snapshot) Get(key string) (string, bool) {
	if s == nil {
		return "", false
	}
	v, ok := s.values[key]
	return v, ok
}

// Bool reports whether key holds a truthy value. Missing keys are false.
func (s *Snapshot) Bool(key string) bool {
	v, ok := s.Get(key)
	return ok && Truthy(v)
}

// Keys returns the snapshot's keys in load order.
func (s *Snapshot) Keys() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}
