package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Entry is one window's assigned values.
type Entry struct {
	WindowID int
	Values   []string
}

// Mapping assigns lists of strings (domain keys or keywords) to windows.
// Windows and values keep insertion order, which the resolver uses as its
// tie-break. The zero value is an empty domain mapping.
type Mapping struct {
	entries []Entry
	fold    bool // keywords: compare case-insensitively, keep stored case
}

// NewDomainMapping returns an empty mapping of window id to domain keys.
func NewDomainMapping() Mapping { return Mapping{} }

// NewKeywordMapping returns an empty mapping of window id to keywords.
func NewKeywordMapping() Mapping { return Mapping{fold: true} }

// IsKeyword reports whether values are compared case-insensitively.
func (m Mapping) IsKeyword() bool { return m.fold }

func (m Mapping) normalize(v string) string {
	v = strings.TrimSpace(v)
	if !m.fold {
		v = strings.ToLower(v)
	}
	return v
}

func (m Mapping) same(a, b string) bool {
	if m.fold {
		return strings.EqualFold(a, b)
	}
	return a == b
}

func (m Mapping) index(windowID int) int {
	for i, e := range m.entries {
		if e.WindowID == windowID {
			return i
		}
	}
	return -1
}

// Add appends value to the window's list. It reports false when the value is
// empty or already present.
func (m *Mapping) Add(windowID int, value string) bool {
	value = m.normalize(value)
	if value == "" {
		return false
	}
	i := m.index(windowID)
	if i < 0 {
		m.entries = append(m.entries, Entry{WindowID: windowID, Values: []string{value}})
		return true
	}
	for _, v := range m.entries[i].Values {
		if m.same(v, value) {
			return false
		}
	}
	m.entries[i].Values = append(m.entries[i].Values, value)
	return true
}

// Remove deletes value from the window's list. A window left with no values
// is dropped.
func (m *Mapping) Remove(windowID int, value string) bool {
	value = m.normalize(value)
	i := m.index(windowID)
	if i < 0 {
		return false
	}
	vals := m.entries[i].Values
	for j, v := range vals {
		if m.same(v, value) {
			m.entries[i].Values = append(vals[:j:j], vals[j+1:]...)
			if len(m.entries[i].Values) == 0 {
				m.DropWindow(windowID)
			}
			return true
		}
	}
	return false
}

// DropWindow removes every value assigned to the window.
func (m *Mapping) DropWindow(windowID int) bool {
	i := m.index(windowID)
	if i < 0 {
		return false
	}
	m.entries = append(m.entries[:i:i], m.entries[i+1:]...)
	return true
}

// Windows returns the window ids in insertion order.
func (m Mapping) Windows() []int {
	ids := make([]int, 0, len(m.entries))
	for _, e := range m.entries {
		ids = append(ids, e.WindowID)
	}
	return ids
}

// Values returns the window's values in insertion order.
func (m Mapping) Values(windowID int) []string {
	if i := m.index(windowID); i >= 0 {
		return append([]string(nil), m.entries[i].Values...)
	}
	return nil
}

// Entries returns a copy of all entries in window order.
func (m Mapping) Entries() []Entry {
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, Entry{WindowID: e.WindowID, Values: append([]string(nil), e.Values...)})
	}
	return out
}

// Len returns the number of windows with assignments.
func (m Mapping) Len() int { return len(m.entries) }

// Clone returns an independent copy.
func (m Mapping) Clone() Mapping {
	return Mapping{entries: m.Entries(), fold: m.fold}
}

// MarshalJSON encodes the mapping as {"<windowId>": ["value", ...]} in
// window order.
func (m Mapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(strconv.Itoa(e.WindowID))
		buf.Write(key)
		buf.WriteByte(':')
		vals, err := json.Marshal(e.Values)
		if err != nil {
			return nil, err
		}
		buf.Write(vals)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the persisted shape, keeping the object's key order.
// Keys must be numeric window ids.
func (m *Mapping) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		m.entries = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("assignments: expected object, got %v", tok)
	}

	out := Mapping{fold: m.fold}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key := tok.(string)
		windowID, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("assignments: window id %q is not numeric", key)
		}
		var vals []string
		if err := dec.Decode(&vals); err != nil {
			return fmt.Errorf("assignments: window %s: %w", key, err)
		}
		for _, v := range vals {
			out.Add(windowID, v)
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}
