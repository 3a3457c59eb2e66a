package http1

import "strings"

// field is one name/value pair in insertion order.
type field struct {
	name  string // case exactly as given when this value was added
	value string
}

// Header is an ordered, case-insensitive multimap of HTTP header fields.
//
// Lookup by any case of a header name returns the same values. Serialization
// walks fields in the order distinct header names were first inserted, and
// within a name, in the order values were added, preserving original casing
// on the wire while keeping lookup case-insensitive (§9).
type Header struct {
	fields []field
	// index maps a lowercased header name to the positions in fields that
	// hold a value for it, in insertion order.
	index map[string][]int
}

// NewHeader returns an empty Header ready for use.
func NewHeader() *Header {
	return &Header{index: make(map[string][]int)}
}

func lowerKey(name string) string { return strings.ToLower(name) }

// Add appends a value under name, preserving any existing values.
func (h *Header) Add(name, value string) {
	if h.index == nil {
		h.index = make(map[string][]int)
	}
	key := lowerKey(name)
	h.fields = append(h.fields, field{name: name, value: value})
	h.index[key] = append(h.index[key], len(h.fields)-1)
}

// Set replaces all existing values for name with a single value.
func (h *Header) Set(name, value string) {
	h.Del(name)
	h.Add(name, value)
}

// Get returns the first value for name (case-insensitive), or "" if absent.
func (h *Header) Get(name string) string {
	vs := h.Values(name)
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// Values returns all values for name (case-insensitive) in insertion order.
func (h *Header) Values(name string) []string {
	idxs, ok := h.index[lowerKey(name)]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, h.fields[i].value)
	}
	return out
}

// Has reports whether name has at least one value.
func (h *Header) Has(name string) bool {
	return len(h.index[lowerKey(name)]) > 0
}

// Del removes all values for name.
func (h *Header) Del(name string) {
	key := lowerKey(name)
	idxs, ok := h.index[key]
	if !ok {
		return
	}
	remove := make(map[int]bool, len(idxs))
	for _, i := range idxs {
		remove[i] = true
	}
	kept := h.fields[:0]
	for i, f := range h.fields {
		if !remove[i] {
			kept = append(kept, f)
		}
	}
	h.fields = kept
	delete(h.index, key)
	h.reindex()
}

func (h *Header) reindex() {
	h.index = make(map[string][]int, len(h.fields))
	for i, f := range h.fields {
		key := lowerKey(f.name)
		h.index[key] = append(h.index[key], i)
	}
}

// Names returns the distinct header names in the order they were first
// inserted, using the original case of first insertion.
func (h *Header) Names() []string {
	seen := make(map[string]bool, len(h.fields))
	names := make([]string, 0, len(h.fields))
	for _, f := range h.fields {
		key := lowerKey(f.name)
		if seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, f.name)
	}
	return names
}

// VisitAll calls fn once per (name, value) pair in insertion order, with name
// set to the original case first seen for that header.
func (h *Header) VisitAll(fn func(name, value string)) {
	for _, name := range h.Names() {
		for _, v := range h.Values(name) {
			fn(name, v)
		}
	}
}

// Len returns the number of distinct header names stored.
func (h *Header) Len() int {
	return len(h.index)
}

// Clone returns a deep copy of h.
func (h *Header) Clone() *Header {
	c := &Header{fields: append([]field(nil), h.fields...)}
	c.reindex()
	return c
}

// Reset clears all fields so the Header can be reused (pooling support).
func (h *Header) Reset() {
	h.fields = h.fields[:0]
	for k := range h.index {
		delete(h.index, k)
	}
}
