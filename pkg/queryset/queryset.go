// Package queryset builds Django-style filter parameters from
// include/exclude constraints over a closed enumeration.
package queryset

import (
	"sort"
	"strings"
)

// Member is the constraint for values that can participate in a Set.
// LAVA filterable fields are closed string enumerations.
type Member interface {
	~string
}

// Set accumulates the allowed values for one filterable field and
// renders them into the minimal query parameter.
//
// A freshly constructed Set carries no constraint: every value is
// acceptable and Query emits nothing. The first Include narrows the
// allowed set to exactly that value; the first Exclude starts from the
// full enumeration minus that value. Later calls add or remove single
// values. This makes
//
//	s.Exclude(e).Include(e)  // all values, no parameter
//	s.Include(e).Exclude(e)  // empty set, "field__in="
//
// deliberately different, matching the server's filter semantics.
type Set[V Member] struct {
	field  string
	all    []V
	values map[V]struct{}
}

// New creates a Set for the given field name. The full enumeration must
// be supplied explicitly so that a fully-included set can collapse back
// to "no parameter".
func New[V Member](field string, all []V) Set[V] {
	return Set[V]{field: field, all: all}
}

// Include requests that value be part of the result set. On the first
// constraining call the allowed set becomes exactly {value}; afterwards
// the value is added to whatever is already allowed.
func (s *Set[V]) Include(value V) *Set[V] {
	if s.values == nil {
		s.values = make(map[V]struct{})
	}
	s.values[value] = struct{}{}
	return s
}

// Exclude requests that value not be part of the result set. If no
// constraint exists yet, the allowed set is initialized to the full
// enumeration first.
func (s *Set[V]) Exclude(value V) *Set[V] {
	if s.values == nil {
		s.values = make(map[V]struct{}, len(s.all))
		for _, v := range s.all {
			s.values[v] = struct{}{}
		}
	}
	delete(s.values, value)
	return s
}

// Query renders the accumulated constraint as a key/value pair for a
// URL query string. ok is false when nothing needs to be emitted:
// either no constraint was ever applied, or the allowed set equals the
// full enumeration. A single allowed value renders as field=value; any
// other set renders as field__in=v1,v2,... where an empty value list is
// a valid, satisfiable-by-nothing filter.
func (s *Set[V]) Query() (key, value string, ok bool) {
	if s.values == nil {
		return "", "", false
	}
	switch n := len(s.values); {
	case n == 0:
		return s.field + "__in", "", true
	case n == 1:
		for v := range s.values {
			return s.field, string(v), true
		}
		panic("unreachable")
	case n == len(s.all):
		return "", "", false
	default:
		vals := make([]string, 0, n)
		for v := range s.values {
			vals = append(vals, string(v))
		}
		sort.Strings(vals)
		return s.field + "__in", strings.Join(vals, ","), true
	}
}
