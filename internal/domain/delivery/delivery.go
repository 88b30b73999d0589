// Package delivery defines the fulfilment modes an order can use.
package delivery

import (
	"sort"
	"strings"

	"github.com/go-faster/errors"
)

// Type is the fulfilment mode for an order.
type Type string

const (
	// Delivery sends the order to the customer's address.
	Delivery Type = "delivery"
	// Pickup lets the customer collect the order at the store.
	Pickup Type = "pickup"
	// DineIn serves the order at the store.
	DineIn Type = "dine_in"
)

// ErrUnknownType is returned by Parse for values outside the supported set.
var ErrUnknownType = errors.New("unknown delivery type")

// All lists every supported delivery type in display order.
func All() []Type {
	return []Type{Delivery, Pickup, DineIn}
}

// Parse converts s into a Type. Dashes and case are normalised so that
// "Dine-In" and "dine_in" are equivalent.
func Parse(s string) (Type, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	switch t := Type(norm); t {
	case Delivery, Pickup, DineIn:
		return t, nil
	}
	return "", errors.Wrapf(ErrUnknownType, "%q", s)
}

// Valid reports whether t is one of the supported types.
func (t Type) Valid() bool {
	_, err := Parse(string(t))
	return err == nil
}

// Set is an unordered collection of delivery types.
type Set map[Type]struct{}

// NewSet builds a Set from the given types.
func NewSet(types ...Type) Set {
	s := make(Set, len(types))
	for _, t := range types {
		s[t] = struct{}{}
	}
	return s
}

// ParseSet parses every value and returns the resulting Set.
func ParseSet(values []string) (Set, error) {
	s := make(Set, len(values))
	for _, v := range values {
		t, err := Parse(v)
		if err != nil {
			return nil, err
		}
		s[t] = struct{}{}
	}
	return s, nil
}

// Has reports whether t is in the set.
func (s Set) Has(t Type) bool {
	_, ok := s[t]
	return ok
}

// Slice returns the set members sorted for stable output.
func (s Set) Slice() []Type {
	out := make([]Type, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings returns the set members as sorted strings.
func (s Set) Strings() []string {
	types := s.Slice()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}
