// Package device decides which attached devices qualify for automatic forwarding.
package device

import (
	"errors"
	"sort"
)

// ErrEmptyAllowList is returned when an allow-list would contain no products.
var ErrEmptyAllowList = errors.New("allow-list must contain at least one product")

// DefaultProducts are the product identities reported by the supported headsets.
// Linux hosts report the same hardware with a "vr_" prefix.
var DefaultProducts = []string{
	"monterey",     // Quest 1
	"hollywood",    // Quest 2
	"pacific",      // Go
	"vr_monterey",  // Quest 1 (linux)
	"vr_hollywood", // Quest 2 (linux)
	"vr_pacific",   // Go (linux)
}

// AllowList is an immutable set of product identity strings.
// It is safe for concurrent use without synchronization.
type AllowList struct {
	products map[string]struct{}
}

// NewAllowList builds an AllowList from products. Empty strings are ignored;
// ErrEmptyAllowList is returned if nothing remains.
func NewAllowList(products []string) (*AllowList, error) {
	set := make(map[string]struct{}, len(products))
	for _, p := range products {
		if p == "" {
			continue
		}
		set[p] = struct{}{}
	}
	if len(set) == 0 {
		return nil, ErrEmptyAllowList
	}
	return &AllowList{products: set}, nil
}

// IsAllowed reports whether product exactly matches an allow-listed identity.
// Matching is case-sensitive; the empty product is never allowed.
func (a *AllowList) IsAllowed(product string) bool {
	if a == nil || product == "" {
		return false
	}
	_, ok := a.products[product]
	return ok
}

// Products returns the allow-listed identities in sorted order.
func (a *AllowList) Products() []string {
	out := make([]string, 0, len(a.products))
	for p := range a.products {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
