package domain

import (
	"slices"
	"strings"
)

// Filter is a named audio effect applied by the transport.
type Filter string

const (
	FilterBassBoost Filter = "bassboost"
	FilterNightcore Filter = "nightcore"
	FilterVaporwave Filter = "vaporwave"
	Filter8D        Filter = "8d"
)

// AvailableFilters lists every filter the transport knows how to apply.
var AvailableFilters = []Filter{FilterBassBoost, FilterNightcore, FilterVaporwave, Filter8D}

// ParseFilter converts a string to a Filter.
func ParseFilter(s string) (Filter, error) {
	f := Filter(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(AvailableFilters, f) {
		return "", ErrUnknownFilter
	}
	return f, nil
}
