package catalog

import (
	"net/url"
	"sort"
)

// ViewState records which schools and (school, year) pairs are expanded.
// Everything starts collapsed. Values are never mutated in place; the toggle
// functions return a new state.
type ViewState struct {
	ExpandedSchools map[string]bool `json:"expanded_schools"`
	ExpandedYears   map[string]bool `json:"expanded_years"`
}

func YearKey(school, year string) string { return school + "-" + year }

func (v ViewState) SchoolExpanded(school string) bool { return v.ExpandedSchools[school] }

func (v ViewState) YearExpanded(school, year string) bool {
	return v.ExpandedYears[YearKey(school, year)]
}

func ToggleSchool(v ViewState, school string) ViewState {
	next := v.clone()
	if next.ExpandedSchools[school] {
		delete(next.ExpandedSchools, school)
	} else {
		next.ExpandedSchools[school] = true
	}
	return next
}

func ToggleYear(v ViewState, school, year string) ViewState {
	next := v.clone()
	key := YearKey(school, year)
	if next.ExpandedYears[key] {
		delete(next.ExpandedYears, key)
	} else {
		next.ExpandedYears[key] = true
	}
	return next
}

func (v ViewState) clone() ViewState {
	next := ViewState{
		ExpandedSchools: make(map[string]bool, len(v.ExpandedSchools)),
		ExpandedYears:   make(map[string]bool, len(v.ExpandedYears)),
	}
	for k, on := range v.ExpandedSchools {
		if on {
			next.ExpandedSchools[k] = true
		}
	}
	for k, on := range v.ExpandedYears {
		if on {
			next.ExpandedYears[k] = true
		}
	}
	return next
}

// Encode writes the state as repeated "s" and "y" query parameters, sorted so
// equal states produce equal URLs.
func (v ViewState) Encode(q url.Values) {
	q.Del("s")
	q.Del("y")
	for _, k := range sortedKeys(v.ExpandedSchools) {
		q.Add("s", k)
	}
	for _, k := range sortedKeys(v.ExpandedYears) {
		q.Add("y", k)
	}
}

func DecodeViewState(q url.Values) ViewState {
	v := ViewState{ExpandedSchools: map[string]bool{}, ExpandedYears: map[string]bool{}}
	for _, s := range q["s"] {
		v.ExpandedSchools[s] = true
	}
	for _, y := range q["y"] {
		v.ExpandedYears[y] = true
	}
	return v
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k, on := range m {
		if on {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
