package catalog

import (
	"sort"
	"strconv"

	"github.com/kakomon/admin/internal/models"
)

type Tree struct {
	Schools []SchoolGroup `json:"schools"`
	Total   int           `json:"total"`
}

type SchoolGroup struct {
	Name  string      `json:"name"`
	Years []YearGroup `json:"years"`
	Total int         `json:"total"`
}

type YearGroup struct {
	Year      string            `json:"year"`
	Documents []models.Document `json:"documents"`
}

// Group filters docs and arranges the result as school → year → document.
// Schools sort lexicographically, years newest first with the unknown bucket
// last, and documents keep their source order.
func Group(docs []models.Document, f Filter) Tree {
	bySchool := make(map[string]map[string][]models.Document)
	var tree Tree
	for _, d := range docs {
		if !f.Match(d) {
			continue
		}
		years, ok := bySchool[d.School]
		if !ok {
			years = make(map[string][]models.Document)
			bySchool[d.School] = years
		}
		key := d.YearKey()
		years[key] = append(years[key], d)
		tree.Total++
	}

	names := make([]string, 0, len(bySchool))
	for name := range bySchool {
		names = append(names, name)
	}
	sort.Strings(names)

	tree.Schools = make([]SchoolGroup, 0, len(names))
	for _, name := range names {
		years := bySchool[name]
		keys := make([]string, 0, len(years))
		for k := range years {
			keys = append(keys, k)
		}
		SortYearKeys(keys)

		sg := SchoolGroup{Name: name, Years: make([]YearGroup, 0, len(keys))}
		for _, k := range keys {
			sg.Years = append(sg.Years, YearGroup{Year: k, Documents: years[k]})
			sg.Total += len(years[k])
		}
		tree.Schools = append(tree.Schools, sg)
	}
	return tree
}

// SortYearKeys orders year keys numerically descending. The unknown bucket,
// and anything else that is not a number, goes last.
func SortYearKeys(keys []string) {
	sort.SliceStable(keys, func(i, j int) bool {
		a, aErr := strconv.Atoi(keys[i])
		b, bErr := strconv.Atoi(keys[j])
		switch {
		case aErr != nil && bErr != nil:
			return keys[i] < keys[j]
		case aErr != nil:
			return false
		case bErr != nil:
			return true
		}
		return a > b
	})
}

// Flatten lists every document in tree order.
func (t Tree) Flatten() []models.Document {
	out := make([]models.Document, 0, t.Total)
	for _, s := range t.Schools {
		for _, y := range s.Years {
			out = append(out, y.Documents...)
		}
	}
	return out
}

func (t Tree) School(name string) (SchoolGroup, bool) {
	for _, s := range t.Schools {
		if s.Name == name {
			return s, true
		}
	}
	return SchoolGroup{}, false
}

// YearOptions lists the distinct years present in docs for the year filter,
// newest first.
func YearOptions(docs []models.Document) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, d := range docs {
		k := d.YearKey()
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	SortYearKeys(keys)
	return keys
}
