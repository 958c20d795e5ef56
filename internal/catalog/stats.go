package catalog

import (
	"fmt"
	"strings"

	"github.com/kakomon/admin/internal/models"
)

type SchoolStats struct {
	Total        int    `json:"total"`
	SubjectCount int    `json:"subject_count"`
	Subjects     string `json:"subjects"`
	YearCount    int    `json:"year_count"`
	YearRange    string `json:"year_range"`
}

// Stats summarizes one school. Subjects appear in first-seen order. The year
// range covers known years only.
func Stats(s SchoolGroup) SchoolStats {
	var (
		subjects     []string
		seenSubjects = make(map[string]bool)
		minYear      int
		maxYear      int
	)
	st := SchoolStats{YearCount: len(s.Years)}
	for _, y := range s.Years {
		for _, d := range y.Documents {
			st.Total++
			if !seenSubjects[d.Subject] {
				seenSubjects[d.Subject] = true
				subjects = append(subjects, models.SubjectLabel(d.Subject))
			}
			if d.Year <= 0 {
				continue
			}
			if minYear == 0 || d.Year < minYear {
				minYear = d.Year
			}
			if d.Year > maxYear {
				maxYear = d.Year
			}
		}
	}
	st.SubjectCount = len(subjects)
	st.Subjects = strings.Join(subjects, ", ")
	if maxYear == 0 {
		st.YearRange = models.UnknownYear
	} else {
		st.YearRange = fmt.Sprintf("%d - %d", minYear, maxYear)
	}
	return st
}
