// Package report summarises accreditation progress for the terminal.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/digitaldrywood/acreditacion/internal/records"
)

type VenueTotals struct {
	Venue      string
	Total      int
	Accredited int
}

func (v VenueTotals) Pending() int {
	return v.Total - v.Accredited
}

type Summary struct {
	Title      string
	Total      int
	Accredited int
	Venues     []VenueTotals
	Staff      int
	StaffIn    int
}

func (s *Summary) Pending() int {
	return s.Total - s.Accredited
}

const noVenue = "(sin local)"

// Build counts accredited visitors overall and per venue, plus staff
// accredited on the roster. Blank rows are skipped.
func Build(title string, visits []records.Accreditation, staff []records.RosterEntry) *Summary {
	s := &Summary{Title: title}

	byVenue := make(map[string]*VenueTotals)
	for _, a := range visits {
		if strings.TrimSpace(a.Name) == "" {
			continue
		}
		venue := strings.TrimSpace(a.Venue)
		if venue == "" {
			venue = noVenue
		}
		vt, ok := byVenue[venue]
		if !ok {
			vt = &VenueTotals{Venue: venue}
			byVenue[venue] = vt
		}

		s.Total++
		vt.Total++
		if a.Accredited == records.Accredited {
			s.Accredited++
			vt.Accredited++
		}
	}

	for _, vt := range byVenue {
		s.Venues = append(s.Venues, *vt)
	}
	sort.Slice(s.Venues, func(i, j int) bool {
		return s.Venues[i].Venue < s.Venues[j].Venue
	})

	for _, e := range staff {
		if strings.TrimSpace(e.Name) == "" {
			continue
		}
		s.Staff++
		if e.Accredited == records.Accredited {
			s.StaffIn++
		}
	}

	return s
}

func Format(s *Summary) string {
	var output strings.Builder

	output.WriteString(fmt.Sprintf("=== Acreditación: %s ===\n\n", s.Title))

	output.WriteString("🧾 Visitas:\n")
	output.WriteString(fmt.Sprintf("  • Total: %d\n", s.Total))
	output.WriteString(fmt.Sprintf("  • Acreditadas: %d (%s)\n", s.Accredited, percent(s.Accredited, s.Total)))
	output.WriteString(fmt.Sprintf("  • Pendientes: %d\n\n", s.Pending()))

	if len(s.Venues) > 0 {
		output.WriteString("🏠 Por local:\n")
		for _, v := range s.Venues {
			output.WriteString(fmt.Sprintf("  %-30s %3d/%-3d pendientes: %d\n", v.Venue, v.Accredited, v.Total, v.Pending()))
		}
		output.WriteString("\n")
	}

	if s.Staff > 0 {
		output.WriteString("🙋 Servidumbre:\n")
		output.WriteString(fmt.Sprintf("  • Acreditados: %d de %d\n", s.StaffIn, s.Staff))
	}

	return output.String()
}

func percent(n, total int) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.0f%%", float64(n)*100/float64(total))
}
