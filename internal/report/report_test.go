package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digitaldrywood/acreditacion/internal/records"
)

func TestBuild(t *testing.T) {
	visits := []records.Accreditation{
		{Name: "Juan", Venue: "Local B", Accredited: records.Accredited},
		{Name: "María", Venue: "Local A", Accredited: records.NotAccredited},
		{Name: "Pedro", Venue: "Local A", Accredited: records.Accredited},
		{Name: "Ana", Venue: ""},
		{Name: "  "},
	}
	staff := []records.RosterEntry{
		{Name: "Carla", Accredited: records.Accredited},
		{Name: "Bruno", Accredited: records.NotAccredited},
		{Name: ""},
	}

	s := Build("Evento", visits, staff)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Accredited)
	assert.Equal(t, 2, s.Pending())
	assert.Equal(t, 2, s.Staff)
	assert.Equal(t, 1, s.StaffIn)

	require.Len(t, s.Venues, 3)
	assert.Equal(t, VenueTotals{Venue: "(sin local)", Total: 1}, s.Venues[0])
	assert.Equal(t, VenueTotals{Venue: "Local A", Total: 2, Accredited: 1}, s.Venues[1])
	assert.Equal(t, 0, s.Venues[2].Pending())
}

func TestFormat(t *testing.T) {
	s := Build("Evento", []records.Accreditation{
		{Name: "Juan", Venue: "Local A", Accredited: records.Accredited},
		{Name: "María", Venue: "Local A", Accredited: records.NotAccredited},
	}, nil)

	out := Format(s)
	assert.Contains(t, out, "=== Acreditación: Evento ===")
	assert.Contains(t, out, "Acreditadas: 1 (50%)")
	assert.Contains(t, out, "Local A")
	assert.NotContains(t, out, "Servidumbre")
}

func TestFormat_Empty(t *testing.T) {
	out := Format(Build("Vacío", nil, nil))
	assert.Contains(t, out, "Acreditadas: 0 (0%)")
	assert.NotContains(t, out, "Por local")
}
