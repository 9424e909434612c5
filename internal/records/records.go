// Package records maps the positional rows of the event spreadsheet's tabs to
// named fields and back.
//
// Rows carry no surrogate key: a record is identified only by its 1-based
// row number in the sheet. Inserting or deleting rows in the spreadsheet
// while records are held invalidates every held row number.
package records

import (
	"fmt"
)

// The accreditation flag values used by the sheet.
const (
	Accredited    = "Sí"
	NotAccredited = "No"
)

// firstDataRow is the sheet row of the first record; row 1 is the header.
const firstDataRow = 2

// Tab describes a fixed positional layout starting at column A.
type Tab struct {
	Name       string
	LastColumn string
	Width      int
}

var (
	AccreditationTab = Tab{Name: "Acreditación", LastColumn: "L", Width: 12}
	HostingTab       = Tab{Name: "Hospedadores", LastColumn: "E", Width: 5}
	RosterTab        = Tab{Name: "Servidumbre", LastColumn: "F", Width: 6}
)

// ReadRange is every data row of the tab, e.g. "Acreditación!A2:L".
func (t Tab) ReadRange() string {
	return fmt.Sprintf("%s!A%d:%s", t.Name, firstDataRow, t.LastColumn)
}

// RowRange is the full width of a single sheet row, e.g. "Servidumbre!A7:F7".
func (t Tab) RowRange(row int) string {
	return fmt.Sprintf("%s!A%d:%s%d", t.Name, row, t.LastColumn, row)
}

// Accreditation is one row of the Acreditación tab.
type Accreditation struct {
	Row          int    `json:"row"`
	Name         string `json:"nombre"`
	Church       string `json:"iglesia"`
	Contact      string `json:"contacto"`
	Mobilization string `json:"tipoMovilizacion"`
	PickupAt     string `json:"fechaHoraRetiro"`
	Host         string `json:"hospedador"`
	HostContact  string `json:"contactoHospedador"`
	Address      string `json:"direccion"`
	Venue        string `json:"local"`
	Accredited   string `json:"acreditaVisita"`
	AccreditedAt string `json:"fechaHora"`
	Notes        string `json:"observaciones"`
}

func accreditationFromCells(row int, c cells) Accreditation {
	return Accreditation{
		Row:          row,
		Name:         c.at(0),
		Church:       c.at(1),
		Contact:      c.at(2),
		Mobilization: c.at(3),
		PickupAt:     c.at(4),
		Host:         c.at(5),
		HostContact:  c.at(6),
		Address:      c.at(7),
		Venue:        c.at(8),
		Accredited:   c.orDefault(9, NotAccredited),
		AccreditedAt: c.at(10),
		Notes:        c.at(11),
	}
}

// Cells is the full-width row in column order.
func (a Accreditation) Cells() []interface{} {
	return []interface{}{
		a.Name,
		a.Church,
		a.Contact,
		a.Mobilization,
		a.PickupAt,
		a.Host,
		a.HostContact,
		a.Address,
		a.Venue,
		a.Accredited,
		a.AccreditedAt,
		a.Notes,
	}
}

// Host is one row of the read-only Hospedadores tab.
type Host struct {
	Row            int    `json:"row"`
	Name           string `json:"nombre"`
	Address        string `json:"direccion"`
	Contact        string `json:"contacto"`
	Venue          string `json:"local"`
	AssignedVisits string `json:"visitasAsignadas"`
}

func hostFromCells(row int, c cells) Host {
	return Host{
		Row:            row,
		Name:           c.at(0),
		Address:        c.at(1),
		Contact:        c.at(2),
		Venue:          c.at(3),
		AssignedVisits: c.at(4),
	}
}

// RosterEntry is one row of the Servidumbre tab.
type RosterEntry struct {
	Row          int    `json:"row"`
	Name         string `json:"nombre"`
	Section      string `json:"seccion"`
	Desk         string `json:"mesa"`
	Accredited   string `json:"acredita"`
	AccreditedAt string `json:"fechaHora"`
	Notes        string `json:"observaciones"`
}

func rosterFromCells(row int, c cells) RosterEntry {
	return RosterEntry{
		Row:          row,
		Name:         c.at(0),
		Section:      c.at(1),
		Desk:         c.at(2),
		Accredited:   c.orDefault(3, NotAccredited),
		AccreditedAt: c.at(4),
		Notes:        c.at(5),
	}
}

func (r RosterEntry) Cells() []interface{} {
	return []interface{}{
		r.Name,
		r.Section,
		r.Desk,
		r.Accredited,
		r.AccreditedAt,
		r.Notes,
	}
}

// cells is one API row. The API omits trailing empty cells, so any index past
// the end reads as "". Column positions are trusted as-is.
type cells []interface{}

func (c cells) at(i int) string {
	if i >= len(c) || c[i] == nil {
		return ""
	}
	if s, ok := c[i].(string); ok {
		return s
	}
	return fmt.Sprint(c[i])
}

func (c cells) orDefault(i int, fallback string) string {
	if v := c.at(i); v != "" {
		return v
	}
	return fallback
}
