// Package lookup derives pickable option sets from loaded accreditation
// records and resolves a (name, church) selection to a single record.
package lookup

import (
	"strings"

	"github.com/digitaldrywood/acreditacion/internal/records"
)

type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Distinct returns the unique non-blank values in order of first occurrence.
func Distinct(values []string) []Option {
	seen := make(map[string]struct{}, len(values))
	out := make([]Option, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, Option{Value: v, Label: v})
	}
	return out
}

// Engine holds the record set and the two selections. It is not safe for
// concurrent use; the editor serializes access.
type Engine struct {
	records  []records.Accreditation
	name     string
	church   string
	resolved *records.Accreditation
}

func NewEngine() *Engine {
	return &Engine{}
}

// SetRecords replaces the record set. A resolved record is re-bound to the
// entry with the same row, or dropped if that row vanished.
func (e *Engine) SetRecords(rs []records.Accreditation) {
	e.records = append([]records.Accreditation(nil), rs...)
	if e.resolved == nil {
		return
	}
	row := e.resolved.Row
	e.resolved = nil
	for i := range e.records {
		if e.records[i].Row == row {
			r := e.records[i]
			e.resolved = &r
			return
		}
	}
}

func (e *Engine) Records() []records.Accreditation {
	return append([]records.Accreditation(nil), e.records...)
}

// ChurchOptions lists every church in the record set.
func (e *Engine) ChurchOptions() []Option {
	values := make([]string, 0, len(e.records))
	for _, r := range e.records {
		values = append(values, r.Church)
	}
	return Distinct(values)
}

// NameOptions lists names, narrowed to the selected church if any.
func (e *Engine) NameOptions() []Option {
	values := make([]string, 0, len(e.records))
	for _, r := range e.records {
		if e.church != "" && r.Church != e.church {
			continue
		}
		values = append(values, r.Name)
	}
	return Distinct(values)
}

func (e *Engine) SelectedName() string   { return e.name }
func (e *Engine) SelectedChurch() string { return e.church }

// Resolved returns the bound record, if any.
func (e *Engine) Resolved() (records.Accreditation, bool) {
	if e.resolved == nil {
		return records.Accreditation{}, false
	}
	return *e.resolved, true
}

// SelectName resolves name, preferring a record that also matches the
// selected church and falling back to the first record with that name. The
// church selection follows the resolved record.
func (e *Engine) SelectName(name string) (records.Accreditation, bool) {
	e.name = name

	r, ok := records.Accreditation{}, false
	if e.church != "" {
		r, ok = e.find(name, e.church)
	}
	if !ok {
		r, ok = e.find(name, "")
	}
	if !ok {
		return records.Accreditation{}, false
	}

	e.resolved = &r
	e.church = r.Church
	return r, true
}

// ClearName drops the name selection and the resolved record.
func (e *Engine) ClearName() {
	e.name = ""
	e.resolved = nil
}

// SelectChurch sets the church filter. With a name selected, a record
// matching both is resolved and returned with true; otherwise the current
// resolution is left untouched and false is returned.
func (e *Engine) SelectChurch(church string) (records.Accreditation, bool) {
	e.church = church
	if e.name == "" {
		return records.Accreditation{}, false
	}
	r, ok := e.find(e.name, church)
	if !ok {
		return records.Accreditation{}, false
	}
	e.resolved = &r
	return r, true
}

// ClearChurch drops the church filter only.
func (e *Engine) ClearChurch() {
	e.church = ""
}

// Reset drops records and selections.
func (e *Engine) Reset() {
	*e = Engine{}
}

func (e *Engine) find(name, church string) (records.Accreditation, bool) {
	for _, r := range e.records {
		if r.Name != name {
			continue
		}
		if church != "" && r.Church != church {
			continue
		}
		return r, true
	}
	return records.Accreditation{}, false
}
