// Package editor binds one accreditation record to an editable form and
// writes it back to the sheet.
//
// The editor moves through Unselected → RecordLoaded → Dirty → Saving →
// Saved. A failed save returns to Dirty. Only the lookup engine resolving a
// record enters RecordLoaded; edits never change which record is bound.
package editor

import (
	"context"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"

	log "github.com/sirupsen/logrus"

	apperr "github.com/digitaldrywood/acreditacion/internal/errors"
	"github.com/digitaldrywood/acreditacion/internal/lookup"
	"github.com/digitaldrywood/acreditacion/internal/notice"
	"github.com/digitaldrywood/acreditacion/internal/records"
)

const (
	// DefaultTimezone is the civil timezone of accreditation timestamps.
	DefaultTimezone = "America/Santiago"
	// StampLayout renders timestamps as dd-mm-yyyy, HH:MM:SS.
	StampLayout = "02-01-2006, 15:04:05"

	savedMessage = "✅ Registro actualizado correctamente."
)

type State int

const (
	Unselected State = iota
	RecordLoaded
	Dirty
	Saving
	Saved
)

var stateNames = map[State]string{
	Unselected:   "unselected",
	RecordLoaded: "record_loaded",
	Dirty:        "dirty",
	Saving:       "saving",
	Saved:        "saved",
}

func (s State) String() string {
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	for st, name := range stateNames {
		if name == string(b) {
			*s = st
			return nil
		}
	}
	return apperr.Wrapf(apperr.ErrInvalidValue, "editor state %q", string(b))
}

// Store is the part of the record store the editor needs.
type Store interface {
	Accreditations(ctx context.Context) ([]records.Accreditation, error)
	SaveAccreditation(ctx context.Context, a records.Accreditation) error
}

type Editor struct {
	store   Store
	tokens  records.TokenSource
	notices *notice.Board
	now     func() time.Time
	loc     *time.Location

	mu     sync.Mutex
	engine *lookup.Engine
	form   records.Accreditation
	state  State
}

type Option func(*Editor)

func WithClock(now func() time.Time) Option {
	return func(e *Editor) { e.now = now }
}

func WithLocation(loc *time.Location) Option {
	return func(e *Editor) { e.loc = loc }
}

func New(store Store, tokens records.TokenSource, notices *notice.Board, opts ...Option) *Editor {
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		loc = time.UTC
	}

	e := &Editor{
		store:   store,
		tokens:  tokens,
		notices: notices,
		now:     time.Now,
		loc:     loc,
		engine:  lookup.NewEngine(),
		form:    emptyForm(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func emptyForm() records.Accreditation {
	return records.Accreditation{Accredited: records.NotAccredited}
}

// View is a consistent snapshot of the editor for rendering.
type View struct {
	State          State                 `json:"state"`
	Form           records.Accreditation `json:"form"`
	Resolved       bool                  `json:"resolved"`
	SelectedName   string                `json:"selectedName"`
	SelectedChurch string                `json:"selectedChurch"`
	NameOptions    []lookup.Option       `json:"nameOptions"`
	ChurchOptions  []lookup.Option       `json:"churchOptions"`
}

func (e *Editor) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, resolved := e.engine.Resolved()
	return View{
		State:          e.state,
		Form:           e.form,
		Resolved:       resolved,
		SelectedName:   e.engine.SelectedName(),
		SelectedChurch: e.engine.SelectedChurch(),
		NameOptions:    e.engine.NameOptions(),
		ChurchOptions:  e.engine.ChurchOptions(),
	}
}

func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Editor) Form() records.Accreditation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.form
}

// Records returns the loaded record set.
func (e *Editor) Records() []records.Accreditation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.engine.Records()
}

// Load replaces the record set from the sheet. On failure the current
// records are kept and a notice is posted.
func (e *Editor) Load(ctx context.Context) error {
	rs, err := e.store.Accreditations(ctx)
	if err != nil {
		e.notices.Error(apperr.UserMessage(err))
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.engine.SetRecords(rs)
	if r, ok := e.engine.Resolved(); ok {
		if e.state == RecordLoaded || e.state == Saved {
			e.fill(r)
		}
	} else if e.state != Unselected {
		e.form = emptyForm()
		e.state = Unselected
	}
	return nil
}

// Reset forgets records, selections and form contents.
func (e *Editor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.engine.Reset()
	e.form = emptyForm()
	e.state = Unselected
}

// SelectName binds the best match for name. An empty name clears the
// selection and the form.
func (e *Editor) SelectName(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if name == "" {
		e.clearName()
		return false
	}

	r, ok := e.engine.SelectName(name)
	if ok {
		e.fill(r)
		e.state = RecordLoaded
	}
	return ok
}

func (e *Editor) ClearName() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clearName()
}

func (e *Editor) clearName() {
	e.engine.ClearName()
	e.form = emptyForm()
	e.state = Unselected
}

// SelectChurch narrows by church. With a name already chosen a record
// matching both is bound; with no name chosen only the church field is set.
func (e *Editor) SelectChurch(church string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if church == "" {
		e.engine.ClearChurch()
		return false
	}

	r, ok := e.engine.SelectChurch(church)
	if ok {
		e.fill(r)
		e.state = RecordLoaded
		return true
	}
	if e.engine.SelectedName() == "" {
		e.form.Church = church
	}
	return false
}

func (e *Editor) SetPickup(value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.form.PickupAt = value
	e.touch()
}

func (e *Editor) SetNotes(value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.form.Notes = value
	e.touch()
}

// SetAccredited sets the accreditation flag. Entering "Sí" stamps the
// current local time; any other value clears the stamp.
func (e *Editor) SetAccredited(value string) error {
	if value != "" && value != records.Accredited && value != records.NotAccredited {
		return apperr.Wrapf(apperr.ErrInvalidValue, "accreditation flag %q", value)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if value == records.Accredited {
		if e.form.Accredited != records.Accredited || e.form.AccreditedAt == "" {
			e.form.AccreditedAt = e.stamp()
		}
	} else {
		e.form.AccreditedAt = ""
	}
	e.form.Accredited = value
	e.touch()
	return nil
}

// Save writes the bound record with the form's editable fields. It refuses,
// without any network call, when there is no session, no bound record or no
// accreditation flag.
func (e *Editor) Save(ctx context.Context) error {
	e.mu.Lock()
	if _, err := e.tokens.Token(); err != nil {
		e.mu.Unlock()
		return e.reject(apperr.ErrNoSession)
	}
	resolved, ok := e.engine.Resolved()
	if !ok {
		e.mu.Unlock()
		return e.reject(apperr.ErrNoRecord)
	}
	if strings.TrimSpace(e.form.Accredited) == "" {
		e.mu.Unlock()
		return e.reject(apperr.ErrAccreditationRequired)
	}

	updated := resolved
	updated.PickupAt = e.form.PickupAt
	updated.Accredited = e.form.Accredited
	updated.AccreditedAt = e.form.AccreditedAt
	updated.Notes = e.form.Notes
	e.state = Saving
	e.mu.Unlock()

	err := e.store.SaveAccreditation(ctx, updated)

	e.mu.Lock()
	defer e.mu.Unlock()

	if err != nil {
		e.state = Dirty
		e.notices.Error(apperr.UserMessage(err))
		return err
	}

	rs := e.engine.Records()
	for i := range rs {
		if rs[i].Row == updated.Row {
			rs[i] = updated
		}
	}
	e.engine.SetRecords(rs)

	// Edits made while the write was in flight keep the form Dirty.
	if current, ok := e.engine.Resolved(); ok && current.Row == updated.Row && e.state == Saving {
		e.state = Saved
	}
	e.notices.Info(savedMessage)
	log.WithField("row", updated.Row).WithField("accredited", updated.Accredited).Info("accreditation saved")
	return nil
}

func (e *Editor) reject(err error) error {
	e.notices.Error(apperr.UserMessage(err))
	return err
}

func (e *Editor) fill(r records.Accreditation) {
	e.form = r
	if e.form.Accredited != records.Accredited && e.form.Accredited != records.NotAccredited {
		e.form.Accredited = records.NotAccredited
	}
}

func (e *Editor) touch() {
	switch e.state {
	case RecordLoaded, Saved, Saving:
		e.state = Dirty
	}
}

func (e *Editor) stamp() string {
	return e.now().In(e.loc).Format(StampLayout)
}
