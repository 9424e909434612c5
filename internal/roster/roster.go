// Package roster is the paged, filterable staff table whose edits are written
// to the sheet as they happen.
//
// Accreditation changes are written at once. Notes edits are debounced per
// row: every keystroke restarts that row's quiet period and only the last
// value is written.
package roster

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"

	log "github.com/sirupsen/logrus"

	apperr "github.com/digitaldrywood/acreditacion/internal/errors"
	"github.com/digitaldrywood/acreditacion/internal/notice"
	"github.com/digitaldrywood/acreditacion/internal/records"
)

const (
	DefaultPageSize    = 10
	DefaultQuietPeriod = 500 * time.Millisecond

	stampLayout = "02-01-2006, 15:04:05"

	savedMessage  = "✔ Registro actualizado"
	failedMessage = "❌ Error al guardar"
)

// Store is the part of the record store the table needs.
type Store interface {
	Roster(ctx context.Context) ([]records.RosterEntry, error)
	SaveRosterEntry(ctx context.Context, r records.RosterEntry) error
}

type Table struct {
	store    Store
	notices  *notice.Board
	now      func() time.Time
	loc      *time.Location
	quiet    time.Duration
	pageSize int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu            sync.Mutex
	entries       []records.RosterEntry
	drafts        map[int]string
	timers        map[int]pendingNote
	armed         uint64
	nameFilter    string
	sectionFilter string
	visible       int
	closed        bool
}

// pendingNote is one armed notes timer. seq tells a fired timer whether it
// still owns its row.
type pendingNote struct {
	timer *time.Timer
	seq   uint64
}

type Option func(*Table)

func WithClock(now func() time.Time) Option {
	return func(t *Table) { t.now = now }
}

func WithLocation(loc *time.Location) Option {
	return func(t *Table) { t.loc = loc }
}

func WithQuietPeriod(d time.Duration) Option {
	return func(t *Table) { t.quiet = d }
}

func WithPageSize(n int) Option {
	return func(t *Table) {
		if n > 0 {
			t.pageSize = n
		}
	}
}

func New(store Store, notices *notice.Board, opts ...Option) *Table {
	loc, err := time.LoadLocation("America/Santiago")
	if err != nil {
		loc = time.UTC
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &Table{
		store:    store,
		notices:  notices,
		now:      time.Now,
		loc:      loc,
		quiet:    DefaultQuietPeriod,
		pageSize: DefaultPageSize,
		ctx:      ctx,
		cancel:   cancel,
		drafts:   make(map[int]string),
		timers:   make(map[int]pendingNote),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.visible = t.pageSize
	return t
}

// Load fetches the roster. It is the same as Reload.
func (t *Table) Load(ctx context.Context) error {
	return t.Reload(ctx)
}

// Reload replaces the rows from the sheet, keeping filters, the visible
// window and any unsent notes drafts.
func (t *Table) Reload(ctx context.Context) error {
	entries, err := t.store.Roster(ctx)
	if err != nil {
		t.notices.Error(apperr.UserMessage(err))
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = entries
	return nil
}

// Reset drops rows, drafts and pending writes. Filters and the visible window
// are kept.
func (t *Table) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopTimers()
	t.entries = nil
	t.drafts = make(map[int]string)
}

func (t *Table) SetNameFilter(v string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nameFilter = v
}

func (t *Table) SetSectionFilter(v string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sectionFilter = v
}

// ReachedBottom widens the visible window by one page. The window never
// shrinks.
func (t *Table) ReachedBottom() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.visible < len(t.filtered()) {
		t.visible += t.pageSize
	}
}

// View is a consistent snapshot of the table.
type View struct {
	Rows          []records.RosterEntry `json:"rows"`
	Matching      int                   `json:"matching"`
	Total         int                   `json:"total"`
	NameFilter    string                `json:"nameFilter"`
	SectionFilter string                `json:"sectionFilter"`
	HasMore       bool                  `json:"hasMore"`
}

func (t *Table) View() View {
	t.mu.Lock()
	defer t.mu.Unlock()

	matching := t.filtered()
	rows := matching
	if len(rows) > t.visible {
		rows = rows[:t.visible]
	}
	return View{
		Rows:          rows,
		Matching:      len(matching),
		Total:         len(t.entries),
		NameFilter:    t.nameFilter,
		SectionFilter: t.sectionFilter,
		HasMore:       len(matching) > len(rows),
	}
}

// Visible returns the rows inside the visible window.
func (t *Table) Visible() []records.RosterEntry {
	return t.View().Rows
}

// Entry returns the row as displayed, with any unsent notes draft applied.
func (t *Table) Entry(row int) (records.RosterEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entry(row)
}

// SetAccredited writes the flag for row at once. "Sí" stamps the current
// local time and anything else clears the stamp.
func (t *Table) SetAccredited(ctx context.Context, row int, value string) error {
	if value != records.Accredited && value != records.NotAccredited {
		return apperr.Wrapf(apperr.ErrInvalidValue, "accreditation flag %q", value)
	}

	t.mu.Lock()
	updated, ok := t.entry(row)
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("%w: roster row %d", apperr.ErrNoRecord, row)
	}
	updated.Accredited = value
	updated.AccreditedAt = t.stampFor(value)
	t.mu.Unlock()

	return t.write(ctx, updated)
}

// EditNotes records a notes keystroke for row and restarts its quiet period.
// The draft is shown immediately; the sheet is written once the row has been
// quiet for the whole period.
func (t *Table) EditNotes(row int, value string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return context.Canceled
	}
	if _, ok := t.entry(row); !ok {
		return fmt.Errorf("%w: roster row %d", apperr.ErrNoRecord, row)
	}

	t.drafts[row] = value
	t.arm(row)
	return nil
}

// arm replaces row's pending timer. Callers hold t.mu.
func (t *Table) arm(row int) {
	if old, ok := t.timers[row]; ok && old.timer.Stop() {
		t.wg.Done()
	}
	t.armed++
	seq := t.armed
	t.wg.Add(1)
	t.timers[row] = pendingNote{
		seq: seq,
		timer: time.AfterFunc(t.quiet, func() {
			defer t.wg.Done()
			t.flushNotes(row, seq)
		}),
	}
}

// Pending reports whether row has a notes write waiting for its quiet period.
func (t *Table) Pending(row int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.timers[row]
	return ok
}

// Close cancels pending notes writes and waits for in-flight ones.
func (t *Table) Close() {
	t.mu.Lock()
	t.closed = true
	t.stopTimers()
	t.mu.Unlock()

	t.cancel()
	t.wg.Wait()
}

func (t *Table) flushNotes(row int, seq uint64) {
	t.mu.Lock()
	// A later edit re-armed the row; its own timer writes the newer value.
	if p, ok := t.timers[row]; !ok || p.seq != seq {
		t.mu.Unlock()
		return
	}
	delete(t.timers, row)
	value, ok := t.drafts[row]
	if !ok || t.ctx.Err() != nil {
		t.mu.Unlock()
		return
	}
	updated, ok := t.entry(row)
	t.mu.Unlock()
	if !ok {
		return
	}
	updated.Notes = value
	updated.AccreditedAt = t.stampFor(updated.Accredited)

	if err := t.write(t.ctx, updated); err != nil {
		log.WithError(err).WithField("row", row).Warn("notes write failed")
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.drafts[row] == value {
		delete(t.drafts, row)
	}
}

// write sends the full row and patches the local copy once the sheet has
// accepted it.
func (t *Table) write(ctx context.Context, updated records.RosterEntry) error {
	if err := t.store.SaveRosterEntry(ctx, updated); err != nil {
		t.notices.Error(failedMessage)
		return err
	}

	t.mu.Lock()
	for i := range t.entries {
		if t.entries[i].Row == updated.Row {
			t.entries[i] = updated
		}
	}
	t.mu.Unlock()

	t.notices.Info(savedMessage)
	return nil
}

func (t *Table) entry(row int) (records.RosterEntry, bool) {
	for _, e := range t.entries {
		if e.Row == row {
			if d, ok := t.drafts[row]; ok {
				e.Notes = d
			}
			return e, true
		}
	}
	return records.RosterEntry{}, false
}

func (t *Table) filtered() []records.RosterEntry {
	name := strings.ToLower(t.nameFilter)
	section := strings.ToLower(t.sectionFilter)

	out := make([]records.RosterEntry, 0, len(t.entries))
	for _, e := range t.entries {
		if !strings.Contains(strings.ToLower(e.Name), name) {
			continue
		}
		if !strings.Contains(strings.ToLower(e.Section), section) {
			continue
		}
		if d, ok := t.drafts[e.Row]; ok {
			e.Notes = d
		}
		out = append(out, e)
	}
	return out
}

// stampFor is the timestamp written with flag: now for "Sí", else empty.
func (t *Table) stampFor(flag string) string {
	if flag != records.Accredited {
		return ""
	}
	return t.now().In(t.loc).Format(stampLayout)
}

func (t *Table) stopTimers() {
	for row, p := range t.timers {
		if p.timer.Stop() {
			t.wg.Done()
		}
		delete(t.timers, row)
	}
}
