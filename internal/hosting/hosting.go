// Package hosting is the read-only, filterable view of the hosts tab.
package hosting

import (
	"context"
	"regexp"
	"strings"
	"sync"

	apperr "github.com/digitaldrywood/acreditacion/internal/errors"
	"github.com/digitaldrywood/acreditacion/internal/lookup"
	"github.com/digitaldrywood/acreditacion/internal/notice"
	"github.com/digitaldrywood/acreditacion/internal/records"
)

// EmptyMessage is shown when no host passes the filters.
const EmptyMessage = "No hay registros que coincidan con el filtro."

var visitNumber = regexp.MustCompile(`(\d+\.)`)

// FormatVisits puts each numbered visit ("1.", "2.", ...) on its own line.
func FormatVisits(s string) string {
	return strings.TrimSpace(visitNumber.ReplaceAllString(s, "\n${1}"))
}

// Store is the part of the record store the viewer needs.
type Store interface {
	Hosts(ctx context.Context) ([]records.Host, error)
}

type Viewer struct {
	store   Store
	notices *notice.Board

	mu          sync.Mutex
	hosts       []records.Host
	nameFilter  string
	venueFilter string
}

func NewViewer(store Store, notices *notice.Board) *Viewer {
	return &Viewer{store: store, notices: notices}
}

func (v *Viewer) Load(ctx context.Context) error {
	hosts, err := v.store.Hosts(ctx)
	if err != nil {
		v.notices.Error(apperr.UserMessage(err))
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.hosts = hosts
	return nil
}

func (v *Viewer) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.hosts = nil
}

// SetNameFilter matches a case-insensitive substring of the host name.
func (v *Viewer) SetNameFilter(s string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.nameFilter = s
}

// SetVenueFilter matches the venue exactly. Empty clears it.
func (v *Viewer) SetVenueFilter(s string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.venueFilter = s
}

// Row is a host as displayed.
type Row struct {
	records.Host
	FormattedVisits string `json:"visitasFormateadas"`
}

type View struct {
	Rows         []Row           `json:"rows"`
	VenueOptions []lookup.Option `json:"venueOptions"`
	NameFilter   string          `json:"nameFilter"`
	VenueFilter  string          `json:"venueFilter"`
	Empty        string          `json:"empty,omitempty"`
}

func (v *Viewer) View() View {
	v.mu.Lock()
	defer v.mu.Unlock()

	rows := v.filtered()
	view := View{
		Rows:         rows,
		VenueOptions: v.venueOptions(),
		NameFilter:   v.nameFilter,
		VenueFilter:  v.venueFilter,
	}
	if len(rows) == 0 {
		view.Empty = EmptyMessage
	}
	return view
}

// Rows returns the hosts passing both filters.
func (v *Viewer) Rows() []Row {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filtered()
}

func (v *Viewer) VenueOptions() []lookup.Option {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.venueOptions()
}

func (v *Viewer) venueOptions() []lookup.Option {
	venues := make([]string, 0, len(v.hosts))
	for _, h := range v.hosts {
		venues = append(venues, h.Venue)
	}
	return lookup.Distinct(venues)
}

func (v *Viewer) filtered() []Row {
	name := strings.ToLower(v.nameFilter)

	out := make([]Row, 0, len(v.hosts))
	for _, h := range v.hosts {
		if name != "" && !strings.Contains(strings.ToLower(h.Name), name) {
			continue
		}
		if v.venueFilter != "" && h.Venue != v.venueFilter {
			continue
		}
		out = append(out, Row{Host: h, FormattedVisits: FormatVisits(h.AssignedVisits)})
	}
	return out
}
