package records

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	apperr "github.com/digitaldrywood/acreditacion/internal/errors"
)

// ValuesClient is the spreadsheet transport.
type ValuesClient interface {
	GetRange(ctx context.Context, token, rng string) ([][]interface{}, error)
	UpdateRow(ctx context.Context, token, rng string, cells []interface{}) error
}

// TokenSource yields the current bearer token or ErrNoSession.
type TokenSource interface {
	Token() (string, error)
}

// Store reads whole tabs and writes single rows. It holds no records itself
// and never retries.
type Store struct {
	values ValuesClient
	tokens TokenSource
}

func NewStore(values ValuesClient, tokens TokenSource) *Store {
	return &Store{values: values, tokens: tokens}
}

func (s *Store) Accreditations(ctx context.Context) ([]Accreditation, error) {
	return load(ctx, s, AccreditationTab, accreditationFromCells)
}

func (s *Store) Hosts(ctx context.Context) ([]Host, error) {
	return load(ctx, s, HostingTab, hostFromCells)
}

func (s *Store) Roster(ctx context.Context) ([]RosterEntry, error) {
	return load(ctx, s, RosterTab, rosterFromCells)
}

func (s *Store) SaveAccreditation(ctx context.Context, a Accreditation) error {
	return s.write(ctx, AccreditationTab, a.Row, a.Cells())
}

func (s *Store) SaveRosterEntry(ctx context.Context, r RosterEntry) error {
	return s.write(ctx, RosterTab, r.Row, r.Cells())
}

func load[T any](ctx context.Context, s *Store, tab Tab, mapRow func(row int, c cells) T) ([]T, error) {
	token, err := s.tokens.Token()
	if err != nil {
		return nil, err
	}

	rows, err := s.values.GetRange(ctx, token, tab.ReadRange())
	if err != nil {
		log.WithError(err).WithField("tab", tab.Name).Error("failed to read tab")
		return nil, fmt.Errorf("%w: %s: %v", apperr.ErrRead, tab.Name, err)
	}

	out := make([]T, 0, len(rows))
	for i, row := range rows {
		out = append(out, mapRow(i+firstDataRow, cells(row)))
	}

	log.WithField("tab", tab.Name).WithField("rows", len(out)).Debug("tab loaded")
	return out, nil
}

func (s *Store) write(ctx context.Context, tab Tab, row int, values []interface{}) error {
	if row < firstDataRow {
		return fmt.Errorf("%w: row %d is not a data row", apperr.ErrInvalidValue, row)
	}

	token, err := s.tokens.Token()
	if err != nil {
		return err
	}

	logger := log.WithField("tab", tab.Name).WithField("row", row)
	if err := s.values.UpdateRow(ctx, token, tab.RowRange(row), values); err != nil {
		logger.WithError(err).Error("failed to write row")
		return fmt.Errorf("%w: %s row %d: %v", apperr.ErrWrite, tab.Name, row, err)
	}

	logger.Info("row updated")
	return nil
}
