package records_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/digitaldrywood/acreditacion/internal/errors"
	"github.com/digitaldrywood/acreditacion/internal/records"
	"github.com/digitaldrywood/acreditacion/internal/records/fakesheet"
)

func TestTabRanges(t *testing.T) {
	assert.Equal(t, "Acreditación!A2:L", records.AccreditationTab.ReadRange())
	assert.Equal(t, "Acreditación!A14:L14", records.AccreditationTab.RowRange(14))
	assert.Equal(t, "Hospedadores!A2:E", records.HostingTab.ReadRange())
	assert.Equal(t, "Servidumbre!A3:F3", records.RosterTab.RowRange(3))
}

func TestAccreditations_MapsColumnsAndRowNumbers(t *testing.T) {
	sheet := fakesheet.New()
	sheet.Put(records.AccreditationTab,
		[]interface{}{"Juan", "Iglesia Centro", "+56911", "Bus", "2026-10-16T09:00", "Rosa", "+56922", "Calle 1", "Local A", "Sí", "16-10-2026, 09:10:00", "ok"},
		[]interface{}{"María", "Iglesia Norte"},
	)
	store := records.NewStore(sheet, fakesheet.NewTokens("tok"))

	got, err := store.Accreditations(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, records.Accreditation{
		Row: 2, Name: "Juan", Church: "Iglesia Centro", Contact: "+56911", Mobilization: "Bus",
		PickupAt: "2026-10-16T09:00", Host: "Rosa", HostContact: "+56922", Address: "Calle 1",
		Venue: "Local A", Accredited: "Sí", AccreditedAt: "16-10-2026, 09:10:00", Notes: "ok",
	}, got[0])

	// Missing trailing cells default to empty; the flag defaults to "No".
	assert.Equal(t, 3, got[1].Row)
	assert.Equal(t, "María", got[1].Name)
	assert.Empty(t, got[1].Venue)
	assert.Equal(t, records.NotAccredited, got[1].Accredited)
	assert.Empty(t, got[1].Notes)
}

func TestAccreditations_NonStringCellsAreRendered(t *testing.T) {
	sheet := fakesheet.New()
	sheet.Put(records.AccreditationTab, []interface{}{"Juan", "Iglesia", 42.0, nil})
	store := records.NewStore(sheet, fakesheet.NewTokens("tok"))

	got, err := store.Accreditations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "42", got[0].Contact)
	assert.Empty(t, got[0].Mobilization)
}

func TestHostsAndRoster(t *testing.T) {
	sheet := fakesheet.New()
	sheet.Put(records.HostingTab, []interface{}{"Rosa", "Calle 1", "+569", "Local A", "1. Juan 2. María"})
	sheet.Put(records.RosterTab, []interface{}{"Pedro", "Coro", "3"})
	store := records.NewStore(sheet, fakesheet.NewTokens("tok"))

	hosts, err := store.Hosts(context.Background())
	require.NoError(t, err)
	require.Len(t, hosts, 1)
	assert.Equal(t, "1. Juan 2. María", hosts[0].AssignedVisits)

	roster, err := store.Roster(context.Background())
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, records.RosterEntry{Row: 2, Name: "Pedro", Section: "Coro", Desk: "3", Accredited: "No"}, roster[0])
}

func TestLoad_NoSessionMakesNoCall(t *testing.T) {
	sheet := fakesheet.New()
	store := records.NewStore(sheet, fakesheet.NewTokens(""))

	_, err := store.Accreditations(context.Background())
	require.ErrorIs(t, err, apperr.ErrNoSession)

	err = store.SaveRosterEntry(context.Background(), records.RosterEntry{Row: 2})
	require.ErrorIs(t, err, apperr.ErrNoSession)

	assert.Zero(t, sheet.Reads())
	assert.Empty(t, sheet.Writes())
}

func TestLoad_TransportFailure(t *testing.T) {
	sheet := fakesheet.New()
	sheet.ReadErr = fakesheet.ErrUnavailable
	store := records.NewStore(sheet, fakesheet.NewTokens("tok"))

	_, err := store.Hosts(context.Background())
	require.ErrorIs(t, err, apperr.ErrRead)
	assert.Equal(t, 1, sheet.Reads())
}

func TestSaveAccreditation_RoundTrip(t *testing.T) {
	sheet := fakesheet.New()
	sheet.Put(records.AccreditationTab,
		[]interface{}{"Juan", "Iglesia Centro"},
		[]interface{}{"María", "Iglesia Norte", "+569", "Auto"},
	)
	store := records.NewStore(sheet, fakesheet.NewTokens("tok"))
	ctx := context.Background()

	loaded, err := store.Accreditations(ctx)
	require.NoError(t, err)

	r := loaded[1]
	r.Accredited = records.Accredited
	r.AccreditedAt = "16-10-2026, 10:00:00"
	r.Notes = "llegó con 2 acompañantes"
	require.NoError(t, store.SaveAccreditation(ctx, r))

	writes := sheet.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, "Acreditación!A3:L3", writes[0].Range)
	assert.Equal(t, "tok", writes[0].Token)
	assert.Len(t, writes[0].Cells, records.AccreditationTab.Width)

	reloaded, err := store.Accreditations(ctx)
	require.NoError(t, err)
	assert.Equal(t, r, reloaded[1])
	assert.Equal(t, loaded[0], reloaded[0])
}

func TestSave_WriteFailure(t *testing.T) {
	sheet := fakesheet.New()
	sheet.WriteErr = fakesheet.ErrUnavailable
	store := records.NewStore(sheet, fakesheet.NewTokens("tok"))

	err := store.SaveRosterEntry(context.Background(), records.RosterEntry{Row: 4, Name: "Pedro"})
	require.ErrorIs(t, err, apperr.ErrWrite)
	require.Len(t, sheet.Writes(), 1)
	assert.Len(t, sheet.Writes()[0].Cells, records.RosterTab.Width)
}

func TestSave_RejectsHeaderRow(t *testing.T) {
	sheet := fakesheet.New()
	store := records.NewStore(sheet, fakesheet.NewTokens("tok"))

	err := store.SaveAccreditation(context.Background(), records.Accreditation{Row: 1})
	require.ErrorIs(t, err, apperr.ErrInvalidValue)
	assert.Empty(t, sheet.Writes())
}
