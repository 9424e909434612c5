package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/digitaldrywood/acreditacion/internal/database"
	"github.com/digitaldrywood/acreditacion/internal/editor"
	"github.com/digitaldrywood/acreditacion/internal/hosting"
	"github.com/digitaldrywood/acreditacion/internal/notice"
	"github.com/digitaldrywood/acreditacion/internal/records"
	"github.com/digitaldrywood/acreditacion/internal/records/fakesheet"
	"github.com/digitaldrywood/acreditacion/internal/roster"
	"github.com/digitaldrywood/acreditacion/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeProvider struct{}

func (fakeProvider) RequestToken(context.Context) (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: "tok", Expiry: time.Now().Add(time.Hour)}, nil
}

func (fakeProvider) Revoke(context.Context, string) error { return nil }

type harness struct {
	sheet  *fakesheet.FakeSheet
	router http.Handler
}

func setupTestRouter(t *testing.T) *harness {
	t.Helper()

	db, err := database.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	sessions := session.NewManager(db, nil)
	sessions.Init(context.Background(), func(context.Context) (session.IdentityProvider, error) {
		return fakeProvider{}, nil
	})
	t.Cleanup(sessions.Close)
	<-sessions.Ready()

	sheet := fakesheet.New()
	sheet.Put(records.AccreditationTab,
		[]interface{}{"Juan", "Centro", "", "", "", "", "", "", "Local A", "No"},
		[]interface{}{"María", "Norte", "", "", "", "", "", "", "Local B", "No"},
	)
	sheet.Put(records.HostingTab,
		[]interface{}{"Ana", "Calle 1", "+569", "Local A", "1. Juan 2. Pedro"},
		[]interface{}{"Luis", "Calle 2", "+569", "Local B", ""},
	)
	sheet.Put(records.RosterTab,
		[]interface{}{"Carla", "Coro", "1", "No"},
	)

	store := records.NewStore(sheet, sessions)
	notices := notice.NewBoard(time.Hour)
	t.Cleanup(notices.Close)
	table := roster.New(store, notices, roster.WithQuietPeriod(20*time.Millisecond))
	t.Cleanup(table.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	s := New(ctx, Deps{
		Sessions: sessions,
		Editor:   editor.New(store, sessions, notices),
		Hosting:  hosting.NewViewer(store, notices),
		Roster:   table,
		Notices:  notices,
	}, Limits{})

	return &harness{sheet: sheet, router: s.Handler()}
}

func (h *harness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	h.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	return out
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	w := h.do(t, http.MethodPost, "/api/session/login", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestHealth(t *testing.T) {
	h := setupTestRouter(t)

	w := h.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, w)["status"])
}

func TestSession_LoginLoadsViewsAndLogoutClears(t *testing.T) {
	h := setupTestRouter(t)

	w := h.do(t, http.MethodGet, "/api/session", nil)
	assert.False(t, decode[sessionResponse](t, w).Authenticated)
	w = h.do(t, http.MethodGet, "/api/acreditacion", nil)
	assert.Empty(t, decode[editor.View](t, w).NameOptions)

	h.login(t)

	w = h.do(t, http.MethodGet, "/api/session", nil)
	assert.True(t, decode[sessionResponse](t, w).Authenticated)

	w = h.do(t, http.MethodGet, "/api/acreditacion", nil)
	assert.Len(t, decode[editor.View](t, w).NameOptions, 2)

	w = h.do(t, http.MethodGet, "/api/hospedadores", nil)
	hosts := decode[hosting.View](t, w)
	require.Len(t, hosts.Rows, 2)
	assert.Equal(t, "1. Juan \n2. Pedro", hosts.Rows[0].FormattedVisits)

	w = h.do(t, http.MethodGet, "/api/servidumbre", nil)
	assert.Len(t, decode[roster.View](t, w).Rows, 1)

	w = h.do(t, http.MethodPost, "/api/session/logout", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = h.do(t, http.MethodGet, "/api/acreditacion", nil)
	assert.Empty(t, decode[editor.View](t, w).NameOptions)
	w = h.do(t, http.MethodGet, "/api/hospedadores", nil)
	assert.Empty(t, decode[hosting.View](t, w).Rows)
}

func TestAccreditation_SelectEditSave(t *testing.T) {
	h := setupTestRouter(t)
	h.login(t)

	w := h.do(t, http.MethodPost, "/api/acreditacion/nombre", nameRequest{Name: "María"})
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[editor.View](t, w)
	assert.True(t, view.Resolved)
	assert.Equal(t, "Norte", view.SelectedChurch)

	yes := records.Accredited
	notes := "con niños"
	w = h.do(t, http.MethodPatch, "/api/acreditacion/form", formPatch{Accredited: &yes, Notes: &notes})
	require.Equal(t, http.StatusOK, w.Code)
	view = decode[editor.View](t, w)
	assert.Equal(t, editor.Dirty, view.State)
	assert.NotEmpty(t, view.Form.AccreditedAt)

	w = h.do(t, http.MethodPost, "/api/acreditacion/guardar", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, editor.Saved, decode[editor.View](t, w).State)

	writes := h.sheet.Writes()
	require.Len(t, writes, 1)
	assert.Equal(t, "Acreditación!A3:L3", writes[0].Range)

	w = h.do(t, http.MethodGet, "/api/notice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "✅ Registro actualizado correctamente.", decode[notice.Message](t, w).Text)
}

func TestAccreditation_SaveWithoutRecord(t *testing.T) {
	h := setupTestRouter(t)
	h.login(t)

	w := h.do(t, http.MethodPost, "/api/acreditacion/guardar", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Debes seleccionar un registro desde los filtros antes de guardar.", decode[errorResponse](t, w).Message)
	assert.Empty(t, h.sheet.Writes())
}

func TestAccreditation_SaveWithoutSession(t *testing.T) {
	h := setupTestRouter(t)

	w := h.do(t, http.MethodPost, "/api/acreditacion/guardar", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, h.sheet.Writes())
}

func TestAccreditation_InvalidFlag(t *testing.T) {
	h := setupTestRouter(t)
	h.login(t)

	bad := "Quizás"
	w := h.do(t, http.MethodPatch, "/api/acreditacion/form", formPatch{Accredited: &bad})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRoster_AccreditAndNotes(t *testing.T) {
	h := setupTestRouter(t)
	h.login(t)

	w := h.do(t, http.MethodPut, "/api/servidumbre/2/acredita", accreditRequest{Accredited: records.Accredited})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, records.Accredited, decode[records.RosterEntry](t, w).Accredited)

	w = h.do(t, http.MethodPut, "/api/servidumbre/2/observaciones", notesRequest{Notes: "llegó"})
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "llegó", decode[records.RosterEntry](t, w).Notes)

	require.Eventually(t, func() bool {
		return len(h.sheet.Writes()) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRoster_BadRow(t *testing.T) {
	h := setupTestRouter(t)
	h.login(t)

	w := h.do(t, http.MethodPut, "/api/servidumbre/abc/acredita", accreditRequest{Accredited: records.Accredited})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(t, http.MethodPut, "/api/servidumbre/1/acredita", accreditRequest{Accredited: records.Accredited})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(t, http.MethodPut, "/api/servidumbre/40/acredita", accreditRequest{Accredited: records.Accredited})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, h.sheet.Writes())
}

func TestRoster_Filters(t *testing.T) {
	h := setupTestRouter(t)
	h.login(t)

	w := h.do(t, http.MethodGet, "/api/servidumbre?seccion=CORO", nil)
	assert.Len(t, decode[roster.View](t, w).Rows, 1)

	w = h.do(t, http.MethodGet, "/api/servidumbre?nombre=zz", nil)
	assert.Empty(t, decode[roster.View](t, w).Rows)
}

func TestNotice_EmptyIsNoContent(t *testing.T) {
	h := setupTestRouter(t)

	w := h.do(t, http.MethodGet, "/api/notice", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
