// Package fakesheet is an in-memory stand-in for the spreadsheet transport.
package fakesheet

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	apperr "github.com/digitaldrywood/acreditacion/internal/errors"
	"github.com/digitaldrywood/acreditacion/internal/records"
)

var _ records.ValuesClient = (*FakeSheet)(nil)

var rowRangePattern = regexp.MustCompile(`^(.+)!A(\d+):[A-Z]+(\d+)$`)

// Write is one recorded UpdateRow call.
type Write struct {
	Range string
	Token string
	Cells []interface{}
}

// FakeSheet keeps tabs as rows starting at sheet row 2 and counts calls.
type FakeSheet struct {
	lock   sync.Mutex
	tabs   map[string][][]interface{}
	writes []Write
	reads  int

	ReadErr  error
	WriteErr error
}

func New() *FakeSheet {
	return &FakeSheet{tabs: make(map[string][][]interface{})}
}

// Put replaces the data rows of tab.
func (f *FakeSheet) Put(tab records.Tab, rows ...[]interface{}) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.tabs[tab.Name] = rows
}

func (f *FakeSheet) GetRange(_ context.Context, _ string, rng string) ([][]interface{}, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.reads++
	if f.ReadErr != nil {
		return nil, f.ReadErr
	}
	name, _, _ := strings.Cut(rng, "!")
	rows := f.tabs[name]
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		out[i] = append([]interface{}(nil), row...)
	}
	return out, nil
}

func (f *FakeSheet) UpdateRow(_ context.Context, token, rng string, cells []interface{}) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.writes = append(f.writes, Write{Range: rng, Token: token, Cells: append([]interface{}(nil), cells...)})
	if f.WriteErr != nil {
		return f.WriteErr
	}

	m := rowRangePattern.FindStringSubmatch(rng)
	if m == nil || m[2] != m[3] {
		return fmt.Errorf("not a single-row range: %s", rng)
	}
	row, _ := strconv.Atoi(m[2])
	idx := row - 2

	rows := f.tabs[m[1]]
	for len(rows) <= idx {
		rows = append(rows, []interface{}{})
	}
	rows[idx] = append([]interface{}(nil), cells...)
	f.tabs[m[1]] = rows
	return nil
}

func (f *FakeSheet) Writes() []Write {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]Write(nil), f.writes...)
}

func (f *FakeSheet) Reads() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.reads
}

// Tokens is a settable TokenSource.
type Tokens struct {
	lock  sync.Mutex
	token string
}

func NewTokens(token string) *Tokens {
	return &Tokens{token: token}
}

func (t *Tokens) Set(token string) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.token = token
}

func (t *Tokens) Token() (string, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.token == "" {
		return "", apperr.ErrNoSession
	}
	return t.token, nil
}

// ErrUnavailable simulates a transport failure.
var ErrUnavailable = errors.New("503 service unavailable")
