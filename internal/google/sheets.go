package google

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const userEntered = "USER_ENTERED"

// SheetsClient reads and writes value ranges of one spreadsheet on behalf of
// whichever bearer token the caller holds.
type SheetsClient struct {
	spreadsheetID string
	endpoint      string
}

// NewSheetsClient targets spreadsheetID. A non-empty endpoint overrides the
// public Sheets API base URL.
func NewSheetsClient(spreadsheetID, endpoint string) *SheetsClient {
	return &SheetsClient{
		spreadsheetID: spreadsheetID,
		endpoint:      endpoint,
	}
}

func (s *SheetsClient) service(ctx context.Context, token string) (*sheets.Service, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, ts))}
	if s.endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.endpoint))
	}

	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Sheets client: %v", err)
	}
	return srv, nil
}

// GetRange returns the rows of rng. Trailing empty cells are omitted by the
// API, so rows may be shorter than the range.
func (s *SheetsClient) GetRange(ctx context.Context, token, rng string) ([][]interface{}, error) {
	srv, err := s.service(ctx, token)
	if err != nil {
		return nil, err
	}

	resp, err := srv.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve data from sheet: %w", err)
	}

	return resp.Values, nil
}

// UpdateRow overwrites the single-row range rng with cells, letting the sheet
// parse them as if typed by a user.
func (s *SheetsClient) UpdateRow(ctx context.Context, token, rng string, cells []interface{}) error {
	srv, err := s.service(ctx, token)
	if err != nil {
		return err
	}

	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{cells},
	}

	_, err = srv.Spreadsheets.Values.Update(
		s.spreadsheetID,
		rng,
		valueRange,
	).ValueInputOption(userEntered).Context(ctx).Do()

	if err != nil {
		return fmt.Errorf("unable to update data in sheet: %w", err)
	}

	return nil
}

// Describe returns the spreadsheet title and its tab names.
func (s *SheetsClient) Describe(ctx context.Context, token string) (string, []string, error) {
	srv, err := s.service(ctx, token)
	if err != nil {
		return "", nil, err
	}

	spreadsheet, err := srv.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return "", nil, fmt.Errorf("unable to access spreadsheet: %w", err)
	}

	tabs := make([]string, 0, len(spreadsheet.Sheets))
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil {
			tabs = append(tabs, sheet.Properties.Title)
		}
	}

	title := ""
	if spreadsheet.Properties != nil {
		title = spreadsheet.Properties.Title
	}
	return title, tabs, nil
}
