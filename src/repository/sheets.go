package repository

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsStore keeps entries in one sheet of a Google Sheets document. The
// first row of the sheet holds the column headers; every later row is an
// entry.
type SheetsStore struct {
	svc           *sheets.Service
	spreadsheetID string

	mu        sync.Mutex
	sheetName string
	headers   []string
}

// ServiceAccountOption authenticates with a service-account key, given
// either inline or as a path to the JSON file.
func ServiceAccountOption(ctx context.Context, credentialsJSON, credentialsFile string) (option.ClientOption, error) {
	raw := []byte(credentialsJSON)
	if len(raw) == 0 {
		var err error
		raw, err = os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	}
	conf, err := google.JWTConfigFromJSON(raw, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account: %w", err)
	}
	return option.WithHTTPClient(conf.Client(ctx)), nil
}

// NewSheetsStore binds to spreadsheetID. An empty sheetName selects the
// first sheet of the document, resolved on first use.
func NewSheetsStore(ctx context.Context, spreadsheetID, sheetName string, opts ...option.ClientOption) (*SheetsStore, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &SheetsStore{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func (s *SheetsStore) Rows(ctx context.Context) ([]Row, error) {
	name, err := s.resolveSheet(ctx)
	if err != nil {
		return nil, storeErr("list rows", err)
	}

	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, quoteSheet(name)).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).
		Do()
	if err != nil {
		return nil, storeErr("list rows", err)
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}

	headers := make([]string, len(resp.Values[0]))
	for i, h := range resp.Values[0] {
		headers[i] = strings.TrimSpace(fmt.Sprint(h))
	}
	s.mu.Lock()
	s.headers = headers
	s.mu.Unlock()

	rows := make([]Row, 0, len(resp.Values)-1)
	for _, values := range resp.Values[1:] {
		row := make(Row, len(headers))
		blank := true
		for i, h := range headers {
			if h == "" || i >= len(values) {
				continue
			}
			cell := CellFromValue(values[i])
			if !cell.IsEmpty() {
				blank = false
			}
			row[h] = cell
		}
		if !blank {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (s *SheetsStore) Append(ctx context.Context, row Row) error {
	name, err := s.resolveSheet(ctx)
	if err != nil {
		return storeErr("append row", err)
	}
	headers, err := s.headerRow(ctx, name)
	if err != nil {
		return storeErr("append row", err)
	}

	values := make([]interface{}, len(headers))
	for i, h := range headers {
		v := row.Get(h).Value()
		if v == nil {
			v = ""
		}
		values[i] = v
	}
	_, err = s.svc.Spreadsheets.Values.Append(s.spreadsheetID, quoteSheet(name), &sheets.ValueRange{
		Values: [][]interface{}{values},
	}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return storeErr("append row", err)
	}
	return nil
}

func (s *SheetsStore) resolveSheet(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sheetName != "" {
		return s.sheetName, nil
	}

	doc, err := s.svc.Spreadsheets.Get(s.spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("load spreadsheet: %w", err)
	}
	if len(doc.Sheets) == 0 || doc.Sheets[0].Properties == nil {
		return "", fmt.Errorf("spreadsheet %s has no sheets", s.spreadsheetID)
	}
	s.sheetName = doc.Sheets[0].Properties.Title
	return s.sheetName, nil
}

// headerRow returns the cached header row, reading it from the sheet when
// unknown. An empty sheet gets the default headers written first.
func (s *SheetsStore) headerRow(ctx context.Context, name string) ([]string, error) {
	s.mu.Lock()
	cached := s.headers
	s.mu.Unlock()
	if len(cached) > 0 {
		return cached, nil
	}

	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, quoteSheet(name)+"!1:1").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read header row: %w", err)
	}

	var headers []string
	if len(resp.Values) > 0 {
		for _, h := range resp.Values[0] {
			headers = append(headers, strings.TrimSpace(fmt.Sprint(h)))
		}
	}
	if len(headers) == 0 {
		headers = Columns
		values := make([]interface{}, len(headers))
		for i, h := range headers {
			values[i] = h
		}
		_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, quoteSheet(name)+"!A1", &sheets.ValueRange{
			Values: [][]interface{}{values},
		}).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		if err != nil {
			return nil, fmt.Errorf("write header row: %w", err)
		}
	}

	s.mu.Lock()
	s.headers = headers
	s.mu.Unlock()
	return headers, nil
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
