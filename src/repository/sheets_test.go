package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

// fakeSheets serves the handful of Sheets v4 endpoints the store calls.
type fakeSheets struct {
	mu        sync.Mutex
	title     string
	values    [][]any
	metaCalls int
	failList  bool
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	const prefix = "/v4/spreadsheets/doc1"
	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && path == prefix:
		f.metaCalls++
		json.NewEncoder(w).Encode(map[string]any{
			"sheets": []any{map[string]any{"properties": map[string]any{"title": f.title}}},
		})
	case r.Method == http.MethodGet && strings.HasSuffix(path, "!1:1"):
		var header [][]any
		if len(f.values) > 0 {
			header = f.values[:1]
		}
		json.NewEncoder(w).Encode(map[string]any{"values": header})
	case r.Method == http.MethodGet && strings.HasPrefix(path, prefix+"/values/"):
		if f.failList {
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"code": 403, "message": "caller lacks permission"},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"values": f.values})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":append"):
		var body struct {
			Values [][]any `json:"values"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.values = append(f.values, body.Values...)
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "doc1"})
	case r.Method == http.MethodPut:
		var body struct {
			Values [][]any `json:"values"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if len(f.values) == 0 {
			f.values = append(f.values, body.Values...)
		} else {
			f.values[0] = body.Values[0]
		}
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "doc1"})
	default:
		http.NotFound(w, r)
	}
}

func newFakeSheetsStore(t *testing.T, fake *fakeSheets) *SheetsStore {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := NewSheetsStore(context.Background(), "doc1", "",
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return store
}

func TestSheetsStoreRows(t *testing.T) {
	fake := &fakeSheets{
		title: "Feed",
		values: [][]any{
			{"ID", "Title", "Images", "Is Album"},
			{1, "first", "a", false},
			{"2", "second", "a,b", true},
			{},
		},
	}
	store := newFakeSheetsStore(t, fake)

	rows, err := store.Rows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2, "blank rows are skipped")

	assert.Equal(t, CellNumber, rows[0].Get(ColID).Kind)
	assert.Equal(t, CellText, rows[1].Get(ColID).Kind)
	assert.Equal(t, "a,b", rows[1].Get(ColImages).String())
	assert.Equal(t, "TRUE", rows[1].Get(ColIsAlbum).String())
	assert.Equal(t, "FALSE", rows[0].Get(ColIsAlbum).String())

	_, err = store.Rows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fake.metaCalls, "sheet title is resolved once")
}

func TestSheetsStoreAppendFollowsHeaderOrder(t *testing.T) {
	fake := &fakeSheets{
		title:  "Feed",
		values: [][]any{{"Title", "ID", "Extra"}},
	}
	store := newFakeSheetsStore(t, fake)

	err := store.Append(context.Background(), Row{ColID: Number(5), ColTitle: Text("hello")})
	require.NoError(t, err)

	require.Len(t, fake.values, 2)
	assert.Equal(t, []any{"hello", float64(5), ""}, fake.values[1])
}

func TestSheetsStoreAppendWritesHeadersToEmptySheet(t *testing.T) {
	fake := &fakeSheets{title: "Feed"}
	store := newFakeSheetsStore(t, fake)

	err := store.Append(context.Background(), Row{ColID: Number(1), ColCaption: Text("c")})
	require.NoError(t, err)

	require.Len(t, fake.values, 2)
	require.Len(t, fake.values[0], len(Columns))
	assert.Equal(t, "ID", fake.values[0][0])
	assert.Equal(t, "Is Album", fake.values[0][len(Columns)-1])
	assert.Equal(t, float64(1), fake.values[1][0])
}

func TestSheetsStoreErrorsAreWrapped(t *testing.T) {
	fake := &fakeSheets{title: "Feed", failList: true}
	store := newFakeSheetsStore(t, fake)

	_, err := store.Rows(context.Background())
	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "list rows", storeErr.Op)
	assert.Contains(t, err.Error(), "caller lacks permission")
}

func TestQuoteSheet(t *testing.T) {
	assert.Equal(t, "'Sheet1'", quoteSheet("Sheet1"))
	assert.Equal(t, "'Bob''s feed'", quoteSheet("Bob's feed"))
}
