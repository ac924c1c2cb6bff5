package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheets serves the Values Get/Update/Clear calls the client makes.
// Each sheet is a slice of rows; index 0 is row 1.
type fakeSheets struct {
	mu     sync.Mutex
	sheets map[string][][]any
}

func newFakeSheets(t *testing.T) (*fakeSheets, *Client) {
	t.Helper()
	f := &fakeSheets{sheets: make(map[string][][]any)}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("sheets service: %v", err)
	}
	return f, &Client{svc: svc, spreadsheetID: "test-id", balancesBase: "Balances"}
}

func (f *fakeSheets) serve(w http.ResponseWriter, r *http.Request) {
	const prefix = "/v4/spreadsheets/test-id/values/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	rng := strings.TrimPrefix(r.URL.Path, prefix)
	isClear := strings.HasSuffix(rng, ":clear")
	rng = strings.TrimSuffix(rng, ":clear")
	sheet, cells, _ := strings.Cut(rng, "!")

	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodGet:
		var col [][]any
		for _, row := range f.sheets[sheet] {
			if len(row) == 0 {
				col = append(col, []any{})
				continue
			}
			col = append(col, []any{row[0]})
		}
		for len(col) > 0 && len(col[len(col)-1]) == 0 {
			col = col[:len(col)-1]
		}
		writeFake(w, map[string]any{"range": rng, "values": col})
	case r.Method == http.MethodPut:
		var body struct {
			Values [][]any `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Values) != 1 {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		f.setRow(sheet, rowOf(cells), body.Values[0])
		writeFake(w, map[string]any{"updatedRange": rng})
	case r.Method == http.MethodPost && isClear:
		f.setRow(sheet, rowOf(cells), []any{})
		writeFake(w, map[string]any{"clearedRange": rng})
	default:
		http.Error(w, "unsupported", http.StatusMethodNotAllowed)
	}
}

func (f *fakeSheets) setRow(sheet string, row int, values []any) {
	rows := f.sheets[sheet]
	for len(rows) < row {
		rows = append(rows, []any{})
	}
	rows[row-1] = values
	f.sheets[sheet] = rows
}

// dataDates returns the non-header first cells of sheet.
func (f *fakeSheets) dataDates(sheet string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for i, row := range f.sheets[sheet] {
		if i == 0 || len(row) == 0 {
			continue
		}
		out = append(out, fmt.Sprint(row[0]))
	}
	return out
}

// rowOf extracts n from "A<n>:H<n>".
func rowOf(cells string) int {
	start, _, _ := strings.Cut(cells, ":")
	n, _ := strconv.Atoi(strings.TrimLeft(start, "ABCDEFGHIJKLMNOPQRSTUVWXYZ"))
	return n
}

func writeFake(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
