package sheets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

type recordedCall struct {
	method string
	path   string
	body   string
}

func newTestRepository(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*GoogleSheetRepository, func() []recordedCall) {
	t.Helper()

	var (
		mu    sync.Mutex
		calls []recordedCall
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		calls = append(calls, recordedCall{method: r.Method, path: r.URL.Path, body: string(body)})
		mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	service, err := sheetsapi.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	return NewRepositoryWithService(service, "sheet-id", nil), func() []recordedCall {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedCall(nil), calls...)
	}
}

func TestReadRange(t *testing.T) {
	repo, calls := newTestRepository(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"range":  "Stock!A1:E3",
			"values": [][]interface{}{{"region_name", "quantity"}, {"Kyiv", "12"}},
		})
	})

	values, err := repo.ReadRange(context.Background(), "Stock!A:E")
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, "Kyiv", values[1][0])

	recorded := calls()
	require.Len(t, recorded, 1)
	assert.Equal(t, http.MethodGet, recorded[0].method)
	assert.Contains(t, recorded[0].path, "/v4/spreadsheets/sheet-id/values/")

	_, err = repo.ReadRange(context.Background(), "")
	assert.Error(t, err)
}

func TestReplaceRangeClearsThenUpdates(t *testing.T) {
	repo, calls := newTestRepository(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	})

	err := repo.ReplaceRange(context.Background(), "Summary!A:G", [][]interface{}{{"region", "tier"}, {"Kyiv", "critical"}})
	require.NoError(t, err)

	recorded := calls()
	require.Len(t, recorded, 2)
	assert.Equal(t, http.MethodPost, recorded[0].method)
	assert.True(t, strings.HasSuffix(recorded[0].path, ":clear"))
	assert.Equal(t, http.MethodPut, recorded[1].method)
	assert.True(t, strings.HasSuffix(recorded[1].path, "Summary!A1"))
	assert.Contains(t, recorded[1].body, `["Kyiv","critical"]`)
}

func TestReplaceRangeStopsOnClearFailure(t *testing.T) {
	repo, calls := newTestRepository(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"denied"}}`))
	})

	err := repo.ReplaceRange(context.Background(), "Summary!A:G", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clear range")
	assert.Len(t, calls(), 1)
}

func TestAnchorCell(t *testing.T) {
	assert.Equal(t, "Summary!A1", anchorCell("Summary!A:G"))
	assert.Equal(t, "Summary!B3", anchorCell("Summary!B3:G40"))
	assert.Equal(t, "A1", anchorCell("A:C"))
}
