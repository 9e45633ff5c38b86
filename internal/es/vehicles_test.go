package es

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/roadblock/internal/config"
	"github.com/Skotchmaster/roadblock/internal/models"
)

type recorded struct {
	method string
	path   string
	body   string
}

type fakeES struct {
	mu       sync.Mutex
	requests []recorded
	handler  func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recorded{method: r.Method, path: r.URL.Path, body: string(b)})
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	f.handler(w, r)
}

func (f *fakeES) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newFake(t *testing.T, h func(w http.ResponseWriter, r *http.Request)) (*fakeES, *elasticsearch.Client) {
	t.Helper()
	f := &fakeES{handler: h}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return f, client
}

func TestVehicleIndex_IndexVehicle(t *testing.T) {
	t.Parallel()

	f, client := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})
	idx := NewVehicleIndex(client, "vehicles")

	v := &models.Vehicle{
		ID:           7,
		PlateNumber:  "PBS492",
		MakeAndModel: "Land Rover Defender",
		Driver:       &models.Driver{FullName: "John Moyo", LicenseNumber: "472629HD"},
	}
	require.NoError(t, idx.IndexVehicle(context.Background(), v))

	req := f.last()
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "/vehicles/_doc/7", req.path)

	var doc vehicleDoc
	require.NoError(t, json.Unmarshal([]byte(req.body), &doc))
	assert.Equal(t, uint(7), doc.ID)
	assert.Equal(t, "John Moyo", doc.DriverName)
}

func TestVehicleIndex_DeleteIgnoresMissing(t *testing.T) {
	t.Parallel()

	_, client := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"result":"not_found"}`))
	})
	idx := NewVehicleIndex(client, "vehicles")
	require.NoError(t, idx.DeleteVehicle(context.Background(), 9))
}

func TestVehicleIndex_SearchVehicles(t *testing.T) {
	t.Parallel()

	f, client := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"hits":{"total":{"value":2},"hits":[{"_source":{"id":4}},{"_source":{"id":2}}]}}`))
	})
	idx := NewVehicleIndex(client, "vehicles")

	total, ids, err := idx.SearchVehicles(context.Background(), "defender", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, []uint{4, 2}, ids)

	req := f.last()
	assert.Equal(t, "/vehicles/_search", req.path)
	assert.Contains(t, req.body, `"multi_match"`)
	assert.Contains(t, req.body, `"defender"`)
}

func TestVehicleIndex_SearchError(t *testing.T) {
	t.Parallel()

	_, client := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad query"}`))
	})
	idx := NewVehicleIndex(client, "vehicles")

	_, _, err := idx.SearchVehicles(context.Background(), "x", 0, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad query")
}

func TestVehicleIndex_EnsureIndexCreates(t *testing.T) {
	t.Parallel()

	f, client := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	})
	idx := NewVehicleIndex(client, "vehicles")

	require.NoError(t, idx.EnsureIndex(context.Background()))
	req := f.last()
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "/vehicles", req.path)
	assert.Contains(t, req.body, "plateNumber")
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	f := &fakeES{handler: func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"version":{"number":"9.0.0"},"tagline":"You Know, for Search"}`))
	}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), config.Search{URL: srv.URL})
	require.NoError(t, err)
	require.NotNil(t, client)
}
