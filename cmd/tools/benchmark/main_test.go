package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sensacare/vitals/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorBatch(t *testing.T) {
	start := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)
	g := newGenerator(7, start)

	first := g.batch("u1", 100)
	second := g.batch("u1", 10)
	require.Len(t, first, 100)
	require.Len(t, second, 10)

	assert.True(t, first[0].Timestamp.Equal(start))
	assert.True(t, second[0].Timestamp.Equal(start.Add(100*5*time.Second)))

	ids := map[string]bool{}
	for _, r := range append(first, second...) {
		assert.Equal(t, "u1", r.UserID)
		assert.GreaterOrEqual(t, r.Value, models.MinHeartRate)
		assert.LessOrEqual(t, r.Value, models.MaxHeartRate)
		assert.False(t, ids[r.ID], "duplicate id %s", r.ID)
		ids[r.ID] = true
	}
}

func TestGeneratorIsDeterministic(t *testing.T) {
	start := time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)
	a := newGenerator(3, start).batch("u1", 50)
	b := newGenerator(3, start).batch("u1", 50)
	for i := range a {
		assert.Equal(t, a[i].Value, b[i].Value)
	}
}

func TestSummarize(t *testing.T) {
	r := summarize("Write", []float64{4, 1, 3, 2}, 1, 2*time.Second, "HTTP 500 from POST")
	assert.Equal(t, 4, r.Requests)
	assert.Equal(t, int64(1), r.Errors)
	assert.InDelta(t, 1.5, r.Throughput, 1e-9)
	assert.InDelta(t, 2.5, r.Avg, 1e-9)
	assert.Equal(t, 1.0, r.Min)
	assert.Equal(t, 4.0, r.Max)

	empty := summarize("Query", nil, 0, time.Second, "")
	assert.Equal(t, 0, empty.Requests)
	assert.Zero(t, empty.Throughput)

	var buf bytes.Buffer
	printResult(&buf, r)
	assert.Contains(t, buf.String(), "First error: HTTP 500")
}

func TestDoJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k1", r.Header.Get("X-API-Key"))
		switch {
		case strings.HasSuffix(r.URL.Path, "/readings"):
			w.WriteHeader(http.StatusMultiStatus)
			_, _ = w.Write([]byte(`{"accepted":1,"stored":1,"rejected":1}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	cfg := Config{APIKey: "k1", HTTPClient: srv.Client()}

	var resp models.WriteReadingsResponse
	require.NoError(t, doJSON(cfg, http.MethodPost, srv.URL+"/v1/users/u1/readings",
		models.WriteReadingsRequest{}, &resp))
	assert.Equal(t, 1, resp.Stored)

	err := doJSON(cfg, http.MethodGet, srv.URL+"/v1/users/u1/nothing", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
}
