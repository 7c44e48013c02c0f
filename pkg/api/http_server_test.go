package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"arbor/pkg/common"
	"arbor/pkg/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	var recs []common.Record
	id := uint32(1)
	for _, c := range common.Categories {
		for _, h := range []uint32{10, 20, 30, 40, 50} {
			recs = append(recs, common.Record{ID: id, Age: c, TrunkWidth: 5, Ward: "Hulme", Species: "Quercus", Height: h})
			id++
		}
	}
	// Unmeasured trunk: must never surface, even though it is the tallest.
	recs = append(recs, common.Record{ID: 999, Age: common.Young, TrunkWidth: 0, Ward: "Hulme", Species: "Quercus", Height: 500})

	cat, err := core.BuildCatalog(context.Background(), recs)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	return NewServer(core.NewQueryService(cat), Options{
		Registerer: reg,
		Gatherer:   reg,
		Version:    "test",
	})
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestLargestAndSmallest(t *testing.T) {
	s := testServer(t)

	for _, c := range common.Categories {
		rec := get(t, s, "/largest_tree/"+c.Slug())
		require.Equal(t, http.StatusOK, rec.Code)
		var tree common.Record
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tree))
		assert.Equal(t, uint32(50), tree.Height)
		assert.Equal(t, c, tree.Age)

		rec = get(t, s, "/smallest_tree/"+c.Slug())
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tree))
		assert.Equal(t, uint32(10), tree.Height)
		assert.Equal(t, c, tree.Age)
	}
}

func TestResponseShape(t *testing.T) {
	s := testServer(t)

	rec := get(t, s, "/smallest_tree/young")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":1,"age":"Young","trunk_width":5,"ward":"Hulme","species":"Quercus","height":10}`, rec.Body.String())
}

func TestUnknownCategory(t *testing.T) {
	s := testServer(t)

	for _, path := range []string{
		"/largest_tree/unknown",
		"/smallest_tree/unknown",
		"/largest_tree/Young",
		"/smallest_tree/MATURE",
		"/tallest_tree/young",
	} {
		rec := get(t, s, path)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
	assert.Equal(t, uint64(0), s.stats.Served())
	assert.Equal(t, uint64(4), s.stats.NotFound())
}

func TestHealth(t *testing.T) {
	s := testServer(t)
	get(t, s, "/largest_tree/mature")

	rec := get(t, s, "/_health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","version":"test"}`, rec.Body.String())

	rec = get(t, s, "/_health?stats=true")
	require.Equal(t, http.StatusOK, rec.Code)

	var h HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	require.NotNil(t, h.Served)
	assert.Equal(t, uint64(1), *h.Served)
	require.NotNil(t, h.Catalog)
	assert.Equal(t, 1, h.Catalog.Dropped)
	require.Len(t, h.Catalog.Categories, 4)
	for _, c := range h.Catalog.Categories {
		assert.Equal(t, 5, c.Size)
	}
}

func TestMetrics(t *testing.T) {
	s := testServer(t)
	get(t, s, "/largest_tree/young")
	get(t, s, "/smallest_tree/nope")

	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	for _, m := range []string{
		"arbor_lookups_total",
		"arbor_unknown_category_total",
		"arbor_index_records",
		"arbor_index_depth",
		"arbor_records_dropped",
		"arbor_requests_total",
	} {
		assert.True(t, strings.Contains(body, m), "expected metrics output to contain %q", m)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s := testServer(t)

	li, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, li) }()

	url := "http://" + li.Addr().String() + "/largest_tree/semimature"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
