package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newReferenceServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/gn-divisions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Mannar Town", r.URL.Query().Get("division_name"))
		_, _ = w.Write([]byte(`{"status":0,"msg":"ok","data":[{"gn_id":"GN-01","gn_name":"Pallimunai","division_name":"Mannar Town","district_name":"Mannar"}]}`))
	})
	mux.HandleFunc("/api/v1/divisions", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":1,"msg":"district unknown","data":null}`))
	})
	mux.HandleFunc("/api/v1/gn-divisions/lookup", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body struct {
			GnIDs []string `json:"gn_ids"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"GN-01", "GN-99"}, body.GnIDs)
		_, _ = w.Write([]byte(`{"status":0,"data":[{"gn_id":"GN-01","gn_name":"Pallimunai","division_name":"Mannar Town","district_name":"Mannar"}]}`))
	})
	return httptest.NewServer(mux)
}

func TestHTTPReference_ListGnByDivision(t *testing.T) {
	srv := newReferenceServer(t)
	defer srv.Close()

	c := NewHTTPReferenceDirectory(srv.URL, time.Second, zap.NewNop())
	rows, err := c.ListGnByDivision(context.Background(), "Mannar Town")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "GN-01", rows[0].GnID)
	assert.Equal(t, "Mannar", rows[0].DistrictName)
}

func TestHTTPReference_EnvelopeError(t *testing.T) {
	srv := newReferenceServer(t)
	defer srv.Close()

	c := NewHTTPReferenceDirectory(srv.URL, time.Second, zap.NewNop())
	_, err := c.ListDivisionsByDistrict(context.Background(), "Atlantis")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "district unknown")
}

func TestHTTPReference_LookupGn(t *testing.T) {
	srv := newReferenceServer(t)
	defer srv.Close()

	c := NewHTTPReferenceDirectory(srv.URL, time.Second, zap.NewNop())
	rows, err := c.LookupGn(context.Background(), []string{"GN-01", "GN-99"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Pallimunai", rows[0].GnName)
}
