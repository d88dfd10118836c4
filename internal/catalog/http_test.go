package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSource_FetchCatalog(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/catalog", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]Record{
			{SKU: "SKU-1", Name: "Widget", Category: "hardware", Price: 9.99, Quantity: 20, ReorderPoint: 5, Vendor: "Acme"},
			{SKU: "SKU-2", Name: "Gadget", Category: "hardware", Price: 4.50, Quantity: 3, ReorderPoint: 5, Vendor: "Bolt"},
		})
	}))
	defer srv.Close()

	s := NewHTTPSource(HTTPConfig{BaseURL: srv.URL + "/", Token: "tok"})

	records, err := s.FetchCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "SKU-1", records[0].SKU)
	assert.Equal(t, 20, records[0].Quantity)
	assert.Equal(t, "Bearer tok", gotAuth)
}

func TestHTTPSource_FetchCatalogRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewHTTPSource(HTTPConfig{BaseURL: srv.URL})

	_, err := s.FetchCatalog(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestHTTPSource_PushQuantity(t *testing.T) {
	var gotPath string
	var gotBody map[string]int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewHTTPSource(HTTPConfig{BaseURL: srv.URL})

	require.NoError(t, s.PushQuantity(context.Background(), "SKU-1", 17))
	assert.Equal(t, "/catalog/SKU-1/quantity", gotPath)
	assert.Equal(t, map[string]int{"quantity": 17}, gotBody)
}

func TestHTTPSource_PushQuantityRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	s := NewHTTPSource(HTTPConfig{BaseURL: srv.URL})

	err := s.PushQuantity(context.Background(), "ghost", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestFakeSource_FailuresAndBookkeeping(t *testing.T) {
	s := NewFakeSource(
		Record{SKU: "SKU-1", Quantity: 10},
		Record{SKU: "SKU-2", Quantity: 5},
	)
	ctx := context.Background()

	records, err := s.FetchCatalog(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "SKU-1", records[0].SKU, "insertion order preserved")
	assert.Equal(t, 1, s.FetchCount())

	s.FailSKU("SKU-2")
	assert.NoError(t, s.PushQuantity(ctx, "SKU-1", 7))
	assert.Error(t, s.PushQuantity(ctx, "SKU-2", 3))

	pushed, ok := s.Pushed("SKU-1")
	require.True(t, ok)
	assert.Equal(t, 7, pushed)
	_, ok = s.Pushed("SKU-2")
	assert.False(t, ok)
	assert.Equal(t, 1, s.PushCount())

	// A push updates the stored record for the next fetch.
	records, err = s.FetchCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, records[0].Quantity)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.FetchCatalog(canceled)
	assert.ErrorIs(t, err, context.Canceled)
}
