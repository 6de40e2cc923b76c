package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRPCDecodesSuccessResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/v1/rpc/print_claim_jobs", r.URL.Path)
		require.Equal(t, "Bearer tok123", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "r1", body["p_restaurant_id"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"j1","department":"cucina"}]`))
	}))
	defer srv.Close()

	client := New(srv.URL, func() string { return "tok123" })
	rows, err := client.ClaimKitchenJobs(context.Background(), "r1", "c1", 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "j1", rows[0].ID)
}

func TestRPCFunctionNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Could not find the function physical_receipt_claim_jobs in schema cache"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, func() string { return "" })
	_, err := client.ClaimFiscalJobs(context.Background(), "r1", "c1", 5)
	require.Error(t, err)
	require.True(t, IsFunctionNotFound(err))
}

func TestRPCRemoteRejectionNotFunctionMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"deadlock detected"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, func() string { return "" })
	err := client.CompleteKitchenJob(context.Background(), "j1", "c1", true, "", nil)
	require.Error(t, err)
	require.False(t, IsFunctionNotFound(err))
}
