package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Riboost-Studio/sushiamo-bridge/internal/model"
)

func TestCurrentUserDecodesAuthUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/v1/user", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"u1","email":"chef@sushiamo.it"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, func() string { return "tok" })
	user, err := client.CurrentUser(context.Background())
	require.NoError(t, err)
	require.NotNil(t, user)
	require.Equal(t, "u1", user.ID)
}

func TestCurrentUserUnauthorizedYieldsNilNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := New(srv.URL, func() string { return "" })
	user, err := client.CurrentUser(context.Background())
	require.NoError(t, err)
	require.Nil(t, user)
}

func TestRestoreSessionBuildsRefreshedSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/v1/token", r.URL.Path)
		require.Equal(t, "refresh_token", r.URL.Query().Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"new-a","refresh_token":"new-r","user":{"id":"u1","email":"chef@sushiamo.it"}}`))
	}))
	defer srv.Close()

	client := New(srv.URL, func() string { return "" })
	refreshed, user, err := client.RestoreSession(context.Background(), sampleSnapshot())
	require.NoError(t, err)
	require.Equal(t, "new-a", refreshed.AccessToken)
	require.Equal(t, "u1", user.ID)
}

func TestRestoreSessionFailsOnRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid refresh token"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, func() string { return "" })
	_, _, err := client.RestoreSession(context.Background(), sampleSnapshot())
	require.Error(t, err)
}

func sampleSnapshot() model.SessionSnapshot {
	return model.SessionSnapshot{AccessToken: "old-a", RefreshToken: "old-r"}
}
