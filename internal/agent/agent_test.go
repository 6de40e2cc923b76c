package agent

import (
	"context"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Riboost-Studio/sushiamo-bridge/internal/backend"
	"github.com/Riboost-Studio/sushiamo-bridge/internal/bridgelog"
	"github.com/Riboost-Studio/sushiamo-bridge/internal/model"
	"github.com/Riboost-Studio/sushiamo-bridge/internal/session"
	"github.com/Riboost-Studio/sushiamo-bridge/internal/store"
	"github.com/Riboost-Studio/sushiamo-bridge/internal/transport"
)

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

type recordingBroadcaster struct {
	states []PublicState
}

func (r *recordingBroadcaster) PushState(s PublicState) {
	r.states = append(r.states, s)
}

func newTestAgent(t *testing.T, srv *httptest.Server) *Agent {
	t.Helper()
	st := store.New(filepath.Join(t.TempDir(), "state"))
	client := backend.New(srv.URL, func() string { return "tok" })
	logger := bridgelog.New(log.New(discardWriter{}, "", 0), model.NewLogRing())
	sessMgr := session.New(client,
		func(ctx context.Context) (*model.User, error) { return &model.User{ID: "u1"}, nil },
		nil, nil,
		func() model.SessionSnapshot { return model.SessionSnapshot{} },
	)
	return New(st, client, sessMgr, logger, transport.NewTCPWriter(), transport.NewHTTPFiscalClient(transport.HTTPTestTimeout), "1.0.0-test")
}

func TestSaveConfigPersistsAndBroadcasts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := newTestAgent(t, srv)
	bc := &recordingBroadcaster{}
	a.SetBroadcaster(bc)

	name := "Cucina Principale"
	state, err := a.SaveConfig(model.ConfigPatch{DeviceName: &name})
	require.NoError(t, err)
	require.Equal(t, "Cucina Principale", state.Config.DeviceName)
	require.Len(t, bc.states, 1)

	reloaded, _ := a.store.Load()
	require.Equal(t, "Cucina Principale", reloaded.DeviceName)
}

func TestClearSessionWipesAuthAndStopsService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := newTestAgent(t, srv)
	a.SetAuth(&model.User{ID: "u1"}, &model.RestaurantScope{ID: "r1", Role: model.RoleOwner})

	_, err := a.StartService(context.Background())
	require.NoError(t, err)
	require.True(t, a.GetPublicState().Running)

	state := a.ClearSession(context.Background())
	require.Nil(t, state.User)
	require.Nil(t, state.Scope)
	require.False(t, state.Running)
}

func TestStartServiceIsIdempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := newTestAgent(t, srv)
	s1, err := a.StartService(context.Background())
	require.NoError(t, err)
	s2, err := a.StartService(context.Background())
	require.NoError(t, err)
	require.Equal(t, s1.Running, s2.Running)

	_, err = a.StopService(context.Background())
	require.NoError(t, err)
	require.False(t, a.GetPublicState().Running)
}

func TestTestRtReceiptRejectsEmptyHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("fiscal client should not be called with no host")
	}))
	defer srv.Close()

	a := newTestAgent(t, srv)
	err := a.TestRtReceipt(context.Background(), "  ", 8081, "/fpmate")
	require.ErrorIs(t, err, ErrRtHostMissing)
}

func TestStopServiceWaitsForInFlightTick(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	a := newTestAgent(t, srv)
	a.SetAuth(&model.User{ID: "u1"}, &model.RestaurantScope{ID: "r1", Role: model.RoleOwner})
	_, err := a.StartService(context.Background())
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	close(release)

	_, err = a.StopService(context.Background())
	require.NoError(t, err)
	require.False(t, a.GetPublicState().Running)
}
