package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/Riboost-Studio/sushiamo-bridge/internal/agent"
	"github.com/Riboost-Studio/sushiamo-bridge/internal/model"
	"github.com/Riboost-Studio/sushiamo-bridge/internal/wsbridge"
)

func TestUpdateAppliesStatePushMessage(t *testing.T) {
	m := newModel(nil)
	printerID := "p1"
	next, _ := m.Update(pushMsg{Type: "printer-state", State: &agent.PublicState{Running: true, AssignedPrinterID: &printerID}})
	um := next.(uiModel)
	require.True(t, um.haveState)
	require.True(t, um.state.Running)
	require.Equal(t, "p1", *um.state.AssignedPrinterID)
}

func TestUpdateAppendsAndCapsLogTail(t *testing.T) {
	m := newModel(nil)
	for i := 0; i < logTailSize+5; i++ {
		next, _ := m.Update(pushMsg{Type: "printer-log", Log: &model.LogRow{Level: model.LevelInfo, Message: "line"}})
		m = next.(uiModel)
	}
	require.Len(t, m.logs, logTailSize)
}

func TestUpdateQuitsOnQKey(t *testing.T) {
	m := newModel(nil)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
}

func TestStartServiceCommandRoundTripsThroughRealBridge(t *testing.T) {
	dispatcher := func(ctx context.Context, command string, params json.RawMessage) (any, error) {
		require.Equal(t, "startService", command)
		return agent.PublicState{Running: true}, nil
	}
	bridge := wsbridge.New(dispatcher)
	srv := httptest.NewServer(http.HandlerFunc(bridge.ServeHTTP))
	defer srv.Close()

	client, err := dialBridge(srv.URL)
	require.NoError(t, err)
	defer client.close()

	// Mirror the monitor's own listenForPush loop: client.next() must run
	// concurrently for responses to reach call()'s pending channel.
	go func() {
		for {
			if _, err := client.next(); err != nil {
				return
			}
		}
	}()

	msg := runCommand(client, "service started", "startService", nil)()
	done, ok := msg.(actionDoneMsg)
	require.True(t, ok, "expected actionDoneMsg, got %T", msg)
	require.Equal(t, "service started", done.label)
}
