package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Riboost-Studio/sushiamo-bridge/internal/discovery"
	"github.com/Riboost-Studio/sushiamo-bridge/internal/model"
	"github.com/Riboost-Studio/sushiamo-bridge/internal/render"
	"github.com/Riboost-Studio/sushiamo-bridge/internal/route"
	"github.com/Riboost-Studio/sushiamo-bridge/internal/transport"
)

// ErrRtHostMissing is the operational error code of spec.md 6 surfaced when
// TestRtReceipt is asked to probe a candidate with no host configured.
var ErrRtHostMissing = errors.New("PHYSICAL_RT_HOST_MISSING")

// SaveConfig merges patch into the current config, sanitizes, persists,
// and returns the new public state (spec.md 4.9).
func (a *Agent) SaveConfig(patch model.ConfigPatch) (PublicState, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	merged := a.state.Config.Merge(patch)
	if err := a.store.SaveConfig(merged); err != nil {
		return a.state.snapshot(a.flags), fmt.Errorf("persist config: %w", err)
	}
	a.state.Config = merged
	a.broadcastLocked()
	return a.state.snapshot(a.flags), nil
}

// SyncSession accepts raw only if it carries non-empty tokens and differs
// from what's already recorded; when autoStart is set and the service
// isn't running, it attempts to start it (spec.md 4.9).
func (a *Agent) SyncSession(ctx context.Context, raw model.SessionSnapshot) (PublicState, error) {
	a.mu.Lock()

	if raw.Empty() {
		a.mu.Unlock()
		return a.GetPublicState(), nil
	}
	if model.SameSession(a.state.Session, raw) {
		a.mu.Unlock()
		return a.GetPublicState(), nil
	}

	if err := a.store.SaveSession(raw); err != nil {
		a.mu.Unlock()
		return a.GetPublicState(), fmt.Errorf("persist session: %w", err)
	}
	a.state.Session = raw
	autoStart := a.state.Config.AutoStart
	running := a.state.Running
	a.broadcastLocked()
	a.mu.Unlock()

	if autoStart && !running {
		return a.StartService(ctx)
	}
	return a.GetPublicState(), nil
}

// ClearSession wipes auth state and stops the service (spec.md 4.9).
func (a *Agent) ClearSession(ctx context.Context) PublicState {
	a.mu.Lock()
	a.state.Auth.Clear()
	a.state.Session = model.SessionSnapshot{}
	_ = a.store.SaveSession(model.SessionSnapshot{})
	a.broadcastLocked()
	a.mu.Unlock()

	state, _ := a.StopService(ctx)
	return state
}

// StartService begins the pump's tick loop, idempotently (spec.md 4.9).
func (a *Agent) StartService(ctx context.Context) (PublicState, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state.Running {
		return a.state.snapshot(a.flags), nil
	}

	a.state.Stats.Reset()
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	a.cancelPump = cancel
	a.pumpDone = done

	go func() {
		defer close(done)
		a.pump.Run(runCtx, func() int { return a.currentPollMs() })
	}()

	a.state.Running = true
	a.broadcastLocked()
	return a.state.snapshot(a.flags), nil
}

// StopService cancels the next-tick timer, waits for an in-flight tick to
// finish, then issues a best-effort final heartbeat (spec.md 4.9, 5, 4.7).
func (a *Agent) StopService(ctx context.Context) (PublicState, error) {
	a.mu.Lock()
	if !a.state.Running {
		defer a.mu.Unlock()
		return a.state.snapshot(a.flags), nil
	}
	cancel := a.cancelPump
	done := a.pumpDone
	restaurantID, hasScope := a.restaurantIDLocked()
	a.mu.Unlock()

	cancel()
	<-done

	if hasScope {
		a.pump.FinalHeartbeat(ctx, restaurantID)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.Running = false
	a.cancelPump = nil
	a.pumpDone = nil
	a.broadcastLocked()
	return a.state.snapshot(a.flags), nil
}

func (a *Agent) currentPollMs() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Config.PollMs
}

func (a *Agent) restaurantIDLocked() (string, bool) {
	if a.state.Auth.Scope == nil {
		return "", false
	}
	return a.state.Auth.Scope.ID, true
}

// DiscoverPrinters runs a LAN scan for thermal printers (spec.md 4.8/4.9).
func (a *Agent) DiscoverPrinters(ctx context.Context, timeoutMs int) ([]discovery.PrinterCandidate, error) {
	return discovery.DiscoverPrinters(ctx, timeoutMs)
}

// DiscoverRtDevices runs a LAN scan for fiscal (RT) devices (spec.md 4.8/4.9).
func (a *Agent) DiscoverRtDevices(ctx context.Context, timeoutMs int) ([]discovery.FiscalCandidate, error) {
	return discovery.DiscoverFiscalDevices(ctx, timeoutMs)
}

// TestRtReceipt probes a candidate fiscal device with the non-fiscal
// connectivity document rather than opening a real fiscal receipt
// (spec.md 4.3, 4.9).
func (a *Agent) TestRtReceipt(ctx context.Context, host string, port int, apiPath string) error {
	if strings.TrimSpace(host) == "" {
		return ErrRtHostMissing
	}
	client := transport.NewHTTPFiscalClient(transport.HTTPTestTimeout)
	_, err := client.Post(ctx, host, route.NormalizePort(port), apiPath, render.ConnectivityTestDocument())
	return err
}
