package agent

import (
	"context"
	"sync"

	"github.com/Riboost-Studio/sushiamo-bridge/internal/backend"
	"github.com/Riboost-Studio/sushiamo-bridge/internal/bridgelog"
	"github.com/Riboost-Studio/sushiamo-bridge/internal/model"
	"github.com/Riboost-Studio/sushiamo-bridge/internal/pump"
	"github.com/Riboost-Studio/sushiamo-bridge/internal/session"
	"github.com/Riboost-Studio/sushiamo-bridge/internal/store"
	"github.com/Riboost-Studio/sushiamo-bridge/internal/transport"
)

// Broadcaster is pushed the full public snapshot after every mutation
// (spec.md 4.9). internal/wsbridge.Server implements it.
type Broadcaster interface {
	PushState(PublicState)
}

// Agent is the control surface: the single owner of State, reachable
// concurrently from the shell (saveConfig, startService, ...) and from
// the pump's own tick loop (stats, assignment).
type Agent struct {
	mu    sync.Mutex
	state State
	flags *model.RPCAvailability

	store      *store.Store
	backend    *backend.Client
	session    *session.Manager
	logger     *bridgelog.Logger
	pump       *pump.Pump
	broadcast  Broadcaster
	appVersion string

	cancelPump context.CancelFunc
	pumpDone   chan struct{}
}

// New loads persisted config/session from st and wires an Agent ready to
// receive control operations. Starting the pump is deferred to StartService.
func New(st *store.Store, client *backend.Client, sessMgr *session.Manager, logger *bridgelog.Logger, tcp *transport.TCPWriter, httpClient *transport.HTTPFiscalClient, appVersion string) *Agent {
	cfg, snapshot := st.Load()
	flags := model.NewRPCAvailability()

	a := &Agent{
		state: State{
			Config:  cfg,
			Session: snapshot,
		},
		flags:      flags,
		store:      st,
		backend:    client,
		session:    sessMgr,
		logger:     logger,
		appVersion: appVersion,
	}
	a.pump = pump.New(client, sessMgr, logger, (*scope)(a), tcp, httpClient, appVersion)
	return a
}

// SetBroadcaster attaches the shell-facing push target.
func (a *Agent) SetBroadcaster(b Broadcaster) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.broadcast = b
}

func (a *Agent) broadcastLocked() {
	if a.broadcast == nil {
		return
	}
	snapshot := a.state.snapshot(a.flags)
	a.broadcast.PushState(snapshot)
}

// SetAuth records the signed-in user and resolved restaurant scope,
// computed by the caller via internal/session (spec.md 4.2), and
// broadcasts the result.
func (a *Agent) SetAuth(user *model.User, scope *model.RestaurantScope) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state.Auth.User = user
	a.state.Auth.Scope = scope
	a.broadcastLocked()
}

// GetPublicState returns the current snapshot (spec.md 4.9).
func (a *Agent) GetPublicState() PublicState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.snapshot(a.flags)
}

// CurrentAccessToken returns the bearer token of the current session, for
// use as the backend.Client TokenFunc the Agent itself was built with.
func (a *Agent) CurrentAccessToken() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Session.AccessToken
}
