// Command bridge is the print-worker daemon: it owns the agent's state,
// polls the backend for jobs, and exposes the control surface described in
// spec.md 4.9 over a local WebSocket for the shell (cmd/monitor, or any
// other frontend) to drive.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Riboost-Studio/sushiamo-bridge/internal/agent"
	"github.com/Riboost-Studio/sushiamo-bridge/internal/backend"
	"github.com/Riboost-Studio/sushiamo-bridge/internal/bridgelog"
	"github.com/Riboost-Studio/sushiamo-bridge/internal/model"
	"github.com/Riboost-Studio/sushiamo-bridge/internal/session"
	"github.com/Riboost-Studio/sushiamo-bridge/internal/store"
	"github.com/Riboost-Studio/sushiamo-bridge/internal/transport"
	"github.com/Riboost-Studio/sushiamo-bridge/internal/wsbridge"
)

const appVersion = "1.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backendURL := envOr("SUSHIAMO_BACKEND_URL", "https://api.sushiamo.local")
	listenAddr := envOr("SUSHIAMO_LISTEN_ADDR", "127.0.0.1:8787")
	stateDir := envOr("SUSHIAMO_STATE_DIR", defaultStateDir())

	st := store.New(stateDir)
	logger := bridgelog.New(log.New(os.Stdout, "", log.LstdFlags), model.NewLogRing())

	// a is wired below; client.TokenFunc defers to it so every request
	// (including the ones session.Manager itself issues) carries whatever
	// session is current at call time.
	var a *agent.Agent
	client := backend.New(backendURL, func() string {
		if a == nil {
			return ""
		}
		return a.CurrentAccessToken()
	})

	sessMgr := session.New(client, client.CurrentUser, client.RestoreSession,
		func(s model.SessionSnapshot) error { return st.SaveSession(s) },
		func() model.SessionSnapshot { _, snap := st.Load(); return snap },
	)

	a = agent.New(st, client, sessMgr, logger,
		transport.NewTCPWriter(), transport.NewHTTPFiscalClient(transport.HTTPProductionTimeout), appVersion)

	bridge := wsbridge.New(a.Dispatch)
	a.SetBroadcaster(bridge)
	logger.SetSink(bridge)

	bootstrap(ctx, a, sessMgr)

	server := &http.Server{Addr: listenAddr, Handler: http.HandlerFunc(bridge.ServeHTTP)}
	go func() {
		logger.Info("control surface listening on %s", listenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("control surface stopped: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), transport.HTTPProductionTimeout)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	_, _ = a.StopService(shutdownCtx)
}

// bootstrap resolves the signed-in user and restaurant scope and starts the
// pump when autoStart is configured (spec.md 4.1/4.2/4.9). A failure here
// just leaves the agent signed out; the shell drives syncSession next.
func bootstrap(ctx context.Context, a *agent.Agent, sessMgr *session.Manager) {
	user, err := sessMgr.EnsureSignedIn(ctx)
	if err != nil {
		return
	}

	scope, err := sessMgr.ResolveRestaurantForCurrentUser(ctx, user.ID)
	if err != nil {
		return
	}
	a.SetAuth(user, scope)

	if scope == nil {
		return
	}
	if a.GetPublicState().Config.AutoStart {
		_, _ = a.StartService(ctx)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultStateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "sushiamo-bridge")
}
