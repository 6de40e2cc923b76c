package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Riboost-Studio/sushiamo-bridge/internal/model"
)

// Dispatch executes one named control-surface command against a, decoding
// params per-command, for use as a wsbridge.Dispatcher (spec.md 4.9).
func (a *Agent) Dispatch(ctx context.Context, command string, params json.RawMessage) (any, error) {
	switch command {
	case "getPublicState":
		return a.GetPublicState(), nil

	case "saveConfig":
		var patch model.ConfigPatch
		if err := decode(params, &patch); err != nil {
			return nil, err
		}
		return a.SaveConfig(patch)

	case "syncSession":
		var snapshot model.SessionSnapshot
		if err := decode(params, &snapshot); err != nil {
			return nil, err
		}
		return a.SyncSession(ctx, snapshot)

	case "clearSession":
		return a.ClearSession(ctx), nil

	case "startService":
		return a.StartService(ctx)

	case "stopService":
		return a.StopService(ctx)

	case "discoverPrinters":
		var req struct {
			TimeoutMs int `json:"timeoutMs"`
		}
		if err := decode(params, &req); err != nil {
			return nil, err
		}
		return a.DiscoverPrinters(ctx, req.TimeoutMs)

	case "discoverRtDevices":
		var req struct {
			TimeoutMs int `json:"timeoutMs"`
		}
		if err := decode(params, &req); err != nil {
			return nil, err
		}
		return a.DiscoverRtDevices(ctx, req.TimeoutMs)

	case "testRtReceipt":
		var req struct {
			Host    string `json:"host"`
			Port    int    `json:"port"`
			APIPath string `json:"apiPath"`
		}
		if err := decode(params, &req); err != nil {
			return nil, err
		}
		return nil, a.TestRtReceipt(ctx, req.Host, req.Port, req.APIPath)

	default:
		return nil, fmt.Errorf("unknown command %q", command)
	}
}

func decode(params json.RawMessage, dst any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, dst); err != nil {
		return fmt.Errorf("decode params: %w", err)
	}
	return nil
}
