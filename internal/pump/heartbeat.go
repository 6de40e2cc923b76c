package pump

import "context"

// heartbeat implements spec.md 4.7: optionally read the server's current
// assignment via printing_list_agents, then register with isActive=true.
// The returned assignment (if any) is surfaced in the public state.
func (p *Pump) heartbeat(ctx context.Context, restaurantID string) error {
	consumerID := p.scope.ConsumerID()

	if agents, err := p.backend.ListAgents(ctx, restaurantID); err == nil {
		for _, a := range agents {
			if a.AgentID != consumerID {
				continue
			}
			if a.PrinterID == "" {
				p.scope.SetAssignedPrinterID(nil)
			} else {
				printerID := a.PrinterID
				p.scope.SetAssignedPrinterID(&printerID)
			}
			break
		}
	}

	result, err := p.backend.RegisterAgent(ctx, restaurantID, consumerID, p.scope.AssignedPrinterID(), p.scope.DeviceName(), p.appVersion, true)
	if err != nil {
		return err
	}
	if result.PrinterID != "" {
		printerID := result.PrinterID
		p.scope.SetAssignedPrinterID(&printerID)
	}
	return nil
}

// FinalHeartbeat issues a best-effort isActive=false heartbeat, called on
// stopService and process shutdown (spec.md 4.7, 5).
func (p *Pump) FinalHeartbeat(ctx context.Context, restaurantID string) {
	consumerID := p.scope.ConsumerID()
	_, _ = p.backend.RegisterAgent(ctx, restaurantID, consumerID, p.scope.AssignedPrinterID(), p.scope.DeviceName(), p.appVersion, false)
}
