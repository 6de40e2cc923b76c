// Package agent owns the single mutex-guarded State record the control
// surface operates on, and broadcasts every mutation to the hosting shell
// (spec.md 4.9, 5).
package agent

import "github.com/Riboost-Studio/sushiamo-bridge/internal/model"

// State is the agent's full in-memory state. Every mutation happens
// through Agent's methods, which hold mu for the duration of the call —
// the "each control operation acquires exclusive access" rule of spec.md
// 5.
type State struct {
	Config            model.AgentConfig
	Auth              model.AuthState
	Session           model.SessionSnapshot
	Running           bool
	AssignedPrinterID *string
	Stats             model.RuntimeStats
}

// PublicState is the snapshot pushed to the shell and returned by every
// control operation; it omits the session's raw tokens and the log ring,
// which is streamed separately.
type PublicState struct {
	Config                    model.AgentConfig      `json:"config"`
	User                      *model.User            `json:"user"`
	Scope                     *model.RestaurantScope `json:"scope"`
	Running                   bool                   `json:"running"`
	AssignedPrinterID         *string                `json:"assignedPrinterId"`
	Stats                     model.RuntimeStats     `json:"stats"`
	PhysicalReceiptAvailable  bool                   `json:"physicalReceiptAvailable"`
	NonFiscalReceiptAvailable bool                   `json:"nonFiscalReceiptAvailable"`
}

func (s *State) snapshot(flags *model.RPCAvailability) PublicState {
	return PublicState{
		Config:                    s.Config,
		User:                      s.Auth.User,
		Scope:                     s.Auth.Scope,
		Running:                   s.Running,
		AssignedPrinterID:         s.AssignedPrinterID,
		Stats:                     s.Stats,
		PhysicalReceiptAvailable:  flags.PhysicalReceiptAvailable(),
		NonFiscalReceiptAvailable: flags.NonFiscalReceiptAvailable(),
	}
}
