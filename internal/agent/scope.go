package agent

import "github.com/Riboost-Studio/sushiamo-bridge/internal/model"

// scope is Agent viewed through pump.Scope — a distinct named type over
// the same underlying struct so the pump's dependency stays a narrow
// interface instead of the whole Agent surface.
type scope Agent

func (s *scope) agent() *Agent { return (*Agent)(s) }

func (s *scope) RestaurantID() (string, bool) {
	a := s.agent()
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.restaurantIDLocked()
}

func (s *scope) ConsumerID() string {
	a := s.agent()
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Config.ConsumerID
}

func (s *scope) DeviceName() string {
	a := s.agent()
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Config.DeviceName
}

func (s *scope) ClaimLimit() int {
	a := s.agent()
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Config.ClaimLimit
}

func (s *scope) AssignedPrinterID() *string {
	a := s.agent()
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.AssignedPrinterID
}

func (s *scope) SetAssignedPrinterID(id *string) {
	a := s.agent()
	a.mu.Lock()
	a.state.AssignedPrinterID = id
	a.broadcastLocked()
	a.mu.Unlock()
}

func (s *scope) RPCFlags() *model.RPCAvailability {
	return s.agent().flags
}

func (s *scope) RecordStats(fn func(*model.RuntimeStats)) {
	a := s.agent()
	a.mu.Lock()
	fn(&a.state.Stats)
	a.broadcastLocked()
	a.mu.Unlock()
}
