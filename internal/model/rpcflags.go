package model

import "sync/atomic"

// RPCAvailability tracks whether a backend job family's RPCs are still
// present. Flags start true and are flipped false, never back, until the
// process restarts (spec.md 3, 4.6, 7).
type RPCAvailability struct {
	physicalReceipt   atomic.Bool
	nonFiscalReceipt  atomic.Bool
}

// NewRPCAvailability returns availability flags with both families enabled.
func NewRPCAvailability() *RPCAvailability {
	a := &RPCAvailability{}
	a.physicalReceipt.Store(true)
	a.nonFiscalReceipt.Store(true)
	return a
}

func (a *RPCAvailability) PhysicalReceiptAvailable() bool { return a.physicalReceipt.Load() }
func (a *RPCAvailability) NonFiscalReceiptAvailable() bool { return a.nonFiscalReceipt.Load() }

// DisablePhysicalReceipt flips the physical-receipt flag off and reports
// whether this call was the one that flipped it (for one-time logging).
func (a *RPCAvailability) DisablePhysicalReceipt() bool {
	return a.physicalReceipt.CompareAndSwap(true, false)
}

// DisableNonFiscalReceipt flips the non-fiscal-receipt flag off and reports
// whether this call was the one that flipped it (for one-time logging).
func (a *RPCAvailability) DisableNonFiscalReceipt() bool {
	return a.nonFiscalReceipt.CompareAndSwap(true, false)
}
