package store

import "errors"

// Sentinel errors surfaced to the API layer, where they map onto HTTP
// statuses. Anything else coming out of the store is a storage failure.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrSlotNotFound    = errors.New("slot not found")
	ErrSlotTaken       = errors.New("slot already booked")
	ErrMachineNotFound = errors.New("machine not found")
)
