package sched

import "errors"

// Configuration rejections surfaced to the caller. None of these mutate
// scheduler state.
var (
	// ErrCellsConfigured is returned when CellCfg is called more than once.
	ErrCellsConfigured = errors.New("sched: cells already configured")

	// ErrNoCells is returned when an operation requires cell bring-up first.
	ErrNoCells = errors.New("sched: no cells configured")

	// ErrUnknownCell is returned for a carrier index outside the configured range.
	ErrUnknownCell = errors.New("sched: unknown cell index")

	// ErrInvalidCellConfig is returned when a cell configuration fails validation.
	ErrInvalidCellConfig = errors.New("sched: invalid cell configuration")

	// ErrInvalidUEConfig is returned when a UE configuration fails validation.
	ErrInvalidUEConfig = errors.New("sched: invalid ue configuration")
)

// Allocation misses. The UE simply gets no grant this slot and the policy
// moves on to the next UE. These misses are not logged; only reservation
// conflicts are logged, at debug level, by the worker.
var (
	errNoHARQ      = errors.New("no harq process available")
	errRBGOverlap  = errors.New("rbg mask overlaps an existing allocation")
	errNoPDCCH     = errors.New("no free pdcch candidate at required aggregation level")
	errNotReserved = errors.New("ue not reserved for this slot")
)
