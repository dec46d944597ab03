package sched

import "time"

// Metrics provides observability for scheduler operations. Implementations
// must be safe for concurrent use: cell workers of the same slot run in
// parallel. This interface is optional - pass nil to disable metrics
// collection with zero overhead.
type Metrics interface {
	// ObserveSlot records the wall time one cell worker spent on a slot.
	ObserveSlot(cell uint32, duration time.Duration)

	// ObserveDLGrant records a PDSCH allocation.
	ObserveDLGrant(cell uint32, retx bool, tbs uint32)

	// ObserveULGrant records a PUSCH allocation.
	ObserveULGrant(cell uint32, retx bool, tbs uint32)

	// ObserveReservationConflict records a UE skipped because an
	// overlapping slot context holds its carrier.
	ObserveReservationConflict(cell uint32)

	// ObserveTBDropped records a transport block discarded after
	// exhausting its retransmission budget.
	ObserveTBDropped(cell uint32)

	// ObserveFeedbackDropped records feedback discarded because the target
	// UE is unknown.
	ObserveFeedbackDropped(kind string)

	// SetActiveUEs tracks the UE table size.
	SetActiveUEs(n int)

	// SetEventQueueDepth tracks the pending feedback queue at drain time.
	SetEventQueueDepth(n int)
}
