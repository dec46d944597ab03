package sched

import (
	"fmt"
	"time"

	"github.com/marmos91/ransched/internal/logger"
)

// cellWorker runs the allocation algorithm for one {cell, slot}. Between
// start and endSlot it holds the live slot-UE views it managed to reserve;
// the grid it writes into is exclusively its own.
type cellWorker struct {
	cc      uint32
	cell    *cellParams
	grid    slotGrid
	policy  Policy
	metrics Metrics

	slot    Slot
	running bool
	slotUEs []*slotUE
}

func newCellWorker(cell *cellParams, policy Policy, m Metrics) *cellWorker {
	return &cellWorker{
		cc:      cell.cc,
		cell:    cell,
		grid:    newSlotGrid(cell),
		policy:  policy,
		metrics: m,
	}
}

// start reserves UE resources for this {slot, cell}. A UE whose carrier is
// held by an overlapping slot context is skipped for the whole slot; the
// worker never retries within the slot.
func (w *cellWorker) start(slot Slot, ues *ueTable) {
	if w.running {
		panic(fmt.Sprintf("sched: worker cell %d: start while active", w.cc))
	}
	w.running = true
	w.slot = slot
	w.grid.reset(slot)

	ues.forEach(func(u *ue) {
		if u.carrier(w.cc) == nil {
			return
		}
		su := u.tryReserve(slot, w.cc)
		if su.Empty() {
			if w.metrics != nil {
				w.metrics.ObserveReservationConflict(w.cc)
			}
			logger.Debug("ue busy on overlapping slot, skipping",
				logger.KeyRNTI, u.rnti, logger.KeyCell, w.cc, logger.KeySlot, slot)
			return
		}
		view := su
		w.slotUEs = append(w.slotUEs, &view)
	})
}

// run executes one allocation pass. Slot parity decides whether downlink or
// uplink contends for PDCCH capacity first, rotating the priority across
// slots so neither direction is systematically starved.
func (w *cellWorker) run() {
	if !w.running {
		panic(fmt.Sprintf("sched: worker cell %d: run while inactive", w.cc))
	}
	started := time.Now()

	if w.slot&1 == 0 {
		w.policy.AllocDL(w.slotUEs, &w.grid)
		w.policy.AllocUL(w.slotUEs, &w.grid)
	} else {
		w.policy.AllocUL(w.slotUEs, &w.grid)
		w.policy.AllocDL(w.slotUEs, &w.grid)
	}

	w.grid.generateDCIs()
	w.recordGrants(time.Since(started))
}

func (w *cellWorker) recordGrants(elapsed time.Duration) {
	if w.metrics == nil {
		return
	}
	w.metrics.ObserveSlot(w.cc, elapsed)
	for i := range w.grid.dlGrants {
		w.metrics.ObserveDLGrant(w.cc, w.grid.dlRetx[i], w.grid.dlGrants[i].TBS)
	}
	for i := range w.grid.ulGrants {
		w.metrics.ObserveULGrant(w.cc, w.grid.ulRetx[i], w.grid.ulGrants[i].TBS)
	}
}

// copyResult writes the slot's grants into the caller's output buffer.
func (w *cellWorker) copyResult(out *SlotResult) {
	out.reset(w.slot, w.cc)
	out.DLGrants = append(out.DLGrants, w.grid.dlGrants...)
	out.ULGrants = append(out.ULGrants, w.grid.ulGrants...)
}

// endSlot releases every reservation taken by start.
func (w *cellWorker) endSlot() {
	if !w.running {
		panic(fmt.Sprintf("sched: worker cell %d: endSlot while inactive", w.cc))
	}
	for _, su := range w.slotUEs {
		su.release()
	}
	w.slotUEs = w.slotUEs[:0]
	w.running = false
}
