package sched

import (
	"fmt"
	"sync/atomic"
)

// slotContext is one of the orchestrator's concurrent slot slots. The gate
// channel is a binary semaphore guarding reuse: reserve acquires it, the
// slot's finalization releases it. pending counts cell workers still running
// for the slot; the last decrementer finalizes.
type slotContext struct {
	slot    Slot
	workers []*cellWorker
	pending atomic.Int32
	gate    chan struct{}
}

func newSlotContext(cells []*cellParams, policy Policy, m Metrics) *slotContext {
	c := &slotContext{gate: make(chan struct{}, 1)}
	for _, cell := range cells {
		c.workers = append(c.workers, newCellWorker(cell, policy, m))
	}
	return c
}

// orchestrator owns the ring of slot contexts and fans slot work out to the
// per-cell workers. Contexts are addressed slot mod N; every entry point
// asserts the stored slot matches the caller's, catching out-of-order
// delivery.
type orchestrator struct {
	ctxs   []*slotContext
	ues    *ueTable
	events *eventManager
}

func newOrchestrator(numSlots int, cells []*cellParams, ues *ueTable, events *eventManager, policy Policy, m Metrics) *orchestrator {
	o := &orchestrator{ues: ues, events: events}
	for i := 0; i < numSlots; i++ {
		o.ctxs = append(o.ctxs, newSlotContext(cells, policy, m))
	}
	return o
}

func (o *orchestrator) ctxFor(slot Slot) *slotContext {
	return o.ctxs[int(slot)%len(o.ctxs)]
}

// reserveWorkers admits a slot into its context. Blocks while the context is
// still busy with a previous wrap-around, giving the caller natural
// backpressure: scheduling more than len(ctxs) slots ahead waits.
func (o *orchestrator) reserveWorkers(slot Slot) {
	c := o.ctxFor(slot)
	c.gate <- struct{}{}
	c.slot = slot
	c.pending.Store(int32(len(c.workers)))
}

// startSlot reserves UE resources on every cell worker of the slot.
func (o *orchestrator) startSlot(slot Slot) {
	c := o.ctxFor(slot)
	if c.slot != slot {
		panic(fmt.Sprintf("sched: startSlot(%d) against context holding slot %d", slot, c.slot))
	}
	for _, w := range c.workers {
		w.start(slot, o.ues)
	}
}

// runCell executes the cell's allocation pass and copies the result into the
// caller's buffer. Callable concurrently for distinct cells. Returns true
// when this call was the last pending worker of the slot; the caller must
// then finalize via endSlot.
func (o *orchestrator) runCell(slot Slot, cc uint32, out *SlotResult) bool {
	c := o.ctxFor(slot)
	if c.slot != slot {
		panic(fmt.Sprintf("sched: runCell(%d,%d) against context holding slot %d", slot, cc, c.slot))
	}
	w := c.workers[cc]
	w.run()
	w.copyResult(out)

	rem := c.pending.Add(-1)
	if rem < 0 {
		panic(fmt.Sprintf("sched: runCell(%d,%d) called more times than cells", slot, cc))
	}
	return rem == 0
}

// endSlot is the single-threaded finalize step run by the last finisher:
// release every UE reservation, apply the feedback observed during the slot,
// then open the context for reuse.
func (o *orchestrator) endSlot(slot Slot) {
	c := o.ctxFor(slot)
	if c.slot != slot {
		panic(fmt.Sprintf("sched: endSlot(%d) against context holding slot %d", slot, c.slot))
	}
	if c.pending.Load() != 0 {
		panic(fmt.Sprintf("sched: endSlot(%d) with %d workers pending", slot, c.pending.Load()))
	}
	for _, w := range c.workers {
		w.endSlot()
	}
	o.events.applyPending()
	<-c.gate
}
