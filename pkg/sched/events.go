package sched

import (
	"sync"

	"github.com/marmos91/ransched/internal/logger"
)

type eventKind uint8

const (
	evDLAck eventKind = iota
	evULCrc
	evULSR
	evDLCqi
	evULBsr
	evDLBuffer
	evUECfg
	evUERem
)

func (k eventKind) String() string {
	switch k {
	case evDLAck:
		return "dl_ack"
	case evULCrc:
		return "ul_crc"
	case evULSR:
		return "ul_sr"
	case evDLCqi:
		return "dl_cqi"
	case evULBsr:
		return "ul_bsr"
	case evDLBuffer:
		return "dl_buffer"
	case evUECfg:
		return "ue_cfg"
	case evUERem:
		return "ue_rem"
	}
	return "unknown"
}

// ueEvent is one unit of asynchronous UE feedback, stamped with the slot at
// which it was observed.
type ueEvent struct {
	kind  eventKind
	slot  Slot
	rnti  RNTI
	cc    uint32
	pid   uint8
	tb    uint8
	ack   bool
	cqi   uint8
	bsr   uint32
	bytes uint32
	cfg   *UEConfig
}

// eventManager serializes asynchronous UE feedback into the slot-finalize
// apply point. Producers (PHY and RRC threads) only append under a short
// queue mutex and never touch per-UE state; the single consumer drains in
// FIFO order during slot finalization, so effects observed at slot t are
// visible to slot-UE views at slot t+1 or later.
type eventManager struct {
	mu    sync.Mutex
	queue []ueEvent

	// applyMu keeps the consumer single-threaded when finalizations of
	// overlapping slot contexts race.
	applyMu sync.Mutex

	table   *ueTable
	sink    EventSink
	metrics Metrics
}

func newEventManager(table *ueTable, sink EventSink, m Metrics) *eventManager {
	return &eventManager{table: table, sink: sink, metrics: m}
}

func (em *eventManager) push(ev ueEvent) {
	em.mu.Lock()
	em.queue = append(em.queue, ev)
	em.mu.Unlock()
}

// applyPending drains the queue and applies every event to its target UE.
// Draining an empty queue is a no-op. HARQ feedback for the same
// (rnti, cell, pid, tb) observed within one slot collapses to the latest in
// enqueue order; ordering across slots is preserved by FIFO draining.
func (em *eventManager) applyPending() {
	em.applyMu.Lock()
	defer em.applyMu.Unlock()

	em.mu.Lock()
	pending := em.queue
	em.queue = nil
	em.mu.Unlock()

	if len(pending) == 0 {
		return
	}
	if em.metrics != nil {
		em.metrics.SetEventQueueDepth(len(pending))
	}

	collapseAcks(pending)
	var requeue []ueEvent
	for i := range pending {
		if pending[i].kind == evCollapsed {
			continue
		}
		if !em.apply(&pending[i]) {
			requeue = append(requeue, pending[i])
		}
	}
	if len(requeue) > 0 {
		em.mu.Lock()
		em.queue = append(requeue, em.queue...)
		em.mu.Unlock()
	}
}

// evCollapsed marks an event superseded by a later one in the same slot.
const evCollapsed = eventKind(0xff)

// collapseAcks keeps only the latest HARQ feedback per (slot, rnti, cell,
// pid, tb, kind), marking superseded entries.
func collapseAcks(events []ueEvent) {
	type ackKey struct {
		kind eventKind
		slot Slot
		rnti RNTI
		cc   uint32
		pid  uint8
		tb   uint8
	}
	latest := make(map[ackKey]int)
	for i := range events {
		k := events[i].kind
		if k != evDLAck && k != evULCrc {
			continue
		}
		key := ackKey{k, events[i].slot, events[i].rnti, events[i].cc, events[i].pid, events[i].tb}
		if prev, ok := latest[key]; ok {
			events[prev].kind = evCollapsed
		}
		latest[key] = i
	}
}

// apply executes one event. Returns false when the event must be requeued
// for the next slot boundary: a UE (or carrier) still borrowed by an
// overlapping slot context must never mutate underneath the active view.
func (em *eventManager) apply(ev *ueEvent) bool {
	if ev.kind == evUERem {
		return em.applyRemove(ev)
	}

	u := em.table.get(ev.rnti)
	if u == nil {
		logger.Warn("feedback for unknown ue, dropping",
			logger.KeyRNTI, ev.rnti, logger.KeyEvent, ev.kind.String(), logger.KeySlot, ev.slot)
		if em.metrics != nil {
			em.metrics.ObserveFeedbackDropped(ev.kind.String())
		}
		return true
	}

	switch ev.kind {
	case evDLAck, evULCrc:
		if c := u.carrier(ev.cc); c != nil && c.reserved.Load() {
			return false
		}
		em.applyHarqFeedback(u, ev, ev.kind == evDLAck)
	case evDLCqi:
		c := u.carrier(ev.cc)
		if c == nil {
			return true
		}
		if c.reserved.Load() {
			return false
		}
		c.lastCQI = ev.cqi
	case evULSR, evULBsr, evDLBuffer:
		if u.reservedAnywhere() {
			return false
		}
		for _, c := range u.carriers {
			if c == nil {
				continue
			}
			switch ev.kind {
			case evULSR:
				c.pendingSR = true
			case evULBsr:
				c.bsr = ev.bsr
			case evDLBuffer:
				c.dlPending = ev.bytes
			}
		}
	case evUECfg:
		if u.reservedAnywhere() {
			return false
		}
		u.applyCfg(*ev.cfg)
		if em.sink != nil {
			em.sink.UEReconfigured(ev.rnti)
		}
	}
	return true
}

func (em *eventManager) applyHarqFeedback(u *ue, ev *ueEvent, dl bool) {
	c := u.carrier(ev.cc)
	if c == nil {
		logger.Warn("harq feedback for inactive carrier, dropping",
			logger.KeyRNTI, ev.rnti, logger.KeyCell, ev.cc, logger.KeyEvent, ev.kind.String())
		return
	}
	ent := &c.ul
	if dl {
		ent = &c.dl
	}
	h := ent.proc(ev.pid)
	if h == nil || ev.tb != 0 {
		logger.Warn("harq feedback out of range, dropping",
			logger.KeyRNTI, ev.rnti, logger.KeyCell, ev.cc, logger.KeyPID, ev.pid, "tb", ev.tb)
		return
	}
	if dropped := h.handleAck(ev.ack); dropped {
		logger.Debug("transport block dropped after max retx",
			logger.KeyRNTI, ev.rnti, logger.KeyCell, ev.cc, logger.KeyPID, ev.pid)
		if em.metrics != nil {
			em.metrics.ObserveTBDropped(ev.cc)
		}
	}
}

func (em *eventManager) applyRemove(ev *ueEvent) bool {
	u := em.table.get(ev.rnti)
	if u == nil {
		return true // removal of an unknown ue is a no-op
	}
	if u.reservedAnywhere() {
		return false
	}
	if em.table.remove(ev.rnti) {
		if em.metrics != nil {
			em.metrics.SetActiveUEs(em.table.count())
		}
		if em.sink != nil {
			em.sink.UERemoved(ev.rnti)
		}
	}
	return true
}
