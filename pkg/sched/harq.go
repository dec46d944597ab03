package sched

import "fmt"

// harqState tracks one process through its transmission lifecycle.
type harqState uint8

const (
	// harqEmpty: no transport block in flight; the process can start a new
	// transmission.
	harqEmpty harqState = iota
	// harqWaitingACK: a transmission is in flight and its feedback window
	// has not closed.
	harqWaitingACK
	// harqPendingRetx: the last transmission was NACKed and a
	// retransmission is due.
	harqPendingRetx
)

// rvSeq is the redundancy version sequence over successive transmissions of
// the same transport block.
var rvSeq = [4]uint8{0, 2, 3, 1}

// harqProc holds the state of one HARQ process. At most one transmission is
// in flight per process; the NDI toggles on every new transmission.
type harqProc struct {
	id      uint8
	state   harqState
	ndi     bool
	txIdx   uint8 // index into rvSeq of the current transmission
	numRetx uint32
	maxRetx uint32
	tbs     uint32
	mcs     uint8
	slotTX  Slot
	ackSlot Slot
}

func (h *harqProc) empty() bool { return h.state == harqEmpty }

// rv returns the redundancy version of the current transmission.
func (h *harqProc) rv() uint8 { return rvSeq[h.txIdx%4] }

// newTx starts a new transmission on an empty process.
func (h *harqProc) newTx(slot Slot, k1 uint8, tbs uint32, mcs uint8) {
	if h.state != harqEmpty {
		panic(fmt.Sprintf("harq: new tx on busy process %d", h.id))
	}
	h.ndi = !h.ndi
	h.txIdx = 0
	h.numRetx = 0
	h.tbs = tbs
	h.mcs = mcs
	h.slotTX = slot
	h.ackSlot = slot + Slot(k1)
	h.state = harqWaitingACK
}

// retx retransmits the pending transport block. NDI and TBS are unchanged
// from the initial transmission; the redundancy version advances.
func (h *harqProc) retx(slot Slot, k1 uint8) {
	if h.state != harqPendingRetx {
		panic(fmt.Sprintf("harq: retx on process %d with no pending retx", h.id))
	}
	h.txIdx++
	h.numRetx++
	h.slotTX = slot
	h.ackSlot = slot + Slot(k1)
	h.state = harqWaitingACK
}

// handleAck applies feedback for the in-flight transmission. An ACK empties
// the process; a NACK schedules a retransmission unless the retransmission
// budget is exhausted, in which case the transport block is dropped and the
// process freed. Feedback for a process with nothing in flight is ignored
// (duplicate or stale).
//
// Returns whether the transport block was dropped.
func (h *harqProc) handleAck(ack bool) (dropped bool) {
	if h.state != harqWaitingACK {
		return false
	}
	if ack {
		h.state = harqEmpty
		return false
	}
	if h.numRetx >= h.maxRetx {
		h.state = harqEmpty
		return true
	}
	h.state = harqPendingRetx
	return false
}

// harqEntity is one direction's pool of HARQ processes for a UE carrier.
type harqEntity struct {
	procs [NumHARQProcesses]harqProc
}

func newHarqEntity(maxRetx uint32) harqEntity {
	var e harqEntity
	for i := range e.procs {
		e.procs[i].id = uint8(i)
		e.procs[i].maxRetx = maxRetx
	}
	return e
}

// findEmpty returns the first process with no transmission in flight, or nil
// when the pool is exhausted.
func (e *harqEntity) findEmpty() *harqProc {
	for i := range e.procs {
		if e.procs[i].empty() {
			return &e.procs[i]
		}
	}
	return nil
}

// findRetx returns the pending retransmission whose most recent transmission
// slot is the oldest, or nil when none is due.
func (e *harqEntity) findRetx() *harqProc {
	var oldest *harqProc
	for i := range e.procs {
		p := &e.procs[i]
		if p.state != harqPendingRetx {
			continue
		}
		if oldest == nil || p.slotTX < oldest.slotTX {
			oldest = p
		}
	}
	return oldest
}

// proc returns the process with the given ID, or nil if out of range.
func (e *harqEntity) proc(pid uint8) *harqProc {
	if int(pid) >= len(e.procs) {
		return nil
	}
	return &e.procs[pid]
}
