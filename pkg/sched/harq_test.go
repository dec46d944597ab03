package sched

import "testing"

func TestHarqProc_NewTxTogglesNDI(t *testing.T) {
	e := newHarqEntity(DefaultMaxRetx)
	h := e.proc(0)

	h.newTx(10, 4, 320, 5)
	if !h.ndi {
		t.Errorf("first transmission NDI = false, want true")
	}
	if h.rv() != 0 {
		t.Errorf("first transmission RV = %d, want 0", h.rv())
	}
	if h.ackSlot != 14 {
		t.Errorf("ackSlot = %d, want 14", h.ackSlot)
	}

	h.handleAck(true)
	if !h.empty() {
		t.Fatalf("process not empty after ACK")
	}

	h.newTx(20, 4, 160, 3)
	if h.ndi {
		t.Errorf("second transmission NDI = true, want toggled to false")
	}
}

func TestHarqProc_RetxSequence(t *testing.T) {
	e := newHarqEntity(DefaultMaxRetx)
	h := e.proc(3)

	h.newTx(0, 4, 1024, 10)
	ndi, tbs := h.ndi, h.tbs

	wantRVs := []uint8{2, 3, 1, 0}
	for i, want := range wantRVs {
		h.handleAck(false)
		if h.state != harqPendingRetx {
			t.Fatalf("retx %d: state = %v, want pending retx", i, h.state)
		}
		h.retx(Slot(5*(i+1)), 4)
		if h.rv() != want {
			t.Errorf("retx %d: RV = %d, want %d", i, h.rv(), want)
		}
		if h.ndi != ndi {
			t.Errorf("retx %d: NDI changed", i)
		}
		if h.tbs != tbs {
			t.Errorf("retx %d: TBS = %d, want %d", i, h.tbs, tbs)
		}
	}
}

func TestHarqProc_MaxRetxDropsTB(t *testing.T) {
	e := newHarqEntity(2)
	h := e.proc(0)

	h.newTx(0, 4, 100, 0)
	for i := 0; i < 2; i++ {
		if dropped := h.handleAck(false); dropped {
			t.Fatalf("retx %d: dropped before budget exhausted", i)
		}
		h.retx(Slot(4*(i+1)), 4)
	}
	if dropped := h.handleAck(false); !dropped {
		t.Fatalf("transport block not dropped after max retx")
	}
	if !h.empty() {
		t.Errorf("process not freed after drop")
	}
}

func TestHarqProc_StaleFeedbackIgnored(t *testing.T) {
	e := newHarqEntity(DefaultMaxRetx)
	h := e.proc(0)

	if dropped := h.handleAck(true); dropped {
		t.Errorf("ACK on empty process reported a drop")
	}
	if !h.empty() {
		t.Errorf("ACK on empty process changed state")
	}

	h.newTx(0, 4, 100, 0)
	h.handleAck(false)
	// Feedback arriving again before the retransmission must not advance
	// the process.
	h.handleAck(true)
	if h.state != harqPendingRetx {
		t.Errorf("duplicate feedback advanced a pending retx")
	}
}

func TestHarqEntity_FindEmptyPrefersLowestPID(t *testing.T) {
	e := newHarqEntity(DefaultMaxRetx)
	e.proc(0).newTx(0, 4, 100, 0)
	e.proc(1).newTx(0, 4, 100, 0)

	h := e.findEmpty()
	if h == nil || h.id != 2 {
		t.Fatalf("findEmpty = %v, want pid 2", h)
	}
}

func TestHarqEntity_FindRetxPrefersOldest(t *testing.T) {
	e := newHarqEntity(DefaultMaxRetx)
	e.proc(2).newTx(5, 4, 100, 0)
	e.proc(5).newTx(3, 4, 100, 0)
	e.proc(2).handleAck(false)
	e.proc(5).handleAck(false)

	h := e.findRetx()
	if h == nil || h.id != 5 {
		t.Fatalf("findRetx = %v, want pid 5 (oldest tx)", h)
	}
}

func TestHarqEntity_PoolExhaustion(t *testing.T) {
	e := newHarqEntity(DefaultMaxRetx)
	for i := 0; i < NumHARQProcesses; i++ {
		h := e.findEmpty()
		if h == nil {
			t.Fatalf("pool exhausted after %d processes, want %d", i, NumHARQProcesses)
		}
		h.newTx(Slot(i), 4, 100, 0)
	}
	if h := e.findEmpty(); h != nil {
		t.Fatalf("findEmpty = pid %d with all processes busy, want nil", h.id)
	}
}
