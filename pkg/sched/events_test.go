package sched

import "testing"

func testEventManager(t *testing.T, rntis ...RNTI) (*eventManager, *ueTable) {
	t.Helper()
	tbl := newUETable()
	for _, rnti := range rntis {
		u := newUE(rnti, UEConfig{Carriers: activeCarriers(1)}, 1, DefaultMaxRetx)
		if !tbl.insert(u) {
			t.Fatalf("insert 0x%x failed", rnti)
		}
	}
	return newEventManager(tbl, nil, nil), tbl
}

func TestEventManager_AckFreesProcess(t *testing.T) {
	em, tbl := testEventManager(t, 0x46)
	u := tbl.get(0x46)
	u.carrier(0).dl.proc(3).newTx(0, 4, 100, 0)

	em.push(ueEvent{kind: evDLAck, slot: 4, rnti: 0x46, cc: 0, pid: 3, ack: true})
	em.applyPending()

	if !u.carrier(0).dl.proc(3).empty() {
		t.Errorf("ACK did not free the process")
	}
}

func TestEventManager_AckCollapseWithinSlot(t *testing.T) {
	em, tbl := testEventManager(t, 0x46)
	u := tbl.get(0x46)
	u.carrier(0).dl.proc(0).newTx(0, 4, 100, 0)

	// Same slot, same pid: the later NACK wins over the earlier ACK.
	em.push(ueEvent{kind: evDLAck, slot: 4, rnti: 0x46, pid: 0, ack: true})
	em.push(ueEvent{kind: evDLAck, slot: 4, rnti: 0x46, pid: 0, ack: false})
	em.applyPending()

	if u.carrier(0).dl.proc(0).state != harqPendingRetx {
		t.Errorf("collapsed feedback did not keep the latest event")
	}
}

func TestEventManager_CrossSlotOrderPreserved(t *testing.T) {
	em, tbl := testEventManager(t, 0x46)
	u := tbl.get(0x46)
	u.carrier(0).dl.proc(0).newTx(0, 4, 100, 0)

	// Different slots must not collapse: the NACK at slot 4 schedules a
	// retx; feedback at slot 8 for the same pid arrives while the retx is
	// still pending and is ignored as stale.
	em.push(ueEvent{kind: evDLAck, slot: 4, rnti: 0x46, pid: 0, ack: false})
	em.push(ueEvent{kind: evDLAck, slot: 8, rnti: 0x46, pid: 0, ack: true})
	em.applyPending()

	if u.carrier(0).dl.proc(0).state != harqPendingRetx {
		t.Errorf("cross-slot events were collapsed")
	}
}

func TestEventManager_UnknownUEDropped(t *testing.T) {
	em, _ := testEventManager(t, 0x46)

	em.push(ueEvent{kind: evDLAck, slot: 0, rnti: 0x99, pid: 0, ack: true})
	em.applyPending()

	// Nothing to assert beyond "no panic, queue drained".
	em.mu.Lock()
	defer em.mu.Unlock()
	if len(em.queue) != 0 {
		t.Errorf("dropped event was requeued")
	}
}

func TestEventManager_EmptyDrainIdempotent(t *testing.T) {
	em, _ := testEventManager(t, 0x46)
	em.applyPending()
	em.applyPending()
}

func TestEventManager_SRAndCQI(t *testing.T) {
	em, tbl := testEventManager(t, 0x46)
	u := tbl.get(0x46)

	em.push(ueEvent{kind: evULSR, slot: 2, rnti: 0x46})
	em.push(ueEvent{kind: evDLCqi, slot: 2, rnti: 0x46, cc: 0, cqi: 12})
	em.applyPending()

	if !u.carrier(0).pendingSR {
		t.Errorf("SR flag not set")
	}
	if u.carrier(0).lastCQI != 12 {
		t.Errorf("lastCQI = %d, want 12", u.carrier(0).lastCQI)
	}
}

func TestEventManager_RemoveUnknownIsNoop(t *testing.T) {
	em, tbl := testEventManager(t, 0x46)
	em.push(ueEvent{kind: evUERem, rnti: 0x99})
	em.applyPending()
	if tbl.count() != 1 {
		t.Errorf("removal of unknown rnti mutated the table")
	}
}

func TestEventManager_RemoveDeferredWhileReserved(t *testing.T) {
	em, tbl := testEventManager(t, 0x46)
	u := tbl.get(0x46)

	su := u.tryReserve(0, 0)
	if su.Empty() {
		t.Fatalf("reserve failed")
	}

	em.push(ueEvent{kind: evUERem, rnti: 0x46})
	em.applyPending()
	if tbl.count() != 1 {
		t.Fatalf("ue removed while a slot view was outstanding")
	}

	su.release()
	em.applyPending()
	if tbl.count() != 0 {
		t.Errorf("deferred removal not applied after release")
	}
}

func TestEventManager_ReconfigureIdempotent(t *testing.T) {
	em, tbl := testEventManager(t, 0x46)
	u := tbl.get(0x46)
	u.carrier(0).dl.proc(0).newTx(0, 4, 100, 0)

	cfg := UEConfig{Carriers: activeCarriers(1), K1: []uint8{5}}
	em.push(ueEvent{kind: evUECfg, rnti: 0x46, cfg: &cfg})
	em.push(ueEvent{kind: evUECfg, rnti: 0x46, cfg: &cfg})
	em.applyPending()

	if u.k1For(0) != 5 {
		t.Errorf("reconfiguration not applied")
	}
	if u.carrier(0).dl.proc(0).empty() {
		t.Errorf("reconfiguration reset harq state")
	}
	if tbl.count() != 1 {
		t.Errorf("double apply changed table size")
	}
}
