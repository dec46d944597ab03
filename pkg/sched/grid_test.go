package sched

import (
	"errors"
	"testing"
)

func testCell(t *testing.T, cfg CellConfig) *cellParams {
	t.Helper()
	p, err := newCellParams(0, cfg)
	if err != nil {
		t.Fatalf("newCellParams: %v", err)
	}
	return p
}

func testSlotUE(t *testing.T, slot Slot) slotUE {
	t.Helper()
	u := newUE(0x46, UEConfig{Carriers: []UECarrierConfig{{Active: true}}}, 1, DefaultMaxRetx)
	su := u.tryReserve(slot, 0)
	if su.Empty() {
		t.Fatalf("tryReserve on fresh ue failed")
	}
	return su
}

func TestSlotGrid_AllocPDSCH(t *testing.T) {
	cell := testCell(t, DefaultCellConfig())
	g := newSlotGrid(cell)
	g.reset(0)

	su := testSlotUE(t, 0)
	defer su.release()

	if err := g.allocPDSCH(&su, NewFullRBGMask(cell.numRBG)); err != nil {
		t.Fatalf("allocPDSCH: %v", err)
	}
	g.generateDCIs()

	if len(g.dlGrants) != 1 {
		t.Fatalf("dlGrants = %d, want 1", len(g.dlGrants))
	}
	grant := g.dlGrants[0]
	if grant.RNTI != 0x46 || grant.PID != 0 || !grant.NDI || grant.RV != 0 {
		t.Errorf("grant = %+v, want rnti 0x46 pid 0 ndi true rv 0", grant)
	}
	if grant.TBS == 0 {
		t.Errorf("grant TBS = 0")
	}
	if grant.K1 != DefaultK1 {
		t.Errorf("grant K1 = %d, want %d", grant.K1, DefaultK1)
	}
}

func TestSlotGrid_OverlapFailsWithoutSideEffects(t *testing.T) {
	cell := testCell(t, DefaultCellConfig())
	g := newSlotGrid(cell)
	g.reset(0)

	su1 := testSlotUE(t, 0)
	defer su1.release()
	if err := g.allocPDSCH(&su1, NewFullRBGMask(cell.numRBG)); err != nil {
		t.Fatalf("first alloc: %v", err)
	}

	u2 := newUE(0x47, UEConfig{Carriers: []UECarrierConfig{{Active: true}}}, 1, DefaultMaxRetx)
	su2 := u2.tryReserve(0, 0)
	defer su2.release()

	mask := NewRBGMask(cell.numRBG)
	mask.Set(0)
	err := g.allocPDSCH(&su2, mask)
	if !errors.Is(err, errRBGOverlap) {
		t.Fatalf("err = %v, want rbg overlap", err)
	}
	if len(g.dlGrants) != 1 {
		t.Errorf("failed alloc appended a grant")
	}
	if !su2.hDL.empty() {
		t.Errorf("failed alloc mutated harq state")
	}
}

func TestSlotGrid_DisjointAllocsSucceed(t *testing.T) {
	cell := testCell(t, DefaultCellConfig())
	g := newSlotGrid(cell)
	g.reset(0)

	su1 := testSlotUE(t, 0)
	defer su1.release()
	u2 := newUE(0x47, UEConfig{Carriers: []UECarrierConfig{{Active: true}}}, 1, DefaultMaxRetx)
	su2 := u2.tryReserve(0, 0)
	defer su2.release()

	lo := NewRBGMask(cell.numRBG)
	lo.Fill(0, cell.numRBG/2)
	hi := NewRBGMask(cell.numRBG)
	hi.Fill(cell.numRBG/2, cell.numRBG)

	if err := g.allocPDSCH(&su1, lo); err != nil {
		t.Fatalf("low half: %v", err)
	}
	if err := g.allocPDSCH(&su2, hi); err != nil {
		t.Fatalf("high half: %v", err)
	}
	if g.dlGrants[0].RBGs.Overlaps(g.dlGrants[1].RBGs) {
		t.Errorf("granted masks overlap")
	}
}

func TestSlotGrid_NoHARQ(t *testing.T) {
	cell := testCell(t, DefaultCellConfig())
	g := newSlotGrid(cell)
	g.reset(0)

	su := testSlotUE(t, 0)
	defer su.release()
	su.hDL = nil

	if err := g.allocPDSCH(&su, NewFullRBGMask(cell.numRBG)); !errors.Is(err, errNoHARQ) {
		t.Errorf("err = %v, want no harq", err)
	}
}

func TestSlotGrid_PDCCHCapacity(t *testing.T) {
	cfg := DefaultCellConfig()
	cfg.PDCCH = PDCCHConfig{NumCandidates: [5]uint8{0, 0, 1, 0, 0}} // one candidate at L4
	cell := testCell(t, cfg)
	g := newSlotGrid(cell)
	g.reset(0)

	su := testSlotUE(t, 0)
	defer su.release()
	if err := g.allocPDSCH(&su, NewFullRBGMask(cell.numRBG)); err != nil {
		t.Fatalf("first alloc: %v", err)
	}
	// The UL DCI needs a second candidate that does not exist.
	if err := g.allocPUSCH(&su, NewFullRBGMask(cell.numRBG)); !errors.Is(err, errNoPDCCH) {
		t.Errorf("err = %v, want no pdcch", err)
	}
}

func TestSlotGrid_GenerateDCIs_DistinctCandidates(t *testing.T) {
	cell := testCell(t, DefaultCellConfig())
	g := newSlotGrid(cell)
	g.reset(0)

	var sus []slotUE
	for i := 0; i < 2; i++ {
		u := newUE(RNTI(0x46+i), UEConfig{Carriers: []UECarrierConfig{{Active: true}}}, 1, DefaultMaxRetx)
		su := u.tryReserve(0, 0)
		if su.Empty() {
			t.Fatalf("tryReserve ue %d failed", i)
		}
		sus = append(sus, su)
	}
	defer func() {
		for i := range sus {
			sus[i].release()
		}
	}()

	half := cell.numRBG / 2
	lo := NewRBGMask(cell.numRBG)
	lo.Fill(0, half)
	hi := NewRBGMask(cell.numRBG)
	hi.Fill(half, cell.numRBG)

	if err := g.allocPDSCH(&sus[0], lo); err != nil {
		t.Fatalf("dl 0: %v", err)
	}
	if err := g.allocPDSCH(&sus[1], hi); err != nil {
		t.Fatalf("dl 1: %v", err)
	}
	g.generateDCIs()

	seen := map[DCI]bool{}
	for _, grant := range g.dlGrants {
		if seen[grant.DCI] {
			t.Errorf("candidate %v assigned twice", grant.DCI)
		}
		seen[grant.DCI] = true
		if grant.DCI.AggLevel == 0 {
			t.Errorf("grant finalized without aggregation level")
		}
	}
}

func TestSlotGrid_ResetClearsState(t *testing.T) {
	cell := testCell(t, DefaultCellConfig())
	g := newSlotGrid(cell)
	g.reset(0)

	su := testSlotUE(t, 0)
	if err := g.allocPDSCH(&su, NewFullRBGMask(cell.numRBG)); err != nil {
		t.Fatalf("alloc: %v", err)
	}
	su.release()

	g.reset(1)
	if len(g.dlGrants) != 0 || !g.dlMask.IsZero() || len(g.claims) != 0 {
		t.Errorf("reset left residual state")
	}
}
