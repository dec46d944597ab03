package sched

import "fmt"

// pdcchClaim is a control-channel reservation made during allocation and
// resolved to a concrete candidate by generateDCIs.
type pdcchClaim struct {
	aggLevel uint8
	dl       bool
	grantIdx int // index into dlGrants or ulGrants
}

// slotGrid is the per-{cell, slot} resource map: the RBG usage per
// direction, the PDCCH candidates claimed so far, and the grants produced by
// this slot's allocation pass. It is exclusive to its owning cell worker
// between start and endSlot.
type slotGrid struct {
	cell *cellParams
	slot Slot

	dlMask RBGMask
	ulMask RBGMask

	claims    []pdcchClaim
	usedPerAL [5]uint8

	dlGrants []DLGrant
	ulGrants []ULGrant

	// dlRetx[i] / ulRetx[i] record whether grant i was a retransmission.
	dlRetx []bool
	ulRetx []bool
}

func newSlotGrid(cell *cellParams) slotGrid {
	return slotGrid{
		cell:   cell,
		dlMask: NewRBGMask(cell.numRBG),
		ulMask: NewRBGMask(cell.numRBG),
	}
}

// reset prepares the grid for a new slot.
func (g *slotGrid) reset(slot Slot) {
	g.slot = slot
	g.dlMask = NewRBGMask(g.cell.numRBG)
	g.ulMask = NewRBGMask(g.cell.numRBG)
	g.claims = g.claims[:0]
	g.usedPerAL = [5]uint8{}
	g.dlGrants = g.dlGrants[:0]
	g.ulGrants = g.ulGrants[:0]
	g.dlRetx = g.dlRetx[:0]
	g.ulRetx = g.ulRetx[:0]
}

// claimPDCCH reserves capacity at one aggregation level. The concrete
// candidate index is assigned at finalization.
func (g *slotGrid) claimPDCCH(aggLevel uint8, dl bool, grantIdx int) bool {
	lvl := levelIndex(aggLevel)
	if lvl < 0 {
		return false
	}
	if g.usedPerAL[lvl] >= g.cell.numCandidates(aggLevel) {
		return false
	}
	g.usedPerAL[lvl]++
	g.claims = append(g.claims, pdcchClaim{aggLevel: aggLevel, dl: dl, grantIdx: grantIdx})
	return true
}

func levelIndex(aggLevel uint8) int {
	for lvl := 0; lvl < 5; lvl++ {
		if 1<<lvl == int(aggLevel) {
			return lvl
		}
	}
	return -1
}

// allocPDSCH grants downlink RBGs to a reserved UE. On failure nothing is
// committed: the mask, the PDCCH claims, and the UE's HARQ state are
// untouched, and the UE simply gets no downlink grant this slot.
func (g *slotGrid) allocPDSCH(su *slotUE, mask RBGMask) error {
	if su.Empty() {
		return errNotReserved
	}
	h := su.hDL
	if h == nil {
		return errNoHARQ
	}
	if mask.Overlaps(g.dlMask) {
		return errRBGOverlap
	}
	aggLevel := aggLevelFromCQI(su.carrier.lastCQI)
	if !g.claimPDCCH(aggLevel, true, len(g.dlGrants)) {
		return errNoPDCCH
	}

	// Commit point: mutate the grid and the HARQ process together.
	g.dlMask.Or(mask)
	isRetx := !h.empty()
	if isRetx {
		h.retx(su.slot, su.k1)
	} else {
		mcs := mcsFromCQI(su.carrier.lastCQI)
		h.newTx(su.slot, su.k1, tbsBytes(g.cell.prbsIn(mask), mcs), mcs)
	}
	g.dlRetx = append(g.dlRetx, isRetx)
	g.dlGrants = append(g.dlGrants, DLGrant{
		RNTI: su.u.rnti,
		PID:  h.id,
		NDI:  h.ndi,
		RV:   h.rv(),
		TBS:  h.tbs,
		MCS:  h.mcs,
		RBGs: mask.Clone(),
		DCI:  DCI{AggLevel: aggLevel},
		K1:   su.k1,
	})
	su.hDL = nil
	return nil
}

// allocPUSCH grants uplink RBGs to a reserved UE. Mirror of allocPDSCH over
// the uplink mask; a successful grant satisfies any pending scheduling
// request.
func (g *slotGrid) allocPUSCH(su *slotUE, mask RBGMask) error {
	if su.Empty() {
		return errNotReserved
	}
	h := su.hUL
	if h == nil {
		return errNoHARQ
	}
	if mask.Overlaps(g.ulMask) {
		return errRBGOverlap
	}
	aggLevel := aggLevelFromCQI(su.carrier.lastCQI)
	if !g.claimPDCCH(aggLevel, false, len(g.ulGrants)) {
		return errNoPDCCH
	}

	g.ulMask.Or(mask)
	isRetx := !h.empty()
	if isRetx {
		h.retx(su.slot, su.k1)
	} else {
		mcs := mcsFromCQI(su.carrier.lastCQI)
		h.newTx(su.slot, su.k1, tbsBytes(g.cell.prbsIn(mask), mcs), mcs)
	}
	g.ulRetx = append(g.ulRetx, isRetx)
	g.ulGrants = append(g.ulGrants, ULGrant{
		RNTI: su.u.rnti,
		PID:  h.id,
		NDI:  h.ndi,
		RV:   h.rv(),
		TBS:  h.tbs,
		MCS:  h.mcs,
		RBGs: mask.Clone(),
		DCI:  DCI{AggLevel: aggLevel},
	})
	su.carrier.pendingSR = false
	su.hUL = nil
	return nil
}

// generateDCIs finalizes the PDCCH candidate assignment for every claim of
// the slot. Claims are served lowest aggregation level first, then in claim
// order, so each DCI lands on a distinct (CORESET, level, index) triple.
func (g *slotGrid) generateDCIs() {
	var nextIdx [5]uint8
	for lvl := 0; lvl < 5; lvl++ {
		for _, c := range g.claims {
			if levelIndex(c.aggLevel) != lvl {
				continue
			}
			idx := nextIdx[lvl]
			nextIdx[lvl]++
			if idx >= g.cell.numCandidates(c.aggLevel) {
				panic(fmt.Sprintf("sched: cell %d slot %d: pdcch claims exceed candidates at L%d",
					g.cell.cc, g.slot, c.aggLevel))
			}
			dci := DCI{Coreset: 0, AggLevel: c.aggLevel, Candidate: idx}
			if c.dl {
				g.dlGrants[c.grantIdx].DCI = dci
			} else {
				g.ulGrants[c.grantIdx].DCI = dci
			}
		}
	}
}
