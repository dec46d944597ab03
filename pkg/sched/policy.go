package sched

// Policy decides which reserved UEs receive grants within one {cell, slot}.
// Implementations must be deterministic given identical inputs, produce
// disjoint allocations (the grid enforces this on commit), and respect HARQ
// availability. The slice of views is ordered by ascending RNTI and must not
// be retained past the call.
type Policy interface {
	AllocDL(ues []*slotUE, grid *slotGrid)
	AllocUL(ues []*slotUE, grid *slotGrid)
}

// greedyPolicy grants the full carrier bandwidth to a single UE per
// direction per slot. The starting index rotates with the slot so every UE
// is eventually served; uplink rotation is offset by half the pool so one UE
// does not monopolize both directions while others starve.
type greedyPolicy struct{}

// NewGreedyPolicy returns the baseline allocation policy.
func NewGreedyPolicy() Policy { return greedyPolicy{} }

func (greedyPolicy) AllocDL(ues []*slotUE, grid *slotGrid) {
	if len(ues) == 0 {
		return
	}
	full := NewFullRBGMask(grid.cell.numRBG)
	start := int(grid.slot) % len(ues)
	for i := range ues {
		su := ues[(start+i)%len(ues)]
		if su.hDL == nil {
			continue
		}
		if err := grid.allocPDSCH(su, full); err == nil {
			return
		}
	}
}

func (greedyPolicy) AllocUL(ues []*slotUE, grid *slotGrid) {
	if len(ues) == 0 {
		return
	}
	full := NewFullRBGMask(grid.cell.numRBG)
	start := (int(grid.slot) + len(ues)/2) % len(ues)
	for i := range ues {
		su := ues[(start+i)%len(ues)]
		if su.hUL == nil {
			continue
		}
		if err := grid.allocPUSCH(su, full); err == nil {
			return
		}
	}
}
