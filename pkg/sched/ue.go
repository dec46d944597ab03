package sched

import (
	"sort"
	"sync"
	"sync/atomic"
)

// ueCarrier is the per-{UE, cell} scheduling state. It is mutated either
// under the carrier reservation (slot time) or from the event drain (slot
// finalization); the reserved flag arbitrates between overlapping slot
// contexts.
type ueCarrier struct {
	rnti RNTI
	cc   uint32

	reserved atomic.Bool

	dl harqEntity
	ul harqEntity

	lastCQI   uint8
	pendingSR bool
	bsr       uint32
	dlPending uint32
}

func newUECarrier(rnti RNTI, cc uint32, maxRetx uint32) *ueCarrier {
	return &ueCarrier{
		rnti: rnti,
		cc:   cc,
		dl:   newHarqEntity(maxRetx),
		ul:   newHarqEntity(maxRetx),
	}
}

// tryReserve is the non-blocking acquisition of the carrier for one slot.
// Failure means another slot context is scheduling this carrier.
func (c *ueCarrier) tryReserve() bool {
	return c.reserved.CompareAndSwap(false, true)
}

func (c *ueCarrier) release() {
	c.reserved.Store(false)
}

// ue is the long-lived per-UE record owned by the scheduler's UE table.
// Carriers is a bounded sequence indexed by cell; nil entries mark cells the
// UE is not configured on.
type ue struct {
	rnti     RNTI
	cfg      UEConfig
	carriers []*ueCarrier
	maxRetx  uint32
}

func newUE(rnti RNTI, cfg UEConfig, numCells int, maxRetx uint32) *ue {
	if cfg.MaxRetx != 0 {
		maxRetx = cfg.MaxRetx
	}
	u := &ue{
		rnti:     rnti,
		cfg:      cfg,
		carriers: make([]*ueCarrier, numCells),
		maxRetx:  maxRetx,
	}
	for cc := range u.carriers {
		if cc < len(cfg.Carriers) && cfg.Carriers[cc].Active {
			u.carriers[cc] = newUECarrier(rnti, uint32(cc), maxRetx)
		}
	}
	return u
}

// applyCfg replaces the UE configuration at a slot boundary. Carriers that
// stay active keep their HARQ and buffer state; newly activated carriers
// start clean; deactivated carriers are dropped.
func (u *ue) applyCfg(cfg UEConfig) {
	maxRetx := u.maxRetx
	if cfg.MaxRetx != 0 {
		maxRetx = cfg.MaxRetx
	}
	for cc := range u.carriers {
		wantActive := cc < len(cfg.Carriers) && cfg.Carriers[cc].Active
		switch {
		case wantActive && u.carriers[cc] == nil:
			u.carriers[cc] = newUECarrier(u.rnti, uint32(cc), maxRetx)
		case !wantActive && u.carriers[cc] != nil:
			u.carriers[cc] = nil
		}
	}
	u.cfg = cfg
}

// reservedAnywhere reports whether any carrier of the UE is currently held
// by a slot context.
func (u *ue) reservedAnywhere() bool {
	for _, c := range u.carriers {
		if c != nil && c.reserved.Load() {
			return true
		}
	}
	return false
}

// k1For returns the HARQ-ACK timing for a transmission at the given slot.
func (u *ue) k1For(slot Slot) uint8 {
	if len(u.cfg.K1) == 0 {
		return DefaultK1
	}
	return u.cfg.K1[int(slot)%len(u.cfg.K1)]
}

func (u *ue) carrier(cc uint32) *ueCarrier {
	if int(cc) >= len(u.carriers) {
		return nil
	}
	return u.carriers[cc]
}

// slotUE is the scheduling-time borrow of a UE for one {cell, slot}. The
// zero value is empty: the UE could not be reserved and must be skipped this
// slot without retrying. A non-empty view carries the selected HARQ
// candidates; hDL/hUL are nil when no transmission is possible in that
// direction.
type slotUE struct {
	u       *ue
	carrier *ueCarrier
	slot    Slot
	cc      uint32
	k1      uint8

	hDL *harqProc
	hUL *harqProc
}

// Empty reports whether the view holds no reservation.
func (s *slotUE) Empty() bool { return s == nil || s.carrier == nil }

// release returns the carrier to the pool. Safe to call on an empty view.
func (s *slotUE) release() {
	if s.carrier != nil {
		s.carrier.release()
		s.carrier = nil
		s.hDL = nil
		s.hUL = nil
	}
}

// tryReserve acquires the UE's carrier for one {slot, cell} and snapshots
// the HARQ candidates: a due retransmission wins over a new transmission.
// Returns an empty view when the carrier is inactive or already reserved by
// an overlapping slot context.
func (u *ue) tryReserve(slot Slot, cc uint32) slotUE {
	c := u.carrier(cc)
	if c == nil {
		return slotUE{}
	}
	if !c.tryReserve() {
		return slotUE{}
	}
	su := slotUE{u: u, carrier: c, slot: slot, cc: cc, k1: u.k1For(slot)}
	if h := c.dl.findRetx(); h != nil {
		su.hDL = h
	} else {
		su.hDL = c.dl.findEmpty()
	}
	if h := c.ul.findRetx(); h != nil {
		su.hUL = h
	} else {
		su.hUL = c.ul.findEmpty()
	}
	return su
}

// ueTable owns every UE record, keyed by RNTI. Insertions and removals take
// the write lock; slot-time iteration holds the read lock and visits UEs in
// ascending RNTI order so allocation stays deterministic.
type ueTable struct {
	mu    sync.RWMutex
	ues   map[RNTI]*ue
	order []RNTI
}

func newUETable() *ueTable {
	return &ueTable{ues: make(map[RNTI]*ue)}
}

func (t *ueTable) get(rnti RNTI) *ue {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ues[rnti]
}

func (t *ueTable) insert(u *ue) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.ues[u.rnti]; ok {
		return false
	}
	t.ues[u.rnti] = u
	t.order = append(t.order, u.rnti)
	sort.Slice(t.order, func(i, j int) bool { return t.order[i] < t.order[j] })
	return true
}

func (t *ueTable) remove(rnti RNTI) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.ues[rnti]; !ok {
		return false
	}
	delete(t.ues, rnti)
	for i, r := range t.order {
		if r == rnti {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

func (t *ueTable) count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.ues)
}

// forEach visits every UE in ascending RNTI order under the read lock.
func (t *ueTable) forEach(fn func(*ue)) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, rnti := range t.order {
		fn(t.ues[rnti])
	}
}
