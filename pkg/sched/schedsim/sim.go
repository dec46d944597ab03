// Package schedsim drives a scheduler against a synthetic PHY: it delivers
// slot indications, collects per-cell results, and feeds HARQ feedback back
// at the right slots. It backs both the `ransched simulate` command and the
// scheduler's end-to-end tests.
package schedsim

import (
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/marmos91/ransched/pkg/sched"
)

// ulCrcDelay is the slot offset at which the synthetic PHY reports the
// uplink decode outcome.
const ulCrcDelay = 4

// Config describes one simulation run.
type Config struct {
	Cells []sched.CellConfig
	Sched sched.Config

	// NackPeriod injects a NACK for every Nth downlink transport block
	// (first transmissions only), exercising the retransmission path.
	// Zero acknowledges everything.
	NackPeriod int

	// OnResult, when set, observes every per-{slot, cell} result as it is
	// produced. Called from the goroutine that collected the result.
	OnResult func(sched.SlotResult)
}

// CellStats accumulates per-cell counters over a run.
type CellStats struct {
	Slots    uint64
	DLGrants uint64
	ULGrants uint64
	DLRetx   uint64
	ULRetx   uint64
	DLBytes  uint64
	ULBytes  uint64
}

func (s *CellStats) add(o CellStats) {
	s.Slots += o.Slots
	s.DLGrants += o.DLGrants
	s.ULGrants += o.ULGrants
	s.DLRetx += o.DLRetx
	s.ULRetx += o.ULRetx
	s.DLBytes += o.DLBytes
	s.ULBytes += o.ULBytes
}

// Sim owns a scheduler plus the synthetic feedback loop.
type Sim struct {
	s        *sched.Scheduler
	numCells int
	nackEach int
	onResult func(sched.SlotResult)

	mu       sync.Mutex
	feedback map[sched.Slot][]func()
	stats    []CellStats
	dlTBs    uint64

	results []sched.SlotResult
}

// New builds a simulator and brings up its cells.
func New(cfg Config) (*Sim, error) {
	if len(cfg.Cells) == 0 {
		return nil, fmt.Errorf("schedsim: no cells configured")
	}
	s, err := sched.New(cfg.Sched)
	if err != nil {
		return nil, err
	}
	if err := s.CellCfg(cfg.Cells); err != nil {
		return nil, err
	}
	return &Sim{
		s:        s,
		numCells: len(cfg.Cells),
		nackEach: cfg.NackPeriod,
		onResult: cfg.OnResult,
		feedback: make(map[sched.Slot][]func()),
		stats:    make([]CellStats, len(cfg.Cells)),
		results:  make([]sched.SlotResult, len(cfg.Cells)),
	}, nil
}

// Scheduler exposes the wrapped scheduler for direct calls.
func (m *Sim) Scheduler() *sched.Scheduler { return m.s }

// AddUE registers a UE active on every cell.
func (m *Sim) AddUE(rnti sched.RNTI) error {
	cfg := sched.UEConfig{Carriers: make([]sched.UECarrierConfig, m.numCells)}
	for i := range cfg.Carriers {
		cfg.Carriers[i].Active = true
	}
	return m.s.UECfg(rnti, cfg)
}

// RunSlot processes one slot with cells visited sequentially.
func (m *Sim) RunSlot(slot sched.Slot) error {
	m.s.SlotIndication(slot)
	m.deliverFeedback(slot)
	for cc := 0; cc < m.numCells; cc++ {
		if err := m.runCell(slot, uint32(cc), &m.results[cc]); err != nil {
			return err
		}
	}
	return nil
}

// RunSlotConcurrent processes one slot with every cell's result collected on
// its own goroutine.
func (m *Sim) RunSlotConcurrent(slot sched.Slot) error {
	m.s.SlotIndication(slot)
	m.deliverFeedback(slot)
	var g errgroup.Group
	for cc := 0; cc < m.numCells; cc++ {
		cc := cc
		g.Go(func() error {
			var res sched.SlotResult
			return m.runCell(slot, uint32(cc), &res)
		})
	}
	return g.Wait()
}

// Run processes numSlots slots starting at zero.
func (m *Sim) Run(numSlots int, concurrent bool) error {
	for t := 0; t < numSlots; t++ {
		slot := sched.Slot(t)
		var err error
		if concurrent {
			err = m.RunSlotConcurrent(slot)
		} else {
			err = m.RunSlot(slot)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *Sim) runCell(slot sched.Slot, cc uint32, res *sched.SlotResult) error {
	if err := m.s.GenerateSchedResult(slot, cc, res); err != nil {
		return err
	}
	m.consume(slot, cc, res)
	if m.onResult != nil {
		m.onResult(*res)
	}
	return nil
}

// consume records statistics and schedules the HARQ feedback the synthetic
// UE would produce for each grant.
func (m *Sim) consume(slot sched.Slot, cc uint32, res *sched.SlotResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := &m.stats[cc]
	st.Slots++
	for _, g := range res.DLGrants {
		st.DLGrants++
		st.DLBytes += uint64(g.TBS)
		ack := true
		if g.RV == 0 {
			m.dlTBs++
			if m.nackEach > 0 && m.dlTBs%uint64(m.nackEach) == 0 {
				ack = false
			}
		} else {
			st.DLRetx++
		}
		m.scheduleFeedback(slot+sched.Slot(g.K1), m.ackFunc(g, cc, ack))
	}
	for _, g := range res.ULGrants {
		st.ULGrants++
		st.ULBytes += uint64(g.TBS)
		if g.RV != 0 {
			st.ULRetx++
		}
		m.scheduleFeedback(slot+ulCrcDelay, m.crcFunc(g, cc))
	}
}

func (m *Sim) ackFunc(g sched.DLGrant, cc uint32, ack bool) func() {
	rnti, pid := g.RNTI, g.PID
	return func() { m.s.DLAckInfo(rnti, cc, pid, 0, ack) }
}

func (m *Sim) crcFunc(g sched.ULGrant, cc uint32) func() {
	rnti, pid := g.RNTI, g.PID
	return func() { m.s.ULCrcInfo(rnti, cc, pid, true) }
}

// scheduleFeedback must be called with the mutex held.
func (m *Sim) scheduleFeedback(at sched.Slot, fn func()) {
	m.feedback[at] = append(m.feedback[at], fn)
}

// deliverFeedback fires the feedback due at the given slot, so the events
// carry the observation slot the real PHY would stamp.
func (m *Sim) deliverFeedback(slot sched.Slot) {
	m.mu.Lock()
	due := m.feedback[slot]
	delete(m.feedback, slot)
	m.mu.Unlock()
	for _, fn := range due {
		fn()
	}
}

// CellStats returns a copy of the per-cell counters.
func (m *Sim) CellStats() []CellStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CellStats, len(m.stats))
	copy(out, m.stats)
	return out
}

// Totals aggregates the per-cell counters.
func (m *Sim) Totals() CellStats {
	var total CellStats
	for _, st := range m.CellStats() {
		total.add(st)
	}
	return total
}
