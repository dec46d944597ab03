package sched

import (
	"fmt"
	"sync/atomic"

	"github.com/marmos91/ransched/internal/logger"
)

// Scheduler is the NR MAC scheduler facade. Cells are configured once at
// bring-up; afterwards the PHY drives it with SlotIndication and collects
// per-cell results with GenerateSchedResult, while feedback hooks
// (DLAckInfo, ULCrcInfo, ULSRInfo, ...) and RRC configuration (UECfg, UERem)
// may be called from any goroutine without blocking on per-UE state.
type Scheduler struct {
	cfg    Config
	cells  []*cellParams
	ues    *ueTable
	events *eventManager
	orch   *orchestrator

	policy  Policy
	metrics Metrics
	sink    EventSink

	lastSlot atomic.Uint32

	// Running totals exposed through Stats.
	statSlots    atomic.Uint64
	statDLGrants atomic.Uint64
	statULGrants atomic.Uint64
}

// Option customizes scheduler construction.
type Option func(*Scheduler)

// WithMetrics attaches a metrics implementation. Pass nil to disable
// collection with zero overhead.
func WithMetrics(m Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// WithEventSink replaces the default logging sink for lifecycle events.
func WithEventSink(sink EventSink) Option {
	return func(s *Scheduler) { s.sink = sink }
}

// WithPolicy replaces the baseline allocation policy.
func WithPolicy(p Policy) Option {
	return func(s *Scheduler) { s.policy = p }
}

// New creates a scheduler. Cells must be configured with CellCfg before the
// first slot indication.
func New(cfg Config, opts ...Option) (*Scheduler, error) {
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("sched: %d concurrent slots out of range [1,%d]",
			cfg.ConcurrentSlots, MaxConcurrentSlots)
	}
	s := &Scheduler{
		cfg:    cfg,
		ues:    newUETable(),
		policy: NewGreedyPolicy(),
		sink:   NewLogSink(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.events = newEventManager(s.ues, s.sink, s.metrics)
	return s, nil
}

// CellCfg performs one-time cell bring-up. Calling it again is rejected.
func (s *Scheduler) CellCfg(cells []CellConfig) error {
	if s.orch != nil {
		return ErrCellsConfigured
	}
	if len(cells) == 0 {
		return ErrNoCells
	}
	if len(cells) > MaxCarriers {
		return fmt.Errorf("%w: %d cells exceeds limit %d", ErrInvalidCellConfig, len(cells), MaxCarriers)
	}
	params := make([]*cellParams, 0, len(cells))
	for cc, cfg := range cells {
		p, err := newCellParams(uint32(cc), cfg)
		if err != nil {
			return err
		}
		params = append(params, p)
	}
	s.cells = params
	s.orch = newOrchestrator(s.cfg.ConcurrentSlots, params, s.ues, s.events, s.policy, s.metrics)
	logger.Info("cells configured",
		"cells", len(params), "concurrent_slots", s.cfg.ConcurrentSlots)
	return nil
}

// NumCells returns the number of configured cells.
func (s *Scheduler) NumCells() int { return len(s.cells) }

// NumUEs returns the current UE table size.
func (s *Scheduler) NumUEs() int { return s.ues.count() }

// UECfg adds or reconfigures a UE. A first-time RNTI is inserted
// immediately; a repeated RNTI is treated as a reconfiguration and applied
// at the next slot boundary. Applying the same configuration twice has the
// same effect as applying it once.
func (s *Scheduler) UECfg(rnti RNTI, cfg UEConfig) error {
	if s.orch == nil {
		return ErrNoCells
	}
	if len(cfg.Carriers) > len(s.cells) {
		return fmt.Errorf("%w: ue 0x%x references carrier %d, only %d cells configured",
			ErrUnknownCell, rnti, len(cfg.Carriers)-1, len(s.cells))
	}
	if len(cfg.Carriers) == 0 {
		return fmt.Errorf("%w: ue 0x%x has no carriers", ErrInvalidUEConfig, rnti)
	}

	u := newUE(rnti, cfg, len(s.cells), s.cfg.MaxRetx)
	if s.ues.insert(u) {
		if s.metrics != nil {
			s.metrics.SetActiveUEs(s.ues.count())
		}
		if s.sink != nil {
			s.sink.UEAdded(rnti, len(cfg.Carriers))
		}
		return nil
	}

	cfgCopy := cfg
	s.events.push(ueEvent{kind: evUECfg, slot: s.currentSlot(), rnti: rnti, cfg: &cfgCopy})
	return nil
}

// UERem schedules removal of a UE. The removal is applied at a slot boundary
// so no slot-UE borrow is outstanding; removing an unknown RNTI is a no-op.
func (s *Scheduler) UERem(rnti RNTI) {
	s.events.push(ueEvent{kind: evUERem, slot: s.currentSlot(), rnti: rnti})
}

// SlotIndication advances the scheduler clock and admits slot processing.
// Blocks when the slot context addressed by slot mod ConcurrentSlots has not
// finished its previous wrap-around.
func (s *Scheduler) SlotIndication(slot Slot) {
	if s.orch == nil {
		panic("sched: slot indication before cell configuration")
	}
	s.lastSlot.Store(uint32(slot))
	s.orch.reserveWorkers(slot)
	s.orch.startSlot(slot)
	s.statSlots.Add(1)
}

// GenerateSchedResult produces the scheduling decision for one {slot, cell},
// writing grants into the caller's buffer. Callable concurrently for
// distinct cells of the same slot. The last cell of a slot triggers
// finalization: reservations are flushed, pending feedback is applied, and
// the slot context is released.
func (s *Scheduler) GenerateSchedResult(slot Slot, cc uint32, out *SlotResult) error {
	if s.orch == nil {
		return ErrNoCells
	}
	if int(cc) >= len(s.cells) {
		return fmt.Errorf("%w: %d", ErrUnknownCell, cc)
	}
	last := s.orch.runCell(slot, cc, out)
	s.statDLGrants.Add(uint64(len(out.DLGrants)))
	s.statULGrants.Add(uint64(len(out.ULGrants)))
	if last {
		s.orch.endSlot(slot)
	}
	return nil
}

// DLAckInfo delivers HARQ-ACK feedback for a downlink transmission.
// Non-blocking; applied at the next slot finalization.
func (s *Scheduler) DLAckInfo(rnti RNTI, cc uint32, pid uint8, tb uint8, ack bool) {
	s.events.push(ueEvent{
		kind: evDLAck, slot: s.currentSlot(),
		rnti: rnti, cc: cc, pid: pid, tb: tb, ack: ack,
	})
}

// ULCrcInfo delivers the decode outcome of an uplink transmission.
// Non-blocking; applied at the next slot finalization.
func (s *Scheduler) ULCrcInfo(rnti RNTI, cc uint32, pid uint8, crc bool) {
	s.events.push(ueEvent{
		kind: evULCrc, slot: s.currentSlot(),
		rnti: rnti, cc: cc, pid: pid, ack: crc,
	})
}

// ULSRInfo delivers a scheduling request observed at the given slot.
func (s *Scheduler) ULSRInfo(slot Slot, rnti RNTI) {
	s.events.push(ueEvent{kind: evULSR, slot: slot, rnti: rnti})
}

// DLCqiInfo delivers a wideband CQI report for one carrier.
func (s *Scheduler) DLCqiInfo(rnti RNTI, cc uint32, cqi uint8) {
	s.events.push(ueEvent{kind: evDLCqi, slot: s.currentSlot(), rnti: rnti, cc: cc, cqi: cqi})
}

// ULBsrInfo delivers a buffer status report.
func (s *Scheduler) ULBsrInfo(rnti RNTI, bsr uint32) {
	s.events.push(ueEvent{kind: evULBsr, slot: s.currentSlot(), rnti: rnti, bsr: bsr})
}

// DLBufferState updates the downlink pending bytes for a UE.
func (s *Scheduler) DLBufferState(rnti RNTI, bytes uint32) {
	s.events.push(ueEvent{kind: evDLBuffer, slot: s.currentSlot(), rnti: rnti, bytes: bytes})
}

func (s *Scheduler) currentSlot() Slot {
	return Slot(s.lastSlot.Load())
}

// UEInfo is a read-only snapshot of one UE for introspection surfaces.
type UEInfo struct {
	RNTI     RNTI   `json:"rnti"`
	Carriers []bool `json:"carriers"`
}

// ListUEs returns a snapshot of the UE table in ascending RNTI order.
func (s *Scheduler) ListUEs() []UEInfo {
	out := make([]UEInfo, 0, s.ues.count())
	s.ues.forEach(func(u *ue) {
		info := UEInfo{RNTI: u.rnti, Carriers: make([]bool, len(u.carriers))}
		for cc, c := range u.carriers {
			info.Carriers[cc] = c != nil
		}
		out = append(out, info)
	})
	return out
}

// Stats is a point-in-time snapshot of scheduler counters.
type Stats struct {
	Slots    uint64 `json:"slots"`
	DLGrants uint64 `json:"dl_grants"`
	ULGrants uint64 `json:"ul_grants"`
	NumUEs   int    `json:"num_ues"`
	NumCells int    `json:"num_cells"`
}

// Stats returns running totals for introspection surfaces.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Slots:    s.statSlots.Load(),
		DLGrants: s.statDLGrants.Load(),
		ULGrants: s.statULGrants.Load(),
		NumUEs:   s.ues.count(),
		NumCells: len(s.cells),
	}
}
