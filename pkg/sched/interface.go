// Package sched implements the NR MAC downlink/uplink scheduler: a per-cell,
// per-slot resource allocator that coordinates pools of UEs, maintains HARQ
// state, and runs concurrently across cells and (optionally) across
// overlapping slots while preserving per-UE consistency.
//
// The scheduler consumes a slot clock and UE feedback from the PHY, UE and
// cell configuration from the RRC, and produces per-{slot, cell} lists of
// downlink and uplink grants. Wire-format encoding of control channels,
// physical-layer processing, and transport I/O are external collaborators.
package sched

// Slot is a monotonically increasing slot index (one TTI of the radio frame).
type Slot uint32

// RNTI is a 16-bit radio network temporary identifier, unique per cell.
type RNTI uint16

const (
	// NumHARQProcesses is the size of each per-direction HARQ pool.
	NumHARQProcesses = 8

	// DefaultK1 is the HARQ-ACK timing used when a UE config carries no k1 table.
	DefaultK1 = 4

	// DefaultMaxRetx is the retransmission budget after which a transport
	// block is dropped and the process freed.
	DefaultMaxRetx = 4

	// MaxConcurrentSlots bounds how many slot contexts may be in flight.
	MaxConcurrentSlots = 4

	// MaxCarriers bounds the number of cells a single scheduler instance
	// can serve.
	MaxCarriers = 16
)

// Config carries scheduler-wide knobs.
type Config struct {
	// ConcurrentSlots is the number of slot contexts that may overlap.
	// Valid range 1..MaxConcurrentSlots; 0 means 1 (strictly serial slots).
	ConcurrentSlots int

	// MaxRetx overrides DefaultMaxRetx when non-zero.
	MaxRetx uint32
}

func (c *Config) setDefaults() {
	if c.ConcurrentSlots == 0 {
		c.ConcurrentSlots = 1
	}
	if c.MaxRetx == 0 {
		c.MaxRetx = DefaultMaxRetx
	}
}

func (c *Config) validate() error {
	if c.ConcurrentSlots < 1 || c.ConcurrentSlots > MaxConcurrentSlots {
		return ErrInvalidCellConfig
	}
	return nil
}

// PDCCHConfig describes the control-region candidate space of a cell.
type PDCCHConfig struct {
	// NumCandidates[i] is the number of PDCCH candidates available at
	// aggregation level 1<<i. All candidates live in CORESET 0.
	NumCandidates [5]uint8
}

// totalCandidates is the PDCCH capacity of one slot.
func (p PDCCHConfig) totalCandidates() int {
	total := 0
	for _, n := range p.NumCandidates {
		total += int(n)
	}
	return total
}

// DefaultPDCCHConfig returns the candidate table used when a cell config
// leaves PDCCH unset: two candidates each at aggregation levels 2 and 4 and
// one at level 8.
func DefaultPDCCHConfig() PDCCHConfig {
	return PDCCHConfig{NumCandidates: [5]uint8{0, 2, 2, 1, 0}}
}

// CellConfig is the immutable per-cell carrier configuration provided at
// bring-up.
type CellConfig struct {
	// NumPRB is the carrier bandwidth in physical resource blocks.
	NumPRB uint32

	// SCSKHz is the subcarrier spacing in kHz (15, 30, 60 or 120).
	SCSKHz uint32

	// RBGSize is the number of PRBs per resource block group. Zero derives
	// the nominal size from NumPRB.
	RBGSize uint32

	// PDCCH is the control-region candidate table. A zero value selects
	// DefaultPDCCHConfig.
	PDCCH PDCCHConfig
}

// DefaultCellConfig returns a 52-PRB, 15 kHz carrier with the default PDCCH
// candidate table.
func DefaultCellConfig() CellConfig {
	return CellConfig{NumPRB: 52, SCSKHz: 15, PDCCH: DefaultPDCCHConfig()}
}

// UECarrierConfig is the per-carrier part of a UE configuration.
type UECarrierConfig struct {
	// Active enables scheduling of this UE on the carrier.
	Active bool
}

// UEConfig is provided by the RRC when a UE is added or reconfigured.
// Reconfigurations are applied atomically at slot boundaries.
type UEConfig struct {
	// Carriers is indexed by cell index. Entries beyond the configured
	// number of cells are rejected.
	Carriers []UECarrierConfig

	// K1 is the HARQ-ACK timing table indexed by slot; empty means a
	// constant DefaultK1.
	K1 []uint8

	// MaxRetx overrides the scheduler-wide retransmission budget when
	// non-zero.
	MaxRetx uint32
}

// DCI locates a downlink control channel candidate: a (CORESET, aggregation
// level, candidate index) triple. Each DCI of a slot occupies a distinct
// candidate.
type DCI struct {
	Coreset   uint8
	AggLevel  uint8
	Candidate uint8
}

// DLGrant is one PDSCH scheduling decision.
type DLGrant struct {
	RNTI RNTI
	PID  uint8
	NDI  bool
	RV   uint8
	TBS  uint32
	MCS  uint8
	RBGs RBGMask
	DCI  DCI
	K1   uint8
}

// ULGrant is one PUSCH scheduling decision.
type ULGrant struct {
	RNTI RNTI
	PID  uint8
	NDI  bool
	RV   uint8
	TBS  uint32
	MCS  uint8
	RBGs RBGMask
	DCI  DCI
}

// SlotResult is the scheduler output for one {slot, cell}, written into a
// caller-provided buffer by GenerateSchedResult.
type SlotResult struct {
	Slot     Slot
	Cell     uint32
	DLGrants []DLGrant
	ULGrants []ULGrant
}

// reset prepares the buffer for reuse without releasing its backing storage.
func (r *SlotResult) reset(slot Slot, cell uint32) {
	r.Slot = slot
	r.Cell = cell
	r.DLGrants = r.DLGrants[:0]
	r.ULGrants = r.ULGrants[:0]
}

// EventSink receives scheduler-significant lifecycle events. Implementations
// must be safe for concurrent use: UEAdded is invoked from UECfg on the
// caller's goroutine, UEReconfigured and UERemoved from slot finalization.
type EventSink interface {
	UEAdded(rnti RNTI, numCarriers int)
	UEReconfigured(rnti RNTI)
	UERemoved(rnti RNTI)
}
