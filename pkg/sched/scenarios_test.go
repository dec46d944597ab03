package sched_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/marmos91/ransched/pkg/sched"
	"github.com/marmos91/ransched/pkg/sched/schedsim"
)

// checkResultInvariants verifies the per-result allocation invariants:
// disjoint PRBs per direction, distinct PDCCH candidates, and at most one
// grant per UE per direction.
func checkResultInvariants(t *testing.T, res sched.SlotResult) {
	t.Helper()

	dlUEs := map[sched.RNTI]bool{}
	ulUEs := map[sched.RNTI]bool{}
	candidates := map[sched.DCI]bool{}

	dlMask := sched.RBGMask{}
	for i, g := range res.DLGrants {
		assert.False(t, dlUEs[g.RNTI], "slot %d cell %d: duplicate dl grant for 0x%x", res.Slot, res.Cell, g.RNTI)
		dlUEs[g.RNTI] = true
		assert.False(t, candidates[g.DCI], "slot %d cell %d: dci candidate reused", res.Slot, res.Cell)
		candidates[g.DCI] = true
		if i == 0 {
			dlMask = g.RBGs.Clone()
		} else {
			assert.False(t, dlMask.Overlaps(g.RBGs), "slot %d cell %d: dl prbs overlap", res.Slot, res.Cell)
			dlMask.Or(g.RBGs)
		}
	}

	ulMask := sched.RBGMask{}
	for i, g := range res.ULGrants {
		assert.False(t, ulUEs[g.RNTI], "slot %d cell %d: duplicate ul grant for 0x%x", res.Slot, res.Cell, g.RNTI)
		ulUEs[g.RNTI] = true
		assert.False(t, candidates[g.DCI], "slot %d cell %d: dci candidate reused across directions", res.Slot, res.Cell)
		candidates[g.DCI] = true
		if i == 0 {
			ulMask = g.RBGs.Clone()
		} else {
			assert.False(t, ulMask.Overlaps(g.RBGs), "slot %d cell %d: ul prbs overlap", res.Slot, res.Cell)
			ulMask.Or(g.RBGs)
		}
	}
}

func TestScheduler_Serialized2Cells(t *testing.T) {
	const numSlots = 1000

	var mu sync.Mutex
	pdschPerCall := map[int]int{}
	calls := 0

	sim, err := schedsim.New(schedsim.Config{
		Cells: []sched.CellConfig{sched.DefaultCellConfig(), sched.DefaultCellConfig()},
		Sched: sched.Config{ConcurrentSlots: 1},
		OnResult: func(res sched.SlotResult) {
			checkResultInvariants(t, res)
			mu.Lock()
			pdschPerCall[len(res.DLGrants)]++
			calls++
			mu.Unlock()
		},
	})
	require.NoError(t, err)
	require.NoError(t, sim.AddUE(0x46))

	require.NoError(t, sim.Run(numSlots, false))

	assert.Equal(t, 2*numSlots, calls)
	assert.Equal(t, 2*numSlots, pdschPerCall[1], "every {slot, cell} must carry exactly one pdsch")
	assert.EqualValues(t, 2*numSlots, sim.Totals().DLGrants)
}

func TestScheduler_ParallelCC4Cells(t *testing.T) {
	const numSlots = 1000

	sim, err := schedsim.New(schedsim.Config{
		Cells: []sched.CellConfig{
			sched.DefaultCellConfig(), sched.DefaultCellConfig(),
			sched.DefaultCellConfig(), sched.DefaultCellConfig(),
		},
		Sched: sched.Config{ConcurrentSlots: 1},
		OnResult: func(res sched.SlotResult) {
			checkResultInvariants(t, res)
		},
	})
	require.NoError(t, err)
	require.NoError(t, sim.AddUE(0x46))

	require.NoError(t, sim.Run(numSlots, true))
	assert.EqualValues(t, 4*numSlots, sim.Totals().DLGrants)
}

func TestScheduler_ParallelSlotContexts(t *testing.T) {
	s, err := sched.New(sched.Config{ConcurrentSlots: 2})
	require.NoError(t, err)
	require.NoError(t, s.CellCfg([]sched.CellConfig{sched.DefaultCellConfig(), sched.DefaultCellConfig()}))

	cfg := sched.UEConfig{Carriers: []sched.UECarrierConfig{{Active: true}, {Active: true}}}
	require.NoError(t, s.UECfg(0x46, cfg))

	// Admit two slots before collecting either: slot 1's workers find the
	// UE still reserved by slot 0 and must skip it without blocking.
	s.SlotIndication(0)
	s.SlotIndication(1)

	var late sched.SlotResult
	for cc := uint32(0); cc < 2; cc++ {
		require.NoError(t, s.GenerateSchedResult(1, cc, &late))
		assert.Empty(t, late.DLGrants, "slot 1 cell %d: ue reserved by slot 0 must get no grant", cc)
		assert.Empty(t, late.ULGrants)
	}

	var early sched.SlotResult
	for cc := uint32(0); cc < 2; cc++ {
		require.NoError(t, s.GenerateSchedResult(0, cc, &early))
		assert.Len(t, early.DLGrants, 1, "slot 0 cell %d", cc)
	}

	// With slot 0 finalized, the next wrap-around schedules again.
	s.SlotIndication(2)
	for cc := uint32(0); cc < 2; cc++ {
		require.NoError(t, s.GenerateSchedResult(2, cc, &early))
		assert.Len(t, early.DLGrants, 1, "slot 2 cell %d", cc)
	}
}

func TestScheduler_AckNackRoundTrip(t *testing.T) {
	s, err := sched.New(sched.Config{})
	require.NoError(t, err)
	require.NoError(t, s.CellCfg([]sched.CellConfig{sched.DefaultCellConfig()}))
	require.NoError(t, s.UECfg(0x46, sched.UEConfig{Carriers: []sched.UECarrierConfig{{Active: true}}}))

	var res sched.SlotResult

	s.SlotIndication(0)
	require.NoError(t, s.GenerateSchedResult(0, 0, &res))
	require.Len(t, res.DLGrants, 1)
	first := res.DLGrants[0]
	assert.EqualValues(t, 0, first.PID)
	assert.True(t, first.NDI)
	assert.EqualValues(t, 0, first.RV)

	// Advance to the feedback slot; the NACK observed at slot 4 is applied
	// at that slot's finalization.
	for slot := sched.Slot(1); slot <= 4; slot++ {
		s.SlotIndication(slot)
		if slot == 4 {
			s.DLAckInfo(0x46, 0, first.PID, 0, false)
		}
		require.NoError(t, s.GenerateSchedResult(slot, 0, &res))
	}

	s.SlotIndication(5)
	require.NoError(t, s.GenerateSchedResult(5, 0, &res))
	require.Len(t, res.DLGrants, 1)
	retx := res.DLGrants[0]
	assert.Equal(t, first.PID, retx.PID, "retransmission must reuse the nacked process")
	assert.Equal(t, first.NDI, retx.NDI, "NDI must not toggle on retransmission")
	assert.EqualValues(t, 2, retx.RV)
	assert.Equal(t, first.TBS, retx.TBS, "TBS must match the initial transmission")
}

func TestScheduler_DuplicateRNTIIsReconfiguration(t *testing.T) {
	s, err := sched.New(sched.Config{})
	require.NoError(t, err)
	require.NoError(t, s.CellCfg([]sched.CellConfig{sched.DefaultCellConfig()}))

	cfg := sched.UEConfig{Carriers: []sched.UECarrierConfig{{Active: true}}}
	require.NoError(t, s.UECfg(0x46, cfg))
	require.NoError(t, s.UECfg(0x46, cfg), "second ue_cfg must be accepted as reconfiguration")
	assert.Equal(t, 1, s.NumUEs())

	// The queued reconfiguration applies at the next slot boundary without
	// disturbing scheduling.
	var res sched.SlotResult
	s.SlotIndication(0)
	require.NoError(t, s.GenerateSchedResult(0, 0, &res))
	assert.Len(t, res.DLGrants, 1)
	assert.Equal(t, 1, s.NumUEs())
}

func TestScheduler_PDCCHPressureFairness(t *testing.T) {
	const numUEs = 16
	const numSlots = 8

	cell := sched.DefaultCellConfig()
	cell.PDCCH = sched.PDCCHConfig{NumCandidates: [5]uint8{0, 0, 4, 0, 0}}

	s, err := sched.New(sched.Config{})
	require.NoError(t, err)
	require.NoError(t, s.CellCfg([]sched.CellConfig{cell}))

	for i := 0; i < numUEs; i++ {
		cfg := sched.UEConfig{Carriers: []sched.UECarrierConfig{{Active: true}}}
		require.NoError(t, s.UECfg(sched.RNTI(0x46+i), cfg))
	}

	granted := map[sched.RNTI]bool{}
	var res sched.SlotResult
	for slot := sched.Slot(0); slot < numSlots; slot++ {
		s.SlotIndication(slot)
		require.NoError(t, s.GenerateSchedResult(slot, 0, &res))
		checkResultInvariants(t, res)

		total := len(res.DLGrants) + len(res.ULGrants)
		assert.LessOrEqual(t, total, 4, "slot %d: grants exceed pdcch capacity", slot)
		for _, g := range res.DLGrants {
			granted[g.RNTI] = true
		}
		for _, g := range res.ULGrants {
			granted[g.RNTI] = true
		}
	}

	assert.Len(t, granted, numUEs, "every ue must be granted at least once across %d slots", numSlots)
}

func TestScheduler_16WayConcurrency(t *testing.T) {
	const numSlots = 200

	s, err := sched.New(sched.Config{ConcurrentSlots: 4})
	require.NoError(t, err)
	cells := []sched.CellConfig{
		sched.DefaultCellConfig(), sched.DefaultCellConfig(),
		sched.DefaultCellConfig(), sched.DefaultCellConfig(),
	}
	require.NoError(t, s.CellCfg(cells))

	cfg := sched.UEConfig{Carriers: make([]sched.UECarrierConfig, 4)}
	for i := range cfg.Carriers {
		cfg.Carriers[i].Active = true
	}
	require.NoError(t, s.UECfg(0x46, cfg))

	var g errgroup.Group
	var mu sync.Mutex
	results := make([]sched.SlotResult, 0, numSlots*4)

	for slot := sched.Slot(0); slot < numSlots; slot++ {
		s.SlotIndication(slot) // backpressure: blocks while slot-4 is unfinished
		for cc := uint32(0); cc < 4; cc++ {
			slot, cc := slot, cc
			g.Go(func() error {
				var res sched.SlotResult
				if err := s.GenerateSchedResult(slot, cc, &res); err != nil {
					return err
				}
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
				return nil
			})
		}
	}
	require.NoError(t, g.Wait())

	require.Len(t, results, numSlots*4)
	for _, res := range results {
		checkResultInvariants(t, res)
	}
}

func TestScheduler_ConfigurationRejections(t *testing.T) {
	s, err := sched.New(sched.Config{})
	require.NoError(t, err)

	assert.ErrorIs(t, s.UECfg(0x46, sched.UEConfig{Carriers: []sched.UECarrierConfig{{Active: true}}}), sched.ErrNoCells)

	require.NoError(t, s.CellCfg([]sched.CellConfig{sched.DefaultCellConfig()}))
	assert.ErrorIs(t, s.CellCfg([]sched.CellConfig{sched.DefaultCellConfig()}), sched.ErrCellsConfigured)

	twoCarriers := sched.UEConfig{Carriers: []sched.UECarrierConfig{{Active: true}, {Active: true}}}
	assert.ErrorIs(t, s.UECfg(0x46, twoCarriers), sched.ErrUnknownCell)

	assert.ErrorIs(t, s.UECfg(0x46, sched.UEConfig{}), sched.ErrInvalidUEConfig)

	var res sched.SlotResult
	s.SlotIndication(0)
	assert.ErrorIs(t, s.GenerateSchedResult(0, 5, &res), sched.ErrUnknownCell)
	require.NoError(t, s.GenerateSchedResult(0, 0, &res))

	_, err = sched.New(sched.Config{ConcurrentSlots: 9})
	assert.Error(t, err)
}

func TestScheduler_UERemovalLifecycle(t *testing.T) {
	s, err := sched.New(sched.Config{})
	require.NoError(t, err)
	require.NoError(t, s.CellCfg([]sched.CellConfig{sched.DefaultCellConfig()}))

	// Removal before any slot indication of an unknown ue is a no-op.
	s.UERem(0x99)

	require.NoError(t, s.UECfg(0x46, sched.UEConfig{Carriers: []sched.UECarrierConfig{{Active: true}}}))
	s.UERem(0x46)
	assert.Equal(t, 1, s.NumUEs(), "removal applies at the slot boundary, not immediately")

	var res sched.SlotResult
	s.SlotIndication(0)
	require.NoError(t, s.GenerateSchedResult(0, 0, &res))
	assert.Equal(t, 0, s.NumUEs())

	s.SlotIndication(1)
	require.NoError(t, s.GenerateSchedResult(1, 0, &res))
	assert.Empty(t, res.DLGrants)
}
