package sched

import "fmt"

// maxNumPRB is the widest NR carrier supported.
const maxNumPRB = 275

// cellParams is the derived, immutable view of one cell configuration.
// Populated at cell bring-up and shared read-only by every slot context.
type cellParams struct {
	cc      uint32
	cfg     CellConfig
	rbgSize uint32
	numRBG  uint32

	// candidates holds every PDCCH candidate of the cell ordered by
	// aggregation level, then candidate index.
	candidates []DCI
}

// nominalRBGSize returns the resource block group size for a carrier
// bandwidth (configuration 1 nominal table).
func nominalRBGSize(numPRB uint32) uint32 {
	switch {
	case numPRB <= 36:
		return 2
	case numPRB <= 72:
		return 4
	case numPRB <= 144:
		return 8
	default:
		return 16
	}
}

func validSCS(khz uint32) bool {
	switch khz {
	case 15, 30, 60, 120:
		return true
	}
	return false
}

// newCellParams validates a cell configuration and derives the per-cell
// scheduling parameters.
func newCellParams(cc uint32, cfg CellConfig) (*cellParams, error) {
	if cfg.NumPRB == 0 || cfg.NumPRB > maxNumPRB {
		return nil, fmt.Errorf("%w: cell %d: num_prb %d out of range [1,%d]",
			ErrInvalidCellConfig, cc, cfg.NumPRB, maxNumPRB)
	}
	if cfg.SCSKHz == 0 {
		cfg.SCSKHz = 15
	}
	if !validSCS(cfg.SCSKHz) {
		return nil, fmt.Errorf("%w: cell %d: unsupported subcarrier spacing %d kHz",
			ErrInvalidCellConfig, cc, cfg.SCSKHz)
	}
	if cfg.RBGSize == 0 {
		cfg.RBGSize = nominalRBGSize(cfg.NumPRB)
	}
	switch cfg.RBGSize {
	case 2, 4, 8, 16:
	default:
		return nil, fmt.Errorf("%w: cell %d: rbg size %d not in {2,4,8,16}",
			ErrInvalidCellConfig, cc, cfg.RBGSize)
	}
	if cfg.PDCCH.totalCandidates() == 0 {
		cfg.PDCCH = DefaultPDCCHConfig()
	}

	p := &cellParams{
		cc:      cc,
		cfg:     cfg,
		rbgSize: cfg.RBGSize,
		numRBG:  (cfg.NumPRB + cfg.RBGSize - 1) / cfg.RBGSize,
	}
	for lvl := 0; lvl < len(cfg.PDCCH.NumCandidates); lvl++ {
		for idx := uint8(0); idx < cfg.PDCCH.NumCandidates[lvl]; idx++ {
			p.candidates = append(p.candidates, DCI{
				Coreset:   0,
				AggLevel:  1 << lvl,
				Candidate: idx,
			})
		}
	}
	return p, nil
}

// numCandidates returns the PDCCH capacity at one aggregation level.
func (p *cellParams) numCandidates(aggLevel uint8) uint8 {
	for lvl := 0; lvl < len(p.cfg.PDCCH.NumCandidates); lvl++ {
		if 1<<lvl == int(aggLevel) {
			return p.cfg.PDCCH.NumCandidates[lvl]
		}
	}
	return 0
}

// prbsIn returns the number of PRBs covered by a mask over this cell's RBGs.
// The last RBG may be short when the bandwidth is not a multiple of the RBG
// size.
func (p *cellParams) prbsIn(mask RBGMask) uint32 {
	full := uint32(mask.Count()) * p.rbgSize
	if mask.Test(p.numRBG - 1) {
		tail := p.cfg.NumPRB % p.rbgSize
		if tail != 0 {
			full -= p.rbgSize - tail
		}
	}
	return full
}
