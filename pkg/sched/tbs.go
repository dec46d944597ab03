package sched

// mcsEntry pairs a modulation order with a target code rate (x/1024).
type mcsEntry struct {
	qm   uint32
	rate uint32
}

// mcsTable approximates the 64QAM MCS table: QPSK for indices 0-9, 16QAM for
// 10-16, 64QAM for 17-28.
var mcsTable = [29]mcsEntry{
	{2, 120}, {2, 157}, {2, 193}, {2, 251}, {2, 308},
	{2, 379}, {2, 449}, {2, 526}, {2, 602}, {2, 679},
	{4, 340}, {4, 378}, {4, 434}, {4, 490}, {4, 553},
	{4, 616}, {4, 658}, {6, 438}, {6, 466}, {6, 517},
	{6, 567}, {6, 616}, {6, 666}, {6, 719}, {6, 772},
	{6, 822}, {6, 873}, {6, 910}, {6, 948},
}

// dataSymbolsPerSlot is the number of OFDM symbols usable for data after
// control overhead.
const dataSymbolsPerSlot = 12

// subcarriersPerPRB is fixed by the numerology.
const subcarriersPerPRB = 12

// mcsFromCQI maps a wideband CQI report to the MCS used for new
// transmissions. The mapping is conservative: CQI 0 (no report yet) selects
// the most robust MCS.
func mcsFromCQI(cqi uint8) uint8 {
	if cqi > 15 {
		cqi = 15
	}
	mcs := uint32(cqi) * 28 / 15
	if mcs > 28 {
		mcs = 28
	}
	return uint8(mcs)
}

// aggLevelFromCQI picks the PDCCH aggregation level for a UE. Poor channel
// conditions get more REs for the DCI.
func aggLevelFromCQI(cqi uint8) uint8 {
	if cqi >= 10 {
		return 2
	}
	return 4
}

// tbsBytes computes the transport block size in bytes for an allocation of
// numPRB resource blocks at the given MCS. The result is deterministic for
// identical inputs; retransmissions reuse the size stored in the HARQ process
// rather than recomputing it.
func tbsBytes(numPRB uint32, mcs uint8) uint32 {
	if mcs > 28 {
		mcs = 28
	}
	e := mcsTable[mcs]
	re := numPRB * subcarriersPerPRB * dataSymbolsPerSlot
	bits := re * e.qm * e.rate / 1024
	if bits < 8 {
		bits = 8
	}
	return bits / 8
}
