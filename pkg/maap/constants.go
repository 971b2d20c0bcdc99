package maap

import "time"

// Protocol timing constants (IEEE 1722-2016 Table B.8).
const (
	MaapProbeRetransmits = 3

	MaapProbeIntervalBaseMS      = 500
	MaapProbeIntervalVariationMS = 100

	MaapAnnounceIntervalBaseMS      = 30000
	MaapAnnounceIntervalVariationMS = 2000
)

// releaseGraceDelay is the small, effectively-immediate delay between a
// Release (or yield) command and the Released timer tick. Scheduling that
// tick replaces the range's pending Probe/Announce timer, so no further
// Probe or Announce is sent for the range.
const releaseGraceDelay = 10 * time.Millisecond
