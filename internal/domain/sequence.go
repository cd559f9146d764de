package domain

import "sync/atomic"

// sequenceCounter hands out monotonic, strictly increasing values used
// to tiebreak orders that share a wall-clock createdAt. Wall-clock time
// is kept for display; the sequence is the tiebreak authority (§9).
var sequenceCounter uint64

// NextSequence returns the next value in the process-wide monotonic
// sequence. Safe for concurrent use.
func NextSequence() uint64 {
	return atomic.AddUint64(&sequenceCounter, 1)
}
