package maap

import (
	"sort"

	"github.com/pkg/errors"
)

// ErrOverlap is returned by insert when the candidate interval overlaps an
// existing one.
var ErrOverlap = errors.New("maap: interval overlaps an existing reservation")

// Interval is a closed numeric range [Low, High], both within the pool.
// Range is a non-owning back-reference to the Range that owns this
// interval; it is cleared when the interval is removed from the tree.
type Interval struct {
	Low, High Address
	Range     *Range
}

// Length returns the number of addresses the interval covers.
func (iv Interval) Length() uint32 {
	return uint32(iv.High-iv.Low) + 1
}

func (iv Interval) overlaps(other Interval) bool {
	return iv.Low <= other.High && other.Low <= iv.High
}

// IntervalTree maintains a set of pairwise-disjoint closed intervals over
// the bounded address universe given by Pool. It is kept as an
// ascending-by-Low slice; at the scale MAAP operates on (units to low tens
// of live ranges per node) a sorted slice gives O(log n) lookup with a far
// smaller constant factor than a balanced tree, while insert/remove stay a
// single slice splice.
type IntervalTree struct {
	pool      Pool
	intervals []Interval
}

// NewIntervalTree creates an empty tree bounded to pool.
func NewIntervalTree(pool Pool) *IntervalTree {
	return &IntervalTree{pool: pool}
}

// Pool returns the bounding pool.
func (t *IntervalTree) Pool() Pool {
	return t.pool
}

// Len returns the number of intervals currently held.
func (t *IntervalTree) Len() int {
	return len(t.intervals)
}

// indexOf returns the position of the interval owned by r, or -1.
func (t *IntervalTree) indexOf(r *Range) int {
	for i, iv := range t.intervals {
		if iv.Range == r {
			return i
		}
	}
	return -1
}

// Insert adds iv to the tree. It fails with ErrOverlap if iv overlaps any
// existing interval, or with an error if iv does not lie within the pool.
func (t *IntervalTree) Insert(iv Interval) error {
	if !t.pool.Contains(iv) {
		return errors.New("maap: interval outside pool bounds")
	}
	pos := sort.Search(len(t.intervals), func(i int) bool {
		return t.intervals[i].Low >= iv.Low
	})
	if pos > 0 && t.intervals[pos-1].overlaps(iv) {
		return ErrOverlap
	}
	if pos < len(t.intervals) && t.intervals[pos].overlaps(iv) {
		return ErrOverlap
	}
	t.intervals = append(t.intervals, Interval{})
	copy(t.intervals[pos+1:], t.intervals[pos:])
	t.intervals[pos] = iv
	return nil
}

// Remove removes the interval owned by r, if present.
func (t *IntervalTree) Remove(r *Range) {
	pos := t.indexOf(r)
	if pos < 0 {
		return
	}
	t.intervals = append(t.intervals[:pos], t.intervals[pos+1:]...)
}

// Overlaps returns every currently-held interval that shares at least one
// address with iv.
func (t *IntervalTree) Overlaps(iv Interval) []Interval {
	var hits []Interval
	// intervals are sorted by Low; scan the plausible window.
	pos := sort.Search(len(t.intervals), func(i int) bool {
		return t.intervals[i].High >= iv.Low
	})
	for i := pos; i < len(t.intervals); i++ {
		if t.intervals[i].Low > iv.High {
			break
		}
		if t.intervals[i].overlaps(iv) {
			hits = append(hits, t.intervals[i])
		}
	}
	return hits
}

// maxReserveRandomAttempts bounds the randomized-placement phase of
// ReserveRandom before falling back to a deterministic gap scan.
const maxReserveRandomAttempts = 32

// ReserveRandom chooses a uniformly-distributed free subinterval of
// exactly length addresses within the pool and returns it without
// inserting it (and without Range set — the caller fills that in and
// calls Insert). It
// returns ok=false if the pool has no room for length contiguous free
// addresses.
//
// Choice procedure: sample a candidate start uniformly in
// [pool.Base, pool.High()-length+1]; on overlap, retry up to
// maxReserveRandomAttempts times; if every randomized attempt fails,
// perform a deterministic left-to-right gap scan and return the first fit.
func (t *IntervalTree) ReserveRandom(length uint32, rng Random) (Interval, bool) {
	if length == 0 || uint64(length) > uint64(t.pool.Len) {
		return Interval{}, false
	}
	span := uint64(t.pool.Len) - uint64(length) + 1

	for attempt := 0; attempt < maxReserveRandomAttempts; attempt++ {
		offset := rng.Uniform64() % span
		candidate := Interval{
			Low:  t.pool.Base + Address(offset),
			High: t.pool.Base + Address(offset) + Address(length) - 1,
		}
		if len(t.Overlaps(candidate)) == 0 {
			return candidate, true
		}
	}

	return t.firstFit(length)
}

// firstFit performs the deterministic gap scan: walk the sorted intervals
// left to right and return the first gap (including the space before the
// first interval and after the last) that fits length addresses.
func (t *IntervalTree) firstFit(length uint32) (Interval, bool) {
	cursor := t.pool.Base
	for _, iv := range t.intervals {
		if iv.Low > cursor && Address(uint64(iv.Low-cursor)) >= Address(length) {
			return Interval{Low: cursor, High: cursor + Address(length) - 1}, true
		}
		if iv.High+1 > cursor {
			cursor = iv.High + 1
		}
	}
	if cursor <= t.pool.High() && uint64(t.pool.High()-cursor)+1 >= uint64(length) {
		return Interval{Low: cursor, High: cursor + Address(length) - 1}, true
	}
	return Interval{}, false
}

// Snapshot returns a copy of all live intervals, ordered by Low.
func (t *IntervalTree) Snapshot() []Interval {
	out := make([]Interval, len(t.intervals))
	copy(out, t.intervals)
	return out
}
