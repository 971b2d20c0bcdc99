package maap

import "time"

// TimerQueue is a list of Ranges ordered by NextActTime, ascending. A
// Range appears at most once; rescheduling unschedules first. A plain
// ordered list is used instead of a heap: the expected number of
// in-flight ranges per node is small, so O(n) unschedule with a low
// constant factor beats the bookkeeping of a heap with O(log n) removal.
type TimerQueue struct {
	entries []*Range
}

// NewTimerQueue returns an empty queue.
func NewTimerQueue() *TimerQueue {
	return &TimerQueue{}
}

// Len returns the number of scheduled ranges.
func (q *TimerQueue) Len() int {
	return len(q.entries)
}

// Schedule arms r to fire at t, unscheduling any previous entry for r
// first so a Range is never queued twice.
func (q *TimerQueue) Schedule(r *Range, t time.Time) {
	q.Unschedule(r)
	r.nextActTime = t
	pos := 0
	for pos < len(q.entries) && q.entries[pos].nextActTime.Before(t) {
		pos++
	}
	// Ties break by insertion order: scan past equal timestamps so a
	// freshly-scheduled entry lands after ones already due at the same
	// instant.
	for pos < len(q.entries) && !q.entries[pos].nextActTime.After(t) {
		pos++
	}
	q.entries = append(q.entries, nil)
	copy(q.entries[pos+1:], q.entries[pos:])
	q.entries[pos] = r
}

// Unschedule removes r from the queue if present; a no-op otherwise.
func (q *TimerQueue) Unschedule(r *Range) {
	for i, e := range q.entries {
		if e == r {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return
		}
	}
}

// Peek returns the range with the earliest NextActTime, or nil if empty.
func (q *TimerQueue) Peek() *Range {
	if len(q.entries) == 0 {
		return nil
	}
	return q.entries[0]
}

// PopIfDue removes and returns the head entry if its NextActTime is at or
// before now; otherwise returns nil and leaves the queue untouched.
func (q *TimerQueue) PopIfDue(now time.Time) *Range {
	if len(q.entries) == 0 {
		return nil
	}
	head := q.entries[0]
	if head.nextActTime.After(now) {
		return nil
	}
	q.entries = q.entries[1:]
	return head
}

// infiniteDelay is the sentinel NextDelay returns when the queue is empty.
const infiniteDelay = time.Duration(1<<63 - 1)

// NextDelay returns how long until the head entry is due, or infiniteDelay
// if the queue is empty. Never negative.
func (q *TimerQueue) NextDelay(now time.Time) time.Duration {
	head := q.Peek()
	if head == nil {
		return infiniteDelay
	}
	d := head.nextActTime.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
