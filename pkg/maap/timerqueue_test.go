package maap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerQueueOrdering(t *testing.T) {
	q := NewTimerQueue()
	base := time.Unix(0, 0)

	r1 := &Range{id: 1}
	r2 := &Range{id: 2}
	r3 := &Range{id: 3}

	q.Schedule(r2, base.Add(20*time.Millisecond))
	q.Schedule(r1, base.Add(10*time.Millisecond))
	q.Schedule(r3, base.Add(30*time.Millisecond))

	require.Equal(t, 3, q.Len())
	assert.Equal(t, r1, q.Peek())

	q.Unschedule(r1)
	assert.Equal(t, r2, q.Peek())
	assert.Equal(t, 2, q.Len())
}

func TestTimerQueueRescheduleMovesEntry(t *testing.T) {
	q := NewTimerQueue()
	base := time.Unix(0, 0)
	r1 := &Range{id: 1}
	r2 := &Range{id: 2}

	q.Schedule(r1, base.Add(10*time.Millisecond))
	q.Schedule(r2, base.Add(20*time.Millisecond))
	q.Schedule(r1, base.Add(30*time.Millisecond))

	assert.Equal(t, 2, q.Len())
	assert.Equal(t, r2, q.Peek())
}

func TestTimerQueuePopIfDue(t *testing.T) {
	q := NewTimerQueue()
	base := time.Unix(0, 0)
	r1 := &Range{id: 1}
	q.Schedule(r1, base.Add(10*time.Millisecond))

	assert.Nil(t, q.PopIfDue(base))
	assert.Equal(t, r1, q.PopIfDue(base.Add(10*time.Millisecond)))
	assert.Nil(t, q.PopIfDue(base.Add(20*time.Millisecond)))
}

func TestTimerQueueNextDelay(t *testing.T) {
	q := NewTimerQueue()
	base := time.Unix(0, 0)
	assert.Equal(t, infiniteDelay, q.NextDelay(base))

	r1 := &Range{id: 1}
	q.Schedule(r1, base.Add(100*time.Millisecond))
	assert.Equal(t, 100*time.Millisecond, q.NextDelay(base))
	assert.Equal(t, time.Duration(0), q.NextDelay(base.Add(200*time.Millisecond)))
}
