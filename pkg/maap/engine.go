package maap

import (
	"time"

	"github.com/pkg/errors"
)

// Engine is the top-level MAAP client coordinator. It owns the interval
// tree, timer queue, notification queue, and every live Range; it is
// driven by a single-threaded host event loop and is reentrantly-unsafe —
// callers must serialize all calls (a mutex held around every method call
// is enough).
type Engine struct {
	srcMAC Address
	clock  Clock
	rng    Random
	net    Network

	tree     *IntervalTree
	timers   *TimerQueue
	notifies *NotifyQueue

	ranges map[int]*Range
	maxID  int

	initialized bool
}

// NewEngine constructs an Engine around its injected collaborators. Call
// Init before use.
func NewEngine(clock Clock, rng Random, net Network) *Engine {
	return &Engine{clock: clock, rng: rng, net: net}
}

// Init (re)initializes the engine for srcMAC over the given pool. It is
// idempotent: calling it again clears the tree, timer queue, and
// notification queue and resets maxID to 0.
func (e *Engine) Init(srcMAC Address, pool Pool) {
	e.srcMAC = srcMAC
	e.tree = NewIntervalTree(pool)
	e.timers = NewTimerQueue()
	e.notifies = NewNotifyQueue()
	e.ranges = make(map[int]*Range)
	e.maxID = 0
	e.initialized = true
	e.notifies.Push(nil, Notify{Kind: NotifyInitialized})
}

// Deinit drops all ranges without emitting notifications. Any final flush
// of the notification queue is the host's responsibility.
func (e *Engine) Deinit() {
	e.tree = nil
	e.timers = nil
	e.notifies = NewNotifyQueue()
	e.ranges = nil
	e.initialized = false
}

// Pool returns the pool the engine was initialized with.
func (e *Engine) Pool() Pool {
	return e.tree.Pool()
}

// SrcMAC returns the local MAC identity the engine was initialized with.
func (e *Engine) SrcMAC() Address {
	return e.srcMAC
}

// Reserve starts acquisition of a length-address range on behalf of
// sender. It returns the new range's id, or -1 if length is outside
// [1, MaxRangeLength] or the engine is uninitialized. Failure to find a
// free subinterval is reported asynchronously via an Acquiring-failed
// notification, not through the return value.
func (e *Engine) Reserve(sender any, length uint32) int {
	if !e.initialized || length == 0 || length > MaxRangeLength {
		return -1
	}

	e.maxID++
	id := e.maxID

	e.notifies.Push(sender, Notify{Kind: NotifyAcquiring})

	iv, ok := e.tree.ReserveRandom(length, e.rng)
	if !ok {
		e.notifies.Push(sender, Notify{Kind: NotifyAcquiringFailed, ID: id, Reason: ReasonOutOfRange})
		return id
	}

	r := &Range{id: id, sender: sender}
	iv.Range = r
	if err := e.tree.Insert(iv); err != nil {
		e.notifies.Push(sender, Notify{Kind: NotifyAcquiringFailed, ID: id, Reason: ReasonInternal})
		return id
	}
	r.interval = iv
	e.ranges[id] = r
	e.startProbing(r)
	return id
}

// Release starts the release process for id on behalf of sender. It
// returns 0 if the range exists, -1 otherwise. Nothing is emitted until
// the subsequent Released timer tick fires.
func (e *Engine) Release(sender any, id int) int {
	r, ok := e.ranges[id]
	if !ok {
		return -1
	}
	r.state = StateReleased
	r.sender = sender
	e.timers.Schedule(r, e.clock.Now().Add(releaseGraceDelay))
	return 0
}

// Status enqueues a Status notification for id: either the range's live
// state, or a count=0 Status if id is unknown. A notification is always
// enqueued, even for an unknown id, so callers can match replies 1:1
// against their Status calls.
func (e *Engine) Status(sender any, id int) {
	r, ok := e.ranges[id]
	if !ok {
		e.notifies.Push(sender, Notify{Kind: NotifyStatus, ID: id})
		return
	}
	e.notifies.Push(sender, Notify{
		Kind:  NotifyStatus,
		ID:    id,
		Start: r.interval.Low,
		Count: r.interval.Length(),
		State: r.state,
	})
}

// HandlePacket decodes and applies an inbound frame. It returns an error
// (and leaves engine state unchanged) on a malformed or non-MAAP frame.
func (e *Engine) HandlePacket(buf []byte) error {
	pdu, err := Decode(buf)
	if err != nil {
		return err
	}
	if !e.initialized {
		return nil
	}

	var target Interval
	switch pdu.Type {
	case MsgDefend:
		if pdu.ConflictCount == 0 {
			return nil
		}
		target = Interval{Low: pdu.ConflictStart, High: pdu.ConflictStart + Address(pdu.ConflictCount) - 1}
	default:
		if pdu.RequestedCount == 0 {
			return nil
		}
		target = Interval{Low: pdu.RequestedStart, High: pdu.RequestedStart + Address(pdu.RequestedCount) - 1}
	}

	hits := e.tree.Overlaps(target)
	for _, iv := range hits {
		iv.Range.overlapping = true
	}
	for _, iv := range hits {
		r := iv.Range
		if !r.overlapping {
			// Already handled earlier in this same sweep.
			continue
		}
		r.overlapping = false

		switch r.state {
		case StateProbing:
			switch pdu.Type {
			case MsgProbe:
				e.onProbeWhileProbing(r, pdu.SrcMAC, iv)
			case MsgAnnounce, MsgDefend:
				e.restartProbing(r)
			}
		case StateDefending:
			switch pdu.Type {
			case MsgProbe:
				e.onDefendingProbe(r, iv)
			case MsgAnnounce:
				e.onDefendingAnnounce(r, iv)
			case MsgDefend:
				e.onDefendingDefend(r)
			}
		case StateReleased:
			// ignore
		}
	}
	return nil
}

// HandleTimer drains every timer-queue entry whose NextActTime is at or
// before now, applying each range's state-appropriate timer action. It
// loops until no more are due so a host that fell behind catches up in
// one call.
func (e *Engine) HandleTimer() error {
	if !e.initialized {
		return errors.WithStack(ErrInvalidArgument)
	}
	now := e.clock.Now()
	for {
		r := e.timers.PopIfDue(now)
		if r == nil {
			return nil
		}
		switch r.state {
		case StateProbing:
			e.onProbeTimer(r)
		case StateDefending:
			e.onAnnounceTimer(r)
		case StateReleased:
			e.onReleaseTimer(r)
		}
	}
}

// NextDelay reports how long until the next timer event, or a very large
// sentinel duration if no range is scheduled.
func (e *Engine) NextDelay() time.Duration {
	if !e.initialized {
		return infiniteDelay
	}
	return e.timers.NextDelay(e.clock.Now())
}

// Notifications returns the queue of pending notifications for the host
// to drain by repeated Pop calls.
func (e *Engine) Notifications() *NotifyQueue {
	return e.notifies
}

// Ranges returns a snapshot of every live range, for status/metrics
// surfaces. Ordered arbitrarily (map iteration order).
func (e *Engine) Ranges() []*Range {
	out := make([]*Range, 0, len(e.ranges))
	for _, r := range e.ranges {
		out = append(out, r)
	}
	return out
}
