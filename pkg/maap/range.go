package maap

import "time"

// State is a Range's position in its Probing -> Defending -> Released
// lifecycle.
type State int

const (
	StateProbing State = iota + 1
	StateDefending
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateProbing:
		return "Probing"
	case StateDefending:
		return "Defending"
	case StateReleased:
		return "Released"
	default:
		return "Invalid"
	}
}

// Range is one address reservation under management.
type Range struct {
	id      int
	state   State
	counter int // remaining probe retransmits while Probing; unused otherwise

	// overlapping is a transient flag set during a conflict-resolution
	// sweep over the ranges an inbound packet touches; it must be (and
	// is) cleared before the sweep returns.
	overlapping bool

	// defendedThisCycle tracks whether this Defending range has already
	// answered a conflicting Announce with a Defend in the current
	// announce interval; a second conflicting Announce naming us within
	// the same interval triggers a yield instead of another Defend. A
	// conflicting Defend triggers a yield regardless of this flag.
	defendedThisCycle bool

	nextActTime time.Time
	interval    Interval
	sender      any
}

// ID returns the range's unique, never-reused identifier.
func (r *Range) ID() int { return r.id }

// State returns the range's current lifecycle state.
func (r *Range) State() State { return r.state }

// Interval returns the range's owned address interval.
func (r *Range) Interval() Interval { return r.interval }

// Sender returns the opaque handle of the command that requested this
// range. The engine never dereferences it; neither does this accessor's
// caller need to.
func (r *Range) Sender() any { return r.sender }

// --- C4: per-range timer actions, invoked by the engine's timer drain ---

// startProbing places a freshly allocated range into the Probing state and
// arms its first probe timer.
func (e *Engine) startProbing(r *Range) {
	r.state = StateProbing
	r.counter = MaapProbeRetransmits
	e.timers.Schedule(r, e.clock.Now().Add(jitter(e.rng, MaapProbeIntervalBaseMS, MaapProbeIntervalVariationMS)))
}

// onProbeTimer fires on every Probing timer tick: transmit a Probe, and
// either reschedule for another probe or, once the retransmit budget is
// spent, move to Defending.
func (e *Engine) onProbeTimer(r *Range) {
	e.transmit(r, MsgProbe, Interval{})

	if r.counter > 0 {
		r.counter--
		e.timers.Schedule(r, e.clock.Now().Add(jitter(e.rng, MaapProbeIntervalBaseMS, MaapProbeIntervalVariationMS)))
		return
	}

	r.state = StateDefending
	r.defendedThisCycle = false
	e.notifies.Push(r.sender, Notify{Kind: NotifyAcquired, ID: r.id, Start: r.interval.Low, Count: r.interval.Length()})
	e.timers.Schedule(r, e.clock.Now().Add(jitter(e.rng, MaapAnnounceIntervalBaseMS, MaapAnnounceIntervalVariationMS)))
}

// onAnnounceTimer fires on every Defending timer tick: send an Announce to
// keep reasserting ownership, and reset the per-cycle defend tracking.
func (e *Engine) onAnnounceTimer(r *Range) {
	e.transmit(r, MsgAnnounce, Interval{})
	r.defendedThisCycle = false
	e.timers.Schedule(r, e.clock.Now().Add(jitter(e.rng, MaapAnnounceIntervalBaseMS, MaapAnnounceIntervalVariationMS)))
}

// onReleaseTimer fires once the release grace period elapses: tell the
// caller the range is gone and drop it from the engine.
func (e *Engine) onReleaseTimer(r *Range) {
	e.notifies.Push(r.sender, Notify{Kind: NotifyReleased, ID: r.id})
	e.tree.Remove(r)
	delete(e.ranges, r.id)
}

// restartProbing frees the range's current interval, looks for a new one
// of the same length, and resets it back to the start of Probing. It
// serves both the packet-driven restart action and, when no free interval
// can be found, persistent placement failure.
func (e *Engine) restartProbing(r *Range) {
	length := r.interval.Length()
	e.tree.Remove(r)
	e.timers.Unschedule(r)

	iv, ok := e.tree.ReserveRandom(length, e.rng)
	if !ok {
		delete(e.ranges, r.id)
		e.notifies.Push(r.sender, Notify{Kind: NotifyAcquiringFailed, ID: r.id, Reason: ReasonOutOfRange})
		return
	}
	iv.Range = r
	if err := e.tree.Insert(iv); err != nil {
		// Should not happen: ReserveRandom only returns free intervals.
		delete(e.ranges, r.id)
		e.notifies.Push(r.sender, Notify{Kind: NotifyAcquiringFailed, ID: r.id, Reason: ReasonInternal})
		return
	}
	r.interval = iv
	e.startProbing(r)
}

// yield moves a Defending range to Released, scheduling the (effectively
// immediate) Released tick and emitting Yielded so the caller may request
// a fresh range.
func (e *Engine) yield(r *Range) {
	r.state = StateReleased
	e.notifies.Push(r.sender, Notify{Kind: NotifyYielded, ID: r.id, Start: r.interval.Low, Count: r.interval.Length()})
	e.timers.Schedule(r, e.clock.Now().Add(releaseGraceDelay))
}

// --- C4: packet-driven transitions ---

// onProbeWhileProbing resolves a Probe-vs-Probe collision for the same
// address block by comparing the local src MAC to the peer's as 48-bit
// unsigned values: the numerically larger MAC wins and defends, the
// smaller restarts with a fresh interval.
func (e *Engine) onProbeWhileProbing(r *Range, peerSrc Address, conflict Interval) {
	switch {
	case e.srcMAC > peerSrc:
		e.transmitDefend(r, conflict)
	case e.srcMAC < peerSrc:
		e.restartProbing(r)
	default:
		// Equal src MACs can't be ordered, so both sides would otherwise
		// defend forever; restart instead to break the tie toward liveness.
		e.restartProbing(r)
	}
}

// onDefendingProbe answers a Probe naming an owned address: always defend,
// never yield on its own (only Announce/Defend conflicts do).
func (e *Engine) onDefendingProbe(r *Range, conflict Interval) {
	e.transmitDefend(r, conflict)
}

// onDefendingAnnounce answers an Announce claiming an owned address: defend
// it; but if a Defend was already sent this announce interval, the peer has
// persisted past one exchange, so yield instead of contesting indefinitely.
func (e *Engine) onDefendingAnnounce(r *Range, conflict Interval) {
	if r.defendedThisCycle {
		e.yield(r)
		return
	}
	e.transmitDefend(r, conflict)
	r.defendedThisCycle = true
}

// onDefendingDefend answers a peer's Defend naming us: a peer already
// defending the same address always wins immediately — answering with our
// own Defend would only produce an infinite exchange.
func (e *Engine) onDefendingDefend(r *Range) {
	e.yield(r)
}

func (e *Engine) transmit(r *Range, msgType MsgType, conflict Interval) {
	pdu := PDU{
		DestMAC:        DestMAC,
		SrcMAC:         e.srcMAC,
		Type:           msgType,
		RequestedStart: r.interval.Low,
		RequestedCount: uint16(r.interval.Length()),
	}
	if msgType == MsgDefend {
		pdu.ConflictStart = conflict.Low
		pdu.ConflictCount = uint16(conflict.Length())
	}
	e.send(pdu)
}

func (e *Engine) transmitDefend(r *Range, conflict Interval) {
	e.transmit(r, MsgDefend, conflict)
}

// send encodes and hands pdu to the Network collaborator. A transmit
// failure is swallowed here: MAAP tolerates packet loss inherently (a lost
// Probe or Announce is just retried on the next tick), so the range's
// schedule is left untouched.
func (e *Engine) send(pdu PDU) {
	frame, err := Encode(pdu)
	if err != nil {
		// Only reachable if an internal caller passes a bad MsgType;
		// never true for pdus built within this package.
		return
	}
	if e.net != nil {
		_ = e.net.Send(frame)
	}
}
