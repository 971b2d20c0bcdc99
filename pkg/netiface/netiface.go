// Package netiface resolves the local network interface a MAAP engine
// should bind to: its hardware address (used as the engine's srcMAC) and
// its kernel ifindex (used by pkg/transport to bind the raw socket). It
// also watches that interface for link down/up and MAC changes so the
// host loop can pause probing while the link is unusable.
package netiface

import (
	"time"

	"github.com/pkg/errors"
	"github.com/vishvananda/netlink"
)

// ErrNoHardwareAddr is returned when a resolved link has no usable MAC.
var ErrNoHardwareAddr = errors.New("netiface: interface has no hardware address")

// Info is the subset of link state the engine and transport need.
type Info struct {
	Name         string
	Index        int
	Up           bool
	HardwareAddr [6]byte
}

// Resolve looks up the named interface and returns its index and MAC. It
// does not require the link to be up: an interface plugged in but down
// still has a stable MAC and ifindex.
func Resolve(name string) (Info, error) {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return Info{}, errors.Wrapf(err, "netiface: lookup %q", name)
	}
	attrs := link.Attrs()
	if len(attrs.HardwareAddr) != 6 {
		return Info{}, errors.Wrapf(ErrNoHardwareAddr, "%q", name)
	}
	var mac [6]byte
	copy(mac[:], attrs.HardwareAddr)
	return Info{
		Name:         name,
		Index:        attrs.Index,
		Up:           attrs.OperState == netlink.OperUp,
		HardwareAddr: mac,
	}, nil
}

// pollInterval matches the teacher's neighbor-table refresh cadence.
const pollInterval = 5 * time.Second

// Watcher periodically re-resolves an interface and reports it on Events
// whenever its up/down state or MAC changes.
type Watcher struct {
	name   string
	stop   chan struct{}
	events chan Info
}

// NewWatcher builds a Watcher for the named interface. Call Start to begin
// polling.
func NewWatcher(name string) *Watcher {
	return &Watcher{
		name:   name,
		stop:   make(chan struct{}),
		events: make(chan Info, 1),
	}
}

// Start launches the background poll loop.
func (w *Watcher) Start() {
	go w.run()
}

// Stop ends the poll loop.
func (w *Watcher) Stop() {
	close(w.stop)
}

// Events reports the first successful Resolve and each later one whose Up
// state or HardwareAddr differs from the previous one. An Info is dropped
// if the previous one has not been received yet.
func (w *Watcher) Events() <-chan Info {
	return w.events
}

func (w *Watcher) run() {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var last Info
	have := false

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			info, err := Resolve(w.name)
			if err != nil {
				continue
			}
			if !have || info.Up != last.Up || info.HardwareAddr != last.HardwareAddr {
				last, have = info, true
				select {
				case w.events <- info:
				default:
					// drop if the host loop hasn't drained the previous event
				}
			}
		}
	}
}
