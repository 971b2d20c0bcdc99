//go:build linux
// +build linux

// Package transport implements maap.Network over a raw AF_PACKET socket
// bound to a single interface, and a receive loop that delivers raw
// frames on a channel for the host loop to pass to an engine's
// HandlePacket.
package transport

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const maapEtherType = 0x22F0

// htons converts a 16-bit host value to network byte order, as required
// for the sll_protocol field of an AF_PACKET socket address.
func htons(v uint16) uint16 {
	return (v << 8) | (v >> 8)
}

// RawSocket is a bound AF_PACKET(SOCK_RAW) socket that sends and receives
// whole Ethernet frames on a single interface.
type RawSocket struct {
	fd      int
	ifindex int

	mu      sync.Mutex
	closed  bool
	output  chan []byte
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Open creates a raw socket bound to ifindex, filtering on the MAAP
// EtherType so only relevant frames reach the receive loop.
func Open(ifindex int) (*RawSocket, error) {
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(maapEtherType)))
	if err != nil {
		return nil, errors.Wrap(err, "transport: socket")
	}

	sa := &unix.SockaddrLinklayer{
		Protocol: htons(maapEtherType),
		Ifindex:  ifindex,
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "transport: bind")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &RawSocket{
		fd:      fd,
		ifindex: ifindex,
		output:  make(chan []byte, 64),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Send transmits a complete Ethernet frame. It satisfies maap.Network.
func (s *RawSocket) Send(frame []byte) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return errors.New("transport: send on closed socket")
	}

	sa := &unix.SockaddrLinklayer{
		Protocol: htons(maapEtherType),
		Ifindex:  s.ifindex,
	}
	if err := unix.Sendto(s.fd, frame, 0, sa); err != nil {
		return errors.Wrap(err, "transport: sendto")
	}
	return nil
}

// Frames returns received frames, each already a complete Ethernet frame.
func (s *RawSocket) Frames() <-chan []byte {
	return s.output
}

// Start launches the background receive loop.
func (s *RawSocket) Start() {
	s.wg.Add(1)
	go s.run()
}

func (s *RawSocket) run() {
	defer s.wg.Done()
	buf := make([]byte, 2048)
	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		n, _, err := unix.Recvfrom(s.fd, buf, 0)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			select {
			case <-s.ctx.Done():
				return
			default:
				continue
			}
		}

		frame := make([]byte, n)
		copy(frame, buf[:n])
		select {
		case s.output <- frame:
		default:
			// receiver not keeping up; drop rather than block the loop
		}
	}
}

// Close stops the receive loop and releases the socket.
func (s *RawSocket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	err := unix.Close(s.fd)
	s.wg.Wait()
	close(s.output)
	return err
}
