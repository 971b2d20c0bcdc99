// Package maap implements the MAC Address Acquisition Protocol client
// engine described in IEEE 1722-2016 Annex B: the interval tree, timer
// queue, packet codec, per-range state machine, and notification queue
// that together let a node claim, defend, and release a contiguous block
// of multicast MAC addresses.
package maap

import "fmt"

// Address is a 48-bit MAC address, stored in the low 48 bits of a uint64.
// All range arithmetic is exact integer arithmetic; no host byte order is
// assumed internally.
type Address uint64

const addressMask = 0x0000FFFFFFFFFFFF

// DestMAC is the fixed MAAP multicast destination address (IEEE 1722-2016
// Table B.10).
const DestMAC Address = 0x91E0F000FF00

// DefaultPoolBase and DefaultPoolLen describe the MAAP dynamic allocation
// pool (IEEE 1722-2016 Table B.9).
const (
	DefaultPoolBase Address = 0x91E0F0000000
	DefaultPoolLen  uint32  = 0xFE00
)

// MaxRangeLength is the largest number of addresses a single range may
// request.
const MaxRangeLength = 0xFFFF

// AddressFromBytes interprets 6 big-endian bytes as an Address.
func AddressFromBytes(b []byte) Address {
	var v uint64
	for _, c := range b[:6] {
		v = (v << 8) | uint64(c)
	}
	return Address(v & addressMask)
}

// Bytes renders the address as 6 big-endian bytes.
func (a Address) Bytes() [6]byte {
	var out [6]byte
	v := uint64(a)
	for i := 5; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	return out
}

// String renders the address in standard colon-hex MAC notation.
func (a Address) String() string {
	b := a.Bytes()
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", b[0], b[1], b[2], b[3], b[4], b[5])
}

// Pool describes the contiguous, bounded universe of addresses the engine
// allocates from.
type Pool struct {
	Base Address
	Len  uint32
}

// High returns the last address in the pool (inclusive).
func (p Pool) High() Address {
	return p.Base + Address(p.Len) - 1
}

// Contains reports whether iv lies entirely within the pool.
func (p Pool) Contains(iv Interval) bool {
	return iv.Low >= p.Base && iv.High <= p.High()
}

// DefaultPool is the well-known MAAP dynamic pool.
func DefaultPool() Pool {
	return Pool{Base: DefaultPoolBase, Len: DefaultPoolLen}
}
