// Package ack derives the (latest_ack, ack_bits) pair the endpoint
// piggybacks on every outbound datagram from the history of sequences it
// has successfully received.
package ack

// historyDepth is the default bound on how many received sequences the
// encoder remembers.
const historyDepth = 32

// BitfieldWidth is the number of bits in an ack bitfield; also the maximum
// wrap-aware distance from latest_ack that can be represented.
const BitfieldWidth = 32

// Encoder maintains an ordered history of received sequences, oldest
// evicted on overflow, and derives the ack bitfield from it.
type Encoder struct {
	capacity int
	history  []uint16 // oldest first
}

// NewEncoder returns an Encoder bounded to the given history depth. A
// capacity of 0 uses the default of 32.
func NewEncoder(capacity int) *Encoder {
	if capacity <= 0 {
		capacity = historyDepth
	}
	return &Encoder{capacity: capacity}
}

// Add records seq as received, evicting the oldest entry if the history is
// at capacity.
func (e *Encoder) Add(seq uint16) {
	e.history = append(e.history, seq)
	if len(e.history) > e.capacity {
		e.history = e.history[1:]
	}
}

// LatestAck returns the most recently added sequence, by insertion order.
// When the history is empty it returns 0.
func (e *Encoder) LatestAck() uint16 {
	if len(e.history) == 0 {
		return 0
	}
	return e.history[len(e.history)-1]
}

// AckBits returns the ack bitfield derived from the current history: bit d
// is set iff a history entry s satisfies (latest_ack - s) mod 65536 == d,
// for d in [0, BitfieldWidth).
func (e *Encoder) AckBits() uint32 {
	if len(e.history) == 0 {
		return 0
	}
	latest := e.LatestAck()
	var bits uint32
	for _, s := range e.history {
		d := uint16(latest - s)
		if d < BitfieldWidth {
			bits |= 1 << d
		}
	}
	return bits
}

// Ack returns LatestAck and AckBits together as a consistent snapshot.
func (e *Encoder) Ack() (latestAck uint16, ackBits uint32) {
	return e.LatestAck(), e.AckBits()
}
