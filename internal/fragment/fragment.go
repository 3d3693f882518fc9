// Package fragment splits oversized payloads into wire-sized fragments on
// send, and reassembles them on receive.
package fragment

import (
	"time"

	"github.com/pkg/errors"
)

// ErrPayloadTooLarge is returned by Split when the payload would require
// more than maxFragments fragments.
var ErrPayloadTooLarge = errors.New("payload too large")

// ErrFragmentMismatch is returned when a fragment for a sequence already
// under assembly reports a different total fragment count.
var ErrFragmentMismatch = errors.New("fragment total mismatch")

// ErrFragmentConflict is returned when a duplicate fragment ID arrives with
// bytes that differ from the first copy received.
var ErrFragmentConflict = errors.New("fragment content conflict")

// Part is one outbound fragment of a split payload.
type Part struct {
	FragmentID uint8
	Total      uint8
	Bytes      []byte
}

// Split divides payload into fragments of at most fragmentSize bytes each.
// It fails if the payload would require more than maxFragments fragments.
func Split(payload []byte, fragmentSize, maxFragments int) ([]Part, error) {
	total := (len(payload) + fragmentSize - 1) / fragmentSize
	if total == 0 {
		total = 1
	}
	if total > maxFragments {
		return nil, errors.Wrapf(ErrPayloadTooLarge, "%d bytes needs %d fragments, max is %d", len(payload), total, maxFragments)
	}
	parts := make([]Part, 0, total)
	for i := 0; i < total; i++ {
		start := i * fragmentSize
		end := start + fragmentSize
		if end > len(payload) {
			end = len(payload)
		}
		parts = append(parts, Part{
			FragmentID: uint8(i),
			Total:      uint8(total),
			Bytes:      payload[start:end],
		})
	}
	return parts, nil
}

// assembly tracks the fragments received so far for one sequence number.
type assembly struct {
	total     uint8
	parts     [][]byte // indexed by fragment id; nil until received
	received  int
	firstSeen time.Time
}

// Reassembler tracks in-progress fragment assemblies, keyed by sequence
// number, with explicit garbage collection by age.
type Reassembler struct {
	assemblies map[uint16]*assembly
}

// NewReassembler returns an empty Reassembler.
func NewReassembler() *Reassembler {
	return &Reassembler{assemblies: make(map[uint16]*assembly)}
}

// Add records one fragment for sequence seq. When the assembly becomes
// complete, it returns the reconstructed payload and true, and the
// assembly is discarded. Duplicate fragments with identical bytes are
// silently deduplicated; duplicates with differing bytes return
// ErrFragmentConflict.
func (r *Reassembler) Add(seq uint16, fragmentID, total uint8, part []byte, now time.Time) ([]byte, bool, error) {
	a, ok := r.assemblies[seq]
	if !ok {
		a = &assembly{
			total:     total,
			parts:     make([][]byte, total),
			firstSeen: now,
		}
		r.assemblies[seq] = a
	} else if a.total != total {
		delete(r.assemblies, seq)
		return nil, false, errors.Wrapf(ErrFragmentMismatch, "sequence %d: had total %d, got %d", seq, a.total, total)
	}

	if int(fragmentID) >= len(a.parts) {
		delete(r.assemblies, seq)
		return nil, false, errors.Wrapf(ErrFragmentMismatch, "sequence %d: fragment id %d out of range for total %d", seq, fragmentID, total)
	}

	if existing := a.parts[fragmentID]; existing != nil {
		if !bytesEqual(existing, part) {
			delete(r.assemblies, seq)
			return nil, false, errors.Wrapf(ErrFragmentConflict, "sequence %d: fragment %d content differs", seq, fragmentID)
		}
		return nil, false, nil
	}

	a.parts[fragmentID] = part
	a.received++
	if a.received < int(a.total) {
		return nil, false, nil
	}

	delete(r.assemblies, seq)
	payload := make([]byte, 0, totalLen(a.parts))
	for _, p := range a.parts {
		payload = append(payload, p...)
	}
	return payload, true, nil
}

// GC drops assemblies whose first fragment arrived more than maxAge before
// now.
func (r *Reassembler) GC(now time.Time, maxAge time.Duration) {
	for seq, a := range r.assemblies {
		if a.firstSeen.Add(maxAge).Before(now) {
			delete(r.assemblies, seq)
		}
	}
}

func totalLen(parts [][]byte) int {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	return n
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
