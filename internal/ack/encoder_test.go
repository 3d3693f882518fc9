package ack_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/telepresenceio/reliable-endpoint/internal/ack"
)

func TestEmptyHistory(t *testing.T) {
	e := ack.NewEncoder(32)
	latest, bits := e.Ack()
	assert.Equal(t, uint16(0), latest)
	assert.Equal(t, uint32(0), bits)
}

// S6 from the spec: B receives sequences {0,1,2,4,6} in order; ack_bits has
// bits {0,2,4,5,6} set (distances from latest_ack=6) and latest_ack=6.
func TestAckBitfieldScenarioS6(t *testing.T) {
	e := ack.NewEncoder(32)
	for _, s := range []uint16{0, 1, 2, 4, 6} {
		e.Add(s)
	}
	latest, bits := e.Ack()
	assert.Equal(t, uint16(6), latest)

	var want uint32
	for _, d := range []uint{0, 2, 4, 5, 6} {
		want |= 1 << d
	}
	assert.Equal(t, want, bits)
}

func TestHistoryEvictsOldestOnOverflow(t *testing.T) {
	e := ack.NewEncoder(4)
	for s := uint16(0); s < 8; s++ {
		e.Add(s)
	}
	// only 4,5,6,7 remain; latest is 7
	latest, bits := e.Ack()
	assert.Equal(t, uint16(7), latest)

	var want uint32
	for _, d := range []uint{0, 1, 2, 3} { // distances of 7,6,5,4 from 7
		want |= 1 << d
	}
	assert.Equal(t, want, bits)
}

func TestWrapSafety(t *testing.T) {
	e := ack.NewEncoder(32)
	for _, s := range []uint16{65534, 65535, 0, 1} {
		e.Add(s)
	}
	latest, bits := e.Ack()
	assert.Equal(t, uint16(1), latest)

	var want uint32
	for _, d := range []uint{0, 1, 2, 3} { // 1,0,65535,65534 at distances 0..3
		want |= 1 << d
	}
	assert.Equal(t, want, bits)
}

func TestAckEncoderCorrectnessProperty(t *testing.T) {
	received := []uint16{10, 11, 12, 13, 40, 41, 42}
	e := ack.NewEncoder(32)
	for _, s := range received {
		e.Add(s)
	}
	latest, bits := e.Ack()

	set := make(map[uint16]bool, len(received))
	for _, s := range received {
		set[s] = true
	}
	for d := uint(0); d < ack.BitfieldWidth; d++ {
		s := latest - uint16(d)
		want := set[s]
		got := bits&(1<<d) != 0
		assert.Equalf(t, want, got, "bit %d (seq %d)", d, s)
	}
}
