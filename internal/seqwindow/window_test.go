package seqwindow_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telepresenceio/reliable-endpoint/internal/seqwindow"
)

func TestInsertGetRoundTrip(t *testing.T) {
	w := seqwindow.New(8)
	w.Insert(seqwindow.Record{Sequence: 3, Payload: []byte("a")})
	rec, ok := w.Get(3)
	require.True(t, ok)
	assert.Equal(t, uint16(3), rec.Sequence)
}

func TestNewerEvictsOlderAtSameSlot(t *testing.T) {
	const capacity = 4
	w := seqwindow.New(capacity)
	w.Insert(seqwindow.Record{Sequence: 1})
	w.Insert(seqwindow.Record{Sequence: 5}) // 5 mod 4 == 1, same slot as 1

	_, ok := w.Get(1)
	assert.False(t, ok, "the record for seq 1 should have been evicted")

	rec, ok := w.Get(5)
	require.True(t, ok)
	assert.Equal(t, uint16(5), rec.Sequence)
}

func TestSlotInvariantAfterSequenceOfInserts(t *testing.T) {
	const capacity = 16
	w := seqwindow.New(capacity)
	lastAtSlot := map[int]uint16{}

	seqs := []uint16{0, 16, 32, 1, 17, 0, 48, 2}
	for _, s := range seqs {
		w.Insert(seqwindow.Record{Sequence: s})
		lastAtSlot[int(s)%capacity] = s
	}
	for slot, want := range lastAtSlot {
		for seq := uint16(0); seq < 64; seq++ {
			if int(seq)%capacity != slot {
				continue
			}
			rec, ok := w.Get(seq)
			if seq == want {
				require.True(t, ok)
				assert.Equal(t, want, rec.Sequence)
			} else {
				assert.False(t, ok)
			}
		}
	}
}

func TestContains(t *testing.T) {
	w := seqwindow.New(4)
	assert.False(t, w.Contains(0))
	w.Insert(seqwindow.Record{Sequence: 0})
	assert.True(t, w.Contains(0))
}

func TestMarkAcked(t *testing.T) {
	w := seqwindow.New(4)
	_, ok := w.MarkAcked(1)
	assert.False(t, ok)

	w.Insert(seqwindow.Record{Sequence: 1})
	rec, ok := w.MarkAcked(1)
	require.True(t, ok)
	assert.True(t, rec.Acked)

	rec, _ = w.Get(1)
	assert.True(t, rec.Acked)
}

func TestIterLive(t *testing.T) {
	w := seqwindow.New(4)
	w.Insert(seqwindow.Record{Sequence: 0})
	w.Insert(seqwindow.Record{Sequence: 1})

	seen := map[uint16]bool{}
	w.IterLive(func(r seqwindow.Record) { seen[r.Sequence] = true })
	assert.Equal(t, map[uint16]bool{0: true, 1: true}, seen)
}

func TestClearOlderThan(t *testing.T) {
	w := seqwindow.New(4)
	now := time.Now()
	w.Insert(seqwindow.Record{Sequence: 0, SendTime: now.Add(-10 * time.Second)})
	w.Insert(seqwindow.Record{Sequence: 1, SendTime: now})

	w.ClearOlderThan(now, time.Second)

	assert.False(t, w.Contains(0))
	assert.True(t, w.Contains(1))
}
