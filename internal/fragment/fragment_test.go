package fragment_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telepresenceio/reliable-endpoint/internal/fragment"
)

// S2 — Fragmented round-trip: fragment_size=100, 350 byte payload -> 4 fragments.
func TestSplitScenarioS2(t *testing.T) {
	payload := bytes.Repeat([]byte("A"), 350)
	parts, err := fragment.Split(payload, 100, 16)
	require.NoError(t, err)
	require.Len(t, parts, 4)
	assert.Equal(t, 100, len(parts[0].Bytes))
	assert.Equal(t, 100, len(parts[1].Bytes))
	assert.Equal(t, 100, len(parts[2].Bytes))
	assert.Equal(t, 50, len(parts[3].Bytes))
	for i, p := range parts {
		assert.Equal(t, uint8(i), p.FragmentID)
		assert.Equal(t, uint8(4), p.Total)
	}
}

func TestSplitPayloadTooLarge(t *testing.T) {
	payload := bytes.Repeat([]byte("A"), 2000)
	_, err := fragment.Split(payload, 100, 16)
	assert.ErrorIs(t, err, fragment.ErrPayloadTooLarge)
}

func TestReassembleInOrder(t *testing.T) {
	payload := bytes.Repeat([]byte("A"), 350)
	parts, err := fragment.Split(payload, 100, 16)
	require.NoError(t, err)

	r := fragment.NewReassembler()
	now := time.Now()
	var got []byte
	var done bool
	for _, p := range parts {
		got, done, err = r.Add(1, p.FragmentID, p.Total, p.Bytes, now)
		require.NoError(t, err)
	}
	require.True(t, done)
	assert.Equal(t, payload, got)
}

func TestReassembleOutOfOrderAndShuffled(t *testing.T) {
	payload := []byte("the quick brown fox jumps over the lazy dog, repeatedly, to make fragments")
	parts, err := fragment.Split(payload, 10, 16)
	require.NoError(t, err)

	shuffled := []fragment.Part{parts[3], parts[0], parts[2], parts[1]}
	if len(parts) > 4 {
		shuffled = append(shuffled, parts[4:]...)
	}

	r := fragment.NewReassembler()
	now := time.Now()
	var got []byte
	var done bool
	for _, p := range shuffled {
		got, done, err = r.Add(5, p.FragmentID, p.Total, p.Bytes, now)
		require.NoError(t, err)
	}
	require.True(t, done)
	assert.Equal(t, payload, got)
}

// S3 — Duplicate fragment does not cause double delivery.
func TestDuplicateFragmentIsIdempotent(t *testing.T) {
	payload := bytes.Repeat([]byte("A"), 350)
	parts, err := fragment.Split(payload, 100, 16)
	require.NoError(t, err)

	r := fragment.NewReassembler()
	now := time.Now()

	completions := 0
	feed := func(p fragment.Part) {
		_, done, err := r.Add(1, p.FragmentID, p.Total, p.Bytes, now)
		require.NoError(t, err)
		if done {
			completions++
		}
	}
	feed(parts[0])
	feed(parts[0]) // duplicate, identical bytes
	feed(parts[1])
	feed(parts[2])
	feed(parts[3])

	assert.Equal(t, 1, completions)
}

func TestFragmentConflictOnDifferingDuplicate(t *testing.T) {
	r := fragment.NewReassembler()
	now := time.Now()
	_, _, err := r.Add(1, 0, 2, []byte("aaaa"), now)
	require.NoError(t, err)
	_, _, err = r.Add(1, 0, 2, []byte("bbbb"), now)
	assert.ErrorIs(t, err, fragment.ErrFragmentConflict)
}

func TestFragmentMismatchOnDifferingTotal(t *testing.T) {
	r := fragment.NewReassembler()
	now := time.Now()
	_, _, err := r.Add(1, 0, 2, []byte("aaaa"), now)
	require.NoError(t, err)
	_, _, err = r.Add(1, 1, 3, []byte("bbbb"), now)
	assert.ErrorIs(t, err, fragment.ErrFragmentMismatch)
}

func TestReassemblerGC(t *testing.T) {
	r := fragment.NewReassembler()
	now := time.Now()
	_, _, err := r.Add(1, 0, 2, []byte("aaaa"), now.Add(-10*time.Second))
	require.NoError(t, err)

	r.GC(now, time.Second)

	_, done, err := r.Add(1, 1, 2, []byte("bbbb"), now)
	require.NoError(t, err)
	assert.False(t, done, "assembly should have been GC'd and restarted, not completed")
}
