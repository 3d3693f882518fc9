package wire_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telepresenceio/reliable-endpoint/internal/wire"
)

func TestEncodeDecodeSingleRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		h       wire.Header
		payload []byte
	}{
		{"empty payload", wire.Header{Sequence: 0, LatestAck: 0, AckBits: 0}, []byte{}},
		{"typical", wire.Header{Sequence: 42, LatestAck: 41, AckBits: 0x0000FFFF}, []byte("Hello, World!")},
		{"max fields", wire.Header{Sequence: 65535, LatestAck: 65535, AckBits: 0xFFFFFFFF}, []byte{1, 2, 3}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			encoded := wire.EncodeSingle(c.h, c.payload)
			h, rest, err := wire.Decode(encoded)
			require.NoError(t, err)
			if diff := cmp.Diff(c.h, h); diff != "" {
				t.Errorf("header mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, c.payload, rest)
		})
	}
}

func TestEncodeDecodeFragmentRoundTrip(t *testing.T) {
	h := wire.Header{Sequence: 7, LatestAck: 6, AckBits: 1}
	fh := wire.FragmentHeader{FragmentID: 2, Total: 4}
	part := []byte("fragment-bytes")

	encoded := wire.EncodeFragment(h, fh, part)
	gotH, rest, err := wire.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, h, gotH)

	gotFH, gotPart, err := wire.DecodeFragmentHeader(rest)
	require.NoError(t, err)
	assert.Equal(t, fh, gotFH)
	assert.Equal(t, part, gotPart)
}

func TestDecodeMalformedHeader(t *testing.T) {
	for _, n := range []int{0, 1, 7} {
		_, _, err := wire.Decode(make([]byte, n))
		assert.ErrorIs(t, err, wire.ErrMalformedHeader)
	}
}

func TestDecodeFragmentHeaderMalformed(t *testing.T) {
	_, _, err := wire.DecodeFragmentHeader([]byte{1})
	assert.ErrorIs(t, err, wire.ErrMalformedHeader)
}
