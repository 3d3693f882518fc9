// Package wire encodes and decodes the reliable-endpoint datagram header.
//
// Wire format, big-endian throughout:
//
//	single:     [u16 sequence][u16 latest_ack][u32 ack_bits][payload]
//	fragmented: [u16 sequence][u16 latest_ack][u32 ack_bits][u8 fragment_id][u8 total][fragment]
package wire

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// HeaderLen is the size in bytes of the fixed header common to every datagram.
const HeaderLen = 8

// FragmentHeaderLen is the size in bytes of the fragment sub-header.
const FragmentHeaderLen = 2

// ErrMalformedHeader is returned by Decode when the datagram is too short to
// contain a full header.
var ErrMalformedHeader = errors.New("malformed header")

// Header is the decoded form of the fixed 8-byte header.
type Header struct {
	Sequence  uint16
	LatestAck uint16
	AckBits   uint32
}

// FragmentHeader is the decoded form of the 2-byte fragment sub-header.
type FragmentHeader struct {
	FragmentID uint8
	Total      uint8
}

// EncodeSingle appends the header and payload for a non-fragmented datagram
// to a freshly allocated buffer and returns it.
func EncodeSingle(h Header, payload []byte) []byte {
	buf := make([]byte, HeaderLen+len(payload))
	putHeader(buf, h)
	copy(buf[HeaderLen:], payload)
	return buf
}

// EncodeFragment appends the header, fragment sub-header, and fragment bytes
// for one fragment of an oversized payload.
func EncodeFragment(h Header, fh FragmentHeader, part []byte) []byte {
	buf := make([]byte, HeaderLen+FragmentHeaderLen+len(part))
	putHeader(buf, h)
	buf[HeaderLen] = fh.FragmentID
	buf[HeaderLen+1] = fh.Total
	copy(buf[HeaderLen+FragmentHeaderLen:], part)
	return buf
}

func putHeader(buf []byte, h Header) {
	binary.BigEndian.PutUint16(buf[0:2], h.Sequence)
	binary.BigEndian.PutUint16(buf[2:4], h.LatestAck)
	binary.BigEndian.PutUint32(buf[4:8], h.AckBits)
}

// Decode splits a datagram into its header and the remaining bytes. It does
// not attempt to classify the remainder as a single payload or a fragment;
// callers do that based on fragment_above, per the endpoint's receive-side
// classification policy.
func Decode(datagram []byte) (Header, []byte, error) {
	if len(datagram) < HeaderLen {
		return Header{}, nil, ErrMalformedHeader
	}
	h := Header{
		Sequence:  binary.BigEndian.Uint16(datagram[0:2]),
		LatestAck: binary.BigEndian.Uint16(datagram[2:4]),
		AckBits:   binary.BigEndian.Uint32(datagram[4:8]),
	}
	return h, datagram[HeaderLen:], nil
}

// DecodeFragmentHeader splits rest (as returned by Decode) into the fragment
// sub-header and the fragment's payload bytes. Callers must already have
// decided, via the fragment_above threshold, that rest begins with a
// fragment sub-header.
func DecodeFragmentHeader(rest []byte) (FragmentHeader, []byte, error) {
	if len(rest) < FragmentHeaderLen {
		return FragmentHeader{}, nil, ErrMalformedHeader
	}
	fh := FragmentHeader{
		FragmentID: rest[0],
		Total:      rest[1],
	}
	return fh, rest[FragmentHeaderLen:], nil
}
