// Package handshake implements the connection handshake that precedes
// reliable-endpoint traffic: a salt exchange that lets both sides agree on
// a shared connection token before any sequenced payload is accepted.
package handshake

import (
	"crypto/rand"
	"encoding/binary"
	"sync"

	"github.com/pkg/errors"
)

// saltSize is the width of the exchanged salt, matching the retrieved
// reference implementation's PACKET_SALT_SIZE of 8 bytes.
const saltSize = 8

// State is a position in the handshake state machine.
type State int

const (
	// Idle is the state before any handshake message has been sent or
	// received.
	Idle State = iota
	// SaltSent is the initiator's state after sending its salt and
	// before receiving the peer's challenge.
	SaltSent
	// Challenged is the responder's state after receiving the
	// initiator's salt and issuing its own in reply.
	Challenged
	// Connected is the state once both sides have exchanged salts and
	// the connection token is derived.
	Connected
	// Closed is the terminal state after an explicit close or a
	// protocol violation.
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case SaltSent:
		return "SaltSent"
	case Challenged:
		return "Challenged"
	case Connected:
		return "Connected"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// ErrUnexpectedMessage is returned when a handshake message arrives that
// isn't valid for the current state.
var ErrUnexpectedMessage = errors.New("unexpected handshake message for current state")

// ErrNotConnected is returned by Token when the handshake hasn't reached
// Connected.
var ErrNotConnected = errors.New("handshake has not completed")

// Salt is a 64-bit value exchanged by both peers during the handshake. The
// connection token is the XOR of both salts, giving both sides the same
// derived value without either unilaterally dictating it.
type Salt uint64

// NewSalt draws a cryptographically random Salt.
func NewSalt() (Salt, error) {
	var buf [saltSize]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, errors.Wrap(err, "handshake: generate salt")
	}
	return Salt(binary.BigEndian.Uint64(buf[:])), nil
}

// EncodeSalt serializes a Salt as an 8-byte big-endian control message body.
func EncodeSalt(s Salt) []byte {
	buf := make([]byte, saltSize)
	binary.BigEndian.PutUint64(buf, uint64(s))
	return buf
}

// DecodeSalt parses an 8-byte big-endian Salt.
func DecodeSalt(b []byte) (Salt, error) {
	if len(b) < saltSize {
		return 0, errors.New("handshake: truncated salt")
	}
	return Salt(binary.BigEndian.Uint64(b[:saltSize])), nil
}

// Machine drives one side of the handshake state machine. It is safe for
// concurrent use.
type Machine struct {
	mu        sync.Mutex
	state     State
	localSalt Salt
	peerSalt  Salt
}

// NewMachine returns a Machine in the Idle state.
func NewMachine() *Machine {
	return &Machine{state: Idle}
}

// State returns the machine's current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Initiate transitions Idle -> SaltSent, drawing and returning the local
// salt to send to the peer.
func (m *Machine) Initiate() (Salt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Idle {
		return 0, errors.Wrapf(ErrUnexpectedMessage, "initiate called in state %s", m.state)
	}
	salt, err := NewSalt()
	if err != nil {
		return 0, err
	}
	m.localSalt = salt
	m.state = SaltSent
	return salt, nil
}

// Respond transitions Idle -> Challenged on receipt of the peer's salt,
// drawing and returning the local salt to send back.
func (m *Machine) Respond(peerSalt Salt) (Salt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Idle {
		return 0, errors.Wrapf(ErrUnexpectedMessage, "respond called in state %s", m.state)
	}
	salt, err := NewSalt()
	if err != nil {
		return 0, err
	}
	m.localSalt = salt
	m.peerSalt = peerSalt
	m.state = Challenged
	return salt, nil
}

// CompleteInitiator transitions SaltSent -> Connected on receipt of the
// responder's salt.
func (m *Machine) CompleteInitiator(peerSalt Salt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != SaltSent {
		return errors.Wrapf(ErrUnexpectedMessage, "complete called in state %s", m.state)
	}
	m.peerSalt = peerSalt
	m.state = Connected
	return nil
}

// CompleteResponder transitions Challenged -> Connected once the
// initiator acknowledges the exchange is done.
func (m *Machine) CompleteResponder() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Challenged {
		return errors.Wrapf(ErrUnexpectedMessage, "complete called in state %s", m.state)
	}
	m.state = Connected
	return nil
}

// Token returns the derived connection token once Connected.
func (m *Machine) Token() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Connected {
		return 0, ErrNotConnected
	}
	return uint64(m.localSalt) ^ uint64(m.peerSalt), nil
}

// Close transitions unconditionally to Closed.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Closed
}
