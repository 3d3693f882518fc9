// Package endpoint implements the reliable-datagram endpoint: sequence
// number assignment, ack-bitfield encoding, fragmentation/reassembly,
// sent/received packet windows, and network statistics estimation, layered
// on top of an unreliable net.PacketConn.
package endpoint

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/datawire/dlib/derror"
	"github.com/datawire/dlib/dgroup"
	"github.com/datawire/dlib/dlog"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/telepresenceio/reliable-endpoint/internal/ack"
	"github.com/telepresenceio/reliable-endpoint/internal/fragment"
	"github.com/telepresenceio/reliable-endpoint/internal/seqwindow"
	"github.com/telepresenceio/reliable-endpoint/internal/stats"
	"github.com/telepresenceio/reliable-endpoint/internal/wire"
)

type state int32

const (
	stateInit state = iota
	stateRunning
	stateStopped
)

func (s state) String() string {
	switch s {
	case stateInit:
		return "Init"
	case stateRunning:
		return "Running"
	case stateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// ProcessPacket is the user callback invoked for every successfully
// decoded single payload and every completed fragment reassembly. A
// single datagram received twice is delivered twice. Returning true
// accepts and acks the packet; returning false drops it without acking.
type ProcessPacket func(payload []byte) bool

// Stats is the snapshot returned by GetStats.
type Stats struct {
	RTT            time.Duration
	Loss           float64
	SentBW         float64
	RecvBW         float64
	AckedBW        float64
	Malformed      uint64
	FragmentErrors uint64
}

// Endpoint is the top-level reliable-datagram facade described by
// SPEC_FULL.md §4.6. It is safe for concurrent use: Send and the receive
// loop serialize through a single coarse mutex, matching the concurrency
// model the endpoint's teacher uses for its own connection handler.
type Endpoint struct {
	id   string
	cfg  Config
	conn net.PacketConn
	raddr net.Addr
	onPacket ProcessPacket

	mu         sync.Mutex
	state      int32
	nextSeq    uint16
	sent       *seqwindow.Window
	received   *seqwindow.Window
	ackHistory *ack.Encoder
	fragments  *fragment.Reassembler
	estimator  *stats.Estimator

	malformed      uint64
	fragmentErrors uint64

	cancel context.CancelFunc
	group  *dgroup.Group
}

// NewEndpoint constructs an Endpoint bound to conn and a single remote
// peer address raddr. cfg's zero fields are replaced with their documented
// defaults.
func NewEndpoint(conn net.PacketConn, raddr net.Addr, onPacket ProcessPacket, cfg Config) *Endpoint {
	cfg = cfg.withDefaults()
	return &Endpoint{
		id:         uuid.NewString(),
		cfg:        cfg,
		conn:       conn,
		raddr:      raddr,
		onPacket:   onPacket,
		state:      int32(stateInit),
		sent:       seqwindow.New(cfg.SentBufferSize),
		received:   seqwindow.New(cfg.RecvBufferSize),
		ackHistory: ack.NewEncoder(cfg.AckBufferSize),
		fragments:  fragment.NewReassembler(),
		estimator:  stats.NewEstimator(cfg.statsConfig(), time.Now()),
	}
}

// ID returns the endpoint's instance ID, used to correlate log lines and
// metrics across the receive loop and the update ticker.
func (e *Endpoint) ID() string { return e.id }

// Start transitions the endpoint from Init to Running and launches its
// background goroutines: the receive loop and the stats-update ticker, both
// supervised by a dgroup.Group so Stop can join them with a bounded
// timeout.
func (e *Endpoint) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&e.state, int32(stateInit), int32(stateRunning)) {
		return ErrAlreadyRunning
	}

	ctx = dgroup.WithGoroutineName(ctx, "/endpoint-"+e.id)
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.group = dgroup.NewGroup(ctx, dgroup.GroupConfig{
		SoftShutdownTimeout: 2 * time.Second,
	})

	e.group.Go("recv-loop", func(ctx context.Context) error {
		defer func() {
			if perr := derror.PanicToError(recover()); perr != nil {
				dlog.Errorf(ctx, "recv-loop panic: %+v", perr)
			}
		}()
		e.recvLoop(ctx)
		return nil
	})

	e.group.Go("stats-ticker", func(ctx context.Context) error {
		defer func() {
			if perr := derror.PanicToError(recover()); perr != nil {
				dlog.Errorf(ctx, "stats-ticker panic: %+v", perr)
			}
		}()
		e.tickerLoop(ctx)
		return nil
	})

	return nil
}

// Stop transitions the endpoint to Stopped, idempotently. It signals the
// receive loop and ticker to exit, joins them within the group's
// configured soft-shutdown timeout, and then closes the underlying
// transport, per the endpoint's ownership of the socket for its lifetime.
// Errors from the goroutine join and from the close are aggregated rather
// than one shadowing the other.
func (e *Endpoint) Stop(ctx context.Context) error {
	prev := state(atomic.SwapInt32(&e.state, int32(stateStopped)))
	if prev == stateStopped {
		return nil
	}

	var result *multierror.Error
	if prev == stateRunning {
		if e.cancel != nil {
			e.cancel()
		}
		if e.group != nil {
			if err := e.group.Wait(); err != nil {
				result = multierror.Append(result, errors.Wrap(err, "join background goroutines"))
			}
		}
	}
	if err := e.conn.Close(); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "close transport"))
	}

	if result.ErrorOrNil() != nil {
		dlog.Errorf(ctx, "endpoint %s: shutdown: %v", e.id, result)
	}
	return result.ErrorOrNil()
}

func (e *Endpoint) running() bool {
	return state(atomic.LoadInt32(&e.state)) == stateRunning
}

// Send allocates the next sequence number, fragments the payload if
// necessary, encodes and transmits it, and records it in the sent window.
// For an oversize payload split into fragments, every fragment shares the
// sequence number and only one sent-window record is created, holding the
// full payload and byte count.
func (e *Endpoint) Send(payload []byte) error {
	if !e.running() {
		return ErrNotRunning
	}
	if len(payload) == 0 {
		return ErrEmptyPayload
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	seq := e.nextSeq
	e.nextSeq++
	latestAck, ackBits := e.ackHistory.Ack()
	header := wire.Header{Sequence: seq, LatestAck: latestAck, AckBits: ackBits}

	if len(payload) > e.cfg.FragmentAbove {
		parts, err := fragment.Split(payload, e.cfg.FragmentSize, e.cfg.MaxFragments)
		if err != nil {
			return errors.Wrapf(err, "endpoint %s: send", e.id)
		}
		for _, p := range parts {
			datagram := wire.EncodeFragment(header, wire.FragmentHeader{FragmentID: p.FragmentID, Total: p.Total}, p.Bytes)
			if err := e.transmit(datagram); err != nil {
				return errors.Wrapf(err, "endpoint %s: send fragment %d/%d", e.id, p.FragmentID, p.Total)
			}
		}
	} else {
		datagram := wire.EncodeSingle(header, payload)
		if err := e.transmit(datagram); err != nil {
			return errors.Wrapf(err, "endpoint %s: send", e.id)
		}
	}

	e.sent.Insert(seqwindow.Record{
		Sequence:  seq,
		Payload:   payload,
		SendTime:  time.Now(),
		SizeBytes: uint32(len(payload)),
	})
	return nil
}

func (e *Endpoint) transmit(datagram []byte) error {
	_, err := e.conn.WriteTo(datagram, e.raddr)
	return err
}

// OnDatagram decodes, classifies, and processes a single received
// datagram, per SPEC_FULL.md §4.6. It is safe to call directly (without a
// live transport) for tests that want to drive the endpoint with
// hand-built wire bytes.
func (e *Endpoint) OnDatagram(ctx context.Context, datagram []byte) error {
	if !e.running() {
		return ErrNotRunning
	}

	header, rest, err := wire.Decode(datagram)
	if err != nil {
		atomic.AddUint64(&e.malformed, 1)
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if len(rest) > e.cfg.FragmentAbove {
		return e.onFragment(ctx, header, rest)
	}
	return e.onSingle(ctx, header, rest)
}

// onFragment must be called with mu held.
func (e *Endpoint) onFragment(ctx context.Context, header wire.Header, rest []byte) error {
	fh, part, err := wire.DecodeFragmentHeader(rest)
	if err != nil {
		atomic.AddUint64(&e.malformed, 1)
		return nil
	}
	payload, done, err := e.fragments.Add(header.Sequence, fh.FragmentID, fh.Total, part, time.Now())
	if err != nil {
		atomic.AddUint64(&e.fragmentErrors, 1)
		dlog.Debugf(ctx, "endpoint %s: fragment error: %v", e.id, err)
		return nil
	}
	if !done {
		return nil
	}
	if len(payload) > e.cfg.MaxPacketSize {
		dlog.Debugf(ctx, "endpoint %s: dropping reassembled payload of %d bytes, max is %d", e.id, len(payload), e.cfg.MaxPacketSize)
		return nil
	}
	return e.deliverSingle(ctx, header, payload)
}

// onSingle must be called with mu held.
func (e *Endpoint) onSingle(ctx context.Context, header wire.Header, payload []byte) error {
	return e.deliverSingle(ctx, header, payload)
}

// deliverSingle must be called with mu held. It invokes the user callback,
// records acceptance, and processes the piggybacked remote acks.
func (e *Endpoint) deliverSingle(ctx context.Context, header wire.Header, payload []byte) error {
	if e.onPacket != nil && e.onPacket(payload) {
		e.received.Insert(seqwindow.Record{
			Sequence:  header.Sequence,
			Payload:   payload,
			SendTime:  time.Now(),
			SizeBytes: uint32(len(payload)),
		})
		e.ackHistory.Add(header.Sequence)
	}

	for i := uint16(0); i < ack.BitfieldWidth; i++ {
		if header.AckBits&(1<<i) == 0 {
			continue
		}
		seq := header.LatestAck - i
		rec, ok := e.sent.Get(seq)
		if !ok || rec.Acked {
			continue
		}
		e.sent.MarkAcked(seq)
		e.estimator.AddRTTSample(time.Since(rec.SendTime))
	}
	return nil
}

// Update recomputes loss/bandwidth stats and garbage-collects stale
// fragment assemblies and window entries, using timeout max(4*rtt, 1s).
func (e *Endpoint) Update(now time.Time) Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	sentRecs := make([]stats.SentRecord, 0)
	e.sent.IterLive(func(r seqwindow.Record) {
		sentRecs = append(sentRecs, stats.SentRecord{SendTime: r.SendTime, Size: r.SizeBytes, Acked: r.Acked})
	})
	recvRecs := make([]stats.RecvRecord, 0)
	e.received.IterLive(func(r seqwindow.Record) {
		recvRecs = append(recvRecs, stats.RecvRecord{RecvTime: r.SendTime, Size: r.SizeBytes})
	})

	snap := e.estimator.Update(now, sentRecs, recvRecs)

	timeout := 4 * snap.RTT
	if timeout < time.Second {
		timeout = time.Second
	}
	e.fragments.GC(now, timeout)
	e.sent.ClearOlderThan(now, timeout)
	e.received.ClearOlderThan(now, timeout)

	return e.statsLocked(snap)
}

// GetStats returns the endpoint's current statistics without forcing a
// recompute.
func (e *Endpoint) GetStats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statsLocked(e.estimator.Snapshot())
}

func (e *Endpoint) statsLocked(snap stats.Snapshot) Stats {
	return Stats{
		RTT:            snap.RTT,
		Loss:           snap.Loss,
		SentBW:         snap.SentBW,
		RecvBW:         snap.RecvBW,
		AckedBW:        snap.AckedBW,
		Malformed:      atomic.LoadUint64(&e.malformed),
		FragmentErrors: atomic.LoadUint64(&e.fragmentErrors),
	}
}

func (e *Endpoint) recvLoop(ctx context.Context) {
	buf := make([]byte, 65536)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_ = e.conn.SetReadDeadline(time.Now().Add(e.cfg.ReadTimeout))
		n, _, err := e.conn.ReadFrom(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			dlog.Errorf(ctx, "endpoint %s: read: %v", e.id, err)
			continue
		}

		datagram := make([]byte, n)
		copy(datagram, buf[:n])
		if err := e.OnDatagram(ctx, datagram); err != nil {
			dlog.Debugf(ctx, "endpoint %s: on-datagram: %v", e.id, err)
		}
	}
}

func (e *Endpoint) tickerLoop(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.UpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			e.Update(now)
		}
	}
}
