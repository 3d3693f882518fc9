// Package netsim implements a net.PacketConn wrapper that simulates loss,
// base latency, and jitter on outbound datagrams, for testing a
// ReliableEndpoint under adverse network conditions.
package netsim

import (
	"container/heap"
	"context"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/datawire/dlib/derror"
	"github.com/datawire/dlib/dlog"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// minLatency is the threshold below which a datagram is transmitted inline
// on the calling goroutine instead of being scheduled.
const minLatency = 1500 * time.Microsecond

// drainBatch bounds how many queued items the drainer goroutine moves into
// the heap per wakeup, keeping its loop responsive to the stop signal.
const drainBatch = 256

// stopCheckInterval is how many heap-pop iterations the popper performs
// before re-checking the cooperative stop flag (spec: N = 100).
const stopCheckInterval = 100

// Config holds the simulated impairment parameters. All are safe to read
// concurrently with transmission but are not safe to mutate concurrently
// with themselves; use SetConditions to change them after construction.
type Config struct {
	LossRate    float64 // in [0, 1]
	BaseLatency time.Duration
	Jitter      time.Duration
}

// Transport wraps an underlying net.PacketConn, simulating loss and delay
// on every WriteTo call. ReadFrom passes through unmodified, matching a
// real network's asymmetry between "I control my own sends" and "I can't
// simulate what the peer already transmitted."
type Transport struct {
	id   uuid.UUID
	conn net.PacketConn

	mu   sync.Mutex
	cfg  Config
	rand *rand.Rand

	queue chan *scheduledDatagram

	heapMu sync.Mutex
	h      scheduleHeap

	wakeup chan struct{}
}

// New wraps conn with simulated network impairments described by cfg.
func New(conn net.PacketConn, cfg Config, seed int64) *Transport {
	return &Transport{
		id:     uuid.New(),
		conn:   conn,
		cfg:    cfg,
		rand:   rand.New(rand.NewSource(seed)),
		queue:  make(chan *scheduledDatagram, 1024),
		wakeup: make(chan struct{}, 1),
	}
}

// ID returns the transport's instance ID, used to correlate log lines
// across its sender worker.
func (t *Transport) ID() uuid.UUID { return t.id }

// SetConditions updates the simulated loss rate, base latency, and jitter
// in effect for subsequent WriteTo calls.
func (t *Transport) SetConditions(cfg Config) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cfg = cfg
}

// Run launches the sender worker's two cooperating goroutines — the
// MPSC-queue drainer and the min-heap popper — under an errgroup.Group, and
// blocks until ctx is done or one of them fails. Callers typically run this
// in its own goroutine, supervised by a dgroup alongside the owning
// endpoint's receive loop and stats ticker.
func (t *Transport) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		defer func() {
			if perr := derror.PanicToError(recover()); perr != nil {
				dlog.Errorf(ctx, "netsim %s: drainer panic: %+v", t.id, perr)
				err = perr
			}
		}()
		t.drainLoop(ctx)
		return nil
	})

	g.Go(func() (err error) {
		defer func() {
			if perr := derror.PanicToError(recover()); perr != nil {
				dlog.Errorf(ctx, "netsim %s: popper panic: %+v", t.id, perr)
				err = perr
			}
		}()
		t.popLoop(ctx)
		return nil
	})

	return g.Wait()
}

// WriteTo simulates the network path for one outbound datagram: it may be
// dropped, transmitted immediately, or scheduled for later delivery by the
// sender worker. The caller always sees len(b), nil on a simulated drop —
// it is blind to loss, same as a real socket.
func (t *Transport) WriteTo(b []byte, addr net.Addr) (int, error) {
	return t.WriteToWithDelay(b, addr, 0)
}

// WriteToWithDelay behaves like WriteTo but adds extra on top of the
// configured base latency and jitter, for tests that need to schedule a
// specific datagram's arrival independently of the transport's ambient
// conditions.
func (t *Transport) WriteToWithDelay(b []byte, addr net.Addr, extra time.Duration) (int, error) {
	t.mu.Lock()
	cfg := t.cfg
	u := t.rand.Float64()
	jitter := time.Duration(0)
	if cfg.Jitter > 0 {
		jitter = time.Duration(t.rand.Float64() * float64(cfg.Jitter))
	}
	t.mu.Unlock()

	if u <= cfg.LossRate {
		return len(b), nil
	}

	delay := cfg.BaseLatency + jitter + extra
	if delay < minLatency {
		_, err := t.conn.WriteTo(b, addr)
		if err != nil {
			return 0, err
		}
		return len(b), nil
	}

	datagram := make([]byte, len(b))
	copy(datagram, b)
	t.enqueue(&scheduledDatagram{
		scheduledTime: time.Now().Add(delay),
		datagram:      datagram,
		dest:          addr,
	})
	return len(b), nil
}

func (t *Transport) enqueue(sd *scheduledDatagram) {
	t.queue <- sd
	select {
	case t.wakeup <- struct{}{}:
	default:
	}
}

// drainLoop moves items from the inbound MPSC channel into the private
// heap.
func (t *Transport) drainLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sd := <-t.queue:
			t.pushBatch(sd)
		}
	}
}

func (t *Transport) pushBatch(first *scheduledDatagram) {
	t.heapMu.Lock()
	heap.Push(&t.h, first)
	for i := 0; i < drainBatch-1; i++ {
		select {
		case sd := <-t.queue:
			heap.Push(&t.h, sd)
		default:
			t.heapMu.Unlock()
			return
		}
	}
	t.heapMu.Unlock()
}

// popLoop repeatedly pops heap entries whose scheduled time has arrived and
// transmits them, checking the cooperative stop signal every
// stopCheckInterval iterations.
func (t *Transport) popLoop(ctx context.Context) {
	ticker := time.NewTicker(minLatency)
	defer ticker.Stop()

	iterations := 0
	for {
		iterations++
		if iterations%stopCheckInterval == 0 {
			select {
			case <-ctx.Done():
				return
			default:
			}
		}

		sd, ok := t.popReady(time.Now())
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-t.wakeup:
			case <-ticker.C:
			}
			continue
		}

		if _, err := t.conn.WriteTo(sd.datagram, sd.dest); err != nil {
			dlog.Errorf(ctx, "netsim %s: delayed write: %v", t.id, err)
		}
	}
}

func (t *Transport) popReady(now time.Time) (*scheduledDatagram, bool) {
	t.heapMu.Lock()
	defer t.heapMu.Unlock()
	if len(t.h) == 0 {
		return nil, false
	}
	if t.h[0].scheduledTime.After(now) {
		return nil, false
	}
	return heap.Pop(&t.h).(*scheduledDatagram), true
}

// ReadFrom passes reads through unmodified; impairments are only simulated
// on the sending side of this process's own traffic.
func (t *Transport) ReadFrom(b []byte) (int, net.Addr, error) {
	return t.conn.ReadFrom(b)
}

// Close closes the underlying connection. It does not stop Run; callers
// should cancel Run's context first.
func (t *Transport) Close() error {
	return t.conn.Close()
}

// LocalAddr returns the underlying connection's local address.
func (t *Transport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

// SetReadDeadline forwards to the underlying connection.
func (t *Transport) SetReadDeadline(dl time.Time) error {
	return t.conn.SetReadDeadline(dl)
}

// SetWriteDeadline forwards to the underlying connection.
func (t *Transport) SetWriteDeadline(dl time.Time) error {
	return t.conn.SetWriteDeadline(dl)
}

// SetDeadline forwards to the underlying connection.
func (t *Transport) SetDeadline(dl time.Time) error {
	return t.conn.SetDeadline(dl)
}

var _ net.PacketConn = (*Transport)(nil)
