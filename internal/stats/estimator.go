// Package stats implements the endpoint's exponentially smoothed network
// condition estimators: RTT, loss, and sent/received/acked bandwidth.
package stats

import "time"

// minDt is the floor applied to the elapsed time between Update calls
// before it is used as a divisor, per the redesigned bandwidth windowing
// rule (SPEC_FULL.md REDESIGN FLAGS).
const minDt = 10 * time.Millisecond

// Config holds the independently configurable smoothing coefficients.
type Config struct {
	RTTSmoothing       float64
	LossSmoothing      float64
	BandwidthSmoothing float64
}

// DefaultConfig matches the spec's default alpha of 0.1 for every stat.
func DefaultConfig() Config {
	return Config{RTTSmoothing: 0.1, LossSmoothing: 0.1, BandwidthSmoothing: 0.1}
}

// Snapshot is a consistent, torn-free read of every estimated stat.
type Snapshot struct {
	RTT     time.Duration
	Loss    float64
	SentBW  float64
	RecvBW  float64
	AckedBW float64
}

// SentRecord is the minimal view of a sent packet the estimator needs; the
// endpoint supplies these from its sent SequenceWindow.
type SentRecord struct {
	SendTime time.Time
	Size     uint32
	Acked    bool
}

// RecvRecord is the minimal view of a received packet the estimator needs.
type RecvRecord struct {
	RecvTime time.Time
	Size     uint32
}

// Estimator smooths RTT, loss, and bandwidth samples with independently
// configured exponential moving averages.
type Estimator struct {
	cfg Config

	rtt     time.Duration
	loss    float64
	sentBW  float64
	recvBW  float64
	ackedBW float64

	lastUpdate time.Time
}

// NewEstimator returns an Estimator with every stat initialized to zero.
// constructionTime seeds the first Update's dt calculation.
func NewEstimator(cfg Config, constructionTime time.Time) *Estimator {
	return &Estimator{cfg: cfg, lastUpdate: constructionTime}
}

func smooth(prev, sample, alpha float64) float64 {
	return prev*(1-alpha) + sample*alpha
}

// AddRTTSample folds one RTT observation (now - record.SendTime) into the
// smoothed RTT estimate. Called once per newly-acked packet.
func (e *Estimator) AddRTTSample(sample time.Duration) {
	e.rtt = time.Duration(smooth(float64(e.rtt), float64(sample), e.cfg.RTTSmoothing))
}

// Update recomputes loss and bandwidth from the sent/received windows as of
// now, and runs the GC timeout's caller-visible side: it returns the
// current RTT so the caller can derive max(4*rtt, 1s) for its own GC pass.
func (e *Estimator) Update(now time.Time, sent []SentRecord, recv []RecvRecord) Snapshot {
	dt := now.Sub(e.lastUpdate)
	if dt < minDt {
		dt = minDt
	}
	e.lastUpdate = now

	e.loss = smooth(e.loss, lossSample(sent, now, e.rtt), e.cfg.LossSmoothing)
	e.sentBW = smooth(e.sentBW, sentBytesSince(sent, now, dt)/dt.Seconds(), e.cfg.BandwidthSmoothing)
	e.recvBW = smooth(e.recvBW, recvBytesSince(recv, now, dt)/dt.Seconds(), e.cfg.BandwidthSmoothing)
	e.ackedBW = smooth(e.ackedBW, ackedBytesSince(sent, now, dt, e.rtt)/dt.Seconds(), e.cfg.BandwidthSmoothing)

	return e.Snapshot()
}

// Snapshot returns the current value of every stat as a single consistent
// read.
func (e *Estimator) Snapshot() Snapshot {
	return Snapshot{
		RTT:     e.rtt,
		Loss:    e.loss,
		SentBW:  e.sentBW,
		RecvBW:  e.recvBW,
		AckedBW: e.ackedBW,
	}
}

func lossSample(sent []SentRecord, now time.Time, rtt time.Duration) float64 {
	horizon := now.Add(-rtt)
	var eligible, acked int
	for _, r := range sent {
		if r.SendTime.After(horizon) {
			continue
		}
		eligible++
		if r.Acked {
			acked++
		}
	}
	if eligible == 0 {
		return 0
	}
	return 1 - float64(acked)/float64(eligible)
}

func sentBytesSince(sent []SentRecord, now time.Time, dt time.Duration) float64 {
	cutoff := now.Add(-dt)
	var bytes float64
	for _, r := range sent {
		if r.SendTime.After(cutoff) {
			bytes += float64(r.Size)
		}
	}
	return bytes
}

func recvBytesSince(recv []RecvRecord, now time.Time, dt time.Duration) float64 {
	cutoff := now.Add(-dt)
	var bytes float64
	for _, r := range recv {
		if r.RecvTime.After(cutoff) {
			bytes += float64(r.Size)
		}
	}
	return bytes
}

// ackedBytesSince samples the packets sent in the window
// [now-dt-rtt, now-rtt]: the ones that, had they been acked promptly, would
// be reflected as acked right about now.
func ackedBytesSince(sent []SentRecord, now time.Time, dt time.Duration, rtt time.Duration) float64 {
	windowEnd := now.Add(-rtt)
	windowStart := windowEnd.Add(-dt)
	var bytes float64
	for _, r := range sent {
		if !r.Acked {
			continue
		}
		if r.SendTime.After(windowStart) && !r.SendTime.After(windowEnd) {
			bytes += float64(r.Size)
		}
	}
	return bytes
}
