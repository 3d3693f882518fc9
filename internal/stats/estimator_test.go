package stats_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/telepresenceio/reliable-endpoint/internal/stats"
)

func TestInitialValuesAreZero(t *testing.T) {
	e := stats.NewEstimator(stats.DefaultConfig(), time.Now())
	snap := e.Snapshot()
	assert.Equal(t, stats.Snapshot{}, snap)
}

// RTT smoothing: the estimator equals the iterated exponential average.
func TestRTTSmoothingMatchesIteratedAverage(t *testing.T) {
	cfg := stats.DefaultConfig()
	e := stats.NewEstimator(cfg, time.Now())

	samples := []time.Duration{
		100 * time.Millisecond,
		120 * time.Millisecond,
		80 * time.Millisecond,
		200 * time.Millisecond,
	}

	var want float64
	for _, s := range samples {
		want = want*(1-cfg.RTTSmoothing) + float64(s)*cfg.RTTSmoothing
		e.AddRTTSample(s)
	}

	assert.InDelta(t, want, float64(e.Snapshot().RTT), 1)
}

func TestLossSampleUsesTrueAckedCount(t *testing.T) {
	cfg := stats.Config{RTTSmoothing: 0.1, LossSmoothing: 1.0, BandwidthSmoothing: 0.1}
	now := time.Now()
	e := stats.NewEstimator(cfg, now.Add(-time.Second))

	sent := []stats.SentRecord{
		{SendTime: now.Add(-500 * time.Millisecond), Size: 100, Acked: true},
		{SendTime: now.Add(-400 * time.Millisecond), Size: 100, Acked: false},
	}

	snap := e.Update(now, sent, nil)
	// With loss smoothing alpha=1.0, the sample replaces the previous value
	// outright: eligible=2 (both sent well before "now", rtt starts at 0),
	// acked=1, loss = 1 - 1/2 = 0.5.
	assert.InDelta(t, 0.5, snap.Loss, 1e-9)
}

func TestBandwidthSamplesOverWindow(t *testing.T) {
	cfg := stats.Config{RTTSmoothing: 0.1, LossSmoothing: 0.1, BandwidthSmoothing: 1.0}
	now := time.Now()
	e := stats.NewEstimator(cfg, now.Add(-time.Second))

	sent := []stats.SentRecord{
		{SendTime: now.Add(-500 * time.Millisecond), Size: 1000},
	}
	recv := []stats.RecvRecord{
		{RecvTime: now.Add(-500 * time.Millisecond), Size: 2000},
	}

	snap := e.Update(now, sent, recv)
	assert.InDelta(t, 1000.0, snap.SentBW, 1000.0) // 1000 bytes / ~1s dt
	assert.InDelta(t, 2000.0, snap.RecvBW, 2000.0)
}

func TestDtIsClampedToMinimum(t *testing.T) {
	cfg := stats.Config{RTTSmoothing: 0.1, LossSmoothing: 0.1, BandwidthSmoothing: 1.0}
	now := time.Now()
	// lastUpdate essentially "now": without clamping, dt would be ~0 and
	// bandwidth would divide by a near-zero number, producing a huge or
	// infinite sample.
	e := stats.NewEstimator(cfg, now)

	sent := []stats.SentRecord{{SendTime: now, Size: 100}}
	snap := e.Update(now, sent, nil)

	assert.Less(t, snap.SentBW, 1e6, "sentBW should be bounded by the minimum dt clamp, not blow up")
}
