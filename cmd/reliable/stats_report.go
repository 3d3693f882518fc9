package main

import (
	"context"
	"time"

	"github.com/telepresenceio/reliable-endpoint/internal/metrics"
	"github.com/telepresenceio/reliable-endpoint/pkg/endpoint"
)

// reportStatsUntilDone polls ep's stats on an interval and republishes them
// as Prometheus gauges under ep's instance ID, until ctx is canceled.
func reportStatsUntilDone(ctx context.Context, ep *endpoint.Endpoint) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var lastMalformed, lastFragmentErrors uint64
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			snap := ep.GetStats()
			metrics.Report(ep.ID(), metrics.Snapshot{
				RTTSeconds: snap.RTT.Seconds(),
				Loss:       snap.Loss,
				SentBW:     snap.SentBW,
				RecvBW:     snap.RecvBW,
				AckedBW:    snap.AckedBW,
			})
			metrics.MalformedDatagrams.WithLabelValues(ep.ID()).Add(float64(snap.Malformed - lastMalformed))
			metrics.FragmentErrors.WithLabelValues(ep.ID()).Add(float64(snap.FragmentErrors - lastFragmentErrors))
			lastMalformed = snap.Malformed
			lastFragmentErrors = snap.FragmentErrors
		}
	}
}
