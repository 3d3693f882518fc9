package netsim

import (
	"container/heap"
	"net"
	"time"
)

// scheduledDatagram is one entry in the sender worker's priority queue.
type scheduledDatagram struct {
	scheduledTime time.Time
	datagram      []byte
	dest          net.Addr
}

// scheduleHeap is a container/heap.Interface over scheduledDatagrams,
// ordered by scheduledTime; ties are broken arbitrarily by heap mechanics,
// matching the spec's unspecified tie-break.
type scheduleHeap []*scheduledDatagram

func (h scheduleHeap) Len() int { return len(h) }
func (h scheduleHeap) Less(i, j int) bool {
	return h[i].scheduledTime.Before(h[j].scheduledTime)
}
func (h scheduleHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scheduleHeap) Push(x interface{}) {
	*h = append(*h, x.(*scheduledDatagram))
}

func (h *scheduleHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

var _ heap.Interface = (*scheduleHeap)(nil)
