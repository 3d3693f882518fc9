package endpoint

import (
	"time"

	"github.com/telepresenceio/reliable-endpoint/internal/stats"
)

// Config holds the tunable options recognized by a ReliableEndpoint. Zero
// values are replaced by their documented defaults in NewEndpoint.
type Config struct {
	// MaxPacketSize is the maximum reconstructed payload size.
	MaxPacketSize int `env:"MAX_PACKET_SIZE"`

	// FragmentAbove is the receive-side threshold used to classify a
	// datagram's remainder as a fragment sub-header versus a plain
	// payload: len(rest) > FragmentAbove means "fragment".
	FragmentAbove int `env:"FRAGMENT_ABOVE"`

	// FragmentSize is the per-fragment payload size used when splitting
	// an outbound payload.
	FragmentSize int `env:"FRAGMENT_SIZE"`

	// MaxFragments is the hard cap on fragments per outbound payload.
	MaxFragments int `env:"MAX_FRAGMENTS"`

	// AckBufferSize is the depth of the received-sequence history used
	// to derive the ack bitfield.
	AckBufferSize int `env:"ACK_BUFFER_SIZE"`

	// SentBufferSize and RecvBufferSize size the sent/received
	// SequenceWindows.
	SentBufferSize int `env:"SENT_BUFFER_SIZE"`
	RecvBufferSize int `env:"RECV_BUFFER_SIZE"`

	// RTTSmoothing, LossSmoothing, and BandwidthSmoothing are the
	// exponential smoothing alphas for the respective stats.
	RTTSmoothing       float64 `env:"RTT_SMOOTHING"`
	LossSmoothing      float64 `env:"LOSS_SMOOTHING"`
	BandwidthSmoothing float64 `env:"BANDWIDTH_SMOOTHING"`

	// ReadTimeout bounds each blocking read of the underlying transport,
	// so Stop can interrupt the receive loop in bounded time.
	ReadTimeout time.Duration `env:"READ_TIMEOUT, default=200ms"`

	// UpdateInterval is how often the receive loop's companion ticker
	// calls Update.
	UpdateInterval time.Duration `env:"UPDATE_INTERVAL, default=100ms"`
}

// DefaultConfig returns a Config populated with every documented default.
func DefaultConfig() Config {
	return Config{
		MaxPacketSize:      1200,
		FragmentAbove:      1000,
		FragmentSize:       500,
		MaxFragments:       16,
		AckBufferSize:      32,
		SentBufferSize:     256,
		RecvBufferSize:     256,
		RTTSmoothing:       0.1,
		LossSmoothing:      0.1,
		BandwidthSmoothing: 0.1,
		ReadTimeout:        200 * time.Millisecond,
		UpdateInterval:     100 * time.Millisecond,
	}
}

// withDefaults fills any zero-valued field with its documented default.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxPacketSize == 0 {
		c.MaxPacketSize = d.MaxPacketSize
	}
	if c.FragmentAbove == 0 {
		c.FragmentAbove = d.FragmentAbove
	}
	if c.FragmentSize == 0 {
		c.FragmentSize = d.FragmentSize
	}
	if c.MaxFragments == 0 {
		c.MaxFragments = d.MaxFragments
	}
	if c.AckBufferSize == 0 {
		c.AckBufferSize = d.AckBufferSize
	}
	if c.SentBufferSize == 0 {
		c.SentBufferSize = d.SentBufferSize
	}
	if c.RecvBufferSize == 0 {
		c.RecvBufferSize = d.RecvBufferSize
	}
	if c.RTTSmoothing == 0 {
		c.RTTSmoothing = d.RTTSmoothing
	}
	if c.LossSmoothing == 0 {
		c.LossSmoothing = d.LossSmoothing
	}
	if c.BandwidthSmoothing == 0 {
		c.BandwidthSmoothing = d.BandwidthSmoothing
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.UpdateInterval == 0 {
		c.UpdateInterval = d.UpdateInterval
	}
	return c
}

func (c Config) statsConfig() stats.Config {
	return stats.Config{
		RTTSmoothing:       c.RTTSmoothing,
		LossSmoothing:      c.LossSmoothing,
		BandwidthSmoothing: c.BandwidthSmoothing,
	}
}
