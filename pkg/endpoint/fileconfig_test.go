package endpoint_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telepresenceio/reliable-endpoint/pkg/endpoint"
)

func TestLoadConfigFromYAMLAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
max_packet_size: 900
fragment_size: 300
read_timeout: 50ms
`), 0o600))

	cfg, err := endpoint.LoadConfigFromYAML(path)
	require.NoError(t, err)

	assert.Equal(t, 900, cfg.MaxPacketSize)
	assert.Equal(t, 300, cfg.FragmentSize)
	assert.Equal(t, endpoint.DefaultConfig().FragmentAbove, cfg.FragmentAbove)
	assert.Equal(t, endpoint.DefaultConfig().UpdateInterval, cfg.UpdateInterval)
}

func TestLoadConfigFromYAMLMissingFile(t *testing.T) {
	_, err := endpoint.LoadConfigFromYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigFromYAMLBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("read_timeout: not-a-duration\n"), 0o600))

	_, err := endpoint.LoadConfigFromYAML(path)
	assert.Error(t, err)
}
