package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg := New("example.com")
	assert.Equal(t, Any, cfg.Family)
	assert.Equal(t, DefaultInterval, cfg.Interval)
	assert.Equal(t, DefaultTimeout, cfg.ReplyTimeout)
}

func TestValidateFillsFamilyTTL(t *testing.T) {
	cfg := New("example.com")
	cfg.Family = V6
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultTTLv6, cfg.TTL)

	cfg2 := New("example.com")
	cfg2.Family = V4
	require.NoError(t, cfg2.Validate())
	assert.Equal(t, DefaultTTLv4, cfg2.TTL)
}

func TestValidateRejectsBroadcastWithV6(t *testing.T) {
	cfg := New("example.com")
	cfg.Family = V6
	cfg.Broadcast = true
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNonPositiveInterval(t *testing.T) {
	cfg := New("example.com")
	cfg.Interval = 0
	assert.Error(t, cfg.Validate())
}

func TestNetworkNames(t *testing.T) {
	cfg := New("example.com")
	cfg.Endpoint.Family = V4
	assert.Equal(t, "ip4:icmp", cfg.Network(false))
	assert.Equal(t, "udp4", cfg.Network(true))

	cfg.Endpoint.Family = V6
	assert.Equal(t, "ip6:ipv6-icmp", cfg.Network(false))
	assert.Equal(t, "udp6", cfg.Network(true))
}
