package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ringping/ringping/internal/session"
)

type fakeWarner struct {
	calls []string
}

func (f *fakeWarner) Warn(format string, args ...interface{}) {
	f.calls = append(f.calls, format)
}

func TestResolveLiteralV4(t *testing.T) {
	ep, err := Resolve("93.184.216.34", session.V4, nil)
	require.NoError(t, err)
	assert.Equal(t, session.V4, ep.Family)
	assert.Equal(t, "93.184.216.34", ep.IP.String())
}

func TestResolveLiteralV6(t *testing.T) {
	ep, err := Resolve("2001:db8::1", session.V6, nil)
	require.NoError(t, err)
	assert.Equal(t, session.V6, ep.Family)
}

func TestResolveMismatchedFamilyFails(t *testing.T) {
	_, err := Resolve("93.184.216.34", session.V6, nil)
	assert.Error(t, err)
}

func TestResolveLoopbackWarns(t *testing.T) {
	w := &fakeWarner{}
	ep, err := Resolve("127.0.0.1", session.V4, w)
	require.NoError(t, err)
	assert.True(t, ep.IP.IsLoopback())
	assert.Len(t, w.calls, 1)
}

func TestResolveNilWarnerIsSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		_, _ = Resolve("127.0.0.1", session.V4, nil)
	})
}
