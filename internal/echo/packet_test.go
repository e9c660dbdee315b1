package echo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ringping/ringping/internal/session"
)

func TestNewRejectsEmptyPayload(t *testing.T) {
	_, err := New(session.V4, 1, nil)
	require.ErrorIs(t, err, ErrPayloadTooShort)
}

func TestAdvanceFoldsToValidChecksum(t *testing.T) {
	p, err := New(session.V4, 0xbeef, DefaultPayload)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		p.Advance()
		assert.True(t, Verify(p.Bytes()), "packet at seq %d should fold to 0xffff", p.Sequence())
	}
}

func TestAdvanceIncrementsSequenceAndWraps(t *testing.T) {
	p, err := New(session.V6, 1, DefaultPayload)
	require.NoError(t, err)

	p.seq = 0xfffe
	p.Advance()
	assert.Equal(t, uint16(0xffff), p.Sequence())
	p.Advance()
	assert.Equal(t, uint16(0), p.Sequence())
	p.Advance()
	assert.Equal(t, uint16(1), p.Sequence())
}

func TestChecksumEndiannessInvariant(t *testing.T) {
	a := []byte{0x45, 0x00, 0x00, 0x1c, 0xde, 0xad, 0xbe, 0xef}
	b := append([]byte(nil), a...)
	assert.Equal(t, Checksum(a), Checksum(b))
}

func TestAdvanceProducesDistinctSequenceBytes(t *testing.T) {
	p, err := New(session.V4, 7, DefaultPayload)
	require.NoError(t, err)
	p.Advance()
	first := append([]byte(nil), p.Bytes()...)
	p.Advance()
	second := p.Bytes()
	assert.NotEqual(t, first[6:8], second[6:8])
}
