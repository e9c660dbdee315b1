package coordinator

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ringping/ringping/internal/session"
)

func TestStatsReportAppliesDiscardCorrection(t *testing.T) {
	s := Stats{Sent: 10, Acked: 7, Discarded: 2}
	r := s.Report()
	assert.Equal(t, 8, r.Sent) // 10 - 2 discarded
	assert.Equal(t, 7, r.Acked)
	assert.Equal(t, (8-7)*100/8, r.LossPct)
}

func TestStatsReportNeverNegative(t *testing.T) {
	s := Stats{Sent: 1, Acked: 5, Discarded: 1}
	r := s.Report()
	assert.GreaterOrEqual(t, r.Sent, 0)
	assert.GreaterOrEqual(t, r.LossPct, 0)
}

func TestStatsReportZeroSentHasZeroPct(t *testing.T) {
	s := Stats{}
	r := s.Report()
	assert.Equal(t, 0, r.Sent)
	assert.Equal(t, 0, r.LossPct)
}

// newBareCoordinator builds a Coordinator with only the cond/channel
// machinery wired up, for exercising requestStop/waitInterval without
// an underlying socket.
func newBareCoordinator() *Coordinator {
	c := &Coordinator{
		cfg:      &session.Config{Interval: 50 * time.Millisecond},
		ch:       make(chan ringMessage, chanDepth),
		recvDone: make(chan struct{}),
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

func TestRequestStopWakesWaitInterval(t *testing.T) {
	c := newBareCoordinator()

	done := make(chan bool, 1)
	go func() {
		done <- c.waitInterval()
	}()

	time.Sleep(10 * time.Millisecond)
	c.requestStop()

	select {
	case stopped := <-done:
		assert.True(t, stopped)
	case <-time.After(time.Second):
		t.Fatal("waitInterval did not wake on requestStop")
	}
}

func TestRequestStopIsIdempotent(t *testing.T) {
	c := newBareCoordinator()
	assert.NotPanics(t, func() {
		c.requestStop()
		c.requestStop()
	})
	assert.True(t, c.stopFlag.Load())
}

func TestPostStopIsHarmlessAfterReceiverGone(t *testing.T) {
	c := newBareCoordinator()
	close(c.recvDone)
	assert.NotPanics(t, func() {
		c.postStop()
	})
}

func TestPublishFailsOnceReceiverGone(t *testing.T) {
	c := newBareCoordinator()
	close(c.recvDone)
	ok := c.publish(ringMessage{seq: 1, sendInstant: time.Now()})
	assert.False(t, ok)
}
