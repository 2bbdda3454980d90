package asyncpool_test

import (
	"sync"
	"testing"
	"time"

	"github.com/cbarrett/redirectfs/executor/asyncpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitInvokesCompleteExactlyOnceWithAdvanceResult(t *testing.T) {
	p := asyncpool.New(2, 4)
	defer p.Close()

	var mu sync.Mutex
	calls := 0
	var gotStatus uint32
	var gotN int
	done := make(chan struct{})

	p.Submit(
		func() (uint32, int) { return 7, 42 },
		func(status uint32, n int) {
			mu.Lock()
			calls++
			gotStatus = status
			gotN = n
			mu.Unlock()
			close(done)
		},
	)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("completion callback never ran")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
	assert.Equal(t, uint32(7), gotStatus)
	assert.Equal(t, 42, gotN)
}

func TestPendingTracksInFlightSubmissionsDownToZero(t *testing.T) {
	p := asyncpool.New(1, 4)
	defer p.Close()

	release := make(chan struct{})
	done := make(chan struct{})

	p.Submit(
		func() (uint32, int) { <-release; return 0, 0 },
		func(uint32, int) { close(done) },
	)

	require.Eventually(t, func() bool { return p.Pending() == 1 }, time.Second, 10*time.Millisecond)

	close(release)
	<-done

	require.Eventually(t, func() bool { return p.Pending() == 0 }, time.Second, 10*time.Millisecond)
}

func TestCloseWaitsForInFlightWorkToFinish(t *testing.T) {
	p := asyncpool.New(1, 4)

	started := make(chan struct{})
	finished := false

	p.Submit(
		func() (uint32, int) {
			close(started)
			time.Sleep(50 * time.Millisecond)
			finished = true
			return 0, 0
		},
		func(uint32, int) {},
	)

	<-started
	p.Close()
	assert.True(t, finished)
}
