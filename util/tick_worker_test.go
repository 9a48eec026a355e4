package util

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTickWorkerRunsAndStops(t *testing.T) {
	var ticks int32
	var wg sync.WaitGroup
	worker := NewTickWorker("test", 10*time.Millisecond, make(chan struct{}), func() {
		atomic.AddInt32(&ticks, 1)
	}, &wg)

	worker.Start()
	require.True(t, worker.IsRunning())

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&ticks) >= 3
	}, 2*time.Second, 5*time.Millisecond)

	worker.Stop()
	wg.Wait()
	require.False(t, worker.IsRunning())

	settled := atomic.LoadInt32(&ticks)
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, settled, atomic.LoadInt32(&ticks))
}
