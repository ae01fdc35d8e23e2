package loader

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSessionRunsInOrder(t *testing.T) {
	s := NewSession()
	defer s.Close()

	var mu sync.Mutex
	var got []int
	for i := 0; i < 100; i++ {
		require.True(t, s.Post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}))
	}
	flush(t, s)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 100)
	for i, v := range got {
		require.Equal(t, i, v)
	}
}

func TestSessionCallbacksDoNotOverlap(t *testing.T) {
	s := NewSession()
	defer s.Close()

	var running, overlaps int
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				s.Post(func() {
					mu.Lock()
					running++
					if running > 1 {
						overlaps++
					}
					mu.Unlock()
					time.Sleep(time.Microsecond)
					mu.Lock()
					running--
					mu.Unlock()
				})
			}
		}()
	}
	wg.Wait()
	flush(t, s)
	require.Zero(t, overlaps)
}

func TestSessionClose(t *testing.T) {
	s := NewSession()
	require.True(t, s.Alive())
	s.Close()
	s.Close()
	require.False(t, s.Alive())

	select {
	case <-s.Done():
	default:
		t.Fatal("done channel not closed")
	}

	ran := false
	require.False(t, s.Post(func() { ran = true }))
	time.Sleep(10 * time.Millisecond)
	require.False(t, ran)
}
