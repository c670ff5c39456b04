package iter

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func timeoutCh(t *testing.T) <-chan time.Time {
	t.Helper()
	return time.After(5 * time.Second)
}

func TestOrderPreservedAcrossWorkers(t *testing.T) {
	heights := make([]int32, 200)
	for i := range heights {
		heights[i] = int32(i)
	}

	it := New(heights, 8, func(h int32) (int32, error) {
		return h * 2, nil
	})
	defer it.Close()

	var got []int32
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, v)
	}
	require.NoError(t, it.Err())
	require.Len(t, got, len(heights))
	for i, v := range got {
		require.Equal(t, int32(i)*2, v)
	}
}

func TestFailFastStopsBeforeExhaustion(t *testing.T) {
	heights := make([]int32, 100)
	for i := range heights {
		heights[i] = int32(i)
	}
	boom := errors.New("boom")

	it := New(heights, 4, func(h int32) (int32, error) {
		if h == 50 {
			return 0, boom
		}
		return h, nil
	})
	defer it.Close()

	count := 0
	for {
		_, ok := it.Next()
		if !ok {
			break
		}
		count++
	}
	require.Less(t, count, len(heights))
	require.Error(t, it.Err())
}

func TestCloseBeforeDrainDoesNotDeadlock(t *testing.T) {
	heights := make([]int32, 1000)
	for i := range heights {
		heights[i] = int32(i)
	}

	it := New(heights, 4, func(h int32) (int32, error) {
		return h, nil
	})
	_, ok := it.Next()
	require.True(t, ok)

	done := make(chan struct{})
	go func() {
		it.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-timeoutCh(t):
		t.Fatal("Close deadlocked")
	}
}

func TestSingleWorker(t *testing.T) {
	heights := []int32{5, 3, 9}
	it := New(heights, 1, func(h int32) (int32, error) { return h, nil })
	defer it.Close()

	var got []int32
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, v)
	}
	require.Equal(t, heights, got)
}
