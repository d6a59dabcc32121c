package fanout_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-community-go/pkg/fanout"
)

func TestMap_PreservesInputOrder(t *testing.T) {
	items := []int{5, 1, 4, 2, 3}

	results := fanout.Map(context.Background(), items, 0, func(_ context.Context, n int) (int, error) {
		// later items finish first
		time.Sleep(time.Duration(n) * time.Millisecond)
		return n * 10, nil
	})

	require.Len(t, results, len(items))
	for i, n := range items {
		assert.NoError(t, results[i].Err)
		assert.Equal(t, n*10, results[i].Value)
	}
}

func TestMap_FailureStaysInItsSlot(t *testing.T) {
	boom := errors.New("boom")
	items := []string{"a", "bad", "c"}

	results := fanout.Map(context.Background(), items, 2, func(_ context.Context, s string) (string, error) {
		if s == "bad" {
			return "", boom
		}
		return s + s, nil
	})

	assert.Equal(t, "aa", results[0].Value)
	assert.ErrorIs(t, results[1].Err, boom)
	assert.Equal(t, "cc", results[2].Value)
	assert.NoError(t, results[2].Err)
}

func TestMap_RespectsLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	items := make([]int, 20)

	fanout.Map(context.Background(), items, 3, func(_ context.Context, _ int) (struct{}, error) {
		cur := inFlight.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		return struct{}{}, nil
	})

	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestMap_EmptyInput(t *testing.T) {
	results := fanout.Map(context.Background(), []int(nil), 0, func(_ context.Context, n int) (int, error) {
		t.Fatal("fn must not be called")
		return 0, nil
	})
	assert.Empty(t, results)
}
