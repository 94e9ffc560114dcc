package sharedptr_test

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/shared-handles-go/sharedptr"
)

func Test_Tracker_ListsLiveBlocks(t *testing.T) {
	// arrange
	tracker := sharedptr.NewTracker()
	first, second := 1, "two"

	a, err := sharedptr.New(&first, sharedptr.WithTracker(tracker), sharedptr.WithLabel("first"))
	require.NoError(t, err)
	b, err := sharedptr.New(&second, sharedptr.WithTracker(tracker))
	require.NoError(t, err)
	bClone := b.Clone()
	bWeak := b.Weak()

	// act
	snapshot := tracker.Snapshot()

	// assert
	require.Len(t, snapshot, 2)
	assert.Equal(t, 2, tracker.Len())

	assert.Equal(t, "first", snapshot[0].Label)
	assert.Equal(t, "int", snapshot[0].Type)
	assert.Equal(t, int64(1), snapshot[0].UseCount)
	assert.Equal(t, int64(0), snapshot[0].WeakUseCount)
	assert.Equal(t, "live", snapshot[0].State)

	assert.Empty(t, snapshot[1].Label)
	assert.Equal(t, "string", snapshot[1].Type)
	assert.Equal(t, int64(2), snapshot[1].UseCount)
	assert.Equal(t, int64(1), snapshot[1].WeakUseCount)
	assert.NotEqual(t, snapshot[0].ID, snapshot[1].ID)

	a.Release()
	b.Release()
	bClone.Release()
	bWeak.Release()
}

func Test_Tracker_ReportsExpiredButObservedBlocks(t *testing.T) {
	// arrange
	tracker := sharedptr.NewTracker()
	value := 1
	s, err := sharedptr.New(&value, sharedptr.WithTracker(tracker))
	require.NoError(t, err)
	w := s.Weak()

	// act
	s.Release()
	whileObserved := tracker.Report()
	w.Release()
	afterRetirement := tracker.Report()

	// assert
	require.Len(t, whileObserved.Blocks, 1)
	assert.Equal(t, "strong_expired", whileObserved.Blocks[0].State)
	assert.Equal(t, int64(0), whileObserved.Blocks[0].UseCount)
	assert.Equal(t, int64(1), whileObserved.Blocks[0].WeakUseCount)

	assert.Equal(t, 0, afterRetirement.LiveBlocks)
	assert.Empty(t, afterRetirement.Blocks)
	assert.Equal(t, uint64(1), afterRetirement.CreatedTotal)
	assert.Equal(t, uint64(1), afterRetirement.RetiredTotal)
}

func Test_Tracker_ReportJSON(t *testing.T) {
	// arrange
	tracker := sharedptr.NewTracker()
	value := 1
	s, err := sharedptr.MakeShared(value, sharedptr.WithTracker(tracker), sharedptr.WithLabel("leaky"))
	require.NoError(t, err)
	defer s.Release()

	// act
	raw, err := tracker.ReportJSON()
	require.NoError(t, err)

	// assert
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, float64(1), decoded["live_blocks"])
	assert.Equal(t, float64(1), decoded["created_total"])
	assert.Equal(t, float64(0), decoded["retired_total"])

	blocks, ok := decoded["blocks"].([]any)
	require.True(t, ok)
	require.Len(t, blocks, 1)

	block, ok := blocks[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "leaky", block["label"])
	assert.Equal(t, "int", block["type"])
	assert.Equal(t, float64(1), block["use_count"])
	assert.Equal(t, "live", block["state"])
	assert.Contains(t, block, "id")
	assert.Contains(t, block, "created_at")
	assert.Contains(t, block, "age_ms")
}

func Test_Tracker_IgnoresBlocksWithoutTracker(t *testing.T) {
	// arrange
	tracker := sharedptr.NewTracker()
	value := 1

	// act
	s, err := sharedptr.New(&value, sharedptr.WithLabel("untracked"))
	require.NoError(t, err)
	defer s.Release()

	// assert
	assert.Equal(t, 0, tracker.Len())
}

func Test_Tracker_ReportTotalsMatchLiveBlocksUnderChurn(t *testing.T) {
	// arrange
	const (
		workers = 8
		rounds  = 200
	)

	tracker := sharedptr.NewTracker()
	var wg sync.WaitGroup

	// act
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range rounds {
				v := i
				s, err := sharedptr.New(&v, sharedptr.WithTracker(tracker))
				if err != nil {
					return
				}
				s.Release()
			}
		}()
	}

	for range rounds {
		report := tracker.Report()
		// assert
		require.Equal(t, uint64(report.LiveBlocks), report.CreatedTotal-report.RetiredTotal)
		require.Len(t, report.Blocks, report.LiveBlocks)
	}

	wg.Wait()

	final := tracker.Report()
	assert.Equal(t, 0, final.LiveBlocks)
	assert.Equal(t, uint64(workers*rounds), final.CreatedTotal)
	assert.Equal(t, uint64(workers*rounds), final.RetiredTotal)
}
