package sharedptr

import (
	"bytes"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

// Tracker keeps a registry of live control blocks, i.e. blocks that were created with
// WithTracker and have not been retired yet. Since cyclic ownership graphs are never
// collected, a block that stays in the registry after its owners should be gone points
// to a leak or a missing Release.
//
// A Tracker is safe for concurrent use. It is only touched on block creation and retirement,
// never on Clone, Release or Lock.
type Tracker struct {
	mu           sync.Mutex
	live         map[uuid.UUID]trackedBlock
	createdTotal uint64
	retiredTotal uint64
}

type trackedBlock struct {
	lc    *lifecycle
	block blockInspector
}

// BlockInfo describes one live control block.
type BlockInfo struct {
	ID           uuid.UUID     `json:"id"`
	Label        string        `json:"label,omitempty"`
	Type         string        `json:"type"`
	UseCount     UseCountInt64 `json:"use_count"`
	WeakUseCount UseCountInt64 `json:"weak_use_count"`
	State        string        `json:"state"`
	CreatedAt    time.Time     `json:"created_at"`
	AgeMS        float64       `json:"age_ms"`
}

// TrackerReport is the JSON document produced by ReportJSON.
type TrackerReport struct {
	LiveBlocks   int         `json:"live_blocks"`
	CreatedTotal uint64      `json:"created_total"`
	RetiredTotal uint64      `json:"retired_total"`
	Blocks       []BlockInfo `json:"blocks"`
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		live: make(map[uuid.UUID]trackedBlock),
	}
}

func (t *Tracker) register(lc *lifecycle, block blockInspector) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.live[lc.id] = trackedBlock{lc: lc, block: block}
	t.createdTotal++
}

func (t *Tracker) unregister(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.live[id]; ok {
		delete(t.live, id)
		t.retiredTotal++
	}
}

// Len returns the number of live control blocks.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.live)
}

// Snapshot returns the live control blocks, oldest first.
func (t *Tracker) Snapshot() []BlockInfo {
	t.mu.Lock()
	tracked := t.trackedLocked()
	t.mu.Unlock()

	return describe(tracked)
}

func (t *Tracker) trackedLocked() []trackedBlock {
	tracked := make([]trackedBlock, 0, len(t.live))
	for _, entry := range t.live {
		tracked = append(tracked, entry)
	}

	return tracked
}

func describe(tracked []trackedBlock) []BlockInfo {
	now := time.Now()
	infos := make([]BlockInfo, 0, len(tracked))
	for _, entry := range tracked {
		infos = append(infos, BlockInfo{
			ID:           entry.lc.id,
			Label:        entry.lc.cfg.label,
			Type:         entry.lc.typeName,
			UseCount:     entry.block.UseCount(),
			WeakUseCount: entry.block.WeakUseCount(),
			State:        entry.block.State().String(),
			CreatedAt:    entry.lc.createdAt,
			AgeMS:        toMilliseconds(now.Sub(entry.lc.createdAt)),
		})
	}

	// UUIDv7 IDs are time ordered, they break ties between blocks created within the same clock tick.
	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].CreatedAt.Before(infos[j].CreatedAt)
		}

		return bytes.Compare(infos[i].ID[:], infos[j].ID[:]) < 0
	})

	return infos
}

// Report returns the live blocks together with the creation and retirement totals.
// All three are taken at the same instant, so CreatedTotal-RetiredTotal equals LiveBlocks.
func (t *Tracker) Report() TrackerReport {
	t.mu.Lock()
	tracked := t.trackedLocked()
	createdTotal, retiredTotal := t.createdTotal, t.retiredTotal
	t.mu.Unlock()

	return TrackerReport{
		LiveBlocks:   len(tracked),
		CreatedTotal: createdTotal,
		RetiredTotal: retiredTotal,
		Blocks:       describe(tracked),
	}
}

// ReportJSON renders Report as JSON.
func (t *Tracker) ReportJSON() ([]byte, error) {
	return jsoniter.ConfigFastest.Marshal(t.Report())
}
