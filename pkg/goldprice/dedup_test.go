package goldprice

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupClassifier_SuppressesRepeats(t *testing.T) {
	d := NewDedupClassifier(NewClassifier(), time.Hour, 16)
	oldSet := PriceSet{2500000, 2291750, 1875000}
	newSet := PriceSet{2600000, 2383420, 1950000}

	first := d.ClassifyAll(oldSet, newSet, "MANUAL", at)
	require.Len(t, first, 3)

	again := d.ClassifyAll(oldSet, newSet, "MANUAL", at.Add(time.Minute))
	assert.Empty(t, again)

	otherSource := d.ClassifyAll(oldSet, newSet, "EXTERNAL_API", at)
	assert.Len(t, otherSource, 3)
}

func TestDedupClassifier_PartialDuplicate(t *testing.T) {
	d := NewDedupClassifier(NewClassifier(), time.Hour, 16)
	d.ClassifyAll(PriceSet{Price24K: 100}, PriceSet{Price24K: 150}, "MANUAL", at)

	records := d.ClassifyAll(
		PriceSet{Price24K: 100, Price18K: 75},
		PriceSet{Price24K: 150, Price18K: 90},
		"MANUAL", at,
	)
	require.Len(t, records, 1)
	assert.Equal(t, Purity18K, records[0].Purity)
}

func TestDedupClassifier_WindowFollowsChangeDate(t *testing.T) {
	d := NewDedupClassifier(NewClassifier(), 5*time.Minute, 16)
	rec := func(when time.Time) ChangeRecord {
		return Classify(Purity24K, 100, 150, "MANUAL", when)
	}

	assert.False(t, d.Seen(rec(at)))

	tests := []struct {
		name string
		when time.Time
		dup  bool
	}{
		{"same instant", at, true},
		{"inside window", at.Add(4*time.Minute + 59*time.Second), true},
		{"back-dated inside window", at.Add(-2 * time.Minute), true},
		{"back-dated outside window", at.Add(-10 * time.Minute), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDedupClassifier(NewClassifier(), 5*time.Minute, 16)
			require.False(t, d.Seen(rec(at)))
			assert.Equal(t, tt.dup, d.Seen(rec(tt.when)))
		})
	}

	// the window is measured between ChangeDates, not on the wall clock
	assert.False(t, d.Seen(rec(at.Add(5*time.Minute))))
	assert.True(t, d.Seen(rec(at.Add(6*time.Minute))))
}

func TestDedupClassifier_PeekDoesNotRemember(t *testing.T) {
	d := NewDedupClassifier(NewClassifier(), time.Hour, 16)
	oldSet := PriceSet{2500000, 2291750, 1875000}
	newSet := PriceSet{2600000, 2383420, 1950000}

	pending := d.Peek(oldSet, newSet, "MANUAL", at)
	require.Len(t, pending, 3)
	assert.Zero(t, d.Len())

	// a failed write never calls Remember, so the retry sees the same records
	retry := d.Peek(oldSet, newSet, "MANUAL", at)
	require.Len(t, retry, 3)

	d.Remember(retry)
	assert.Equal(t, 3, d.Len())
	assert.Empty(t, d.Peek(oldSet, newSet, "MANUAL", at.Add(time.Minute)))
}

func TestDedupClassifier_Capacity(t *testing.T) {
	d := NewDedupClassifier(NewClassifier(), time.Hour, 2)

	first := Classify(Purity24K, 100, 150, "MANUAL", at)
	assert.False(t, d.Seen(first))
	assert.False(t, d.Seen(Classify(Purity24K, 150, 200, "MANUAL", at.Add(time.Second))))
	assert.False(t, d.Seen(Classify(Purity24K, 200, 250, "MANUAL", at.Add(2*time.Second))))

	assert.Equal(t, 2, d.Len())
	// the key with the earliest ChangeDate was evicted to make room
	assert.False(t, d.Seen(first))
}

func TestDedupClassifier_CapacityPrunesStaleKeys(t *testing.T) {
	d := NewDedupClassifier(NewClassifier(), time.Minute, 2)

	assert.False(t, d.Seen(Classify(Purity24K, 100, 150, "MANUAL", at)))
	assert.False(t, d.Seen(Classify(Purity22K, 100, 150, "MANUAL", at)))

	later := at.Add(time.Hour)
	assert.False(t, d.Seen(Classify(Purity18K, 100, 150, "MANUAL", later)))
	assert.Equal(t, 1, d.Len())
}

func TestDedupClassifier_Defaults(t *testing.T) {
	d := NewDedupClassifier(NewClassifier(), 0, 0)
	assert.Equal(t, DefaultDedupWindow, d.window)
	assert.Equal(t, DefaultDedupCapacity, d.capacity)
}

func TestDedupClassifier_Concurrent(t *testing.T) {
	d := NewDedupClassifier(NewClassifier(), time.Hour, 64)
	rec := Classify(Purity22K, 100, 150, "MANUAL", at)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		fresh int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !d.Seen(rec) {
				mu.Lock()
				fresh++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, fresh)
}
