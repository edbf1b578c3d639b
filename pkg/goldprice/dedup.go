package goldprice

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	DefaultDedupWindow   = 5 * time.Minute
	DefaultDedupCapacity = 256
)

// DeferredClassifier classifies without remembering what it returned until
// Remember is called. Callers that persist records use it so a failed write
// does not suppress the same records on retry.
type DeferredClassifier interface {
	Classifier
	Peek(oldSet, newSet PriceSet, source string, at time.Time) []ChangeRecord
	Remember(records []ChangeRecord)
}

// DedupClassifier wraps a Classifier and drops records whose
// (purity, oldPrice, newPrice, source) key was already emitted with a
// ChangeDate less than window apart. The set of remembered keys is bounded
// by capacity.
type DedupClassifier struct {
	next     Classifier
	window   time.Duration
	capacity int

	mu sync.Mutex
	// key -> ChangeDate of the last emitted record
	seen *cache.Cache
}

var _ DeferredClassifier = (*DedupClassifier)(nil)

// NewDedupClassifier decorates next. Non-positive window or capacity use the defaults.
func NewDedupClassifier(next Classifier, window time.Duration, capacity int) *DedupClassifier {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	if capacity <= 0 {
		capacity = DefaultDedupCapacity
	}
	return &DedupClassifier{
		next:     next,
		window:   window,
		capacity: capacity,
		seen:     cache.New(cache.NoExpiration, 0),
	}
}

// ClassifyAll returns only the records not seen within the window and remembers them.
func (d *DedupClassifier) ClassifyAll(oldSet, newSet PriceSet, source string, at time.Time) []ChangeRecord {
	records := d.next.ClassifyAll(oldSet, newSet, source, at)
	fresh := records[:0]
	for _, rec := range records {
		if d.Seen(rec) {
			continue
		}
		fresh = append(fresh, rec)
	}
	return fresh
}

// Peek is ClassifyAll without remembering the returned records.
func (d *DedupClassifier) Peek(oldSet, newSet PriceSet, source string, at time.Time) []ChangeRecord {
	records := d.next.ClassifyAll(oldSet, newSet, source, at)

	d.mu.Lock()
	defer d.mu.Unlock()

	fresh := records[:0]
	for _, rec := range records {
		if !d.duplicate(rec) {
			fresh = append(fresh, rec)
		}
	}
	return fresh
}

// Remember marks records as emitted.
func (d *DedupClassifier) Remember(records []ChangeRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, rec := range records {
		d.remember(rec)
	}
}

// Seen reports whether rec is a duplicate and remembers it otherwise.
func (d *DedupClassifier) Seen(rec ChangeRecord) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.duplicate(rec) {
		return true
	}
	d.remember(rec)
	return false
}

// Len returns the number of remembered keys.
func (d *DedupClassifier) Len() int {
	return d.seen.ItemCount()
}

// duplicate reports whether rec's key was emitted less than window away
// from rec.ChangeDate, in either direction. Caller holds mu.
func (d *DedupClassifier) duplicate(rec ChangeRecord) bool {
	v, found := d.seen.Get(dedupKey(rec))
	if !found {
		return false
	}
	gap := rec.ChangeDate.Sub(v.(time.Time))
	if gap < 0 {
		gap = -gap
	}
	return gap < d.window
}

// remember stores rec's ChangeDate under its key. Caller holds mu.
func (d *DedupClassifier) remember(rec ChangeRecord) {
	key := dedupKey(rec)
	if _, found := d.seen.Get(key); !found && d.seen.ItemCount() >= d.capacity {
		d.pruneBefore(rec.ChangeDate.Add(-d.window))
		if d.seen.ItemCount() >= d.capacity {
			d.evictOldest()
		}
	}
	d.seen.Set(key, rec.ChangeDate, cache.NoExpiration)
}

// pruneBefore drops keys last emitted before cutoff. Caller holds mu.
func (d *DedupClassifier) pruneBefore(cutoff time.Time) {
	for k, item := range d.seen.Items() {
		if item.Object.(time.Time).Before(cutoff) {
			d.seen.Delete(k)
		}
	}
}

// evictOldest drops the key with the earliest ChangeDate. Caller holds mu.
func (d *DedupClassifier) evictOldest() {
	var (
		oldestKey string
		oldestAt  time.Time
	)
	for k, item := range d.seen.Items() {
		at := item.Object.(time.Time)
		if oldestKey == "" || at.Before(oldestAt) {
			oldestKey, oldestAt = k, at
		}
	}
	if oldestKey != "" {
		d.seen.Delete(oldestKey)
	}
}

func dedupKey(rec ChangeRecord) string {
	return strings.Join([]string{
		string(rec.Purity),
		strconv.FormatInt(rec.OldPrice, 10),
		strconv.FormatInt(rec.NewPrice, 10),
		rec.ChangeSource,
	}, "|")
}
