package cache

import (
	"sync"

	"github.com/campusboard/bulletin/internal/model"
)

// FeedSnapshot holds the sorted announcement list last read from the store,
// together with a content hash used as the feed's ETag. A generation
// counter orders loads against invalidations: a snapshot loaded before a
// mutation landed can never overwrite that mutation's invalidation.
type FeedSnapshot struct {
	mu            sync.RWMutex
	announcements []model.Announcement
	hash          string
	valid         bool
	gen           uint64
}

func NewFeedSnapshot() *FeedSnapshot {
	return &FeedSnapshot{}
}

// Get returns the cached feed, its hash, and the generation a subsequent
// Set must present.
func (f *FeedSnapshot) Get() ([]model.Announcement, string, uint64, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.announcements, f.hash, f.gen, f.valid
}

// Set installs a feed loaded while the snapshot was at generation gen. If
// an invalidation happened since, the data is stale and the call is a
// no-op.
func (f *FeedSnapshot) Set(announcements []model.Announcement, hash string, gen uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen {
		return
	}
	f.announcements = announcements
	f.hash = hash
	f.valid = true
}

// Invalidate marks the snapshot stale and starts a new generation. The next
// feed read goes to the store.
func (f *FeedSnapshot) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.valid = false
	f.gen++
}
