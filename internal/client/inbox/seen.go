package inbox

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// seenSet remembers ids by first-seen time. It is bounded by count and age,
// except that ids inside the protected window are never evicted: the set grows
// instead. Not safe for concurrent use.
type seenSet struct {
	lru       *simplelru.LRU[string, time.Time]
	capacity  int
	base      int
	maxAge    time.Duration
	protected time.Duration
	now       func() time.Time
}

func newSeenSet(cfg Config, now func() time.Time) *seenSet {
	lru, _ := simplelru.NewLRU[string, time.Time](cfg.Capacity, nil)
	maxAge := cfg.MaxAge
	protected := cfg.ProtectedWindow()
	if maxAge < protected {
		maxAge = protected
	}
	return &seenSet{
		lru:       lru,
		capacity:  cfg.Capacity,
		base:      cfg.Capacity,
		maxAge:    maxAge,
		protected: protected,
		now:       now,
	}
}

// add reports false when id is already present. Lookups do not refresh
// recency: an id ages from the moment it was first seen.
func (s *seenSet) add(id string) bool {
	if s.lru.Contains(id) {
		return false
	}

	now := s.now()
	s.expire(now)

	if s.lru.Len() >= s.capacity {
		if _, firstSeen, ok := s.lru.GetOldest(); ok && now.Sub(firstSeen) < s.protected {
			s.capacity *= 2
			s.lru.Resize(s.capacity)
		}
	}
	s.lru.Add(id, now)
	return true
}

// expire drops ids past maxAge and shrinks a grown set back once it fits.
func (s *seenSet) expire(now time.Time) {
	for {
		_, firstSeen, ok := s.lru.GetOldest()
		if !ok || now.Sub(firstSeen) < s.maxAge {
			break
		}
		s.lru.RemoveOldest()
	}
	for s.capacity > s.base && s.lru.Len() < s.capacity/4 {
		s.capacity /= 2
		s.lru.Resize(s.capacity)
	}
}

func (s *seenSet) contains(id string) bool { return s.lru.Contains(id) }

func (s *seenSet) len() int { return s.lru.Len() }
