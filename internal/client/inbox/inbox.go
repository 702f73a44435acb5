// Package inbox turns the raw delivered sequence into a duplicate-free list of
// notifications with read/unread state.
package inbox

import (
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/webitel/admin-notify-service/internal/domain/event"
	"github.com/webitel/admin-notify-service/internal/domain/model"
)

type Record = model.ClientNotificationRecord

// IngestResult reports whether ev was seen for the first time. Record is the
// stored copy, zero when IsNew is false.
type IngestResult struct {
	IsNew  bool
	Record Record
}

// Snapshot is handed to subscribers after every mutation.
type Snapshot struct {
	Records []Record // newest first
	Unread  int
}

type Inbox struct {
	mu      sync.Mutex
	seen    *seenSet
	records []*Record // oldest first
	index   map[string]*Record
	limit   int

	subMu  sync.Mutex
	subs   map[uint64]func(Snapshot)
	nextID uint64

	duplicates atomic.Uint64
	logger     *slog.Logger
	now        func() time.Time
}

func New(cfg Config, opts ...Option) *Inbox {
	cfg = cfg.withDefaults()
	b := &Inbox{
		index:  make(map[string]*Record),
		limit:  cfg.HistoryLimit,
		subs:   make(map[uint64]func(Snapshot)),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.seen = newSeenSet(cfg, b.now)
	return b
}

// Ingest records ev unless its id was already seen. A duplicate changes nothing.
func (b *Inbox) Ingest(ev *event.Notification) IngestResult {
	if ev == nil || ev.ID == "" || !ev.Kind.IsNotification() {
		return IngestResult{}
	}

	b.mu.Lock()
	if !b.seen.add(ev.ID) {
		b.mu.Unlock()
		b.duplicates.Add(1)
		b.logger.Debug("[INBOX] duplicate suppressed", slog.String("id", ev.ID))
		return IngestResult{}
	}

	rec := &Record{Event: ev, ReceivedAt: b.now()}
	b.records = append(b.records, rec)
	b.index[ev.ID] = rec
	b.trim()
	out := *rec
	snap := b.snapshot()
	b.mu.Unlock()

	b.publish(snap)
	return IngestResult{IsNew: true, Record: out}
}

// trim drops the oldest records past the history limit. Their ids stay in the
// seen set, so a late redelivery is still a duplicate.
func (b *Inbox) trim() {
	over := len(b.records) - b.limit
	if over <= 0 {
		return
	}
	for _, rec := range b.records[:over] {
		delete(b.index, rec.Event.ID)
	}
	b.records = slices.Delete(b.records, 0, over)
}

// Acknowledge marks id as shown/sounded. It reports true only on the first call.
func (b *Inbox) Acknowledge(id string) bool {
	return b.mutate(id, func(r *Record) bool {
		if r.Acknowledged {
			return false
		}
		r.Acknowledged = true
		return true
	})
}

// MarkRead clears the unread flag of id.
func (b *Inbox) MarkRead(id string) bool {
	return b.mutate(id, func(r *Record) bool {
		if r.Read {
			return false
		}
		r.Read = true
		return true
	})
}

// MarkAllRead returns how many records changed.
func (b *Inbox) MarkAllRead() int {
	b.mu.Lock()
	n := 0
	for _, r := range b.records {
		if !r.Read {
			r.Read = true
			n++
		}
	}
	var snap Snapshot
	if n > 0 {
		snap = b.snapshot()
	}
	b.mu.Unlock()

	if n > 0 {
		b.publish(snap)
	}
	return n
}

func (b *Inbox) mutate(id string, fn func(*Record) bool) bool {
	b.mu.Lock()
	rec, ok := b.index[id]
	if !ok || !fn(rec) {
		b.mu.Unlock()
		return false
	}
	snap := b.snapshot()
	b.mu.Unlock()

	b.publish(snap)
	return true
}

func (b *Inbox) Unread() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.unread()
}

func (b *Inbox) unread() int {
	n := 0
	for _, r := range b.records {
		if !r.Read {
			n++
		}
	}
	return n
}

// Records returns copies, newest first.
func (b *Inbox) Records() []Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.copyRecords()
}

func (b *Inbox) copyRecords() []Record {
	out := make([]Record, len(b.records))
	for i, r := range b.records {
		out[len(out)-1-i] = *r
	}
	return out
}

// Duplicates counts suppressed redeliveries.
func (b *Inbox) Duplicates() uint64 { return b.duplicates.Load() }

// Seen reports whether id is still remembered.
func (b *Inbox) Seen(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seen.contains(id)
}

func (b *Inbox) snapshot() Snapshot {
	return Snapshot{Records: b.copyRecords(), Unread: b.unread()}
}

// Subscribe calls fn after every mutation until the returned cancel is called.
// fn runs on the mutating goroutine and must not call back into Subscribe.
func (b *Inbox) Subscribe(fn func(Snapshot)) (cancel func()) {
	b.subMu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.subMu.Lock()
			delete(b.subs, id)
			b.subMu.Unlock()
		})
	}
}

func (b *Inbox) publish(snap Snapshot) {
	b.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
