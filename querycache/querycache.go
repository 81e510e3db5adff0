/*
Package querycache provides the console service's single source of truth for
backend-fetched collections. Each collection is addressed by a stable Key and
held in a process-wide Store shared by arbitrarily many concurrent consumers.

The Store guarantees three things the naive fetch-per-consumer approach does
not:

  - at most one network call is in flight per key at any time, no matter how
    many consumers trigger a fetch concurrently (deduplication);
  - a failed fetch records its error but never clears previously fetched
    data (stale-while-error);
  - local patches via Mutate are applied synchronously and fan out to every
    subscriber, with no network round trip.

Fetches are also gated on the backend connection: while the readiness
function reports false, Fetch refuses to issue any network call.
*/
package querycache // import "github.com/quarterdeck-gg/console/querycache"

import (
	"context"
	"errors"
	"sync"

	"github.com/quarterdeck-gg/console/utils"
	"golang.org/x/sync/singleflight"
)

// ErrNotReady is returned by Fetch while the backend connection is not
// established. The caller is expected to retry once the readiness signal
// flips, typically from the service's event loop.
var ErrNotReady = errors.New("backend connection not ready")

// ErrUnknownKey is returned by Fetch for a key that has no registered fetch
// function.
var ErrUnknownKey = errors.New("no fetch function registered for key")

// A Key addresses one cached query result. It is composite so that multiple
// operations over the same resource can be cached independently.
type Key struct {
	Resource string
	Op       string
}

// String returns the canonical form of the key, also used to deduplicate
// in-flight fetches. Both parts are quoted so no two distinct keys can
// produce the same string.
func (k Key) String() string {
	return utils.Sprintf("%q/%q", k.Resource, k.Op)
}

// A FetchFunc performs the network round trip for one key and returns the
// materialized value. It must not touch the cache itself; the Store applies
// the result.
type FetchFunc[V any] func(ctx context.Context) (V, error)

// A Result is the snapshot a consumer observes for one key. Absence of data
// is represented by Ok=false, never by an error.
type Result[V any] struct {
	// Data is the cached value from the most recent successful fetch, or the
	// zero value if Ok is false.
	Data V
	// Ok reports whether a successful fetch has populated Data yet.
	Ok bool
	// Loading reports whether a fetch is currently in flight for this key.
	Loading bool
	// Err holds the error from the most recent fetch if it failed, and is
	// cleared by the next successful fetch. Data is retained alongside Err.
	Err error
}

// entry is the cache slot for a single key. Entries are created lazily and
// live for the lifetime of the process.
type entry[V any] struct {
	fetch   FetchFunc[V]
	data    V
	ok      bool
	loading bool
	err     error

	subs      map[int]chan Result[V]
	nextSubID int
}

func (e *entry[V]) snapshot() Result[V] {
	return Result[V]{Data: e.data, Ok: e.ok, Loading: e.loading, Err: e.err}
}

// A Store is a process-wide registry of cache entries for values of type V.
// All methods are safe for concurrent use.
type Store[V any] struct {
	ready func() bool

	mu      sync.Mutex
	entries map[Key]*entry[V]
	group   singleflight.Group
}

// NewStore creates an empty Store gated on the given readiness function. A
// nil ready function means the store is always ready.
func NewStore[V any](ready func() bool) *Store[V] {
	if ready == nil {
		ready = func() bool { return true }
	}
	return &Store[V]{
		ready:   ready,
		entries: make(map[Key]*entry[V]),
	}
}

// entryLocked returns the entry for key, creating it if necessary. The
// caller must hold s.mu.
func (s *Store[V]) entryLocked(key Key) *entry[V] {
	e, ok := s.entries[key]
	if !ok {
		e = &entry[V]{subs: make(map[int]chan Result[V])}
		s.entries[key] = e
	}
	return e
}

// Register binds a fetch function to a key. Registering a key twice replaces
// its fetch function but leaves any cached data in place.
func (s *Store[V]) Register(key Key, fetch FetchFunc[V]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entryLocked(key).fetch = fetch
}

// Keys returns all keys that have a registered fetch function. The event
// loop uses this to refresh every collection when the backend connection
// (re)establishes.
func (s *Store[V]) Keys() []Key {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []Key
	for k, e := range s.entries {
		if e.fetch != nil {
			keys = append(keys, k)
		}
	}
	return keys
}

// Read returns the current snapshot for key without side effects. Reading a
// key that has never been fetched returns a zero Result, not an error.
func (s *Store[V]) Read(key Key) Result[V] {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return Result[V]{}
	}
	return e.snapshot()
}

// A Subscription delivers Result snapshots for one key. The first snapshot
// is delivered immediately on subscribe; one more arrives after every state
// change. Closing the subscription only tears down notification: in-flight
// fetches still complete and update the shared entry.
type Subscription[V any] struct {
	// C receives a snapshot after every state change of the subscribed key.
	C <-chan Result[V]

	store *Store[V]
	key   Key
	id    int
}

// Subscribe registers a consumer for key and returns its subscription. The
// channel is buffered; a consumer that falls far enough behind misses
// intermediate snapshots but always receives the latest one eventually.
func (s *Store[V]) Subscribe(key Key) *Subscription[V] {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entryLocked(key)
	ch := make(chan Result[V], 16)
	id := e.nextSubID
	e.nextSubID++
	e.subs[id] = ch

	// Deliver the current snapshot so the consumer can render immediately.
	ch <- e.snapshot()

	return &Subscription[V]{C: ch, store: s, key: key, id: id}
}

// Close tears down the subscription. It is safe to call more than once. The
// channel is left open (and unreferenced) rather than closed, so a
// notification racing with Close can never panic on a closed channel.
func (sub *Subscription[V]) Close() {
	sub.store.mu.Lock()
	defer sub.store.mu.Unlock()

	if e, ok := sub.store.entries[sub.key]; ok {
		delete(e.subs, sub.id)
	}
}

// Fetch triggers the fetch function for key unless one is already in flight,
// in which case the caller shares the result of the in-flight call. While
// the readiness gate reports false no network call is made and ErrNotReady
// is returned.
//
// On success the cached value is replaced wholesale and the error field is
// cleared. On failure the error is recorded and previously fetched data is
// left untouched.
func (s *Store[V]) Fetch(ctx context.Context, key Key) error {
	if !s.ready() {
		return ErrNotReady
	}

	s.mu.Lock()
	e, ok := s.entries[key]
	if !ok || e.fetch == nil {
		s.mu.Unlock()
		return ErrUnknownKey
	}
	fetch := e.fetch
	s.mu.Unlock()

	_, err, _ := s.group.Do(key.String(), func() (interface{}, error) {
		s.setLoading(key, true)

		data, err := fetch(ctx)

		s.mu.Lock()
		e := s.entryLocked(key)
		e.loading = false
		if err != nil {
			e.err = err
		} else {
			e.data = data
			e.ok = true
			e.err = nil
		}
		notify(subscriberChans(e), e.snapshot())
		s.mu.Unlock()

		return nil, err
	})
	return err
}

// Mutate applies updater synchronously to the cached value for key and
// notifies subscribers. It makes no network call: it exists to keep the
// local cache consistent once the caller already knows the remote side
// effect happened (a push event, or a request it made itself). Mutating a
// key with no fetched data yet is a no-op.
func (s *Store[V]) Mutate(key Key, updater func(V) V) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !e.ok {
		return
	}
	e.data = updater(e.data)
	notify(subscriberChans(e), e.snapshot())
}

// setLoading flips the loading flag for key and notifies subscribers, so
// consumers can observe the in-flight fetch instead of triggering their own.
func (s *Store[V]) setLoading(key Key, loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entryLocked(key)
	e.loading = loading
	notify(subscriberChans(e), e.snapshot())
}

// subscriberChans snapshots the subscriber channels for notification. The
// caller must hold s.mu.
func subscriberChans[V any](e *entry[V]) []chan Result[V] {
	chans := make([]chan Result[V], 0, len(e.subs))
	for _, ch := range e.subs {
		chans = append(chans, ch)
	}
	return chans
}

// notify fans a snapshot out to subscribers. It is called with s.mu held so
// snapshots reach every subscriber in state order; holding the lock is safe
// because sends never block. If a subscriber's buffer is full, the oldest
// queued snapshot is dropped in its favor, so a slow consumer always
// converges on the latest state.
func notify[V any](subs []chan Result[V], snap Result[V]) {
	for _, ch := range subs {
		select {
		case ch <- snap:
			continue
		default:
		}

		// Buffer full: drop the oldest snapshot and try once more.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
