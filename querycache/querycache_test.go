package querycache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/quarterdeck-gg/console/utils"
)

var testKey = Key{Resource: "widgets", Op: "list"}

func TestReadUnknownKey(t *testing.T) {
	store := NewStore[map[string]int](nil)

	got := Result[map[string]int]{}
	want := store.Read(Key{Resource: "nothing", Op: "here"})

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("expected zero result for unknown key, diff: %s", diff)
	}
}

func TestFetchReplacesWholesale(t *testing.T) {
	store := NewStore[map[string]int](nil)

	responses := []map[string]int{
		{"a": 1, "b": 2},
		{"c": 3},
	}
	var call int32
	store.Register(testKey, func(ctx context.Context) (map[string]int, error) {
		n := atomic.AddInt32(&call, 1)
		return responses[n-1], nil
	})

	for i, want := range responses {
		if err := store.Fetch(context.Background(), testKey); err != nil {
			t.Fatalf("fetch %d: did not expect an error, got %s", i, err)
		}

		result := store.Read(testKey)
		if !result.Ok {
			t.Fatalf("fetch %d: expected Ok after successful fetch", i)
		}
		if diff := cmp.Diff(want, result.Data); diff != "" {
			t.Errorf("fetch %d: cache should hold exactly the latest mapping, diff: %s", i, diff)
		}
	}
}

func TestFetchDeduplicatesConcurrentCalls(t *testing.T) {
	store := NewStore[map[string]int](nil)

	var calls int32
	release := make(chan struct{})
	store.Register(testKey, func(ctx context.Context) (map[string]int, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return map[string]int{"a": 1}, nil
	})

	const concurrency = 8
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.Fetch(context.Background(), testKey); err != nil {
				t.Errorf("did not expect an error, got %s", err)
			}
		}()
	}

	// Give every goroutine a chance to reach the in-flight fetch before
	// releasing it.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected exactly 1 network call for %d concurrent fetches, got %d", concurrency, got)
	}
}

func TestFetchGatedOnReadiness(t *testing.T) {
	var ready int32

	store := NewStore[map[string]int](func() bool {
		return atomic.LoadInt32(&ready) == 1
	})

	var calls int32
	store.Register(testKey, func(ctx context.Context) (map[string]int, error) {
		atomic.AddInt32(&calls, 1)
		return map[string]int{"a": 1}, nil
	})

	// Several consumers are already subscribed before the gate opens.
	for i := 0; i < 3; i++ {
		defer store.Subscribe(testKey).Close()
	}

	if err := store.Fetch(context.Background(), testKey); err != ErrNotReady {
		t.Fatalf("expected ErrNotReady while gate is closed, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Fatalf("expected no network call while gate is closed, got %d", got)
	}

	// The gate opens: exactly one fetch happens regardless of subscriber
	// count.
	atomic.StoreInt32(&ready, 1)
	if err := store.Fetch(context.Background(), testKey); err != nil {
		t.Fatalf("did not expect an error, got %s", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected exactly 1 network call after gate opened, got %d", got)
	}
}

func TestFetchUnknownKey(t *testing.T) {
	store := NewStore[map[string]int](nil)

	if err := store.Fetch(context.Background(), testKey); err != ErrUnknownKey {
		t.Errorf("expected ErrUnknownKey for unregistered key, got %v", err)
	}
}

func TestFailedFetchKeepsPreviousData(t *testing.T) {
	store := NewStore[map[string]int](nil)

	fetchErr := utils.MakeError("backend returned status 500")
	var call int32
	store.Register(testKey, func(ctx context.Context) (map[string]int, error) {
		if atomic.AddInt32(&call, 1) == 1 {
			return map[string]int{"a": 1}, nil
		}
		return nil, fetchErr
	})

	if err := store.Fetch(context.Background(), testKey); err != nil {
		t.Fatalf("did not expect an error, got %s", err)
	}
	if err := store.Fetch(context.Background(), testKey); err != fetchErr {
		t.Fatalf("expected the fetch error to propagate, got %v", err)
	}

	result := store.Read(testKey)
	if result.Err != fetchErr {
		t.Errorf("expected error recorded on entry, got %v", result.Err)
	}
	if !result.Ok {
		t.Errorf("expected previous data to remain present after failed fetch")
	}
	if diff := cmp.Diff(map[string]int{"a": 1}, result.Data); diff != "" {
		t.Errorf("previous mapping should be retained unchanged, diff: %s", diff)
	}
}

func TestSuccessfulFetchClearsError(t *testing.T) {
	store := NewStore[map[string]int](nil)

	var call int32
	store.Register(testKey, func(ctx context.Context) (map[string]int, error) {
		if atomic.AddInt32(&call, 1) == 1 {
			return nil, utils.MakeError("transient failure")
		}
		return map[string]int{"a": 1}, nil
	})

	store.Fetch(context.Background(), testKey)
	if err := store.Fetch(context.Background(), testKey); err != nil {
		t.Fatalf("did not expect an error, got %s", err)
	}

	result := store.Read(testKey)
	if result.Err != nil {
		t.Errorf("expected error cleared by successful fetch, got %v", result.Err)
	}
}

func TestErrorsAreLocalToKey(t *testing.T) {
	store := NewStore[map[string]int](nil)

	otherKey := Key{Resource: "widgets", Op: "archived"}
	store.Register(testKey, func(ctx context.Context) (map[string]int, error) {
		return nil, utils.MakeError("boom")
	})
	store.Register(otherKey, func(ctx context.Context) (map[string]int, error) {
		return map[string]int{"x": 9}, nil
	})

	store.Fetch(context.Background(), testKey)
	if err := store.Fetch(context.Background(), otherKey); err != nil {
		t.Fatalf("did not expect an error, got %s", err)
	}

	if result := store.Read(otherKey); result.Err != nil || !result.Ok {
		t.Errorf("failure on one key must not leak into another, got %+v", result)
	}
}

func TestMutateIsNoopBeforeFirstFetch(t *testing.T) {
	store := NewStore[map[string]int](nil)

	store.Mutate(testKey, func(m map[string]int) map[string]int {
		return map[string]int{"should": 1}
	})

	if result := store.Read(testKey); result.Ok {
		t.Errorf("mutate on an unfetched key should be a no-op, got %+v", result)
	}
}

func TestMutateNotifiesSubscribers(t *testing.T) {
	store := NewStore[map[string]int](nil)
	store.Register(testKey, func(ctx context.Context) (map[string]int, error) {
		return map[string]int{"a": 1}, nil
	})
	if err := store.Fetch(context.Background(), testKey); err != nil {
		t.Fatalf("did not expect an error, got %s", err)
	}

	sub := store.Subscribe(testKey)
	defer sub.Close()

	// First snapshot arrives immediately on subscribe.
	initial := <-sub.C
	if diff := cmp.Diff(map[string]int{"a": 1}, initial.Data); diff != "" {
		t.Fatalf("initial snapshot mismatch, diff: %s", diff)
	}

	store.Mutate(testKey, func(m map[string]int) map[string]int {
		next := map[string]int{}
		for k, v := range m {
			next[k] = v
		}
		next["b"] = 2
		return next
	})

	select {
	case patched := <-sub.C:
		if diff := cmp.Diff(map[string]int{"a": 1, "b": 2}, patched.Data); diff != "" {
			t.Errorf("patched snapshot mismatch, diff: %s", diff)
		}
	case <-time.After(time.Second):
		t.Errorf("expected a snapshot after mutate, got none")
	}
}

func TestSubscribersObserveLoadingFlag(t *testing.T) {
	store := NewStore[map[string]int](nil)

	release := make(chan struct{})
	store.Register(testKey, func(ctx context.Context) (map[string]int, error) {
		<-release
		return map[string]int{"a": 1}, nil
	})

	sub := store.Subscribe(testKey)
	defer sub.Close()
	<-sub.C // initial empty snapshot

	done := make(chan error, 1)
	go func() { done <- store.Fetch(context.Background(), testKey) }()

	select {
	case loading := <-sub.C:
		if !loading.Loading {
			t.Errorf("expected Loading=true while fetch is in flight, got %+v", loading)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected a loading snapshot, got none")
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("did not expect an error, got %s", err)
	}

	select {
	case final := <-sub.C:
		if final.Loading || !final.Ok {
			t.Errorf("expected settled snapshot after fetch, got %+v", final)
		}
	case <-time.After(time.Second):
		t.Errorf("expected a final snapshot, got none")
	}
}

func TestClosedSubscriptionStopsReceiving(t *testing.T) {
	store := NewStore[map[string]int](nil)
	store.Register(testKey, func(ctx context.Context) (map[string]int, error) {
		return map[string]int{"a": 1}, nil
	})

	sub := store.Subscribe(testKey)
	<-sub.C
	sub.Close()

	if err := store.Fetch(context.Background(), testKey); err != nil {
		t.Fatalf("did not expect an error, got %s", err)
	}

	// The fetch still completed and updated the shared entry even though
	// the subscriber went away.
	if result := store.Read(testKey); !result.Ok {
		t.Errorf("expected fetch to update entry after subscription teardown, got %+v", result)
	}

	select {
	case snap, ok := <-sub.C:
		if ok {
			t.Errorf("expected no snapshots after Close, got %+v", snap)
		}
	default:
	}
}

func TestKeyStringDisambiguatesParts(t *testing.T) {
	// Keys whose naive concatenation would collide must still map to
	// distinct singleflight groups.
	a := Key{Resource: "a/b", Op: "c"}
	b := Key{Resource: "a", Op: "b/c"}

	if a.String() == b.String() {
		t.Errorf("distinct keys share the string form %q", a.String())
	}
}

// TestConcurrentMutatesDeliverNewestLast hammers one key from several
// goroutines and checks a subscriber ends up settled on the final state:
// snapshots must be delivered in the order the mutations were applied.
func TestConcurrentMutatesDeliverNewestLast(t *testing.T) {
	store := NewStore[map[string]int](nil)
	store.Register(testKey, func(ctx context.Context) (map[string]int, error) {
		return map[string]int{"n": 0}, nil
	})
	if err := store.Fetch(context.Background(), testKey); err != nil {
		t.Fatalf("did not expect an error, got %s", err)
	}

	sub := store.Subscribe(testKey)
	defer sub.Close()
	<-sub.C // initial snapshot

	const workers = 4
	const perWorker = 250
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				store.Mutate(testKey, func(m map[string]int) map[string]int {
					return map[string]int{"n": m["n"] + 1}
				})
			}
		}()
	}
	wg.Wait()

	// All mutations are done; the last queued snapshot must be the final
	// state, not an older one that overtook it.
	var last Result[map[string]int]
	received := false
	for {
		select {
		case last = <-sub.C:
			received = true
			continue
		default:
		}
		break
	}

	if !received {
		t.Fatalf("expected at least one snapshot after %d mutations", workers*perWorker)
	}
	if diff := cmp.Diff(map[string]int{"n": workers * perWorker}, last.Data); diff != "" {
		t.Errorf("last delivered snapshot is not the newest state, diff: %s", diff)
	}
}

func TestKeysListsRegisteredKeys(t *testing.T) {
	store := NewStore[map[string]int](nil)

	otherKey := Key{Resource: "widgets", Op: "archived"}
	store.Register(testKey, func(ctx context.Context) (map[string]int, error) { return nil, nil })
	store.Register(otherKey, func(ctx context.Context) (map[string]int, error) { return nil, nil })

	// Subscribing creates an entry but must not make the key fetchable.
	defer store.Subscribe(Key{Resource: "widgets", Op: "trash"}).Close()

	keys := store.Keys()
	if len(keys) != 2 {
		t.Fatalf("expected 2 registered keys, got %d: %v", len(keys), keys)
	}
	for _, k := range keys {
		if k != testKey && k != otherKey {
			t.Errorf("unexpected key %v", k)
		}
	}
}
