package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/quarterdeck-gg/console/apiclient"
	"github.com/quarterdeck-gg/console/config"
	"github.com/quarterdeck-gg/console/events"
	"github.com/quarterdeck-gg/console/instances"
	logger "github.com/quarterdeck-gg/console/qdlogger"
	"github.com/quarterdeck-gg/console/querycache"
	"github.com/quarterdeck-gg/console/utils"
)

func main() {
	// The logger initializes itself (including Sentry and Logz.io outside
	// local development), so errors from here on are captured.
	defer logger.Close()

	if err := config.Initialize(); err != nil {
		logger.Panicf(nil, "Failed to load configuration: %s", err)
	}

	globalCtx, globalCancel := context.WithCancel(context.Background())
	goroutineTracker := &sync.WaitGroup{}

	// Successful config reloads are announced on this channel so the poll
	// scheduler can re-resolve its interval; the access token is re-read on
	// every request via the getter handed to the client below.
	configReloadCh := make(chan struct{}, 1)
	config.WatchForChanges(globalCtx, goroutineTracker, configReloadCh)

	client := apiclient.New(config.GetBackendURL(), config.GetAccessToken)

	// The event-stream monitor doubles as the readiness gate: no fetch is
	// issued until it reports the backend connection established.
	monitor, err := events.NewMonitor(config.GetBackendURL())
	if err != nil {
		logger.Panicf(globalCancel, "Failed to create event stream monitor: %s", err)
	}

	instanceStore := querycache.NewStore[instances.Mapping](monitor.Ready)
	instanceStore.Register(instances.ListKey, client.InstanceList)

	statsStore := querycache.NewStore[apiclient.SystemStats](monitor.Ready)
	statsStore.Register(apiclient.SystemStatsKey, client.SystemStats)

	eventCh := make(chan events.Event, 100)
	readyCh := make(chan bool, 2)
	monitor.Run(globalCtx, goroutineTracker, eventCh, readyCh)

	// Scheduled refresh: the dashboard polls, so re-fetch every collection
	// periodically on top of event-driven patches.
	refreshCh := make(chan struct{}, 1)
	StartScheduledRefresh(globalCtx, goroutineTracker, refreshCh, configReloadCh)

	go eventLoop(globalCtx, goroutineTracker, instanceStore, statsStore, eventCh, readyCh, refreshCh)

	// Register a signal handler for Ctrl-C so that we clean up gracefully.
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Wait for either the global context to get cancelled by a worker
	// goroutine, or for us to receive an interrupt. This needs to be the end
	// of main().
	select {
	case <-sigChan:
		logger.Infof("Got an interrupt or SIGTERM")
	case <-globalCtx.Done():
		logger.Infof("Global context cancelled!")
	}

	globalCancel()
	goroutineTracker.Wait()
}

// StartScheduledRefresh schedules a periodic poke of the refresh channel at
// the configured poll interval. The send is non-blocking: if a refresh is
// already pending, another one would be redundant. When a config reload is
// announced on reloadCh, the interval is re-resolved and the job rescheduled
// so a reloaded poll period actually takes effect.
func StartScheduledRefresh(globalCtx context.Context, goroutineTracker *sync.WaitGroup, refreshCh chan<- struct{}, reloadCh <-chan struct{}) {
	s := gocron.NewScheduler(time.UTC)

	poke := func() {
		select {
		case refreshCh <- struct{}{}:
		default:
		}
	}

	interval := config.GetPollInterval()
	s.Every(interval).Do(poke)
	s.StartAsync()

	goroutineTracker.Add(1)
	go func() {
		defer goroutineTracker.Done()

		for {
			select {
			case <-globalCtx.Done():
				s.Stop()
				return

			case <-reloadCh:
				next := config.GetPollInterval()
				if next == interval {
					continue
				}
				logger.Infof("Poll interval changed from %s to %s, rescheduling", interval, next)
				interval = next
				s.Clear()
				s.Every(interval).Do(poke)
			}
		}
	}()
}

// eventLoop is the service's main loop: readiness transitions and scheduled
// polls trigger fetches, pushed instance events become local cache patches.
func eventLoop(globalCtx context.Context, goroutineTracker *sync.WaitGroup,
	instanceStore *querycache.Store[instances.Mapping], statsStore *querycache.Store[apiclient.SystemStats],
	eventCh <-chan events.Event, readyCh <-chan bool, refreshCh <-chan struct{}) {

	for {
		select {
		case <-globalCtx.Done():
			return

		case ready := <-readyCh:
			if !ready {
				logger.Infof("Backend connection lost; fetches disabled until it returns")
				continue
			}
			// The gate just opened: fetch every registered collection once.
			// Deduplication in the store collapses any concurrent triggers.
			refreshAll(globalCtx, goroutineTracker, instanceStore, statsStore)

		case <-refreshCh:
			refreshAll(globalCtx, goroutineTracker, instanceStore, statsStore)

		case event := <-eventCh:
			if !event.IsInstanceEvent() {
				continue
			}
			instanceEvent, err := event.Instance()
			if err != nil {
				logger.Warningf("dropping malformed pushed event: %s", err)
				continue
			}
			applyInstanceEvent(globalCtx, goroutineTracker, instanceStore, instanceEvent)
		}
	}
}

// refreshAll re-fetches every registered collection. Fetches run off the
// event loop so a slow backend can't hold up event processing; the store
// guarantees at most one in-flight fetch per key regardless.
func refreshAll(globalCtx context.Context, goroutineTracker *sync.WaitGroup,
	instanceStore *querycache.Store[instances.Mapping], statsStore *querycache.Store[apiclient.SystemStats]) {

	for _, key := range instanceStore.Keys() {
		fetchKey(globalCtx, goroutineTracker, instanceStore, key)
	}
	for _, key := range statsStore.Keys() {
		fetchKey(globalCtx, goroutineTracker, statsStore, key)
	}
}

// fetchKey runs one fetch in a tracked goroutine and logs its outcome.
func fetchKey[V any](globalCtx context.Context, goroutineTracker *sync.WaitGroup, store *querycache.Store[V], key querycache.Key) {
	goroutineTracker.Add(1)
	go func() {
		defer goroutineTracker.Done()

		switch err := store.Fetch(globalCtx, key); err {
		case nil, querycache.ErrNotReady:
			// ErrNotReady just means the gate closed again between the
			// trigger and the fetch; the next transition will retry.
		default:
			logger.Errorf("Failed to fetch %s: %s", key, err)
		}
	}()
}

// applyInstanceEvent turns one pushed instance event into a local cache
// patch. The backend already performed the state change; these patches only
// keep the local cache consistent without a network round trip. Events for
// instances we don't have cached trigger a refetch instead of a blind patch.
func applyInstanceEvent(globalCtx context.Context, goroutineTracker *sync.WaitGroup,
	store *querycache.Store[instances.Mapping], event events.InstanceEvent) {

	result := store.Read(instances.ListKey)
	_, known := result.Data[event.InstanceUUID]

	if !known && event.Inner.Type != events.InstanceRemoved {
		// A record we haven't seen yet (including freshly created ones):
		// the full record only exists on the backend, so fetch it.
		fetchKey(globalCtx, goroutineTracker, store, instances.ListKey)
		return
	}

	switch event.Inner.Type {
	case events.InstanceRemoved:
		instances.DeleteOne(store, event.InstanceUUID)

	case events.InstanceStarting:
		setState(store, event, instances.StateStarting)

	case events.InstanceStarted:
		setState(store, event, instances.StateRunning)

	case events.InstanceStopping:
		setState(store, event, instances.StateStopping)

	case events.InstanceStopped:
		instances.UpdateOne(store, event.InstanceUUID, func(record instances.InstanceInfo) instances.InstanceInfo {
			record.State = instances.StateStopped
			record.PlayerCount = nil
			record.MaxPlayerCount = nil
			return record
		})

	case events.InstanceCrashed:
		setState(store, event, instances.StateCrashed)

	case events.InstancePlayerChange:
		count := uint32(len(event.Inner.PlayerList))
		logger.Infof("Instance %s now has %d players online: %s", event.InstanceUUID, count, utils.PrintSlice(event.Inner.PlayerList, 10))
		instances.UpdateOne(store, event.InstanceUUID, func(record instances.InstanceInfo) instances.InstanceInfo {
			record.PlayerCount = &count
			return record
		})

	default:
		// Console output, warnings and other chatter don't change the
		// cached record.
	}
}

// setState patches a single cached record's lifecycle state.
func setState(store *querycache.Store[instances.Mapping], event events.InstanceEvent, state instances.State) {
	instances.UpdateOne(store, event.InstanceUUID, func(record instances.InstanceInfo) instances.InstanceInfo {
		record.State = state
		return record
	})
}
