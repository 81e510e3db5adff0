/*
Package events maintains the console service's connection to the backend's
push-event stream. The Monitor owns two jobs that are deliberately coupled:

  - it is the readiness gate: the query cache must not issue fetches until
    the stream handshake has completed, so Ready() reflects exactly whether
    the websocket is connected;
  - it delivers the backend's pushed instance events, which the event loop
    turns into local cache patches.

Coupling them means the cache can never fetch against a backend it can't
also hear invalidations from.
*/
package events // import "github.com/quarterdeck-gg/console/events"

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	logger "github.com/quarterdeck-gg/console/qdlogger"
	"github.com/quarterdeck-gg/console/utils"
)

// streamPath is the backend's event-stream endpoint.
const streamPath = "/events/stream"

// Reconnect backoff bounds. The delay doubles on every failed attempt and
// resets after a successful handshake.
const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
)

// A Monitor maintains the websocket connection to the backend event stream
// and exposes its state as the process-wide readiness signal. All methods
// are safe for concurrent use.
type Monitor struct {
	streamURL string

	mu    sync.RWMutex
	ready bool
	conn  *websocket.Conn
}

// NewMonitor creates a monitor for the backend at baseURL
// (scheme://host:port). The stream endpoint is derived from it.
func NewMonitor(baseURL string) (*Monitor, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, utils.MakeError("couldn't parse backend URL %s: %s", baseURL, err)
	}

	scheme := "ws"
	if parsed.Scheme == "https" || parsed.Scheme == "wss" {
		scheme = "wss"
	}
	u := url.URL{Scheme: scheme, Host: parsed.Host, Path: streamPath}

	return &Monitor{streamURL: u.String()}, nil
}

// Ready reports whether the backend connection is established. Both fetch
// paths consult this before issuing any network call.
func (m *Monitor) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ready
}

func (m *Monitor) setConn(conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conn = conn
	m.ready = conn != nil
}

// Run connects to the event stream and keeps the connection alive until the
// global context is cancelled, reconnecting with exponential backoff.
// Decoded events are delivered on eventCh; every readiness transition is
// delivered on readyCh so the event loop can trigger the initial fetch the
// moment the gate opens.
func (m *Monitor) Run(globalCtx context.Context, goroutineTracker *sync.WaitGroup, eventCh chan<- Event, readyCh chan<- bool) {
	goroutineTracker.Add(1)
	go func() {
		defer goroutineTracker.Done()

		backoff := initialBackoff
		for {
			if globalCtx.Err() != nil {
				return
			}

			conn, _, err := websocket.DefaultDialer.DialContext(globalCtx, m.streamURL, nil)
			if err != nil {
				logger.Warningf("couldn't connect to event stream at %s: %s", m.streamURL, err)
				if !sleepCtx(globalCtx, backoff) {
					return
				}
				if backoff *= 2; backoff > maxBackoff {
					backoff = maxBackoff
				}
				continue
			}

			logger.Infof("Connected to backend event stream at %s", m.streamURL)
			backoff = initialBackoff
			m.setConn(conn)
			readyCh <- true

			// Close the connection when the global context gets cancelled,
			// which also unblocks the read loop below.
			closeOnce := sync.Once{}
			goroutineTracker.Add(1)
			go func() {
				defer goroutineTracker.Done()
				<-globalCtx.Done()
				closeOnce.Do(func() { conn.Close() })
			}()

			m.readLoop(globalCtx, conn, eventCh)

			closeOnce.Do(func() { conn.Close() })
			m.setConn(nil)
			if globalCtx.Err() != nil {
				return
			}
			readyCh <- false
			logger.Warningf("lost connection to backend event stream, reconnecting")
		}
	}()
}

// readLoop decodes events off one connection until it fails or the context
// is cancelled. The delivery select keeps shutdown safe even when nothing is
// draining eventCh: a blocked send must never outlive the context, or the
// goroutine tracker would wait on it forever.
func (m *Monitor) readLoop(ctx context.Context, conn *websocket.Conn, eventCh chan<- Event) {
	for {
		var event Event
		if err := conn.ReadJSON(&event); err != nil {
			return
		}

		select {
		case eventCh <- event:
		case <-ctx.Done():
			return
		}
	}
}

// sleepCtx sleeps for d, returning false early if ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
