package config // import "github.com/quarterdeck-gg/console/config"

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	logger "github.com/quarterdeck-gg/console/qdlogger"
	"github.com/quarterdeck-gg/console/utils"
)

// watchPollTimeout bounds each wait on the config file, so the watcher
// goroutine notices a cancelled context within one interval.
const watchPollTimeout = 1 * time.Second

// WatchForChanges reloads the configuration singleton whenever the config
// file is written, until the global context is cancelled, and pokes reloadCh
// (non-blocking) after every successful reload so components that bind
// config values at startup can re-resolve them. Reload failures keep the
// previous configuration; a broken edit never takes the service down.
//
// Note that the backend URL is bound by the API client and the event-stream
// monitor when the service starts; changing it requires a restart.
func WatchForChanges(globalCtx context.Context, goroutineTracker *sync.WaitGroup, reloadCh chan<- struct{}) {
	goroutineTracker.Add(1)
	go func() {
		defer goroutineTracker.Done()

		path := ConfigFilePath()
		dir := filepath.Dir(path)
		fileName := filepath.Base(path)

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			logger.Warningf("couldn't create config watcher: %s", err)
			return
		}
		defer watcher.Close()

		for globalCtx.Err() == nil {
			err := utils.WatchFileChanges(dir, fileName, watchPollTimeout, watcher)
			if err == context.DeadlineExceeded {
				continue
			}
			if err != nil {
				logger.Warningf("couldn't watch config file %s: %s", path, err)
				return
			}

			// Editors often fire several events per save; give the write a
			// moment to settle before reloading.
			time.Sleep(100 * time.Millisecond)

			if err := Initialize(); err != nil {
				logger.Warningf("couldn't reload config: %s", err)
				continue
			}
			logger.Infof("Reloaded configuration from %s", path)

			if reloadCh != nil {
				select {
				case reloadCh <- struct{}{}:
				default:
				}
			}
		}
	}()
}
