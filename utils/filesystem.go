package utils // import "github.com/quarterdeck-gg/console/utils"

import (
	"context"
	"path"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchFileChanges blocks until the provided file is written or created, or
// the timeout duration elapses. If the file changes in time, a nil error is
// returned. If the timeout elapses, a context.DeadlineExceeded error is
// returned. In any other case, a non-nil error is returned explaining what
// went wrong.
//
// For maximum correctness, we require that any paths passed in are absolute.
// The documentation for `fsnotify` and `path/filepath` are just vague enough
// for us to enforce this rule on callers.
//
// The function accepts a pointer to a fsnotify watcher. If the caller passes
// in nil then we will create a new watcher and handle the clean up. If a
// watcher is passed by the caller then they are expected to clean up their
// watcher.
func WatchFileChanges(absParentDirectory, fileName string, timeout time.Duration, watcher *fsnotify.Watcher) error {
	if !path.IsAbs(absParentDirectory) {
		return MakeError("can't pass non-absolute paths into WatchFileChanges")
	}
	targetFileName := path.Join(absParentDirectory, fileName)

	var err error
	if watcher == nil {
		watcher, err = fsnotify.NewWatcher()
		if err != nil {
			return MakeError("couldn't create new fsnotify.Watcher: %s", err)
		}
		defer watcher.Close()
	}

	if err = watcher.Add(absParentDirectory); err != nil {
		return MakeError("error adding dir %s to fsnotify.Watcher: %s", absParentDirectory, err)
	}

	return waitForErrorOrChange(timeout, targetFileName, watcher.Events, watcher.Errors)
}

// waitForErrorOrChange handles watcher events, errors, and timeouts.
func waitForErrorOrChange(timeout time.Duration, targetFileName string, watcherEvent chan fsnotify.Event, watcherErr chan error) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			return context.DeadlineExceeded

		case err, ok := <-watcherErr:
			if !ok {
				return MakeError("fsnotify error channel closed")
			}
			return MakeError("error watching for file changes: %s", err)

		case event, ok := <-watcherEvent:
			if !ok {
				return MakeError("fsnotify event channel closed")
			}
			if event.Name == targetFileName && (event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create) {
				return nil
			}
		}
	}
}
