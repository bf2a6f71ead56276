package watcher

import "errors"

// ErrWatcherClosed indicates use after Close.
var ErrWatcherClosed = errors.New("watcher closed")
