package library

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"cadenza/internal/metadata"
)

// DefaultSettleDelay gives a new file time to be fully written before it is
// reported.
const DefaultSettleDelay = 500 * time.Millisecond

// WatchHandler receives filesystem changes to audio files.
type WatchHandler interface {
	FileAdded(path string)
	FileRemoved(path string)
}

// Watcher monitors library folders recursively with fsnotify.
type Watcher struct {
	watcher   *fsnotify.Watcher
	handler   WatchHandler
	supported []string
	settle    time.Duration
	logger    *logrus.Logger

	wg   sync.WaitGroup
	once sync.Once
	done chan struct{}
}

// NewWatcher creates a watcher that reports to handler.
func NewWatcher(handler WatchHandler, supported []string, settle time.Duration, logger *logrus.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if settle < 0 {
		settle = DefaultSettleDelay
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	w := &Watcher{
		watcher:   fw,
		handler:   handler,
		supported: supported,
		settle:    settle,
		logger:    logger,
		done:      make(chan struct{}),
	}
	w.wg.Add(1)
	go w.watchFiles()
	return w, nil
}

// Watch adds dir and all its subdirectories.
func (w *Watcher) Watch(dir string) error {
	if err := w.addDirectory(dir); err != nil {
		return err
	}
	w.logger.WithField("library_path", dir).Info("File watcher started")
	return nil
}

func (w *Watcher) addDirectory(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != dir && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return w.watcher.Add(path)
		}
		return nil
	})
}

// Close stops the watcher and waits for pending notifications (idempotent).
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) watchFiles() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFileEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Error("File watcher error")
		}
	}
}

// handleFileEvent filters temporary and hidden files and dispatches the
// rest.
func (w *Watcher) handleFileEvent(event fsnotify.Event) {
	fileName := filepath.Base(event.Name)
	if strings.HasPrefix(fileName, ".") || strings.HasSuffix(fileName, ".tmp") {
		return
	}

	isAudioFile := metadata.IsAudioFile(event.Name, w.supported)

	switch {
	case event.Has(fsnotify.Create) && isAudioFile:
		w.wg.Add(1)
		go func(name string) {
			defer w.wg.Done()
			select {
			case <-time.After(w.settle):
			case <-w.done:
				return
			}
			if _, err := os.Stat(name); err != nil {
				return
			}
			w.logger.WithField("file_path", name).Info("New audio file detected")
			w.handler.FileAdded(name)
		}(event.Name)

	case (event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)) && isAudioFile:
		w.logger.WithField("file_path", event.Name).Info("Audio file removed")
		w.handler.FileRemoved(event.Name)

	case event.Has(fsnotify.Create):
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addDirectory(event.Name); err != nil {
				w.logger.WithError(err).WithField("directory", event.Name).Warn("Failed to watch directory")
				return
			}
			w.logger.WithField("directory", event.Name).Info("Watching new directory")
		}
	}
}
