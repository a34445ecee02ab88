package devserver

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	reloadPath     = "/__livereload"
	reloadDebounce = 150 * time.Millisecond
)

const reloadScript = `<script>(function(){var es=new EventSource('` + reloadPath + `');es.addEventListener('reload',function(){location.reload();});})();</script>
`

// reloader watches a project tree and pushes a server-sent "reload" event
// to every connected page after changes settle.
type reloader struct {
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	mu      sync.Mutex
	clients map[chan struct{}]struct{}
	done    chan struct{}
	once    sync.Once
}

func newReloader(root string, logger *slog.Logger) (*reloader, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	rl := &reloader{
		watcher: w,
		logger:  logger,
		clients: make(map[chan struct{}]struct{}),
		done:    make(chan struct{}),
	}
	if err := rl.addTree(root); err != nil {
		_ = w.Close()
		return nil, err
	}
	go rl.loop()
	return rl, nil
}

// addTree watches every directory under root except hidden ones and
// node_modules.
func (rl *reloader) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && (strings.HasPrefix(d.Name(), ".") || d.Name() == "node_modules") {
			return filepath.SkipDir
		}
		if err := rl.watcher.Add(p); err != nil {
			rl.logger.Warn("failed to watch directory", "path", p, "err", err)
		}
		return nil
	})
}

func (rl *reloader) loop() {
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-rl.done:
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-rl.watcher.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) {
				if st, err := statDir(ev.Name); err == nil && st {
					_ = rl.addTree(ev.Name)
				}
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			fire = timer.C
		case err, ok := <-rl.watcher.Errors:
			if !ok {
				return
			}
			rl.logger.Warn("watcher error", "err", err)
		case <-fire:
			fire = nil
			rl.broadcast()
		}
	}
}

func (rl *reloader) broadcast() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ch := range rl.clients {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	rl.logger.Debug("live reload", "clients", len(rl.clients))
}

func (rl *reloader) subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	rl.mu.Lock()
	rl.clients[ch] = struct{}{}
	rl.mu.Unlock()
	return ch
}

func (rl *reloader) unsubscribe(ch chan struct{}) {
	rl.mu.Lock()
	delete(rl.clients, ch)
	rl.mu.Unlock()
}

// ServeHTTP streams reload events.
func (rl *reloader) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ch := rl.subscribe()
	defer rl.unsubscribe(ch)
	for {
		select {
		case <-r.Context().Done():
			return
		case <-rl.done:
			return
		case <-ch:
			_, _ = fmt.Fprint(w, "event: reload\ndata: {}\n\n")
			flusher.Flush()
		}
	}
}

func (rl *reloader) close() {
	rl.once.Do(func() {
		close(rl.done)
		_ = rl.watcher.Close()
	})
}

func statDir(p string) (bool, error) {
	info, err := os.Stat(p)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}
