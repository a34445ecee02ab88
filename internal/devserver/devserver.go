// Package devserver serves a project directory over HTTP on the loopback
// interface, with optional live reload driven by filesystem events.
package devserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Start treats port 0 as DefaultPort; AnyPort asks for an ephemeral port.
const (
	DefaultPort = 5173
	AnyPort     = -1
	host        = "127.0.0.1"
)

// ErrEscape is returned by SafeJoin for paths outside the root.
var ErrEscape = errors.New("path escapes root")

// Info describes a running server.
type Info struct {
	URL        string `json:"url"`
	Port       int    `json:"port"`
	Root       string `json:"root"`
	Running    bool   `json:"running"`
	LiveReload bool   `json:"liveReload"`
}

// Manager owns at most one server. It is safe for concurrent use.
type Manager struct {
	mu     sync.Mutex
	srv    *http.Server
	reload *reloader
	info   Info
	logger *slog.Logger
}

// NewManager creates a stopped Manager.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{logger: logger}
}

// Start serves root. When a server is already running its Info is
// returned with started == false and the arguments are ignored.
func (m *Manager) Start(root string, port int, liveReload bool) (info Info, started bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.srv != nil {
		return m.info, false, nil
	}

	switch port {
	case 0:
		port = DefaultPort
	case AnyPort:
		port = 0
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return Info{}, false, fmt.Errorf("creating %s: %w", root, err)
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return Info{}, false, fmt.Errorf("listening on port %d: %w", port, err)
	}
	port = ln.Addr().(*net.TCPAddr).Port

	var rl *reloader
	if liveReload {
		rl, err = newReloader(root, m.logger)
		if err != nil {
			_ = ln.Close()
			return Info{}, false, err
		}
	}

	srv := &http.Server{
		Handler:           handler(root, rl),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("dev server stopped", "err", err)
		}
	}()

	m.srv, m.reload = srv, rl
	m.info = Info{
		URL:        fmt.Sprintf("http://%s:%d/", host, port),
		Port:       port,
		Root:       root,
		Running:    true,
		LiveReload: liveReload,
	}
	m.logger.Info("dev server started", "url", m.info.URL, "root", root, "liveReload", liveReload)
	return m.info, true, nil
}

// Stop shuts the server down. stopped is false when nothing was running.
func (m *Manager) Stop(ctx context.Context) (info Info, stopped bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.srv == nil {
		return Info{}, false, nil
	}
	if m.reload != nil {
		m.reload.close()
	}
	err = m.srv.Shutdown(ctx)
	info = m.info
	info.Running = false
	m.srv, m.reload, m.info = nil, nil, Info{}
	if err != nil {
		return info, true, fmt.Errorf("stopping dev server: %w", err)
	}
	m.logger.Info("dev server stopped", "port", info.Port)
	return info, true, nil
}

// Status returns the running server, if any.
func (m *Manager) Status() (Info, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.info, m.srv != nil
}

// handler serves files under root. Directories and unknown paths fall back
// to the directory's index.html, then the root index.html.
func handler(root string, rl *reloader) http.Handler {
	mux := http.NewServeMux()
	if rl != nil {
		mux.Handle(reloadPath, rl)
	}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		full, err := SafeJoin(root, r.URL.EscapedPath())
		if err != nil {
			notFound(w)
			return
		}
		full = resolveIndex(root, full)
		data, err := os.ReadFile(full)
		if err != nil {
			notFound(w)
			return
		}
		if rl != nil && strings.EqualFold(filepath.Ext(full), ".html") {
			data = injectReload(data)
		}
		w.Header().Set("Content-Type", ContentType(full))
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(data)
	})
	return mux
}

func notFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("Not found"))
}

func resolveIndex(root, full string) string {
	st, err := os.Stat(full)
	if err == nil && !st.IsDir() {
		return full
	}
	if idx := filepath.Join(full, "index.html"); isFile(idx) {
		return idx
	}
	if filepath.Base(full) != "index.html" {
		if idx := filepath.Join(root, "index.html"); isFile(idx) {
			return idx
		}
	}
	return full
}

func isFile(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

// SafeJoin maps a request path onto base, rejecting anything that would
// leave it.
func SafeJoin(base, reqPath string) (string, error) {
	if i := strings.IndexByte(reqPath, '?'); i >= 0 {
		reqPath = reqPath[:i]
	}
	decoded, err := url.PathUnescape(reqPath)
	if err != nil {
		return "", fmt.Errorf("bad path %q: %w", reqPath, err)
	}
	rel := strings.TrimLeft(path.Clean("/"+decoded), "/")
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", ErrEscape
	}
	full := filepath.Join(base, filepath.FromSlash(rel))
	r, err := filepath.Rel(base, full)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) || filepath.IsAbs(r) {
		return "", ErrEscape
	}
	return full, nil
}

// ContentType maps a file extension to a MIME type.
func ContentType(p string) string {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".html":
		return "text/html; charset=utf-8"
	case ".js", ".mjs":
		return "application/javascript; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".json":
		return "application/json; charset=utf-8"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".gltf":
		return "model/gltf+json"
	case ".glb":
		return "model/gltf-binary"
	case ".wasm":
		return "application/wasm"
	case ".mp4":
		return "video/mp4"
	}
	return "application/octet-stream"
}

var bodyClose = []byte("</body>")

func injectReload(html []byte) []byte {
	snippet := []byte(reloadScript)
	if i := bytes.LastIndex(bytes.ToLower(html), bodyClose); i >= 0 {
		out := make([]byte, 0, len(html)+len(snippet))
		out = append(out, html[:i]...)
		out = append(out, snippet...)
		return append(out, html[i:]...)
	}
	return append(html, snippet...)
}
