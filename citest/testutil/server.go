package testutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/livedoc/livedoc/internal/event"
	"github.com/livedoc/livedoc/internal/server"
	"github.com/livedoc/livedoc/internal/watcher"
)

// TestServer runs the full watcher, hub and HTTP stack against a document in
// a temporary directory.
type TestServer struct {
	Server   *server.Server
	Hub      *event.Hub
	Watcher  *watcher.Watcher
	BaseURL  string
	TempDir  string
	Document string
	port     int
}

// TestServerOption configures TestServer
type TestServerOption func(*testServerConfig)

type testServerConfig struct {
	name       string
	content    string
	noWatch    bool
	bufferSize int
	opts       watcher.Options
}

// WithDocumentName sets the document's file name.
func WithDocumentName(name string) TestServerOption {
	return func(c *testServerConfig) {
		c.name = name
	}
}

// WithoutWatch runs the server with live reload disabled.
func WithoutWatch() TestServerOption {
	return func(c *testServerConfig) {
		c.noWatch = true
	}
}

// WithWatchOptions sets the watcher options.
func WithWatchOptions(opts watcher.Options) TestServerOption {
	return func(c *testServerConfig) {
		c.opts = opts
	}
}

// WithBufferSize sets the per-client buffer of the hub.
func WithBufferSize(n int) TestServerOption {
	return func(c *testServerConfig) {
		c.bufferSize = n
	}
}

// StartTestServer creates a document and starts serving it.
func StartTestServer(opts ...TestServerOption) (*TestServer, error) {
	cfg := &testServerConfig{
		name:       "doc.pdf",
		content:    "%PDF-1.4\ninitial\n",
		bufferSize: event.DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	tempDir, err := os.MkdirTemp("", "livedoc-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	document := filepath.Join(tempDir, cfg.name)
	if err := os.WriteFile(document, []byte(cfg.content), 0644); err != nil {
		os.RemoveAll(tempDir)
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	port, err := findAvailablePort()
	if err != nil {
		os.RemoveAll(tempDir)
		return nil, fmt.Errorf("failed to find available port: %w", err)
	}

	hub := event.NewHub(event.WithBufferSize(cfg.bufferSize))

	target, err := watcher.NewTarget(document)
	if err != nil {
		hub.Close()
		os.RemoveAll(tempDir)
		return nil, err
	}

	var watch server.WatchStatus
	var w *watcher.Watcher
	if !cfg.noWatch {
		w, err = watcher.Start(target, func(ev event.ChangeEvent) {
			hub.Publish(ev)
		}, cfg.opts)
		if err != nil {
			hub.Close()
			os.RemoveAll(tempDir)
			return nil, err
		}
		watch = w
	}

	serverConfig := server.DefaultConfig()
	serverConfig.Port = port
	serverConfig.Document = target.Path

	srv := server.New(serverConfig, hub, watch)

	go func() {
		_ = srv.Start()
	}()

	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	ts := &TestServer{
		Server:   srv,
		Hub:      hub,
		Watcher:  w,
		BaseURL:  baseURL,
		TempDir:  tempDir,
		Document: target.Path,
		port:     port,
	}

	if err := waitForServer(baseURL, 10*time.Second); err != nil {
		ts.Stop()
		return nil, fmt.Errorf("server failed to start: %w", err)
	}

	return ts, nil
}

// Stop shuts down the test server and cleans up
func (ts *TestServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	if ts.Server != nil {
		err = ts.Server.Shutdown(ctx)
	}
	if ts.Watcher != nil {
		ts.Watcher.Stop()
	}
	if ts.TempDir != "" {
		os.RemoveAll(ts.TempDir)
	}
	return err
}

// WriteDocument overwrites the document in place.
func (ts *TestServer) WriteDocument(content string) error {
	return os.WriteFile(ts.Document, []byte(content), 0644)
}

// Client returns a new test client for this server
func (ts *TestServer) Client() *TestClient {
	return NewTestClient(ts.BaseURL)
}

// SSEClient returns a new SSE client for this server
func (ts *TestServer) SSEClient() *SSEClient {
	return NewSSEClient(ts.BaseURL)
}

// findAvailablePort finds an available TCP port
func findAvailablePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port, nil
}

// waitForServer polls /status until the server answers or timeout elapses.
func waitForServer(baseURL string, timeout time.Duration) error {
	client := NewTestClient(baseURL)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond
	b.MaxElapsedTime = timeout

	return backoff.Retry(func() error {
		resp, err := client.Get(context.Background(), "/status")
		if err != nil {
			return err
		}
		if !resp.IsSuccess() {
			return errors.New(http.StatusText(resp.StatusCode))
		}
		return nil
	}, b)
}
