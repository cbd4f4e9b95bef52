package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"command-agent/agent/internal/broadcast"
	"command-agent/agent/internal/command"
	"command-agent/agent/internal/db"
	"command-agent/agent/internal/workerpool"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memClipboard struct {
	text string
	err  error
}

func (m *memClipboard) ReadAll() (string, error) { return m.text, m.err }
func (m *memClipboard) WriteAll(text string) error {
	if m.err != nil {
		return m.err
	}
	m.text = text
	return nil
}

type fakeCollector struct {
	mu        sync.Mutex
	collected []string
}

func (f *fakeCollector) Categories() []string { return []string{"device_info", "runtime"} }
func (f *fakeCollector) Collect(ctx context.Context, category string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collected = append(f.collected, category)
	return nil
}

type fakeUploader struct {
	mu    sync.Mutex
	paths []string
}

func (f *fakeUploader) UploadFile(ctx context.Context, deviceID, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, deviceID+":"+path)
	return nil
}

type fakeBroadcaster struct {
	mu      sync.Mutex
	signals []broadcast.Signal
}

func (f *fakeBroadcaster) Broadcast(ctx context.Context, sig broadcast.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signals = append(f.signals, sig)
	return nil
}

type fakeHistory struct{ rows []db.ResultRecord }

func (f fakeHistory) Recent(limit int) ([]db.ResultRecord, error) { return f.rows, nil }

func run(t *testing.T, reg *command.Registry, typ string, params command.Params) (string, error) {
	t.Helper()
	h, ok := reg.Get(typ)
	require.True(t, ok, "handler %s not registered", typ)
	return h.Execute(context.Background(), params)
}

func TestClipboardHandlers(t *testing.T) {
	cb := &memClipboard{}
	reg := command.NewRegistry()
	Register(reg, Deps{Clipboard: cb})

	out, err := run(t, reg, "get_clipboard", nil)
	require.NoError(t, err)
	assert.Equal(t, "Clipboard is empty", out)

	out, err = run(t, reg, "set_clipboard", command.Params{"text": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "Clipboard updated", out)

	out, err = run(t, reg, "get_clipboard", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	_, err = run(t, reg, "set_clipboard", nil)
	assert.EqualError(t, err, "no value for text")

	cb.err = ErrClipboardUnavailable
	_, err = run(t, reg, "get_clipboard", nil)
	assert.ErrorIs(t, err, ErrClipboardUnavailable)
}

func TestClipboardThroughDispatcher(t *testing.T) {
	reg := command.NewRegistry()
	Register(reg, Deps{Clipboard: &memClipboard{text: "hello"}})
	rep := &collectingReporter{}
	d := command.NewDispatcher(reg, rep, time.Second)

	d.Dispatch(context.Background(), command.Command{ID: "1", Type: "get_clipboard"})

	require.Len(t, rep.results, 1)
	assert.Equal(t, "1", rep.results[0].CommandID)
	assert.Equal(t, "hello", rep.results[0].Output)
	assert.Equal(t, command.StatusSuccess, rep.results[0].Status)
}

type collectingReporter struct{ results []command.Result }

func (c *collectingReporter) Report(res command.Result) { c.results = append(c.results, res) }

func TestCollectData(t *testing.T) {
	pool := workerpool.New(2)
	col := &fakeCollector{}
	reg := command.NewRegistry()
	Register(reg, Deps{Pool: pool, Collector: col})

	out, err := run(t, reg, "collect_data", command.Params{"category": "runtime"})
	require.NoError(t, err)
	assert.Equal(t, "Data collection started", out)

	_, err = run(t, reg, "collect_data", command.Params{"category": "sms"})
	assert.EqualError(t, err, `unsupported category "sms"`)

	require.NoError(t, pool.Close(context.Background()))
	assert.Equal(t, []string{"runtime"}, col.collected)

	h, _ := reg.Get("collect_data")
	assert.Equal(t, command.KindAsync, h.Kind())
}

func TestCollectDataWithoutCategoryCollectsAll(t *testing.T) {
	pool := workerpool.New(2)
	col := &fakeCollector{}
	reg := command.NewRegistry()
	Register(reg, Deps{Pool: pool, Collector: col})

	out, err := run(t, reg, "collect_data", nil)
	require.NoError(t, err)
	assert.Equal(t, "Data collection started", out)

	require.NoError(t, pool.Close(context.Background()))
	assert.Equal(t, []string{"device_info", "runtime"}, col.collected)
}

func TestDeviceInfo(t *testing.T) {
	pool := workerpool.New(1)
	col := &fakeCollector{}
	reg := command.NewRegistry()
	Register(reg, Deps{Pool: pool, Collector: col})

	out, err := run(t, reg, "get_device_info", nil)
	require.NoError(t, err)
	assert.Equal(t, "Device info collection started", out)

	require.NoError(t, pool.Close(context.Background()))
	assert.Equal(t, []string{"device_info"}, col.collected)
	h, _ := reg.Get("get_device_info")
	assert.Equal(t, command.KindAsync, h.Kind())
}

func TestCaptureScreenshot(t *testing.T) {
	pool := workerpool.New(1)
	b := &fakeBroadcaster{}
	reg := command.NewRegistry()
	Register(reg, Deps{Pool: pool, Broadcaster: b, DeviceID: func() string { return "dev-1" }})

	out, err := run(t, reg, "capture_screenshot", nil)
	require.NoError(t, err)
	assert.Equal(t, "Screenshot capture requested", out)

	require.NoError(t, pool.Close(context.Background()))
	require.Len(t, b.signals, 1)
	assert.Equal(t, broadcast.SignalCaptureScreenshot, b.signals[0].Name)
	assert.Equal(t, "dev-1", b.signals[0].DeviceID)
}

func TestDownloadFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, "file body")
	}))
	defer srv.Close()

	dir := t.TempDir()
	pool := workerpool.New(2)
	reg := command.NewRegistry()
	Register(reg, Deps{Pool: pool, DownloadDir: dir, HTTPClient: srv.Client(), TransferTimeout: time.Second})

	out, err := run(t, reg, "download_file", command.Params{"url": srv.URL + "/a", "filename": "../../etc/report.bin"})
	require.NoError(t, err)
	assert.Equal(t, "File download started: report.bin", out)

	out, err = run(t, reg, "download_file", command.Params{"url": srv.URL + "/missing"})
	require.NoError(t, err)
	assert.Equal(t, "File download started: downloaded_file", out)

	_, err = run(t, reg, "download_file", command.Params{"url": "file:///etc/passwd"})
	assert.ErrorContains(t, err, "unsupported url scheme")
	_, err = run(t, reg, "download_file", nil)
	assert.EqualError(t, err, "no value for url")

	require.NoError(t, pool.Close(context.Background()))
	data, err := os.ReadFile(filepath.Join(dir, "report.bin"))
	require.NoError(t, err)
	assert.Equal(t, "file body", string(data))
	_, err = os.Stat(filepath.Join(dir, "downloaded_file"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestUploadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	pool := workerpool.New(1)
	up := &fakeUploader{}
	reg := command.NewRegistry()
	Register(reg, Deps{Pool: pool, Uploader: up, DeviceID: func() string { return "dev-1" }})

	out, err := run(t, reg, "upload_file", command.Params{"path": path})
	require.NoError(t, err)
	assert.Equal(t, "File upload started: notes.txt", out)

	missing := filepath.Join(t.TempDir(), "gone.txt")
	out, err = run(t, reg, "upload_file", command.Params{"path": missing})
	require.NoError(t, err)
	assert.Equal(t, "File not found: "+missing, out)

	_, err = run(t, reg, "upload_file", command.Params{"path": t.TempDir()})
	assert.ErrorContains(t, err, "is a directory")

	require.NoError(t, pool.Close(context.Background()))
	assert.Equal(t, []string{"dev-1:" + path}, up.paths)
}

func TestGetLogs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.log")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\nthree\n"), 0o644))

	reg := command.NewRegistry()
	Register(reg, Deps{LogPath: path})
	out, err := run(t, reg, "get_logs", command.Params{"lines": float64(2)})
	require.NoError(t, err)
	assert.Equal(t, "two\nthree\n", out)

	empty := command.NewRegistry()
	Register(empty, Deps{})
	_, err = run(t, empty, "get_logs", nil)
	assert.EqualError(t, err, "log file not configured")
}

func TestGetHistory(t *testing.T) {
	ts := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	reg := command.NewRegistry()
	Register(reg, Deps{History: fakeHistory{rows: []db.ResultRecord{
		{CommandID: "7", Outcome: "ok", Output: "hi\n", Delivered: true, CompletedAt: ts},
	}}})
	out, err := run(t, reg, "get_history", nil)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-01T12:00:00Z 7 ok delivered \"hi\\n\"\n", out)

	none := command.NewRegistry()
	Register(none, Deps{History: fakeHistory{}})
	out, err = run(t, none, "get_history", nil)
	require.NoError(t, err)
	assert.Equal(t, "No results recorded", out)
}

func TestRegisterSkipsMissingDeps(t *testing.T) {
	reg := command.NewRegistry()
	Register(reg, Deps{})
	assert.Equal(t, []string{"execute_shell", "get_logs"}, reg.Names())
}

func TestClipKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "ab...", clip("abc", 2))
	assert.Equal(t, "日...", clip("日本語", 4))
	assert.Equal(t, "日本語", clip("日本語", 9))
}
