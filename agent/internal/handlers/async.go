package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"time"

	"command-agent/agent/internal/broadcast"
	"command-agent/agent/internal/command"
	"command-agent/agent/internal/logger"
)

// Submitter runs background work; *workerpool.Pool satisfies it.
type Submitter interface {
	Go(ctx context.Context, name string, fn func(ctx context.Context)) error
}

// Uploader sends a local file to the controller; *controller.Client satisfies it.
type Uploader interface {
	UploadFile(ctx context.Context, deviceID, path string) error
}

// Collector gathers one category and ships it; *collector.Inventory satisfies it.
type Collector interface {
	Categories() []string
	Collect(ctx context.Context, category string) error
}

// background bounds fn by timeout and logs its failure; nobody else sees it.
func background(ctx context.Context, pool Submitter, name string, timeout time.Duration, fn func(ctx context.Context) error) error {
	return pool.Go(ctx, name, func(ctx context.Context) {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		if err := fn(ctx); err != nil {
			logger.Errorf("%s failed: %v", name, err)
		}
	})
}

type collectData struct {
	collector Collector
	pool      Submitter
	timeout   time.Duration
}

func (collectData) Kind() command.Kind { return command.KindAsync }
func (h collectData) Execute(ctx context.Context, params command.Params) (string, error) {
	categories := h.collector.Categories()
	name := "collect all"
	if category := params.StringOr("category", ""); category != "" {
		if !slices.Contains(categories, category) {
			return "", fmt.Errorf("unsupported category %q", category)
		}
		categories, name = []string{category}, "collect "+category
	}
	err := background(ctx, h.pool, name, h.timeout, func(ctx context.Context) error {
		var errs []error
		for _, c := range categories {
			errs = append(errs, h.collector.Collect(ctx, c))
		}
		return errors.Join(errs...)
	})
	if err != nil {
		return "", err
	}
	return "Data collection started", nil
}

type deviceInfo struct {
	collector Collector
	pool      Submitter
	timeout   time.Duration
}

func (deviceInfo) Kind() command.Kind { return command.KindAsync }
func (h deviceInfo) Execute(ctx context.Context, _ command.Params) (string, error) {
	err := background(ctx, h.pool, "collect device_info", h.timeout, func(ctx context.Context) error {
		return h.collector.Collect(ctx, "device_info")
	})
	if err != nil {
		return "", err
	}
	return "Device info collection started", nil
}

type captureScreenshot struct {
	broadcaster broadcast.Broadcaster
	pool        Submitter
	deviceID    func() string
	timeout     time.Duration
}

func (captureScreenshot) Kind() command.Kind { return command.KindAsync }
func (h captureScreenshot) Execute(ctx context.Context, params command.Params) (string, error) {
	sig := broadcast.Signal{
		Name:     broadcast.SignalCaptureScreenshot,
		DeviceID: h.deviceID(),
		Params:   params,
		SentAt:   time.Now(),
	}
	err := background(ctx, h.pool, "screenshot signal", h.timeout, func(ctx context.Context) error {
		return h.broadcaster.Broadcast(ctx, sig)
	})
	if err != nil {
		return "", err
	}
	return "Screenshot capture requested", nil
}

type downloadFile struct {
	dir     string
	http    *http.Client
	pool    Submitter
	timeout time.Duration
}

func (downloadFile) Kind() command.Kind { return command.KindAsync }
func (h downloadFile) Execute(ctx context.Context, params command.Params) (string, error) {
	raw, err := params.String("url")
	if err != nil {
		return "", err
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	name := safeName(params.StringOr("filename", "downloaded_file"))
	dest := filepath.Join(h.dir, name)

	err = background(ctx, h.pool, "download "+name, h.timeout, func(ctx context.Context) error {
		return h.fetch(ctx, u.String(), dest)
	})
	if err != nil {
		return "", err
	}
	return "File download started: " + name, nil
}

func (h downloadFile) fetch(ctx context.Context, src, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return err
	}
	resp, err := h.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: status %d", src, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("mkdir dest: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return err
	}
	logger.Infof("File downloaded: %s (%d bytes)", dest, n)
	return nil
}

// safeName keeps only the last path element so downloads stay inside the download dir.
func safeName(name string) string {
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." || base == "" {
		return "downloaded_file"
	}
	return base
}

type uploadFile struct {
	uploader Uploader
	pool     Submitter
	deviceID func() string
	timeout  time.Duration
}

func (uploadFile) Kind() command.Kind { return command.KindAsync }
func (h uploadFile) Execute(ctx context.Context, params command.Params) (string, error) {
	path, err := params.String("path")
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return "File not found: " + path, nil
	}
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	name := filepath.Base(path)
	err = background(ctx, h.pool, "upload "+name, h.timeout, func(ctx context.Context) error {
		return h.uploader.UploadFile(ctx, h.deviceID(), path)
	})
	if err != nil {
		return "", err
	}
	return "File upload started: " + name, nil
}
