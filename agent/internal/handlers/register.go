// Package handlers holds the built-in command handlers and wires them into a registry.
package handlers

import (
	"net/http"
	"time"

	"command-agent/agent/internal/broadcast"
	"command-agent/agent/internal/command"
)

type Deps struct {
	DeviceID func() string
	// Pool runs fire-and-forget work. It must not be the pool dispatch batches or reports run on.
	Pool        Submitter
	Clipboard   Clipboard
	Uploader    Uploader
	Collector   Collector
	Broadcaster broadcast.Broadcaster
	History     HistoryReader
	HTTPClient  *http.Client

	DownloadDir     string
	LogPath         string
	ShellTimeout    time.Duration
	TransferTimeout time.Duration
}

// Register adds every built-in handler whose dependencies are present.
func Register(reg *command.Registry, d Deps) {
	reg.Register("execute_shell", Shell{Timeout: d.ShellTimeout})
	reg.Register("get_logs", getLogs{path: d.LogPath})

	if d.Clipboard != nil {
		reg.Register("get_clipboard", getClipboard{cb: d.Clipboard})
		reg.Register("set_clipboard", setClipboard{cb: d.Clipboard})
	}
	if d.History != nil {
		reg.Register("get_history", getHistory{history: d.History})
	}
	if d.Pool == nil {
		return
	}
	if d.Collector != nil {
		reg.Register("collect_data", collectData{collector: d.Collector, pool: d.Pool, timeout: d.TransferTimeout})
		reg.Register("get_device_info", deviceInfo{collector: d.Collector, pool: d.Pool, timeout: d.TransferTimeout})
	}
	if d.Broadcaster != nil {
		reg.Register("capture_screenshot", captureScreenshot{broadcaster: d.Broadcaster, pool: d.Pool, deviceID: d.DeviceID, timeout: d.TransferTimeout})
	}
	if d.DownloadDir != "" {
		hc := d.HTTPClient
		if hc == nil {
			hc = http.DefaultClient
		}
		reg.Register("download_file", downloadFile{dir: d.DownloadDir, http: hc, pool: d.Pool, timeout: d.TransferTimeout})
	}
	if d.Uploader != nil {
		reg.Register("upload_file", uploadFile{uploader: d.Uploader, pool: d.Pool, deviceID: d.DeviceID, timeout: d.TransferTimeout})
	}
}
