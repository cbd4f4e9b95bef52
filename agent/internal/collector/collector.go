// Package collector gathers host inventory in the background and ships it to
// the controller's device-data channel, outside the command result path.
package collector

import (
	"context"
	"fmt"
	"net"
	"os"
	"runtime"
	"sort"
	"time"

	"command-agent/agent/internal/logger"
)

const (
	CategoryDeviceInfo = "device_info"
	CategoryNetwork    = "network"
	CategoryRuntime    = "runtime"
)

// Sink receives collected data; *controller.Client satisfies it.
type Sink interface {
	PostDeviceData(ctx context.Context, deviceID, category string, data any) error
}

type DeviceInfo struct {
	DeviceID string `json:"device_id"`
	Hostname string `json:"hostname"`
	OS       string `json:"os"`
	Arch     string `json:"arch"`
	CPUs     int    `json:"cpus"`
	PID      int    `json:"pid"`
	Uptime   string `json:"agent_uptime"`
}

type Interface struct {
	Name  string   `json:"name"`
	MAC   string   `json:"mac,omitempty"`
	Flags string   `json:"flags"`
	Addrs []string `json:"addrs,omitempty"`
}

type RuntimeStats struct {
	GoVersion  string `json:"go_version"`
	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc"`
	NumGC      uint32 `json:"num_gc"`
}

type Inventory struct {
	deviceID func() string
	sink     Sink
	started  time.Time
}

func New(deviceID func() string, sink Sink, started time.Time) *Inventory {
	return &Inventory{deviceID: deviceID, sink: sink, started: started}
}

func (i *Inventory) Categories() []string {
	return []string{CategoryDeviceInfo, CategoryNetwork, CategoryRuntime}
}

// Snapshot gathers one category without sending it.
func (i *Inventory) Snapshot(ctx context.Context, category string) (any, error) {
	switch category {
	case CategoryDeviceInfo:
		host, _ := os.Hostname()
		return DeviceInfo{
			DeviceID: i.deviceID(),
			Hostname: host,
			OS:       runtime.GOOS,
			Arch:     runtime.GOARCH,
			CPUs:     runtime.NumCPU(),
			PID:      os.Getpid(),
			Uptime:   time.Since(i.started).Round(time.Second).String(),
		}, nil
	case CategoryNetwork:
		return interfaces()
	case CategoryRuntime:
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		return RuntimeStats{
			GoVersion:  runtime.Version(),
			Goroutines: runtime.NumGoroutine(),
			HeapAlloc:  m.HeapAlloc,
			NumGC:      m.NumGC,
		}, nil
	}
	return nil, fmt.Errorf("unsupported category %q", category)
}

// Collect gathers category and posts it to the sink.
func (i *Inventory) Collect(ctx context.Context, category string) error {
	data, err := i.Snapshot(ctx, category)
	if err != nil {
		return err
	}
	if err := i.sink.PostDeviceData(ctx, i.deviceID(), category, data); err != nil {
		return fmt.Errorf("send %s: %w", category, err)
	}
	logger.Infof("Collected %s sent", category)
	return nil
}

func interfaces() ([]Interface, error) {
	ifs, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	out := make([]Interface, 0, len(ifs))
	for _, ifc := range ifs {
		item := Interface{Name: ifc.Name, MAC: ifc.HardwareAddr.String(), Flags: ifc.Flags.String()}
		if addrs, err := ifc.Addrs(); err == nil {
			for _, a := range addrs {
				item.Addrs = append(item.Addrs, a.String())
			}
		}
		out = append(out, item)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out, nil
}
