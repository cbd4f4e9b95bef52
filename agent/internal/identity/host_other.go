//go:build !unix

package identity

import (
	"os"
	"runtime"
)

type HostSource struct{}

func (HostSource) Model() string {
	name, _ := os.Hostname()
	return name
}

func (HostSource) Device() string { return runtime.GOARCH }
