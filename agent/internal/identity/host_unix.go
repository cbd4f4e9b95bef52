//go:build unix

package identity

import (
	"golang.org/x/sys/unix"
)

// HostSource reads the node name and machine type from uname(2).
type HostSource struct{}

func (HostSource) Model() string {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return ""
	}
	return unix.ByteSliceToString(u.Nodename[:])
}

func (HostSource) Device() string {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return ""
	}
	return unix.ByteSliceToString(u.Machine[:])
}
