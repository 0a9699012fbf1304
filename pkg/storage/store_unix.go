//go:build !windows
// +build !windows

package storage

import (
	"errors"
	"golang.org/x/sys/unix"
	"k8s.io/klog/v2"
	"os/user"
	"path/filepath"
)

var (
	storePath = getStorePath()
)

func getStorePath() string {
	if u, err := user.Current(); err == nil {
		return filepath.Join(u.HomeDir, "thzgateway")
	} else {
		klog.ErrorS(err, "Failed to get home dir")
		return "./thzgateway"
	}
}

func isEphemeralError(err error) bool {
	var errno unix.Errno
	if errors.As(err, &errno) {
		switch errno {
		case unix.EINTR, unix.EAGAIN:
			return true
		}
	}
	return false
}
