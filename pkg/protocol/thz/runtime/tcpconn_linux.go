//go:build linux
// +build linux

package runtime

import (
	"net"
	"time"

	"golang.org/x/sys/unix"
)

func configureKeepAlive(conn *net.TCPConn) error {
	if err := conn.SetKeepAlive(true); err != nil {
		return err
	}
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var serr error
	err = raw.Control(func(fd uintptr) {
		if serr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, int(keepAliveIdle/time.Second)); serr != nil {
			return
		}
		if serr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, int(keepAliveInterval/time.Second)); serr != nil {
			return
		}
		serr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPCNT, keepAliveCount)
	})
	if err != nil {
		return err
	}
	return serr
}

// tcpAlive peeks one byte without blocking or consuming input. EAGAIN
// means no pending data on a healthy socket; a zero-length read means the
// peer shut the connection down.
func tcpAlive(conn net.Conn) bool {
	tcp, ok := conn.(*net.TCPConn)
	if !ok {
		return true
	}
	raw, err := tcp.SyscallConn()
	if err != nil {
		return false
	}
	alive := true
	err = raw.Control(func(fd uintptr) {
		buf := make([]byte, 1)
		n, _, rerr := unix.Recvfrom(int(fd), buf, unix.MSG_PEEK|unix.MSG_DONTWAIT)
		switch {
		case rerr == unix.EAGAIN:
			alive = true
		case rerr != nil:
			alive = false
		case n == 0:
			alive = false
		default:
			alive = true
		}
	})
	if err != nil {
		return false
	}
	return alive
}
