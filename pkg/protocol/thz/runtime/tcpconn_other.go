//go:build !linux
// +build !linux

package runtime

import "net"

// Platforms without the per-option keepalive sockopts get the stock
// period; the liveness probe trusts the handle until a read fails.
func configureKeepAlive(conn *net.TCPConn) error {
	if err := conn.SetKeepAlive(true); err != nil {
		return err
	}
	return conn.SetKeepAlivePeriod(keepAliveIdle)
}

func tcpAlive(conn net.Conn) bool {
	return conn != nil
}
