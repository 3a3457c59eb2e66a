//go:build linux

package conn

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// tuneConn disables Nagle's algorithm on an accepted connection so small
// HTTP/WebSocket frames aren't held back waiting to coalesce, using
// golang.org/x/sys/unix for the setsockopt call.
func tuneConn(c net.Conn) {
	tcpConn, ok := c.(*net.TCPConn)
	if !ok {
		return
	}
	raw, err := tcpConn.SyscallConn()
	if err != nil {
		return
	}
	_ = raw.Control(func(fd uintptr) {
		_ = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	})
}

// reusePortControl is a net.ListenConfig.Control hook that sets SO_REUSEPORT
// on the listening socket before bind, letting cmd/spiderd run multiple
// Runtime instances (e.g. one per CPU) against the same port.
func reusePortControl(_, _ string, c syscall.RawConn) error {
	var setErr error
	err := c.Control(func(fd uintptr) {
		setErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	})
	if err != nil {
		return err
	}
	return setErr
}
