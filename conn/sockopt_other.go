//go:build !linux

package conn

import (
	"net"
	"syscall"
)

// tuneConn is a no-op on non-Linux platforms; SO_REUSEPORT/TCP_NODELAY
// tuning here is an optimization, not a correctness requirement.
func tuneConn(net.Conn) {}

func reusePortControl(_, _ string, _ syscall.RawConn) error { return nil }
