package viewserver

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
	"time"
)

// tuneTCP limits the time outgoing data may stay unacknowledged, so that dead
// peers of live feeds are noticed
func tuneTCP(conn net.Conn, timeout time.Duration) error {
	tcp, ok := conn.(*net.TCPConn)
	if !ok || timeout == 0 {
		return nil
	}
	raw, err := tcp.SyscallConn()
	if err != nil {
		return fmt.Errorf("failed to tune TCP socket: %w", err)
	}
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_USER_TIMEOUT, int(timeout/time.Millisecond))
	})
	if err == nil {
		err = sockErr
	}
	if err != nil {
		return fmt.Errorf("failed to tune TCP socket: %w", err)
	}
	return nil
}
