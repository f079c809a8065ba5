//go:build !linux

package viewserver

import (
	"net"

	"time"
)

func tuneTCP(conn net.Conn, timeout time.Duration) error {
	return nil
}
