package ports

import (
	"net"
	"strconv"
)

// ListenProbe reports whether a TCP port can currently be bound on the host.
// Advisory only: the listener is closed immediately, so another process can
// grab the port right after. The allocator's claimed set stays authoritative.
func ListenProbe(port int) bool {
	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		return false
	}
	ln.Close()
	return true
}
