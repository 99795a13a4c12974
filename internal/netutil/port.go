package netutil

import (
	"fmt"
	"net"
	"strconv"
)

// PickControlAddr returns a bindable address for the control API. It tries
// preferred first, then walks up to tries successive ports on the same host.
func PickControlAddr(preferred string, tries int) (string, error) {
	host, portStr, err := net.SplitHostPort(preferred)
	if err != nil {
		return "", fmt.Errorf("control bind address %q: %w", preferred, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", fmt.Errorf("control bind port %q: %w", portStr, err)
	}

	for i := 0; i <= tries; i++ {
		addr := net.JoinHostPort(host, strconv.Itoa(port+i))
		if addrAvailable(addr) {
			return addr, nil
		}
	}
	return "", fmt.Errorf("no free control API port in %d-%d on %s", port, port+tries, host)
}

func addrAvailable(addr string) bool {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return false
	}
	_ = ln.Close()
	return true
}
