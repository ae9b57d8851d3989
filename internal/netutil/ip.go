package netutil

import "net"

const fallbackIP = "127.0.0.1"

// LocalIP returns the address of the interface that routes to the public
// internet. No packet is sent: connecting a UDP socket only selects a route.
func LocalIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return fallbackIP
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || addr.IP == nil || addr.IP.IsUnspecified() {
		return fallbackIP
	}
	return addr.IP.String()
}
