package proto

import "net/netip"

// Endpoint resolves a self-reported LastIP/LastPort pair into an address.
// ok is false when either half is absent or unparseable.
func Endpoint(ip string, port int) (netip.AddrPort, bool) {
	if ip == "" || port <= 0 || port > 65535 {
		return netip.AddrPort{}, false
	}
	a, err := netip.ParseAddr(ip)
	if err != nil {
		return netip.AddrPort{}, false
	}
	return netip.AddrPortFrom(a.Unmap(), uint16(port)), true
}

// SplitEndpoint is the inverse of Endpoint, for filling LastIP/LastPort
// fields from a local bind address.
func SplitEndpoint(ap netip.AddrPort) (string, int) {
	if !ap.IsValid() {
		return "", 0
	}
	return ap.Addr().Unmap().String(), int(ap.Port())
}
