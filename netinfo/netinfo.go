// Package netinfo probes the host's network configuration for the one
// fact the proxy needs beyond its Bluetooth adapter: a MAC address to
// present as its own network identity in DeviceInfo responses and mDNS
// records.
package netinfo

import (
	"fmt"
	"net"
)

// PrimaryMAC returns the hardware address of the first non-loopback,
// up interface with a nonzero MAC. Interfaces are considered in the order
// net.Interfaces() returns them.
func PrimaryMAC() ([6]byte, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return [6]byte{}, fmt.Errorf("netinfo: list interfaces: %w", err)
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		if len(iface.HardwareAddr) != 6 {
			continue
		}
		var mac [6]byte
		copy(mac[:], iface.HardwareAddr)
		if mac == ([6]byte{}) {
			continue
		}
		return mac, nil
	}
	return [6]byte{}, fmt.Errorf("netinfo: no usable network interface found")
}
