// Package mdns publishes the proxy's ESPHome native-API service on the
// local network so a home-automation controller can find it without a
// pinned hostname or address.
package mdns

import (
	"fmt"

	"github.com/grandcat/zeroconf"
)

const serviceType = "_esphomelib._tcp"
const serviceDomain = "local."

// Config is everything Publish needs to build the TXT record §4.H
// requires.
type Config struct {
	Hostname string
	Port     int
	Version  string
	MAC      string // colon form
}

// Publish registers one `_esphomelib._tcp.local.` service record and
// keeps it alive until Shutdown is called on the returned server. The
// instance name is "{hostname}_{last-6-hex-of-mac}" and the TXT record's
// friendly_name is "Bluetooth Proxy {last-6-hex-of-mac}", so multiple
// proxies on one network stay distinguishable.
func Publish(cfg Config) (*zeroconf.Server, error) {
	suffix := lastSixHex(cfg.MAC)
	instance := fmt.Sprintf("%s_%s", cfg.Hostname, suffix)
	txt := []string{
		"friendly_name=Bluetooth Proxy " + suffix,
		"version=" + cfg.Version,
		"mac=" + cfg.MAC,
		"platform=linux",
		"network=ethernet",
	}

	server, err := zeroconf.Register(instance, serviceType, serviceDomain, cfg.Port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("mdns: register: %w", err)
	}
	return server, nil
}

// lastSixHex strips the colons from a "aa:bb:cc:dd:ee:ff" MAC and returns
// its last six hex characters ("ddeeff").
func lastSixHex(mac string) string {
	var hex []byte
	for i := 0; i < len(mac); i++ {
		if mac[i] != ':' {
			hex = append(hex, mac[i])
		}
	}
	if len(hex) < 6 {
		return string(hex)
	}
	return string(hex[len(hex)-6:])
}
