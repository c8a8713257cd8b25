package btproxy

import "fmt"

// ServiceData is one GATT service UUID and the bytes of data it carries in
// an advertisement.
type ServiceData struct {
	UUID string
	Data []byte
}

// ManufacturerData is one manufacturer id (as a decimal string of its
// 16-bit value, per spec) and the bytes of data it carries.
type ManufacturerData struct {
	UUID string
	Data []byte
}

// Advertisement is a normalized BLE advertisement as published on the Bus.
// It is immutable once constructed; every field beyond Address has a
// well-defined empty value.
type Advertisement struct {
	Address          uint64
	AddressType      uint8 // 0 = public, 1 = random
	RSSI             int32 // dBm; -127 if absent
	Name             []byte
	ServiceUUIDs     []string
	ServiceData      []ServiceData
	ManufacturerData []ManufacturerData
}

// NoRSSI is the value used for an Advertisement.RSSI when the source
// reading carried no RSSI.
const NoRSSI int32 = -127

// BDAddrToUint64 packs a 6-byte Bluetooth device address, given in wire
// order for the protocol it came from, into the big-endian-packed 64-bit
// form the Bus and the rest of the proxy use. le reports whether addr is
// in little-endian-least-significant-byte-first order (HCI's native wire
// order) and needs reversing before packing.
func BDAddrToUint64(addr [6]byte, le bool) uint64 {
	if le {
		addr = reverseAddr(addr)
	}
	var v uint64
	for _, b := range addr {
		v = v<<8 | uint64(b)
	}
	return v
}

func reverseAddr(addr [6]byte) [6]byte {
	var out [6]byte
	for i := range addr {
		out[i] = addr[5-i]
	}
	return out
}

// ParseColonMAC parses "AA:BB:CC:DD:EE:FF" into the big-endian-packed
// 64-bit address form.
func ParseColonMAC(s string) (uint64, error) {
	var b [6]byte
	n, err := fmt.Sscanf(s, "%02x:%02x:%02x:%02x:%02x:%02x",
		&b[0], &b[1], &b[2], &b[3], &b[4], &b[5])
	if err != nil || n != 6 {
		return 0, fmt.Errorf("btproxy: invalid MAC address %q", s)
	}
	return BDAddrToUint64(b, false), nil
}

// FormatColonMAC renders a 48-bit big-endian-packed address as
// "aa:bb:cc:dd:ee:ff".
func FormatColonMAC(addr uint64) string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x",
		byte(addr>>40), byte(addr>>32), byte(addr>>24),
		byte(addr>>16), byte(addr>>8), byte(addr))
}
