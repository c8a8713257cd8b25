package bluez

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/godbus/dbus/v5"
)

const noRSSI int32 = -127

// publishFromVariants builds one advertisement from a Device1 property
// bag — either the inline properties of an InterfacesAdded signal or the
// result of a Properties.GetAll call — per the table in §4.C. An update
// with no Address is discarded; every other field has a well-defined
// empty value.
func publishFromVariants(props map[string]dbus.Variant, publish PublishFunc) {
	addrStr, ok := stringProp(props, "Address")
	if !ok || addrStr == "" {
		return
	}
	address, err := parseColonMAC(addrStr)
	if err != nil {
		return
	}

	var addressType uint8
	if s, ok := stringProp(props, "AddressType"); ok && s == "random" {
		addressType = 1
	}

	rssi := noRSSI
	if v, ok := props["RSSI"]; ok {
		if i, ok := v.Value().(int32); ok {
			rssi = i
		}
	}

	name, _ := stringProp(props, "Name")

	var serviceUUIDs []string
	if v, ok := props["UUIDs"]; ok {
		if ss, ok := v.Value().([]string); ok {
			serviceUUIDs = append(serviceUUIDs, ss...)
		}
	}

	serviceData := extractByteDict(props["ServiceData"])
	manufacturerData := extractUint16ByteDict(props["ManufacturerData"])

	publish(address, addressType, rssi, name, serviceUUIDs, serviceData, manufacturerData)
}

func stringProp(props map[string]dbus.Variant, key string) (string, bool) {
	v, ok := props[key]
	if !ok {
		return "", false
	}
	s, ok := v.Value().(string)
	return s, ok
}

// extractByteDict pulls a dict<string,bytes> D-Bus variant (ServiceData)
// into a plain Go map.
func extractByteDict(v dbus.Variant) map[string][]byte {
	raw, ok := v.Value().(map[string]dbus.Variant)
	if !ok {
		return nil
	}
	out := make(map[string][]byte, len(raw))
	for k, vv := range raw {
		if b, ok := vv.Value().([]byte); ok {
			out[k] = b
		}
	}
	return out
}

// extractUint16ByteDict pulls a dict<u16,bytes> D-Bus variant
// (ManufacturerData) into a map keyed by the 16-bit company id; the
// caller turns each key into its decimal string.
func extractUint16ByteDict(v dbus.Variant) map[uint16][]byte {
	raw, ok := v.Value().(map[uint16]dbus.Variant)
	if !ok {
		return nil
	}
	out := make(map[uint16][]byte, len(raw))
	for k, vv := range raw {
		if b, ok := vv.Value().([]byte); ok {
			out[k] = b
		}
	}
	return out
}

// parseColonMAC parses "AA:BB:CC:DD:EE:FF" into the big-endian-packed
// 48-bit address form every producer emits.
func parseColonMAC(s string) (uint64, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return 0, fmt.Errorf("bluez: invalid MAC address %q", s)
	}
	var v uint64
	for _, p := range parts {
		b, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return 0, fmt.Errorf("bluez: invalid MAC address %q: %w", s, err)
		}
		v = v<<8 | b
	}
	return v, nil
}
