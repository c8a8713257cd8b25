package hci

import "fmt"

// AD structure type values (Bluetooth Core Spec, Supplement, Part A).
const (
	adFlags                        = 0x01
	adIncomplete16BitServiceUUIDs  = 0x02
	adComplete16BitServiceUUIDs    = 0x03
	adIncomplete128BitServiceUUIDs = 0x06
	adComplete128BitServiceUUIDs   = 0x07
	adShortenedLocalName           = 0x08
	adCompleteLocalName            = 0x09
	adServiceData16Bit             = 0x16
	adManufacturerData             = 0xFF
)

// ServiceData mirrors the root package's type without importing it, to
// keep this package usable independently of the rest of the proxy.
type ServiceData struct {
	UUID string
	Data []byte
}

// ManufacturerData mirrors the root package's type.
type ManufacturerData struct {
	UUID string
	Data []byte
}

// AdvertisingData is everything this reader can recover from the raw
// advertising-data bytes of one report, before address/RSSI are attached.
type AdvertisingData struct {
	Name             []byte
	ServiceUUIDs     []string
	ServiceData      []ServiceData
	ManufacturerData []ManufacturerData
}

// ParseAD walks a raw BLE advertising-data byte string (a sequence of
// length-prefixed AD structures) and extracts the subset of structure
// types the proxy forwards to clients. An AD structure whose declared
// length runs past the end of data terminates parsing; structures already
// recovered are kept.
func ParseAD(data []byte) AdvertisingData {
	var out AdvertisingData
	cursor := 0
	for cursor < len(data) {
		length := int(data[cursor])
		if length == 0 {
			cursor++
			continue
		}
		if cursor+1+length > len(data) {
			break
		}
		typ := data[cursor+1]
		val := data[cursor+2 : cursor+1+length]

		switch typ {
		case adShortenedLocalName, adCompleteLocalName:
			out.Name = append([]byte(nil), val...)
		case adIncomplete16BitServiceUUIDs, adComplete16BitServiceUUIDs:
			for i := 0; i+2 <= len(val); i += 2 {
				u16 := uint16(val[i]) | uint16(val[i+1])<<8
				out.ServiceUUIDs = append(out.ServiceUUIDs, uuid16To128(u16))
			}
		case adIncomplete128BitServiceUUIDs, adComplete128BitServiceUUIDs:
			for i := 0; i+16 <= len(val); i += 16 {
				out.ServiceUUIDs = append(out.ServiceUUIDs, uuid128FromWire(val[i:i+16]))
			}
		case adServiceData16Bit:
			if len(val) >= 2 {
				u16 := uint16(val[0]) | uint16(val[1])<<8
				out.ServiceData = append(out.ServiceData, ServiceData{
					UUID: uuid16To128(u16),
					Data: append([]byte(nil), val[2:]...),
				})
			}
		case adManufacturerData:
			if len(val) >= 2 {
				companyID := uint16(val[0]) | uint16(val[1])<<8
				out.ManufacturerData = append(out.ManufacturerData, ManufacturerData{
					UUID: fmt.Sprintf("%d", companyID),
					Data: append([]byte(nil), val[2:]...),
				})
			}
		case adFlags:
			// Discovery-mode flags carry no information the proxy forwards.
		}

		cursor += 1 + length
	}
	return out
}

// uuid16To128 expands a 16-bit assigned UUID into the canonical 128-bit
// Bluetooth Base UUID form.
func uuid16To128(u16 uint16) string {
	return fmt.Sprintf("0000%04x-0000-1000-8000-00805f9b34fb", u16)
}

// uuid128FromWire renders a 16-byte little-endian-on-the-wire UUID in
// canonical big-endian dashed form.
func uuid128FromWire(b []byte) string {
	var rev [16]byte
	for i := range b {
		rev[i] = b[15-i]
	}
	return fmt.Sprintf("%02x%02x%02x%02x-%02x%02x-%02x%02x-%02x%02x-%02x%02x%02x%02x%02x%02x",
		rev[0], rev[1], rev[2], rev[3], rev[4], rev[5], rev[6], rev[7],
		rev[8], rev[9], rev[10], rev[11], rev[12], rev[13], rev[14], rev[15])
}
