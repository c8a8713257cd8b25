package hci

// HCI packet type tags (only Event is parsed; others are discarded).
const (
	pktTypeCommand = 0x01
	pktTypeACLData = 0x02
	pktTypeEvent   = 0x03
)

// HCI event codes this reader recognizes at all.
const (
	eventLEMeta          = 0x3E
	eventInquiryComplete = 0x01
	eventVendor          = 0xFF
)

// LE Meta Event subevent codes.
const (
	subeventLegacyAdvertisingReport   = 0x02
	subeventExtendedAdvertisingReport = 0x0D
)

const monitorHeaderLen = 5

// Report is one parsed advertising report, address already reversed into
// big-endian-packed form.
type Report struct {
	Address     uint64
	AddressType uint8
	Data        []byte
	RSSI        int8
}

// ParsePacket interprets one HCI packet as read off a monitor-channel
// socket and appends every advertising report it contains to dst. Any
// packet type other than Event, or any LE Meta Event subevent other than
// the two advertising-report kinds, is silently ignored — it is not this
// reader's job to fully decode the HCI protocol.
func ParsePacket(pkt []byte, dst []Report) []Report {
	if len(pkt) < 1+monitorHeaderLen+2 {
		return dst
	}
	if pkt[0] != pktTypeEvent {
		return dst
	}
	event := pkt[1+monitorHeaderLen:]
	code := event[0]
	switch code {
	case eventLEMeta:
		return parseLEMeta(event, dst)
	case eventInquiryComplete, eventVendor:
		return dst
	default:
		return dst
	}
}

func parseLEMeta(event []byte, dst []Report) []Report {
	if len(event) < 3 {
		return dst
	}
	// event[0] = 0x3E, event[1] = plen (unused for bounds; we trust
	// len(event) instead, since one recv is already exactly one packet).
	subevent := event[2]
	body := event[3:]
	switch subevent {
	case subeventLegacyAdvertisingReport:
		return parseLegacyReports(body, dst)
	case subeventExtendedAdvertisingReport:
		return parseExtendedReports(body, dst)
	default:
		return dst
	}
}

func parseLegacyReports(body []byte, dst []Report) []Report {
	if len(body) < 1 {
		return dst
	}
	numReports := int(body[0])
	cursor := 1
	for i := 0; i < numReports; i++ {
		if cursor+9 > len(body) {
			break
		}
		addrType := body[cursor]
		var addr [6]byte
		copy(addr[:], body[cursor+1:cursor+7])
		dataLen := int(body[cursor+7])
		needed := cursor + 9 + dataLen
		if needed > len(body) {
			break
		}
		data := append([]byte(nil), body[cursor+8:cursor+8+dataLen]...)
		rssi := int8(body[cursor+8+dataLen])
		dst = append(dst, Report{
			Address:     bdaddrFromWire(addr),
			AddressType: addrType,
			Data:        data,
			RSSI:        rssi,
		})
		cursor += 9 + dataLen
	}
	return dst
}

func parseExtendedReports(body []byte, dst []Report) []Report {
	if len(body) < 1 {
		return dst
	}
	numReports := int(body[0])
	cursor := 1
	for i := 0; i < numReports; i++ {
		if cursor+24 > len(body) {
			break
		}
		addrType := body[cursor+2]
		var addr [6]byte
		copy(addr[:], body[cursor+3:cursor+9])
		rssi := int8(body[cursor+13])
		dataLen := int(body[cursor+23])
		needed := cursor + 24 + dataLen
		if needed > len(body) {
			break
		}
		data := append([]byte(nil), body[cursor+24:cursor+24+dataLen]...)
		dst = append(dst, Report{
			Address:     bdaddrFromWire(addr),
			AddressType: addrType,
			Data:        data,
			RSSI:        rssi,
		})
		cursor += 24 + dataLen
	}
	return dst
}

// bdaddrFromWire reverses a little-endian HCI-wire address into the
// big-endian-packed uint64 the rest of the proxy uses.
func bdaddrFromWire(addr [6]byte) uint64 {
	var v uint64
	for i := 5; i >= 0; i-- {
		v = v<<8 | uint64(addr[i])
	}
	return v
}
