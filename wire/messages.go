package wire

import "google.golang.org/protobuf/encoding/protowire"

// Message ids, taken from the numeric "id" option ESPHome attaches to each
// message definition in its native-API protobuf schema. Only the subset
// needed for discovery, device info, entity enumeration, keep-alive and
// raw-advertisement subscription is implemented.
const (
	MsgHelloRequest                                = 0x01
	MsgHelloResponse                               = 0x02
	MsgConnectRequest                              = 0x03
	MsgConnectResponse                             = 0x04
	MsgDisconnectRequest                           = 0x05
	MsgDisconnectResponse                          = 0x06
	MsgPingRequest                                 = 0x07
	MsgPingResponse                                = 0x08
	MsgDeviceInfoRequest                           = 0x09
	MsgDeviceInfoResponse                          = 0x0A
	MsgListEntitiesRequest                         = 0x0B
	MsgListEntitiesDoneResponse                    = 0x0C
	MsgSubscribeBluetoothLEAdvertisementsRequest   = 0x42
	MsgBluetoothLEAdvertisementResponse            = 0x43
	MsgSubscribeBluetoothConnectionsFreeRequest    = 0x50
	MsgBluetoothConnectionsFreeResponse            = 0x51
	MsgUnsubscribeBluetoothLEAdvertisementsRequest = 0x57
)

// --- small helpers over protowire, shared by every message below ---

func appendStringField(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, []byte(v))
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendVarintField(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// appendSignedVarintField encodes v the way protobuf's plain (non-zigzag)
// int32/int64 field types do: sign-extend to 64 bits, then varint-encode.
func appendSignedVarintField(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendBoolField(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	return appendVarintField(b, num, 1)
}

func appendMessageField(b []byte, num protowire.Number, msg []byte) []byte {
	if len(msg) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

// consumeFields walks every field in b, calling set for each one; set
// returns the number of bytes of the field *value* it consumed (the tag
// itself has already been consumed by the caller). Malformed input is
// reported as ok=false.
func consumeFields(b []byte, set func(num protowire.Number, typ protowire.Type, b []byte) (n int)) bool {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return false
		}
		b = b[n:]
		n = set(num, typ, b)
		if n < 0 {
			return false
		}
		b = b[n:]
	}
	return true
}

func consumeString(typ protowire.Type, b []byte, dst *string) int {
	if typ != protowire.BytesType {
		return skipUnknown(typ, b)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return -1
	}
	*dst = string(v)
	return n
}

func consumeBytes(typ protowire.Type, b []byte, dst *[]byte) int {
	if typ != protowire.BytesType {
		return skipUnknown(typ, b)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return -1
	}
	*dst = append([]byte(nil), v...)
	return n
}

func consumeUint32(typ protowire.Type, b []byte, dst *uint32) int {
	if typ != protowire.VarintType {
		return skipUnknown(typ, b)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return -1
	}
	*dst = uint32(v)
	return n
}

func consumeUint64(typ protowire.Type, b []byte, dst *uint64) int {
	if typ != protowire.VarintType {
		return skipUnknown(typ, b)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return -1
	}
	*dst = v
	return n
}

func consumeInt32(typ protowire.Type, b []byte, dst *int32) int {
	if typ != protowire.VarintType {
		return skipUnknown(typ, b)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return -1
	}
	*dst = int32(v)
	return n
}

func skipUnknown(typ protowire.Type, b []byte) int {
	n := protowire.ConsumeFieldValue(0, typ, b)
	if n < 0 {
		return -1
	}
	return n
}

// --- handshake & keep-alive ---

type HelloRequest struct {
	ClientInfo string
}

func (m HelloRequest) Marshal() []byte {
	var b []byte
	return appendStringField(b, 1, m.ClientInfo)
}

func UnmarshalHelloRequest(b []byte) (HelloRequest, bool) {
	var m HelloRequest
	ok := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeString(typ, b, &m.ClientInfo)
		default:
			return skipUnknown(typ, b)
		}
	})
	return m, ok
}

type HelloResponse struct {
	APIVersionMajor uint32
	APIVersionMinor uint32
	ServerInfo      string
	Name            string
}

func (m HelloResponse) Marshal() []byte {
	var b []byte
	b = appendVarintField(b, 1, uint64(m.APIVersionMajor))
	b = appendVarintField(b, 2, uint64(m.APIVersionMinor))
	b = appendStringField(b, 3, m.ServerInfo)
	b = appendStringField(b, 4, m.Name)
	return b
}

func UnmarshalHelloResponse(b []byte) (HelloResponse, bool) {
	var m HelloResponse
	ok := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeUint32(typ, b, &m.APIVersionMajor)
		case 2:
			return consumeUint32(typ, b, &m.APIVersionMinor)
		case 3:
			return consumeString(typ, b, &m.ServerInfo)
		case 4:
			return consumeString(typ, b, &m.Name)
		default:
			return skipUnknown(typ, b)
		}
	})
	return m, ok
}

type ConnectRequest struct {
	Password string
}

func (m ConnectRequest) Marshal() []byte {
	var b []byte
	return appendStringField(b, 1, m.Password)
}

func UnmarshalConnectRequest(b []byte) (ConnectRequest, bool) {
	var m ConnectRequest
	ok := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeString(typ, b, &m.Password)
		default:
			return skipUnknown(typ, b)
		}
	})
	return m, ok
}

type ConnectResponse struct {
	InvalidPassword bool
}

func (m ConnectResponse) Marshal() []byte {
	var b []byte
	return appendBoolField(b, 1, m.InvalidPassword)
}

type DisconnectRequest struct{}

func (DisconnectRequest) Marshal() []byte { return nil }

type DisconnectResponse struct{}

func (DisconnectResponse) Marshal() []byte { return nil }

type PingRequest struct{}

type PingResponse struct{}

func (PingResponse) Marshal() []byte { return nil }

// --- device info & entity listing ---

type DeviceInfoRequest struct{}

type DeviceInfoResponse struct {
	UsesPassword                bool
	Name                        string
	MacAddress                  string
	ESPHomeVersion              string
	CompilationTime             string
	Model                       string
	Manufacturer                string
	FriendlyName                string
	LegacyBluetoothProxyVersion uint32
	BluetoothProxyFeatureFlags  uint32
	BluetoothMacAddress         string
	APIEncryptionSupported      bool
}

func (m DeviceInfoResponse) Marshal() []byte {
	var b []byte
	b = appendBoolField(b, 1, m.UsesPassword)
	b = appendStringField(b, 2, m.Name)
	b = appendStringField(b, 3, m.MacAddress)
	b = appendStringField(b, 4, m.ESPHomeVersion)
	b = appendStringField(b, 5, m.CompilationTime)
	b = appendStringField(b, 6, m.Model)
	b = appendVarintField(b, 11, uint64(m.LegacyBluetoothProxyVersion))
	b = appendVarintField(b, 12, uint64(m.BluetoothProxyFeatureFlags))
	b = appendStringField(b, 13, m.Manufacturer)
	b = appendStringField(b, 14, m.FriendlyName)
	b = appendStringField(b, 18, m.BluetoothMacAddress)
	b = appendBoolField(b, 19, m.APIEncryptionSupported)
	return b
}

type ListEntitiesRequest struct{}

type ListEntitiesDoneResponse struct{}

func (ListEntitiesDoneResponse) Marshal() []byte { return nil }

// --- bluetooth proxy ---

type SubscribeBluetoothLEAdvertisementsRequest struct {
	Flags uint32
}

func UnmarshalSubscribeBluetoothLEAdvertisementsRequest(b []byte) (SubscribeBluetoothLEAdvertisementsRequest, bool) {
	var m SubscribeBluetoothLEAdvertisementsRequest
	ok := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeUint32(typ, b, &m.Flags)
		default:
			return skipUnknown(typ, b)
		}
	})
	return m, ok
}

type UnsubscribeBluetoothLEAdvertisementsRequest struct{}

type ServiceData struct {
	UUID string
	Data []byte
}

func (m ServiceData) marshal() []byte {
	var b []byte
	b = appendStringField(b, 1, m.UUID)
	b = appendBytesField(b, 2, m.Data)
	return b
}

type ManufacturerData struct {
	UUID string
	Data []byte
}

func (m ManufacturerData) marshal() []byte {
	var b []byte
	b = appendStringField(b, 1, m.UUID)
	b = appendBytesField(b, 2, m.Data)
	return b
}

// BluetoothLEAdvertisementResponse is the one outbound message type
// fanned out from the advertisement bus to every subscribed session.
type BluetoothLEAdvertisementResponse struct {
	Address          uint64
	RSSI             int32
	AddressType      uint32
	Name             []byte
	ServiceUUIDs     []string
	ServiceData      []ServiceData
	ManufacturerData []ManufacturerData
}

func (m BluetoothLEAdvertisementResponse) Marshal() []byte {
	var b []byte
	b = appendVarintField(b, 1, m.Address)
	b = appendSignedVarintField(b, 2, int64(m.RSSI))
	b = appendVarintField(b, 3, uint64(m.AddressType))
	b = appendBytesField(b, 4, m.Name)
	for _, u := range m.ServiceUUIDs {
		b = appendStringField(b, 5, u)
	}
	for _, sd := range m.ServiceData {
		b = appendMessageField(b, 6, sd.marshal())
	}
	for _, md := range m.ManufacturerData {
		b = appendMessageField(b, 7, md.marshal())
	}
	return b
}

func UnmarshalBluetoothLEAdvertisementResponse(b []byte) (BluetoothLEAdvertisementResponse, bool) {
	var m BluetoothLEAdvertisementResponse
	ok := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeUint64(typ, b, &m.Address)
		case 2:
			var v int32
			n := consumeInt32(typ, b, &v)
			m.RSSI = v
			return n
		case 3:
			return consumeUint32(typ, b, &m.AddressType)
		case 4:
			return consumeBytes(typ, b, &m.Name)
		case 5:
			if typ != protowire.BytesType {
				return skipUnknown(typ, b)
			}
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return -1
			}
			m.ServiceUUIDs = append(m.ServiceUUIDs, string(v))
			return n
		case 6:
			if typ != protowire.BytesType {
				return skipUnknown(typ, b)
			}
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return -1
			}
			sd, ok := unmarshalServiceData(v)
			if !ok {
				return -1
			}
			m.ServiceData = append(m.ServiceData, sd)
			return n
		case 7:
			if typ != protowire.BytesType {
				return skipUnknown(typ, b)
			}
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return -1
			}
			md, ok := unmarshalManufacturerData(v)
			if !ok {
				return -1
			}
			m.ManufacturerData = append(m.ManufacturerData, md)
			return n
		default:
			return skipUnknown(typ, b)
		}
	})
	return m, ok
}

func unmarshalServiceData(b []byte) (ServiceData, bool) {
	var m ServiceData
	ok := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeString(typ, b, &m.UUID)
		case 2:
			return consumeBytes(typ, b, &m.Data)
		default:
			return skipUnknown(typ, b)
		}
	})
	return m, ok
}

func unmarshalManufacturerData(b []byte) (ManufacturerData, bool) {
	var m ManufacturerData
	ok := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) int {
		switch num {
		case 1:
			return consumeString(typ, b, &m.UUID)
		case 2:
			return consumeBytes(typ, b, &m.Data)
		default:
			return skipUnknown(typ, b)
		}
	})
	return m, ok
}

type SubscribeBluetoothConnectionsFreeRequest struct{}

type BluetoothConnectionsFreeResponse struct {
	Free  uint32
	Limit uint32
}

func (m BluetoothConnectionsFreeResponse) Marshal() []byte {
	var b []byte
	b = appendVarintField(b, 1, uint64(m.Free))
	b = appendVarintField(b, 2, uint64(m.Limit))
	return b
}
