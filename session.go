package btproxy

import (
	"github.com/sirupsen/logrus"

	"github.com/linux-bt-proxy/linux-bt-proxy/wire"
)

// Phase is a Session's position in the ESPHome native-API handshake.
type Phase int

const (
	PhaseAwaitingHello Phase = iota
	PhaseHandshaking
	PhaseReady
	PhaseClosing
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingHello:
		return "awaiting_hello"
	case PhaseHandshaking:
		return "handshaking"
	case PhaseReady:
		return "ready"
	case PhaseClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Session is the per-connection protocol state machine (§4.E): it owns
// the handshake phase and the advertisement-subscription flag, and maps
// inbound opcodes to outbound responses. It does no I/O itself — fanout.go
// drives it with decoded frames and writes whatever it returns.
type Session struct {
	ctx           *ProxyContext
	log           *logrus.Entry
	phase         Phase
	advSubscribed bool
}

// NewSession creates a Session in AwaitingHello for one accepted connection.
func NewSession(ctx *ProxyContext, log *logrus.Entry) *Session {
	return &Session{ctx: ctx, log: log, phase: PhaseAwaitingHello}
}

// Forwarding reports whether this session should receive fanned-out
// advertisements right now: resolves Open Question (c) by requiring both
// adv_subscribed and phase == Ready.
func (s *Session) Forwarding() bool {
	return s.advSubscribed && s.phase == PhaseReady
}

// Closing reports whether the session has processed a Disconnect and the
// fan-out loop should tear down after flushing the response.
func (s *Session) Closing() bool {
	return s.phase == PhaseClosing
}

// Dispatch handles one decoded inbound frame and returns the response
// frame to write, if any. Unrecognized opcodes are logged and ignored
// without closing the connection, per §4.E.
func (s *Session) Dispatch(msgType uint32, payload []byte) (respType uint32, respPayload []byte, hasResp bool) {
	switch msgType {
	case wire.MsgHelloRequest:
		if _, ok := wire.UnmarshalHelloRequest(payload); !ok {
			s.log.Warn("malformed HelloRequest, ignoring")
			return 0, nil, false
		}
		s.phase = PhaseHandshaking
		resp := wire.HelloResponse{
			APIVersionMajor: 1,
			APIVersionMinor: 10,
			ServerInfo:      helloServerInfo,
			Name:            helloName,
		}
		return wire.MsgHelloResponse, resp.Marshal(), true

	case wire.MsgConnectRequest:
		if _, ok := wire.UnmarshalConnectRequest(payload); !ok {
			s.log.Warn("malformed ConnectRequest, ignoring")
			return 0, nil, false
		}
		s.phase = PhaseReady
		resp := wire.ConnectResponse{InvalidPassword: false}
		return wire.MsgConnectResponse, resp.Marshal(), true

	case wire.MsgDisconnectRequest:
		s.phase = PhaseClosing
		return wire.MsgDisconnectResponse, wire.DisconnectResponse{}.Marshal(), true

	case wire.MsgPingRequest:
		return wire.MsgPingResponse, wire.PingResponse{}.Marshal(), true

	case wire.MsgDeviceInfoRequest:
		resp := wire.DeviceInfoResponse{
			UsesPassword:                false,
			Name:                        s.ctx.FriendlyName(),
			MacAddress:                  s.ctx.NetworkMACString(),
			ESPHomeVersion:              espHomeVersion,
			CompilationTime:             s.ctx.BuildTime,
			Model:                       deviceModel,
			FriendlyName:                s.ctx.FriendlyName(),
			LegacyBluetoothProxyVersion: legacyBluetoothProxyVersion,
			BluetoothProxyFeatureFlags:  bluetoothProxyFeatureFlags,
			BluetoothMacAddress:         s.ctx.BluetoothMACString(),
			APIEncryptionSupported:      false,
		}
		return wire.MsgDeviceInfoResponse, resp.Marshal(), true

	case wire.MsgListEntitiesRequest:
		return wire.MsgListEntitiesDoneResponse, wire.ListEntitiesDoneResponse{}.Marshal(), true

	case wire.MsgSubscribeBluetoothLEAdvertisementsRequest:
		s.advSubscribed = true
		return 0, nil, false

	case wire.MsgSubscribeBluetoothConnectionsFreeRequest:
		resp := wire.BluetoothConnectionsFreeResponse{Free: 0, Limit: 0}
		return wire.MsgBluetoothConnectionsFreeResponse, resp.Marshal(), true

	case wire.MsgUnsubscribeBluetoothLEAdvertisementsRequest:
		s.advSubscribed = false
		return 0, nil, false

	default:
		s.log.WithField("msg_type", msgType).Debug("unrecognized opcode, ignoring")
		return 0, nil, false
	}
}

// EncodeAdvertisement renders adv as an outbound
// BluetoothLEAdvertisementResponse frame.
func EncodeAdvertisement(adv Advertisement) (msgType uint32, payload []byte) {
	resp := wire.BluetoothLEAdvertisementResponse{
		Address:     adv.Address,
		RSSI:        adv.RSSI,
		AddressType: uint32(adv.AddressType),
		Name:        adv.Name,
	}
	resp.ServiceUUIDs = adv.ServiceUUIDs
	for _, sd := range adv.ServiceData {
		resp.ServiceData = append(resp.ServiceData, wire.ServiceData{UUID: sd.UUID, Data: sd.Data})
	}
	for _, md := range adv.ManufacturerData {
		resp.ManufacturerData = append(resp.ManufacturerData, wire.ManufacturerData{UUID: md.UUID, Data: md.Data})
	}
	return wire.MsgBluetoothLEAdvertisementResponse, resp.Marshal()
}
