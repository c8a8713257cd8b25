package btproxy

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/linux-bt-proxy/linux-bt-proxy/wire"
)

// readFrame blocks until a complete frame arrives on conn or the deadline
// passes.
func readFrame(t *testing.T, conn net.Conn) (msgType uint32, payload []byte) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var buf []byte
	tmp := make([]byte, 4096)
	for {
		if typ, p, _, ok := wire.NextFrame(buf); ok {
			return typ, p
		}
		n, err := conn.Read(tmp)
		if err != nil {
			t.Fatalf("readFrame: %v", err)
		}
		buf = append(buf, tmp[:n]...)
	}
}

// TestEndToEndHandshakeAndAdvertisements exercises spec scenarios 1, 2, 3
// and 4 against a single session driven over an in-memory pipe: handshake,
// device info, ping, and gated advertisement forwarding.
func TestEndToEndHandshakeAndAdvertisements(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	bus := NewBus()
	sub := bus.Subscribe()
	pctx := testContext()
	sess := NewSession(pctx, discardLog())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go RunFanout(ctx, server, sess, sub, discardLog())

	// Scenario 1: handshake.
	client.Write(wire.Encode(wire.MsgHelloRequest, wire.HelloRequest{ClientInfo: "hass"}.Marshal()))
	typ, helloPayload := readFrame(t, client)
	if typ != wire.MsgHelloResponse {
		t.Fatalf("expected HelloResponse, got %#x", typ)
	}
	hello, ok := wire.UnmarshalHelloResponse(helloPayload)
	if !ok || hello.ServerInfo != "linux_bt_proxy" || hello.Name != "Linux Bluetooth Proxy" {
		t.Fatalf("HelloResponse = %+v, ok=%v, want fixed server_info/name identity constants", hello, ok)
	}

	client.Write(wire.Encode(wire.MsgConnectRequest, wire.ConnectRequest{}.Marshal()))
	typ, _ = readFrame(t, client)
	if typ != wire.MsgConnectResponse {
		t.Fatalf("expected ConnectResponse, got %#x", typ)
	}

	// Scenario 2: device info.
	client.Write(wire.Encode(wire.MsgDeviceInfoRequest, nil))
	typ, payload := readFrame(t, client)
	if typ != wire.MsgDeviceInfoResponse {
		t.Fatalf("expected DeviceInfoResponse, got %#x", typ)
	}
	if len(payload) == 0 {
		t.Fatal("empty DeviceInfoResponse payload")
	}

	// Scenario 3: ping keep-alive.
	client.Write(wire.Encode(wire.MsgPingRequest, nil))
	typ, _ = readFrame(t, client)
	if typ != wire.MsgPingResponse {
		t.Fatalf("expected PingResponse, got %#x", typ)
	}

	// Scenario 4: advertisement forwarding, gated by subscribe/unsubscribe.
	client.Write(wire.Encode(wire.MsgSubscribeBluetoothLEAdvertisementsRequest, nil))
	time.Sleep(50 * time.Millisecond) // let the dispatch land before publishing

	bus.Publish(Advertisement{Address: 0x112233445566, RSSI: -42, Name: []byte("test")})

	typ, payload = readFrame(t, client)
	if typ != wire.MsgBluetoothLEAdvertisementResponse {
		t.Fatalf("expected BluetoothLEAdvertisementResponse, got %#x", typ)
	}
	adv, ok := wire.UnmarshalBluetoothLEAdvertisementResponse(payload)
	if !ok || adv.Address != 0x112233445566 || adv.RSSI != -42 || !bytes.Equal(adv.Name, []byte("test")) {
		t.Fatalf("forwarded advertisement mismatch: %+v ok=%v", adv, ok)
	}

	client.Write(wire.Encode(wire.MsgUnsubscribeBluetoothLEAdvertisementsRequest, nil))
	time.Sleep(50 * time.Millisecond)

	bus.Publish(Advertisement{Address: 0xAAAAAAAAAAAA, RSSI: -10})

	client.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	tmp := make([]byte, 64)
	if _, err := client.Read(tmp); err == nil {
		t.Fatal("received a frame after unsubscribe")
	}
}

func TestAcceptorServesMultipleSessions(t *testing.T) {
	addr := "127.0.0.1:16053"

	bus := NewBus()
	pctx := testContext()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := RunAcceptor(ctx, addr, pctx, bus, discardLog()); err != nil {
			t.Logf("acceptor exited: %v", err)
		}
	}()
	time.Sleep(50 * time.Millisecond)

	for i := 0; i < 2; i++ {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			t.Fatalf("dial %d: %v", i, err)
		}
		conn.Write(wire.Encode(wire.MsgHelloRequest, wire.HelloRequest{}.Marshal()))
		typ, _ := readFrame(t, conn)
		if typ != wire.MsgHelloResponse {
			t.Fatalf("conn %d: expected HelloResponse, got %#x", i, typ)
		}
		conn.Close()
	}
}
