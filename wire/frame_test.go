package wire

import (
	"bytes"
	"testing"
)

func TestFrameRoundTrip(t *testing.T) {
	payload := []byte("hello world")
	enc := Encode(0x2A, payload)

	typ, got, consumed, ok := NextFrame(enc)
	if !ok {
		t.Fatalf("NextFrame(%x) returned ok=false", enc)
	}
	if typ != 0x2A {
		t.Errorf("msgType = %#x, want 0x2A", typ)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("payload = %q, want %q", got, payload)
	}
	if consumed != len(enc) {
		t.Errorf("consumed = %d, want %d", consumed, len(enc))
	}
}

// TestFramePartialDelivery is P2: feeding encode(id, msg) one byte at a
// time must yield exactly one complete frame, on the final byte.
func TestFramePartialDelivery(t *testing.T) {
	enc := Encode(0x43, []byte("some advertisement payload bytes"))

	for i := 1; i < len(enc); i++ {
		if _, _, _, ok := NextFrame(enc[:i]); ok {
			t.Fatalf("NextFrame emitted a frame after only %d/%d bytes", i, len(enc))
		}
	}
	if _, _, consumed, ok := NextFrame(enc); !ok || consumed != len(enc) {
		t.Fatalf("NextFrame(full buffer) = consumed=%d ok=%v, want %d true", consumed, ok, len(enc))
	}
}

func TestNextFrameBadDelimiter(t *testing.T) {
	buf := []byte{0x01, 0x00, 0x00}
	if _, _, _, ok := NextFrame(buf); ok {
		t.Errorf("NextFrame with bad delimiter returned ok=true")
	}
}

func TestNextFrameWaitsForMoreBytes(t *testing.T) {
	buf := []byte{Delimiter, 0x05} // length says 5, no type/payload yet
	if _, _, _, ok := NextFrame(buf); ok {
		t.Errorf("NextFrame on a short buffer returned ok=true")
	}
}

func TestNextFrameEmptyPayload(t *testing.T) {
	enc := Encode(0x08, nil)
	typ, payload, consumed, ok := NextFrame(enc)
	if !ok || typ != 0x08 || len(payload) != 0 || consumed != len(enc) {
		t.Fatalf("NextFrame(empty payload) = %#x %v %d %v", typ, payload, consumed, ok)
	}
}
