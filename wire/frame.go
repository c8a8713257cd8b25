package wire

// Delimiter is the single byte that starts every frame on the wire.
const Delimiter = 0x00

// NextFrame looks for one complete frame at the front of buf: delimiter,
// varint payload length, varint message type, then that many payload
// bytes. If a complete frame is present, it returns the message type, the
// payload, the number of bytes the frame occupied, and ok=true; the
// caller is expected to drop buf[:consumed] from its read buffer.
//
// If the delimiter byte is missing (buf is non-empty and buf[0] != 0x00),
// NextFrame returns ok=false with consumed=0 — the caller should treat
// this as a protocol error, since no resynchronization point exists in
// this framing. If buf simply doesn't yet contain a full frame, NextFrame
// also returns ok=false with consumed=0 so the caller can wait for more
// bytes; buf itself is never modified.
func NextFrame(buf []byte) (msgType uint32, payload []byte, consumed int, ok bool) {
	if len(buf) == 0 {
		return 0, nil, 0, false
	}
	if buf[0] != Delimiter {
		return 0, nil, 0, false
	}

	cursor := buf[1:]
	length, n, err := DecodeVarint(cursor)
	if err != nil {
		return 0, nil, 0, false
	}
	cursor = cursor[n:]
	offset := 1 + n

	typ, n, err := DecodeVarint(cursor)
	if err != nil {
		return 0, nil, 0, false
	}
	cursor = cursor[n:]
	offset += n

	if uint64(len(cursor)) < length {
		return 0, nil, 0, false
	}

	payload = make([]byte, length)
	copy(payload, cursor[:length])
	return uint32(typ), payload, offset + int(length), true
}

// Encode serializes one frame: delimiter, varint payload length, varint
// message type, then the payload bytes.
func Encode(msgType uint32, payload []byte) []byte {
	out := make([]byte, 0, 1+2*maxVarintBytes+len(payload))
	out = append(out, Delimiter)
	out = EncodeVarint(out, uint64(len(payload)))
	out = EncodeVarint(out, uint64(msgType))
	out = append(out, payload...)
	return out
}
