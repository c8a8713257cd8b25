package wire

import "testing"

func TestVarintRoundTrip(t *testing.T) {
	cases := []uint64{
		0, 1, 127, 128, 300, 16384,
		1 << 31, 1<<63 - 1, 1<<64 - 1,
	}
	for _, v := range cases {
		enc := EncodeVarint(nil, v)
		got, n, err := DecodeVarint(enc)
		if err != nil {
			t.Fatalf("DecodeVarint(%x): %v", enc, err)
		}
		if got != v {
			t.Errorf("DecodeVarint(EncodeVarint(%d)) = %d", v, got)
		}
		if n != len(enc) {
			t.Errorf("DecodeVarint(EncodeVarint(%d)) consumed %d, want %d", v, n, len(enc))
		}
	}
}

func TestDecodeVarintIncomplete(t *testing.T) {
	_, _, err := DecodeVarint([]byte{0x80, 0x80})
	if err != ErrIncomplete {
		t.Errorf("got err %v, want ErrIncomplete", err)
	}
}

func TestDecodeVarintOverlong(t *testing.T) {
	b := make([]byte, 11)
	for i := range b {
		b[i] = 0x80
	}
	_, _, err := DecodeVarint(b)
	if err != ErrOverlong {
		t.Errorf("got err %v, want ErrOverlong", err)
	}
}
