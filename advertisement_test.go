package btproxy

import "testing"

// TestAddressParsingRoundTrip is P3: "AA:BB:CC:DD:EE:FF" maps to
// 0xAABBCCDDEEFF, and BDAddrToUint64 on the little-endian 6-byte form
// [0xFF,0xEE,0xDD,0xCC,0xBB,0xAA] produces the same value.
func TestAddressParsingRoundTrip(t *testing.T) {
	got, err := ParseColonMAC("AA:BB:CC:DD:EE:FF")
	if err != nil {
		t.Fatalf("ParseColonMAC: %v", err)
	}
	want := uint64(0xAABBCCDDEEFF)
	if got != want {
		t.Fatalf("ParseColonMAC = %#x, want %#x", got, want)
	}

	le := [6]byte{0xFF, 0xEE, 0xDD, 0xCC, 0xBB, 0xAA}
	gotLE := BDAddrToUint64(le, true)
	if gotLE != want {
		t.Fatalf("BDAddrToUint64(le) = %#x, want %#x", gotLE, want)
	}
}

func TestFormatColonMAC(t *testing.T) {
	got := FormatColonMAC(0xAABBCCDDEEFF)
	want := "aa:bb:cc:dd:ee:ff"
	if got != want {
		t.Fatalf("FormatColonMAC = %q, want %q", got, want)
	}
}

func TestParseColonMACInvalid(t *testing.T) {
	if _, err := ParseColonMAC("not-a-mac"); err == nil {
		t.Fatal("ParseColonMAC accepted a malformed address")
	}
}
