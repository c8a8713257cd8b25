package mdns

import "testing"

func TestLastSixHex(t *testing.T) {
	got := lastSixHex("aa:bb:cc:dd:ee:ff")
	if got != "ddeeff" {
		t.Fatalf("lastSixHex = %q, want %q", got, "ddeeff")
	}
}

func TestLastSixHexShortInput(t *testing.T) {
	got := lastSixHex("ab:cd")
	if got != "abcd" {
		t.Fatalf("lastSixHex = %q, want %q", got, "abcd")
	}
}
