package hci

import (
	"bytes"
	"testing"
)

func TestParseADLocalName(t *testing.T) {
	name := []byte("sensor1")
	data := append([]byte{byte(len(name) + 1), adCompleteLocalName}, name...)

	out := ParseAD(data)
	if !bytes.Equal(out.Name, name) {
		t.Fatalf("Name = %q, want %q", out.Name, name)
	}
}

func TestParseAD16BitServiceUUID(t *testing.T) {
	data := []byte{0x03, adComplete16BitServiceUUIDs, 0x0D, 0x18} // 0x180D = Heart Rate
	out := ParseAD(data)
	if len(out.ServiceUUIDs) != 1 || out.ServiceUUIDs[0] != "0000180d-0000-1000-8000-00805f9b34fb" {
		t.Fatalf("ServiceUUIDs = %v", out.ServiceUUIDs)
	}
}

func TestParseADManufacturerData(t *testing.T) {
	data := []byte{0x04, adManufacturerData, 0x4C, 0x00, 0x02}
	out := ParseAD(data)
	if len(out.ManufacturerData) != 1 {
		t.Fatalf("ManufacturerData = %v", out.ManufacturerData)
	}
	if out.ManufacturerData[0].UUID != "76" {
		t.Fatalf("company id = %s, want 76", out.ManufacturerData[0].UUID)
	}
	if !bytes.Equal(out.ManufacturerData[0].Data, []byte{0x02}) {
		t.Fatalf("data = %v", out.ManufacturerData[0].Data)
	}
}

func TestParseADServiceData(t *testing.T) {
	data := []byte{0x04, adServiceData16Bit, 0x0D, 0x18, 0x64}
	out := ParseAD(data)
	if len(out.ServiceData) != 1 || out.ServiceData[0].UUID != "0000180d-0000-1000-8000-00805f9b34fb" {
		t.Fatalf("ServiceData = %v", out.ServiceData)
	}
	if !bytes.Equal(out.ServiceData[0].Data, []byte{0x64}) {
		t.Fatalf("data = %v", out.ServiceData[0].Data)
	}
}

func TestParseADTruncatedStructureStopsCleanly(t *testing.T) {
	data := []byte{0x09, adCompleteLocalName, 'a', 'b'} // declares 9 bytes, only has 2
	out := ParseAD(data)
	if out.Name != nil {
		t.Fatalf("Name = %q, want nil on truncated structure", out.Name)
	}
}
