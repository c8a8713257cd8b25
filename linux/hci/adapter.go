package hci

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// hciGetDevInfo is HCIGETDEVINFO from <linux/hci.h>; the kernel computes
// its ioctl number against sizeof(int) even though the structure it fills
// is much larger, a long-standing quirk of the HCI ioctl API.
const hciGetDevInfo = 0x800448D3

// hciDevInfoSize is sizeof(struct hci_dev_info) on Linux: dev_id(2) +
// name[8] + bdaddr[6] + flags(4) + type(1) + features[8] + 3 bytes of
// padding that align pkt_type + pkt_type(4) + link_policy(4) +
// link_mode(4) + acl_mtu(2) + acl_pkts(2) + sco_mtu(2) + sco_pkts(2) +
// hci_dev_stats (10 u32 fields, 40 bytes) = 92.
const hciDevInfoSize = 2 + 8 + 6 + 4 + 1 + 8 + 3 + 4 + 4 + 4 + 2 + 2 + 2 + 2 + 40

const bdaddrOffset = 2 + 8 // dev_id + name[8]

// AdapterMAC issues HCIGETDEVINFO on a fresh HCI socket to recover the
// adapter's Bluetooth address, reversing it from HCI wire order into the
// big-endian-packed form the rest of the proxy uses.
func AdapterMAC(adapterIndex int) (uint64, error) {
	fd, err := unix.Socket(afBluetooth, unix.SOCK_RAW, btprotoHCI)
	if err != nil {
		return 0, fmt.Errorf("hci: adapter probe socket: %w", err)
	}
	defer unix.Close(fd)

	buf := make([]byte, hciDevInfoSize)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(adapterIndex))

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), hciGetDevInfo, uintptr(unsafe.Pointer(&buf[0])))
	if errno != 0 {
		return 0, fmt.Errorf("hci: HCIGETDEVINFO on adapter %d: %w", adapterIndex, errno)
	}

	var addr [6]byte
	copy(addr[:], buf[bdaddrOffset:bdaddrOffset+6])
	return bdaddrFromWire(addr), nil
}
