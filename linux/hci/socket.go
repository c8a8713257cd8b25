// Package hci opens a raw HCI socket and parses LE advertising reports off
// it directly, without going through BlueZ's D-Bus management layer. It is
// one of the two interchangeable advertisement producers; see package
// bluez for the other.
package hci

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Bluetooth address family and protocol, absent from golang.org/x/sys/unix
// because it has no typed Sockaddr for AF_BLUETOOTH.
const (
	afBluetooth = 31
	btprotoHCI  = 1
)

// HCI socket channels (include/net/bluetooth/hci_sock.h).
const (
	ChannelRaw     = 0
	ChannelUser    = 1
	ChannelMonitor = 2
)

// DevNone is the wildcard adapter index used for monitor-channel sockets,
// which observe every adapter rather than one in particular.
const DevNone = 0xFFFF

type rawSockaddrHCI struct {
	Family  uint16
	Dev     uint16
	Channel uint16
}

// bind issues the bind(2) syscall directly: x/sys/unix's Sockaddr
// interface cannot be extended for AF_BLUETOOTH from outside the package,
// so the address is hand-assembled the way the HCI struct requires.
func bind(fd int, dev int, channel uint16) error {
	sa := rawSockaddrHCI{Family: afBluetooth, Dev: uint16(dev), Channel: channel}
	_, _, errno := unix.Syscall(unix.SYS_BIND, uintptr(fd), uintptr(unsafe.Pointer(&sa)), unsafe.Sizeof(sa))
	if errno != 0 {
		return errno
	}
	return nil
}

// Socket is one open, bound AF_BLUETOOTH/BTPROTO_HCI raw socket.
type Socket struct {
	fd      int
	rmu     sync.Mutex
	wmu     sync.Mutex
	Channel uint16
	Dev     int
}

// Open tries user-channel mode on the requested adapter index first, since
// it receives only this adapter's events and does not require the
// CAP_NET_RAW privilege monitor mode needs on some kernels; on failure it
// falls back to monitor-channel mode on the device wildcard, which any
// process with BlueZ running can usually still read. The channel that won
// is returned on the Socket so the caller can log it.
func Open(adapterIndex int) (*Socket, error) {
	fd, err := unix.Socket(afBluetooth, unix.SOCK_RAW, btprotoHCI)
	if err != nil {
		return nil, fmt.Errorf("hci: socket: %w", err)
	}
	if err := bind(fd, adapterIndex, ChannelUser); err == nil {
		return &Socket{fd: fd, Channel: ChannelUser, Dev: adapterIndex}, nil
	}
	unix.Close(fd)

	fd, err = unix.Socket(afBluetooth, unix.SOCK_RAW, btprotoHCI)
	if err != nil {
		return nil, fmt.Errorf("hci: socket (monitor fallback): %w", err)
	}
	if err := bind(fd, DevNone, ChannelMonitor); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("hci: bind user and monitor channel both failed: %w", err)
	}
	return &Socket{fd: fd, Channel: ChannelMonitor, Dev: DevNone}, nil
}

func (s *Socket) Read(b []byte) (int, error) {
	s.rmu.Lock()
	defer s.rmu.Unlock()
	return unix.Read(s.fd, b)
}

func (s *Socket) Write(b []byte) (int, error) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return unix.Write(s.fd, b)
}

func (s *Socket) Close() error {
	return unix.Close(s.fd)
}

// FD returns the underlying file descriptor.
func (s *Socket) FD() int {
	return s.fd
}
