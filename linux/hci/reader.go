package hci

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// PublishFunc receives one fully assembled advertisement. It mirrors
// btproxy.Advertisement's shape without importing the root package, so
// the caller (typically cmd/linux-bt-proxy/main.go) adapts it with a one-
// line closure.
type PublishFunc func(address uint64, addressType uint8, rssi int32, ad AdvertisingData)

const readBufSize = 4096

// Reader drives one open Socket, turning packets into parsed reports.
type Reader struct {
	sock *Socket
	log  *logrus.Entry
}

// NewReader wraps an already-open Socket.
func NewReader(sock *Socket, log *logrus.Entry) *Reader {
	return &Reader{sock: sock, log: log}
}

// Run reads packets until ctx is canceled or the socket errors, publishing
// one advertisement per successfully parsed report. A malformed report
// only ends processing of the packet it was found in, per §4.B; the
// reader itself keeps running.
func (r *Reader) Run(ctx context.Context, publish PublishFunc) error {
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		r.sock.Close()
		close(done)
	}()

	buf := make([]byte, readBufSize)
	var reports []Report
	for {
		n, err := r.sock.Read(buf)
		if err != nil {
			select {
			case <-done:
				return nil
			default:
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if n == 0 {
			continue
		}

		reports = reports[:0]
		reports = ParsePacket(buf[:n], reports)
		for _, rep := range reports {
			ad := ParseAD(rep.Data)
			publish(rep.Address, rep.AddressType, int32(rep.RSSI), ad)
		}
	}
}
