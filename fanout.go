package btproxy

import (
	"context"
	"io"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/linux-bt-proxy/linux-bt-proxy/wire"
)

// readResult is one net.Conn.Read outcome, shipped from the dedicated
// reader goroutine to the fan-out select loop.
type readResult struct {
	data []byte
	err  error
}

// RunFanout drives a single accepted connection for as long as it lives
// (§4.F): it concurrently waits for inbound bytes and for the next bus
// advertisement, servicing whichever is ready first, then repeats. It
// returns once the connection is closed, a Disconnect completes, the bus
// closes, or a socket error occurs; none of those propagate beyond this
// one session.
func RunFanout(parent context.Context, conn net.Conn, sess *Session, sub *Subscriber, log *logrus.Entry) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	defer conn.Close()

	readCh := make(chan readResult)
	go runReader(ctx, conn, readCh)

	advCh := make(chan RecvResult)
	go runSubscriber(ctx, sub, advCh)

	var inbound []byte
	for {
		select {
		case r := <-readCh:
			if r.err != nil {
				if r.err != io.EOF {
					log.WithError(r.err).Debug("session read error")
				}
				return
			}
			if len(r.data) == 0 {
				return
			}
			inbound = append(inbound, r.data...)
			for {
				msgType, payload, consumed, ok := wire.NextFrame(inbound)
				if !ok {
					break
				}
				inbound = inbound[consumed:]
				respType, respPayload, hasResp := sess.Dispatch(msgType, payload)
				if hasResp {
					if _, err := conn.Write(wire.Encode(respType, respPayload)); err != nil {
						log.WithError(err).Debug("session write error")
						return
					}
				}
				if sess.Closing() {
					return
				}
			}

		case res := <-advCh:
			if res.Closed {
				log.Debug("advertisement bus closed, ending session")
				return
			}
			if res.Lagged > 0 {
				log.WithField("lagged", res.Lagged).Warn("session fell behind advertisement bus")
				continue
			}
			if !sess.Forwarding() {
				continue
			}
			msgType, payload := EncodeAdvertisement(res.Advertisement)
			if _, err := conn.Write(wire.Encode(msgType, payload)); err != nil {
				log.WithError(err).Debug("session write error")
				return
			}
		}
	}
}

func runReader(ctx context.Context, conn net.Conn, out chan<- readResult) {
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		var data []byte
		if n > 0 {
			data = append([]byte(nil), buf[:n]...)
		}
		select {
		case out <- readResult{data: data, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

func runSubscriber(ctx context.Context, sub *Subscriber, out chan<- RecvResult) {
	for {
		res := sub.Recv(ctx)
		select {
		case out <- res:
		case <-ctx.Done():
			return
		}
		if res.Closed {
			return
		}
	}
}
