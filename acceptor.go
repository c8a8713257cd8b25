package btproxy

import (
	"context"
	"net"

	"github.com/sirupsen/logrus"
)

// RunAcceptor binds addr and serves ESPHome native-API sessions until ctx
// is canceled (§4.G). Each accepted connection gets its own bus
// subscription and its own session+fanout goroutine; one connection's
// failure never affects another or the acceptor itself.
func RunAcceptor(ctx context.Context, addr string, pctx *ProxyContext, bus *Bus, log *logrus.Entry) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	log.WithField("addr", addr).Info("accepting connections")

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			log.WithError(err).Warn("accept error")
			continue
		}

		sessionLog := log.WithField("remote", conn.RemoteAddr().String())
		sub := bus.Subscribe()
		sess := NewSession(pctx, sessionLog)
		go RunFanout(ctx, conn, sess, sub, sessionLog)
	}
}
