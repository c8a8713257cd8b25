package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	btproxy "github.com/linux-bt-proxy/linux-bt-proxy"
	"github.com/linux-bt-proxy/linux-bt-proxy/discovery/mdns"
	"github.com/linux-bt-proxy/linux-bt-proxy/linux/bluez"
	"github.com/linux-bt-proxy/linux-bt-proxy/linux/hci"
	"github.com/linux-bt-proxy/linux-bt-proxy/netinfo"
)

// buildTime is set via -ldflags "-X main.buildTime=..." at build time; if
// the linker left it empty the environment variable is used instead, so
// the build timestamp survives either build path.
var buildTime string

const version = "1.0.0"

func main() {
	app := cli.NewApp()
	app.Name = "linux-bt-proxy"
	app.Usage = "bridge a BlueZ-managed Bluetooth adapter into the ESPHome native API"
	app.Flags = []cli.Flag{
		&cli.IntFlag{
			Name:    "hci",
			Aliases: []string{"a"},
			Value:   0,
			Usage:   "HCI adapter index",
		},
		&cli.StringFlag{
			Name:    "listen",
			Aliases: []string{"l"},
			Value:   ":6053",
			Usage:   "TCP listen address",
		},
		&cli.StringFlag{
			Name:  "hostname",
			Usage: "advertised hostname (defaults to the OS hostname)",
		},
		&cli.StringFlag{
			Name:    "mac",
			Aliases: []string{"m"},
			Usage:   "override the network MAC, XX:XX:XX:XX:XX:XX",
		},
		&cli.BoolFlag{
			Name:  "use-dbus",
			Usage: "ingest advertisements via BlueZ D-Bus instead of a raw HCI socket",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Value: "info",
			Usage: "logrus level: debug, info, warn, error",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	log := logrus.New()
	level, err := logrus.ParseLevel(c.String("log-level"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid --log-level: %v", err), 1)
	}
	log.SetLevel(level)
	entry := logrus.NewEntry(log)

	hostname := c.String("hostname")
	if hostname == "" {
		hostname, err = os.Hostname()
		if err != nil {
			return cli.Exit(fmt.Sprintf("could not determine hostname: %v", err), 1)
		}
	}

	var networkMAC [6]byte
	if s := c.String("mac"); s != "" {
		addr, err := btproxy.ParseColonMAC(s)
		if err != nil {
			return cli.Exit(fmt.Sprintf("invalid --mac: %v", err), 1)
		}
		networkMAC = uint64ToBDAddr(addr)
	} else {
		networkMAC, err = netinfo.PrimaryMAC()
		if err != nil {
			return cli.Exit(fmt.Sprintf("could not determine network MAC: %v", err), 1)
		}
	}

	adapterIndex := c.Int("hci")
	btMACValue, err := hci.AdapterMAC(adapterIndex)
	if err != nil {
		return cli.Exit(fmt.Sprintf("could not determine Bluetooth adapter MAC: %v", err), 1)
	}

	buildTimestamp := buildTime
	if buildTimestamp == "" {
		buildTimestamp = os.Getenv("BUILD_TIME")
	}

	pctx := &btproxy.ProxyContext{
		Hostname:     hostname,
		Port:         uint16(mustParsePort(c.String("listen"))),
		NetworkMAC:   networkMAC,
		BluetoothMAC: uint64ToBDAddr(btMACValue),
		BuildTime:    buildTimestamp,
		Version:      version,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		entry.Info("shutting down")
		cancel()
	}()

	bus := btproxy.NewBus()

	if err := startProducer(ctx, c, adapterIndex, bus, entry); err != nil {
		return cli.Exit(fmt.Sprintf("could not start advertisement producer: %v", err), 1)
	}

	server, err := mdns.Publish(mdns.Config{
		Hostname: pctx.Hostname,
		Port:     int(pctx.Port),
		Version:  pctx.Version,
		MAC:      pctx.BluetoothMACString(),
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("mDNS registration failed: %v", err), 1)
	}
	defer server.Shutdown()

	entry.WithFields(logrus.Fields{
		"hostname": pctx.Hostname,
		"listen":   c.String("listen"),
		"network_mac": pctx.NetworkMACString(),
		"bt_mac":      pctx.BluetoothMACString(),
	}).Info("linux-bt-proxy starting")

	return btproxy.RunAcceptor(ctx, c.String("listen"), pctx, bus, entry)
}

// startProducer launches exactly one advertisement producer: the HCI
// reader by default, or the BlueZ listener when --use-dbus is set. It
// closes bus if the producer ever terminates.
func startProducer(ctx context.Context, c *cli.Context, adapterIndex int, bus *btproxy.Bus, log *logrus.Entry) error {
	if c.Bool("use-dbus") {
		listener, err := bluez.Open(adapterIndex, log.WithField("component", "bluez"))
		if err != nil {
			return err
		}
		go func() {
			defer bus.Close()
			defer listener.Close()
			publish := func(address uint64, addressType uint8, rssi int32, name string, serviceUUIDs []string, serviceData map[string][]byte, manufacturerData map[uint16][]byte) {
				bus.Publish(btproxy.Advertisement{
					Address:          address,
					AddressType:      addressType,
					RSSI:             rssi,
					Name:             []byte(name),
					ServiceUUIDs:     serviceUUIDs,
					ServiceData:      toServiceData(serviceData),
					ManufacturerData: toManufacturerData(manufacturerData),
				})
			}
			if err := listener.Run(ctx, publish); err != nil {
				log.WithError(err).Error("bluez listener terminated")
			}
		}()
		return nil
	}

	sock, err := hci.Open(adapterIndex)
	if err != nil {
		return err
	}
	log.WithField("channel", sock.Channel).Info("opened HCI socket")
	reader := hci.NewReader(sock, log.WithField("component", "hci"))
	go func() {
		defer bus.Close()
		publish := func(address uint64, addressType uint8, rssi int32, ad hci.AdvertisingData) {
			bus.Publish(btproxy.Advertisement{
				Address:          address,
				AddressType:      addressType,
				RSSI:             rssi,
				Name:             ad.Name,
				ServiceUUIDs:     ad.ServiceUUIDs,
				ServiceData:      fromHCIServiceData(ad.ServiceData),
				ManufacturerData: fromHCIManufacturerData(ad.ManufacturerData),
			})
		}
		if err := reader.Run(ctx, publish); err != nil {
			log.WithError(err).Error("hci reader terminated")
		}
	}()
	return nil
}

func toServiceData(m map[string][]byte) []btproxy.ServiceData {
	out := make([]btproxy.ServiceData, 0, len(m))
	for uuid, data := range m {
		out = append(out, btproxy.ServiceData{UUID: uuid, Data: data})
	}
	return out
}

func toManufacturerData(m map[uint16][]byte) []btproxy.ManufacturerData {
	out := make([]btproxy.ManufacturerData, 0, len(m))
	for id, data := range m {
		out = append(out, btproxy.ManufacturerData{UUID: fmt.Sprintf("%d", id), Data: data})
	}
	return out
}

func fromHCIServiceData(in []hci.ServiceData) []btproxy.ServiceData {
	out := make([]btproxy.ServiceData, len(in))
	for i, sd := range in {
		out[i] = btproxy.ServiceData{UUID: sd.UUID, Data: sd.Data}
	}
	return out
}

func fromHCIManufacturerData(in []hci.ManufacturerData) []btproxy.ManufacturerData {
	out := make([]btproxy.ManufacturerData, len(in))
	for i, md := range in {
		out[i] = btproxy.ManufacturerData{UUID: md.UUID, Data: md.Data}
	}
	return out
}

func uint64ToBDAddr(v uint64) [6]byte {
	return [6]byte{
		byte(v >> 40), byte(v >> 32), byte(v >> 24),
		byte(v >> 16), byte(v >> 8), byte(v),
	}
}

func mustParsePort(addr string) int {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 6053
	}
	var port int
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		return 6053
	}
	return port
}
