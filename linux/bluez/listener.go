// Package bluez ingests BLE advertisements through BlueZ's D-Bus object
// model instead of a raw HCI socket; see package hci for the other,
// interchangeable producer.
package bluez

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
)

const (
	ifaceAdapter1 = "org.bluez.Adapter1"
	ifaceDevice1  = "org.bluez.Device1"
	ifaceProps    = "org.freedesktop.DBus.Properties"
	ifaceObjMgr   = "org.freedesktop.DBus.ObjectManager"
	errInProgress = "org.bluez.Error.InProgress"
)

var (
	matchAdapterProps = []dbus.MatchOption{
		dbus.WithMatchInterface(ifaceProps),
		dbus.WithMatchMember("PropertiesChanged"),
		dbus.WithMatchArg(0, ifaceAdapter1),
	}
	matchDeviceProps = []dbus.MatchOption{
		dbus.WithMatchInterface(ifaceProps),
		dbus.WithMatchMember("PropertiesChanged"),
		dbus.WithMatchArg(0, ifaceDevice1),
	}
	matchInterfacesAdded = []dbus.MatchOption{
		dbus.WithMatchInterface(ifaceObjMgr),
		dbus.WithMatchMember("InterfacesAdded"),
	}
)

// PublishFunc receives one fully assembled advertisement as flat fields.
// Its signature differs from hci.PublishFunc, so main() adapts each
// producer with its own closure.
type PublishFunc func(address uint64, addressType uint8, rssi int32, name string, serviceUUIDs []string, serviceData map[string][]byte, manufacturerData map[uint16][]byte)

// Listener drives BlueZ discovery on one adapter and publishes every
// device update it observes.
type Listener struct {
	conn        *dbus.Conn
	adapterPath dbus.ObjectPath
	log         *logrus.Entry
}

// Open connects to the system bus and registers the three match rules
// required by §4.C *before* discovery starts, so no event is missed
// during adapter state transitions.
func Open(adapterIndex int, log *logrus.Entry) (*Listener, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("bluez: connect system bus: %w", err)
	}

	for _, m := range [][]dbus.MatchOption{matchAdapterProps, matchDeviceProps, matchInterfacesAdded} {
		if err := conn.AddMatchSignal(m...); err != nil {
			conn.Close()
			return nil, fmt.Errorf("bluez: add match signal: %w", err)
		}
	}

	return &Listener{
		conn:        conn,
		adapterPath: dbus.ObjectPath(fmt.Sprintf("/org/bluez/hci%d", adapterIndex)),
		log:         log,
	}, nil
}

// Close releases the system bus connection.
func (l *Listener) Close() error {
	return l.conn.Close()
}

func (l *Listener) adapterObj() dbus.BusObject {
	return l.conn.Object("org.bluez", l.adapterPath)
}

// startDiscovery sets an empty discovery filter and starts discovery,
// treating "already discovering" as benign.
func (l *Listener) startDiscovery() error {
	if err := l.adapterObj().Call(ifaceAdapter1+".SetDiscoveryFilter", 0, map[string]interface{}{}).Err; err != nil {
		return fmt.Errorf("bluez: SetDiscoveryFilter: %w", err)
	}
	err := l.adapterObj().Call(ifaceAdapter1+".StartDiscovery", 0).Err
	if dbusErr, ok := err.(dbus.Error); ok && dbusErr.Name == errInProgress {
		l.log.Debug("discovery already in progress")
		return nil
	}
	if err != nil {
		return fmt.Errorf("bluez: StartDiscovery: %w", err)
	}
	return nil
}

// Run starts discovery and processes signals until ctx is canceled or the
// bus connection fails. It restarts discovery whenever Adapter1.Discovering
// flips to false, since the adapter must remain scanning continuously.
func (l *Listener) Run(ctx context.Context, publish PublishFunc) error {
	signals := make(chan *dbus.Signal, 64)
	l.conn.Signal(signals)
	defer l.conn.RemoveSignal(signals)

	if err := l.startDiscovery(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-signals:
			if !ok {
				return nil
			}
			l.handleSignal(sig, publish)
		}
	}
}

func (l *Listener) handleSignal(sig *dbus.Signal, publish PublishFunc) {
	switch sig.Name {
	case ifaceObjMgr + ".InterfacesAdded":
		l.handleInterfacesAdded(sig, publish)
	case ifaceProps + ".PropertiesChanged":
		l.handlePropertiesChanged(sig, publish)
	}
}

func (l *Listener) handleInterfacesAdded(sig *dbus.Signal, publish PublishFunc) {
	if len(sig.Body) != 2 {
		return
	}
	interfaces, ok := sig.Body[1].(map[string]map[string]dbus.Variant)
	if !ok {
		return
	}
	props, ok := interfaces[ifaceDevice1]
	if !ok {
		return
	}
	publishFromVariants(props, publish)
}

func (l *Listener) handlePropertiesChanged(sig *dbus.Signal, publish PublishFunc) {
	if len(sig.Body) < 1 {
		return
	}
	iface, ok := sig.Body[0].(string)
	if !ok {
		return
	}
	switch iface {
	case ifaceAdapter1:
		l.handleAdapterPropertiesChanged(sig)
	case ifaceDevice1:
		l.handleDevicePropertiesChanged(sig, publish)
	}
}

func (l *Listener) handleAdapterPropertiesChanged(sig *dbus.Signal) {
	if !discoveryStoppedSignal(sig) {
		return
	}
	l.log.Info("discovery stopped, restarting")
	if err := l.startDiscovery(); err != nil {
		l.log.WithError(err).Warn("failed to restart discovery")
	}
}

// discoveryStoppedSignal reports whether sig is an Adapter1
// PropertiesChanged signal carrying Discovering=false.
func discoveryStoppedSignal(sig *dbus.Signal) bool {
	if len(sig.Body) < 2 {
		return false
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return false
	}
	discovering, ok := changed["Discovering"]
	if !ok {
		return false
	}
	v, ok := discovering.Value().(bool)
	return ok && !v
}

func (l *Listener) handleDevicePropertiesChanged(sig *dbus.Signal, publish PublishFunc) {
	if len(sig.Body) < 1 {
		return
	}
	objPath := sig.Path
	var props map[string]dbus.Variant
	err := l.conn.Object("org.bluez", objPath).Call(ifaceProps+".GetAll", 0, ifaceDevice1).Store(&props)
	if err != nil {
		l.log.WithError(err).WithField("path", objPath).Debug("GetAll failed for changed device")
		return
	}
	publishFromVariants(props, publish)
}
