package bluez

import (
	"testing"

	"github.com/godbus/dbus/v5"
)

// TestDiscoveryRestartOnDiscoveringFalse is scenario 5 at the predicate
// level: an Adapter1 PropertiesChanged signal reporting Discovering=false
// must be recognized by discoveryStoppedSignal, the check that makes
// handleAdapterPropertiesChanged restart discovery.
func TestDiscoveryRestartOnDiscoveringFalse(t *testing.T) {
	sig := &dbus.Signal{
		Name: ifaceProps + ".PropertiesChanged",
		Body: []interface{}{
			ifaceAdapter1,
			map[string]dbus.Variant{"Discovering": dbus.MakeVariant(false)},
			[]string{},
		},
	}
	if !discoveryStoppedSignal(sig) {
		t.Fatal("discoveryStoppedSignal = false, want true for Discovering=false")
	}
}

func TestDiscoveryRestartIgnoresDiscoveringTrue(t *testing.T) {
	sig := &dbus.Signal{
		Body: []interface{}{
			ifaceAdapter1,
			map[string]dbus.Variant{"Discovering": dbus.MakeVariant(true)},
			[]string{},
		},
	}
	if discoveryStoppedSignal(sig) {
		t.Fatal("discoveryStoppedSignal = true, want false for Discovering=true")
	}
}

func TestDiscoveryRestartIgnoresUnrelatedProperty(t *testing.T) {
	sig := &dbus.Signal{
		Body: []interface{}{
			ifaceAdapter1,
			map[string]dbus.Variant{"Powered": dbus.MakeVariant(true)},
			[]string{},
		},
	}
	if discoveryStoppedSignal(sig) {
		t.Fatal("discoveryStoppedSignal = true for a signal with no Discovering property")
	}
}
