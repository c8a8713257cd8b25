// Package btproxy implements a bridge daemon that makes a Linux host's
// BlueZ-managed Bluetooth LE adapter look like an ESPHome-native Bluetooth
// proxy to a home-automation controller: it ingests BLE advertisements
// from a local radio (via linux/hci or linux/bluez), normalizes them onto
// a bounded fan-out Bus, and serves them to any number of TCP clients
// speaking the ESPHome native API (package wire).
package btproxy
