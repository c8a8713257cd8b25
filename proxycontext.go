package btproxy

// ProxyContext is the immutable, process-wide identity and configuration
// record shared by every session and by the mDNS publisher. It is built
// once in main() and handed around by pointer.
type ProxyContext struct {
	Hostname     string
	Port         uint16
	NetworkMAC   [6]byte
	BluetoothMAC [6]byte
	BuildTime    string
	Version      string
}

// FriendlyName is the "Linux BT Proxy: {hostname}" string used for both
// DeviceInfoResponse.name and .friendly_name.
func (p *ProxyContext) FriendlyName() string {
	return "Linux BT Proxy: " + p.Hostname
}

// NetworkMACString formats the network MAC in colon form.
func (p *ProxyContext) NetworkMACString() string {
	return FormatColonMAC(BDAddrToUint64(p.NetworkMAC, false))
}

// BluetoothMACString formats the Bluetooth adapter MAC in colon form.
func (p *ProxyContext) BluetoothMACString() string {
	return FormatColonMAC(BDAddrToUint64(p.BluetoothMAC, false))
}

// Pinned ESPHome native-API identity constants (§9: some controllers
// reject proxies advertising an unrecognized esphome_version).
const (
	espHomeVersion              = "2024.8.3"
	deviceModel                 = "Linux"
	legacyBluetoothProxyVersion = 5
	// bluetoothProxyFeatureFlags = passive scan (0x08) | active scan (0x10) | raw advertisements (0x20).
	bluetoothProxyFeatureFlags = 0x08 | 0x10 | 0x20
)

// helloServerInfo and helloName are the fixed HelloResponse identity
// strings every session reports, independent of the host's hostname.
const (
	helloServerInfo = "linux_bt_proxy"
	helloName       = "Linux Bluetooth Proxy"
)
