// Package fraud builds the Gov-Client-* / Gov-Vendor-* fraud prevention
// headers HMRC mandates on every API call. Static values (software and
// device identity) come from configuration; the timestamp and request id are
// generated fresh per request.
package fraud

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"os/user"
	"runtime"
	"time"

	"github.com/google/uuid"
)

// ProductName identifies this software to HMRC.
const ProductName = "vatbridge"

// ProductVersion is the vendor version reported in headers.
const ProductVersion = "1.0"

// Identity is the caller-environment half of the header set, captured at
// configuration time.
type Identity struct {
	DeviceID           string
	OSFamily           string
	OSVersion          string
	DeviceManufacturer string
	DeviceModel        string
	User               string
	LocalIP            string
	MACAddress         string
}

// Validate reports the first required identity field that is unset. Fields
// HMRC accepts as empty (multi-factor, screens) are not identity fields and
// are always emitted as present-but-empty headers.
func (id Identity) Validate() error {
	required := []struct{ name, value string }{
		{"device id", id.DeviceID},
		{"os family", id.OSFamily},
		{"os version", id.OSVersion},
		{"device manufacturer", id.DeviceManufacturer},
		{"device model", id.DeviceModel},
	}
	for _, f := range required {
		if f.value == "" {
			return fmt.Errorf("identity %s not set", f.name)
		}
	}
	return nil
}

// Builder constructs a fresh header set per request.
type Builder struct {
	identity Identity
	now      func() time.Time
	newID    func() string
}

// NewBuilder validates the identity and returns a Builder.
func NewBuilder(id Identity) (*Builder, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	return &Builder{
		identity: id,
		now:      time.Now,
		newID:    uuid.NewString,
	}, nil
}

// Build returns the full header set. Values this bridge cannot genuinely
// supply (multi-factor signals, screen geometry for a headless process) are
// present with empty values: HMRC requires the key even when no value
// exists.
func (b *Builder) Build() map[string]string {
	id := b.identity
	ts := b.now().UTC().Format("2006-01-02T15:04:05.000Z")

	ua := url.Values{}
	ua.Set("os-family", id.OSFamily)
	ua.Set("os-version", id.OSVersion)
	ua.Set("device-manufacturer", id.DeviceManufacturer)
	ua.Set("device-model", id.DeviceModel)

	return map[string]string{
		"Gov-Client-Connection-Method":   "OTHER_DIRECT",
		"Gov-Client-Device-ID":           id.DeviceID,
		"Gov-Client-User-Ids":            "os=" + id.User,
		"Gov-Client-Timezone":            "UTC+00:00",
		"Gov-Client-Local-IPs":           id.LocalIP,
		"Gov-Client-Local-IPs-Timestamp": ts,
		"Gov-Client-MAC-Addresses":       url.QueryEscape(id.MACAddress),
		"Gov-Client-Multi-Factor":        "",
		"Gov-Client-Screens":             "",
		"Gov-Client-Window-Size":         "",
		"Gov-Client-User-Agent":          ua.Encode(),
		"Gov-Vendor-Version":             ProductName + "=" + ProductVersion,
		"Gov-Vendor-Product-Name":        ProductName,
		"Gov-Vendor-License-IDs":         "",
		"X-Request-ID":                   b.newID(),
	}
}

// DetectIdentity gathers what the local environment can supply for a new
// configuration: OS details, username, the outbound local IP, and the MAC
// address of the first hardware interface. Manufacturer and model cannot be
// probed portably and are left for the operator to fill in.
func DetectIdentity() Identity {
	id := Identity{
		DeviceID: uuid.NewString(),
		OSFamily: runtime.GOOS,
	}

	if host, err := os.Hostname(); err == nil {
		id.DeviceModel = host
	}
	if u, err := user.Current(); err == nil {
		id.User = u.Username
	}
	id.LocalIP = outboundIP()
	id.MACAddress = firstMAC()
	return id
}

func outboundIP() string {
	// A UDP dial performs no traffic; it only resolves the local side.
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return "127.0.0.1"
}

func firstMAC() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "00:00:00:00:00:00"
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) == 0 {
			continue
		}
		return iface.HardwareAddr.String()
	}
	return "00:00:00:00:00:00"
}
