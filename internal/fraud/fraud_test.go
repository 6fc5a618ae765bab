package fraud

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIdentity() Identity {
	return Identity{
		DeviceID:           "7f9a1e6e-1111-2222-3333-444455556666",
		OSFamily:           "linux",
		OSVersion:          "6.8",
		DeviceManufacturer: "Dell",
		DeviceModel:        "XPS 13",
		User:               "alex",
		LocalIP:            "192.168.1.20",
		MACAddress:         "aa:bb:cc:dd:ee:ff",
	}
}

func fixedBuilder(t *testing.T) *Builder {
	t.Helper()
	b, err := NewBuilder(testIdentity())
	require.NoError(t, err)
	b.now = func() time.Time {
		return time.Date(2026, time.March, 5, 14, 30, 0, 0, time.UTC)
	}
	ids := []string{"req-1", "req-2"}
	b.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}
	return b
}

func TestBuild_AllHeadersPresent(t *testing.T) {
	h := fixedBuilder(t).Build()

	want := []string{
		"Gov-Client-Connection-Method",
		"Gov-Client-Device-ID",
		"Gov-Client-User-Ids",
		"Gov-Client-Timezone",
		"Gov-Client-Local-IPs",
		"Gov-Client-Local-IPs-Timestamp",
		"Gov-Client-MAC-Addresses",
		"Gov-Client-Multi-Factor",
		"Gov-Client-Screens",
		"Gov-Client-Window-Size",
		"Gov-Client-User-Agent",
		"Gov-Vendor-Version",
		"Gov-Vendor-Product-Name",
		"Gov-Vendor-License-IDs",
		"X-Request-ID",
	}
	for _, key := range want {
		_, ok := h[key]
		assert.True(t, ok, "missing header %s", key)
	}
	assert.Len(t, h, len(want))
}

func TestBuild_Values(t *testing.T) {
	h := fixedBuilder(t).Build()

	assert.Equal(t, "OTHER_DIRECT", h["Gov-Client-Connection-Method"])
	assert.Equal(t, "7f9a1e6e-1111-2222-3333-444455556666", h["Gov-Client-Device-ID"])
	assert.Equal(t, "os=alex", h["Gov-Client-User-Ids"])
	assert.Equal(t, "UTC+00:00", h["Gov-Client-Timezone"])
	assert.Equal(t, "192.168.1.20", h["Gov-Client-Local-IPs"])
	assert.Equal(t, "2026-03-05T14:30:00.000Z", h["Gov-Client-Local-IPs-Timestamp"])
	assert.Equal(t, "aa%3Abb%3Acc%3Add%3Aee%3Aff", h["Gov-Client-MAC-Addresses"])
	assert.Equal(t, "vatbridge=1.0", h["Gov-Vendor-Version"])
	assert.Equal(t, "vatbridge", h["Gov-Vendor-Product-Name"])

	// The user agent is a urlencoded key/value set.
	assert.Contains(t, h["Gov-Client-User-Agent"], "os-family=linux")
	assert.Contains(t, h["Gov-Client-User-Agent"], "device-model=XPS+13")
}

func TestBuild_EmptyButPresentHeaders(t *testing.T) {
	h := fixedBuilder(t).Build()
	for _, key := range []string{
		"Gov-Client-Multi-Factor",
		"Gov-Client-Screens",
		"Gov-Client-Window-Size",
		"Gov-Vendor-License-IDs",
	} {
		v, ok := h[key]
		require.True(t, ok, key)
		assert.Empty(t, v, key)
	}
}

func TestBuild_FreshRequestID(t *testing.T) {
	b := fixedBuilder(t)
	assert.Equal(t, "req-1", b.Build()["X-Request-ID"])
	assert.Equal(t, "req-2", b.Build()["X-Request-ID"])
}

func TestNewBuilder_RequiresIdentity(t *testing.T) {
	id := testIdentity()
	id.OSVersion = ""
	_, err := NewBuilder(id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "os version")
}

func TestDetectIdentity(t *testing.T) {
	id := DetectIdentity()
	assert.NotEmpty(t, id.DeviceID)
	assert.NotEmpty(t, id.OSFamily)
	assert.NotEmpty(t, id.LocalIP)
	assert.NotEmpty(t, id.MACAddress)
}
