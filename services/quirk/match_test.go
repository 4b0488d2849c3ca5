package quirk

import (
	"testing"

	"irqhook-go/types"
)

func TestMatcherExactMembership(t *testing.T) {
	m := NewMatcher(
		types.Identity{Vendor: 0x8086, Device: 0x51e8},
		types.Identity{Vendor: 0x1022, Device: 0x790b},
	)

	cases := []struct {
		vendor types.VendorID
		device types.DeviceID
		want   bool
	}{
		{0x8086, 0x51e8, true},
		{0x1022, 0x790b, true},
		{0x8086, 0x790b, false}, // right device, wrong vendor pairing
		{0x1022, 0x51e8, false},
		{0x8086, 0x51e7, false}, // off by one, no fuzzy matching
		{0x0000, 0x0000, false},
	}
	for _, c := range cases {
		if got := m.Matches(c.vendor, c.device); got != c.want {
			t.Errorf("Matches(%04x, %04x) = %v, want %v", c.vendor, c.device, got, c.want)
		}
	}
}

func TestMatcherEmpty(t *testing.T) {
	m := NewMatcher()
	if m.Matches(0x8086, 0x51e8) {
		t.Error("empty matcher accepted a device")
	}
}

func TestDefaultMatcherCoversKnownControllers(t *testing.T) {
	m := DefaultMatcher()
	for _, id := range DefaultIdentities {
		if !m.Matches(id.Vendor, id.Device) {
			t.Errorf("default matcher rejects %s", id)
		}
	}
	if m.Matches(VendorIntel, 0x51c7) {
		t.Error("default matcher accepts an unlisted device")
	}
}
