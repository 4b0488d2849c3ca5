package quirk

import "irqhook-go/types"

// VendorIntel is the only vendor the default table covers.
const VendorIntel types.VendorID = 0x8086

// DefaultIdentities lists the I2C host controllers known to carry the
// shared-IRQ quirk. Affected notebooks use the following device IDs with
// their controllers.
var DefaultIdentities = []types.Identity{
	{Vendor: VendorIntel, Device: 0x51e8},
	{Vendor: VendorIntel, Device: 0x51e9},
	{Vendor: VendorIntel, Device: 0x51c5},
	{Vendor: VendorIntel, Device: 0x51c6},
}

// Matcher decides whether an enumerated device belongs to the affected
// controller class. Exact allow-list membership, nothing fuzzy.
type Matcher struct {
	allow map[types.Identity]struct{}
}

// NewMatcher builds a matcher over a fixed allow-list.
func NewMatcher(ids ...types.Identity) Matcher {
	m := Matcher{allow: make(map[types.Identity]struct{}, len(ids))}
	for _, id := range ids {
		m.allow[id] = struct{}{}
	}
	return m
}

// DefaultMatcher matches the compiled-in controller table.
func DefaultMatcher() Matcher {
	return NewMatcher(DefaultIdentities...)
}

// Matches reports whether (vendor, device) is in the allow-list.
func (m Matcher) Matches(vendor types.VendorID, device types.DeviceID) bool {
	_, ok := m.allow[types.Identity{Vendor: vendor, Device: device}]
	return ok
}
