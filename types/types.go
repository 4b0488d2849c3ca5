package types

import "fmt"

// ---- Bus device identity ----

// VendorID is a PCI vendor identifier.
type VendorID uint16

// DeviceID is a PCI device identifier, scoped to a vendor.
type DeviceID uint16

// Identity is a (vendor, device) pair as reported by bus enumeration.
type Identity struct {
	Vendor VendorID
	Device DeviceID
}

func (id Identity) String() string {
	return fmt.Sprintf("%04x:%04x", uint16(id.Vendor), uint16(id.Device))
}

// IRQLine identifies a hardware interrupt source. It is assigned by the
// host at enumeration time and treated as opaque by everything except the
// interrupt controller that hands it out.
type IRQLine int

// DeviceInfo is one device as exposed by the host's enumeration facility.
type DeviceInfo struct {
	Addr   string // bus address, e.g. "0000:00:15.0"; informational only
	Vendor VendorID
	Device DeviceID
	IRQ    IRQLine
}

func (d DeviceInfo) Identity() Identity {
	return Identity{Vendor: d.Vendor, Device: d.Device}
}

// ---- Interrupt delivery ----

// IRQResult is returned by a handler to tell the host whether it claimed
// the delivery.
type IRQResult int

const (
	IRQNone IRQResult = iota
	IRQHandled
)

// IRQHandler runs in the host's delivery context. It must not block,
// allocate or perform I/O.
type IRQHandler func() IRQResult

// ReleaseFunc undoes exactly one handler registration. Safe to call once;
// callers are expected to drop it afterwards.
type ReleaseFunc func()
