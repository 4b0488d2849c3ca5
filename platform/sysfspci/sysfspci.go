// Package sysfspci enumerates PCI devices through the kernel's sysfs
// tree. Each device directory under the root exposes vendor, device and
// irq as small text attributes.
package sysfspci

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"irqhook-go/types"
)

// DefaultRoot is where the kernel mounts the per-device PCI directories.
const DefaultRoot = "/sys/bus/pci/devices"

// Enumerator implements types.Enumerator over a sysfs tree. Root is
// swappable so tests can point it at a scratch directory.
type Enumerator struct {
	root string
}

// New returns an enumerator over root; "" selects DefaultRoot.
func New(root string) *Enumerator {
	if root == "" {
		root = DefaultRoot
	}
	return &Enumerator{root: root}
}

// Enumerate walks every device directory in name order (sysfs names are
// BDF addresses, so this is bus order). Devices with unreadable or
// malformed attributes are skipped rather than failing the whole scan.
func (e *Enumerator) Enumerate(ctx context.Context) ([]types.DeviceInfo, error) {
	entries, err := os.ReadDir(e.root)
	if err != nil {
		return nil, fmt.Errorf("sysfspci: reading %s: %w", e.root, err)
	}

	devs := make([]types.DeviceInfo, 0, len(entries))
	for _, ent := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !ent.IsDir() && ent.Type()&os.ModeSymlink == 0 {
			continue
		}
		dir := filepath.Join(e.root, ent.Name())

		vendor, err := readHexAttr(filepath.Join(dir, "vendor"))
		if err != nil {
			continue
		}
		device, err := readHexAttr(filepath.Join(dir, "device"))
		if err != nil {
			continue
		}
		irq, err := readIntAttr(filepath.Join(dir, "irq"))
		if err != nil {
			continue
		}

		devs = append(devs, types.DeviceInfo{
			Addr:   ent.Name(),
			Vendor: types.VendorID(vendor),
			Device: types.DeviceID(device),
			IRQ:    types.IRQLine(irq),
		})
	}

	return devs, nil
}

// readHexAttr reads a sysfs attribute of the form "0x8086\n".
func readHexAttr(path string) (uint16, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	s := strings.TrimSpace(string(raw))
	s = strings.TrimPrefix(s, "0x")
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("sysfspci: parsing %s: %w", path, err)
	}
	return uint16(v), nil
}

// readIntAttr reads a decimal sysfs attribute, e.g. the assigned IRQ.
func readIntAttr(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil {
		return 0, fmt.Errorf("sysfspci: parsing %s: %w", path, err)
	}
	return v, nil
}
