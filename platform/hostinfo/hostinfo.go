// Package hostinfo gathers the machine identity logged once at start-up:
// DMI vendor/product/board from sysfs plus kernel facts from gopsutil.
// Everything here is best-effort; a field the platform does not expose
// just stays empty.
package hostinfo

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
)

// DefaultDMIRoot is the kernel's DMI id directory.
const DefaultDMIRoot = "/sys/class/dmi/id"

// Info is the start-up banner payload.
type Info struct {
	SysVendor   string
	ProductName string
	BoardName   string

	Hostname      string
	Platform      string
	KernelVersion string
}

// Collect reads DMI attributes under dmiRoot ("" selects DefaultDMIRoot)
// and host facts via gopsutil.
func Collect(ctx context.Context, dmiRoot string) Info {
	if dmiRoot == "" {
		dmiRoot = DefaultDMIRoot
	}

	info := Info{
		SysVendor:   readAttr(filepath.Join(dmiRoot, "sys_vendor")),
		ProductName: readAttr(filepath.Join(dmiRoot, "product_name")),
		BoardName:   readAttr(filepath.Join(dmiRoot, "board_name")),
	}

	if hi, err := host.InfoWithContext(ctx); err == nil {
		info.Hostname = hi.Hostname
		info.Platform = hi.Platform
		info.KernelVersion = hi.KernelVersion
	}

	return info
}

// Identity joins vendor and product for one-line logging.
func (i Info) Identity() string {
	switch {
	case i.SysVendor == "" && i.ProductName == "":
		return ""
	case i.ProductName == "":
		return i.SysVendor
	default:
		return i.SysVendor + " " + i.ProductName
	}
}

func readAttr(path string) string {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}
