// Package capability determines, once at startup, which optional metric
// sources exist on this host. The resulting Flags are immutable for the
// life of the process; a source that is absent at startup is never probed
// again.
package capability

import (
	"log/slog"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// DefaultSysfsRoot is the kernel's power supply class directory.
const DefaultSysfsRoot = "/sys/class/power_supply"

// Paths locates the sysfs attributes backing each optional metric.
type Paths struct {
	// Capacity holds the charge percentage file for battery 0 and 1.
	Capacity [2]string
	// PowerNow holds the instantaneous draw file (microwatts) for battery 0 and 1.
	PowerNow [2]string
	// ACOnline is the AC adapter's online file ("1" when plugged in).
	ACOnline string
}

// SysfsPaths builds Paths under root for the given battery device names
// (at most two are used) and AC adapter device name.
func SysfsPaths(root string, batteries []string, acDevice string) Paths {
	var p Paths
	for i := 0; i < len(batteries) && i < 2; i++ {
		p.Capacity[i] = filepath.Join(root, batteries[i], "capacity")
		p.PowerNow[i] = filepath.Join(root, batteries[i], "power_now")
	}
	if acDevice != "" {
		p.ACOnline = filepath.Join(root, acDevice, "online")
	}
	return p
}

// Flags records which optional metrics are enabled.
type Flags struct {
	Battery [2]bool
	Power   [2]bool
	AC      bool
}

// AnyBattery reports whether at least one battery is enabled.
func (f Flags) AnyBattery() bool {
	return f.Battery[0] || f.Battery[1]
}

// AnyPower reports whether at least one power sensor is enabled.
func (f Flags) AnyPower() bool {
	return f.Power[0] || f.Power[1]
}

// readable is overridable for testing.
var readable = func(path string) bool {
	return path != "" && unix.Access(path, unix.R_OK) == nil
}

// Probe checks each path once. Absence is not an error.
func Probe(p Paths, logger *slog.Logger) Flags {
	var f Flags
	for i := range 2 {
		f.Battery[i] = readable(p.Capacity[i])
		f.Power[i] = readable(p.PowerNow[i])
	}
	f.AC = readable(p.ACOnline)

	if logger != nil {
		logger.Info("capabilities probed",
			"battery0", f.Battery[0],
			"battery1", f.Battery[1],
			"power0", f.Power[0],
			"power1", f.Power[1],
			"ac", f.AC,
		)
	}
	return f
}
