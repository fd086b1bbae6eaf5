package status

import (
	"fmt"
	"strings"
	"time"

	"gitlab.com/tinyland/lab/rootbar/capability"
	"gitlab.com/tinyland/lab/rootbar/collectors/identity"
	"gitlab.com/tinyland/lab/rootbar/internal/format"
)

// Format renders the status line:
//
//	[host][user] => cpu NN%, mem NN%, net [ip[ssid], ip],<bat> pwr N.NW<ac>, YYYY-MM-DD HH:MM:SS
//
// where <bat> is " bat [b0%, b1%]," listing only enabled batteries (or
// nothing when none are), and <ac> is " [AC]" when the adapter is enabled
// and online.
func Format(id identity.Identity, flags capability.Flags, s Snapshot, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s][%s] => cpu %d%%, mem %d%%, net %s,",
		id.Hostname, id.Username, s.CPU, s.Memory, addressList(s))

	b.WriteString(batterySegment(flags, s))

	fmt.Fprintf(&b, " pwr %.1fW", s.Power)
	if flags.AC && s.AC {
		b.WriteString(" [AC]")
	}

	b.WriteString(", ")
	b.WriteString(now.Format(format.StatusTimeLayout))
	return b.String()
}

func addressList(s Snapshot) string {
	parts := make([]string, len(s.Network))
	for i, a := range s.Network {
		parts[i] = a.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func batterySegment(flags capability.Flags, s Snapshot) string {
	if !flags.AnyBattery() {
		return ""
	}
	var parts []string
	for i := range 2 {
		if flags.Battery[i] {
			parts = append(parts, fmt.Sprintf("%d%%", s.Battery[i]))
		}
	}
	return " bat [" + strings.Join(parts, ", ") + "],"
}
