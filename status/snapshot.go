// Package status holds the renderer's snapshot of the most recently
// received value for every metric and formats it into the status line.
package status

import (
	"gitlab.com/tinyland/lab/rootbar/collectors/network"
)

// Snapshot is the last value received per metric. The zero value is the
// documented default shown before any sample arrives: 0% CPU and memory,
// 0.0W, AC off, no addresses.
//
// A Snapshot belongs to the renderer goroutine and is never shared.
type Snapshot struct {
	Battery [2]int            `json:"battery"`
	Power   float64           `json:"power"`
	AC      bool              `json:"ac"`
	Memory  int               `json:"memory"`
	CPU     int               `json:"cpu"`
	Network []network.Address `json:"network"`
}
