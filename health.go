package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gitlab.com/tinyland/lab/rootbar/cache"
	"gitlab.com/tinyland/lab/rootbar/sink"
)

// HealthStatus is the --health --json output.
type HealthStatus struct {
	Status   string     `json:"status"`
	Line     string     `json:"line,omitempty"`
	Updated  *time.Time `json:"updated,omitempty"`
	Age      string     `json:"age,omitempty"`
	Stale    bool       `json:"stale"`
	Error    string     `json:"error,omitempty"`
	Interval string     `json:"interval"`
}

// healthNow is overridable for testing.
var healthNow = time.Now

// checkHealth reports whether a running daemon is publishing. It is healthy
// if the last recorded line is younger than 2x the renderer interval.
// Returns exit code 0 for healthy, 1 for stale or missing.
func checkHealth(store *cache.Store, interval time.Duration, jsonOutput bool, stdout, stderr io.Writer) int {
	status := HealthStatus{Interval: interval.String()}

	rec, err := sink.LastRecord(store)
	switch {
	case err != nil:
		status.Status = "error"
		status.Error = err.Error()
		status.Stale = true
	case rec == nil:
		status.Status = "missing"
		status.Error = "no line has been published"
		status.Stale = true
	default:
		staleThreshold := 2 * interval
		age := healthNow().Sub(rec.Updated)
		status.Line = rec.Line
		status.Updated = &rec.Updated
		status.Age = age.Round(time.Millisecond).String()
		status.Stale = age > staleThreshold
		status.Status = "ok"
		if status.Stale {
			status.Status = "stale"
		}
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(status, "", "  ")
		fmt.Fprintln(stdout, string(data))
	} else {
		switch status.Status {
		case "ok":
			fmt.Fprintf(stdout, "rootbar healthy (last line %s ago)\n", status.Age)
			fmt.Fprintf(stdout, "  %s\n", status.Line)
		case "stale":
			fmt.Fprintf(stderr, "rootbar stale (last line %s ago, threshold %s)\n", status.Age, 2*interval)
		default:
			fmt.Fprintf(stderr, "rootbar not running (%s)\n", status.Error)
		}
	}

	if status.Stale {
		return 1
	}
	return 0
}

// printLastLine writes the last recorded line to stdout. Returns 1 if none
// has been recorded.
func printLastLine(store *cache.Store, stdout, stderr io.Writer) int {
	rec, err := sink.LastRecord(store)
	if err != nil {
		fmt.Fprintf(stderr, "rootbar: read last line: %v\n", err)
		return 1
	}
	if rec == nil {
		fmt.Fprintln(stderr, "rootbar: no line has been published")
		return 1
	}
	fmt.Fprintln(stdout, rec.Line)
	return 0
}
