// Package manpage generates a roff-formatted man page for rootbar.
//
// The OPTIONS section is generated from the command's flag set, so every
// flag the binary accepts is documented with its real usage string.
//
// Usage:
//
//	rootbar --man | man -l -
//	rootbar --man > ~/.local/share/man/man1/rootbar.1
package manpage

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// Generate produces a complete roff-formatted man(1) page for rootbar.
// The version, commit, and date parameters are passed from the build-time
// linker variables so the man page always reflects the current build.
func Generate(flags *pflag.FlagSet, version, commit, date string) string {
	var b strings.Builder

	writeHeader(&b, version)
	writeName(&b)
	writeSynopsis(&b)
	writeDescription(&b)
	writeOptions(&b, flags)
	writeStatusLine(&b)
	writeConfiguration(&b)
	writeFiles(&b)
	writeExamples(&b)
	writeExitStatus(&b)
	writeSeeAlso(&b)
	writeFooter(&b, version, commit, date)

	return b.String()
}

// roffEscape escapes special roff characters in a string.
func roffEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `-`, `\-`)
	s = strings.ReplaceAll(s, `.`, `\&.`)
	return s
}

func writeHeader(b *strings.Builder, version string) {
	month := time.Now().Format("January 2006")
	fmt.Fprintf(b, ".TH ROOTBAR 1 \"%s\" \"rootbar %s\" \"User Commands\"\n", month, version)
}

func writeName(b *strings.Builder) {
	b.WriteString(`.SH NAME
rootbar \- live system status line for the X root window
`)
}

func writeSynopsis(b *strings.Builder) {
	b.WriteString(`.SH SYNOPSIS
.B rootbar
[\fIOPTIONS\fR]
`)
}

func writeDescription(b *strings.Builder) {
	b.WriteString(`.SH DESCRIPTION
.B rootbar
samples battery charge, power draw, AC adapter state, memory pressure,
CPU load and network addresses, and publishes a single status line once per
second. Window managers such as dwm display the root window name as their
status bar.
.PP
Every metric is sampled independently. A metric whose hardware is absent
is never shown; a metric that fails to read keeps its last good value. The
line is published even when every source is failing.
.PP
Sinks:
.IP \(bu 2
.B xroot
(default): sets WM_NAME on the root window (or \fBrenderer.window\fR) over
the X protocol. The display connection is retried until it comes up.
.IP \(bu 2
.B xsetroot
runs \fBxsetroot \-name\fR \fILINE\fR (or \fBrenderer.command\fR).
.IP \(bu 2
.B stdout
writes one line per publish, for piping into another bar.
`)
}

func writeOptions(b *strings.Builder, flags *pflag.FlagSet) {
	b.WriteString(".SH OPTIONS\n")
	if flags == nil {
		return
	}

	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		b.WriteString(".TP\n")

		name := `\-\-` + roffEscape(f.Name)
		if f.Shorthand != "" {
			name = `\-` + f.Shorthand + `, ` + name
		}
		argName, usage := pflag.UnquoteUsage(f)
		if argName != "" {
			fmt.Fprintf(b, ".BR \"%s\" \" \\fI%s\\fR\"\n", name, argName)
		} else {
			fmt.Fprintf(b, ".B %s\n", name)
		}

		if usage != "" {
			b.WriteString(strings.ToUpper(usage[:1]) + usage[1:] + ".")
		}
		if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "[]" {
			fmt.Fprintf(b, " Default: %s.", roffEscape(f.DefValue))
		}
		b.WriteString("\n")
	})
}

func writeStatusLine(b *strings.Builder) {
	b.WriteString(`.SH STATUS LINE
.nf
[\fIhost\fR][\fIuser\fR] => cpu \fIN\fR%, mem \fIN\fR%, net [\fIaddrs\fR],\fI bat\fR pwr \fIN.N\fRW\fI ac\fR, \fIYYYY\-MM\-DD HH:MM:SS\fR
.fi
.PP
\fIaddrs\fR lists IPv4 addresses of the selected interfaces as
\fIaddress\fR[\fISSID\fR] for associated wireless interfaces, separated by
", ". \fIbat\fR is " bat [\fIN\fR%, \fIN\fR%]," with one entry per present
battery, or empty. \fIac\fR is " [AC]" while on mains power.
`)
}

func writeConfiguration(b *strings.Builder) {
	b.WriteString(`.SH CONFIGURATION
Configuration is read from a YAML file at
.B ~/.config/rootbar/config.yaml
by default, or from the path specified with \fB\-\-config\fR. A missing
file means all defaults. Flags override the file.
.SS collector
.TP
.B interval
Duration between sampling passes. Default: "1s".
.TP
.B interfaces
Network interfaces to display. Default: none.
.TP
.B channel_capacity
Buffered samples per metric. Default: 8.
.SS renderer
.TP
.B interval
Duration between published lines. Default: "1s".
.TP
.B sink
One of xroot, xsetroot, stdout. Default: xroot.
.TP
.B window
X window id for the xroot sink; 0 means the root window.
.TP
.B command
Program and leading arguments for the xsetroot sink.
.SS power
.TP
.B sysfs_root
Default: /sys/class/power_supply.
.TP
.B batteries
Up to two battery device names. Default: [BAT0, BAT1].
.TP
.B ac_device
Default: AC.
.SS identity
.TP
.B username
Overrides effective username detection.
.SS daemon
.TP
.B cache_dir
Holds the PID file and last published line. Default: ~/.cache/rootbar.
.TP
.B log_file
Log destination. Default: stderr.
.PP
The retry backoffs \fBcollector.send_retry\fR, \fBrenderer.publish_retry\fR
and \fBidentity.retry\fR take \fBinitial\fR, \fBmax\fR and \fBmultiplier\fR.
`)
}

func writeFiles(b *strings.Builder) {
	b.WriteString(`.SH FILES
.TP
.I ~/.config/rootbar/config.yaml
Configuration file.
.TP
.I ~/.cache/rootbar/status.json
Last published line and its time, read by \fB\-\-print\fR and \fB\-\-health\fR.
.TP
.I ~/.cache/rootbar/rootbar.pid
PID of the running instance.
`)
}

func writeExamples(b *strings.Builder) {
	b.WriteString(`.SH EXAMPLES
Show wireless and wired addresses from .xinitrc:
.PP
.RS
.nf
rootbar \-i wlan0 \-i enp0s31f6 &
exec dwm
.fi
.RE
.PP
Use the last line in a tmux status bar:
.PP
.RS
.nf
set \-g status\-right '#(rootbar \-\-print)'
.fi
.RE
`)
}

func writeExitStatus(b *strings.Builder) {
	b.WriteString(`.SH EXIT STATUS
.TP
.B 0
Success, or healthy with \fB\-\-health\fR.
.TP
.B 1
Error, or stale/missing with \fB\-\-health\fR.
.TP
.B 2
Invalid command line.
`)
}

func writeSeeAlso(b *strings.Builder) {
	b.WriteString(`.SH SEE ALSO
.BR dwm (1),
.BR xsetroot (1),
.BR xprop (1)
`)
}

func writeFooter(b *strings.Builder, version, commit, date string) {
	fmt.Fprintf(b, ".SH VERSION\n%s (%s) built %s\n", version, commit, date)
}
