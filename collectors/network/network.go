// Package network provides the address source: the IPv4 addresses of an
// allow-listed set of interfaces, each annotated with the SSID of the
// wireless network it is associated with, if any.
package network

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/netip"

	psnet "github.com/shirou/gopsutil/v4/net"

	"gitlab.com/tinyland/lab/rootbar/collectors"
	"gitlab.com/tinyland/lab/rootbar/internal/format"
)

// Address is one IPv4 address shown in the status line.
type Address struct {
	IP   string `json:"ip"`
	SSID string `json:"ssid,omitempty"`
}

// String renders "ip[ssid]", or the bare ip without an SSID.
func (a Address) String() string {
	if a.SSID == "" {
		return a.IP
	}
	return a.IP + "[" + a.SSID + "]"
}

// SSIDResolver maps wireless interface names to the SSID they are
// currently associated with. Interfaces that are not associated are absent.
type SSIDResolver interface {
	SSIDs(ctx context.Context) (map[string]string, error)
}

// Source enumerates interface addresses.
type Source struct {
	allow    map[string]bool
	resolver SSIDResolver
	logger   *slog.Logger

	interfaces func(ctx context.Context) (psnet.InterfaceStatList, error)
}

// NewSource creates an address source for the named interfaces. An empty
// allow-list yields an empty address list every tick. resolver may be nil,
// in which case no address is annotated.
func NewSource(allow []string, resolver SSIDResolver, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	m := make(map[string]bool, len(allow))
	for _, name := range allow {
		m[name] = true
	}
	return &Source{
		allow:      m,
		resolver:   resolver,
		logger:     logger,
		interfaces: psnet.InterfacesWithContext,
	}
}

// Name returns the metric name.
func (s *Source) Name() string {
	return collectors.MetricNetwork
}

// Sample lists allow-listed IPv4 addresses in enumeration order, keeping
// only the first occurrence of each address.
func (s *Source) Sample(ctx context.Context) ([]Address, error) {
	if len(s.allow) == 0 {
		return []Address{}, nil
	}

	ifaces, err := s.interfaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("network: list interfaces: %w", err)
	}

	ssids := s.lookupSSIDs(ctx)

	var addrs []Address
	for _, iface := range ifaces {
		if !s.allow[iface.Name] {
			continue
		}
		for _, a := range iface.Addrs {
			ip, ok := parseIPv4(a.Addr)
			if !ok {
				continue
			}
			addrs = append(addrs, Address{IP: ip, SSID: ssids[iface.Name]})
		}
	}

	addrs = format.UniqueBy(addrs, func(a Address) string { return a.IP })
	if addrs == nil {
		addrs = []Address{}
	}
	return addrs, nil
}

// lookupSSIDs asks the resolver for SSIDs. A failure only means addresses
// go unannotated this tick.
func (s *Source) lookupSSIDs(ctx context.Context) map[string]string {
	if s.resolver == nil {
		return nil
	}
	ssids, err := s.resolver.SSIDs(ctx)
	if err != nil {
		s.logger.Debug("ssid lookup failed", "error", err)
		return nil
	}
	return ssids
}

// parseIPv4 accepts "a.b.c.d/nn" or a bare address and reports whether it
// is IPv4.
func parseIPv4(s string) (string, bool) {
	if p, err := netip.ParsePrefix(s); err == nil {
		addr := p.Addr()
		return addr.String(), addr.Is4()
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return "", false
	}
	return addr.String(), addr.Is4()
}

var _ collectors.Source[[]Address] = (*Source)(nil)
