package network

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/mdlayher/wifi"
)

// WiFiResolver looks SSIDs up over nl80211. The netlink connection is opened
// on first use and reopened after a failure, so a host without wireless
// support just never reports an SSID.
type WiFiResolver struct {
	logger *slog.Logger

	mu     sync.Mutex
	client *wifi.Client
}

// NewWiFiResolver creates a resolver. No connection is made until SSIDs is
// first called.
func NewWiFiResolver(logger *slog.Logger) *WiFiResolver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &WiFiResolver{logger: logger}
}

// SSIDs returns the SSID of every associated wireless interface.
func (r *WiFiResolver) SSIDs(ctx context.Context) (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client == nil {
		c, err := wifi.New()
		if err != nil {
			return nil, fmt.Errorf("network: open nl80211: %w", err)
		}
		r.client = c
	}

	ifaces, err := r.client.Interfaces()
	if err != nil {
		r.closeLocked()
		return nil, fmt.Errorf("network: list wireless interfaces: %w", err)
	}

	ssids := make(map[string]string, len(ifaces))
	for _, ifi := range ifaces {
		if ifi.Name == "" {
			continue
		}
		bss, err := r.client.BSS(ifi)
		if err != nil {
			// Not associated.
			continue
		}
		if bss.SSID != "" {
			ssids[ifi.Name] = bss.SSID
		}
	}
	return ssids, nil
}

// Close releases the netlink connection.
func (r *WiFiResolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeLocked()
}

func (r *WiFiResolver) closeLocked() error {
	if r.client == nil {
		return nil
	}
	err := r.client.Close()
	r.client = nil
	return err
}

var _ SSIDResolver = (*WiFiResolver)(nil)
