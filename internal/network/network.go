// Package network resolves a network name to the descriptor used for id
// storage and provider selection.
package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"

	"github.com/kingrea/dfxcore/internal/config"
	"github.com/kingrea/dfxcore/internal/dfxerr"
)

const (
	// Local is the reserved name of the developer's own replica.
	Local = "local"
	// IC is the reserved name of the production network.
	IC = "ic"
)

// Descriptor is a resolved network.
type Descriptor struct {
	Name      string
	Providers []string
	Type      config.NetworkType
	IsIC      bool
	// LocalBind is set for local-shaped networks.
	LocalBind string
}

// IsEphemeral reports whether ids for the network live in .dfx.
func (d Descriptor) IsEphemeral() bool {
	return d.Type == config.NetworkTypeEphemeral
}

// Resolve returns the descriptor for name. A nil manifest behaves like an
// empty one, so "local" and "ic" always resolve.
func Resolve(cfg *config.ConfigInterface, name string) (Descriptor, error) {
	entry, ok := cfg.GetNetwork(name)
	if !ok {
		return Descriptor{}, dfxerr.NotFound("Network not found: %s", name)
	}
	desc := Descriptor{Name: name, Type: entry.Type}
	if entry.IsLocal() {
		desc.LocalBind = entry.Bind
		desc.Providers = []string{"http://" + entry.Bind}
	} else {
		desc.Providers = append([]string(nil), entry.Providers...)
	}
	desc.IsIC = IsIC(name, desc.Providers)
	return desc, nil
}

// IsIC reports whether the network is the production network, either by
// its reserved name or because it points at the production gateway.
func IsIC(name string, providers []string) bool {
	if name == IC {
		return true
	}
	for _, provider := range providers {
		if provider == config.DefaultICGateway || provider == config.DefaultICGatewayTrailingSlash {
			return true
		}
	}
	return false
}

// ToSocketAddr resolves host:port and returns the first address. No
// addresses is ErrNotFound, a resolver failure is ErrIO.
func ToSocketAddr(hostport string) (netip.AddrPort, error) {
	host, portText, err := net.SplitHostPort(hostport)
	if err != nil {
		return netip.AddrPort{}, dfxerr.IO("failed to parse socket address %q: %v", hostport, err)
	}
	port, err := net.LookupPort("tcp", portText)
	if err != nil {
		return netip.AddrPort{}, dfxerr.IO("failed to resolve port in %q: %v", hostport, err)
	}
	addrs, err := net.DefaultResolver.LookupNetIP(context.Background(), "ip", host)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return netip.AddrPort{}, dfxerr.NotFound("Unable to resolve %s: no addresses found", hostport)
		}
		return netip.AddrPort{}, dfxerr.IO("failed to resolve %s: %v", hostport, err)
	}
	if len(addrs) == 0 {
		return netip.AddrPort{}, dfxerr.NotFound("Unable to resolve %s: no addresses found", hostport)
	}
	return netip.AddrPortFrom(addrs[0].Unmap(), uint16(port)), nil
}

// LocalBindAddress resolves the bind address of the "local" network. A
// provider-shaped "local" entry is an error; when the manifest has no
// opinion the fallback address is used.
func LocalBindAddress(cfg *config.ConfigInterface, fallback string) (netip.AddrPort, error) {
	entry, ok := cfg.GetNetwork(Local)
	if !ok {
		return ToSocketAddr(fallback)
	}
	if !entry.IsLocal() {
		return netip.AddrPort{}, dfxerr.Config("Expected there to be a local network with a bind address.")
	}
	addr, err := ToSocketAddr(entry.Bind)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("network: local bind address: %w", err)
	}
	return addr, nil
}
