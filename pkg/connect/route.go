// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package connect

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/miekg/dns"
)

const (
	// defaultResolveTimeout is the default DNS query timeout.
	defaultResolveTimeout = 5 * time.Second

	// defaultDNSPort is the standard DNS port.
	defaultDNSPort = "53"

	// DefaultServicePort is the default TLS port for the chat service.
	DefaultServicePort = 443
)

// Route is one candidate network path to the service: a resolved
// address for the service hostname. The hostname is kept alongside the
// address because certificate validation and SNI use the name while the
// TCP dial uses the address.
type Route struct {
	// Hostname is the service name the certificate must cover.
	Hostname string

	// Addr is the resolved address to dial.
	Addr netip.Addr

	// Port is the TCP port to dial.
	Port uint16
}

// Endpoint returns the dialable "host:port" form of the route address.
func (r Route) Endpoint() string {
	return net.JoinHostPort(r.Addr.String(), strconv.Itoa(int(r.Port)))
}

// RouteResolver yields ordered candidate routes for a hostname. An
// empty result with a nil error means resolution succeeded but produced
// no candidates.
type RouteResolver interface {
	// ResolveRoutes resolves candidate routes for the given hostname and
	// port, in preference order.
	ResolveRoutes(ctx context.Context, hostname string, port uint16) ([]Route, error)
}

// StaticResolver is a RouteResolver over a fixed candidate list. It is
// used when addresses are known ahead of time and in tests.
type StaticResolver struct {
	// Routes is returned as-is from every resolution.
	Routes []Route
}

// ResolveRoutes returns the fixed route list.
func (r *StaticResolver) ResolveRoutes(_ context.Context, _ string, _ uint16) ([]Route, error) {
	return r.Routes, nil
}

// ResolverConfig configures the DNS route resolver.
type ResolverConfig struct {
	// Server is the DNS server address ("host" or "host:port"). Empty
	// means the system configuration from /etc/resolv.conf is used.
	Server string

	// Timeout is the per-query timeout. Default: 5s.
	Timeout time.Duration

	// UseTCP switches queries from UDP to TCP.
	UseTCP bool
}

// DNSResolver resolves candidate routes by querying A and AAAA records
// for the service hostname. IPv6 candidates are ordered before IPv4.
type DNSResolver struct {
	client *dns.Client
	server string
}

// NewDNSResolver creates a DNS route resolver with the given
// configuration, applying defaults for unset fields.
func NewDNSResolver(cfg *ResolverConfig) (*DNSResolver, error) {
	if cfg == nil {
		return nil, ErrResolverConfig
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultResolveTimeout
	}

	client := &dns.Client{
		Timeout: timeout,
	}
	if cfg.UseTCP {
		client.Net = "tcp"
	} else {
		client.Net = "udp"
	}

	server := cfg.Server
	if server != "" && !strings.Contains(server, ":") {
		server = server + ":" + defaultDNSPort
	}

	// If no server specified, resolve from system configuration.
	if server == "" {
		systemCfg, err := dns.ClientConfigFromFile("/etc/resolv.conf")
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrResolverConfig, err.Error())
		}
		if len(systemCfg.Servers) == 0 {
			return nil, fmt.Errorf("%w: no nameservers in /etc/resolv.conf", ErrResolverConfig)
		}
		port := systemCfg.Port
		if port == "" {
			port = defaultDNSPort
		}
		server = systemCfg.Servers[0] + ":" + port
	}

	return &DNSResolver{
		client: client,
		server: server,
	}, nil
}

// ResolveRoutes queries AAAA and A records for the hostname and returns
// the candidates in order, IPv6 first. A hostname that resolves to no
// addresses yields an empty slice and a nil error.
func (r *DNSResolver) ResolveRoutes(ctx context.Context, hostname string, port uint16) ([]Route, error) {
	if hostname == "" || strings.ContainsRune(hostname, 0) || len(hostname) > 253 {
		return nil, ErrInvalidHostname
	}
	if port == 0 {
		port = DefaultServicePort
	}

	// If the hostname is already an address literal there is nothing to
	// resolve.
	if addr, err := netip.ParseAddr(hostname); err == nil {
		return []Route{{Hostname: hostname, Addr: addr, Port: port}}, nil
	}

	var routes []Route
	for _, qtype := range []uint16{dns.TypeAAAA, dns.TypeA} {
		addrs, err := r.lookup(ctx, hostname, qtype)
		if err != nil {
			return nil, err
		}
		for _, addr := range addrs {
			routes = append(routes, Route{Hostname: hostname, Addr: addr, Port: port})
		}
	}
	return routes, nil
}

// lookup performs a single typed query and extracts addresses from the
// answer section.
func (r *DNSResolver) lookup(ctx context.Context, hostname string, qtype uint16) ([]netip.Addr, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(hostname), qtype)
	msg.RecursionDesired = true

	resp, _, err := r.client.ExchangeContext(ctx, msg, r.server)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDNSLookupFailed, err.Error())
	}
	if resp == nil {
		return nil, ErrDNSLookupFailed
	}
	if resp.Rcode != dns.RcodeSuccess && resp.Rcode != dns.RcodeNameError {
		return nil, fmt.Errorf("%w: rcode %s", ErrDNSLookupFailed, dns.RcodeToString[resp.Rcode])
	}

	var addrs []netip.Addr
	for _, rr := range resp.Answer {
		var ip net.IP
		switch record := rr.(type) {
		case *dns.AAAA:
			ip = record.AAAA
		case *dns.A:
			ip = record.A
		default:
			continue
		}
		addr, ok := netip.AddrFromSlice(ip)
		if !ok {
			continue
		}
		addrs = append(addrs, addr.Unmap())
	}
	return addrs, nil
}
