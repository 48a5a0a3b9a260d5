// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package connect

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startMockDNS starts an in-process DNS server backed by the given
// handler and returns its address.
func startMockDNS(t *testing.T, handler dns.Handler) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	started := make(chan struct{})
	server := &dns.Server{
		PacketConn:        pc,
		Handler:           handler,
		NotifyStartedFunc: func() { close(started) },
	}
	go func() {
		_ = server.ActivateAndServe()
	}()
	<-started

	t.Cleanup(func() { _ = server.Shutdown() })
	return pc.LocalAddr().String()
}

// answerHandler responds to A and AAAA queries from a fixed record set.
func answerHandler(t *testing.T, v4 []string, v6 []string) dns.Handler {
	t.Helper()
	return dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
		resp := new(dns.Msg)
		resp.SetReply(req)

		question := req.Question[0]
		switch question.Qtype {
		case dns.TypeA:
			for _, addr := range v4 {
				resp.Answer = append(resp.Answer, &dns.A{
					Hdr: dns.RR_Header{Name: question.Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 60},
					A:   net.ParseIP(addr),
				})
			}
		case dns.TypeAAAA:
			for _, addr := range v6 {
				resp.Answer = append(resp.Answer, &dns.AAAA{
					Hdr:  dns.RR_Header{Name: question.Name, Rrtype: dns.TypeAAAA, Class: dns.ClassINET, Ttl: 60},
					AAAA: net.ParseIP(addr),
				})
			}
		}
		_ = w.WriteMsg(resp)
	})
}

// rcodeHandler responds to every query with the given rcode.
func rcodeHandler(rcode int) dns.Handler {
	return dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
		resp := new(dns.Msg)
		resp.SetRcode(req, rcode)
		_ = w.WriteMsg(resp)
	})
}

func TestStaticResolver(t *testing.T) {
	routes := []Route{testRoute("192.0.2.1", 443)}
	resolver := &StaticResolver{Routes: routes}

	got, err := resolver.ResolveRoutes(context.Background(), "anything", 443)
	require.NoError(t, err)
	assert.Equal(t, routes, got)
}

func TestNewDNSResolver_NilConfig(t *testing.T) {
	_, err := NewDNSResolver(nil)
	assert.ErrorIs(t, err, ErrResolverConfig)
}

func TestNewDNSResolver_AppendsDefaultPort(t *testing.T) {
	resolver, err := NewDNSResolver(&ResolverConfig{Server: "192.0.2.53"})
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.53:53", resolver.server)

	resolver, err = NewDNSResolver(&ResolverConfig{Server: "192.0.2.53:5353"})
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.53:5353", resolver.server)
}

func TestResolveRoutes_InvalidHostname(t *testing.T) {
	resolver, err := NewDNSResolver(&ResolverConfig{Server: "192.0.2.53"})
	require.NoError(t, err)

	for _, hostname := range []string{"", "host\x00name"} {
		_, resolveErr := resolver.ResolveRoutes(context.Background(), hostname, 443)
		assert.ErrorIs(t, resolveErr, ErrInvalidHostname)
	}
}

func TestResolveRoutes_IPLiteralPassthrough(t *testing.T) {
	// Address literals never hit the network; the configured server is
	// unreachable on purpose.
	resolver, err := NewDNSResolver(&ResolverConfig{Server: "192.0.2.53", Timeout: time.Second})
	require.NoError(t, err)

	routes, err := resolver.ResolveRoutes(context.Background(), "192.0.2.7", 0)
	require.NoError(t, err)
	require.Len(t, routes, 1)
	assert.Equal(t, "192.0.2.7:443", routes[0].Endpoint())
	assert.Equal(t, "192.0.2.7", routes[0].Hostname)
}

func TestResolveRoutes_OrdersIPv6First(t *testing.T) {
	server := startMockDNS(t, answerHandler(t,
		[]string{"192.0.2.10", "192.0.2.11"},
		[]string{"2001:db8::10"},
	))

	resolver, err := NewDNSResolver(&ResolverConfig{Server: server, Timeout: 2 * time.Second})
	require.NoError(t, err)

	routes, err := resolver.ResolveRoutes(context.Background(), "chat.example.com", 443)
	require.NoError(t, err)
	require.Len(t, routes, 3)
	assert.Equal(t, "2001:db8::10", routes[0].Addr.String())
	assert.Equal(t, "192.0.2.10", routes[1].Addr.String())
	assert.Equal(t, "192.0.2.11", routes[2].Addr.String())

	for _, route := range routes {
		assert.Equal(t, "chat.example.com", route.Hostname)
		assert.Equal(t, uint16(443), route.Port)
	}
}

func TestResolveRoutes_NoAddresses(t *testing.T) {
	server := startMockDNS(t, answerHandler(t, nil, nil))

	resolver, err := NewDNSResolver(&ResolverConfig{Server: server, Timeout: 2 * time.Second})
	require.NoError(t, err)

	// Zero candidates with a nil error; the connector turns this into
	// its no-routes failure.
	routes, err := resolver.ResolveRoutes(context.Background(), "empty.example.com", 443)
	require.NoError(t, err)
	assert.Empty(t, routes)
}

func TestResolveRoutes_NXDomainIsEmpty(t *testing.T) {
	server := startMockDNS(t, rcodeHandler(dns.RcodeNameError))

	resolver, err := NewDNSResolver(&ResolverConfig{Server: server, Timeout: 2 * time.Second})
	require.NoError(t, err)

	routes, err := resolver.ResolveRoutes(context.Background(), "missing.example.com", 443)
	require.NoError(t, err)
	assert.Empty(t, routes)
}

func TestResolveRoutes_ServerFailure(t *testing.T) {
	server := startMockDNS(t, rcodeHandler(dns.RcodeServerFailure))

	resolver, err := NewDNSResolver(&ResolverConfig{Server: server, Timeout: 2 * time.Second})
	require.NoError(t, err)

	_, err = resolver.ResolveRoutes(context.Background(), "broken.example.com", 443)
	assert.ErrorIs(t, err, ErrDNSLookupFailed)
}
