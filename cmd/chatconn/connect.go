// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-chatconn/pkg/chat"
	"github.com/jeremyhahn/go-chatconn/pkg/connect"
	"github.com/jeremyhahn/go-chatconn/pkg/roottrust"
)

const (
	// defaultOverallTimeout is the default deadline for the whole
	// connection attempt across all routes.
	defaultOverallTimeout = 60 * time.Second
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Attempt a secured connection and classify the outcome",
	Long: `Attempt a secured WebSocket connection to the chat service and report
the resulting classification and retry posture.

Candidate routes come from DNS resolution of the hostname, or from the
--route flag when addresses are known ahead of time. The trust policy
selects how the server certificate is verified:

  native  - platform certificate store (default)
  pinned  - build-embedded pinned service root
  der     - DER certificate file given via --root-der`,
	RunE: runConnect,
}

func init() {
	connectCmd.Flags().String("hostname", "", "service hostname to connect to (required)")
	connectCmd.Flags().Uint16("port", connect.DefaultServicePort, "service TLS port")
	connectCmd.Flags().String("path", connect.DefaultUpgradePath, "upgrade request path")
	connectCmd.Flags().String("trust", "native", "root-of-trust policy (native|pinned|der)")
	connectCmd.Flags().String("root-der", "", "DER certificate file for --trust der")
	connectCmd.Flags().String("dns-server", "", "DNS server for route resolution (e.g., 8.8.8.8:53)")
	connectCmd.Flags().StringSlice("route", nil, "candidate route address (repeatable, skips DNS)")
	connectCmd.Flags().Duration("attempt-timeout", connect.DefaultAttemptTimeout, "timeout per route attempt")
	connectCmd.Flags().Duration("overall-timeout", defaultOverallTimeout, "overall connection deadline")
}

func runConnect(cmd *cobra.Command, args []string) error {
	hostname, _ := cmd.Flags().GetString("hostname")
	port, _ := cmd.Flags().GetUint16("port")
	path, _ := cmd.Flags().GetString("path")
	trustName, _ := cmd.Flags().GetString("trust")
	rootDERPath, _ := cmd.Flags().GetString("root-der")
	dnsServer, _ := cmd.Flags().GetString("dns-server")
	routeAddrs, _ := cmd.Flags().GetStringSlice("route")
	attemptTimeout, _ := cmd.Flags().GetDuration("attempt-timeout")
	overallTimeout, _ := cmd.Flags().GetDuration("overall-timeout")

	if hostname == "" {
		return fmt.Errorf("%w: --hostname is required", ErrInvalidInput)
	}
	if attemptTimeout <= 0 || overallTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidInput)
	}

	policy, err := buildPolicy(trustName, rootDERPath)
	if err != nil {
		return err
	}

	resolver, err := buildResolver(hostname, port, dnsServer, routeAddrs)
	if err != nil {
		return err
	}

	connector, err := connect.NewConnector(&connect.ConnectorConfig{
		Trust:          policy,
		Resolver:       resolver,
		Path:           path,
		Port:           port,
		AttemptTimeout: attemptTimeout,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	sigCtx, sigStop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer sigStop()

	ctx, cancel := context.WithTimeout(sigCtx, overallTimeout)
	defer cancel()

	slog.Info("connecting", "hostname", hostname, "port", port, "trust", policy.String())

	conn, err := connector.Connect(ctx, hostname)
	if err == nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		conn.Close()
		fmt.Println("connection established")
		return nil
	}

	svcErr := chat.ClassifySingleAttempt(err)
	decision := chat.Decide(svcErr)

	fmt.Printf("classification: %s\n", svcErr.Kind)
	fmt.Printf("detail: %s\n", svcErr.LogSafe())
	fmt.Printf("retry: %s", decision.Strategy)
	if decision.Strategy == chat.RetryAfterHint {
		fmt.Printf(" (wait at least %s)", decision.Hint)
	}
	fmt.Println()

	return fmt.Errorf("%w: %s", ErrConnectFailed, svcErr.LogSafe())
}

// buildPolicy constructs the root-of-trust policy from the --trust and
// --root-der flags.
func buildPolicy(name, derPath string) (roottrust.Policy, error) {
	switch name {
	case "native":
		return roottrust.Native(), nil
	case "pinned":
		return roottrust.Pinned(), nil
	case "der":
		if derPath == "" {
			return roottrust.Policy{}, fmt.Errorf("%w: --root-der is required for --trust der", ErrInvalidInput)
		}
		der, err := os.ReadFile(derPath)
		if err != nil {
			return roottrust.Policy{}, fmt.Errorf("%w: %w", ErrFileOperation, err)
		}
		return roottrust.FromDER(der), nil
	default:
		return roottrust.Policy{}, fmt.Errorf("%w: unknown trust policy %q", ErrInvalidInput, name)
	}
}

// buildResolver constructs the route resolver: a static resolver when
// --route addresses were given, the DNS resolver otherwise.
func buildResolver(hostname string, port uint16, dnsServer string, routeAddrs []string) (connect.RouteResolver, error) {
	if len(routeAddrs) == 0 {
		return connect.NewDNSResolver(&connect.ResolverConfig{Server: dnsServer})
	}

	routes := make([]connect.Route, 0, len(routeAddrs))
	for _, raw := range routeAddrs {
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid route address %q", ErrInvalidInput, raw)
		}
		routes = append(routes, connect.Route{Hostname: hostname, Addr: addr, Port: port})
	}
	return &connect.StaticResolver{Routes: routes}, nil
}
