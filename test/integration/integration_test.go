// Copyright 2026 Jeremy Hahn
// SPDX-License-Identifier: MIT

//go:build integration

package integration

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/miekg/dns"
)

// Global state populated by TestMain.
var (
	projectRoot string
	cliBinary   string
)

// TestMain orchestrates integration test infrastructure:
// 1. Locate project root
// 2. Build the CLI binary if missing
// 3. Run tests
func TestMain(m *testing.M) {
	var err error

	projectRoot, err = findProjectRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	cliBinary = filepath.Join(projectRoot, "bin", "chatconn")

	// Build CLI if not present.
	if _, err := os.Stat(cliBinary); os.IsNotExist(err) {
		fmt.Println("==> Building CLI binary...")
		cmd := exec.Command("go", "build", "-o", cliBinary, "./cmd/chatconn")
		cmd.Dir = projectRoot
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: go build failed: %v\n", err)
			os.Exit(1)
		}
	}

	os.Exit(m.Run())
}

// ---------------------------------------------------------------------------
// CLI: version
// ---------------------------------------------------------------------------

func TestVersion(t *testing.T) {
	stdout := runCLIMustSucceed(t, "version")
	if !strings.HasPrefix(stdout, "chatconn version ") {
		t.Fatalf("unexpected version output: %q", stdout)
	}
}

// ---------------------------------------------------------------------------
// CLI: connect (established end to end over real TLS + WebSocket)
// ---------------------------------------------------------------------------

func TestConnectEstablished(t *testing.T) {
	cert := newServerCert(t, "127.0.0.1")
	addr := startChatServer(t, cert, acceptUpgrade())
	derFile := writeDERFile(t, cert)
	_, port := splitAddr(t, addr)

	stdout := runCLIMustSucceed(t, "--debug", "connect",
		"--hostname", "127.0.0.1",
		"--route", "127.0.0.1",
		"--port", port,
		"--trust", "der",
		"--root-der", derFile,
	)

	if !strings.Contains(stdout, "connection established") {
		t.Fatalf("expected established connection:\n%s", stdout)
	}
}

// ---------------------------------------------------------------------------
// CLI: connect (DNS resolution through a real local DNS server)
// ---------------------------------------------------------------------------

func TestConnectViaDNS(t *testing.T) {
	const hostname = "chat.test"

	cert := newServerCert(t, hostname)
	addr := startChatServer(t, cert, acceptUpgrade())
	derFile := writeDERFile(t, cert)
	_, port := splitAddr(t, addr)

	dnsAddr := startDNSServer(t, hostname, "127.0.0.1")

	stdout := runCLIMustSucceed(t, "--debug", "connect",
		"--hostname", hostname,
		"--dns-server", dnsAddr,
		"--port", port,
		"--trust", "der",
		"--root-der", derFile,
	)

	if !strings.Contains(stdout, "connection established") {
		t.Fatalf("expected established connection:\n%s", stdout)
	}
}

// ---------------------------------------------------------------------------
// CLI: connect (server rejection classifications)
// ---------------------------------------------------------------------------

func TestConnectRejectedDeviceDeregistered(t *testing.T) {
	cert := newServerCert(t, "127.0.0.1")
	addr := startChatServer(t, cert, rejectWithStatus(403, ""))
	derFile := writeDERFile(t, cert)
	_, port := splitAddr(t, addr)

	stdout, _, err := runCLI(t, "connect",
		"--hostname", "127.0.0.1",
		"--route", "127.0.0.1",
		"--port", port,
		"--trust", "der",
		"--root-der", derFile,
	)
	if err == nil {
		t.Fatal("connect against a 403 rejection should have failed")
	}

	if !strings.Contains(stdout, "classification: device_deregistered") {
		t.Fatalf("expected device_deregistered classification:\n%s", stdout)
	}
	if !strings.Contains(stdout, "retry: no_retry") {
		t.Fatalf("expected no_retry posture:\n%s", stdout)
	}
}

func TestConnectRejectedRetryLater(t *testing.T) {
	cert := newServerCert(t, "127.0.0.1")
	addr := startChatServer(t, cert, rejectWithStatus(429, "30"))
	derFile := writeDERFile(t, cert)
	_, port := splitAddr(t, addr)

	stdout, _, err := runCLI(t, "connect",
		"--hostname", "127.0.0.1",
		"--route", "127.0.0.1",
		"--port", port,
		"--trust", "der",
		"--root-der", derFile,
	)
	if err == nil {
		t.Fatal("connect against a retry-later rejection should have failed")
	}

	if !strings.Contains(stdout, "classification: retry_later") {
		t.Fatalf("expected retry_later classification:\n%s", stdout)
	}
	if !strings.Contains(stdout, "retry: retry_after_hint") {
		t.Fatalf("expected retry_after_hint posture:\n%s", stdout)
	}
	if !strings.Contains(stdout, "30s") {
		t.Fatalf("expected the 30s hint in output:\n%s", stdout)
	}
}

// ---------------------------------------------------------------------------
// CLI: connect (all routes failed)
// ---------------------------------------------------------------------------

func TestConnectAllRoutesFailed(t *testing.T) {
	port := findFreePort(t)

	stdout, _, err := runCLI(t, "connect",
		"--hostname", "127.0.0.1",
		"--route", "127.0.0.1",
		"--port", fmt.Sprintf("%d", port),
		"--trust", "pinned",
		"--attempt-timeout", "5s",
		"--overall-timeout", "10s",
	)
	if err == nil {
		t.Fatal("connect against a closed port should have failed")
	}

	if !strings.Contains(stdout, "classification: all_connection_routes_failed") {
		t.Fatalf("expected all_connection_routes_failed classification:\n%s", stdout)
	}
	if !strings.Contains(stdout, "retry: retry_with_backoff") {
		t.Fatalf("expected retry_with_backoff posture:\n%s", stdout)
	}
}

// ---------------------------------------------------------------------------
// CLI: connect (untrusted server certificate)
// ---------------------------------------------------------------------------

func TestConnectUntrustedCertificate(t *testing.T) {
	serverCert := newServerCert(t, "127.0.0.1")
	otherCert := newServerCert(t, "127.0.0.1")
	addr := startChatServer(t, serverCert, acceptUpgrade())
	derFile := writeDERFile(t, otherCert)
	_, port := splitAddr(t, addr)

	stdout, _, err := runCLI(t, "connect",
		"--hostname", "127.0.0.1",
		"--route", "127.0.0.1",
		"--port", port,
		"--trust", "der",
		"--root-der", derFile,
		"--attempt-timeout", "5s",
	)
	if err == nil {
		t.Fatal("connect with a mismatched trust anchor should have failed")
	}

	// The TLS failure surfaces under the websocket umbrella after all
	// routes are exhausted.
	if !strings.Contains(stdout, "classification: all_connection_routes_failed") {
		t.Fatalf("expected all_connection_routes_failed classification:\n%s", stdout)
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// serverCert bundles a generated certificate with its key.
type serverCert struct {
	der []byte
	key *ecdsa.PrivateKey
}

// newServerCert generates a self-signed certificate for the given host
// (DNS name or IP literal).
func newServerCert(t *testing.T, host string) serverCert {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: host},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	if ip := net.ParseIP(host); ip != nil {
		template.IPAddresses = []net.IP{ip}
	} else {
		template.DNSNames = []string{host}
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("creating certificate: %v", err)
	}
	return serverCert{der: der, key: key}
}

// writeDERFile writes the certificate DER to a temp file for --root-der.
func writeDERFile(t *testing.T, cert serverCert) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "root.cer")
	if err := os.WriteFile(path, cert.der, 0644); err != nil {
		t.Fatalf("writing DER file: %v", err)
	}
	return path
}

// acceptUpgrade accepts the WebSocket upgrade and closes the connection.
func acceptUpgrade() http.Handler {
	upgrader := websocket.Upgrader{}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		// Drain until the client's close frame.
		conn.ReadMessage() //nolint:errcheck
		conn.Close()
	})
}

// rejectWithStatus refuses the upgrade with the given status, optionally
// setting a Retry-After header.
func rejectWithStatus(status int, retryAfter string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if retryAfter != "" {
			w.Header().Set("Retry-After", retryAfter)
		}
		w.WriteHeader(status)
	})
}

// startChatServer starts a TLS server with the given certificate and
// handler and returns its listen address.
func startChatServer(t *testing.T, cert serverCert, handler http.Handler) string {
	t.Helper()

	tlsCfg := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{{Certificate: [][]byte{cert.der}, PrivateKey: cert.key}},
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listening: %v", err)
	}

	server := &http.Server{Handler: handler}
	go server.Serve(tls.NewListener(ln, tlsCfg)) //nolint:errcheck

	t.Cleanup(func() {
		server.Close()
	})

	return ln.Addr().String()
}

// startDNSServer starts a local DNS server answering A queries for
// hostname with the given address and returns its listen address.
func startDNSServer(t *testing.T, hostname, answer string) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listening for DNS: %v", err)
	}

	handler := dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
		resp := new(dns.Msg)
		resp.SetReply(req)
		question := req.Question[0]
		if question.Qtype == dns.TypeA && question.Name == dns.Fqdn(hostname) {
			resp.Answer = append(resp.Answer, &dns.A{
				Hdr: dns.RR_Header{Name: question.Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 60},
				A:   net.ParseIP(answer),
			})
		}
		w.WriteMsg(resp) //nolint:errcheck
	})

	started := make(chan struct{})
	server := &dns.Server{
		PacketConn:        pc,
		Handler:           handler,
		NotifyStartedFunc: func() { close(started) },
	}
	go server.ActivateAndServe() //nolint:errcheck
	<-started

	t.Cleanup(func() {
		server.Shutdown() //nolint:errcheck
	})

	return pc.LocalAddr().String()
}

// splitAddr splits "host:port" and returns both parts.
func splitAddr(t *testing.T, addr string) (string, string) {
	t.Helper()
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("splitting address %q: %v", addr, err)
	}
	return host, port
}

// findFreePort binds to :0, closes the listener, and returns the assigned port.
func findFreePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("finding free port: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

// runCLI executes the CLI binary with the given arguments and returns stdout,
// stderr, and any error.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Logf("CLI: %s %s", cliBinary, strings.Join(args, " "))

	cmd := exec.Command(cliBinary, args...)
	cmd.Dir = projectRoot

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	stderrStr := stderr.String()
	if stderrStr != "" {
		t.Logf("stderr:\n%s", stderrStr)
	}

	return stdout.String(), stderrStr, err
}

// runCLIMustSucceed executes the CLI and fails the test if it returns an error.
func runCLIMustSucceed(t *testing.T, args ...string) string {
	t.Helper()
	stdout, stderr, err := runCLI(t, args...)
	if err != nil {
		t.Fatalf("CLI command failed: %v\nstdout: %s\nstderr: %s", err, stdout, stderr)
	}
	return stdout
}

// findProjectRoot walks up from the current directory to find go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("could not find go.mod in any parent directory")
		}
		dir = parent
	}
}
