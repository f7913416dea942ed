package go_seos

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"io"
	"math/big"
	"net"
	"testing"
	"time"
)

// newTLSServerCert creates a self-signed server certificate and returns the
// tls pair plus its PEM encoding for the client trust store.
func newTLSServerCert(t *testing.T, cn string) (tls.Certificate, []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: cn},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("CreateCertificate: %v", err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}, pemBytes
}

// startTLSEchoServer speaks TLS 1.2 on conn, echoes the first application
// record and closes cleanly.
func startTLSEchoServer(t *testing.T, conn net.Conn, cert tls.Certificate) {
	t.Helper()
	go func() {
		srv := tls.Server(conn, &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
			MaxVersion:   tls.VersionTLS12,
		})
		if err := srv.Handshake(); err != nil {
			return
		}
		buf := make([]byte, DataportSize)
		n, err := srv.Read(buf)
		if err != nil {
			return
		}
		if _, err := srv.Write(buf[:n]); err != nil {
			return
		}
		srv.Close()
	}()
}

// pipeCallbacks adapts one end of a net.Pipe to the session callback pair.
func pipeCallbacks(conn net.Conn) (TLSSendFunc, TLSRecvFunc) {
	send := func(data []byte) (int, error) {
		return conn.Write(data)
	}
	recv := func(buf []byte) (int, error) {
		n, err := conn.Read(buf)
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return n, err
	}
	return send, recv
}

func newTestTLSConfig(t *testing.T, conn net.Conn, caPEM []byte) TLSConfig {
	t.Helper()
	send, recv := pipeCallbacks(conn)
	return TLSConfig{
		Crypto:       newTestCrypto(t),
		Send:         send,
		Recv:         recv,
		CACert:       caPEM,
		CipherSuites: []uint16{TLSECDHERSAWithAES128GCMSHA256},
	}
}

// TestTLSSessionConfigValidation verifies that configuration problems are
// caught at session creation.
func TestTLSSessionConfigValidation(t *testing.T) {
	_, caPEM := newTLSServerCert(t, "server")
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	base := newTestTLSConfig(t, clientConn, caPEM)

	tests := []struct {
		name   string
		mutate func(cfg *TLSConfig)
		want   error
	}{
		{"no-crypto", func(cfg *TLSConfig) { cfg.Crypto = nil }, ErrInvalidParameter},
		{"no-callbacks", func(cfg *TLSConfig) { cfg.Send = nil }, ErrInvalidParameter},
		{"no-ca", func(cfg *TLSConfig) { cfg.CACert = nil }, ErrInvalidParameter},
		{"oversized-ca", func(cfg *TLSConfig) { cfg.CACert = make([]byte, MaxCACertPEMSize+1) }, ErrInvalidParameter},
		{"garbage-ca", func(cfg *TLSConfig) { cfg.CACert = []byte("not pem") }, ErrInvalidParameter},
		{"no-suites", func(cfg *TLSConfig) { cfg.CipherSuites = nil }, ErrInvalidParameter},
		{"too-many-suites", func(cfg *TLSConfig) { cfg.CipherSuites = make([]uint16, MaxTLSCipherSuites+1) }, ErrInvalidParameter},
		{"unknown-suite", func(cfg *TLSConfig) { cfg.CipherSuites = []uint16{0x1301} }, ErrNotSupported},
		{"dhe-only", func(cfg *TLSConfig) { cfg.CipherSuites = []uint16{TLSDHERSAWithAES128GCMSHA256} }, ErrNotSupported},
		{"md5-policy", func(cfg *TLSConfig) {
			cfg.Policy = &TLSPolicy{HandshakeDigests: []DigestAlgorithm{DigestMD5}}
		}, ErrNotSupported},
	}
	for _, tt := range tests {
		cfg := base
		tt.mutate(&cfg)
		if _, err := NewTLSSession(cfg); !errors.Is(err, tt.want) {
			t.Errorf("%s: got %v, want %v", tt.name, err, tt.want)
		}
	}
}

// TestTLSSessionEcho verifies handshake, data transfer, clean close and the
// state machine of a library-mode session.
func TestTLSSessionEcho(t *testing.T) {
	cert, caPEM := newTLSServerCert(t, "server")
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()
	startTLSEchoServer(t, serverConn, cert)

	session, err := NewTLSSession(newTestTLSConfig(t, clientConn, caPEM))
	if err != nil {
		t.Fatalf("NewTLSSession: %v", err)
	}
	if session.State() != TLSStateInit {
		t.Fatalf("initial state = %v", session.State())
	}

	// data transfer before the handshake is a sequencing error
	if _, err := session.Write([]byte("early")); !errors.Is(err, ErrOperationDenied) {
		t.Errorf("Write before handshake: got %v, want ErrOperationDenied", err)
	}
	if _, err := session.Read(make([]byte, 16)); !errors.Is(err, ErrOperationDenied) {
		t.Errorf("Read before handshake: got %v, want ErrOperationDenied", err)
	}

	if err := session.Handshake(); err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	if session.State() != TLSStateEstablished {
		t.Fatalf("state after handshake = %v", session.State())
	}
	if err := session.Handshake(); !errors.Is(err, ErrOperationDenied) {
		t.Errorf("second handshake: got %v, want ErrOperationDenied", err)
	}

	msg := []byte("attestation blob")
	if n, err := session.Write(msg); err != nil || n != len(msg) {
		t.Fatalf("Write = %d, %v", n, err)
	}
	buf := make([]byte, DataportSize)
	n, err := session.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(buf[:n], msg) {
		t.Errorf("echo = %q, want %q", buf[:n], msg)
	}

	// the server closes after echoing; a clean close is success with zero
	// bytes
	n, err = session.Read(buf)
	if err != nil || n != 0 {
		t.Errorf("Read at close = %d, %v, want (0, nil)", n, err)
	}

	if err := session.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if session.State() != TLSStateInit {
		t.Errorf("state after reset = %v", session.State())
	}
	if err := session.Free(); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if err := session.Handshake(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Handshake after Free: got %v, want ErrInvalidState", err)
	}
}

// TestTLSSessionWriteBounds verifies the per-call transfer limits.
func TestTLSSessionWriteBounds(t *testing.T) {
	cert, caPEM := newTLSServerCert(t, "server")
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()
	startTLSEchoServer(t, serverConn, cert)

	session, err := NewTLSSession(newTestTLSConfig(t, clientConn, caPEM))
	if err != nil {
		t.Fatalf("NewTLSSession: %v", err)
	}
	if err := session.Handshake(); err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	if _, err := session.Write(nil); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("empty write: got %v, want ErrInvalidParameter", err)
	}
	if _, err := session.Write(make([]byte, DataportSize+1)); !errors.Is(err, ErrInsufficientSpace) {
		t.Errorf("oversized write: got %v, want ErrInsufficientSpace", err)
	}
	if _, err := session.Read(nil); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("empty read: got %v, want ErrInvalidParameter", err)
	}
	if _, err := session.Read(make([]byte, DataportSize+1)); !errors.Is(err, ErrInsufficientSpace) {
		t.Errorf("oversized read: got %v, want ErrInsufficientSpace", err)
	}
}

// TestTLSSessionUsesInstanceRNG verifies that handshake randomness is drawn
// from the session's Crypto instance rather than an ambient source.
func TestTLSSessionUsesInstanceRNG(t *testing.T) {
	_, caPEM := newTLSServerCert(t, "server")
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	session, err := NewTLSSession(newTestTLSConfig(t, clientConn, caPEM))
	if err != nil {
		t.Fatalf("NewTLSSession: %v", err)
	}
	if session.tlsConf.Rand == nil {
		t.Fatal("protocol engine has no randomness source wired")
	}

	before := make([]byte, 32)
	if _, err := session.cfg.Crypto.GetRandomBytes(RngFlagNone, before); err != nil {
		t.Fatalf("GetRandomBytes: %v", err)
	}
	buf := make([]byte, 48)
	if _, err := io.ReadFull(session.tlsConf.Rand, buf); err != nil {
		t.Fatalf("engine rand read: %v", err)
	}
	if bytes.Equal(buf, make([]byte, 48)) {
		t.Error("engine rand produced all zeros")
	}

	// a freed instance propagates its failure into the engine's source
	if err := session.cfg.Crypto.Free(); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if _, err := io.ReadFull(session.tlsConf.Rand, buf); err == nil {
		t.Error("engine rand read succeeded on a freed instance")
	}
}

// TestTLSSessionUntrustedPeer verifies that a peer outside the configured
// trust anchor fails the handshake and the session recovers to initial.
func TestTLSSessionUntrustedPeer(t *testing.T) {
	serverCert, _ := newTLSServerCert(t, "server")
	_, otherCAPEM := newTLSServerCert(t, "someone else")
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()
	startTLSEchoServer(t, serverConn, serverCert)

	session, err := NewTLSSession(newTestTLSConfig(t, clientConn, otherCAPEM))
	if err != nil {
		t.Fatalf("NewTLSSession: %v", err)
	}
	if err := session.Handshake(); !errors.Is(err, ErrAborted) {
		t.Errorf("Handshake against untrusted peer: got %v, want ErrAborted", err)
	}
	if session.State() != TLSStateInit {
		t.Errorf("state after failed handshake = %v, want init", session.State())
	}
}

// TestTLSSessionOverRPC verifies the remote session proxy against a
// library-mode session served over a dataport.
func TestTLSSessionOverRPC(t *testing.T) {
	cert, caPEM := newTLSServerCert(t, "server")
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()
	startTLSEchoServer(t, serverConn, cert)

	backend, err := NewTLSSession(newTestTLSConfig(t, clientConn, caPEM))
	if err != nil {
		t.Fatalf("NewTLSSession: %v", err)
	}

	dp := NewDataport()
	defer dp.Close()
	srv, err := NewTLSRPCServer(dp, backend)
	if err != nil {
		t.Fatalf("NewTLSRPCServer: %v", err)
	}
	go srv.Serve()

	proxy, err := NewTLSRPCClient(dp)
	if err != nil {
		t.Fatalf("NewTLSRPCClient: %v", err)
	}
	if err := proxy.Handshake(); err != nil {
		t.Fatalf("Handshake over RPC: %v", err)
	}

	msg := []byte("remote record")
	if n, err := proxy.Write(msg); err != nil || n != len(msg) {
		t.Fatalf("Write over RPC = %d, %v", n, err)
	}
	buf := make([]byte, 64)
	n, err := proxy.Read(buf)
	if err != nil {
		t.Fatalf("Read over RPC: %v", err)
	}
	if !bytes.Equal(buf[:n], msg) {
		t.Errorf("echo = %q, want %q", buf[:n], msg)
	}
	if err := proxy.Reset(); err != nil {
		t.Fatalf("Reset over RPC: %v", err)
	}

	// a proxy cannot be served again
	if _, err := NewTLSRPCServer(dp, proxy); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("serving a proxy session: got %v, want ErrInvalidParameter", err)
	}
}
