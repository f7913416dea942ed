package go_seos

import (
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"time"
)

// TLSSendFunc pushes outgoing record bytes to an already-connected
// transport. It returns the number of bytes consumed.
type TLSSendFunc func(data []byte) (int, error)

// TLSRecvFunc pulls incoming record bytes from the transport, blocking until
// at least one byte is available. A return of (0, nil) signals that the peer
// closed the connection.
type TLSRecvFunc func(buf []byte) (int, error)

// TLSPolicy restricts the cryptographic parameters accepted during a
// handshake and certificate verification.
type TLSPolicy struct {
	HandshakeDigests []DigestAlgorithm
	CertDigests      []DigestAlgorithm
	RSAMinBits       int
	DHMinBits        int
}

// defaultTLSPolicy derives a policy from the configured ciphersuites; both
// supported suites use SHA-256 throughout.
func defaultTLSPolicy() TLSPolicy {
	return TLSPolicy{
		HandshakeDigests: []DigestAlgorithm{DigestSHA256},
		CertDigests:      []DigestAlgorithm{DigestSHA256},
		RSAMinBits:       DefaultRSAMinBits,
		DHMinBits:        DefaultDHMinBits,
	}
}

// TLSConfig configures a library-mode TLS session.
type TLSConfig struct {
	// Crypto is the initialized Crypto API instance backing the session.
	Crypto *Crypto
	// Send and Recv move record bytes over the caller's transport, which
	// must already be connected.
	Send TLSSendFunc
	Recv TLSRecvFunc
	// CACert is the PEM-encoded trusted CA certificate (or bundle),
	// at most MaxCACertPEMSize bytes.
	CACert []byte
	// OwnCert and OwnKey optionally hold the session's own PEM certificate
	// and private key for client authentication.
	OwnCert []byte
	OwnKey  []byte
	// Policy restricts handshake parameters; nil derives the policy from
	// the ciphersuites.
	Policy *TLSPolicy
	// CipherSuites lists the enabled suites by IANA value, at most
	// MaxTLSCipherSuites entries.
	CipherSuites []uint16
}

// TLSState is the lifecycle state of a session.
type TLSState int

const (
	TLSStateInit TLSState = iota
	TLSStateHandshaking
	TLSStateEstablished
)

type tlsMode int

const (
	tlsModeLibrary tlsMode = iota
	tlsModeRPCClient
)

// TLSSession drives TLS over caller-supplied callbacks. Handshake is only
// legal from the initial state, Read and Write only once established, and
// Reset returns to the initial state keeping configuration and callbacks.
type TLSSession struct {
	mode   tlsMode
	cfg    TLSConfig
	policy TLSPolicy
	state  TLSState
	freed  bool

	tlsConf *tls.Config
	conn    *tls.Conn

	rpc *tlsRPCClient
}

// NewTLSSession creates a library-mode session from cfg. The configuration
// is validated up front; handshaking starts only on Handshake.
func NewTLSSession(cfg TLSConfig) (*TLSSession, error) {
	if cfg.Crypto == nil || cfg.Crypto.Mode() == ModeNone {
		return nil, ErrInvalidParameter
	}
	if cfg.Send == nil || cfg.Recv == nil {
		return nil, ErrInvalidParameter
	}
	if len(cfg.CACert) == 0 || len(cfg.CACert) > MaxCACertPEMSize {
		return nil, ErrInvalidParameter
	}
	if len(cfg.CipherSuites) == 0 || len(cfg.CipherSuites) > MaxTLSCipherSuites {
		return nil, ErrInvalidParameter
	}

	policy := defaultTLSPolicy()
	if cfg.Policy != nil {
		policy = *cfg.Policy
		for _, d := range append(policy.HandshakeDigests, policy.CertDigests...) {
			if d != DigestSHA256 {
				// MD5 in a handshake is long gone
				return nil, ErrNotSupported
			}
		}
	}

	tlsConf, err := buildTLSConfig(&cfg, &policy)
	if err != nil {
		return nil, err
	}
	return &TLSSession{
		mode:    tlsModeLibrary,
		cfg:     cfg,
		policy:  policy,
		tlsConf: tlsConf,
	}, nil
}

// buildTLSConfig maps the session configuration onto the protocol engine.
// The engine's own chain verification is disabled in favor of the policy
// callback, which verifies against the configured CA without hostname
// matching (peers are identified by certificate, not DNS name).
func buildTLSConfig(cfg *TLSConfig, policy *TLSPolicy) (*tls.Config, error) {
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(cfg.CACert) {
		return nil, ErrInvalidParameter
	}

	suites := make([]uint16, 0, len(cfg.CipherSuites))
	for _, s := range cfg.CipherSuites {
		switch s {
		case TLSECDHERSAWithAES128GCMSHA256:
			suites = append(suites, tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256)
		case TLSDHERSAWithAES128GCMSHA256:
			// valid to configure, but the protocol engine has no finite
			// field DHE; the suite is dropped from the offered list
			Warning("ciphersuite 0x%04x configured but unavailable, dropping", s)
		default:
			return nil, ErrNotSupported
		}
	}
	if len(suites) == 0 {
		return nil, ErrNotSupported
	}

	conf := &tls.Config{
		Rand:               &cryptoRandReader{c: cfg.Crypto},
		MinVersion:         tls.VersionTLS12,
		MaxVersion:         tls.VersionTLS12,
		CipherSuites:       suites,
		InsecureSkipVerify: true,
		VerifyPeerCertificate: func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
			return verifyTLSPeer(rawCerts, pool, policy)
		},
	}

	if len(cfg.OwnCert) > 0 || len(cfg.OwnKey) > 0 {
		if len(cfg.OwnCert) == 0 || len(cfg.OwnKey) == 0 {
			return nil, ErrInvalidParameter
		}
		pair, err := tls.X509KeyPair(cfg.OwnCert, cfg.OwnKey)
		if err != nil {
			return nil, ErrInvalidParameter
		}
		conf.Certificates = []tls.Certificate{pair}
	}
	return conf, nil
}

// cryptoRandReader sources handshake randomness from the session's Crypto
// instance DRBG, chunked to the transfer cap.
type cryptoRandReader struct {
	c *Crypto
}

func (r *cryptoRandReader) Read(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		chunk := p[total:]
		if len(chunk) > DataportSize {
			chunk = chunk[:DataportSize]
		}
		n, err := r.c.GetRandomBytes(RngFlagNone, chunk)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// verifyTLSPeer checks the peer chain against the trusted pool and applies
// the key size policy.
func verifyTLSPeer(rawCerts [][]byte, pool *x509.CertPool, policy *TLSPolicy) error {
	if len(rawCerts) == 0 {
		return ErrAborted
	}
	certs := make([]*x509.Certificate, 0, len(rawCerts))
	for _, raw := range rawCerts {
		cert, err := x509.ParseCertificate(raw)
		if err != nil {
			return ErrAborted
		}
		if pub, ok := cert.PublicKey.(*rsa.PublicKey); ok {
			if pub.N.BitLen() < policy.RSAMinBits {
				return ErrNotSupported
			}
		}
		certs = append(certs, cert)
	}

	intermediates := x509.NewCertPool()
	for _, cert := range certs[1:] {
		intermediates.AddCert(cert)
	}
	_, err := certs[0].Verify(x509.VerifyOptions{
		Roots:         pool,
		Intermediates: intermediates,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		return ErrAborted
	}
	return nil
}

func (t *TLSSession) alive() error {
	if t == nil || t.freed {
		return ErrInvalidState
	}
	return nil
}

// State reports the current lifecycle state.
func (t *TLSSession) State() TLSState {
	return t.state
}

// Handshake performs the TLS handshake over the configured callbacks. Only
// legal from the initial state; on failure the session returns to the
// initial state and may be retried.
func (t *TLSSession) Handshake() error {
	if err := t.alive(); err != nil {
		return err
	}
	if t.state != TLSStateInit {
		return ErrOperationDenied
	}
	if t.mode == tlsModeRPCClient {
		if err := t.rpc.handshake(); err != nil {
			return err
		}
		t.state = TLSStateEstablished
		return nil
	}

	t.state = TLSStateHandshaking
	t.conn = tls.Client(&callbackConn{send: t.cfg.Send, recv: t.cfg.Recv}, t.tlsConf)
	if err := t.conn.Handshake(); err != nil {
		Error("tls handshake failed: %v", err)
		t.conn = nil
		t.state = TLSStateInit
		return ErrAborted
	}
	t.state = TLSStateEstablished
	Debug("tls session established")
	return nil
}

// Write sends application data, at most DataportSize bytes per call. Only
// legal once established.
func (t *TLSSession) Write(data []byte) (int, error) {
	if err := t.alive(); err != nil {
		return 0, err
	}
	if t.state != TLSStateEstablished {
		return 0, ErrOperationDenied
	}
	if len(data) == 0 {
		return 0, ErrInvalidParameter
	}
	if len(data) > DataportSize {
		return 0, ErrInsufficientSpace
	}
	if t.mode == tlsModeRPCClient {
		return t.rpc.write(data)
	}
	n, err := t.conn.Write(data)
	if err != nil {
		return n, mapTLSError(err)
	}
	return n, nil
}

// Read receives application data, at most DataportSize bytes per call. A
// clean close by the peer reports success with a zero count.
func (t *TLSSession) Read(buf []byte) (int, error) {
	if err := t.alive(); err != nil {
		return 0, err
	}
	if t.state != TLSStateEstablished {
		return 0, ErrOperationDenied
	}
	if len(buf) == 0 {
		return 0, ErrInvalidParameter
	}
	if len(buf) > DataportSize {
		return 0, ErrInsufficientSpace
	}
	if t.mode == tlsModeRPCClient {
		return t.rpc.read(buf)
	}
	n, err := t.conn.Read(buf)
	if err != nil {
		if errors.Is(err, io.EOF) {
			// peer closed cleanly
			return n, nil
		}
		return n, mapTLSError(err)
	}
	return n, nil
}

// Reset returns the session to the initial state, keeping configuration and
// callbacks so a new handshake can follow.
func (t *TLSSession) Reset() error {
	if err := t.alive(); err != nil {
		return err
	}
	if t.mode == tlsModeRPCClient {
		if err := t.rpc.reset(); err != nil {
			return err
		}
		t.state = TLSStateInit
		return nil
	}
	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
	}
	t.state = TLSStateInit
	return nil
}

// Free releases the session.
func (t *TLSSession) Free() error {
	if err := t.alive(); err != nil {
		return err
	}
	if err := t.Reset(); err != nil {
		return err
	}
	t.freed = true
	return nil
}

func mapTLSError(err error) error {
	if errors.Is(err, net.ErrClosed) {
		return ErrConnectionClosed
	}
	var code ErrorCode
	if errors.As(err, &code) {
		return code
	}
	return ErrAborted
}

// callbackConn adapts the session's send/recv callbacks to the net.Conn
// interface the protocol engine drives. Deadlines are not supported; the
// callbacks block.
type callbackConn struct {
	send TLSSendFunc
	recv TLSRecvFunc
}

func (c *callbackConn) Read(p []byte) (int, error) {
	n, err := c.recv(p)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (c *callbackConn) Write(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := c.send(p[total:])
		if err != nil {
			return total, err
		}
		if n <= 0 {
			return total, io.ErrShortWrite
		}
		total += n
	}
	return total, nil
}

func (c *callbackConn) Close() error { return nil }

type dataportAddr struct{}

func (dataportAddr) Network() string { return "dataport" }
func (dataportAddr) String() string  { return "dataport" }

func (c *callbackConn) LocalAddr() net.Addr                { return dataportAddr{} }
func (c *callbackConn) RemoteAddr() net.Addr               { return dataportAddr{} }
func (c *callbackConn) SetDeadline(t time.Time) error      { return nil }
func (c *callbackConn) SetReadDeadline(t time.Time) error  { return nil }
func (c *callbackConn) SetWriteDeadline(t time.Time) error { return nil }
